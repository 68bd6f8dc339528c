package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mudler/xlog"
	"github.com/taskhive/taskhive/core/knowledge"
	"github.com/taskhive/taskhive/core/orchestrator"
	"github.com/taskhive/taskhive/core/pool"
	"github.com/taskhive/taskhive/core/queue"
	"github.com/taskhive/taskhive/core/sse"
	"github.com/taskhive/taskhive/core/usercontext"
	"github.com/taskhive/taskhive/pkg/llm"
	"github.com/taskhive/taskhive/webui"
)

var model = os.Getenv("TASKHIVE_MODEL")
var embeddingsModel = os.Getenv("TASKHIVE_EMBEDDINGS_MODEL")
var apiURL = os.Getenv("TASKHIVE_LLM_API_URL")
var apiKey = os.Getenv("TASKHIVE_LLM_API_KEY")
var timeout = os.Getenv("TASKHIVE_TIMEOUT")
var stateDir = os.Getenv("TASKHIVE_STATE_DIR")
var schedule = os.Getenv("TASKHIVE_SCHEDULE")
var listenAddr = os.Getenv("TASKHIVE_LISTEN_ADDR")
var apiKeysEnv = os.Getenv("TASKHIVE_API_KEYS")
var webResults = 3

func init() {
	if model == "" {
		panic("TASKHIVE_MODEL not set")
	}
	if apiURL == "" {
		panic("TASKHIVE_LLM_API_URL not set")
	}
	if timeout == "" {
		timeout = "5m"
	}
	if schedule == "" {
		schedule = orchestrator.DefaultSchedule
	}
	if listenAddr == "" {
		listenAddr = ":3000"
	}
	if stateDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			panic(err)
		}
		stateDir = filepath.Join(cwd, "state")
	}
}

func main() {
	if err := run(); err != nil {
		xlog.Error("TaskHive exited", "error", err)
		os.Exit(1)
	}
}

// run wires and serves everything. Shutdown is deferred here so it
// also runs when the server returns an error.
func run() error {
	// make sure state dir exists
	os.MkdirAll(stateDir, 0755)

	apiKeys := []string{}
	if apiKeysEnv != "" {
		apiKeys = strings.Split(apiKeysEnv, ",")
	}

	client := llm.NewClient(apiKey, apiURL, timeout)

	taskStore, err := queue.NewJSONStore(filepath.Join(stateDir, "tasks.json"))
	if err != nil {
		return fmt.Errorf("failed to open task store: %w", err)
	}
	defer taskStore.Close()

	contextStore, err := usercontext.NewJSONStore(filepath.Join(stateDir, "contexts.json"))
	if err != nil {
		return fmt.Errorf("failed to open context store: %w", err)
	}
	defer contextStore.Close()

	agents, err := pool.NewAgentPoolFromFile(filepath.Join(stateDir, "agents.json"))
	if err != nil {
		return fmt.Errorf("failed to create agent pool: %w", err)
	}

	seeker := knowledge.NewSeeker(client, model,
		knowledge.NewWikipediaSource(),
		knowledge.NewWebSource(webResults),
		knowledge.NewInsightSource(client, model),
	)

	hub := sse.NewHub(10)

	opts := []orchestrator.Option{
		orchestrator.WithSchedule(schedule),
	}

	if embeddingsModel != "" {
		memory, err := knowledge.NewVectorMemory("taskhive", client, embeddingsModel)
		if err != nil {
			return fmt.Errorf("failed to create vector memory: %w", err)
		}
		opts = append(opts, orchestrator.WithVectorMemory(memory))
	}

	orch := orchestrator.New(
		taskStore,
		agents,
		usercontext.NewBuilder(contextStore),
		seeker,
		client,
		model,
		hub,
		opts...,
	)

	orch.Start()
	defer orch.Stop()

	app := webui.NewApp(orch, hub, webui.WithApiKeys(apiKeys))

	xlog.Info("TaskHive listening", "addr", listenAddr)
	return app.Listen(listenAddr)
}
