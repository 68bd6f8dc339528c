package webui

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/taskhive/taskhive/core/orchestrator"
	"github.com/taskhive/taskhive/core/sse"
)

// App is the thin HTTP shell around the orchestration core: task
// submission, task/agent status reads and the per-user SSE stream.
type App struct {
	orchestrator *orchestrator.Orchestrator
	hub          sse.Hub
	apiKeys      []string
	*fiber.App
}

type Option func(*App)

// WithApiKeys enables API-key authentication on every route.
func WithApiKeys(keys []string) Option {
	return func(a *App) {
		a.apiKeys = keys
	}
}

func NewApp(orch *orchestrator.Orchestrator, hub sse.Hub, opts ...Option) *App {
	webapp := fiber.New()

	a := &App{
		orchestrator: orch,
		hub:          hub,
		App:          webapp,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.registerRoutes(webapp)

	return a
}

type submitTaskRequest struct {
	UserID   string                 `json:"user_id"`
	Prompt   string                 `json:"prompt"`
	Context  map[string]interface{} `json:"context"`
	Priority int                    `json:"priority"`
}

// SubmitTask enqueues a task and returns its ID without waiting for
// processing.
func (a *App) SubmitTask() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		payload := submitTaskRequest{}
		if err := c.BodyParser(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		taskID, err := a.orchestrator.SubmitTask(payload.UserID, payload.Prompt, payload.Context, payload.Priority)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"task_id": taskID})
	}
}

// GetTask returns one task record.
func (a *App) GetTask() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		task, err := a.orchestrator.Task(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(task)
	}
}

// ListTasks returns a user's task history.
func (a *App) ListTasks() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		userID := c.Query("user")
		if userID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing user query parameter"})
		}
		tasks, err := a.orchestrator.UserTasks(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"tasks": tasks})
	}
}

// GetAgents returns the agent pool snapshot.
func (a *App) GetAgents() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		agents := a.orchestrator.AgentStatuses()
		return c.JSON(fiber.Map{
			"agents":     agents,
			"agentCount": len(agents),
		})
	}
}
