package pool

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mudler/xlog"
	"github.com/taskhive/taskhive/core/types"
	"github.com/taskhive/taskhive/pkg/xstrings"
)

// ErrNoAgentAvailable is returned by SelectAgent when every agent in
// the pool is busy or learning. It is a transient condition, not a
// task failure: the caller defers the task to a later cycle.
var ErrNoAgentAvailable = errors.New("no agent available")

// Scoring weights for agent selection.
const (
	curiosityWeight      = 0.3
	learningRateWeight   = 0.2
	specializationWeight = 0.5
)

// AgentPool holds the fixed set of agents and owns all mutation of
// their status, current task and private knowledge. Selection is a
// compare-and-set idle->busy under the pool lock, so an agent can
// never hold two tasks.
type AgentPool struct {
	sync.Mutex
	agents map[string]*Agent
}

// NewAgentPool creates a pool from a static roster.
func NewAgentPool(roster []AgentConfig) (*AgentPool, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("empty agent roster")
	}

	agents := make(map[string]*Agent, len(roster))
	for _, config := range roster {
		if config.ID == "" {
			return nil, fmt.Errorf("agent roster entry without id")
		}
		if _, ok := agents[config.ID]; ok {
			return nil, fmt.Errorf("duplicate agent id %s", config.ID)
		}
		agents[config.ID] = newAgent(config)
	}

	return &AgentPool{agents: agents}, nil
}

// NewAgentPoolFromFile loads the roster from a JSON file, falling back
// to the built-in roster when the file does not exist.
func NewAgentPoolFromFile(path string) (*AgentPool, error) {
	if _, err := os.Stat(path); err != nil {
		xlog.Info("No agent roster file, using default roster", "path", path)
		return NewAgentPool(DefaultRoster())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	var roster []AgentConfig
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}

	return NewAgentPool(roster)
}

// Score computes the selection score of an agent against a prompt.
// Specialization matching is a crude lexical-overlap heuristic: a
// specialization tag matches when any lowercase whitespace token of
// the prompt is a substring of the tag.
func Score(agent *Agent, prompt string) float64 {
	tokens := xstrings.Tokens(prompt)
	matches := 0
	for _, tag := range agent.Specialization {
		tag = strings.ToLower(tag)
		for _, token := range tokens {
			if strings.Contains(tag, token) {
				matches++
				break
			}
		}
	}
	return curiosityWeight*agent.Curiosity +
		learningRateWeight*agent.LearningRate +
		specializationWeight*float64(matches)
}

// SelectAgent scores idle agents against the task and marks the best
// match busy with the task ID. Ties break to the lowest agent ID so
// selection is deterministic for identical inputs.
func (p *AgentPool) SelectAgent(task *types.Task) (*Agent, error) {
	p.Lock()
	defer p.Unlock()

	ids := make([]string, 0, len(p.agents))
	for id, agent := range p.agents {
		if agent.Status == AgentStatusIdle {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoAgentAvailable
	}
	sort.Strings(ids)

	var best *Agent
	bestScore := -1.0
	for _, id := range ids {
		agent := p.agents[id]
		score := Score(agent, task.Prompt)
		xlog.Debug("Scored agent", "agent", id, "task", task.ID, "score", score)
		if score > bestScore {
			best = agent
			bestScore = score
		}
	}

	best.Status = AgentStatusBusy
	best.CurrentTask = task.ID

	xlog.Info("Agent selected", "agent", best.ID, "task", task.ID, "score", bestScore)

	return best, nil
}

// Release returns an agent to idle and clears its current task. Called
// on both the success and the failure path of task processing.
func (p *AgentPool) Release(agentID string) {
	p.Lock()
	defer p.Unlock()

	agent, ok := p.agents[agentID]
	if !ok {
		return
	}
	agent.Status = AgentStatusIdle
	agent.CurrentTask = ""
}

// SetLearning flips a busy agent into the learning state for the
// curiosity-driven exploration pass. The agent keeps its current task.
func (p *AgentPool) SetLearning(agentID string) {
	p.Lock()
	defer p.Unlock()

	if agent, ok := p.agents[agentID]; ok && agent.Status == AgentStatusBusy {
		agent.Status = AgentStatusLearning
	}
}

// SetBusy returns a learning agent to busy after its exploration pass.
func (p *AgentPool) SetBusy(agentID string) {
	p.Lock()
	defer p.Unlock()

	if agent, ok := p.agents[agentID]; ok && agent.Status == AgentStatusLearning {
		agent.Status = AgentStatusBusy
	}
}

// AbsorbKnowledge merges items into the agent's private knowledge map,
// keyed by originating query, stamped with the ingestion time. Items
// arriving without a confidence default to 0.8.
func (p *AgentPool) AbsorbKnowledge(agentID string, items []types.KnowledgeItem, now time.Time) {
	p.Lock()
	defer p.Unlock()

	agent, ok := p.agents[agentID]
	if !ok {
		return
	}

	for _, item := range items {
		item.Timestamp = now
		if item.Confidence == 0 {
			item.Confidence = 0.8
		}
		agent.Knowledge[item.Query] = item
	}
}

// AgentKnowledge returns a copy of the agent's private knowledge map.
func (p *AgentPool) AgentKnowledge(agentID string) []types.KnowledgeItem {
	p.Lock()
	defer p.Unlock()

	agent, ok := p.agents[agentID]
	if !ok {
		return nil
	}

	items := make([]types.KnowledgeItem, 0, len(agent.Knowledge))
	keys := make([]string, 0, len(agent.Knowledge))
	for k := range agent.Knowledge {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		items = append(items, agent.Knowledge[k])
	}
	return items
}

// Statuses returns a point-in-time snapshot of every agent, sorted by
// agent ID. No side effects.
func (p *AgentPool) Statuses() []AgentSnapshot {
	p.Lock()
	defer p.Unlock()

	snapshots := make([]AgentSnapshot, 0, len(p.agents))
	for _, agent := range p.agents {
		specialization := make([]string, len(agent.Specialization))
		copy(specialization, agent.Specialization)
		snapshots = append(snapshots, AgentSnapshot{
			ID:                agent.ID,
			Name:              agent.Name,
			Status:            string(agent.Status),
			Specialization:    specialization,
			KnowledgeBaseSize: len(agent.Knowledge),
			Curiosity:         agent.Curiosity,
		})
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].ID < snapshots[j].ID
	})
	return snapshots
}

// Get returns the agent with the given ID, or nil.
func (p *AgentPool) Get(agentID string) *Agent {
	p.Lock()
	defer p.Unlock()
	return p.agents[agentID]
}

// ForceStatus sets an agent's status directly. Intended for tests that
// need to exhaust the pool.
func (p *AgentPool) ForceStatus(agentID string, status AgentStatus) {
	p.Lock()
	defer p.Unlock()
	if agent, ok := p.agents[agentID]; ok {
		agent.Status = status
	}
}
