package pool

import (
	"github.com/taskhive/taskhive/core/types"
)

type AgentStatus string

const (
	AgentStatusIdle     AgentStatus = "idle"
	AgentStatusBusy     AgentStatus = "busy"
	AgentStatusLearning AgentStatus = "learning"
)

// AgentConfig is the static description an agent is created from.
// Roster entries are loaded once at process start; agents are never
// added or destroyed at runtime.
type AgentConfig struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Personality    []string `json:"personality"`
	Specialization []string `json:"specialization"`
	Curiosity      float64  `json:"curiosity"`
	LearningRate   float64  `json:"learning_rate"`
}

// Agent is a stateful worker descriptor. Status, CurrentTask and the
// private knowledge map are mutated only under the pool lock.
type Agent struct {
	ID             string
	Name           string
	Personality    []string
	Specialization []string
	Status         AgentStatus
	CurrentTask    string
	Knowledge      map[string]types.KnowledgeItem
	Curiosity      float64
	LearningRate   float64
}

// AgentSnapshot is a point-in-time view of one agent, safe to hand out
// without the pool lock.
type AgentSnapshot struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Status            string   `json:"status"`
	Specialization    []string `json:"specialization"`
	KnowledgeBaseSize int      `json:"knowledge_base_size"`
	Curiosity         float64  `json:"curiosity"`
}

func newAgent(config AgentConfig) *Agent {
	personality := make([]string, len(config.Personality))
	copy(personality, config.Personality)
	specialization := make([]string, len(config.Specialization))
	copy(specialization, config.Specialization)

	return &Agent{
		ID:             config.ID,
		Name:           config.Name,
		Personality:    personality,
		Specialization: specialization,
		Status:         AgentStatusIdle,
		Knowledge:      make(map[string]types.KnowledgeItem),
		Curiosity:      config.Curiosity,
		LearningRate:   config.LearningRate,
	}
}

// DefaultRoster is the built-in agent roster used when no roster file
// is present in the state directory.
func DefaultRoster() []AgentConfig {
	return []AgentConfig{
		{
			ID:             "scout",
			Name:           "Scout",
			Personality:    []string{"curious", "energetic", "broad"},
			Specialization: []string{"research", "news", "discovery"},
			Curiosity:      0.9,
			LearningRate:   0.7,
		},
		{
			ID:             "sage",
			Name:           "Sage",
			Personality:    []string{"analytical", "thorough", "calm"},
			Specialization: []string{"science", "mathematics", "analysis"},
			Curiosity:      0.5,
			LearningRate:   0.9,
		},
		{
			ID:             "quill",
			Name:           "Quill",
			Personality:    []string{"creative", "articulate", "playful"},
			Specialization: []string{"writing", "storytelling", "language"},
			Curiosity:      0.7,
			LearningRate:   0.6,
		},
		{
			ID:             "forge",
			Name:           "Forge",
			Personality:    []string{"pragmatic", "precise", "patient"},
			Specialization: []string{"engineering", "programming", "technology"},
			Curiosity:      0.4,
			LearningRate:   0.8,
		},
	}
}
