package types

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task is a unit of user work, from submission to a terminal
// completed/failed state. Status transitions are monotonic:
// pending -> processing -> {completed, failed}.
type Task struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	Prompt    string                 `json:"prompt"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Priority  int                    `json:"priority"`
	Status    TaskStatus             `json:"status"`
	Result    string                 `json:"result,omitempty"`
	Error     string                 `json:"error,omitempty"`
	AgentID   string                 `json:"agent_id,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewTask creates a pending task for the given user and prompt.
func NewTask(userID, prompt string, context map[string]interface{}, priority int) *Task {
	now := time.Now()
	return &Task{
		ID:        uuid.New().String(),
		UserID:    userID,
		Prompt:    prompt,
		Context:   context,
		Priority:  priority,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Terminal reports whether the task reached a final state.
func (t *Task) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}
