package sse

// Event names pushed on a user's channel.
const (
	EventTaskProgress = "task-progress"
	EventTaskError    = "task-error"
)

// TaskProgressPayload announces a completed task.
type TaskProgressPayload struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
	Result string `json:"result"`
	Agent  string `json:"agent"`
}

// TaskErrorPayload announces a failed task.
type TaskErrorPayload struct {
	TaskID string `json:"taskId"`
	Error  string `json:"error"`
}

// NewTaskProgress builds the completion event for a task.
func NewTaskProgress(taskID, result, agent string) *Message {
	return NewMessage(EventTaskProgress, TaskProgressPayload{
		TaskID: taskID,
		Status: "completed",
		Result: result,
		Agent:  agent,
	})
}

// NewTaskError builds the failure event for a task.
func NewTaskError(taskID, errMsg string) *Message {
	return NewMessage(EventTaskError, TaskErrorPayload{
		TaskID: taskID,
		Error:  errMsg,
	})
}
