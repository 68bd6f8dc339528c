package queue

import "github.com/taskhive/taskhive/core/types"

// Store defines the durable task queue and task record persistence.
//
// Dequeue must deliver each pending task to at most one caller, even
// under concurrent consumers. Task records are never deleted by the
// core; retention is a storage-layer concern.
type Store interface {
	// Enqueue persists a pending task and makes it visible to Dequeue.
	Enqueue(task *types.Task) error

	// Dequeue returns the next pending task in FIFO order and removes
	// it from future visibility. Returns (nil, nil) when the queue is
	// empty.
	Dequeue() (*types.Task, error)

	// Requeue puts a previously dequeued task back at the front of the
	// queue, preserving its FIFO position.
	Requeue(task *types.Task) error

	// Get retrieves a task record by ID.
	Get(id string) (*types.Task, error)

	// Update persists a mutated task record.
	Update(task *types.Task) error

	// GetByUser retrieves all task records for a user, newest first.
	GetByUser(userID string) ([]*types.Task, error)

	// All retrieves every task record.
	All() ([]*types.Task, error)

	// Close releases resources.
	Close() error
}
