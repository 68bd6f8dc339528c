package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/taskhive/taskhive/core/types"
)

// JSONStore implements Store using JSON file storage.
type JSONStore struct {
	filePath string
	mu       sync.RWMutex
	data     *storeData
}

type storeData struct {
	Tasks map[string]*types.Task `json:"tasks"`
	// Pending holds task IDs awaiting processing, oldest first.
	Pending []string `json:"pending"`
}

// NewJSONStore creates a new JSON-backed task store.
func NewJSONStore(filePath string) (*JSONStore, error) {
	store := &JSONStore{
		filePath: filePath,
		data: &storeData{
			Tasks:   make(map[string]*types.Task),
			Pending: make([]string, 0),
		},
	}

	if err := store.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load store: %w", err)
		}
		if err := store.save(); err != nil {
			return nil, fmt.Errorf("failed to create store file: %w", err)
		}
	}

	return store, nil
}

// cloneTask copies a record. The store never shares its stored
// pointers with callers: the processing loop mutates its copy and the
// API reads another, so the only synchronization point is Update.
func cloneTask(task *types.Task) *types.Task {
	clone := *task
	return &clone
}

// Enqueue persists a pending task and appends it to the queue.
func (s *JSONStore) Enqueue(task *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Tasks[task.ID]; ok {
		return fmt.Errorf("task with ID %s already exists", task.ID)
	}

	s.data.Tasks[task.ID] = cloneTask(task)
	s.data.Pending = append(s.data.Pending, task.ID)
	return s.save()
}

// Dequeue removes and returns the oldest pending task. The removal and
// the return happen under the same lock, so a task is delivered to at
// most one caller.
func (s *JSONStore) Dequeue() (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data.Pending) == 0 {
		return nil, nil
	}

	id := s.data.Pending[0]
	s.data.Pending = s.data.Pending[1:]

	task, ok := s.data.Tasks[id]
	if !ok {
		return nil, fmt.Errorf("queued task not found: %s", id)
	}

	if err := s.save(); err != nil {
		// Put the ID back so the task is not lost on a store error.
		s.data.Pending = append([]string{id}, s.data.Pending...)
		return nil, err
	}

	return cloneTask(task), nil
}

// Requeue puts a task back at the front of the queue.
func (s *JSONStore) Requeue(task *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Tasks[task.ID]; !ok {
		return fmt.Errorf("task not found: %s", task.ID)
	}

	for _, id := range s.data.Pending {
		if id == task.ID {
			return fmt.Errorf("task already queued: %s", task.ID)
		}
	}

	s.data.Pending = append([]string{task.ID}, s.data.Pending...)
	return s.save()
}

// Get retrieves a task by ID.
func (s *JSONStore) Get(id string) (*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.data.Tasks[id]
	if !ok {
		return nil, fmt.Errorf("task not found: %s", id)
	}
	return cloneTask(task), nil
}

// Update persists a mutated task record.
func (s *JSONStore) Update(task *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Tasks[task.ID]; !ok {
		return fmt.Errorf("task not found: %s", task.ID)
	}

	task.UpdatedAt = time.Now()
	s.data.Tasks[task.ID] = cloneTask(task)
	return s.save()
}

// GetByUser retrieves all tasks for a user, newest first.
func (s *JSONStore) GetByUser(userID string) ([]*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*types.Task, 0)
	for _, task := range s.data.Tasks {
		if task.UserID == userID {
			tasks = append(tasks, cloneTask(task))
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// All retrieves every task record.
func (s *JSONStore) All() ([]*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*types.Task, 0, len(s.data.Tasks))
	for _, task := range s.data.Tasks {
		tasks = append(tasks, cloneTask(task))
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// Close releases resources (no-op for JSON store).
func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) load() error {
	file, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	if len(file) == 0 {
		return nil
	}

	return json.Unmarshal(file, s.data)
}

func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	basePath := filepath.Dir(s.filePath)
	os.MkdirAll(basePath, 0755)

	return os.WriteFile(s.filePath, data, 0644)
}
