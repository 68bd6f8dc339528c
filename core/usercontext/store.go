package usercontext

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/taskhive/taskhive/core/types"
)

// Store persists per-user contexts.
type Store interface {
	// Get retrieves a user's context. Missing users return (nil, nil).
	Get(userID string) (*types.UserContext, error)

	// Put persists a user's context.
	Put(context *types.UserContext) error

	// Close releases resources.
	Close() error
}

// JSONStore implements Store using JSON file storage.
type JSONStore struct {
	filePath string
	mu       sync.RWMutex
	contexts map[string]*types.UserContext
}

// NewJSONStore creates a new JSON-backed context store.
func NewJSONStore(filePath string) (*JSONStore, error) {
	store := &JSONStore{
		filePath: filePath,
		contexts: make(map[string]*types.UserContext),
	}

	if err := store.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load context store: %w", err)
		}
		if err := store.save(); err != nil {
			return nil, fmt.Errorf("failed to create context store file: %w", err)
		}
	}

	return store, nil
}

func (s *JSONStore) Get(userID string) (*types.UserContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	context, ok := s.contexts[userID]
	if !ok {
		return nil, nil
	}
	clone := *context
	return &clone, nil
}

func (s *JSONStore) Put(context *types.UserContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *context
	s.contexts[context.UserID] = &clone
	return s.save()
}

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

	return json.Unmarshal(file, &s.contexts)
}

func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.contexts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal contexts: %w", err)
	}

	basePath := filepath.Dir(s.filePath)
	os.MkdirAll(basePath, 0755)

	return os.WriteFile(s.filePath, data, 0644)
}
