package blob

import (
	"context"
	"fmt"
	"sync"

	"historymaker/internal/model"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in memory. Used in tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		baseURL: "memory://assets",
	}
}

func (s *MemoryStore) Put(_ context.Context, objectPath string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[objectPath] = memoryObject{data: stored, contentType: contentType}
	return fmt.Sprintf("%s/%s", s.baseURL, objectPath), nil
}

func (s *MemoryStore) Get(_ context.Context, objectPath string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[objectPath]
	if !ok {
		return nil, "", fmt.Errorf("%w: object %s", model.ErrNotFound, objectPath)
	}
	return obj.data, obj.contentType, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
