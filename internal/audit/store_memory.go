package audit

import (
	"context"
	"sync"
)

const defaultMemoryCapacity = 1000

// MemoryStore keeps the most recent events in a ring; older events are
// dropped once capacity is reached.
type MemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	head     int
	count    int
	capacity int
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryStore{
		events:   make([]Event, capacity),
		capacity: capacity,
	}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[s.head] = event
	s.head = (s.head + 1) % s.capacity
	if s.count < s.capacity {
		s.count++
	}
	return nil
}

// ListRecent returns up to limit events, newest first.
func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > s.count {
		limit = s.count
	}
	result := make([]Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.head - i + s.capacity) % s.capacity
		result = append(result, s.events[idx])
	}
	return result, nil
}
