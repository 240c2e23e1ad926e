package memory

import (
	"context"
	"sync"

	"diamond-token/internal/domain"
	"diamond-token/internal/storage"
)

// StateStore is an in-memory implementation of storage.StateStore.
type StateStore struct {
	mu     sync.RWMutex
	snap   *domain.Snapshot
	events *EventStore // optional outbox, written under the same lock
}

// NewStateStore creates an empty state store. If events is non-nil, committed
// events are appended to it as part of Commit.
func NewStateStore(events *EventStore) *StateStore {
	return &StateStore{events: events}
}

// Load returns a copy of the current snapshot. Returns ErrNotFound if empty.
func (s *StateStore) Load(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return nil, storage.ErrNotFound
	}
	return s.snap.Clone(), nil
}

// Commit swaps in next if the stored version equals expectedVersion.
func (s *StateStore) Commit(_ context.Context, expectedVersion uint64, next *domain.Snapshot, events []*domain.Event) error {
	if next == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current uint64
	if s.snap != nil {
		current = s.snap.Version
	}
	if current != expectedVersion {
		return storage.ErrVersionConflict
	}

	if s.events != nil && len(events) > 0 {
		if err := s.events.Append(context.Background(), events); err != nil {
			return err
		}
	}

	s.snap = next.Clone()
	return nil
}

var _ storage.StateStore = (*StateStore)(nil)
