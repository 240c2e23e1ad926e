package memory

import (
	"context"
	"sort"
	"sync"

	"diamond-token/internal/domain"
	"diamond-token/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Event // keyed by event_id
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[string]*domain.Event),
	}
}

// Append adds events atomically. Fails entire batch on any duplicate.
func (s *EventStore) Append(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.EventID] = struct{}{}
	}

	for _, e := range events {
		copy := *e
		s.data[e.EventID] = &copy
	}
	return nil
}

// GetByKind retrieves all events of kind, ordered by (version, timestamp) ASC.
func (s *EventStore) GetByKind(_ context.Context, kind domain.EventKind) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool { return e.Kind == kind }), nil
}

// GetByTimeRange retrieves events within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool {
		return e.Timestamp >= start && e.Timestamp <= end
	}), nil
}

// Len returns the number of stored events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *EventStore) filter(keep func(*domain.Event) bool) []*domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if keep(e) {
			copy := *e
			result = append(result, &copy)
		}
	}

	sortEvents(result)
	return result
}

// sortEvents orders by version, then timestamp, then event_id.
func sortEvents(events []*domain.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Version != events[j].Version {
			return events[i].Version < events[j].Version
		}
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp < events[j].Timestamp
		}
		return events[i].EventID < events[j].EventID
	})
}

var _ storage.EventStore = (*EventStore)(nil)
