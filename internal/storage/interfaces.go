package storage

import (
	"context"

	"diamond-token/internal/domain"
)

// StateStore persists the ledger snapshot.
type StateStore interface {
	// Load returns the current snapshot. Returns ErrNotFound before initialization.
	Load(ctx context.Context) (*domain.Snapshot, error)

	// Commit replaces the stored snapshot with next and appends events, atomically.
	// expectedVersion is the version the caller loaded (0 when nothing is stored).
	// Returns ErrVersionConflict if the stored version differs.
	Commit(ctx context.Context, expectedVersion uint64, next *domain.Snapshot, events []*domain.Event) error
}

// EventStore provides access to the append-only record log.
type EventStore interface {
	// Append adds events atomically. Fails entire batch on any duplicate event_id.
	Append(ctx context.Context, events []*domain.Event) error

	// GetByKind retrieves all events of a kind, ordered by (version, timestamp) ASC.
	GetByKind(ctx context.Context, kind domain.EventKind) ([]*domain.Event, error)

	// GetByTimeRange retrieves events with timestamp within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Event, error)
}
