package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"diamond-token/internal/domain"
	"diamond-token/internal/storage"
)

// EventStore implements storage.EventStore over the ledger_events table.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Append adds events atomically. Fails entire batch on any duplicate event_id.
func (s *EventStore) Append(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertEvents(ctx, tx, events); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByKind retrieves all events of kind, ordered by version ASC.
func (s *EventStore) GetByKind(ctx context.Context, kind domain.EventKind) ([]*domain.Event, error) {
	query := `
		SELECT event_id, kind, version, actor, timestamp, payload
		FROM ledger_events
		WHERE kind = $1
		ORDER BY version ASC, timestamp ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("get events by kind: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByTimeRange retrieves events with timestamp within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Event, error) {
	query := `
		SELECT event_id, kind, version, actor, timestamp, payload
		FROM ledger_events
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY version ASC, timestamp ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get events by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// execer is satisfied by pgx.Tx and *pgxpool.Pool.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// insertEvents writes events with the caller's transaction.
func insertEvents(ctx context.Context, db execer, events []*domain.Event) error {
	query := `
		INSERT INTO ledger_events (event_id, kind, version, actor, timestamp, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		payload, err := domain.EncodePayload(e)
		if err != nil {
			return err
		}

		_, err = db.Exec(ctx, query,
			e.EventID,
			string(e.Kind),
			int64(e.Version),
			e.Actor.String(),
			e.Timestamp,
			payload,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return nil
}

// scanEvents scans multiple rows and decodes payloads by kind.
func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var (
			e       domain.Event
			kind    string
			version int64
			actor   string
			payload []byte
		)
		if err := rows.Scan(&e.EventID, &kind, &version, &actor, &e.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.Kind = domain.EventKind(kind)
		e.Version = uint64(version)

		var err error
		if e.Actor, err = domain.ParsePubkey(actor); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		if e.Payload, err = domain.DecodePayload(e.Kind, payload); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
