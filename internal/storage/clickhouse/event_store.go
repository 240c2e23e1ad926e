package clickhouse

import (
	"context"
	"fmt"

	"diamond-token/internal/domain"
	"diamond-token/internal/storage"
)

// EventStore implements storage.EventStore using ClickHouse.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Append adds events in one batch. Fails entire batch on duplicate event_id.
func (s *EventStore) Append(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.EventID] = struct{}{}
	}

	// MergeTree does not enforce uniqueness, so check existing rows first
	for _, e := range events {
		exists, err := s.exists(ctx, e.EventID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ledger_events (
			event_id, kind, version, actor, timestamp, payload
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		payload, err := domain.EncodePayload(e)
		if err != nil {
			return err
		}
		err = batch.Append(
			e.EventID, string(e.Kind), e.Version,
			e.Actor.String(), e.Timestamp, string(payload),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByKind retrieves all events of kind, ordered by version ASC.
func (s *EventStore) GetByKind(ctx context.Context, kind domain.EventKind) ([]*domain.Event, error) {
	query := `
		SELECT event_id, kind, version, actor, timestamp, payload
		FROM ledger_events FINAL
		WHERE kind = ?
		ORDER BY version ASC, timestamp ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query by kind: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByTimeRange retrieves events within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Event, error) {
	query := `
		SELECT event_id, kind, version, actor, timestamp, payload
		FROM ledger_events FINAL
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY version ASC, timestamp ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// exists checks if an event with the given id exists.
func (s *EventStore) exists(ctx context.Context, eventID string) (bool, error) {
	query := `SELECT count(*) FROM ledger_events WHERE event_id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, eventID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanEvents scans multiple rows and decodes payloads by kind.
func scanEvents(rows chRows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var (
			e           domain.Event
			kind, actor string
			payload     string
		)
		if err := rows.Scan(&e.EventID, &kind, &e.Version, &actor, &e.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("scan ledger event row: %w", err)
		}

		e.Kind = domain.EventKind(kind)

		var err error
		if e.Actor, err = domain.ParsePubkey(actor); err != nil {
			return nil, fmt.Errorf("scan ledger event row: %w", err)
		}
		if e.Payload, err = domain.DecodePayload(e.Kind, []byte(payload)); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger event rows: %w", err)
	}

	return events, nil
}
