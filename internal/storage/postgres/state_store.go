package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"diamond-token/internal/domain"
	"diamond-token/internal/storage"
)

// StateStore implements storage.StateStore using PostgreSQL.
// The snapshot is spread over token_state, multisig_owners, blacklist_entries
// and holdings; Commit rewrites all of them and appends to ledger_events in
// one transaction.
type StateStore struct {
	pool *Pool
}

// NewStateStore creates a new StateStore.
func NewStateStore(pool *Pool) *StateStore {
	return &StateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StateStore = (*StateStore)(nil)

// Load returns the current snapshot. Returns ErrNotFound before the first commit.
func (s *StateStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	snap, err := loadState(ctx, tx)
	if err != nil {
		return nil, err
	}

	if snap.Multisig.Owners, err = loadPubkeys(ctx, tx,
		`SELECT owner FROM multisig_owners ORDER BY position ASC`); err != nil {
		return nil, fmt.Errorf("load multisig owners: %w", err)
	}
	if snap.Blacklist.Addresses, err = loadPubkeys(ctx, tx,
		`SELECT address FROM blacklist_entries ORDER BY position ASC`); err != nil {
		return nil, fmt.Errorf("load blacklist: %w", err)
	}
	if snap.Holdings, err = loadHoldings(ctx, tx); err != nil {
		return nil, fmt.Errorf("load holdings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return snap, nil
}

// Commit replaces the stored snapshot with next if the stored version equals
// expectedVersion, and appends events. Returns ErrVersionConflict otherwise,
// ErrDuplicateKey if an event_id already exists.
func (s *StateStore) Commit(ctx context.Context, expectedVersion uint64, next *domain.Snapshot, events []*domain.Event) error {
	if next == nil {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var current int64
	err = tx.QueryRow(ctx, `SELECT version FROM token_state WHERE id = 1 FOR UPDATE`).Scan(&current)
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("lock token state: %w", err)
	}
	if uint64(current) != expectedVersion {
		return storage.ErrVersionConflict
	}

	if err := writeState(ctx, tx, expectedVersion, next); err != nil {
		return err
	}
	if err := insertEvents(ctx, tx, events); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func loadState(ctx context.Context, tx pgx.Tx) (*domain.Snapshot, error) {
	query := `
		SELECT authority, mint, total_supply::text, max_supply::text, is_paused,
			last_pause_timestamp, multisig, vault, bump, multisig_threshold, version
		FROM token_state
		WHERE id = 1
	`

	var (
		authority, mint, multisig, vault string
		totalSupply, maxSupply           string
		bump                             int16
		threshold, version               int64
		snap                             domain.Snapshot
	)
	err := tx.QueryRow(ctx, query).Scan(
		&authority, &mint, &totalSupply, &maxSupply, &snap.State.IsPaused,
		&snap.State.LastPauseTimestamp, &multisig, &vault, &bump, &threshold, &version,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("load token state: %w", err)
	}

	for _, f := range []struct {
		dst *domain.Pubkey
		src string
	}{
		{&snap.State.Authority, authority},
		{&snap.State.Mint, mint},
		{&snap.State.Multisig, multisig},
		{&snap.State.Vault, vault},
	} {
		if *f.dst, err = domain.ParsePubkey(f.src); err != nil {
			return nil, fmt.Errorf("load token state: %w", err)
		}
	}
	if snap.State.TotalSupply, err = strconv.ParseUint(totalSupply, 10, 64); err != nil {
		return nil, fmt.Errorf("parse total_supply: %w", err)
	}
	if snap.State.MaxSupply, err = strconv.ParseUint(maxSupply, 10, 64); err != nil {
		return nil, fmt.Errorf("parse max_supply: %w", err)
	}
	snap.State.Bump = uint8(bump)
	snap.Multisig.Threshold = uint64(threshold)
	snap.Version = uint64(version)

	return &snap, nil
}

func loadPubkeys(ctx context.Context, tx pgx.Tx, query string) ([]domain.Pubkey, error) {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Pubkey
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		pk, err := domain.ParsePubkey(s)
		if err != nil {
			return nil, err
		}
		out = append(out, pk)
	}
	return out, rows.Err()
}

func loadHoldings(ctx context.Context, tx pgx.Tx) (domain.Holdings, error) {
	rows, err := tx.Query(ctx, `SELECT owner, mint, amount::text FROM holdings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	h := domain.Holdings{}
	for rows.Next() {
		var owner, mint, amount string
		if err := rows.Scan(&owner, &mint, &amount); err != nil {
			return nil, err
		}
		o, err := domain.ParsePubkey(owner)
		if err != nil {
			return nil, err
		}
		m, err := domain.ParsePubkey(mint)
		if err != nil {
			return nil, err
		}
		amt, err := strconv.ParseUint(amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		h.Set(o, m, amt)
	}
	return h, rows.Err()
}

// writeState rewrites every snapshot table. Amounts travel as text so the
// full uint64 range fits NUMERIC(20,0). The upsert only matches a row still
// at expectedVersion, which also catches two racing first commits.
func writeState(ctx context.Context, tx pgx.Tx, expectedVersion uint64, snap *domain.Snapshot) error {
	st := snap.State
	tag, err := tx.Exec(ctx, `
		INSERT INTO token_state (
			id, authority, mint, total_supply, max_supply, is_paused, last_pause_timestamp,
			multisig, vault, bump, multisig_threshold, version, updated_at
		) VALUES (1, $1, $2, $3::text::numeric, $4::text::numeric, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (id) DO UPDATE SET
			authority = EXCLUDED.authority,
			mint = EXCLUDED.mint,
			total_supply = EXCLUDED.total_supply,
			max_supply = EXCLUDED.max_supply,
			is_paused = EXCLUDED.is_paused,
			last_pause_timestamp = EXCLUDED.last_pause_timestamp,
			multisig = EXCLUDED.multisig,
			vault = EXCLUDED.vault,
			bump = EXCLUDED.bump,
			multisig_threshold = EXCLUDED.multisig_threshold,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
		WHERE token_state.version = $12
	`,
		st.Authority.String(),
		st.Mint.String(),
		strconv.FormatUint(st.TotalSupply, 10),
		strconv.FormatUint(st.MaxSupply, 10),
		st.IsPaused,
		st.LastPauseTimestamp,
		st.Multisig.String(),
		st.Vault.String(),
		int16(st.Bump),
		int64(snap.Multisig.Threshold),
		int64(snap.Version),
		int64(expectedVersion),
	)
	if err != nil {
		return fmt.Errorf("upsert token state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrVersionConflict
	}

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM multisig_owners`)
	batch.Queue(`DELETE FROM blacklist_entries`)
	batch.Queue(`DELETE FROM holdings`)
	for i, owner := range snap.Multisig.Owners {
		batch.Queue(`INSERT INTO multisig_owners (position, owner) VALUES ($1, $2)`, int16(i), owner.String())
	}
	for i, addr := range snap.Blacklist.Addresses {
		batch.Queue(`INSERT INTO blacklist_entries (position, address) VALUES ($1, $2)`, int32(i), addr.String())
	}
	for _, h := range snap.Holdings.Entries() {
		batch.Queue(`INSERT INTO holdings (owner, mint, amount) VALUES ($1, $2, $3::text::numeric)`,
			h.Owner.String(), h.Mint.String(), strconv.FormatUint(h.Amount, 10))
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write snapshot rows: %w", err)
	}
	return nil
}
