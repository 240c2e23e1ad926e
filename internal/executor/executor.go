// Package executor hosts the ledger engine: it serializes operations,
// loads and commits snapshots through a StateStore, and publishes records.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"diamond-token/internal/domain"
	"diamond-token/internal/ledger"
	"diamond-token/internal/observability"
	"diamond-token/internal/storage"
)

// Executor runs ledger operations against stored state, one at a time.
type Executor struct {
	mu        sync.Mutex
	engine    *ledger.Engine
	state     storage.StateStore
	events    storage.EventStore
	analytics storage.EventStore
	metrics   *observability.Metrics
	logger    *log.Logger
	clock     func() time.Time
}

// Options contains configuration for creating an Executor.
type Options struct {
	Engine *ledger.Engine
	State  storage.StateStore
	// Events receives records of read-only operations. Records of mutating
	// operations are committed together with the snapshot by State.
	Events storage.EventStore
	// Analytics, if set, receives a copy of every record. Failures are logged.
	Analytics storage.EventStore
	Metrics   *observability.Metrics
	Logger    *log.Logger
	Clock     func() time.Time // Default: time.Now
}

// New creates an executor.
func New(opts Options) *Executor {
	engine := opts.Engine
	if engine == nil {
		engine = ledger.NewEngine()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Executor{
		engine:    engine,
		state:     opts.State,
		events:    opts.Events,
		analytics: opts.Analytics,
		metrics:   metrics,
		logger:    logger,
		clock:     clock,
	}
}

// Engine returns the hosted engine.
func (x *Executor) Engine() *ledger.Engine {
	return x.engine
}

// Snapshot returns the current committed snapshot.
// Returns domain.ErrNotInitialized before initialization.
func (x *Executor) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	snap, err := x.state.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// Events returns the record log, or nil if none is configured.
func (x *Executor) Events() storage.EventStore {
	return x.events
}

// operation is one engine call bound to its request.
type operation func(ctx context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error)

// run loads, applies op, and commits. It holds the lock for the whole cycle.
func (x *Executor) run(ctx context.Context, name string, inv ledger.Invocation, op operation) (*ledger.Result, error) {
	start := time.Now()

	x.mu.Lock()
	defer x.mu.Unlock()

	res, err := x.apply(ctx, inv, op)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		status := "error"
		if le, ok := domain.AsLedgerError(err); ok {
			status = "rejected"
			x.metrics.RecordOperationError(name, le.Name)
		}
		x.metrics.RecordOperation(name, status, elapsed)
		x.logger.Printf("%s by %s rejected: %v", name, inv.Caller, err)
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	x.metrics.RecordOperation(name, "ok", elapsed)
	for _, ev := range res.Events {
		x.metrics.RecordEvent(ev.Kind.String())
	}
	x.updateGauges(res.Snapshot)
	return res, nil
}

func (x *Executor) apply(ctx context.Context, inv ledger.Invocation, op operation) (*ledger.Result, error) {
	prev, err := x.state.Load(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	if inv.Now == 0 {
		inv.Now = x.clock().Unix()
	}

	res, err := op(ctx, prev, inv)
	if err != nil {
		return nil, err
	}

	events := make([]*domain.Event, len(res.Events))
	for i := range res.Events {
		events[i] = &res.Events[i]
	}

	if res.Mutated(prev) {
		var expected uint64
		if prev != nil {
			expected = prev.Version
		}
		if err := x.state.Commit(ctx, expected, res.Snapshot, events); err != nil {
			if errors.Is(err, storage.ErrVersionConflict) {
				x.metrics.VersionConflicts.Inc()
			}
			return nil, fmt.Errorf("commit version %d: %w", res.Snapshot.Version, err)
		}
	} else if x.events != nil {
		if err := x.events.Append(ctx, events); err != nil {
			// Same operation at the same second: the record already exists.
			if !errors.Is(err, storage.ErrDuplicateKey) {
				return nil, fmt.Errorf("append records: %w", err)
			}
		}
	}

	x.mirror(ctx, events)
	return res, nil
}

// mirror copies records to the analytics store.
func (x *Executor) mirror(ctx context.Context, events []*domain.Event) {
	if x.analytics == nil || len(events) == 0 {
		return
	}
	start := time.Now()
	err := x.analytics.Append(ctx, events)
	if errors.Is(err, storage.ErrDuplicateKey) {
		err = nil
	}
	x.metrics.RecordDBQuery("clickhouse", "append_events", time.Since(start).Seconds(), err)
	if err != nil {
		x.logger.Printf("mirror %d records to analytics: %v", len(events), err)
	}
}

func (x *Executor) updateGauges(snap *domain.Snapshot) {
	if snap == nil {
		return
	}
	x.metrics.UpdateLedgerState(observability.LedgerState{
		TotalSupply:   snap.State.TotalSupply,
		MaxSupply:     snap.State.MaxSupply,
		Paused:        snap.State.IsPaused,
		BlacklistSize: len(snap.Blacklist.Addresses),
		Version:       snap.Version,
		VaultReserve:  snap.Holdings.Balance(snap.State.Vault, x.engine.Pricing().Config().ReserveMint),
	})
}
