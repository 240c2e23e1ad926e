// Package ledger is the treasury state machine. Every operation is a pure
// function of (snapshot, invocation, request): it validates everything
// against a private copy of the snapshot before mutating that copy, and
// returns the new snapshot with the records it emitted. A rejected operation
// returns a *domain.Error and leaves the input untouched.
package ledger

import (
	"fmt"

	"diamond-token/internal/access"
	"diamond-token/internal/domain"
	"diamond-token/internal/idhash"
	"diamond-token/internal/pricing"
)

// PDA seeds.
const (
	SeedTokenState = "token_state"
	SeedVault      = "vault"
	SeedMultisig   = "multisig"
)

// DefaultProgramID is the deployed program the ledger addresses derive from.
var DefaultProgramID = domain.MustParsePubkey("97xUm7Kv6TiKyCkaLGgmTFu3skVte3wStYY4vYTXtpxL")

// PolicyFactory builds the authorization policy for a multisig config.
type PolicyFactory func(cfg domain.MultisigConfig) (access.Policy, error)

// DefaultPolicy is the fixed 3-of-5 multisig.
func DefaultPolicy(cfg domain.MultisigConfig) (access.Policy, error) {
	return access.NewMultisig(cfg)
}

// Engine runs ledger operations. It holds configuration only, never state.
type Engine struct {
	programID         domain.Pubkey
	pricing           *pricing.Engine
	policy            PolicyFactory
	requireCallerSigs bool
}

// Option configures Engine.
type Option func(*Engine)

// WithProgramID sets the program id addresses are derived from.
func WithProgramID(id domain.Pubkey) Option {
	return func(e *Engine) {
		e.programID = id
	}
}

// WithPricing sets the pricing engine used by Issue.
func WithPricing(p *pricing.Engine) Option {
	return func(e *Engine) {
		e.pricing = p
	}
}

// WithPolicy replaces the authorization policy.
func WithPolicy(f PolicyFactory) Option {
	return func(e *Engine) {
		e.policy = f
	}
}

// WithCallerSignatures requires every mutating invocation to carry the
// caller's own signature over the operation digest.
func WithCallerSignatures() Option {
	return func(e *Engine) {
		e.requireCallerSigs = true
	}
}

// RequiresCallerSignatures reports whether WithCallerSignatures is set.
func (e *Engine) RequiresCallerSignatures() bool {
	return e.requireCallerSigs
}

// NewEngine creates an engine. Without WithPricing only stable assets at
// the default prices are accepted.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		programID: DefaultProgramID,
		policy:    DefaultPolicy,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pricing == nil {
		e.pricing = pricing.NewEngine(pricing.DefaultConfig(), nil)
	}
	return e
}

// ProgramID returns the configured program id.
func (e *Engine) ProgramID() domain.Pubkey {
	return e.programID
}

// Pricing returns the configured pricing engine.
func (e *Engine) Pricing() *pricing.Engine {
	return e.pricing
}

// Invocation carries who is calling and when.
type Invocation struct {
	Caller          domain.Pubkey
	CallerSignature []byte
	Proofs          []access.Proof
	Now             int64 // unix seconds
}

// Result is the outcome of a successful operation.
type Result struct {
	Snapshot *domain.Snapshot
	Events   []domain.Event
}

// Mutated reports whether the operation produced a new snapshot version.
func (r *Result) Mutated(prev *domain.Snapshot) bool {
	if prev == nil {
		return r.Snapshot != nil
	}
	return r.Snapshot.Version != prev.Version
}

// Operation scopes op to this engine's program. Callers and owners sign its
// digest.
func (e *Engine) Operation(op access.Operation) access.Operation {
	return op.On(e.programID)
}

// verifyCaller enforces the caller signature when configured.
func (e *Engine) verifyCaller(inv Invocation, op access.Operation) error {
	if !e.requireCallerSigs {
		return nil
	}
	if !access.VerifySignature(inv.Caller, e.Operation(op).Digest(), inv.CallerSignature) {
		return domain.ErrNotAuthorized
	}
	return nil
}

// authorizePrivileged requires the authority or a policy quorum.
func (e *Engine) authorizePrivileged(snap *domain.Snapshot, inv Invocation, op access.Operation) error {
	policy, err := e.policy(snap.Multisig)
	if err != nil {
		return fmt.Errorf("build policy: %w", err)
	}
	gate := access.Gate{Authority: snap.State.Authority, Policy: policy}
	return gate.Check(inv.Caller, e.Operation(op), inv.Proofs)
}

// begin checks initialization and the caller signature for a mutating op.
func (e *Engine) begin(snap *domain.Snapshot, inv Invocation, op access.Operation) error {
	if snap == nil {
		return domain.ErrNotInitialized
	}
	return e.verifyCaller(inv, op)
}

// beginPrivileged is begin plus authority/quorum authorization.
func (e *Engine) beginPrivileged(snap *domain.Snapshot, inv Invocation, op access.Operation) error {
	if err := e.begin(snap, inv, op); err != nil {
		return err
	}
	return e.authorizePrivileged(snap, inv, op)
}

// newEvent builds a record stamped with a deterministic id.
func newEvent(kind domain.EventKind, version uint64, actor domain.Pubkey, now int64, payload any) (domain.Event, error) {
	ev := domain.Event{
		Kind:      kind,
		Version:   version,
		Actor:     actor,
		Timestamp: now,
		Payload:   payload,
	}
	data, err := domain.EncodePayload(&ev)
	if err != nil {
		return domain.Event{}, err
	}
	ev.EventID = idhash.ComputeEventID(kind, version, actor, now, data)
	return ev, nil
}

// commit bumps the clone's version and wraps it with its record.
func commit(prev, next *domain.Snapshot, inv Invocation, kind domain.EventKind, payload any) (*Result, error) {
	ev, err := newEvent(kind, prev.Version, inv.Caller, inv.Now, payload)
	if err != nil {
		return nil, err
	}
	next.Version = prev.Version + 1
	return &Result{Snapshot: next, Events: []domain.Event{ev}}, nil
}

// observe wraps an unchanged snapshot with a read-only record.
func observe(snap *domain.Snapshot, inv Invocation, kind domain.EventKind, payload any) (*Result, error) {
	ev, err := newEvent(kind, snap.Version, inv.Caller, inv.Now, payload)
	if err != nil {
		return nil, err
	}
	return &Result{Snapshot: snap, Events: []domain.Event{ev}}, nil
}
