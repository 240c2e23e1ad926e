// Package attest verifies the reserve against balances read from chain.
//
// The ledger's own VerifyReserve checks the stored snapshot. An Attestor
// instead reads the mint's circulating supply and the vault's reserve-asset
// token accounts over Solana JSON-RPC, so the check covers what actually
// settled on chain.
package attest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"diamond-token/internal/domain"
	"diamond-token/internal/idhash"
	"diamond-token/internal/observability"
	"diamond-token/internal/reserve"
	"diamond-token/internal/solana"
)

// Target names the accounts an attestation reads.
type Target struct {
	Mint        domain.Pubkey // managed token mint
	Vault       domain.Pubkey // owner of the reserve token accounts
	ReserveMint domain.Pubkey // stable asset backing supply
}

// Report is the outcome of one attestation, covered or not.
type Report struct {
	ID              string        `json:"id"`
	Slot            int64         `json:"slot"`
	Mint            domain.Pubkey `json:"mint"`
	Vault           domain.Pubkey `json:"vault"`
	ReserveMint     domain.Pubkey `json:"reserve_mint"`
	TotalSupply     uint64        `json:"total_supply"`
	ExpectedReserve uint64        `json:"expected_reserve"`
	ActualReserve   uint64        `json:"actual_reserve"`
	Covered         bool          `json:"covered"`
	Timestamp       int64         `json:"timestamp"`
}

// Attestor reads chain balances and runs the reserve check.
type Attestor struct {
	rpc     solana.RPCClient
	metrics *observability.Metrics
	logger  *log.Logger
	now     func() time.Time
}

// Options contains configuration for creating an Attestor.
type Options struct {
	Metrics *observability.Metrics // optional
	Logger  *log.Logger
	Clock   func() time.Time // Default: time.Now
}

// New creates an Attestor over rpc.
func New(rpc solana.RPCClient, opts Options) *Attestor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Attestor{rpc: rpc, metrics: opts.Metrics, logger: logger, now: clock}
}

// Attest reads t's supply and reserve and verifies coverage. When the reserve
// falls short it returns the filled report together with
// domain.ErrInsufficientReserve.
func (a *Attestor) Attest(ctx context.Context, t Target) (*Report, error) {
	supply, err := a.supply(ctx, t.Mint)
	if err != nil {
		return nil, err
	}
	if supply.Decimals != domain.TokenDecimals {
		return nil, fmt.Errorf("mint %s has %d decimals, want %d", t.Mint, supply.Decimals, domain.TokenDecimals)
	}

	actual, err := a.reserveBalance(ctx, t.Vault, t.ReserveMint)
	if err != nil {
		return nil, err
	}

	expected, err := reserve.ExpectedReserve(supply.Amount)
	if err != nil {
		return nil, err
	}

	now := a.now().Unix()
	report := &Report{
		ID:              idhash.ComputeAttestationID(t.Vault, supply.Amount, actual, now),
		Slot:            supply.Slot,
		Mint:            t.Mint,
		Vault:           t.Vault,
		ReserveMint:     t.ReserveMint,
		TotalSupply:     supply.Amount,
		ExpectedReserve: expected,
		ActualReserve:   actual,
		Timestamp:       now,
	}

	if _, err := reserve.Verify(supply.Amount, actual, now); err != nil {
		if errors.Is(err, domain.ErrInsufficientReserve) {
			a.logger.Printf("reserve short at slot %d: have %d, need %d", report.Slot, actual, expected)
			return report, err
		}
		return nil, err
	}

	report.Covered = true
	if a.metrics != nil {
		a.metrics.RecordAttestation(now)
	}
	return report, nil
}

// Record converts a covered report into a ledger record versioned by slot.
func (r *Report) Record() (*domain.Event, error) {
	if !r.Covered {
		return nil, domain.ErrInsufficientReserve
	}
	ev := &domain.Event{
		Kind:      domain.EventReserveAttested,
		Version:   uint64(r.Slot),
		Actor:     r.Vault,
		Timestamp: r.Timestamp,
		Payload: &domain.ReserveAttestedPayload{
			TotalSupply:     r.TotalSupply,
			ExpectedReserve: r.ExpectedReserve,
			ActualReserve:   r.ActualReserve,
			Timestamp:       r.Timestamp,
		},
	}
	data, err := domain.EncodePayload(ev)
	if err != nil {
		return nil, err
	}
	ev.EventID = idhash.ComputeEventID(ev.Kind, ev.Version, ev.Actor, ev.Timestamp, data)
	return ev, nil
}

func (a *Attestor) supply(ctx context.Context, mint domain.Pubkey) (*solana.TokenAmount, error) {
	start := time.Now()
	supply, err := a.rpc.GetTokenSupply(ctx, mint.String())
	a.observe("getTokenSupply", start)
	if err != nil {
		return nil, fmt.Errorf("get token supply of %s: %w", mint, err)
	}
	return supply, nil
}

func (a *Attestor) reserveBalance(ctx context.Context, vault, mint domain.Pubkey) (uint64, error) {
	start := time.Now()
	balance, err := solana.OwnerBalance(ctx, a.rpc, vault.String(), mint.String())
	a.observe("getTokenAccountsByOwner", start)
	return balance, err
}

func (a *Attestor) observe(method string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordRPCLatency(method, time.Since(start).Seconds())
	}
}
