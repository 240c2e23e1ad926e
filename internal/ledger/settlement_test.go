package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diamond-token/internal/domain"
	"diamond-token/internal/pricing"
)

var recipient = domain.Pubkey{0xD0}

// withTokens returns a ledger where buyer holds tokens bought with asset A.
func withTokens(t *testing.T, e *Engine, amount uint64) *domain.Snapshot {
	t.Helper()
	mint, dec := stableA()
	snap := setup(t, e, 0, 100*tokenUnit)
	snap = fund(snap, buyer, mint, amount*1_000_000)
	return mustApply(t)(e.Issue(context.Background(), snap, as(buyer, now), IssueRequest{Amount: amount, PaymentMint: mint, PaymentDecimals: dec}))
}

func TestPurchase(t *testing.T) {
	e := NewEngine()
	snap := withTokens(t, e, 5_000_000)

	res, err := e.Purchase(snap, as(buyer, now), PurchaseRequest{Amount: 2_000_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000_000), res.Snapshot.Holdings.Balance(buyer, testMint))
	assert.Equal(t, uint64(2_000_000), res.Snapshot.Holdings.Balance(snap.State.Vault, testMint))
	assert.Equal(t, snap.State.TotalSupply, res.Snapshot.State.TotalSupply)

	payload := res.Events[0].Payload.(*domain.PurchasedPayload)
	assert.Equal(t, uint64(2_000_000), payload.VaultBalance)
}

func TestPurchase_Rejections(t *testing.T) {
	e := NewEngine()
	snap := withTokens(t, e, 5_000_000)
	paused := mustApply(t)(e.Pause(snap, as(authority, now)))
	blacklisted := mustApply(t)(e.AddToBlacklist(snap, as(authority, now), BlacklistRequest{Address: buyer}))

	tests := []struct {
		name    string
		snap    *domain.Snapshot
		amount  uint64
		wantErr error
	}{
		{"paused", paused, 2_000_000, domain.ErrOperationsPaused},
		{"zero", snap, 0, domain.ErrInvalidAmount},
		{"blacklisted", blacklisted, 2_000_000, domain.ErrAddressBlacklisted},
		{"below minimum", snap, 999_999, domain.ErrPurchaseTooSmall},
		{"insufficient", snap, 5_000_001, domain.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.snap.Clone()
			_, err := e.Purchase(tt.snap, as(buyer, now), PurchaseRequest{Amount: tt.amount})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, tt.snap)
		})
	}
}

func TestTransfer(t *testing.T) {
	e := NewEngine()
	snap := withTokens(t, e, 50)

	res, err := e.Transfer(snap, as(buyer, now), TransferRequest{To: recipient, Amount: 20})
	require.NoError(t, err)
	assert.Equal(t, uint64(30), res.Snapshot.Holdings.Balance(buyer, testMint))
	assert.Equal(t, uint64(20), res.Snapshot.Holdings.Balance(recipient, testMint))
	assert.Equal(t, domain.EventTransferChecked, res.Events[0].Kind)

	_, err = e.Transfer(snap, as(buyer, now), TransferRequest{To: recipient, Amount: 51})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = e.Transfer(snap, as(buyer, now), TransferRequest{To: recipient, Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestTransfer_Gate(t *testing.T) {
	e := NewEngine()
	snap := withTokens(t, e, 50)

	dstBlocked := mustApply(t)(e.AddToBlacklist(snap, as(authority, now), BlacklistRequest{Address: recipient}))
	_, err := e.Transfer(dstBlocked, as(buyer, now), TransferRequest{To: recipient, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrDestinationAddressBlacklisted)

	srcBlocked := mustApply(t)(e.AddToBlacklist(snap, as(authority, now), BlacklistRequest{Address: buyer}))
	_, err = e.Transfer(srcBlocked, as(buyer, now), TransferRequest{To: recipient, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrSourceAddressBlacklisted)

	paused := mustApply(t)(e.Pause(snap, as(authority, now)))
	_, err = e.Transfer(paused, as(buyer, now), TransferRequest{To: recipient, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrOperationsPaused)
}

func TestCheckTransfer(t *testing.T) {
	e := NewEngine()
	snap := setup(t, e, 100, 1_000)
	snap = mustApply(t)(e.AddToBlacklist(snap, as(authority, now), BlacklistRequest{Address: stranger}))

	res, err := e.CheckTransfer(snap, as(buyer, now), CheckTransferRequest{Source: buyer, Destination: recipient, Amount: 7})
	require.NoError(t, err)
	assert.Same(t, snap, res.Snapshot)
	assert.False(t, res.Mutated(snap))
	require.Len(t, res.Events, 1)
	payload := res.Events[0].Payload.(*domain.TransferCheckedPayload)
	assert.Equal(t, uint64(7), payload.Amount)
	assert.Equal(t, snap.Version, res.Events[0].Version)

	_, err = e.CheckTransfer(snap, as(buyer, now), CheckTransferRequest{Source: stranger, Destination: recipient})
	assert.ErrorIs(t, err, domain.ErrSourceAddressBlacklisted)

	_, err = e.CheckTransfer(snap, as(buyer, now), CheckTransferRequest{Source: buyer, Destination: stranger})
	assert.ErrorIs(t, err, domain.ErrDestinationAddressBlacklisted)
}

func TestVerifyReserve(t *testing.T) {
	e := NewEngine()
	snap := setup(t, e, 5, 100)
	vault := snap.State.Vault

	_, err := e.VerifyReserve(fund(snap, vault, pricing.MintUSDT, 4_999_999), as(stranger, now))
	assert.ErrorIs(t, err, domain.ErrInsufficientReserve)

	// asset B does not count toward the reserve
	_, err = e.VerifyReserve(fund(snap, vault, pricing.MintUSDC, 10_000_000), as(stranger, now))
	assert.ErrorIs(t, err, domain.ErrInsufficientReserve)

	covered := fund(snap, vault, pricing.MintUSDT, 5_000_000)
	res, err := e.VerifyReserve(covered, as(stranger, now))
	require.NoError(t, err)
	assert.Same(t, covered, res.Snapshot)

	payload := res.Events[0].Payload.(*domain.ReserveAttestedPayload)
	assert.Equal(t, uint64(5), payload.TotalSupply)
	assert.Equal(t, uint64(5_000_000), payload.ExpectedReserve)
	assert.Equal(t, uint64(5_000_000), payload.ActualReserve)
	assert.Equal(t, now, payload.Timestamp)
}

func TestVerifyReserve_IssuanceKeepsReserveCovered(t *testing.T) {
	e := NewEngine()
	snap := withTokens(t, e, 42)

	res, err := e.VerifyReserve(snap, as(stranger, now))
	require.NoError(t, err)
	payload := res.Events[0].Payload.(*domain.ReserveAttestedPayload)
	assert.Equal(t, uint64(42_000_000), payload.ActualReserve)
}

func TestDeposit(t *testing.T) {
	e := NewEngine()
	snap := setup(t, e, 0, 100*tokenUnit)
	mint, _ := stableA()

	res, err := e.Deposit(snap, as(authority, now), DepositRequest{Owner: buyer, Mint: mint, Amount: 5_000_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), res.Snapshot.Holdings.Balance(buyer, mint))
	assert.Equal(t, snap.Version+1, res.Snapshot.Version)
	assert.Equal(t, uint64(0), snap.Holdings.Balance(buyer, mint))

	require.Len(t, res.Events, 1)
	assert.Equal(t, domain.EventDeposited, res.Events[0].Kind)
	payload := res.Events[0].Payload.(*domain.DepositedPayload)
	assert.Equal(t, uint64(5_000_000), payload.Balance)

	// deposited assets pay for issuance
	issued := mustApply(t)(e.Issue(context.Background(), res.Snapshot, as(buyer, now),
		IssueRequest{Amount: 5, PaymentMint: mint, PaymentDecimals: domain.StableDecimals}))
	assert.Equal(t, uint64(5), issued.Holdings.Balance(buyer, testMint))
	assert.Equal(t, uint64(0), issued.Holdings.Balance(buyer, mint))
}

func TestDeposit_Rejections(t *testing.T) {
	e := NewEngine()
	snap := setup(t, e, 0, 100*tokenUnit)
	mint, _ := stableA()

	blocked := mustApply(t)(e.AddToBlacklist(snap, as(authority, now), BlacklistRequest{Address: stranger}))

	tests := []struct {
		name string
		snap *domain.Snapshot
		inv  Invocation
		req  DepositRequest
		want error
	}{
		{"unprivileged", snap, as(stranger, now), DepositRequest{Owner: buyer, Mint: mint, Amount: 1}, domain.ErrNotAuthorized},
		{"zero amount", snap, as(authority, now), DepositRequest{Owner: buyer, Mint: mint}, domain.ErrInvalidAmount},
		{"managed token", snap, as(authority, now), DepositRequest{Owner: buyer, Mint: testMint, Amount: 1}, domain.ErrInvalidTokenAccount},
		{"blacklisted owner", blocked, as(authority, now), DepositRequest{Owner: stranger, Mint: mint, Amount: 1}, domain.ErrAddressBlacklisted},
		{"overflow", fund(snap, buyer, mint, ^uint64(0)), as(authority, now), DepositRequest{Owner: buyer, Mint: mint, Amount: 1}, domain.ErrMathOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Deposit(tt.snap, tt.inv, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
