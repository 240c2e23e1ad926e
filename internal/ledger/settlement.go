package ledger

import (
	"diamond-token/internal/blacklist"
	"diamond-token/internal/domain"
	"diamond-token/internal/pause"
	"diamond-token/internal/reserve"
)

// MinPurchase is the smallest token amount accepted by Purchase.
const MinPurchase uint64 = 1_000_000

// Purchase spends amount of the caller's tokens into the vault.
func (e *Engine) Purchase(snap *domain.Snapshot, inv Invocation, req PurchaseRequest) (*Result, error) {
	if err := e.begin(snap, inv, req.Operation(versionOf(snap))); err != nil {
		return nil, err
	}
	if err := pause.RequireActive(snap.State); err != nil {
		return nil, err
	}
	if req.Amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if blacklist.Contains(snap.Blacklist, inv.Caller) {
		return nil, domain.ErrAddressBlacklisted
	}
	if req.Amount < MinPurchase {
		return nil, domain.ErrPurchaseTooSmall
	}

	st := snap.State
	mv, err := planMove(snap.Holdings, snap.Blacklist, st.Mint, inv.Caller, st.Vault, req.Amount)
	if err != nil {
		return nil, err
	}

	next := snap.Clone()
	mv.apply(next.Holdings)
	return commit(snap, next, inv, domain.EventPurchased, &domain.PurchasedPayload{
		Amount:       req.Amount,
		VaultBalance: next.Holdings.Balance(st.Vault, st.Mint),
	})
}

// Transfer moves amount tokens from the caller to req.To through the
// transfer gate.
func (e *Engine) Transfer(snap *domain.Snapshot, inv Invocation, req TransferRequest) (*Result, error) {
	if err := e.begin(snap, inv, req.Operation(versionOf(snap))); err != nil {
		return nil, err
	}
	if err := pause.RequireActive(snap.State); err != nil {
		return nil, err
	}
	if req.Amount == 0 {
		return nil, domain.ErrInvalidAmount
	}

	mv, err := planMove(snap.Holdings, snap.Blacklist, snap.State.Mint, inv.Caller, req.To, req.Amount)
	if err != nil {
		return nil, err
	}

	next := snap.Clone()
	mv.apply(next.Holdings)
	return commit(snap, next, inv, domain.EventTransferChecked, &domain.TransferCheckedPayload{
		Source:      inv.Caller,
		Destination: req.To,
		Amount:      req.Amount,
	})
}

// Deposit records payment assets arriving in req.Owner's custody from
// outside the ledger. Privileged: the settlement operator vouches for the
// external movement. The managed token itself can only enter through Issue.
func (e *Engine) Deposit(snap *domain.Snapshot, inv Invocation, req DepositRequest) (*Result, error) {
	if err := e.beginPrivileged(snap, inv, req.Operation(versionOf(snap))); err != nil {
		return nil, err
	}
	if req.Amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.Mint.IsZero() || req.Mint == snap.State.Mint {
		return nil, domain.ErrInvalidTokenAccount
	}
	if blacklist.Contains(snap.Blacklist, req.Owner) {
		return nil, domain.ErrAddressBlacklisted
	}
	balance, err := checkedAdd(snap.Holdings.Balance(req.Owner, req.Mint), req.Amount)
	if err != nil {
		return nil, err
	}

	next := snap.Clone()
	next.Holdings.Set(req.Owner, req.Mint, balance)
	return commit(snap, next, inv, domain.EventDeposited, &domain.DepositedPayload{
		Owner:   req.Owner,
		Mint:    req.Mint,
		Amount:  req.Amount,
		Balance: balance,
	})
}

// CheckTransfer runs the transfer gate for a movement performed elsewhere.
// Read-only: the returned snapshot is snap itself.
func (e *Engine) CheckTransfer(snap *domain.Snapshot, inv Invocation, req CheckTransferRequest) (*Result, error) {
	if snap == nil {
		return nil, domain.ErrNotInitialized
	}
	if err := checkGate(snap.Blacklist, req.Source, req.Destination); err != nil {
		return nil, err
	}
	return observe(snap, inv, domain.EventTransferChecked, &domain.TransferCheckedPayload{
		Source:      req.Source,
		Destination: req.Destination,
		Amount:      req.Amount,
	})
}

// VerifyReserve attests that the vault's reserve asset covers total supply.
// Read-only and open to any caller.
func (e *Engine) VerifyReserve(snap *domain.Snapshot, inv Invocation) (*Result, error) {
	if snap == nil {
		return nil, domain.ErrNotInitialized
	}
	st := snap.State
	actual := snap.Holdings.Balance(st.Vault, e.pricing.Config().ReserveMint)
	att, err := reserve.Verify(st.TotalSupply, actual, inv.Now)
	if err != nil {
		return nil, err
	}
	return observe(snap, inv, domain.EventReserveAttested, att.Payload())
}
