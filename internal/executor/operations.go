package executor

import (
	"context"

	"diamond-token/internal/domain"
	"diamond-token/internal/ledger"
	"diamond-token/internal/pricing"
)

// Initialize creates the ledger.
func (x *Executor) Initialize(ctx context.Context, inv ledger.Invocation, req ledger.InitializeRequest) (*ledger.Result, error) {
	return x.run(ctx, ledger.OpInitialize, inv, func(_ context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error) {
		return x.engine.Initialize(snap, inv, req)
	})
}

// Issue mints tokens to the caller against payment. A native price quote is
// fetched before the executor lock is taken.
func (x *Executor) Issue(ctx context.Context, inv ledger.Invocation, req ledger.IssueRequest) (*ledger.Result, error) {
	ctx = x.engine.Pricing().Prefetch(ctx, pricing.Asset{Mint: req.PaymentMint, Decimals: req.PaymentDecimals})
	return x.run(ctx, ledger.OpIssue, inv, func(ctx context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error) {
		return x.engine.Issue(ctx, snap, inv, req)
	})
}

// Burn destroys vault-held supply.
func (x *Executor) Burn(ctx context.Context, inv ledger.Invocation, req ledger.BurnRequest) (*ledger.Result, error) {
	return x.run(ctx, ledger.OpBurn, inv, func(_ context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error) {
		return x.engine.Burn(snap, inv, req)
	})
}

// UpdateMaxSupply lowers the supply cap.
func (x *Executor) UpdateMaxSupply(ctx context.Context, inv ledger.Invocation, req ledger.UpdateMaxSupplyRequest) (*ledger.Result, error) {
	return x.run(ctx, ledger.OpUpdateMaxSupply, inv, func(_ context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error) {
		return x.engine.UpdateMaxSupply(snap, inv, req)
	})
}

// Pause halts value movement.
func (x *Executor) Pause(ctx context.Context, inv ledger.Invocation) (*ledger.Result, error) {
	return x.run(ctx, ledger.OpPause, inv, func(_ context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error) {
		return x.engine.Pause(snap, inv)
	})
}

// Unpause resumes value movement once the cooldown has elapsed.
func (x *Executor) Unpause(ctx context.Context, inv ledger.Invocation) (*ledger.Result, error) {
	return x.run(ctx, ledger.OpUnpause, inv, func(_ context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error) {
		return x.engine.Unpause(snap, inv)
	})
}

// AddToBlacklist bars an address from moving value.
func (x *Executor) AddToBlacklist(ctx context.Context, inv ledger.Invocation, req ledger.BlacklistRequest) (*ledger.Result, error) {
	return x.run(ctx, ledger.OpBlacklistAdd, inv, func(_ context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error) {
		return x.engine.AddToBlacklist(snap, inv, req)
	})
}

// RemoveFromBlacklist lifts a bar.
func (x *Executor) RemoveFromBlacklist(ctx context.Context, inv ledger.Invocation, req ledger.BlacklistRequest) (*ledger.Result, error) {
	return x.run(ctx, ledger.OpBlacklistRemove, inv, func(_ context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error) {
		return x.engine.RemoveFromBlacklist(snap, inv, req)
	})
}

// Purchase spends the caller's tokens into the vault.
func (x *Executor) Purchase(ctx context.Context, inv ledger.Invocation, req ledger.PurchaseRequest) (*ledger.Result, error) {
	return x.run(ctx, ledger.OpPurchase, inv, func(_ context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error) {
		return x.engine.Purchase(snap, inv, req)
	})
}

// Transfer moves the caller's tokens to another principal.
func (x *Executor) Transfer(ctx context.Context, inv ledger.Invocation, req ledger.TransferRequest) (*ledger.Result, error) {
	return x.run(ctx, ledger.OpTransfer, inv, func(_ context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error) {
		return x.engine.Transfer(snap, inv, req)
	})
}

// Deposit credits external payment assets to a principal.
func (x *Executor) Deposit(ctx context.Context, inv ledger.Invocation, req ledger.DepositRequest) (*ledger.Result, error) {
	return x.run(ctx, ledger.OpDeposit, inv, func(_ context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error) {
		return x.engine.Deposit(snap, inv, req)
	})
}

// CheckTransfer runs the transfer gate without moving value.
func (x *Executor) CheckTransfer(ctx context.Context, inv ledger.Invocation, req ledger.CheckTransferRequest) (*ledger.Result, error) {
	return x.run(ctx, "check_transfer", inv, func(_ context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error) {
		return x.engine.CheckTransfer(snap, inv, req)
	})
}

// VerifyReserve attests the vault reserve against total supply.
func (x *Executor) VerifyReserve(ctx context.Context, inv ledger.Invocation) (*ledger.Result, error) {
	res, err := x.run(ctx, "verify_reserve", inv, func(_ context.Context, snap *domain.Snapshot, inv ledger.Invocation) (*ledger.Result, error) {
		return x.engine.VerifyReserve(snap, inv)
	})
	if err == nil && len(res.Events) > 0 {
		x.metrics.RecordAttestation(res.Events[0].Timestamp)
	}
	return res, err
}
