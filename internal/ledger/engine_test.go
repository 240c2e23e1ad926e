package ledger

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"diamond-token/internal/access"
	"diamond-token/internal/domain"
	"diamond-token/internal/pricing"
)

const (
	now       int64  = 1_700_000_000
	tokenUnit uint64 = 1_000_000_000
)

var (
	testMint  = domain.Pubkey{0x11, 0x22}
	authority = domain.Pubkey{0xAA}
	buyer     = domain.Pubkey{0xB0}
	stranger  = domain.Pubkey{0xCC}
)

// ownerKeys returns the five deterministic multisig owners.
func ownerKeys(t *testing.T) ([]ed25519.PrivateKey, []domain.Pubkey) {
	t.Helper()
	keys := make([]ed25519.PrivateKey, domain.MultisigOwners)
	pubs := make([]domain.Pubkey, domain.MultisigOwners)
	for i := range keys {
		seed := make([]byte, ed25519.SeedSize)
		seed[0] = byte(0x40 + i)
		keys[i] = ed25519.NewKeyFromSeed(seed)
		copy(pubs[i][:], keys[i].Public().(ed25519.PublicKey))
	}
	return keys, pubs
}

func as(caller domain.Pubkey, at int64) Invocation {
	return Invocation{Caller: caller, Now: at}
}

// setup initializes a ledger with the given supplies, owned by authority.
func setup(t *testing.T, e *Engine, initial, max uint64) *domain.Snapshot {
	t.Helper()
	_, owners := ownerKeys(t)
	res, err := e.Initialize(nil, as(authority, now), InitializeRequest{
		InitialSupply: initial,
		MaxSupply:     max,
		Mint:          testMint,
		Owners:        owners,
		Threshold:     domain.MultisigThreshold,
	})
	require.NoError(t, err)
	return res.Snapshot
}

// fund returns a copy of snap with owner holding amount of mint.
func fund(snap *domain.Snapshot, owner, mint domain.Pubkey, amount uint64) *domain.Snapshot {
	next := snap.Clone()
	next.Holdings.Set(owner, mint, amount)
	return next
}

// quorum signs op with the first n owners.
func quorum(t *testing.T, op access.Operation, n int) []access.Proof {
	t.Helper()
	keys, _ := ownerKeys(t)
	proofs := make([]access.Proof, 0, n)
	for i := 0; i < n; i++ {
		proofs = append(proofs, access.Sign(keys[i], op.On(DefaultProgramID)))
	}
	return proofs
}

// mustApply unwraps an operation result, failing the test on error.
func mustApply(t *testing.T) func(*Result, error) *domain.Snapshot {
	return func(res *Result, err error) *domain.Snapshot {
		t.Helper()
		require.NoError(t, err)
		require.NotNil(t, res)
		return res.Snapshot
	}
}

func stableA() (domain.Pubkey, uint8) {
	return pricing.MintUSDT, domain.StableDecimals
}
