// Package reserve checks that the vault's stable-asset balance covers the
// token liability. It is read-only and may be run by anyone.
package reserve

import (
	"github.com/holiman/uint256"

	"diamond-token/internal/domain"
)

// UnitReserve is the stable-asset amount required per unit of supply.
const UnitReserve uint64 = 1_000_000

// Attestation is the result of a successful reserve check.
type Attestation struct {
	TotalSupply     uint64 `json:"total_supply"`
	ExpectedReserve uint64 `json:"expected_reserve"`
	ActualReserve   uint64 `json:"actual_reserve"`
	Timestamp       int64  `json:"timestamp"`
}

// ExpectedReserve returns totalSupply * UnitReserve, or ErrMathOverflow.
func ExpectedReserve(totalSupply uint64) (uint64, error) {
	out, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(totalSupply), uint256.NewInt(UnitReserve))
	if overflow || !out.IsUint64() {
		return 0, domain.ErrMathOverflow
	}
	return out.Uint64(), nil
}

// Verify compares actual against the reserve required for totalSupply.
// Returns ErrInsufficientReserve when actual falls short.
func Verify(totalSupply, actual uint64, now int64) (*Attestation, error) {
	expected, err := ExpectedReserve(totalSupply)
	if err != nil {
		return nil, err
	}
	if actual < expected {
		return nil, domain.ErrInsufficientReserve
	}
	return &Attestation{
		TotalSupply:     totalSupply,
		ExpectedReserve: expected,
		ActualReserve:   actual,
		Timestamp:       now,
	}, nil
}

// Payload converts a to the record payload.
func (a *Attestation) Payload() *domain.ReserveAttestedPayload {
	return &domain.ReserveAttestedPayload{
		TotalSupply:     a.TotalSupply,
		ExpectedReserve: a.ExpectedReserve,
		ActualReserve:   a.ActualReserve,
		Timestamp:       a.Timestamp,
	}
}
