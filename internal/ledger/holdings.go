package ledger

import (
	"math/bits"

	"diamond-token/internal/blacklist"
	"diamond-token/internal/domain"
)

func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, domain.ErrMathOverflow
	}
	return sum, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, domain.ErrMathOverflow
	}
	return diff, nil
}

// checkGate is the transfer gate: neither endpoint may be blacklisted.
func checkGate(bl domain.Blacklist, source, destination domain.Pubkey) error {
	if blacklist.Contains(bl, source) {
		return domain.ErrSourceAddressBlacklisted
	}
	if blacklist.Contains(bl, destination) {
		return domain.ErrDestinationAddressBlacklisted
	}
	return nil
}

// movement is a validated balance transfer ready to apply.
type movement struct {
	mint        domain.Pubkey
	from, to    domain.Pubkey
	fromBalance uint64
	toBalance   uint64
}

// planMove validates moving amount of mint and returns the resulting balances.
// Nothing is written until apply.
func planMove(h domain.Holdings, bl domain.Blacklist, mint, from, to domain.Pubkey, amount uint64) (*movement, error) {
	if err := checkGate(bl, from, to); err != nil {
		return nil, err
	}
	fromBal := h.Balance(from, mint)
	if fromBal < amount {
		return nil, domain.ErrInsufficientBalance
	}
	m := &movement{mint: mint, from: from, to: to, fromBalance: fromBal - amount}
	if from == to {
		m.toBalance = fromBal
		return m, nil
	}
	toBal, err := checkedAdd(h.Balance(to, mint), amount)
	if err != nil {
		return nil, err
	}
	m.toBalance = toBal
	return m, nil
}

func (m *movement) apply(h domain.Holdings) {
	if m.from == m.to {
		return
	}
	h.Set(m.from, m.mint, m.fromBalance)
	h.Set(m.to, m.mint, m.toBalance)
}
