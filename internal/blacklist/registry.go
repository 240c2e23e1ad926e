// Package blacklist implements the bounded membership set that gates value
// movement. The set is small (domain.BlacklistCapacity), so membership is a
// linear scan over an ordered slice.
package blacklist

import "diamond-token/internal/domain"

// Contains reports whether addr is blacklisted.
func Contains(bl domain.Blacklist, addr domain.Pubkey) bool {
	return indexOf(bl, addr) >= 0
}

// Add returns a copy of bl with addr appended.
// Returns ErrAddressAlreadyBlacklisted if present, ErrBlacklistFull at capacity.
func Add(bl domain.Blacklist, addr domain.Pubkey) (domain.Blacklist, error) {
	if Contains(bl, addr) {
		return bl, domain.ErrAddressAlreadyBlacklisted
	}
	if len(bl.Addresses) >= domain.BlacklistCapacity {
		return bl, domain.ErrBlacklistFull
	}

	addrs := make([]domain.Pubkey, len(bl.Addresses), len(bl.Addresses)+1)
	copy(addrs, bl.Addresses)
	return domain.Blacklist{Addresses: append(addrs, addr)}, nil
}

// Remove returns a copy of bl without addr, preserving order of the rest.
// Returns ErrAddressNotBlacklisted if addr is absent.
func Remove(bl domain.Blacklist, addr domain.Pubkey) (domain.Blacklist, error) {
	idx := indexOf(bl, addr)
	if idx < 0 {
		return bl, domain.ErrAddressNotBlacklisted
	}

	addrs := make([]domain.Pubkey, 0, len(bl.Addresses)-1)
	addrs = append(addrs, bl.Addresses[:idx]...)
	addrs = append(addrs, bl.Addresses[idx+1:]...)
	return domain.Blacklist{Addresses: addrs}, nil
}

func indexOf(bl domain.Blacklist, addr domain.Pubkey) int {
	for i, a := range bl.Addresses {
		if a == addr {
			return i
		}
	}
	return -1
}
