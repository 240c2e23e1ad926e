package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"diamond-token/internal/domain"
)

// PDA limits enforced by the runtime.
const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

const pdaMarker = "ProgramDerivedAddress"

// ErrNoViableBump is returned when every bump yields an on-curve point.
var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// ErrInvalidSeeds is returned when seeds exceed runtime limits.
var ErrInvalidSeeds = errors.New("invalid seeds")

// FindProgramAddress derives the program address for seeds, searching bumps
// from 255 down. Returns the address and the bump that produced it.
func FindProgramAddress(seeds [][]byte, programID domain.Pubkey) (domain.Pubkey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return domain.ZeroPubkey, 0, fmt.Errorf("%w: %d seeds", ErrInvalidSeeds, len(seeds))
	}

	for bump := 255; bump >= 0; bump-- {
		withBump := append(append([][]byte{}, seeds...), []byte{byte(bump)})
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if errors.Is(err, ErrInvalidSeeds) {
			return domain.ZeroPubkey, 0, err
		}
	}
	return domain.ZeroPubkey, 0, ErrNoViableBump
}

// CreateProgramAddress hashes seeds with programID and fails if the result
// lies on the ed25519 curve.
// Formula: SHA256(seed_1||...||seed_n||programID||"ProgramDerivedAddress")
func CreateProgramAddress(seeds [][]byte, programID domain.Pubkey) (domain.Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return domain.ZeroPubkey, fmt.Errorf("%w: %d seeds", ErrInvalidSeeds, len(seeds))
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return domain.ZeroPubkey, fmt.Errorf("%w: seed length %d", ErrInvalidSeeds, len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var addr domain.Pubkey
	copy(addr[:], h.Sum(nil))
	if IsOnCurve(addr) {
		return domain.ZeroPubkey, ErrNoViableBump
	}
	return addr, nil
}

// IsOnCurve reports whether pk decodes to a valid ed25519 point.
func IsOnCurve(pk domain.Pubkey) bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}
