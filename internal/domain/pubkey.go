package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// PubkeyLen is the size of an ed25519 public key / Solana address.
const PubkeyLen = 32

// Pubkey identifies a principal, mint or custody account.
type Pubkey [PubkeyLen]byte

// ZeroPubkey is the all-zero key. It never identifies a real principal.
var ZeroPubkey Pubkey

// ParsePubkey decodes a base58 address.
func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	decoded, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(decoded) != PubkeyLen {
		return pk, fmt.Errorf("decode pubkey %q: expected %d bytes, got %d", s, PubkeyLen, len(decoded))
	}
	copy(pk[:], decoded)
	return pk, nil
}

// MustParsePubkey is ParsePubkey for constants. Panics on bad input.
func MustParsePubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PubkeyFromBytes copies b into a Pubkey.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var pk Pubkey
	if len(b) != PubkeyLen {
		return pk, fmt.Errorf("pubkey: expected %d bytes, got %d", PubkeyLen, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// String returns the base58 form.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// IsZero reports whether p is the zero key.
func (p Pubkey) IsZero() bool {
	return p == ZeroPubkey
}

// MarshalText implements encoding.TextMarshaler.
func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pubkey) UnmarshalText(text []byte) error {
	pk, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*p = pk
	return nil
}
