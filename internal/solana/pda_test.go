package solana

import (
	"errors"
	"testing"

	"diamond-token/internal/domain"
)

var testProgramID = domain.MustParsePubkey("97xUm7Kv6TiKyCkaLGgmTFu3skVte3wStYY4vYTXtpxL")

func TestFindProgramAddress_KnownVectors(t *testing.T) {
	tests := []struct {
		seed     string
		wantAddr string
		wantBump uint8
	}{
		{"token_state", "Bpd99RzEbJ7epHFm3HmPvZBCXzPvCrTqj1vJChyvGJtn", 255},
		{"vault", "JA1fdGgZEqN4YA1sVBjusW3m6dWzuYNqYQg4Gy43ZDvT", 253},
		{"multisig", "DSRW8v5BcAvh2HtVAm3BfGtobxLKmEwm25x2XUTyh2mL", 255},
	}

	for _, tt := range tests {
		t.Run(tt.seed, func(t *testing.T) {
			addr, bump, err := FindProgramAddress([][]byte{[]byte(tt.seed)}, testProgramID)
			if err != nil {
				t.Fatalf("FindProgramAddress: %v", err)
			}
			if addr.String() != tt.wantAddr {
				t.Errorf("expected address %s, got %s", tt.wantAddr, addr)
			}
			if bump != tt.wantBump {
				t.Errorf("expected bump %d, got %d", tt.wantBump, bump)
			}
		})
	}
}

func TestFindProgramAddress_SkipsOnCurveBumps(t *testing.T) {
	// bumps 255 and 254 land on the curve for this seed
	for _, bump := range []byte{255, 254} {
		_, err := CreateProgramAddress([][]byte{[]byte("vault"), {bump}}, testProgramID)
		if !errors.Is(err, ErrNoViableBump) {
			t.Errorf("bump %d: expected on-curve rejection, got %v", bump, err)
		}
	}

	addr, err := CreateProgramAddress([][]byte{[]byte("vault"), {253}}, testProgramID)
	if err != nil {
		t.Fatalf("CreateProgramAddress: %v", err)
	}
	if IsOnCurve(addr) {
		t.Error("derived address must be off curve")
	}
}

func TestCreateProgramAddress_SeedLimits(t *testing.T) {
	long := make([]byte, MaxSeedLength+1)
	if _, err := CreateProgramAddress([][]byte{long}, testProgramID); !errors.Is(err, ErrInvalidSeeds) {
		t.Errorf("expected ErrInvalidSeeds for long seed, got %v", err)
	}

	many := make([][]byte, MaxSeeds)
	if _, _, err := FindProgramAddress(many, testProgramID); !errors.Is(err, ErrInvalidSeeds) {
		t.Errorf("expected ErrInvalidSeeds for too many seeds, got %v", err)
	}
}

func TestIsOnCurve_RealKey(t *testing.T) {
	// A wallet address is an ed25519 public key.
	wallet := domain.MustParsePubkey("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	if !IsOnCurve(wallet) {
		t.Error("expected mint address to be on curve")
	}
}
