package access

import (
	"crypto/ed25519"

	"diamond-token/internal/domain"
)

// Policy authorizes privileged operations from a set of proofs.
type Policy interface {
	Authorize(op Operation, proofs []Proof) bool
}

// Multisig is the fixed 3-of-5 owner policy.
type Multisig struct {
	cfg domain.MultisigConfig
}

var _ Policy = (*Multisig)(nil)

// ValidateConfig checks the owner set shape.
// Returns ErrInvalidMultisigThreshold unless there are exactly 5 distinct
// owners and a threshold of 3.
func ValidateConfig(cfg domain.MultisigConfig) error {
	if len(cfg.Owners) != domain.MultisigOwners || cfg.Threshold != domain.MultisigThreshold {
		return domain.ErrInvalidMultisigThreshold
	}
	seen := make(map[domain.Pubkey]struct{}, len(cfg.Owners))
	for _, o := range cfg.Owners {
		if o.IsZero() {
			return domain.ErrInvalidMultisigThreshold
		}
		if _, dup := seen[o]; dup {
			return domain.ErrInvalidMultisigThreshold
		}
		seen[o] = struct{}{}
	}
	return nil
}

// NewMultisig builds the policy for cfg.
func NewMultisig(cfg domain.MultisigConfig) (*Multisig, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Multisig{cfg: cfg.Clone()}, nil
}

// Authorize reports whether at least threshold distinct owners produced a
// valid signature over op. Proofs from non-owners and bad signatures are
// ignored; repeated signers count once.
func (m *Multisig) Authorize(op Operation, proofs []Proof) bool {
	digest := op.Digest()
	approved := make(map[domain.Pubkey]struct{}, len(proofs))

	for _, p := range proofs {
		if _, done := approved[p.Signer]; done {
			continue
		}
		if !m.cfg.IsOwner(p.Signer) {
			continue
		}
		if !VerifySignature(p.Signer, digest, p.Signature) {
			continue
		}
		approved[p.Signer] = struct{}{}
		if uint64(len(approved)) >= m.cfg.Threshold {
			return true
		}
	}
	return false
}

// VerifySignature checks an ed25519 signature by signer over digest.
func VerifySignature(signer domain.Pubkey, digest [32]byte, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(signer[:]), digest[:], sig)
}

// Sign produces a Proof for op with key. Used by clients and tests.
func Sign(key ed25519.PrivateKey, op Operation) Proof {
	digest := op.Digest()
	var signer domain.Pubkey
	copy(signer[:], key.Public().(ed25519.PublicKey))
	return Proof{Signer: signer, Signature: ed25519.Sign(key, digest[:])}
}

// Gate combines the authority check with a Policy.
type Gate struct {
	Authority domain.Pubkey
	Policy    Policy
}

// Check returns ErrNotAuthorized unless caller is the authority or proofs
// satisfy the policy.
func (g Gate) Check(caller domain.Pubkey, op Operation, proofs []Proof) error {
	if !g.Authority.IsZero() && caller == g.Authority {
		return nil
	}
	if g.Policy != nil && len(proofs) > 0 && g.Policy.Authorize(op, proofs) {
		return nil
	}
	return domain.ErrNotAuthorized
}
