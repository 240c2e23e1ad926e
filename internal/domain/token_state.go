package domain

// Token and payment asset precision.
const (
	TokenDecimals  uint8 = 9
	StableDecimals uint8 = 6
	NativeDecimals uint8 = 9
)

// Multisig policy shape. Fixed for the life of a deployment.
const (
	MultisigOwners    = 5
	MultisigThreshold = 3
)

// TokenState is the singleton ledger record. Corresponds to token_state table.
type TokenState struct {
	Authority          Pubkey // principal allowed to run privileged operations alone
	Mint               Pubkey // mint of the managed token
	TotalSupply        uint64 // base units in circulation, always <= MaxSupply
	MaxSupply          uint64 // only ever decreases
	IsPaused           bool
	LastPauseTimestamp int64  // unix seconds of the most recent pause
	Multisig           Pubkey // address of the authorization collaborator
	Vault              Pubkey // custody account owned by the ledger
	Bump               uint8  // derivation nonce of the token_state address
}

// MultisigConfig is the owner set backing TokenState.Multisig.
type MultisigConfig struct {
	Owners    []Pubkey
	Threshold uint64
}

// Clone returns a deep copy.
func (m MultisigConfig) Clone() MultisigConfig {
	owners := make([]Pubkey, len(m.Owners))
	copy(owners, m.Owners)
	return MultisigConfig{Owners: owners, Threshold: m.Threshold}
}

// IsOwner reports whether pk is one of the owners.
func (m MultisigConfig) IsOwner(pk Pubkey) bool {
	for _, o := range m.Owners {
		if o == pk {
			return true
		}
	}
	return false
}
