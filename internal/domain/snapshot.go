package domain

import "sort"

// BlacklistCapacity is the maximum number of blacklisted principals.
const BlacklistCapacity = 100

// Blacklist is the ordered set of principals barred from moving value.
type Blacklist struct {
	Addresses []Pubkey
}

// Holdings maps owner -> mint -> balance in the mint's base units.
// Custody records (vault, premint, buyers) all live here.
type Holdings map[Pubkey]map[Pubkey]uint64

// Balance returns owner's balance of mint. Missing entries are zero.
func (h Holdings) Balance(owner, mint Pubkey) uint64 {
	if h == nil {
		return 0
	}
	return h[owner][mint]
}

// Set writes owner's balance of mint.
func (h Holdings) Set(owner, mint Pubkey, amount uint64) {
	byMint, ok := h[owner]
	if !ok {
		byMint = make(map[Pubkey]uint64)
		h[owner] = byMint
	}
	byMint[mint] = amount
}

// Clone returns a deep copy.
func (h Holdings) Clone() Holdings {
	out := make(Holdings, len(h))
	for owner, byMint := range h {
		cp := make(map[Pubkey]uint64, len(byMint))
		for mint, amt := range byMint {
			cp[mint] = amt
		}
		out[owner] = cp
	}
	return out
}

// Entries flattens holdings in deterministic (owner, mint) order.
func (h Holdings) Entries() []Holding {
	var out []Holding
	for owner, byMint := range h {
		for mint, amt := range byMint {
			out = append(out, Holding{Owner: owner, Mint: mint, Amount: amt})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return lessPubkey(out[i].Owner, out[j].Owner)
		}
		return lessPubkey(out[i].Mint, out[j].Mint)
	})
	return out
}

// Holding is one row of Holdings.
type Holding struct {
	Owner  Pubkey
	Mint   Pubkey
	Amount uint64
}

func lessPubkey(a, b Pubkey) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Snapshot is the complete ledger state an operation reads and produces.
// Operations never modify a Snapshot in place; they Clone it first.
type Snapshot struct {
	State     TokenState
	Blacklist Blacklist
	Multisig  MultisigConfig
	Holdings  Holdings
	// Version counts committed mutations. It is also the nonce that
	// authorization proofs sign over, so a proof is valid for one state only.
	Version uint64
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	addrs := make([]Pubkey, len(s.Blacklist.Addresses))
	copy(addrs, s.Blacklist.Addresses)
	return &Snapshot{
		State:     s.State,
		Blacklist: Blacklist{Addresses: addrs},
		Multisig:  s.Multisig.Clone(),
		Holdings:  s.Holdings.Clone(),
		Version:   s.Version,
	}
}
