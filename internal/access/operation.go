// Package access decides whether an invocation may run a privileged
// operation: either the caller is the authority, or enough designated owners
// signed the operation digest.
package access

import (
	"crypto/sha256"
	"strconv"
	"strings"

	"diamond-token/internal/domain"
)

// Operation names a request to be authorized.
// Nonce is the snapshot version the request will run against, so a set of
// signatures authorizes exactly one transition. Program scopes the signatures
// to one deployment.
type Operation struct {
	Program domain.Pubkey
	Kind    string
	Params  []string
	Nonce   uint64
}

// NewOperation builds an Operation bound to snapshot version nonce.
func NewOperation(kind string, nonce uint64, params ...string) Operation {
	return Operation{Kind: kind, Params: params, Nonce: nonce}
}

// On returns o scoped to program.
func (o Operation) On(program domain.Pubkey) Operation {
	o.Program = program
	return o
}

// Digest is the message owners sign.
// Formula: SHA256(program|kind|param_1|...|param_n|nonce)
func (o Operation) Digest() [32]byte {
	var b strings.Builder
	b.WriteString(o.Program.String())
	b.WriteByte('|')
	b.WriteString(o.Kind)
	for _, p := range o.Params {
		b.WriteByte('|')
		b.WriteString(p)
	}
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(o.Nonce, 10))
	return sha256.Sum256([]byte(b.String()))
}

// Proof is one owner's signature over an Operation digest.
type Proof struct {
	Signer    domain.Pubkey `json:"signer"`
	Signature []byte        `json:"signature"`
}
