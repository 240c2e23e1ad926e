package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"diamond-token/internal/domain"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(kind|version|actor|timestamp|payload_json)
// Returns hex-encoded hash (64 characters).
//
// Re-executing an operation against the same snapshot produces the same id,
// so stores can reject replays with ErrDuplicateKey.
func ComputeEventID(
	kind domain.EventKind,
	version uint64,
	actor domain.Pubkey,
	timestamp int64,
	payload []byte,
) string {
	data := fmt.Sprintf("%s|%d|%s|%d|%s",
		string(kind),
		version,
		actor.String(),
		timestamp,
		payload,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeAttestationID computes a deterministic id for a reserve attestation.
// Formula: SHA256(vault|total_supply|actual_reserve|timestamp)
func ComputeAttestationID(vault domain.Pubkey, totalSupply, actualReserve uint64, timestamp int64) string {
	data := fmt.Sprintf("%s|%d|%d|%d",
		vault.String(),
		totalSupply,
		actualReserve,
		timestamp,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
