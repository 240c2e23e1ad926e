package domain

import (
	"encoding/json"
	"fmt"
)

// EventKind names an emitted ledger record.
type EventKind string

const (
	EventInitialized      EventKind = "Initialized"
	EventIssued           EventKind = "Issued"
	EventBurned           EventKind = "Burned"
	EventPaused           EventKind = "Paused"
	EventUnpaused         EventKind = "Unpaused"
	EventMaxSupplyUpdated EventKind = "MaxSupplyUpdated"
	EventBlacklistUpdated EventKind = "BlacklistUpdated"
	EventPurchased        EventKind = "Purchased"
	EventTransferChecked  EventKind = "TransferChecked"
	EventReserveAttested  EventKind = "ReserveAttested"
	EventDeposited        EventKind = "Deposited"
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a known record kind.
func (k EventKind) IsValid() bool {
	_, err := newPayload(k)
	return err == nil
}

// Event is one record emitted by a successful operation.
type Event struct {
	EventID   string    // deterministic hash, see idhash.ComputeEventID
	Kind      EventKind // selects the concrete Payload type
	Version   uint64    // snapshot version the operation ran against
	Actor     Pubkey    // acting principal
	Timestamp int64     // unix seconds
	Payload   any       // one of the *Payload structs below
}

// InitializedPayload accompanies EventInitialized.
type InitializedPayload struct {
	Mint          Pubkey `json:"mint"`
	Vault         Pubkey `json:"vault"`
	Multisig      Pubkey `json:"multisig"`
	InitialSupply uint64 `json:"initial_supply"`
	MaxSupply     uint64 `json:"max_supply"`
}

// IssuedPayload accompanies EventIssued.
type IssuedPayload struct {
	Amount        uint64 `json:"amount"`
	PaymentMint   Pubkey `json:"payment_mint"`
	PaymentAmount uint64 `json:"payment_amount"`
	TotalSupply   uint64 `json:"total_supply"`
}

// BurnedPayload accompanies EventBurned.
type BurnedPayload struct {
	Amount          uint64  `json:"amount"`
	Secondary       *Pubkey `json:"secondary,omitempty"`
	SecondaryAmount uint64  `json:"secondary_amount"`
	TotalSupply     uint64  `json:"total_supply"`
}

// PauseTogglePayload accompanies EventPaused and EventUnpaused.
type PauseTogglePayload struct {
	Timestamp int64 `json:"timestamp"`
}

// MaxSupplyUpdatedPayload accompanies EventMaxSupplyUpdated.
type MaxSupplyUpdatedPayload struct {
	OldMaxSupply uint64 `json:"old_max_supply"`
	NewMaxSupply uint64 `json:"new_max_supply"`
}

// BlacklistUpdatedPayload accompanies EventBlacklistUpdated.
type BlacklistUpdatedPayload struct {
	Address     Pubkey `json:"address"`
	Blacklisted bool   `json:"blacklisted"`
}

// PurchasedPayload accompanies EventPurchased.
type PurchasedPayload struct {
	Amount       uint64 `json:"amount"`
	VaultBalance uint64 `json:"vault_balance"`
}

// TransferCheckedPayload accompanies EventTransferChecked.
type TransferCheckedPayload struct {
	Source      Pubkey `json:"source"`
	Destination Pubkey `json:"destination"`
	Amount      uint64 `json:"amount"`
}

// ReserveAttestedPayload accompanies EventReserveAttested.
type ReserveAttestedPayload struct {
	TotalSupply     uint64 `json:"total_supply"`
	ExpectedReserve uint64 `json:"expected_reserve"`
	ActualReserve   uint64 `json:"actual_reserve"`
	Timestamp       int64  `json:"timestamp"`
}

// DepositedPayload accompanies EventDeposited.
type DepositedPayload struct {
	Owner   Pubkey `json:"owner"`
	Mint    Pubkey `json:"mint"`
	Amount  uint64 `json:"amount"`
	Balance uint64 `json:"balance"`
}

func newPayload(kind EventKind) (any, error) {
	switch kind {
	case EventInitialized:
		return &InitializedPayload{}, nil
	case EventIssued:
		return &IssuedPayload{}, nil
	case EventBurned:
		return &BurnedPayload{}, nil
	case EventPaused, EventUnpaused:
		return &PauseTogglePayload{}, nil
	case EventMaxSupplyUpdated:
		return &MaxSupplyUpdatedPayload{}, nil
	case EventBlacklistUpdated:
		return &BlacklistUpdatedPayload{}, nil
	case EventPurchased:
		return &PurchasedPayload{}, nil
	case EventTransferChecked:
		return &TransferCheckedPayload{}, nil
	case EventReserveAttested:
		return &ReserveAttestedPayload{}, nil
	case EventDeposited:
		return &DepositedPayload{}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
}

// EncodePayload serializes the payload for storage.
func EncodePayload(e *Event) ([]byte, error) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", e.Kind, err)
	}
	return data, nil
}

// DecodePayload restores the concrete payload for kind from data.
func DecodePayload(kind EventKind, data []byte) (any, error) {
	p, err := newPayload(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return p, nil
}
