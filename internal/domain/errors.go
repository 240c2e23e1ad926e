package domain

import (
	"errors"
	"fmt"
)

// ErrorKind groups ledger errors by the rule they protect.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindInvariant     ErrorKind = "invariant"
	KindTemporal      ErrorKind = "temporal"
	KindOracle        ErrorKind = "oracle"
	KindArithmetic    ErrorKind = "arithmetic"
)

// Error is a ledger rejection. Every rejection is terminal for the operation
// and guarantees that no state was changed.
type Error struct {
	Code    uint32
	Name    string
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
}

func newError(code uint32, name string, kind ErrorKind, msg string) *Error {
	return &Error{Code: code, Name: name, Kind: kind, Message: msg}
}

// Ledger error codes. Codes start at 6000 to line up with on-chain custom
// program errors.
var (
	ErrInvalidMultisigThreshold      = newError(6000, "InvalidMultisigThreshold", KindAuthorization, "multisig requires exactly 5 distinct owners and a threshold of 3")
	ErrNotAuthorized                 = newError(6001, "NotAuthorized", KindAuthorization, "caller is not authorized")
	ErrAddressBlacklisted            = newError(6002, "AddressBlacklisted", KindValidation, "address is blacklisted")
	ErrSourceAddressBlacklisted      = newError(6003, "SourceAddressBlacklisted", KindValidation, "source address is blacklisted")
	ErrDestinationAddressBlacklisted = newError(6004, "DestinationAddressBlacklisted", KindValidation, "destination address is blacklisted")
	ErrAddressAlreadyBlacklisted     = newError(6005, "AddressAlreadyBlacklisted", KindValidation, "address is already blacklisted")
	ErrAddressNotBlacklisted         = newError(6006, "AddressNotBlacklisted", KindValidation, "address is not blacklisted")
	ErrBlacklistFull                 = newError(6007, "BlacklistFull", KindInvariant, "blacklist is full")
	ErrInsufficientBalance           = newError(6008, "InsufficientBalance", KindInvariant, "insufficient balance")
	ErrInsufficientReserve           = newError(6009, "InsufficientReserve", KindInvariant, "insufficient reserve")
	ErrInvalidAmount                 = newError(6010, "InvalidAmount", KindValidation, "invalid amount")
	ErrInvalidTokenAccount           = newError(6011, "InvalidTokenAccount", KindValidation, "unsupported payment asset")
	ErrPurchaseTooSmall              = newError(6012, "PurchaseTooSmall", KindValidation, "purchase amount is too small")
	ErrMaxSupplyExceeded             = newError(6013, "MaxSupplyExceeded", KindInvariant, "max supply would be exceeded")
	ErrCannotIncreaseMaxSupply       = newError(6014, "CannotIncreaseMaxSupply", KindInvariant, "max supply can only decrease")
	ErrInvalidMaxSupply              = newError(6015, "InvalidMaxSupply", KindValidation, "invalid max supply")
	ErrMaxSupplyReductionTooLarge    = newError(6016, "MaxSupplyReductionTooLarge", KindInvariant, "max supply reduction exceeds 50%")
	ErrOperationsPaused              = newError(6017, "OperationsPaused", KindTemporal, "token operations are paused")
	ErrPauseCooldownNotElapsed       = newError(6018, "PauseCooldownNotElapsed", KindTemporal, "pause cooldown has not elapsed")
	ErrInvalidDecimals               = newError(6019, "InvalidDecimals", KindValidation, "invalid payment asset decimals")
	ErrMathOverflow                  = newError(6020, "MathOverflow", KindArithmetic, "math operation overflow")
	ErrInvalidPriceFeed              = newError(6021, "InvalidPriceFeed", KindOracle, "invalid price feed")
	ErrStalePrice                    = newError(6022, "StalePrice", KindTemporal, "price feed is stale")
	ErrAlreadyPaused                 = newError(6023, "AlreadyPaused", KindTemporal, "token is already paused")
	ErrNotPaused                     = newError(6024, "NotPaused", KindTemporal, "token is not paused")
	ErrAlreadyInitialized            = newError(6025, "AlreadyInitialized", KindInvariant, "token state is already initialized")
	ErrNotInitialized                = newError(6026, "NotInitialized", KindInvariant, "token state is not initialized")
)

var allErrors = []*Error{
	ErrInvalidMultisigThreshold, ErrNotAuthorized, ErrAddressBlacklisted,
	ErrSourceAddressBlacklisted, ErrDestinationAddressBlacklisted,
	ErrAddressAlreadyBlacklisted, ErrAddressNotBlacklisted, ErrBlacklistFull,
	ErrInsufficientBalance, ErrInsufficientReserve, ErrInvalidAmount,
	ErrInvalidTokenAccount, ErrPurchaseTooSmall, ErrMaxSupplyExceeded,
	ErrCannotIncreaseMaxSupply, ErrInvalidMaxSupply, ErrMaxSupplyReductionTooLarge,
	ErrOperationsPaused, ErrPauseCooldownNotElapsed, ErrInvalidDecimals,
	ErrMathOverflow, ErrInvalidPriceFeed, ErrStalePrice, ErrAlreadyPaused,
	ErrNotPaused, ErrAlreadyInitialized, ErrNotInitialized,
}

// ErrorByCode returns the ledger error registered under code.
func ErrorByCode(code uint32) (*Error, bool) {
	for _, e := range allErrors {
		if e.Code == code {
			return e, true
		}
	}
	return nil, false
}

// AsLedgerError extracts the ledger error from err, if any.
func AsLedgerError(err error) (*Error, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
