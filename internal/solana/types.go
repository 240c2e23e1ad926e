package solana

// TokenAmount is an SPL token quantity in base units.
type TokenAmount struct {
	Amount   uint64
	Decimals uint8
	Slot     int64 // context slot the value was read at
}

// TokenAccount is one SPL token account and its balance.
type TokenAccount struct {
	Address string
	Mint    string
	Owner   string
	Amount  TokenAmount
}
