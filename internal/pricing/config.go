package pricing

import "diamond-token/internal/domain"

// Well-known mints used by the default configuration.
var (
	// MintUSDT is stable asset A, priced at 1.000000 per token.
	MintUSDT = domain.MustParsePubkey("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	// MintUSDC is stable asset B, priced at 0.800000 per token.
	MintUSDC = domain.MustParsePubkey("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	// MintWrappedSOL identifies the native gas asset.
	MintWrappedSOL = domain.MustParsePubkey("So11111111111111111111111111111111111111112")
)

// SOLUSDFeedID is the Pyth SOL/USD price feed.
const SOLUSDFeedID = "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"

// Pricing constants.
const (
	PriceAssetA uint64 = 1_000_000 // smallest units of asset A per token
	PriceAssetB uint64 = 800_000   // smallest units of asset B per token

	MinStablePayment uint64 = 1_000_000 // 1 unit of a 6-decimal asset
	MinNativePayment uint64 = 1_000_000 // 0.001 of the 9-decimal native asset

	// USD value of one token as a fraction.
	TokenUSDNumerator   uint64 = 8
	TokenUSDDenominator uint64 = 10

	MaxPriceAgeSeconds int64  = 60
	MaxConfidenceBps   uint64 = 100 // 1% of price
	MaxAbsExponent     int32  = 18
)

// Config parameterizes the pricing engine.
type Config struct {
	// StablePrices maps each accepted 6-decimal mint to its unit price.
	StablePrices map[domain.Pubkey]uint64
	// NativeMint is the accepted 9-decimal mint.
	NativeMint domain.Pubkey
	// FeedID selects the oracle feed quoting the native asset in USD.
	FeedID string
	// ReserveMint is the stable asset the vault must hold against supply.
	ReserveMint domain.Pubkey

	MinStablePayment uint64
	MinNativePayment uint64
	MaxPriceAge      int64
	MaxConfidenceBps uint64
}

// DefaultConfig returns mainnet mints and the production constants.
func DefaultConfig() Config {
	return Config{
		StablePrices: map[domain.Pubkey]uint64{
			MintUSDT: PriceAssetA,
			MintUSDC: PriceAssetB,
		},
		NativeMint:       MintWrappedSOL,
		FeedID:           SOLUSDFeedID,
		ReserveMint:      MintUSDT,
		MinStablePayment: MinStablePayment,
		MinNativePayment: MinNativePayment,
		MaxPriceAge:      MaxPriceAgeSeconds,
		MaxConfidenceBps: MaxConfidenceBps,
	}
}
