// Package pricing computes what a buyer pays for an issuance amount.
//
// Stable assets carry a fixed unit price. The native asset is priced from an
// oracle quote in 256-bit fixed point and rounded down, so the buyer is never
// over-credited and every re-execution yields the same result.
package pricing

import (
	"context"

	"github.com/holiman/uint256"

	"diamond-token/internal/domain"
	"diamond-token/internal/oracle"
)

// Asset describes the payment asset offered by the buyer.
type Asset struct {
	Mint     domain.Pubkey
	Decimals uint8
}

// Engine quotes payments.
type Engine struct {
	cfg    Config
	oracle oracle.Oracle
}

// NewEngine creates a pricing engine. o may be nil if no native asset is
// accepted; native quotes then fail with InvalidPriceFeed.
func NewEngine(cfg Config, o oracle.Oracle) *Engine {
	return &Engine{cfg: cfg, oracle: o}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Payment returns the amount of asset the buyer owes for amount tokens at now.
func (e *Engine) Payment(ctx context.Context, amount uint64, asset Asset, now int64) (uint64, error) {
	switch asset.Decimals {
	case domain.StableDecimals:
		return e.stablePayment(amount, asset.Mint)
	case domain.NativeDecimals:
		if asset.Mint != e.cfg.NativeMint {
			return 0, domain.ErrInvalidTokenAccount
		}
		return e.nativePayment(ctx, amount, now)
	default:
		return 0, domain.ErrInvalidDecimals
	}
}

func (e *Engine) stablePayment(amount uint64, mint domain.Pubkey) (uint64, error) {
	price, ok := e.cfg.StablePrices[mint]
	if !ok {
		return 0, domain.ErrInvalidTokenAccount
	}
	payment, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(amount), uint256.NewInt(price))
	if overflow || !payment.IsUint64() {
		return 0, domain.ErrMathOverflow
	}
	if payment.Uint64() < e.cfg.MinStablePayment {
		return 0, domain.ErrPurchaseTooSmall
	}
	return payment.Uint64(), nil
}

func (e *Engine) nativePayment(ctx context.Context, amount uint64, now int64) (uint64, error) {
	if e.oracle == nil {
		return 0, domain.ErrInvalidPriceFeed
	}
	q, err := e.latestQuote(ctx)
	if err != nil || q == nil {
		return 0, domain.ErrInvalidPriceFeed
	}
	if err := ValidateQuote(q, now, e.cfg.MaxPriceAge, e.cfg.MaxConfidenceBps); err != nil {
		return 0, err
	}

	payment, err := NativeAmount(amount, q.Price, q.Expo)
	if err != nil {
		return 0, err
	}
	if payment < e.cfg.MinNativePayment {
		return 0, domain.ErrPurchaseTooSmall
	}
	return payment, nil
}

type quoteKey struct{}

type prefetched struct {
	quote *oracle.Quote
	err   error
}

// Prefetch reads the native quote for asset ahead of time and returns a
// context carrying it. Payment prices from the carried quote instead of
// calling the oracle, so callers can fetch before taking a lock. ctx is
// returned unchanged when asset needs no quote.
func (e *Engine) Prefetch(ctx context.Context, asset Asset) context.Context {
	if e.oracle == nil || asset.Decimals != domain.NativeDecimals || asset.Mint != e.cfg.NativeMint {
		return ctx
	}
	q, err := e.oracle.LatestQuote(ctx, e.cfg.FeedID)
	return context.WithValue(ctx, quoteKey{}, prefetched{quote: q, err: err})
}

func (e *Engine) latestQuote(ctx context.Context) (*oracle.Quote, error) {
	if p, ok := ctx.Value(quoteKey{}).(prefetched); ok {
		return p.quote, p.err
	}
	return e.oracle.LatestQuote(ctx, e.cfg.FeedID)
}

// ValidateQuote applies the freshness and quality rules to q.
func ValidateQuote(q *oracle.Quote, now, maxAge int64, maxConfBps uint64) error {
	if now > q.PublishTime && uint64(now)-uint64(q.PublishTime) > uint64(maxAge) {
		return domain.ErrStalePrice
	}
	if q.Price <= 0 {
		return domain.ErrInvalidPriceFeed
	}
	if q.Expo > MaxAbsExponent || q.Expo < -MaxAbsExponent {
		return domain.ErrInvalidPriceFeed
	}

	// conf / price > maxConfBps / 10_000
	lhs := new(uint256.Int).Mul(uint256.NewInt(q.Conf), uint256.NewInt(10_000))
	rhs := new(uint256.Int).Mul(uint256.NewInt(uint64(q.Price)), uint256.NewInt(maxConfBps))
	if lhs.Gt(rhs) {
		return domain.ErrInvalidPriceFeed
	}
	return nil
}

// NativeAmount converts amount tokens to native base units at the quoted
// price (price * 10^expo USD per native unit), rounding down:
//
//	floor(amount * 0.8 * 10^9 / (price * 10^expo))
func NativeAmount(amount uint64, price int64, expo int32) (uint64, error) {
	if price <= 0 || expo > MaxAbsExponent || expo < -MaxAbsExponent {
		return 0, domain.ErrInvalidPriceFeed
	}

	num := uint256.NewInt(amount)
	num.Mul(num, uint256.NewInt(TokenUSDNumerator))
	num.Mul(num, pow10(uint64(domain.NativeDecimals)))

	den := uint256.NewInt(uint64(price))
	den.Mul(den, uint256.NewInt(TokenUSDDenominator))

	if expo < 0 {
		num.Mul(num, pow10(uint64(-expo)))
	} else {
		den.Mul(den, pow10(uint64(expo)))
	}

	out := new(uint256.Int).Div(num, den)
	if !out.IsUint64() {
		return 0, domain.ErrMathOverflow
	}
	return out.Uint64(), nil
}

func pow10(n uint64) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(n))
}
