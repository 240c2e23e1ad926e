package pricing

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"diamond-token/internal/domain"
	"diamond-token/internal/oracle"
	"diamond-token/internal/oracle/mocks"
)

const now int64 = 1_700_000_000

var (
	assetA = Asset{Mint: MintUSDT, Decimals: 6}
	assetB = Asset{Mint: MintUSDC, Decimals: 6}
	native = Asset{Mint: MintWrappedSOL, Decimals: 9}
)

func TestPayment_Stable(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		amount  uint64
		asset   Asset
		want    uint64
		wantErr error
	}{
		{"asset A 1000 tokens", 1000 * 1_000_000_000, assetA, 1_000_000_000_000_000_000, nil},
		{"asset B 1000 tokens", 1000 * 1_000_000_000, assetB, 800_000_000_000_000_000, nil},
		{"asset A at floor", 1, assetA, 1_000_000, nil},
		{"asset B below floor", 1, assetB, 0, domain.ErrPurchaseTooSmall},
		{"asset B two units", 2, assetB, 1_600_000, nil},
		{"overflow", math.MaxUint64 / 1_000_000 * 2, assetA, 0, domain.ErrMathOverflow},
		{"unknown stable mint", 10, Asset{Mint: domain.Pubkey{7}, Decimals: 6}, 0, domain.ErrInvalidTokenAccount},
		{"unsupported decimals", 10, Asset{Mint: MintUSDT, Decimals: 8}, 0, domain.ErrInvalidDecimals},
		{"zero decimals", 10, Asset{Mint: MintUSDT, Decimals: 0}, 0, domain.ErrInvalidDecimals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Payment(ctx, tt.amount, tt.asset, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPayment_Native(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := mocks.NewMockOracle(ctrl)
	o.EXPECT().
		LatestQuote(gomock.Any(), SOLUSDFeedID).
		Return(&oracle.Quote{Price: 15_000_000_000, Conf: 5_000_000, Expo: -8, PublishTime: now - 10}, nil)

	e := NewEngine(DefaultConfig(), o)
	got, err := e.Payment(context.Background(), 1_000_000_000, native, now)
	require.NoError(t, err)
	// 1e9 * 0.8 * 1e9 / 150 rounded down
	assert.Equal(t, uint64(5_333_333_333_333_333), got)
}

func TestPayment_NativeQuoteRules(t *testing.T) {
	tests := []struct {
		name    string
		quote   *oracle.Quote
		err     error
		wantErr error
	}{
		{"oracle error", nil, errors.New("boom"), domain.ErrInvalidPriceFeed},
		{"nil quote", nil, nil, domain.ErrInvalidPriceFeed},
		{"stale by one second", &oracle.Quote{Price: 100, Expo: 0, PublishTime: now - 61}, nil, domain.ErrStalePrice},
		{"zero price", &oracle.Quote{Price: 0, Expo: 0, PublishTime: now}, nil, domain.ErrInvalidPriceFeed},
		{"negative price", &oracle.Quote{Price: -5, Expo: 0, PublishTime: now}, nil, domain.ErrInvalidPriceFeed},
		{"exponent out of range", &oracle.Quote{Price: 100, Expo: -19, PublishTime: now}, nil, domain.ErrInvalidPriceFeed},
		{"confidence above 1%", &oracle.Quote{Price: 10_000, Conf: 101, Expo: 0, PublishTime: now}, nil, domain.ErrInvalidPriceFeed},
		{"result below floor", &oracle.Quote{Price: 1_000_000_000_000, Expo: -8, PublishTime: now}, nil, domain.ErrPurchaseTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			o := mocks.NewMockOracle(ctrl)
			o.EXPECT().LatestQuote(gomock.Any(), gomock.Any()).Return(tt.quote, tt.err)

			_, err := NewEngine(DefaultConfig(), o).Payment(context.Background(), 1, native, now)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPayment_NativeBoundaries(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := mocks.NewMockOracle(ctrl)
	// exactly 60s old and exactly 1% confidence are accepted
	o.EXPECT().LatestQuote(gomock.Any(), gomock.Any()).
		Return(&oracle.Quote{Price: 3, Conf: 0, Expo: 0, PublishTime: now - 60}, nil)
	o.EXPECT().LatestQuote(gomock.Any(), gomock.Any()).
		Return(&oracle.Quote{Price: 10_000, Conf: 100, Expo: 0, PublishTime: now}, nil)

	e := NewEngine(DefaultConfig(), o)

	got, err := e.Payment(context.Background(), 1, native, now)
	require.NoError(t, err)
	assert.Equal(t, uint64(266_666_666), got)

	got, err = e.Payment(context.Background(), 1000, native, now)
	require.NoError(t, err)
	assert.Equal(t, uint64(80_000_000), got)
}

func TestPayment_NativeWrongMint(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := mocks.NewMockOracle(ctrl)

	_, err := NewEngine(DefaultConfig(), o).Payment(context.Background(), 1, Asset{Mint: MintUSDT, Decimals: 9}, now)
	assert.ErrorIs(t, err, domain.ErrInvalidTokenAccount)
}

func TestPayment_NativeWithoutOracle(t *testing.T) {
	_, err := NewEngine(DefaultConfig(), nil).Payment(context.Background(), 1, native, now)
	assert.ErrorIs(t, err, domain.ErrInvalidPriceFeed)
}

func TestNativeAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  uint64
		price   int64
		expo    int32
		want    uint64
		wantErr error
	}{
		{"rounds down", 1, 3, 0, 266_666_666, nil},
		{"positive exponent", 1, 2, 1, 40_000_000, nil},
		{"negative exponent", 10, 25, -1, 3_200_000_000, nil},
		{"overflow", math.MaxUint64, 1, 0, 0, domain.ErrMathOverflow},
		{"zero amount", 0, 100, -2, 0, nil},
		{"bad price", 1, 0, 0, 0, domain.ErrInvalidPriceFeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NativeAmount(tt.amount, tt.price, tt.expo)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNativeAmount_Deterministic(t *testing.T) {
	first, err := NativeAmount(123_456_789, 14_237_891_234, -8)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		got, err := NativeAmount(123_456_789, 14_237_891_234, -8)
		require.NoError(t, err)
		require.Equal(t, first, got)
	}
}

func TestPrefetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := mocks.NewMockOracle(ctrl)
	o.EXPECT().
		LatestQuote(gomock.Any(), SOLUSDFeedID).
		Return(&oracle.Quote{Price: 15_000_000_000, Expo: -8, PublishTime: now}, nil).
		Times(1)

	e := NewEngine(DefaultConfig(), o)
	ctx := e.Prefetch(context.Background(), native)

	for i := 0; i < 3; i++ {
		got, err := e.Payment(ctx, 1_000_000_000, native, now)
		require.NoError(t, err)
		assert.Equal(t, uint64(5_333_333_333_333_333), got)
	}

	base := context.Background()
	assert.Equal(t, base, e.Prefetch(base, assetA), "stable assets need no quote")
}

func TestPrefetch_CarriesOracleError(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := mocks.NewMockOracle(ctrl)
	o.EXPECT().LatestQuote(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout")).Times(1)

	e := NewEngine(DefaultConfig(), o)
	ctx := e.Prefetch(context.Background(), native)

	_, err := e.Payment(ctx, 1_000_000_000, native, now)
	assert.ErrorIs(t, err, domain.ErrInvalidPriceFeed)
}
