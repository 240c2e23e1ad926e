package api

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     uint64
		wantErr  bool
	}{
		{"1", 9, 1_000_000_000, false},
		{"1.5", 9, 1_500_000_000, false},
		{"0.000000001", 9, 1, false},
		{"1000", 6, 1_000_000_000, false},
		{"0", 6, 0, false},
		{"18446744073.709551615", 9, math.MaxUint64, false},
		{"18446744073.709551616", 9, 0, true},
		{"0.0000001", 6, 0, true},
		{"-1", 6, 0, true},
		{"abc", 6, 0, true},
		{"", 6, 0, true},
		{"1e3", 6, 1_000_000_000, false},
		{"1e10000000", 9, 0, true},
		{"1e-10000000", 9, 0, true},
		{"1e11", 9, 0, true},
		{"0.00000000000000000000000000000000000000000000000000000000000000001", 9, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, 400, statusFor(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount_HugeExponentIsCheap(t *testing.T) {
	start := time.Now()
	for _, in := range []string{"1e10000000", "9e2147483647", "1e-2147483648"} {
		_, err := ParseAmount(in, 9)
		require.Error(t, err, in)
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.500000000", FormatAmount(1_500_000_000, 9))
	assert.Equal(t, "0.000001", FormatAmount(1, 6))
	assert.Equal(t, "18446744073.709551615", FormatAmount(math.MaxUint64, 9))

	back, err := ParseAmount(FormatAmount(123_456_789, 6), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(123_456_789), back)
}
