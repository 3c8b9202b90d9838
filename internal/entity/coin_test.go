package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMicroRoundTrip(t *testing.T) {
	// integral micro amounts must survive the display round trip unchanged
	for _, micro := range []int64{0, 1, 999, 1000, 123456789, 1000000000000} {
		x := decimal.NewFromInt(micro)
		require.True(t, ToMicro(FromMicro(x)).Equal(x), "round trip of %d micro", micro)
	}
}

func TestFromMicro(t *testing.T) {
	tests := []struct {
		name     string
		micro    string
		expected string
	}{
		{name: "one token", micro: "1000000", expected: "1"},
		{name: "fractional", micro: "1500000", expected: "1.5"},
		{name: "sub-unit", micro: "1", expected: "0.000001"},
		{name: "zero", micro: "0", expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			micro, err := decimal.NewFromString(tt.micro)
			require.NoError(t, err)
			require.Equal(t, tt.expected, FromMicro(micro).String())
		})
	}
}

func TestToMicroTruncates(t *testing.T) {
	// precision below one micro unit is cut off, not rounded up
	amount, err := decimal.NewFromString("1.0000019")
	require.NoError(t, err)
	require.Equal(t, "1000001", ToMicro(amount).String())
}

func TestDisplayDenom(t *testing.T) {
	require.Equal(t, "JUNO", DisplayDenom("ujuno"))
	require.Equal(t, "ATOM", DisplayDenom("uatom"))
}

func TestCoinString(t *testing.T) {
	c := NewCoin(decimal.NewFromInt(1500000), "ujuno")
	require.Equal(t, "1.5 JUNO", c.String())
}
