package units

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals int
		want     string
		wantErr  bool
	}{
		{name: "whole number", input: "100", decimals: 6, want: "100000000"},
		{name: "fractional", input: "1.5", decimals: 6, want: "1500000"},
		{name: "commas stripped", input: "1,234.56", decimals: 6, want: "1234560000"},
		{name: "truncates excess fraction digits", input: "1.123456789", decimals: 6, want: "1123456"},
		{name: "leading dot", input: ".5", decimals: 6, want: "500000"},
		{name: "zero decimals", input: "42", decimals: 0, want: "42"},
		{name: "empty rejected", input: "", decimals: 6, wantErr: true},
		{name: "lone dot rejected", input: ".", decimals: 6, wantErr: true},
		{name: "scientific notation rejected", input: "1e10", decimals: 6, wantErr: true},
		{name: "negative rejected", input: "-1", decimals: 6, wantErr: true},
		{name: "multiple dots rejected", input: "1.2.3", decimals: 6, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals int
		want     string
	}{
		{name: "whole", raw: "100000000", decimals: 6, want: "100"},
		{name: "fractional trims zeros", raw: "1500000", decimals: 6, want: "1.5"},
		{name: "zero", raw: "0", decimals: 6, want: "0"},
		{name: "small fraction needs padding", raw: "5", decimals: 6, want: "0.000005"},
		{name: "zero decimals", raw: "42", decimals: 0, want: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, ok := new(big.Int).SetString(tt.raw, 10)
			require.True(t, ok)
			got := FormatAmount(raw, tt.decimals)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmountRoundtrip(t *testing.T) {
	decimalsToTest := []int{0, 2, 6, 8, 18}
	rawsToTest := []string{"0", "1", "5", "1000000000000", "999999999999999999"}

	for _, d := range decimalsToTest {
		for _, r := range rawsToTest {
			raw, ok := new(big.Int).SetString(r, 10)
			require.True(t, ok)

			formatted := FormatAmount(raw, d)
			parsed, err := ParseAmount(formatted, d)
			require.NoError(t, err)
			assert.Equal(t, raw.String(), parsed.String(), "roundtrip failed for raw=%s decimals=%d formatted=%s", r, d, formatted)
		}
	}
}

func TestToUSD6Monotonicity(t *testing.T) {
	decimalsToTest := []int{2, 6, 8, 18}
	for _, d := range decimalsToTest {
		a := big.NewInt(1000)
		b := big.NewInt(2000)
		usdA := ToUSD6(a, d)
		usdB := ToUSD6(b, d)
		assert.True(t, usdA.Cmp(usdB) <= 0, "monotonicity violated at decimals=%d", d)
	}
}

func TestToUSD6Shift(t *testing.T) {
	// USDC-like, 6 decimals: no shift.
	assert.Equal(t, "1000000", ToUSD6(big.NewInt(1000000), 6).String())
	// A 2-decimal stablecoin: left-shift by 4.
	assert.Equal(t, "10000000", ToUSD6(big.NewInt(1000), 2).String())
	// An 18-decimal stablecoin: truncating division by 1e12.
	raw, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, "1500000", ToUSD6(raw, 18).String())
}
