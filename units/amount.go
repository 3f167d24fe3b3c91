// Package units implements fixed-point integer arithmetic for on-chain
// token amounts. Amounts are never represented as floating point;
// every raw value is a non-negative big.Int interpreted against a
// token's decimals field.
package units

import (
	"fmt"
	"math/big"
	"strings"
)

// ErrInvalidAmount is returned by ParseAmount for malformed input.
type ErrInvalidAmount struct {
	Input  string
	Reason string
}

func (e *ErrInvalidAmount) Error() string {
	return fmt.Sprintf("invalid amount %q: %s", e.Input, e.Reason)
}

var bigTen = big.NewInt(10)

// pow10 returns 10^n as a new big.Int.
func pow10(n int) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

// ParseAmount parses a non-negative decimal literal (digits, optional
// single '.', commas stripped) into a raw integer scaled to decimals.
// Fractional digits beyond decimals are truncated, never rounded.
// Scientific notation, empty input, and a lone "." are rejected.
func ParseAmount(text string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > 36 {
		return nil, &ErrInvalidAmount{text, "decimals out of range"}
	}

	s := strings.ReplaceAll(text, ",", "")
	if s == "" {
		return nil, &ErrInvalidAmount{text, "empty"}
	}
	if s == "." {
		return nil, &ErrInvalidAmount{text, "lone decimal point"}
	}
	if strings.ContainsAny(s, "eE+-") {
		return nil, &ErrInvalidAmount{text, "scientific notation or sign not allowed"}
	}

	var intPart, fracPart string
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		intPart = s
	} else {
		intPart = s[:dot]
		fracPart = s[dot+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return nil, &ErrInvalidAmount{text, "multiple decimal points"}
		}
	}

	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return nil, &ErrInvalidAmount{text, "non-digit in integer part"}
		}
	}
	for _, r := range fracPart {
		if r < '0' || r > '9' {
			return nil, &ErrInvalidAmount{text, "non-digit in fractional part"}
		}
	}

	if len(fracPart) > decimals {
		fracPart = fracPart[:decimals]
	}
	fracPart = fracPart + strings.Repeat("0", decimals-len(fracPart))

	combined := intPart + fracPart
	combined = strings.TrimLeft(combined, "0")
	if combined == "" {
		combined = "0"
	}

	raw, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, &ErrInvalidAmount{text, "not a valid integer"}
	}
	return raw, nil
}

// FormatAmount renders a raw integer as a decimal string with the given
// number of decimals, trimming trailing fractional zeros. The output is
// always a valid input to ParseAmount for the same decimals.
func FormatAmount(raw *big.Int, decimals int) string {
	if raw == nil {
		raw = big.NewInt(0)
	}
	s := raw.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	if decimals == 0 {
		if neg {
			s = "-" + s
		}
		return s
	}

	for len(s) <= decimals {
		s = "0" + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := s[len(s)-decimals:]
	fracPart = strings.TrimRight(fracPart, "0")

	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

// Convert rescales a raw amount expressed with fromDecimals into an
// amount expressed with toDecimals, truncating toward zero.
func Convert(raw *big.Int, fromDecimals, toDecimals int) *big.Int {
	if fromDecimals == toDecimals {
		return new(big.Int).Set(raw)
	}
	if toDecimals > fromDecimals {
		return new(big.Int).Mul(raw, pow10(toDecimals-fromDecimals))
	}
	return new(big.Int).Div(raw, pow10(fromDecimals-toDecimals))
}
