package units

import "math/big"

// USD6Decimals is the canonical decimal base for USD-normalised amounts.
const USD6Decimals = 6

// ToUSD6 normalises a raw stablecoin amount to the canonical 6-decimal
// USD base: a left-shift when decimals <= 6, an integer division
// (truncating toward zero) otherwise. Policy: never round up.
func ToUSD6(raw *big.Int, decimals int) *big.Int {
	return Convert(raw, decimals, USD6Decimals)
}

// FromUSD6 converts a USD-6 amount back into a token's raw units,
// truncating toward zero. Used by limits.MaxSendable to turn a
// remaining USD ceiling back into a sendable raw amount.
func FromUSD6(usd6 *big.Int, decimals int) *big.Int {
	return Convert(usd6, USD6Decimals, decimals)
}

// FormatUSD6 renders a USD-6 amount as a "$X.YYYYYY"-free decimal string
// (no currency symbol), e.g. for log messages and remediation text.
func FormatUSD6(usd6 *big.Int) string {
	return FormatAmount(usd6, USD6Decimals)
}
