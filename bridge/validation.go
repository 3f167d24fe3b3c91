package bridge

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lambdaclass/agentwallet/units"
)

// MinEconomicalUSD is the default floor below which a bridge is
// rejected outright (spec.md §4.7.5).
var MinEconomicalUSD = big.NewInt(1_000_000) // $1.00 in usd6

// GasWarnShareBps and GasErrorShareBps are the 10%/50% gas-share
// thresholds from spec.md §4.7.5.
const (
	GasWarnShareBps  = 1000
	GasErrorShareBps = 5000
)

// burnAddresses are the well-known "nowhere" addresses a bridge must
// never mint to.
var burnAddresses = map[common.Address]bool{
	common.HexToAddress("0x0000000000000000000000000000000000000000"): true,
	common.HexToAddress("0x000000000000000000000000000000000000dEaD"): true,
}

// ValidationWarning is a non-blocking issue surfaced to the caller.
type ValidationWarning struct {
	Code    string
	Message string
}

// Validate runs every pre-initiation check from spec.md §4.7.5 and
// returns accumulated warnings (non-blocking) or the first blocking
// error encountered.
func Validate(req Request, recipientRawHex string, amountUSD, gasUSD *big.Int, allowedDestinations []int64, supportedChains []int64) ([]ValidationWarning, error) {
	var warnings []ValidationWarning

	if req.SourceChain == req.DestChain {
		return nil, &SameChainError{ChainID: req.SourceChain}
	}

	if len(supportedChains) > 0 && !containsInt64(supportedChains, req.DestChain) {
		return nil, &UnsupportedRouteError{
			Protocol:        req.Token,
			SourceChain:     req.SourceChain,
			DestChain:       req.DestChain,
			SupportedChains: supportedChains,
		}
	}

	if len(allowedDestinations) > 0 && !containsInt64(allowedDestinations, req.DestChain) {
		return nil, &DestinationNotAllowedError{DestChain: req.DestChain, Allowed: allowedDestinations}
	}

	if amountUSD.Cmp(MinEconomicalUSD) < 0 {
		return nil, &MinEconomicalAmountError{AmountUSD: amountUSD, MinUSD: MinEconomicalUSD}
	}

	if gasUSD != nil && gasUSD.Sign() > 0 && amountUSD.Sign() > 0 {
		shareBps := new(big.Int).Div(new(big.Int).Mul(gasUSD, big.NewInt(10_000)), amountUSD)
		if shareBps.Cmp(big.NewInt(GasErrorShareBps)) >= 0 {
			return nil, &ExcessiveGasShareError{GasUSD: gasUSD, AmountUSD: amountUSD}
		}
		if shareBps.Cmp(big.NewInt(GasWarnShareBps)) >= 0 {
			warnings = append(warnings, ValidationWarning{
				Code:    "gas_share_high",
				Message: "gas cost is at least 10% of the bridged amount",
			})
		}
	}

	if burnAddresses[req.Recipient] {
		return nil, &InvalidRecipientError{Recipient: req.Recipient.Hex()}
	}

	if recipientRawHex != "" && !isEIP55Checksummed(recipientRawHex, req.Recipient) {
		warnings = append(warnings, ValidationWarning{
			Code:    "recipient_checksum",
			Message: "recipient address does not match its EIP-55 checksum form",
		})
	}

	return warnings, nil
}

func containsInt64(xs []int64, v int64) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// isEIP55Checksummed reports whether the raw hex the caller supplied is
// either already in addr's canonical EIP-55 checksummed form, or is
// all-lowercase/all-uppercase. go-ethereum itself treats an
// all-one-case address as the canonical non-checksummed form rather
// than an invalid checksum, so only a mixed-case string that disagrees
// with addr.Hex() is actually checksum-invalid (spec.md §4.7.5:
// "non-blocking" warning on an invalid checksum).
func isEIP55Checksummed(rawHex string, addr common.Address) bool {
	hexPart := rawHex
	switch {
	case strings.HasPrefix(hexPart, "0x"), strings.HasPrefix(hexPart, "0X"):
		hexPart = hexPart[2:]
	default:
		return true
	}

	if hexPart == strings.ToLower(hexPart) || hexPart == strings.ToUpper(hexPart) {
		return true
	}

	return rawHex == addr.Hex()
}

// MinRawAmountFor converts MinEconomicalUSD into tok's raw units, for
// callers that want to pre-filter below the router's Validate call.
func MinRawAmountFor(decimals int) *big.Int {
	return units.FromUSD6(MinEconomicalUSD, decimals)
}
