package bridge

import (
	"fmt"
	"math/big"
)

// SameChainError is returned when source and destination chain ids match.
type SameChainError struct {
	ChainID int64
}

func (e *SameChainError) Error() string {
	return fmt.Sprintf("source and destination chain are both %d", e.ChainID)
}

// UnsupportedRouteError lists the chains a token/protocol actually supports.
type UnsupportedRouteError struct {
	Protocol        string
	SourceChain     int64
	DestChain       int64
	SupportedChains []int64
}

func (e *UnsupportedRouteError) Error() string {
	return fmt.Sprintf("protocol %s does not support route %d -> %d (supports %v)",
		e.Protocol, e.SourceChain, e.DestChain, e.SupportedChains)
}

// DestinationNotAllowedError is returned when allowed_destinations is
// configured and the requested destination chain is not in it.
type DestinationNotAllowedError struct {
	DestChain int64
	Allowed   []int64
}

func (e *DestinationNotAllowedError) Error() string {
	return fmt.Sprintf("destination chain %d is not in the allowed destination list %v", e.DestChain, e.Allowed)
}

// QuoteExpiredError is returned when a quote's expiry has passed.
type QuoteExpiredError struct {
	ExpiredAtMs int64
}

func (e *QuoteExpiredError) Error() string {
	return fmt.Sprintf("quote expired at %d", e.ExpiredAtMs)
}

// SlippageExceededError is returned when actual output falls outside the
// quoted slippage bounds.
type SlippageExceededError struct {
	ExpectedBps int
	MaxBps      int
	ActualBps   int
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage %d bps exceeds max %d bps (expected %d)", e.ActualBps, e.MaxBps, e.ExpectedBps)
}

// AttestationTimeoutError is returned when the attestation poll loop
// exhausts its deadline.
type AttestationTimeoutError struct {
	TrackingID string
	WaitedMs   int64
}

func (e *AttestationTimeoutError) Error() string {
	return fmt.Sprintf("attestation for %s timed out after %dms", e.TrackingID, e.WaitedMs)
}

// BridgeCompletionError wraps a failure on the destination-side action
// (mint, receive-message, fill).
type BridgeCompletionError struct {
	TrackingID string
	Reason     string
}

func (e *BridgeCompletionError) Error() string {
	return fmt.Sprintf("bridge %s failed to complete: %s", e.TrackingID, e.Reason)
}

// AllRoutesFailedError is returned by the router when every candidate
// adapter rejected the request.
type AllRoutesFailedError struct {
	Attempts map[string]error
}

func (e *AllRoutesFailedError) Error() string {
	return fmt.Sprintf("all %d candidate routes failed", len(e.Attempts))
}

// NoRouteError is returned when no registered adapter supports the
// requested (source, dest, token) triple at all.
type NoRouteError struct {
	SourceChain int64
	DestChain   int64
	Token       string
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("no route for token %s from chain %d to chain %d", e.Token, e.SourceChain, e.DestChain)
}

// ProtocolUnavailableError is returned when an adapter's liveness probe
// fails.
type ProtocolUnavailableError struct {
	Protocol string
}

func (e *ProtocolUnavailableError) Error() string {
	return fmt.Sprintf("protocol %s is currently unavailable", e.Protocol)
}

// MinEconomicalAmountError is returned when the requested amount is below
// the router's configured floor.
type MinEconomicalAmountError struct {
	AmountUSD *big.Int
	MinUSD    *big.Int
}

func (e *MinEconomicalAmountError) Error() string {
	return fmt.Sprintf("amount %s usd is below the minimum economical bridge amount %s usd",
		e.AmountUSD.String(), e.MinUSD.String())
}

// ExcessiveGasShareError is returned when gas cost is at least half the
// bridged amount.
type ExcessiveGasShareError struct {
	GasUSD    *big.Int
	AmountUSD *big.Int
}

func (e *ExcessiveGasShareError) Error() string {
	return fmt.Sprintf("gas cost %s usd is too large a share of amount %s usd", e.GasUSD.String(), e.AmountUSD.String())
}

// InvalidRecipientError is returned for zero-address or known burn-address
// recipients.
type InvalidRecipientError struct {
	Recipient string
}

func (e *InvalidRecipientError) Error() string {
	return fmt.Sprintf("recipient %s is a zero or burn address", e.Recipient)
}
