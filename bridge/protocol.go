// Package bridge implements cross-chain transfer orchestration: a
// pluggable protocol registry, a scoring-based route selector, a
// tracking-id registry, and the unified burn/attest/mint state machine.
// The adapter-plus-manager shape is grounded on the teacher's
// swaps.Provider / swaps.Manager pair (swaps/provider.go,
// swaps/manager.go), generalised from "best-output swap" to
// "best-scored cross-chain route".
package bridge

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Speed classifies how quickly a protocol typically completes a transfer.
type Speed string

const (
	SpeedInstant  Speed = "instant"
	SpeedFast     Speed = "fast"
	SpeedStandard Speed = "standard"
	SpeedSlow     Speed = "slow"
)

// FinalityModel names the trust mechanism a protocol relies on.
type FinalityModel string

const (
	FinalityAttestation FinalityModel = "attestation"
	FinalityOptimistic  FinalityModel = "optimistic"
	FinalityLockAndMint FinalityModel = "lock-and-mint"
)

// Info describes a protocol adapter's static properties.
type Info struct {
	Name             string
	DisplayName      string
	SupportedTokens  []string
	TypicalSpeed     Speed
	FinalityModel    FinalityModel
	HasProtocolFees  bool
}

// Request is the common input to Quote, EstimateFees, and Initiate.
type Request struct {
	SourceChain   int64
	DestChain     int64
	Token         string
	TokenAddress  common.Address
	Amount        *big.Int
	Recipient     common.Address
	Sender        common.Address
}

// FeeBreakdown separates protocol and gas cost, both USD-6.
type FeeBreakdown struct {
	ProtocolUSD *big.Int
	GasUSD      *big.Int
	TotalUSD    *big.Int
}

// Slippage bounds the acceptable output deviation, in basis points.
type Slippage struct {
	ExpectedBps int
	MaxBps      int
}

// EstimatedTime bounds the expected completion window.
type EstimatedTime struct {
	MinSeconds int
	MaxSeconds int
	Display    string
}

// Quote is a single candidate route's priced terms.
type Quote struct {
	Protocol        string
	InputAmount     *big.Int
	OutputAmount    *big.Int
	Fees            FeeBreakdown
	Slippage        *Slippage
	EstimatedTime   EstimatedTime
	RouteDescription string
	ExpiryMs        int64 // 0 means no expiry
}

// Fees is the standalone estimate returned by EstimateFees.
type Fees struct {
	ProtocolUSD *big.Int
	GasUSD      *big.Int
}

// InitResult is what Initiate returns once the source-chain action has
// been submitted.
type InitResult struct {
	Identifier    string
	TxHash        common.Hash
	MessageBytes  []byte
	Nonce         *uint64
}

// StatusResult is a point-in-time read of a transfer's progress.
type StatusResult struct {
	State    Status
	Progress int
	Message  string
}

// Attestation is the off-chain proof a destination contract consumes to
// authorise completion.
type Attestation struct {
	MessageBytes []byte
	Signature    []byte
}

// ProtocolAdapter is the contract every bridge protocol implementation
// satisfies, per spec.md §4.7.1.
type ProtocolAdapter interface {
	Info() Info
	SupportedChains() []int64
	IsRouteSupported(src, dst int64, token string) bool
	IsAvailable(ctx context.Context) bool
	Quote(ctx context.Context, req Request) (Quote, error)
	EstimateFees(ctx context.Context, req Request) (Fees, error)
	Initiate(ctx context.Context, req Request) (InitResult, error)
	Status(ctx context.Context, identifier string) (StatusResult, error)
	WaitForAttestation(ctx context.Context, identifier string) (Attestation, error)
	ReliabilityScore() int
}
