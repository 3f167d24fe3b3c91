package bridge

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bridgeReq() Request {
	return Request{
		SourceChain: 1,
		DestChain:   10,
		Token:       "USDC",
		Amount:      big.NewInt(10_000_000),
		Recipient:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
	}
}

func TestRouterQuoteNoRegisteredAdapter(t *testing.T) {
	r := NewRouter(NewRegistry(), nil)
	_, err := r.Quote(context.Background(), bridgeReq(), Preference{Priority: PriorityCost})
	require.Error(t, err)
	var noRoute *NoRouteError
	require.ErrorAs(t, err, &noRoute)
}

func TestRouterQuoteAggregatesAndSelects(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeAdapter{
		name: "cctp", chains: []int64{1, 10}, reliability: 90,
		quote: Quote{Protocol: "cctp", Fees: FeeBreakdown{TotalUSD: big.NewInt(500_000)}, EstimatedTime: EstimatedTime{MinSeconds: 600, MaxSeconds: 900}},
	})
	registry.Register(&fakeAdapter{
		name: "across", chains: []int64{1, 10}, reliability: 85,
		quote: Quote{Protocol: "across", Fees: FeeBreakdown{TotalUSD: big.NewInt(10_200_000)}, EstimatedTime: EstimatedTime{MinSeconds: 30, MaxSeconds: 90}},
	})
	r := NewRouter(registry, nil)

	sel, err := r.Quote(context.Background(), bridgeReq(), Preference{Priority: PriorityCost})
	require.NoError(t, err)
	assert.Equal(t, "cctp", sel.Recommended.Quote.Protocol)
}

func TestRouterQuoteAllRoutesFailed(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeAdapter{name: "cctp", chains: []int64{1, 10}, quoteErr: assert.AnError})
	r := NewRouter(registry, nil)

	_, err := r.Quote(context.Background(), bridgeReq(), Preference{Priority: PriorityCost})
	require.Error(t, err)
	var allFailed *AllRoutesFailedError
	require.ErrorAs(t, err, &allFailed)
}

func TestRouterInitiateRejectsUnregisteredProtocol(t *testing.T) {
	r := NewRouter(NewRegistry(), nil)
	_, _, err := r.Initiate(context.Background(), "cctp", bridgeReq(), "", big.NewInt(10_000_000), big.NewInt(0))
	require.Error(t, err)
}

func TestRouterInitiateRejectsUnsupportedRoute(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeAdapter{name: "cctp", chains: []int64{1, 2}})
	r := NewRouter(registry, nil)

	_, _, err := r.Initiate(context.Background(), "cctp", bridgeReq(), "", big.NewInt(10_000_000), big.NewInt(0))
	require.Error(t, err)
	var unsupported *UnsupportedRouteError
	require.ErrorAs(t, err, &unsupported)
}

func TestRouterInitiateRejectsWhenUnavailable(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeAdapter{name: "cctp", chains: []int64{1, 10}, available: false})
	r := NewRouter(registry, nil)

	_, _, err := r.Initiate(context.Background(), "cctp", bridgeReq(), "", big.NewInt(10_000_000), big.NewInt(0))
	require.Error(t, err)
	var unavailable *ProtocolUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestRouterInitiateCreatesTrackingAndAdvances(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeAdapter{
		name: "cctp", chains: []int64{1, 10}, available: true,
		initResult: InitResult{Identifier: "0xDEADBEEF"},
	})
	r := NewRouter(registry, nil)

	trackingID, result, err := r.Initiate(context.Background(), "cctp", bridgeReq(), "", big.NewInt(10_000_000), big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, "bridge_cctp_1_10_0xdeadbeef", trackingID)
	assert.Equal(t, "0xDEADBEEF", result.Identifier)

	tr, ok := r.Tracking().Transfer(trackingID)
	require.True(t, ok)
	assert.Equal(t, StatusBurnConfirmed, tr.State)

	meta, ok := r.Tracking().GetMetadata(trackingID)
	require.True(t, ok)
	assert.Equal(t, int64(10), meta.DestinationChain)
}

func TestRouterInitiateRejectsDisallowedDestination(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeAdapter{name: "cctp", chains: []int64{1, 10}, available: true})
	r := NewRouter(registry, []int64{42})

	_, _, err := r.Initiate(context.Background(), "cctp", bridgeReq(), "", big.NewInt(10_000_000), big.NewInt(0))
	require.Error(t, err)
	var notAllowed *DestinationNotAllowedError
	require.ErrorAs(t, err, &notAllowed)
}

func TestRouterReconcileUnknownIDReturnsStale(t *testing.T) {
	r := NewRouter(NewRegistry(), nil)
	res, err := r.Reconcile(context.Background(), "bridge_cctp_1_10_nope")
	require.NoError(t, err)
	assert.Equal(t, StaleUnknownResult(), res)
}

func TestRouterReconcileMalformedIDErrors(t *testing.T) {
	r := NewRouter(NewRegistry(), nil)
	_, err := r.Reconcile(context.Background(), "not-a-tracking-id")
	require.Error(t, err)
}

func TestRouterReconcileAdvancesFromAdapterStatus(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeAdapter{
		name: "cctp", chains: []int64{1, 10}, available: true,
		initResult: InitResult{Identifier: "0xabc"},
		status:     StatusResult{State: StatusPendingMint, Progress: 80, Message: "minting"},
	})
	r := NewRouter(registry, nil)

	trackingID, _, err := r.Initiate(context.Background(), "cctp", bridgeReq(), "", big.NewInt(10_000_000), big.NewInt(0))
	require.NoError(t, err)

	res, err := r.Reconcile(context.Background(), trackingID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingMint, res.State)

	tr, ok := r.Tracking().Transfer(trackingID)
	require.True(t, ok)
	assert.Equal(t, StatusPendingMint, tr.State)
}

func TestRouterAwaitCompletionDrivesToCompleted(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeAdapter{
		name: "cctp", chains: []int64{1, 10}, available: true,
		initResult:  InitResult{Identifier: "0xabc"},
		attestation: Attestation{MessageBytes: []byte("msg"), Signature: []byte("sig")},
		status:      StatusResult{State: StatusCompleted, Progress: 100, Message: "minted"},
	})
	r := NewRouter(registry, nil)

	trackingID, _, err := r.Initiate(context.Background(), "cctp", bridgeReq(), "", big.NewInt(10_000_000), big.NewInt(0))
	require.NoError(t, err)

	res, err := r.AwaitCompletion(context.Background(), trackingID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.State)

	tr, ok := r.Tracking().Transfer(trackingID)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, tr.State)
}

func TestRouterAwaitCompletionTimesOutOnAttestationFailure(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeAdapter{
		name: "cctp", chains: []int64{1, 10}, available: true,
		initResult:     InitResult{Identifier: "0xabc"},
		attestationErr: assert.AnError,
	})
	r := NewRouter(registry, nil)

	trackingID, _, err := r.Initiate(context.Background(), "cctp", bridgeReq(), "", big.NewInt(10_000_000), big.NewInt(0))
	require.NoError(t, err)

	_, err = r.AwaitCompletion(context.Background(), trackingID)
	require.Error(t, err)
	var timeout *AttestationTimeoutError
	require.ErrorAs(t, err, &timeout)

	tr, ok := r.Tracking().Transfer(trackingID)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, tr.State)
}
