package cctp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambdaclass/agentwallet/bridge"
)

func testCCTPAdapter(t *testing.T, attestationBase string) *Adapter {
	t.Helper()
	a, err := NewAdapter(nil, nil, attestationBase, nil,
		Endpoint{ChainID: 1, Domain: 0, USDC: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")},
		Endpoint{ChainID: 10, Domain: 2, USDC: common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85")},
	)
	require.NoError(t, err)
	return a
}

func TestCCTPInfo(t *testing.T) {
	a := testCCTPAdapter(t, "")
	info := a.Info()
	assert.Equal(t, "cctp", info.Name)
	assert.False(t, info.HasProtocolFees)
	assert.Equal(t, bridge.FinalityAttestation, info.FinalityModel)
}

func TestCCTPSupportedChains(t *testing.T) {
	a := testCCTPAdapter(t, "")
	assert.ElementsMatch(t, []int64{1, 10}, a.SupportedChains())
}

func TestCCTPIsRouteSupported(t *testing.T) {
	a := testCCTPAdapter(t, "")
	assert.True(t, a.IsRouteSupported(1, 10, "USDC"))
	assert.True(t, a.IsRouteSupported(1, 10, "usdc"))
	assert.False(t, a.IsRouteSupported(1, 10, "USDT"))
	assert.False(t, a.IsRouteSupported(1, 1, "USDC"))
	assert.False(t, a.IsRouteSupported(1, 999, "USDC"))
}

func TestCCTPIsAvailableTrueOnAnyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	a := testCCTPAdapter(t, server.URL)
	assert.True(t, a.IsAvailable(context.Background()))
}

func TestCCTPIsAvailableFalseOnTransportFailure(t *testing.T) {
	a := testCCTPAdapter(t, "http://127.0.0.1:0")
	assert.False(t, a.IsAvailable(context.Background()))
}

func TestCCTPStatusReadyWhenAttestationComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(attestationResponse{Status: attestationComplete})
	}))
	defer server.Close()

	a := testCCTPAdapter(t, server.URL)
	res, err := a.Status(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, bridge.StatusAttestationReady, res.State)
}

func TestCCTPStatusPendingWhenAttestationNotYetComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(attestationResponse{Status: attestationPending})
	}))
	defer server.Close()

	a := testCCTPAdapter(t, server.URL)
	res, err := a.Status(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, bridge.StatusAttestationPending, res.State)
}

func TestCCTPWaitForAttestationUntrackedMessageFails(t *testing.T) {
	a := testCCTPAdapter(t, "")
	_, err := a.WaitForAttestation(context.Background(), "0xnever-burned")
	require.Error(t, err)
}

func TestCCTPWaitForAttestationRespectsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(attestationResponse{Status: attestationPending})
	}))
	defer server.Close()

	a := testCCTPAdapter(t, server.URL)
	a.mu.Lock()
	a.burns["0xabc"] = pendingBurn{MessageBytes: []byte("msg"), DestChainID: 10, Nonce: 1}
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.WaitForAttestation(ctx, "0xabc")
	require.Error(t, err)
}

func TestCCTPReliabilityScore(t *testing.T) {
	a := testCCTPAdapter(t, "")
	assert.Equal(t, 92, a.ReliabilityScore())
}
