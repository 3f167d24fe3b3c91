package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter is a minimal ProtocolAdapter stub for registry/router tests.
type fakeAdapter struct {
	name             string
	chains           []int64
	available        bool
	availableCalls   int
	reliability      int
	quote            Quote
	quoteErr         error
	initResult       InitResult
	initErr          error
	status           StatusResult
	statusErr        error
	attestation      Attestation
	attestationErr   error
}

func (a *fakeAdapter) Info() Info {
	return Info{Name: a.name, TypicalSpeed: SpeedFast, FinalityModel: FinalityAttestation}
}
func (a *fakeAdapter) SupportedChains() []int64 { return a.chains }
func (a *fakeAdapter) IsRouteSupported(src, dst int64, token string) bool {
	return containsInt64(a.chains, src) && containsInt64(a.chains, dst)
}
func (a *fakeAdapter) IsAvailable(ctx context.Context) bool {
	a.availableCalls++
	return a.available
}
func (a *fakeAdapter) Quote(ctx context.Context, req Request) (Quote, error) { return a.quote, a.quoteErr }
func (a *fakeAdapter) EstimateFees(ctx context.Context, req Request) (Fees, error) {
	return Fees{ProtocolUSD: a.quote.Fees.ProtocolUSD, GasUSD: a.quote.Fees.GasUSD}, a.quoteErr
}
func (a *fakeAdapter) Initiate(ctx context.Context, req Request) (InitResult, error) {
	return a.initResult, a.initErr
}
func (a *fakeAdapter) Status(ctx context.Context, identifier string) (StatusResult, error) {
	return a.status, a.statusErr
}
func (a *fakeAdapter) WaitForAttestation(ctx context.Context, identifier string) (Attestation, error) {
	return a.attestation, a.attestationErr
}
func (a *fakeAdapter) ReliabilityScore() int { return a.reliability }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	a := &fakeAdapter{name: "cctp", chains: []int64{1, 10}}
	r.Register(a)

	got, ok := r.Get("cctp")
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = r.Get("nope")
	assert.False(t, ok)
}

func TestRegistrySupportingRouteFiltersAndSorts(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeAdapter{name: "zeta", chains: []int64{1, 10}})
	r.Register(&fakeAdapter{name: "alpha", chains: []int64{1, 10}})
	r.Register(&fakeAdapter{name: "noroute", chains: []int64{1, 999}})

	out := r.SupportingRoute(1, 10, "USDC")
	require.Len(t, out, 2)
	assert.Equal(t, "alpha", out[0].Info().Name)
	assert.Equal(t, "zeta", out[1].Info().Name)
}

func TestRegistryIsAvailableCachesWithinTTL(t *testing.T) {
	r := NewRegistry()
	a := &fakeAdapter{name: "cctp", chains: []int64{1, 10}, available: true}
	r.Register(a)

	ok, err := r.IsAvailable(context.Background(), "cctp", 1_000)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second probe well within the 60s TTL reuses the cached value and
	// does not call IsAvailable again.
	ok, err = r.IsAvailable(context.Background(), "cctp", 1_500)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, a.availableCalls)

	// Flip the underlying adapter; a probe past the TTL picks it up.
	a.available = false
	ok, err = r.IsAvailable(context.Background(), "cctp", 1_000+61_000)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, a.availableCalls)
}

func TestRegistryIsAvailableUnknownProtocol(t *testing.T) {
	r := NewRegistry()
	_, err := r.IsAvailable(context.Background(), "nope", 0)
	require.Error(t, err)
}

func TestRegistryReliabilityScoreOfFallsBackToZero(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeAdapter{name: "cctp", reliability: 92})

	assert.Equal(t, 92, r.ReliabilityScoreOf("cctp"))
	assert.Equal(t, 0, r.ReliabilityScoreOf("nope"))
}
