package bridge

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cheapQuote() Quote {
	return Quote{
		Protocol:      "cctp",
		InputAmount:   big.NewInt(1_000_000_000),
		OutputAmount:  big.NewInt(1_000_000_000),
		Fees:          FeeBreakdown{ProtocolUSD: big.NewInt(0), GasUSD: big.NewInt(500_000), TotalUSD: big.NewInt(500_000)},
		EstimatedTime: EstimatedTime{MinSeconds: 600, MaxSeconds: 900},
	}
}

func fastQuote() Quote {
	return Quote{
		Protocol:      "across",
		InputAmount:   big.NewInt(1_000_000_000),
		OutputAmount:  big.NewInt(990_000_000),
		Fees:          FeeBreakdown{ProtocolUSD: big.NewInt(10_000_000), GasUSD: big.NewInt(200_000), TotalUSD: big.NewInt(10_200_000)},
		EstimatedTime: EstimatedTime{MinSeconds: 30, MaxSeconds: 90},
	}
}

func TestSelectRouteReturnsErrorWhenEmpty(t *testing.T) {
	_, err := SelectRoute(nil, Preference{Priority: PriorityCost}, nil)
	require.Error(t, err)
	var noRoute *NoRouteError
	require.ErrorAs(t, err, &noRoute)
}

func TestSelectRoutePrefersCheaperUnderCostPriority(t *testing.T) {
	sel, err := SelectRoute([]Quote{fastQuote(), cheapQuote()}, Preference{Priority: PriorityCost}, nil)
	require.NoError(t, err)
	require.NotNil(t, sel.Recommended)
	assert.Equal(t, "cctp", sel.Recommended.Quote.Protocol)
	assert.Equal(t, "lowest cost available route", sel.Reason)
}

func TestSelectRoutePrefersFasterUnderSpeedPriority(t *testing.T) {
	sel, err := SelectRoute([]Quote{cheapQuote(), fastQuote()}, Preference{Priority: PrioritySpeed}, nil)
	require.NoError(t, err)
	require.NotNil(t, sel.Recommended)
	assert.Equal(t, "across", sel.Recommended.Quote.Protocol)
	assert.Equal(t, "fastest available route", sel.Reason)
}

func TestSelectRouteUnknownPriorityFallsBackToCostWeights(t *testing.T) {
	sel, err := SelectRoute([]Quote{fastQuote(), cheapQuote()}, Preference{Priority: Priority("bogus")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "cctp", sel.Recommended.Quote.Protocol)
}

func TestSelectRouteFiltersByMaxFee(t *testing.T) {
	pref := Preference{Priority: PriorityCost, MaxFeeUSD: big.NewInt(1_000_000)}
	sel, err := SelectRoute([]Quote{fastQuote(), cheapQuote()}, pref, nil)
	require.NoError(t, err)
	require.Len(t, sel.QuotesSortedByScoreDesc, 1)
	assert.Equal(t, "cctp", sel.QuotesSortedByScoreDesc[0].Quote.Protocol)
}

func TestSelectRouteFiltersByMaxTime(t *testing.T) {
	pref := Preference{Priority: PriorityCost, MaxTimeMinutes: 2}
	sel, err := SelectRoute([]Quote{fastQuote(), cheapQuote()}, pref, nil)
	require.NoError(t, err)
	require.Len(t, sel.QuotesSortedByScoreDesc, 1)
	assert.Equal(t, "across", sel.QuotesSortedByScoreDesc[0].Quote.Protocol)
}

func TestSelectRouteExcludedProtocol(t *testing.T) {
	pref := Preference{Priority: PriorityCost, Excluded: []string{"cctp"}}
	sel, err := SelectRoute([]Quote{fastQuote(), cheapQuote()}, pref, nil)
	require.NoError(t, err)
	require.Len(t, sel.QuotesSortedByScoreDesc, 1)
	assert.Equal(t, "across", sel.QuotesSortedByScoreDesc[0].Quote.Protocol)
}

func TestSelectRoutePreferredAllowlist(t *testing.T) {
	pref := Preference{Priority: PriorityCost, Preferred: []string{"across"}}
	sel, err := SelectRoute([]Quote{fastQuote(), cheapQuote()}, pref, nil)
	require.NoError(t, err)
	require.Len(t, sel.QuotesSortedByScoreDesc, 1)
	assert.Equal(t, "across", sel.QuotesSortedByScoreDesc[0].Quote.Protocol)
}

func TestSelectRouteUsesReliabilityLookup(t *testing.T) {
	lookup := func(protocol string) int {
		if protocol == "across" {
			return 40
		}
		return 95
	}
	sel, err := SelectRoute([]Quote{fastQuote(), cheapQuote()}, Preference{Priority: PriorityReliability}, lookup)
	require.NoError(t, err)
	assert.Equal(t, "cctp", sel.Recommended.Quote.Protocol)
}

func TestSelectRouteSavingsAgainstRunnerUpForCost(t *testing.T) {
	sel, err := SelectRoute([]Quote{fastQuote(), cheapQuote()}, Preference{Priority: PriorityCost}, nil)
	require.NoError(t, err)
	require.NotNil(t, sel.SavingsUSD)
	assert.Equal(t, big.NewInt(9_700_000), sel.SavingsUSD)
}

func TestSelectRouteNegligibleSavingsOmitted(t *testing.T) {
	a := cheapQuote()
	b := cheapQuote()
	b.Protocol = "across"
	b.Fees.TotalUSD = big.NewInt(505_000) // < $0.01 difference
	sel, err := SelectRoute([]Quote{a, b}, Preference{Priority: PriorityCost}, nil)
	require.NoError(t, err)
	assert.Nil(t, sel.SavingsUSD)
}
