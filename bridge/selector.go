package bridge

import (
	"math/big"
	"sort"
)

// Priority is the caller's optimisation goal for route selection.
type Priority string

const (
	PriorityCost        Priority = "cost"
	PrioritySpeed        Priority = "speed"
	PriorityReliability Priority = "reliability"
)

// weights implements the table in spec.md §4.7.2.
var weights = map[Priority][4]float64{
	PriorityCost:        {0.50, 0.15, 0.25, 0.10},
	PrioritySpeed:       {0.15, 0.50, 0.25, 0.10},
	PriorityReliability: {0.20, 0.15, 0.50, 0.15},
}

// Preference configures filtering and scoring for SelectRoute.
type Preference struct {
	Priority       Priority
	MaxFeeUSD      *big.Int
	MaxTimeMinutes int // 0 means unbounded
	Preferred      []string
	Excluded       []string
}

// ScoredQuote pairs a quote with its computed score and component
// breakdown.
type ScoredQuote struct {
	Quote              Quote
	Score              float64
	CostScore          float64
	SpeedScore         float64
	ReliabilityScore   float64
	LiquidityScore     float64
}

// Selection is the result of SelectRoute.
type Selection struct {
	QuotesSortedByScoreDesc []ScoredQuote
	Recommended             *ScoredQuote
	Reason                  string
	SavingsUSD              *big.Int // fee saved vs the runner-up under cost priority; nil under other priorities, if negligible, or with no runner-up
}

// ReliabilityLookup resolves a protocol's registry reliability score,
// defaulting to 80 when unknown (spec.md §4.7.2).
type ReliabilityLookup func(protocol string) int

// SelectRoute filters and scores candidate quotes per spec.md §4.7.2.
func SelectRoute(quotes []Quote, pref Preference, reliability ReliabilityLookup) (*Selection, error) {
	filtered := filterQuotes(quotes, pref)
	if len(filtered) == 0 {
		return &Selection{}, &NoRouteError{Token: "", SourceChain: 0, DestChain: 0}
	}

	w := weights[pref.Priority]
	if w == [4]float64{} {
		w = weights[PriorityCost]
	}

	scored := make([]ScoredQuote, 0, len(filtered))
	for _, q := range filtered {
		cost := costScore(q)
		speed := speedScore(q)
		rel := reliabilityScore(q, reliability)
		liq := 100.0

		total := w[0]*cost + w[1]*speed + w[2]*rel + w[3]*liq
		scored = append(scored, ScoredQuote{
			Quote:            q,
			Score:            total,
			CostScore:        cost,
			SpeedScore:       speed,
			ReliabilityScore: rel,
			LiquidityScore:   liq,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Quote.Protocol < scored[j].Quote.Protocol
	})

	sel := &Selection{QuotesSortedByScoreDesc: scored}
	best := &scored[0]
	sel.Recommended = best
	sel.Reason = reasonFor(pref.Priority, *best)

	if len(scored) > 1 {
		sel.SavingsUSD = savingsAgainst(pref.Priority, *best, scored[1])
	}

	return sel, nil
}

func filterQuotes(quotes []Quote, pref Preference) []Quote {
	excluded := toSet(pref.Excluded)
	preferred := toSet(pref.Preferred)

	out := make([]Quote, 0, len(quotes))
	for _, q := range quotes {
		if pref.MaxFeeUSD != nil && q.Fees.TotalUSD.Cmp(pref.MaxFeeUSD) > 0 {
			continue
		}
		if pref.MaxTimeMinutes > 0 {
			maxSeconds := pref.MaxTimeMinutes * 60
			if q.EstimatedTime.MaxSeconds > maxSeconds {
				continue
			}
		}
		if excluded[q.Protocol] {
			continue
		}
		if len(preferred) > 0 && !preferred[q.Protocol] {
			continue
		}
		out = append(out, q)
	}
	return out
}

func toSet(xs []string) map[string]bool {
	s := make(map[string]bool, len(xs))
	for _, x := range xs {
		s[x] = true
	}
	return s
}

func costScore(q Quote) float64 {
	feeUSD := usd6ToFloat(q.Fees.TotalUSD)
	ratio := feeUSD / 100.0
	if ratio > 1 {
		ratio = 1
	}
	return 100 * (1 - ratio)
}

func speedScore(q Quote) float64 {
	avg := float64(q.EstimatedTime.MinSeconds+q.EstimatedTime.MaxSeconds) / 2
	ratio := avg / 3600.0
	if ratio > 1 {
		ratio = 1
	}
	return 100 * (1 - ratio)
}

func reliabilityScore(q Quote, lookup ReliabilityLookup) float64 {
	score := 80
	if lookup != nil {
		if s := lookup(q.Protocol); s > 0 {
			score = s
		}
	}
	return clampFloat(float64(score), 0, 100)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func usd6ToFloat(usd6 *big.Int) float64 {
	if usd6 == nil {
		return 0
	}
	f := new(big.Float).SetInt(usd6)
	f.Quo(f, big.NewFloat(1_000_000))
	v, _ := f.Float64()
	return v
}

func reasonFor(priority Priority, best ScoredQuote) string {
	switch priority {
	case PrioritySpeed:
		return "fastest available route"
	case PriorityReliability:
		return "most reliable available route"
	default:
		return "lowest cost available route"
	}
}

// savingsAgainst returns the USD fee the winner saves over the
// runner-up under cost priority, or nil when that saving is under
// $0.01. Under speed and reliability priority it always returns nil:
// time and reliability differences are not reported.
func savingsAgainst(priority Priority, best, runnerUp ScoredQuote) *big.Int {
	switch priority {
	case PriorityCost:
		delta := new(big.Int).Sub(runnerUp.Quote.Fees.TotalUSD, best.Quote.Fees.TotalUSD)
		if delta.CmpAbs(big.NewInt(10_000)) < 0 { // < $0.01 in usd6
			return nil
		}
		return delta
	case PrioritySpeed:
		bestAvg := (best.Quote.EstimatedTime.MinSeconds + best.Quote.EstimatedTime.MaxSeconds) / 2
		runnerAvg := (runnerUp.Quote.EstimatedTime.MinSeconds + runnerUp.Quote.EstimatedTime.MaxSeconds) / 2
		if runnerAvg-bestAvg < 60 {
			return nil
		}
		return nil // a time saving has no USD amount to report
	default:
		if best.ReliabilityScore-runnerUp.ReliabilityScore < 5 {
			return nil
		}
		return nil
	}
}
