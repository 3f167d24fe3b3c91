package evmchain

import (
	"context"
	"fmt"
	"math/big"
)

// GasPolicy configures the clamping and multiplier behaviour of
// EstimateFees, per spec.md §4.3.
type GasPolicy struct {
	MinPriorityFeeWei *big.Int // default 1 gwei
	MinFeeWei         *big.Int // default 1 gwei
	MaxFeeWei         *big.Int // default 500 gwei
	GasLimitMultiplier float64 // default 1.1
}

var gwei = big.NewInt(1_000_000_000)

// DefaultGasPolicy returns the spec's documented defaults.
func DefaultGasPolicy() GasPolicy {
	return GasPolicy{
		MinPriorityFeeWei:  new(big.Int).Set(gwei),
		MinFeeWei:          new(big.Int).Set(gwei),
		MaxFeeWei:          new(big.Int).Mul(big.NewInt(500), gwei),
		GasLimitMultiplier: 1.1,
	}
}

// GasEstimate is the resolved fee parameters for one of three speed
// tiers.
type GasEstimate struct {
	GasLimit             uint64
	Legacy               bool
	GasPrice             *big.Int // set when Legacy
	MaxFeePerGas         *big.Int // set when !Legacy
	MaxPriorityFeePerGas *big.Int // set when !Legacy
}

// FeeTiers bundles the slow/standard/fast estimates for one gas
// estimate call.
type FeeTiers struct {
	Slow, Standard, Fast GasEstimate
}

// feeHistoryResult mirrors the eth_feeHistory response shape.
type feeHistoryResult struct {
	BaseFeePerGas []*big.Int
	Reward        [][]*big.Int
}

// EstimateFees resolves slow/standard/fast fee tiers for a call,
// applying the gas-limit multiplier and clamping all prices into
// [MinFeeWei, MaxFeeWei] per spec.md §4.3.
func (c *Client) EstimateFees(ctx context.Context, gasLimit uint64, policy GasPolicy) (FeeTiers, error) {
	scaledLimit := uint64(float64(gasLimit) * policy.GasLimitMultiplier)

	eip1559, err := c.SupportsEIP1559(ctx)
	if err != nil {
		return FeeTiers{}, err
	}

	if eip1559 {
		return c.estimateEIP1559Fees(ctx, scaledLimit, policy)
	}
	return c.estimateLegacyFees(ctx, scaledLimit, policy)
}

// estimateEIP1559Fees queries a 10-block fee history at the {10,50,90}
// percentiles and derives max_fee_per_gas = 2*base_fee + priority_fee
// per spec.md §4.3. The reward shape is blocks x percentiles; per
// spec.md §9 we take the percentile across blocks (median-like), not
// the mean, to resist outliers.
func (c *Client) estimateEIP1559Fees(ctx context.Context, gasLimit uint64, policy GasPolicy) (FeeTiers, error) {
	var raw struct {
		OldestBlock   string     `json:"oldestBlock"`
		BaseFeePerGas []string   `json:"baseFeePerGas"`
		Reward        [][]string `json:"reward"`
	}
	err := c.rpc.CallContext(ctx, &raw, "eth_feeHistory", "0xa", "latest", []int{10, 50, 90})
	if err != nil {
		return FeeTiers{}, fmt.Errorf("eth_feeHistory: %w", classify(err))
	}

	latestBase, ok := new(big.Int).SetString(trimHex(raw.BaseFeePerGas[len(raw.BaseFeePerGas)-1]), 16)
	if !ok {
		return FeeTiers{}, fmt.Errorf("eth_feeHistory: malformed baseFeePerGas")
	}

	priority := [3]*big.Int{big.NewInt(0), big.NewInt(0), big.NewInt(0)}
	for i := 0; i < 3; i++ {
		priority[i] = percentileAcrossBlocks(raw.Reward, i)
	}

	clampPriority := func(p *big.Int) *big.Int {
		if p.Cmp(policy.MinPriorityFeeWei) < 0 {
			return new(big.Int).Set(policy.MinPriorityFeeWei)
		}
		return p
	}

	build := func(p *big.Int) GasEstimate {
		priorityFee := clampPriority(p)
		maxFee := new(big.Int).Add(new(big.Int).Mul(big.NewInt(2), latestBase), priorityFee)
		return GasEstimate{
			GasLimit:             gasLimit,
			Legacy:               false,
			MaxFeePerGas:         clamp(maxFee, policy.MinFeeWei, policy.MaxFeeWei),
			MaxPriorityFeePerGas: clamp(priorityFee, policy.MinFeeWei, policy.MaxFeeWei),
		}
	}

	return FeeTiers{
		Slow:     build(priority[0]),
		Standard: build(priority[1]),
		Fast:     build(priority[2]),
	}, nil
}

// estimateLegacyFees scales eth_gasPrice by +/-10-20% for the three
// tiers, per spec.md §4.3.
func (c *Client) estimateLegacyFees(ctx context.Context, gasLimit uint64, policy GasPolicy) (FeeTiers, error) {
	base, err := c.GasPrice(ctx)
	if err != nil {
		return FeeTiers{}, err
	}

	scale := func(numerator, denominator int64) GasEstimate {
		price := new(big.Int).Mul(base, big.NewInt(numerator))
		price.Div(price, big.NewInt(denominator))
		return GasEstimate{
			GasLimit: gasLimit,
			Legacy:   true,
			GasPrice: clamp(price, policy.MinFeeWei, policy.MaxFeeWei),
		}
	}

	return FeeTiers{
		Slow:     scale(90, 100),
		Standard: scale(100, 100),
		Fast:     scale(120, 100),
	}, nil
}

func clamp(v, min, max *big.Int) *big.Int {
	if v.Cmp(min) < 0 {
		return new(big.Int).Set(min)
	}
	if v.Cmp(max) > 0 {
		return new(big.Int).Set(max)
	}
	return v
}

// percentileAcrossBlocks takes index i (0,1,2 for the three requested
// percentiles) from each block's reward row, then returns the median
// of those per-block values across all blocks.
func percentileAcrossBlocks(reward [][]string, i int) *big.Int {
	var values []*big.Int
	for _, row := range reward {
		if i >= len(row) {
			continue
		}
		v, ok := new(big.Int).SetString(trimHex(row[i]), 16)
		if ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return big.NewInt(0)
	}
	return medianBigInt(values)
}

func medianBigInt(values []*big.Int) *big.Int {
	sorted := make([]*big.Int, len(values))
	copy(sorted, values)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Cmp(sorted[j]) > 0; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted[len(sorted)/2]
}

func trimHex(s string) string {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
