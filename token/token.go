// Package token describes tokens whose balances are tracked across
// multiple EVM chains, and validates their per-chain address tables at
// load time so a malformed entry fails fast rather than silently
// routing funds to the wrong contract.
package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// MaxDecimals is the invariant ceiling on a token's decimals field.
const MaxDecimals = 36

// Descriptor is a token's cross-chain identity. Two Quote/Send calls
// refer to "the same token" iff they hold a reference to the same
// Descriptor value (spec.md §3: "same across chains iff the descriptor
// reference is the same").
type Descriptor struct {
	Symbol    string
	Name      string
	Decimals  int
	Addresses map[int64]common.Address

	// Stablecoin marks tokens eligible for USD-6 normalisation via
	// units.ToUSD6 without an external price oracle.
	Stablecoin bool
}

// NewDescriptor validates and constructs a token descriptor. Every
// address-table entry is checked for a well-formed 20-byte hex address;
// a malformed entry is rejected here rather than discovered later at
// send time (spec.md §9: "implementers MUST validate all address-table
// entries at load time and fail fast on malformed addresses").
func NewDescriptor(symbol, name string, decimals int, addrs map[int64]string, stablecoin bool) (*Descriptor, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, fmt.Errorf("token %s: decimals %d exceeds maximum %d", symbol, decimals, MaxDecimals)
	}

	resolved := make(map[int64]common.Address, len(addrs))
	for chainID, raw := range addrs {
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("token %s: malformed address %q for chain %d", symbol, raw, chainID)
		}
		resolved[chainID] = common.HexToAddress(raw)
	}

	return &Descriptor{
		Symbol:     symbol,
		Name:       name,
		Decimals:   decimals,
		Addresses:  resolved,
		Stablecoin: stablecoin,
	}, nil
}

// AddressOn returns the token's contract address on the given chain.
func (d *Descriptor) AddressOn(chainID int64) (common.Address, bool) {
	addr, ok := d.Addresses[chainID]
	return addr, ok
}

// SupportsChain reports whether the token has a known address on chainID.
func (d *Descriptor) SupportsChain(chainID int64) bool {
	_, ok := d.Addresses[chainID]
	return ok
}
