package token

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AddressKind distinguishes trusted recipients from blocked ones.
type AddressKind string

const (
	KindTrusted AddressKind = "trusted"
	KindBlocked AddressKind = "blocked"
)

// AddressPolicyEntry is a single trust/block-list entry.
type AddressPolicyEntry struct {
	Address   common.Address
	Label     string
	Reason    string
	AddedAtMs int64
	Kind      AddressKind
}

// AddressPolicy holds the trust and block lists. The same address MUST
// NOT appear in both lists; Add enforces this at configuration time.
// Enforcement order at check time is blocklist first (spec.md §3).
type AddressPolicy struct {
	trusted map[common.Address]AddressPolicyEntry
	blocked map[common.Address]AddressPolicyEntry
}

// NewAddressPolicy constructs an empty policy.
func NewAddressPolicy() *AddressPolicy {
	return &AddressPolicy{
		trusted: make(map[common.Address]AddressPolicyEntry),
		blocked: make(map[common.Address]AddressPolicyEntry),
	}
}

// Add inserts an entry, rejecting an address already present on the
// opposite list.
func (p *AddressPolicy) Add(entry AddressPolicyEntry) error {
	switch entry.Kind {
	case KindTrusted:
		if _, blocked := p.blocked[entry.Address]; blocked {
			return fmt.Errorf("address %s is already blocked, cannot also trust it", entry.Address.Hex())
		}
		p.trusted[entry.Address] = entry
	case KindBlocked:
		if _, trusted := p.trusted[entry.Address]; trusted {
			return fmt.Errorf("address %s is already trusted, cannot also block it", entry.Address.Hex())
		}
		p.blocked[entry.Address] = entry
	default:
		return fmt.Errorf("unknown address policy kind %q", entry.Kind)
	}
	return nil
}

// IsBlocked reports whether addr is on the blocklist.
func (p *AddressPolicy) IsBlocked(addr common.Address) bool {
	_, ok := p.blocked[addr]
	return ok
}

// IsTrusted reports whether addr is on the trustlist.
func (p *AddressPolicy) IsTrusted(addr common.Address) bool {
	_, ok := p.trusted[addr]
	return ok
}

// NowMs returns the current wall-clock time in Unix milliseconds.
func NowMs() int64 {
	return time.Now().UnixMilli()
}
