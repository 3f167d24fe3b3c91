// Package nonce serialises nonce allocation per (chain, sender),
// generalising the ad hoc "fetch pending count, hand out one nonce"
// snippet duplicated across the teacher's swap providers into a single
// coordinator that tracks in-flight allocations and resyncs on failure.
package nonce

import (
	"context"
	"sync"
)

// ChainClient is the minimal dependency a Coordinator needs: reading
// the pending transaction count for an account.
type ChainClient interface {
	PendingNonce(ctx context.Context) (uint64, error)
}

// Coordinator maintains pending_nonce and inflight_count for a single
// sender on a single chain. All mutating operations are serialised by
// mu per spec.md §4.4's invariant: at most one allocate() executes at
// a time per coordinator.
type Coordinator struct {
	mu            sync.Mutex
	client        ChainClient
	synced        bool
	pendingNonce  uint64
	inflightCount int
}

// New creates a coordinator bound to a chain client for one sender.
func New(client ChainClient) *Coordinator {
	return &Coordinator{client: client}
}

// Allocate returns the next nonce to use, fetching the on-chain pending
// count on first use. Nonces handed out without an intervening reset
// are strictly increasing by 1 (spec.md §8).
func (c *Coordinator) Allocate(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.synced {
		if err := c.syncLocked(ctx); err != nil {
			return 0, err
		}
	}

	n := c.pendingNonce
	c.pendingNonce++
	c.inflightCount++
	return n, nil
}

// OnConfirmed decrements the in-flight counter after a transaction is
// mined, never going below zero.
func (c *Coordinator) OnConfirmed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflightCount > 0 {
		c.inflightCount--
	}
}

// OnFailed resyncs pending_nonce from chain and clears in-flight count,
// per spec.md §4.4 and the §7 policy "on a write failure between nonce
// allocation and chain acceptance, the coordinator performs reset() to
// resync".
func (c *Coordinator) OnFailed(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetLocked(ctx)
}

// Reset forces a resync from chain, clearing in-flight count.
func (c *Coordinator) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetLocked(ctx)
}

// resetLocked clears the in-flight count and always resyncs
// pending_nonce from chain. It MUST only run while holding the mutex
// (spec.md §4.4); both call paths here already hold c.mu.
func (c *Coordinator) resetLocked(ctx context.Context) error {
	c.synced = false
	c.inflightCount = 0
	return c.syncLocked(ctx)
}

func (c *Coordinator) syncLocked(ctx context.Context) error {
	n, err := c.client.PendingNonce(ctx)
	if err != nil {
		return err
	}
	c.pendingNonce = n
	c.synced = true
	return nil
}

// InflightCount reports the number of allocations not yet confirmed.
func (c *Coordinator) InflightCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflightCount
}

// Registry keys coordinators by (chain id, sender address) so the
// wallet facade can own exactly one coordinator per pair, per spec.md
// §3's lifecycle-ownership rule.
type Registry struct {
	mu           sync.Mutex
	coordinators map[registryKey]*Coordinator
}

type registryKey struct {
	chainID int64
	sender  string
}

func NewRegistry() *Registry {
	return &Registry{coordinators: make(map[registryKey]*Coordinator)}
}

// GetOrCreate returns the existing coordinator for (chainID, sender) or
// creates one backed by newClient if none exists yet.
func (r *Registry) GetOrCreate(chainID int64, sender string, newClient func() ChainClient) *Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{chainID, sender}
	if c, ok := r.coordinators[key]; ok {
		return c
	}
	c := New(newClient())
	r.coordinators[key] = c
	return c
}
