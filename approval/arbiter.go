// Package approval implements the human-in-the-loop gate invoked before
// any signing that writes to chain. The pending-map-plus-waiter pattern
// is grounded on the teacher's resolver.Cache[T] double-checked-locking
// idiom (sync.RWMutex, re-check after acquiring the write lock),
// adapted here from "cache a computed value" to "wait for an external
// decision" using one sync.Cond per pending id, per spec.md §4.6/§5.
package approval

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/lambdaclass/agentwallet/token"
)

// State is a request's lifecycle stage. Transitions are terminal once
// reaching approved, rejected, or expired (spec.md §3).
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
	StateExpired  State = "expired"
)

// DefaultTimeout is the approval_timeout_ms default of spec.md §3.
const DefaultTimeout = 60 * time.Minute

// Request is a pending or resolved approval request.
type Request struct {
	ID          string
	Summary     string
	Details     map[string]any
	AmountUSD   *big.Int
	Recipient   common.Address
	CreatedAtMs int64

	mu    sync.Mutex
	cond  *sync.Cond
	state State
}

// State returns the request's current lifecycle state.
func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Policy configures when the arbiter requires human approval, per
// spec.md §4.6.
type Policy struct {
	AmountExceedsUSD *big.Int
	RecipientIsNew   bool
	Timeout          time.Duration
}

// Handler is the external collaborator (a host program's UI, CLI, or
// chat bot) that resolves pending requests. The arbiter never assumes a
// particular transport; it only exposes the pending request and waits.
type Handler interface {
	// OnApprovalRequested is called once per new pending request so the
	// host can surface it to a human. The host resolves the request by
	// calling Arbiter.Approve or Arbiter.Reject with req.ID.
	OnApprovalRequested(req *Request)
}

// Decision records an audit trail entry for a resolved request,
// matching spec.md §4.6's "recorded alongside the action (timestamp,
// decision, decider tag)".
type Decision struct {
	RequestID   string
	State       State
	DeciderTag  string
	ResolvedAtMs int64
}

// Recorder persists Decision entries; optional, in-memory by default.
type Recorder interface {
	RecordDecision(Decision)
}

type noopRecorder struct{}

func (noopRecorder) RecordDecision(Decision) {}

// Arbiter holds the pending-request map behind one mutex, per spec.md
// §5's shared-resource policy ("approval arbiter one mutex plus one
// condition variable per pending id").
type Arbiter struct {
	mu       sync.Mutex
	pending  map[string]*Request
	seenAddr map[common.Address]bool
	policy   Policy
	handler  Handler
	recorder Recorder
	nowFn    func() int64
}

// New constructs an arbiter. handler may be nil if the host resolves
// requests out-of-band (e.g. polling Pending()).
func New(policy Policy, handler Handler, recorder Recorder) *Arbiter {
	if policy.Timeout == 0 {
		policy.Timeout = DefaultTimeout
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Arbiter{
		pending:  make(map[string]*Request),
		seenAddr: make(map[common.Address]bool),
		policy:   policy,
		handler:  handler,
		recorder: recorder,
		nowFn:    token.NowMs,
	}
}

// GateResult is the resolved outcome of Gate.
type GateResult int

const (
	GateBypassed GateResult = iota
	GateApproved
	GateRejected
)

// ErrApprovalRejected is returned when a human (or the blocklist) denies
// the action.
var ErrApprovalRejected = fmt.Errorf("approval rejected")

// ErrApprovalExpired is returned when approval_timeout_ms elapses.
var ErrApprovalExpired = fmt.Errorf("approval expired")

// BlockPolicy abstracts the address policy so approval doesn't import
// limits/bridge; the wallet facade wires the shared token.AddressPolicy
// in.
type BlockPolicy interface {
	IsBlocked(common.Address) bool
	IsTrusted(common.Address) bool
}

// Gate decides whether amountUSD to recipient may proceed, per spec.md
// §4.6's policy: blocklist first, then trustlist bypass, then the
// amount/new-recipient triggers that request human approval.
func (a *Arbiter) Gate(ctx context.Context, policy BlockPolicy, summary string, details map[string]any, amountUSD *big.Int, recipient common.Address) (GateResult, error) {
	if policy != nil && policy.IsBlocked(recipient) {
		return GateRejected, fmt.Errorf("recipient %s is blocked", recipient.Hex())
	}

	trusted := policy != nil && policy.IsTrusted(recipient)
	exceedsAmount := a.policy.AmountExceedsUSD != nil && amountUSD.Cmp(a.policy.AmountExceedsUSD) > 0

	if trusted && !exceedsAmount {
		return GateBypassed, nil
	}

	isNew := a.policy.RecipientIsNew && !a.hasSeenRecipient(recipient)
	if !trusted && !exceedsAmount && !isNew {
		return GateBypassed, nil
	}

	req := a.newPendingRequest(summary, details, amountUSD, recipient)
	if a.handler != nil {
		a.handler.OnApprovalRequested(req)
	}

	state, err := a.waitFor(ctx, req)
	if err != nil {
		return GateRejected, err
	}

	switch state {
	case StateApproved:
		a.markSeenRecipient(recipient)
		return GateApproved, nil
	case StateRejected:
		return GateRejected, ErrApprovalRejected
	default:
		return GateRejected, ErrApprovalExpired
	}
}

func (a *Arbiter) newPendingRequest(summary string, details map[string]any, amountUSD *big.Int, recipient common.Address) *Request {
	req := &Request{
		ID:          uuid.NewString(),
		Summary:     summary,
		Details:     details,
		AmountUSD:   amountUSD,
		Recipient:   recipient,
		CreatedAtMs: a.nowFn(),
		state:       StatePending,
	}
	req.cond = sync.NewCond(&req.mu)

	a.mu.Lock()
	a.pending[req.ID] = req
	a.mu.Unlock()

	return req
}

// waitFor blocks until req resolves, the timeout elapses, or ctx is
// cancelled, using req's condition variable as the cooperative waiting
// primitive (spec.md §4.6/§5).
func (a *Arbiter) waitFor(ctx context.Context, req *Request) (State, error) {
	done := make(chan State, 1)
	go func() {
		req.mu.Lock()
		for req.state == StatePending {
			req.cond.Wait()
		}
		s := req.state
		req.mu.Unlock()
		done <- s
	}()

	timer := time.NewTimer(a.policy.Timeout)
	defer timer.Stop()

	select {
	case s := <-done:
		return s, nil
	case <-timer.C:
		a.resolve(req, StateExpired, "timeout")
		return StateExpired, nil
	case <-ctx.Done():
		// Cancellation surfaces without mutating chain state; the
		// request itself is left pending so a late decision can still
		// land (a cancelled caller doesn't force expiry).
		return StatePending, ctx.Err()
	}
}

// Approve resolves a pending request as approved.
func (a *Arbiter) Approve(id string, deciderTag string) error {
	return a.resolveByID(id, StateApproved, deciderTag)
}

// Reject resolves a pending request as rejected.
func (a *Arbiter) Reject(id string, deciderTag string) error {
	return a.resolveByID(id, StateRejected, deciderTag)
}

func (a *Arbiter) resolveByID(id string, state State, deciderTag string) error {
	a.mu.Lock()
	req, ok := a.pending[id]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending approval request %q", id)
	}
	return a.resolve(req, state, deciderTag)
}

func (a *Arbiter) resolve(req *Request, state State, deciderTag string) error {
	req.mu.Lock()
	if req.state != StatePending {
		req.mu.Unlock()
		return fmt.Errorf("approval request %s already resolved as %s", req.ID, req.state)
	}
	req.state = state
	a.recorder.RecordDecision(Decision{
		RequestID:    req.ID,
		State:        state,
		DeciderTag:   deciderTag,
		ResolvedAtMs: a.nowFn(),
	})
	req.mu.Unlock()
	req.cond.Broadcast()

	a.mu.Lock()
	delete(a.pending, req.ID)
	a.mu.Unlock()

	return nil
}

// Pending returns a snapshot of currently pending requests.
func (a *Arbiter) Pending() []*Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Request, 0, len(a.pending))
	for _, r := range a.pending {
		out = append(out, r)
	}
	return out
}

func (a *Arbiter) hasSeenRecipient(addr common.Address) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seenAddr[addr]
}

func (a *Arbiter) markSeenRecipient(addr common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seenAddr[addr] = true
}
