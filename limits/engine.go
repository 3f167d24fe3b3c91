// Package limits enforces per-transaction, windowed, and emergency-stop
// spending ceilings, all USD-normalised. Grounded on the "daily volume
// with UTC-day rollover" pattern from the example corpus's standalone
// universal_bridge.go (DailyVolume/checkDailyLimits), generalised here
// to arbitrary sliding windows summed over an append-only ring, per
// spec.md §4.5.
package limits

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/lambdaclass/agentwallet/token"
	"github.com/lambdaclass/agentwallet/units"
)

// Kind distinguishes the two spend categories the engine tracks.
type Kind string

const (
	KindSend   Kind = "send"
	KindBridge Kind = "bridge"
)

const (
	windowHour = time.Hour
	windowDay  = 24 * time.Hour
	windowWeek = 7 * 24 * time.Hour
)

// Record is a single append-only spending entry.
type Record struct {
	Token         *token.Descriptor
	RawAmount     *big.Int
	USDNormalised *big.Int
	TimestampMs   int64
	Kind          Kind
}

// Config holds the optional ceilings from spec.md §3.
type Config struct {
	PerTransactionUSD *big.Int // USD-6
	PerHourUSD        *big.Int
	PerDayUSD         *big.Int
	PerWeekUSD        *big.Int

	EmergencyMinBalanceWei *big.Int
}

// WindowExceededError reports which window and by how much, plus a
// reset time, matching spec.md §7's WindowExceeded{window, used, limit,
// resets_at}.
type WindowExceededError struct {
	Window    string
	Used      *big.Int
	Limit     *big.Int
	ResetsAt  int64
}

func (e *WindowExceededError) Error() string {
	return fmt.Sprintf("%s spending limit exceeded: used %s, limit %s, resets at %d",
		e.Window, units.FormatUSD6(e.Used), units.FormatUSD6(e.Limit), e.ResetsAt)
}

// PerTransactionExceededError reports a single-transaction ceiling
// violation.
type PerTransactionExceededError struct {
	Amount *big.Int
	Limit  *big.Int
}

func (e *PerTransactionExceededError) Error() string {
	return fmt.Sprintf("per-transaction limit exceeded: amount %s exceeds limit %s",
		units.FormatUSD6(e.Amount), units.FormatUSD6(e.Limit))
}

// ErrEmergencyStopEngaged is returned by Check while the engine is
// stopped.
var ErrEmergencyStopEngaged = fmt.Errorf("emergency stop engaged: balance below minimum required")

// Engine holds spending records and the emergency-stop flag behind a
// single mutex, per spec.md §5's shared-resource policy.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	records []Record
	stopped bool
	nowFn   func() int64
}

// New creates a limits engine for the given configuration.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, nowFn: token.NowMs}
}

// setClock overrides the time source, for tests.
func (e *Engine) setClock(fn func() int64) { e.nowFn = fn }

// Check implements spec.md §4.5's check algorithm. It is read-only and
// idempotent: calling Check twice without an intervening Record yields
// identical results (spec.md §8).
func (e *Engine) Check(tok *token.Descriptor, rawAmount *big.Int, gasUSD *big.Int, kind Kind) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrEmergencyStopEngaged
	}

	amountUSD := units.ToUSD6(rawAmount, tok.Decimals)
	if gasUSD == nil {
		gasUSD = big.NewInt(0)
	}

	if e.cfg.PerTransactionUSD != nil {
		total := new(big.Int).Add(amountUSD, gasUSD)
		if total.Cmp(e.cfg.PerTransactionUSD) > 0 {
			return &PerTransactionExceededError{Amount: total, Limit: e.cfg.PerTransactionUSD}
		}
	}

	now := e.nowFn()
	windows := []struct {
		name  string
		dur   time.Duration
		limit *big.Int
	}{
		{"hour", windowHour, e.cfg.PerHourUSD},
		{"day", windowDay, e.cfg.PerDayUSD},
		{"week", windowWeek, e.cfg.PerWeekUSD},
	}

	for _, w := range windows {
		if w.limit == nil {
			continue
		}
		used := e.sumSinceLocked(kind, now-w.dur.Milliseconds())
		total := new(big.Int).Add(used, amountUSD)
		if total.Cmp(w.limit) > 0 {
			resetsAt := e.earliestExpiryLocked(kind, now-w.dur.Milliseconds()) + w.dur.Milliseconds()
			return &WindowExceededError{Window: w.name, Used: used, Limit: w.limit, ResetsAt: resetsAt}
		}
	}

	return nil
}

// Record appends a spending entry and garbage-collects records older
// than the longest configured window. Records are never mutated or
// removed except by this GC pass (spec.md §4.5).
func (e *Engine) Record(tok *token.Descriptor, rawAmount *big.Int, kind Kind) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowFn()
	e.records = append(e.records, Record{
		Token:         tok,
		RawAmount:     new(big.Int).Set(rawAmount),
		USDNormalised: units.ToUSD6(rawAmount, tok.Decimals),
		TimestampMs:   now,
		Kind:          kind,
	})
	e.gcLocked(now)
}

func (e *Engine) longestWindowMs() int64 {
	longest := windowHour
	if e.cfg.PerDayUSD != nil && windowDay > longest {
		longest = windowDay
	}
	if e.cfg.PerWeekUSD != nil && windowWeek > longest {
		longest = windowWeek
	}
	return longest.Milliseconds()
}

func (e *Engine) gcLocked(now int64) {
	cutoff := now - e.longestWindowMs()
	kept := e.records[:0]
	for _, r := range e.records {
		if r.TimestampMs >= cutoff {
			kept = append(kept, r)
		}
	}
	e.records = kept
}

func (e *Engine) sumSinceLocked(kind Kind, sinceMs int64) *big.Int {
	sum := big.NewInt(0)
	for _, r := range e.records {
		if r.Kind == kind && r.TimestampMs >= sinceMs {
			sum.Add(sum, r.USDNormalised)
		}
	}
	return sum
}

func (e *Engine) earliestExpiryLocked(kind Kind, sinceMs int64) int64 {
	earliest := int64(0)
	for _, r := range e.records {
		if r.Kind == kind && r.TimestampMs >= sinceMs {
			if earliest == 0 || r.TimestampMs < earliest {
				earliest = r.TimestampMs
			}
		}
	}
	return earliest
}

// Remaining returns the unused portion of a window's ceiling, or nil if
// the window isn't configured. Used by tests to assert exact commit
// ordering (spec.md §8: "remaining(window) = prior_remaining -
// to_usd6(x) exactly").
func (e *Engine) Remaining(kind Kind, window string) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	var limit *big.Int
	var dur time.Duration
	switch window {
	case "hour":
		limit, dur = e.cfg.PerHourUSD, windowHour
	case "day":
		limit, dur = e.cfg.PerDayUSD, windowDay
	case "week":
		limit, dur = e.cfg.PerWeekUSD, windowWeek
	default:
		return nil
	}
	if limit == nil {
		return nil
	}
	used := e.sumSinceLocked(kind, e.nowFn()-dur.Milliseconds())
	return new(big.Int).Sub(limit, used)
}

// MaxSendable computes the largest raw amount of tok that could be sent
// right now without violating any configured limit, per spec.md §4.5.
func (e *Engine) MaxSendable(tok *token.Descriptor, kind Kind) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return big.NewInt(0)
	}

	minRemainingUSD := (*big.Int)(nil)
	consider := func(limit *big.Int, dur time.Duration) {
		if limit == nil {
			return
		}
		used := e.sumSinceLocked(kind, e.nowFn()-dur.Milliseconds())
		remaining := new(big.Int).Sub(limit, used)
		if remaining.Sign() < 0 {
			remaining = big.NewInt(0)
		}
		if minRemainingUSD == nil || remaining.Cmp(minRemainingUSD) < 0 {
			minRemainingUSD = remaining
		}
	}

	consider(e.cfg.PerTransactionUSD, 0)
	consider(e.cfg.PerHourUSD, windowHour)
	consider(e.cfg.PerDayUSD, windowDay)
	consider(e.cfg.PerWeekUSD, windowWeek)

	if minRemainingUSD == nil {
		// No limits configured: unbounded within this engine's view.
		return new(big.Int).Lsh(big.NewInt(1), 255)
	}

	return units.FromUSD6(minRemainingUSD, tok.Decimals)
}

// CheckEmergencyStop runs before every execution per spec.md §4.5: if
// balance < min_balance_required, the engine enters the stopped state
// until ClearStop is called.
func (e *Engine) CheckEmergencyStop(balanceWei *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.EmergencyMinBalanceWei == nil {
		return
	}
	if balanceWei.Cmp(e.cfg.EmergencyMinBalanceWei) < 0 {
		e.stopped = true
	}
}

// ClearStop is the operator-gated escape hatch from the stopped state.
func (e *Engine) ClearStop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = false
}

// Stopped reports whether the emergency stop is currently engaged.
func (e *Engine) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}
