package bridge

import "fmt"

// Status is a bridge transfer's lifecycle stage, per spec.md §3/§4.7.4.
type Status string

const (
	StatusPendingBurn         Status = "pending_burn"
	StatusBurnConfirmed       Status = "burn_confirmed"
	StatusAttestationPending  Status = "attestation_pending"
	StatusAttestationReady    Status = "attestation_ready"
	StatusPendingMint         Status = "pending_mint"
	StatusCompleted           Status = "completed"
	StatusFailed              Status = "failed"
)

// progressOf maps a status to the percentage table in spec.md §3.
func progressOf(s Status) int {
	switch s {
	case StatusPendingBurn:
		return 0
	case StatusBurnConfirmed:
		return 20
	case StatusAttestationPending:
		return 40
	case StatusAttestationReady:
		return 60
	case StatusPendingMint:
		return 80
	case StatusCompleted:
		return 100
	case StatusFailed:
		return 0
	default:
		return 0
	}
}

// order fixes the only forward path; failed is reachable from any state
// and completed/failed are sinks (spec.md §8: "bridge state only
// advances; completed and failed are sinks").
var order = []Status{
	StatusPendingBurn,
	StatusBurnConfirmed,
	StatusAttestationPending,
	StatusAttestationReady,
	StatusPendingMint,
	StatusCompleted,
}

func rank(s Status) int {
	for i, o := range order {
		if o == s {
			return i
		}
	}
	return -1
}

// ErrInvalidTransition is returned by Advance when a transition would
// move the state machine backward or out of a terminal state.
var ErrInvalidTransition = fmt.Errorf("invalid bridge state transition")

// Transfer tracks one tracking id's state across the lifecycle.
type Transfer struct {
	TrackingID string
	State      Status
	Message    string
}

// NewTransfer creates a transfer in its initial pending_burn state.
func NewTransfer(trackingID string) *Transfer {
	return &Transfer{TrackingID: trackingID, State: StatusPendingBurn}
}

// Advance moves the transfer to next. failed is always reachable; any
// other transition must move strictly forward in order, and completed
// or failed refuse all further transitions.
func (t *Transfer) Advance(next Status, message string) error {
	if t.State == StatusCompleted || t.State == StatusFailed {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, t.State)
	}
	if next == StatusFailed {
		t.State = StatusFailed
		t.Message = message
		return nil
	}
	if rank(next) == rank(t.State) {
		t.Message = message
		return nil
	}
	if rank(next) < rank(t.State) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, t.State, next)
	}
	t.State = next
	t.Message = message
	return nil
}

// Progress reports the status percentage for display.
func (t *Transfer) Progress() int {
	return progressOf(t.State)
}

// StaleUnknownResult is returned for status queries on identifiers the
// tracking registry has no metadata for (spec.md §4.7.4).
func StaleUnknownResult() StatusResult {
	return StatusResult{
		State:    StatusAttestationPending,
		Progress: 40,
		Message:  "metadata not found",
	}
}
