package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransferStartsAtPendingBurn(t *testing.T) {
	tr := NewTransfer("bridge_cctp_1_10_0xabc")
	assert.Equal(t, StatusPendingBurn, tr.State)
	assert.Equal(t, 0, tr.Progress())
}

func TestAdvanceMovesForward(t *testing.T) {
	tr := NewTransfer("t1")
	require.NoError(t, tr.Advance(StatusBurnConfirmed, "submitted"))
	assert.Equal(t, StatusBurnConfirmed, tr.State)
	assert.Equal(t, 20, tr.Progress())

	require.NoError(t, tr.Advance(StatusAttestationPending, "waiting"))
	assert.Equal(t, StatusAttestationPending, tr.State)
}

func TestAdvanceSameRankIsIdempotent(t *testing.T) {
	tr := NewTransfer("t1")
	require.NoError(t, tr.Advance(StatusBurnConfirmed, "first"))
	require.NoError(t, tr.Advance(StatusBurnConfirmed, "second"))
	assert.Equal(t, StatusBurnConfirmed, tr.State)
	assert.Equal(t, "second", tr.Message)
}

func TestAdvanceRejectsBackwardMove(t *testing.T) {
	tr := NewTransfer("t1")
	require.NoError(t, tr.Advance(StatusAttestationPending, "x"))

	err := tr.Advance(StatusBurnConfirmed, "rewind")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, StatusAttestationPending, tr.State)
}

func TestAdvanceToFailedIsAlwaysReachable(t *testing.T) {
	tr := NewTransfer("t1")
	require.NoError(t, tr.Advance(StatusAttestationReady, "x"))
	require.NoError(t, tr.Advance(StatusFailed, "oracle timed out"))
	assert.Equal(t, StatusFailed, tr.State)
	assert.Equal(t, 0, tr.Progress())
}

func TestAdvanceRefusesLeavingTerminalStates(t *testing.T) {
	tr := NewTransfer("t1")
	require.NoError(t, tr.Advance(StatusFailed, "boom"))

	err := tr.Advance(StatusCompleted, "retry")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	tr2 := NewTransfer("t2")
	require.NoError(t, tr2.Advance(StatusCompleted, "done"))
	require.Error(t, tr2.Advance(StatusFailed, "too late"))
}

func TestStaleUnknownResult(t *testing.T) {
	res := StaleUnknownResult()
	assert.Equal(t, StatusAttestationPending, res.State)
	assert.Equal(t, 40, res.Progress)
	assert.Equal(t, "metadata not found", res.Message)
}
