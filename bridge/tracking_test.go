package bridge

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBuildsCanonicalTrackingID(t *testing.T) {
	r := NewTrackingRegistry()
	id := r.Create("CCTP", 1, 10, "0xABCDEF")
	assert.Equal(t, "bridge_cctp_1_10_0xabcdef", id)

	tr, ok := r.Transfer(id)
	require.True(t, ok)
	assert.Equal(t, StatusPendingBurn, tr.State)
}

func TestParseCanonicalForm(t *testing.T) {
	r := NewTrackingRegistry()
	c, ok := r.Parse("bridge_cctp_1_10_0xabcdef")
	require.True(t, ok)
	assert.Equal(t, "cctp", c.Protocol)
	assert.Equal(t, int64(1), c.SourceChain)
	assert.Equal(t, int64(10), c.DestChain)
	assert.Equal(t, "0xabcdef", c.Identifier)
	assert.False(t, c.Legacy)
}

func TestParseLegacyFormWithHexIdentifier(t *testing.T) {
	r := NewTrackingRegistry()
	c, ok := r.Parse("bridge_across_1_0xdeadbeef")
	require.True(t, ok)
	assert.Equal(t, "across", c.Protocol)
	assert.Equal(t, int64(1), c.SourceChain)
	assert.Equal(t, int64(0), c.DestChain)
	assert.Equal(t, "0xdeadbeef", c.Identifier)
	assert.True(t, c.Legacy)
}

func TestParseLegacyFormWithNumericIdentifierIsNotMistakenForCanonical(t *testing.T) {
	r := NewTrackingRegistry()
	// "bridge_cctp_1_42": without the "0x" prefix or sole-segment rule,
	// a bare numeric identifier must not be parsed as a canonical
	// 4-segment id (there is no fourth segment to be the identifier).
	c, ok := r.Parse("bridge_cctp_1_42")
	require.True(t, ok)
	assert.Equal(t, int64(1), c.SourceChain)
	assert.Equal(t, int64(0), c.DestChain)
	assert.Equal(t, "42", c.Identifier)
	assert.True(t, c.Legacy)
}

func TestParseRejectsMissingPrefix(t *testing.T) {
	r := NewTrackingRegistry()
	_, ok := r.Parse("notabridgeid_1_2")
	assert.False(t, ok)
}

func TestParseRejectsMalformedSourceChain(t *testing.T) {
	r := NewTrackingRegistry()
	_, ok := r.Parse("bridge_cctp_notanumber_0xabc")
	assert.False(t, ok)
}

func TestStoreAndGetMetadata(t *testing.T) {
	r := NewTrackingRegistry()
	id := r.Create("cctp", 1, 10, "0xabc")
	recipient := common.HexToAddress("0x1111111111111111111111111111111111111111")

	r.StoreMetadata(id, Metadata{DestinationChain: 10, AmountRaw: "1000000", Recipient: recipient, ProtocolName: "cctp"})

	meta, ok := r.GetMetadata(id)
	require.True(t, ok)
	assert.Equal(t, int64(10), meta.DestinationChain)
	assert.Equal(t, recipient, meta.Recipient)

	_, ok = r.GetMetadata("bridge_cctp_1_10_unknown")
	assert.False(t, ok)
}

func TestAdvanceUnknownIDFails(t *testing.T) {
	r := NewTrackingRegistry()
	err := r.Advance("bridge_cctp_1_10_nope", StatusBurnConfirmed, "x")
	require.Error(t, err)
}

func TestAdvanceKnownIDDelegatesToTransfer(t *testing.T) {
	r := NewTrackingRegistry()
	id := r.Create("cctp", 1, 10, "0xabc")

	require.NoError(t, r.Advance(id, StatusBurnConfirmed, "submitted"))

	tr, ok := r.Transfer(id)
	require.True(t, ok)
	assert.Equal(t, StatusBurnConfirmed, tr.State)
}
