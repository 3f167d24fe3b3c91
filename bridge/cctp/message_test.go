package cctp

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodedBytesField(payload []byte) []byte {
	padded := make([]byte, (len(payload)+31)/32*32)
	copy(padded, payload)

	out := make([]byte, 64+len(padded))
	copy(out[0:32], leftPad32(big.NewInt(32).Bytes()))
	copy(out[32:64], leftPad32(big.NewInt(int64(len(payload))).Bytes()))
	copy(out[64:], padded)
	return out
}

func leftPad32(b []byte) []byte {
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func TestParseMessageSentDataExtractsDeclaredLength(t *testing.T) {
	payload := []byte("cctp message body")
	data := encodedBytesField(payload)

	got, err := parseMessageSentData(data)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestParseMessageSentDataRejectsShortInput(t *testing.T) {
	_, err := parseMessageSentData(make([]byte, 32))
	require.Error(t, err)
}

func TestParseMessageSentDataRejectsTruncatedPayload(t *testing.T) {
	data := encodedBytesField([]byte("short"))
	// Cut below the 64-byte header plus the declared 5-byte payload.
	truncated := data[:64+2]

	_, err := parseMessageSentData(truncated)
	require.Error(t, err)
}

func TestNonceFromMessageReadsBigEndianField(t *testing.T) {
	message := make([]byte, 20)
	binary.BigEndian.PutUint64(message[12:20], 424242)

	n, err := nonceFromMessage(message)
	require.NoError(t, err)
	assert.Equal(t, uint64(424242), n)
}

func TestNonceFromMessageRejectsShortMessage(t *testing.T) {
	_, err := nonceFromMessage(make([]byte, 10))
	require.Error(t, err)
}

func TestAddressToMintRecipientLeftPads(t *testing.T) {
	var addr [20]byte
	for i := range addr {
		addr[i] = byte(i + 1)
	}

	padded := addressToMintRecipient(addr)
	assert.Equal(t, [12]byte{}, [12]byte(padded[:12]))
	assert.Equal(t, addr[:], padded[12:])
}
