package cctp

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// parseMessageSentData extracts the message bytes from a MessageSent
// log's ABI-encoded data field. A single dynamic `bytes` parameter is
// encoded as (offset uint256, length uint256, data right-padded to a
// 32-byte multiple); the parser must read the declared length rather
// than consuming the whole remainder, per spec.md §9.
func parseMessageSentData(data []byte) ([]byte, error) {
	if len(data) < 64 {
		return nil, fmt.Errorf("MessageSent data too short: %d bytes", len(data))
	}

	length := new(big.Int).SetBytes(data[32:64])
	if !length.IsUint64() {
		return nil, fmt.Errorf("MessageSent length field overflows uint64")
	}
	n := length.Uint64()

	start := uint64(64)
	if uint64(len(data)) < start+n {
		return nil, fmt.Errorf("MessageSent data truncated: want %d bytes from offset %d, have %d", n, start, len(data))
	}

	message := make([]byte, n)
	copy(message, data[start:start+n])
	return message, nil
}

// nonceFromMessage reads the big-endian nonce at bytes 12..20 of a
// CCTP message, per spec.md §4.7.1 step 2.
func nonceFromMessage(message []byte) (uint64, error) {
	if len(message) < 20 {
		return 0, fmt.Errorf("CCTP message too short to contain a nonce: %d bytes", len(message))
	}
	return binary.BigEndian.Uint64(message[12:20]), nil
}

// addressToMintRecipient left-pads a 20-byte address to the 32-byte
// mint-recipient format depositForBurn expects.
func addressToMintRecipient(addr [20]byte) [32]byte {
	var padded [32]byte
	copy(padded[12:], addr[:])
	return padded
}
