package evmchain

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNilIsNil(t *testing.T) {
	assert.Nil(t, classify(nil))
}

func TestClassifyMarksTimeoutRetryable(t *testing.T) {
	err := classify(errors.New("i/o timeout"))
	var te *TransportError
	require.True(t, asTransportError(err, &te))
	assert.True(t, te.Retryable)
}

func TestClassifyMarksConnectionRefusedRetryable(t *testing.T) {
	err := classify(errors.New("dial tcp: connection refused"))
	var te *TransportError
	require.True(t, asTransportError(err, &te))
	assert.True(t, te.Retryable)
}

func TestClassifyMarksEOFRetryable(t *testing.T) {
	err := classify(errors.New("unexpected EOF"))
	var te *TransportError
	require.True(t, asTransportError(err, &te))
	assert.True(t, te.Retryable)
}

func TestClassifyMarksTooManyRequestsRetryable(t *testing.T) {
	err := classify(errors.New("429 too many requests"))
	var te *TransportError
	require.True(t, asTransportError(err, &te))
	assert.True(t, te.Retryable)
}

func TestClassifyMarksRevertNotRetryable(t *testing.T) {
	err := classify(errors.New("execution reverted: insufficient balance"))
	var te *TransportError
	require.True(t, asTransportError(err, &te))
	assert.False(t, te.Retryable)
}

func TestTransportErrorMessageIncludesRawMessage(t *testing.T) {
	err := classify(errors.New("boom"))
	assert.True(t, strings.Contains(err.Error(), "boom"))
}

func TestPackCallDelegatesToABIPack(t *testing.T) {
	const json = `[{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`
	contractABI, err := abi.JSON(strings.NewReader(json))
	require.NoError(t, err)

	packed, err := PackCall(contractABI, "balanceOf", common.Address{})
	require.NoError(t, err)
	assert.NotEmpty(t, packed)
}
