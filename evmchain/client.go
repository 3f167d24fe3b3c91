// Package evmchain wraps a JSON-RPC endpoint for a single EVM chain,
// exposing the eth_* method surface the wallet needs: balances, nonce,
// gas, call, send, receipts, and logs. Transport errors are classified
// as retryable or not; batched reads may retry, writes never are.
package evmchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/lambdaclass/agentwallet/agentlog"
)

// TransportError classifies an RPC failure, matching spec.md §7's
// Transport{code, message, retryable} taxonomy entry.
type TransportError struct {
	Code      int
	Message   string
	Retryable bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Client wraps ethclient.Client plus the raw rpc.Client for methods
// ethclient doesn't expose as typed calls (eth_feeHistory,
// eth_maxPriorityFeePerGas). Grounded on the teacher's repeated,
// duplicated rpc.PendingNonceAt / rpc.SuggestGasPrice / rpc.CallContract
// call sites (nearintents, houdini, simpleswap, balances), collapsed
// into one reusable client.
type Client struct {
	ChainIDValue *big.Int
	eth          *ethclient.Client
	rpc          *rpc.Client
	log          *agentlog.Logger

	eip1559Checked   bool
	eip1559Supported bool
}

// Dial connects to an RPC endpoint and fetches the chain id.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	rc, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", rpcURL, err)
	}
	eth := ethclient.NewClient(rc)

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching chain id from %s: %w", rpcURL, err)
	}

	return &Client{
		ChainIDValue: chainID,
		eth:          eth,
		rpc:          rc,
		log:          agentlog.New(fmt.Sprintf("evmchain:%s", chainID)),
	}, nil
}

func (c *Client) ChainID() *big.Int { return c.ChainIDValue }

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return withRetry(ctx, func() (uint64, error) { return c.eth.BlockNumber(ctx) })
}

func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return withRetry(ctx, func() (*big.Int, error) { return c.eth.BalanceAt(ctx, addr, nil) })
}

func (c *Client) Code(ctx context.Context, addr common.Address) ([]byte, error) {
	return withRetry(ctx, func() ([]byte, error) { return c.eth.CodeAt(ctx, addr, nil) })
}

// PendingNonce returns eth_getTransactionCount(addr, "pending").
func (c *Client) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	return withRetry(ctx, func() (uint64, error) { return c.eth.PendingNonceAt(ctx, addr) })
}

func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	return withRetry(ctx, func() (*big.Int, error) { return c.eth.SuggestGasPrice(ctx) })
}

func (c *Client) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return withRetry(ctx, func() (uint64, error) { return c.eth.EstimateGas(ctx, call) })
}

func (c *Client) Call(ctx context.Context, call ethereum.CallMsg) ([]byte, error) {
	return withRetry(ctx, func() ([]byte, error) { return c.eth.CallContract(ctx, call, nil) })
}

// SendRaw submits a signed transaction. Writes are never retried
// implicitly (spec.md §4.3/§7): a caller must re-preview and resubmit.
func (c *Client) SendRaw(ctx context.Context, tx *types.Transaction) error {
	if err := c.eth.SendTransaction(ctx, tx); err != nil {
		return classify(err)
	}
	return nil
}

func (c *Client) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return withRetry(ctx, func() (*types.Receipt, error) { return c.eth.TransactionReceipt(ctx, hash) })
}

func (c *Client) Logs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return withRetry(ctx, func() ([]types.Log, error) { return c.eth.FilterLogs(ctx, q) })
}

func (c *Client) LatestBlock(ctx context.Context) (*types.Header, error) {
	return withRetry(ctx, func() (*types.Header, error) { return c.eth.HeaderByNumber(ctx, nil) })
}

// SupportsEIP1559 detects fee-market support by the presence of
// base_fee_per_gas on the latest block, caching the result per spec.md
// §4.3.
func (c *Client) SupportsEIP1559(ctx context.Context) (bool, error) {
	if c.eip1559Checked {
		return c.eip1559Supported, nil
	}
	header, err := c.LatestBlock(ctx)
	if err != nil {
		return false, err
	}
	c.eip1559Supported = header.BaseFee != nil
	c.eip1559Checked = true
	return c.eip1559Supported, nil
}

// withRetry retries idempotent reads up to 3 times with exponential
// backoff for retryable transport errors, per spec.md §7.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	backoff := 200 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt <= 3; attempt++ {
		val, err := fn()
		if err == nil {
			return val, nil
		}
		lastErr = classify(err)
		var te *TransportError
		if !asTransportError(lastErr, &te) || !te.Retryable {
			return zero, lastErr
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return zero, lastErr
}

func asTransportError(err error, target **TransportError) bool {
	te, ok := err.(*TransportError)
	if ok {
		*target = te
	}
	return ok
}

// classify turns a raw RPC error into a TransportError, guessing
// retryability from the message shape (connection resets and timeouts
// are retryable; application-level reverts are not).
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	retryable := strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "too many requests")
	return &TransportError{Code: 0, Message: msg, Retryable: retryable}
}

// PackCall ABI-encodes a call to a contract method, shared by
// evmchain callers that need to hand-build calldata the way the
// teacher does throughout balances.go and the swap providers.
func PackCall(contractABI abi.ABI, method string, args ...interface{}) ([]byte, error) {
	return contractABI.Pack(method, args...)
}
