// Package walletcore is the composition root: it wires the signer,
// per-chain clients, nonce coordinators, limits engine, approval
// arbiter, and bridge router into the Preview/Send/Bridge/Status
// operations a host program calls. Grounded on the teacher's
// cmd/fundbot/main.go wiring order (config -> db -> swaps.Manager ->
// tracker.Tracker), collapsed into one Wallet that owns C2-C7 directly
// instead of requiring a SQLite-backed db.Store.
package walletcore

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lambdaclass/agentwallet/agentlog"
	"github.com/lambdaclass/agentwallet/approval"
	"github.com/lambdaclass/agentwallet/bridge"
	"github.com/lambdaclass/agentwallet/bridge/across"
	"github.com/lambdaclass/agentwallet/bridge/cctp"
	"github.com/lambdaclass/agentwallet/evmchain"
	"github.com/lambdaclass/agentwallet/limits"
	"github.com/lambdaclass/agentwallet/nonce"
	"github.com/lambdaclass/agentwallet/signer"
	"github.com/lambdaclass/agentwallet/token"
	"github.com/lambdaclass/agentwallet/units"
)

// Wallet composes C1-C7 per spec.md §3's lifecycle-ownership rule: one
// Signer, one chain client per chain, one nonce coordinator per
// (chain, sender), one limits engine, one approval arbiter, one
// bridge router.
type Wallet struct {
	signer   *signer.Signer
	chains   map[int64]*evmchain.Client
	nonces   *nonce.Registry
	limits   *limits.Engine
	arbiter  *approval.Arbiter
	policy   *token.AddressPolicy
	router   *bridge.Router
	recorder Recorder
	log      *agentlog.Logger

	erc20ABI    abi.ABI
	quoteETHUSD cctp.QuoteETHUSD
}

// New dials every configured chain and wires the seven components into
// a ready-to-use Wallet.
func New(ctx context.Context, cfg Config) (*Wallet, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var s *signer.Signer
	var err error
	if cfg.PrivateKeyHex != "" {
		s, err = signer.FromPrivateKeyHex(cfg.PrivateKeyHex)
	} else {
		s, err = signer.FromMnemonic(cfg.Mnemonic, cfg.MnemonicIndex)
	}
	if err != nil {
		return nil, fmt.Errorf("constructing signer: %w", err)
	}

	chains := make(map[int64]*evmchain.Client, len(cfg.Chains))
	for _, ep := range cfg.Chains {
		client, err := evmchain.Dial(ctx, ep.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dialing chain %d: %w", ep.ChainID, err)
		}
		chains[ep.ChainID] = client
	}

	policy := token.NewAddressPolicy()
	for _, raw := range cfg.TrustedAddresses {
		if err := policy.Add(token.AddressPolicyEntry{Address: common.HexToAddress(raw), Kind: token.KindTrusted, AddedAtMs: token.NowMs()}); err != nil {
			return nil, err
		}
	}
	for _, raw := range cfg.BlockedAddresses {
		if err := policy.Add(token.AddressPolicyEntry{Address: common.HexToAddress(raw), Kind: token.KindBlocked, AddedAtMs: token.NowMs()}); err != nil {
			return nil, err
		}
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}

	arbiter := approval.New(cfg.Approval, cfg.Handler, &approvalRecorder{recorder: recorder})

	registry := bridge.NewRegistry()
	nonces := nonce.NewRegistry()

	if cfg.CCTP != nil {
		adapter, err := cctp.NewAdapter(s, nonces, cfg.CCTP.AttestationBase, cfg.resolveQuoteETHUSD(), cfg.CCTP.Endpoints...)
		if err != nil {
			return nil, fmt.Errorf("constructing cctp adapter: %w", err)
		}
		registry.Register(adapter)
	}
	if cfg.Across != nil {
		adapter, err := across.NewAdapter(s, nonces, cfg.Across.APIBase, cfg.Across.Endpoints...)
		if err != nil {
			return nil, fmt.Errorf("constructing across adapter: %w", err)
		}
		registry.Register(adapter)
	}

	router := bridge.NewRouter(registry, cfg.AllowedBridgeDestinations)

	erc20ABI, err := abi.JSON(strings.NewReader(erc20TransferABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing erc20 abi: %w", err)
	}

	return &Wallet{
		signer:      s,
		chains:      chains,
		nonces:      nonces,
		limits:      limits.New(cfg.Limits),
		arbiter:     arbiter,
		policy:      policy,
		router:      router,
		recorder:    recorder,
		log:         agentlog.New("walletcore"),
		erc20ABI:    erc20ABI,
		quoteETHUSD: cfg.resolveQuoteETHUSD(),
	}, nil
}

// Address returns the wallet's deterministically derived address.
func (w *Wallet) Address() common.Address { return w.signer.Address() }

// Stopped reports whether the limits engine's emergency stop is engaged.
func (w *Wallet) Stopped() bool { return w.limits.Stopped() }

// ClearStop is the operator-gated escape hatch from the stopped state.
func (w *Wallet) ClearStop() { w.limits.ClearStop() }

// Preview is the read-only half of Send: it estimates gas, normalises
// the USD amount, and runs the limits check without committing a
// spending record or touching the nonce coordinator, per spec.md §2's
// "facade exposes preview/execute/status operations".
type Preview struct {
	AmountUSD *big.Int
	GasUSD    *big.Int
	GasLimit  uint64
}

func (w *Wallet) Preview(ctx context.Context, chainID int64, tok *token.Descriptor, rawAmount *big.Int, recipient common.Address) (*Preview, error) {
	client, ok := w.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("walletcore: no chain client for %d", chainID)
	}

	balance, err := client.Balance(ctx, w.signer.Address())
	if err != nil {
		return nil, fmt.Errorf("reading balance: %w", err)
	}
	w.limits.CheckEmergencyStop(balance)

	gasLimit, _, _, _ := w.buildTransferCall(tok, chainID, rawAmount, recipient)
	tiers, err := client.EstimateFees(ctx, gasLimit, evmchain.DefaultGasPolicy())
	if err != nil {
		return nil, fmt.Errorf("estimating gas: %w", err)
	}

	gasUSD, err := w.gasCostUSD(ctx, tiers.Standard)
	if err != nil {
		return nil, fmt.Errorf("pricing gas: %w", err)
	}

	amountUSD := units.ToUSD6(rawAmount, tok.Decimals)

	if err := w.limits.Check(tok, rawAmount, gasUSD, limits.KindSend); err != nil {
		return nil, err
	}

	return &Preview{AmountUSD: amountUSD, GasUSD: gasUSD, GasLimit: tiers.Standard.GasLimit}, nil
}

// SendResult is what a completed Send returns.
type SendResult struct {
	TxHash    common.Hash
	AmountUSD *big.Int
	GasUSD    *big.Int
}

// Send runs the full transaction lifecycle: gas estimate -> limits
// check (which counts the gas cost) -> approval gate -> nonce
// allocation -> sign -> submit -> accounting commit (on RPC acceptance)
// -> receipt.
func (w *Wallet) Send(ctx context.Context, chainID int64, tok *token.Descriptor, rawAmount *big.Int, recipient common.Address) (*SendResult, error) {
	client, ok := w.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("walletcore: no chain client for %d", chainID)
	}

	balance, err := client.Balance(ctx, w.signer.Address())
	if err != nil {
		return nil, fmt.Errorf("reading balance: %w", err)
	}
	w.limits.CheckEmergencyStop(balance)

	gasLimit, to, data, value := w.buildTransferCall(tok, chainID, rawAmount, recipient)
	tiers, err := client.EstimateFees(ctx, gasLimit, evmchain.DefaultGasPolicy())
	if err != nil {
		return nil, fmt.Errorf("estimating gas: %w", err)
	}

	gasUSD, err := w.gasCostUSD(ctx, tiers.Standard)
	if err != nil {
		return nil, fmt.Errorf("pricing gas: %w", err)
	}

	if err := w.limits.Check(tok, rawAmount, gasUSD, limits.KindSend); err != nil {
		return nil, err
	}

	amountUSD := units.ToUSD6(rawAmount, tok.Decimals)
	details := map[string]any{"chain_id": chainID, "token": tok.Symbol}
	summary := fmt.Sprintf("send %s %s to %s", units.FormatAmount(rawAmount, tok.Decimals), tok.Symbol, recipient.Hex())

	if _, err := w.arbiter.Gate(ctx, w.policy, summary, details, amountUSD, recipient); err != nil {
		return nil, fmt.Errorf("approval: %w", err)
	}

	from := w.signer.Address()
	coordinator := w.nonces.GetOrCreate(chainID, from.Hex(), func() nonce.ChainClient {
		return &sendChainClientAdapter{client: client, addr: from}
	})

	// The spending record is committed as soon as the RPC accepts the
	// transaction, not once it confirms (spec.md §5): waiting for the
	// receipt would leave a window where a second send could slip under
	// the limit while the first is still in flight.
	recordSpend := func() { w.limits.Record(tok, rawAmount, limits.KindSend) }

	receipt, err := w.sendAndWait(ctx, client, coordinator, to, data, value, tiers.Standard.GasLimit, recordSpend)
	if err != nil {
		_ = coordinator.OnFailed(ctx)
		return nil, fmt.Errorf("send: %w", err)
	}
	coordinator.OnConfirmed()

	w.recorder.RecordSpend(chainID, recipient, rawAmount, amountUSD, string(limits.KindSend))
	w.log.Printf("sent %s %s to %s on chain %d: %s", units.FormatAmount(rawAmount, tok.Decimals), tok.Symbol, recipient.Hex(), chainID, receipt.TxHash.Hex())

	return &SendResult{TxHash: receipt.TxHash, AmountUSD: amountUSD, GasUSD: gasUSD}, nil
}

// BridgeQuote gathers and scores candidate routes for a cross-chain
// transfer without submitting anything.
func (w *Wallet) BridgeQuote(ctx context.Context, req bridge.Request, pref bridge.Preference) (*bridge.Selection, error) {
	return w.router.Quote(ctx, req, pref)
}

// BridgeInitiate validates and submits the source-chain half of a
// bridge transfer (limits + approval gate, then the chosen adapter's
// Initiate), returning a tracking id for BridgeAwait/BridgeStatus.
func (w *Wallet) BridgeInitiate(ctx context.Context, protocol string, req bridge.Request, recipientRawHex string) (string, error) {
	amountUSD := units.ToUSD6(req.Amount, 6)

	if err := w.limits.Check(&token.Descriptor{Decimals: 6}, req.Amount, big.NewInt(0), limits.KindBridge); err != nil {
		return "", err
	}

	summary := fmt.Sprintf("bridge %s from chain %d to chain %d via %s", req.Token, req.SourceChain, req.DestChain, protocol)
	details := map[string]any{"protocol": protocol, "source_chain": req.SourceChain, "dest_chain": req.DestChain}
	if _, err := w.arbiter.Gate(ctx, w.policy, summary, details, amountUSD, req.Recipient); err != nil {
		return "", fmt.Errorf("approval: %w", err)
	}

	trackingID, _, err := w.router.Initiate(ctx, protocol, req, recipientRawHex, amountUSD, big.NewInt(0))
	if err != nil {
		return "", err
	}

	w.limits.Record(&token.Descriptor{Decimals: 6}, req.Amount, limits.KindBridge)
	if meta, ok := w.router.Tracking().GetMetadata(trackingID); ok {
		w.recorder.RecordBridgeMetadata(trackingID, meta)
	}
	w.log.Printf("initiated bridge %s via %s", trackingID, protocol)

	return trackingID, nil
}

// BridgeAwait drives a transfer from attestation_pending through to
// completed or failed.
func (w *Wallet) BridgeAwait(ctx context.Context, trackingID string) (bridge.StatusResult, error) {
	return w.router.AwaitCompletion(ctx, trackingID)
}

// BridgeStatus polls the owning adapter for a point-in-time status
// read without waiting for completion.
func (w *Wallet) BridgeStatus(ctx context.Context, trackingID string) (bridge.StatusResult, error) {
	return w.router.Reconcile(ctx, trackingID)
}

// buildTransferCall resolves the gas limit, destination, calldata, and
// value for a plain send: an ERC-20 transfer if tok has a contract
// address on chainID, otherwise a native value transfer.
func (w *Wallet) buildTransferCall(tok *token.Descriptor, chainID int64, rawAmount *big.Int, recipient common.Address) (gasLimit uint64, to common.Address, data []byte, value *big.Int) {
	if addr, ok := tok.AddressOn(chainID); ok {
		packed, err := w.erc20ABI.Pack("transfer", recipient, rawAmount)
		if err != nil {
			// Packing a fixed two-argument ABI call with validated types
			// cannot fail; a panic here would indicate a corrupted ABI.
			panic(fmt.Sprintf("walletcore: packing transfer: %v", err))
		}
		return 65_000, addr, packed, big.NewInt(0)
	}
	return 21_000, recipient, nil, new(big.Int).Set(rawAmount)
}

func (w *Wallet) gasCostUSD(ctx context.Context, estimate evmchain.GasEstimate) (*big.Int, error) {
	price := estimate.MaxFeePerGas
	if estimate.Legacy {
		price = estimate.GasPrice
	}
	gasCostWei := new(big.Int).Mul(price, new(big.Int).SetUint64(estimate.GasLimit))

	ethUSD, err := w.quoteETHUSD(ctx)
	if err != nil {
		// No oracle configured: report gas cost as zero USD rather than
		// failing every preview/send outright (spec.md §1 treats the
		// price oracle as an external, optional collaborator).
		return big.NewInt(0), nil
	}
	usd := new(big.Int).Mul(gasCostWei, ethUSD)
	usd.Div(usd, big.NewInt(1_000_000_000_000_000_000))
	return units.ToUSD6(usd, 6), nil
}

// sendAndWait builds, signs, submits, and waits for a plain transfer
// transaction, mirroring the bridge adapters' sendAndWait shape
// (bridge/cctp/adapter.go) generalised to an arbitrary (to, data,
// value) call instead of a fixed contract method.
func (w *Wallet) sendAndWait(ctx context.Context, client *evmchain.Client, coordinator *nonce.Coordinator, to common.Address, data []byte, value *big.Int, gasLimit uint64, onAccepted func()) (*types.Receipt, error) {
	tiers, err := client.EstimateFees(ctx, gasLimit, evmchain.DefaultGasPolicy())
	if err != nil {
		return nil, err
	}

	n, err := coordinator.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	var tx *types.Transaction
	if tiers.Standard.Legacy {
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    n,
			To:       &to,
			Value:    value,
			Gas:      tiers.Standard.GasLimit,
			GasPrice: tiers.Standard.GasPrice,
			Data:     data,
		})
	} else {
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   client.ChainID(),
			Nonce:     n,
			To:        &to,
			Value:     value,
			Gas:       tiers.Standard.GasLimit,
			GasFeeCap: tiers.Standard.MaxFeePerGas,
			GasTipCap: tiers.Standard.MaxPriorityFeePerGas,
			Data:      data,
		})
	}

	signedTx, err := signer.WithKey(w.signer, func(key *ecdsa.PrivateKey) (*types.Transaction, error) {
		return types.SignTx(tx, types.LatestSignerForChainID(client.ChainID()), key)
	})
	if err != nil {
		return nil, fmt.Errorf("signing: %w", err)
	}

	if err := client.SendRaw(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("sending: %w", err)
	}
	if onAccepted != nil {
		onAccepted()
	}

	receipt, err := w.awaitReceipt(ctx, client, signedTx.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", signedTx.Hash().Hex())
	}
	return receipt, nil
}

func (w *Wallet) awaitReceipt(ctx context.Context, client *evmchain.Client, hash common.Hash) (*types.Receipt, error) {
	for {
		receipt, err := client.Receipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// sendChainClientAdapter binds a single sender address to an
// evmchain.Client so it satisfies nonce.ChainClient's address-less
// PendingNonce, same shape as bridge/cctp's chainClientAdapter.
type sendChainClientAdapter struct {
	client *evmchain.Client
	addr   common.Address
}

func (c *sendChainClientAdapter) PendingNonce(ctx context.Context) (uint64, error) {
	return c.client.PendingNonce(ctx, c.addr)
}

// approvalRecorder adapts the facade's Recorder to approval.Recorder.
type approvalRecorder struct {
	recorder Recorder
}

func (a *approvalRecorder) RecordDecision(d approval.Decision) {
	a.recorder.RecordApproval(d.RequestID, string(d.State))
}
