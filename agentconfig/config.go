// Package agentconfig loads the wallet's on-disk JSON configuration and
// resolves it into a walletcore.Config, grounded on the teacher's
// config.Load/validate shape (JSON file -> struct -> fail-fast
// validate), generalised from Telegram/mnemonic fields to
// RPC-endpoint/limits/approval/bridge-protocol fields.
package agentconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lambdaclass/agentwallet/approval"
	"github.com/lambdaclass/agentwallet/bridge/across"
	"github.com/lambdaclass/agentwallet/bridge/cctp"
	"github.com/lambdaclass/agentwallet/evmchain"
	"github.com/lambdaclass/agentwallet/limits"
	"github.com/lambdaclass/agentwallet/units"
	"github.com/lambdaclass/agentwallet/walletcore"
)

// ChainEndpoint is one chain's JSON-RPC URL.
type ChainEndpoint struct {
	ChainID int64  `json:"chain_id"`
	RPCURL  string `json:"rpc_url"`
}

// LimitsConfig mirrors limits.Config with USD amounts as decimal
// strings (e.g. "500.00"), parsed to USD-6 at Resolve time the same
// way an operator-facing config always carries human decimals rather
// than raw base units.
type LimitsConfig struct {
	PerTransactionUSD      string `json:"per_transaction_usd"`
	PerHourUSD             string `json:"per_hour_usd"`
	PerDayUSD              string `json:"per_day_usd"`
	PerWeekUSD             string `json:"per_week_usd"`
	EmergencyMinBalanceWei string `json:"emergency_min_balance_wei"`
}

// ApprovalConfig mirrors approval.Policy with the USD threshold as a
// decimal string and the timeout in milliseconds.
type ApprovalConfig struct {
	AmountExceedsUSD string `json:"amount_exceeds_usd"`
	RecipientIsNew   bool   `json:"recipient_is_new"`
	TimeoutMs        int64  `json:"timeout_ms"`
}

// CCTPEndpointConfig is one chain's CCTP contract addresses and Circle
// domain id, serialised form of cctp.Endpoint.
type CCTPEndpointConfig struct {
	ChainID            int64  `json:"chain_id"`
	Domain             uint32 `json:"domain"`
	TokenMessenger     string `json:"token_messenger"`
	MessageTransmitter string `json:"message_transmitter"`
	USDC               string `json:"usdc"`
}

// CCTPConfig configures the burn-and-mint protocol adapter, if enabled.
type CCTPConfig struct {
	AttestationBase string               `json:"attestation_base"`
	Endpoints       []CCTPEndpointConfig `json:"endpoints"`
}

// AcrossEndpointConfig is one chain's Across USDC address, serialised
// form of across.Endpoint.
type AcrossEndpointConfig struct {
	ChainID int64  `json:"chain_id"`
	USDC    string `json:"usdc"`
}

// AcrossConfig configures the intent-relayer protocol adapter, if
// enabled.
type AcrossConfig struct {
	APIBase   string                 `json:"api_base"`
	Endpoints []AcrossEndpointConfig `json:"endpoints"`
}

// Config is the on-disk shape of the wallet's configuration. Resolve
// copies the signer material across; the approval handler and the
// oracle/recorder dependencies that aren't JSON-serialisable are
// attached to the resolved walletcore.Config by the host after Resolve
// returns.
type Config struct {
	PrivateKeyHex string `json:"private_key_hex"`
	Mnemonic      string `json:"mnemonic"`
	MnemonicIndex uint32 `json:"mnemonic_index"`

	Chains []ChainEndpoint `json:"chains"`

	Limits LimitsConfig `json:"limits"`

	Approval         ApprovalConfig `json:"approval"`
	TrustedAddresses []string       `json:"trusted_addresses"`
	BlockedAddresses []string       `json:"blocked_addresses"`

	AllowedBridgeDestinations []int64       `json:"allowed_bridge_destinations"`
	CCTP                      *CCTPConfig   `json:"cctp,omitempty"`
	Across                    *AcrossConfig `json:"across,omitempty"`
}

// Load reads and parses a JSON config file, failing fast on a
// malformed or incomplete config rather than deferring to a confusing
// failure deep inside wallet construction.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.PrivateKeyHex == "" && c.Mnemonic == "" {
		return fmt.Errorf("exactly one of private_key_hex or mnemonic must be set")
	}
	if c.PrivateKeyHex != "" && c.Mnemonic != "" {
		return fmt.Errorf("private_key_hex and mnemonic are mutually exclusive")
	}
	if len(c.Chains) == 0 {
		return fmt.Errorf("at least one chain endpoint is required")
	}
	for _, ep := range c.Chains {
		if ep.RPCURL == "" {
			return fmt.Errorf("chain %d: rpc_url is required", ep.ChainID)
		}
	}
	if c.CCTP != nil && len(c.CCTP.Endpoints) == 0 {
		return fmt.Errorf("cctp: at least one endpoint is required when enabled")
	}
	if c.Across != nil && len(c.Across.Endpoints) == 0 {
		return fmt.Errorf("across: at least one endpoint is required when enabled")
	}
	return nil
}

// parseUSD parses a decimal USD string into USD-6, treating an empty
// string as zero (an unset limit reads as "no allowance" rather than
// "no limit").
func parseUSD(raw string) (*big.Int, error) {
	if raw == "" {
		return big.NewInt(0), nil
	}
	return units.ParseAmount(raw, units.USD6Decimals)
}

func parseWei(raw string) (*big.Int, error) {
	if raw == "" {
		return big.NewInt(0), nil
	}
	return units.ParseAmount(raw, 0)
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("malformed address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

// Resolve dials the configured RPC endpoints and assembles a
// walletcore.Config, reusing one dialed evmchain.Client per chain id
// across both the direct chain list and any bridge-protocol endpoint
// that references the same chain.
func (c *Config) Resolve(ctx context.Context) (walletcore.Config, error) {
	if err := c.validate(); err != nil {
		return walletcore.Config{}, err
	}

	dialed := make(map[int64]*evmchain.Client, len(c.Chains))
	dial := func(chainID int64, rpcURL string) (*evmchain.Client, error) {
		if client, ok := dialed[chainID]; ok {
			return client, nil
		}
		client, err := evmchain.Dial(ctx, rpcURL)
		if err != nil {
			return nil, fmt.Errorf("dialing chain %d: %w", chainID, err)
		}
		dialed[chainID] = client
		return client, nil
	}

	wcChains := make([]walletcore.ChainEndpoint, 0, len(c.Chains))
	rpcByChain := make(map[int64]string, len(c.Chains))
	for _, ep := range c.Chains {
		if _, err := dial(ep.ChainID, ep.RPCURL); err != nil {
			return walletcore.Config{}, err
		}
		wcChains = append(wcChains, walletcore.ChainEndpoint{ChainID: ep.ChainID, RPCURL: ep.RPCURL})
		rpcByChain[ep.ChainID] = ep.RPCURL
	}

	limitsCfg, err := c.resolveLimits()
	if err != nil {
		return walletcore.Config{}, err
	}

	approvalPolicy, err := c.resolveApproval()
	if err != nil {
		return walletcore.Config{}, err
	}

	cfg := walletcore.Config{
		PrivateKeyHex:             c.PrivateKeyHex,
		Mnemonic:                  c.Mnemonic,
		MnemonicIndex:             c.MnemonicIndex,
		Chains:                    wcChains,
		Limits:                    limitsCfg,
		Approval:                  approvalPolicy,
		TrustedAddresses:          c.TrustedAddresses,
		BlockedAddresses:          c.BlockedAddresses,
		AllowedBridgeDestinations: c.AllowedBridgeDestinations,
	}

	if c.CCTP != nil {
		cctpCfg := &walletcore.CCTPConfig{AttestationBase: c.CCTP.AttestationBase}
		for _, ep := range c.CCTP.Endpoints {
			rpcURL, ok := rpcByChain[ep.ChainID]
			if !ok {
				return walletcore.Config{}, fmt.Errorf("cctp: chain %d has no matching chains[] entry", ep.ChainID)
			}
			client, err := dial(ep.ChainID, rpcURL)
			if err != nil {
				return walletcore.Config{}, err
			}
			tokenMessenger, err := parseAddress(ep.TokenMessenger)
			if err != nil {
				return walletcore.Config{}, fmt.Errorf("cctp chain %d: token_messenger: %w", ep.ChainID, err)
			}
			messageTransmitter, err := parseAddress(ep.MessageTransmitter)
			if err != nil {
				return walletcore.Config{}, fmt.Errorf("cctp chain %d: message_transmitter: %w", ep.ChainID, err)
			}
			usdc, err := parseAddress(ep.USDC)
			if err != nil {
				return walletcore.Config{}, fmt.Errorf("cctp chain %d: usdc: %w", ep.ChainID, err)
			}
			cctpCfg.Endpoints = append(cctpCfg.Endpoints, cctp.Endpoint{
				ChainID:            ep.ChainID,
				Domain:             ep.Domain,
				Client:             client,
				TokenMessenger:     tokenMessenger,
				MessageTransmitter: messageTransmitter,
				USDC:               usdc,
			})
		}
		cfg.CCTP = cctpCfg
	}

	if c.Across != nil {
		acrossCfg := &walletcore.AcrossConfig{APIBase: c.Across.APIBase}
		for _, ep := range c.Across.Endpoints {
			rpcURL, ok := rpcByChain[ep.ChainID]
			if !ok {
				return walletcore.Config{}, fmt.Errorf("across: chain %d has no matching chains[] entry", ep.ChainID)
			}
			client, err := dial(ep.ChainID, rpcURL)
			if err != nil {
				return walletcore.Config{}, err
			}
			usdc, err := parseAddress(ep.USDC)
			if err != nil {
				return walletcore.Config{}, fmt.Errorf("across chain %d: usdc: %w", ep.ChainID, err)
			}
			acrossCfg.Endpoints = append(acrossCfg.Endpoints, across.Endpoint{
				ChainID: ep.ChainID,
				Client:  client,
				USDC:    usdc,
			})
		}
		cfg.Across = acrossCfg
	}

	return cfg, nil
}

func (c *Config) resolveLimits() (limits.Config, error) {
	perTx, err := parseUSD(c.Limits.PerTransactionUSD)
	if err != nil {
		return limits.Config{}, fmt.Errorf("limits.per_transaction_usd: %w", err)
	}
	perHour, err := parseUSD(c.Limits.PerHourUSD)
	if err != nil {
		return limits.Config{}, fmt.Errorf("limits.per_hour_usd: %w", err)
	}
	perDay, err := parseUSD(c.Limits.PerDayUSD)
	if err != nil {
		return limits.Config{}, fmt.Errorf("limits.per_day_usd: %w", err)
	}
	perWeek, err := parseUSD(c.Limits.PerWeekUSD)
	if err != nil {
		return limits.Config{}, fmt.Errorf("limits.per_week_usd: %w", err)
	}
	minBalance, err := parseWei(c.Limits.EmergencyMinBalanceWei)
	if err != nil {
		return limits.Config{}, fmt.Errorf("limits.emergency_min_balance_wei: %w", err)
	}

	return limits.Config{
		PerTransactionUSD:      perTx,
		PerHourUSD:             perHour,
		PerDayUSD:              perDay,
		PerWeekUSD:             perWeek,
		EmergencyMinBalanceWei: minBalance,
	}, nil
}

func (c *Config) resolveApproval() (approval.Policy, error) {
	threshold, err := parseUSD(c.Approval.AmountExceedsUSD)
	if err != nil {
		return approval.Policy{}, fmt.Errorf("approval.amount_exceeds_usd: %w", err)
	}

	timeout := approval.DefaultTimeout
	if c.Approval.TimeoutMs > 0 {
		timeout = time.Duration(c.Approval.TimeoutMs) * time.Millisecond
	}

	return approval.Policy{
		AmountExceedsUSD: threshold,
		RecipientIsNew:   c.Approval.RecipientIsNew,
		Timeout:          timeout,
	}, nil
}
