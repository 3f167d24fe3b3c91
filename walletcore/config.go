package walletcore

import (
	"context"
	"fmt"
	"math/big"

	"github.com/lambdaclass/agentwallet/approval"
	"github.com/lambdaclass/agentwallet/bridge/across"
	"github.com/lambdaclass/agentwallet/bridge/cctp"
	"github.com/lambdaclass/agentwallet/limits"
)

// ChainEndpoint is one EVM chain's JSON-RPC URL.
type ChainEndpoint struct {
	ChainID int64
	RPCURL  string
}

// CCTPConfig configures the burn-and-mint protocol adapter, if enabled.
type CCTPConfig struct {
	AttestationBase string
	Endpoints       []cctp.Endpoint
}

// AcrossConfig configures the intent-relayer protocol adapter, if enabled.
type AcrossConfig struct {
	APIBase   string
	Endpoints []across.Endpoint
}

// Config is the composition root's input, grounded on the teacher's
// config.Config (validate-and-fail-fast at load time, cmd/fundbot/main.go's
// wiring order).
type Config struct {
	// Signer: exactly one of the two MUST be set.
	PrivateKeyHex string
	Mnemonic      string
	MnemonicIndex uint32

	Chains []ChainEndpoint

	Limits limits.Config

	Approval         approval.Policy
	Handler          approval.Handler
	TrustedAddresses []string
	BlockedAddresses []string

	AllowedBridgeDestinations []int64
	CCTP                      *CCTPConfig
	Across                    *AcrossConfig

	QuoteETHUSD cctp.QuoteETHUSD

	Recorder Recorder
}

// validate fails fast on configuration errors the way the teacher's
// config.Config.Validate does, rather than deferring to a confusing
// failure deep inside a send.
func (c *Config) validate() error {
	if c.PrivateKeyHex == "" && c.Mnemonic == "" {
		return fmt.Errorf("config: exactly one of PrivateKeyHex or Mnemonic must be set")
	}
	if c.PrivateKeyHex != "" && c.Mnemonic != "" {
		return fmt.Errorf("config: PrivateKeyHex and Mnemonic are mutually exclusive")
	}
	if len(c.Chains) == 0 {
		return fmt.Errorf("config: at least one chain endpoint is required")
	}
	if c.QuoteETHUSD == nil && c.CCTP != nil {
		return fmt.Errorf("config: CCTP requires a QuoteETHUSD dependency")
	}
	return nil
}

func defaultQuoteETHUSD(_ context.Context) (*big.Int, error) {
	return nil, fmt.Errorf("quote_eth_usd: no oracle configured")
}

func (c *Config) resolveQuoteETHUSD() cctp.QuoteETHUSD {
	if c.QuoteETHUSD != nil {
		return c.QuoteETHUSD
	}
	return defaultQuoteETHUSD
}
