// Package across implements the intent-relayer "fill-and-settle" bridge
// protocol adapter from spec.md §4.7.1: fetch a quote over HTTP, call
// deposit on the source chain's spoke pool, then poll deposit status
// until filled. Grounded on the teacher's nearintents.Provider (HTTP
// quote-then-poll shape, nearintents/provider.go) but re-implemented
// over stdlib net/http instead of the NEAR one-click SDK, since
// Across's REST surface (suggested-fees, deposit/status) is unrelated
// to NEAR intents (see DESIGN.md).
package across

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// MainnetAPIBase is Across's public suggested-fees/status API.
const MainnetAPIBase = "https://app.across.to/api"

type suggestedFeesResponse struct {
	TotalRelayFee struct {
		Pct   string `json:"pct"`
		Total string `json:"total"`
	} `json:"totalRelayFee"`
	RelayGasFee struct {
		Total string `json:"total"`
	} `json:"relayGasFee"`
	Timestamp           string `json:"timestamp"`
	SpokePoolAddress    string `json:"spokePoolAddress"`
	ExclusiveRelayer    string `json:"exclusiveRelayer"`
	ExclusivityDeadline int64  `json:"exclusivityDeadline"`
	FillDeadline        int64  `json:"fillDeadline"`
	OutputAmount        string `json:"outputAmount"`
}

type depositStatusResponse struct {
	Status string `json:"status"` // "pending" | "filled" | "expired"
	FillTx string `json:"fillTx"`
}

// client is a thin wrapper over the two Across HTTP endpoints the
// adapter needs.
type client struct {
	base string
	http *http.Client
}

func newClient(base string, httpClient *http.Client) *client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &client{base: base, http: httpClient}
}

func (c *client) suggestedFees(ctx context.Context, originChain, destChain int64, inputToken, outputToken string, amount *big.Int) (suggestedFeesResponse, error) {
	q := url.Values{}
	q.Set("originChainId", strconv.FormatInt(originChain, 10))
	q.Set("destinationChainId", strconv.FormatInt(destChain, 10))
	q.Set("inputToken", inputToken)
	q.Set("outputToken", outputToken)
	q.Set("amount", amount.String())

	var out suggestedFeesResponse
	err := c.getJSON(ctx, "/suggested-fees", q, &out)
	return out, err
}

func (c *client) depositStatus(ctx context.Context, originChain int64, depositID string) (depositStatusResponse, error) {
	q := url.Values{}
	q.Set("originChainId", strconv.FormatInt(originChain, 10))
	q.Set("depositId", depositID)

	var out depositStatusResponse
	err := c.getJSON(ctx, "/deposit/status", q, &out)
	return out, err
}

func (c *client) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.base + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("across %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("across %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

const (
	statusPollInterval = 10 * time.Second
	statusPollTimeout  = 20 * time.Minute
)
