// Package httprpc is the one concrete implementation of rpc.Client: a
// JSON-RPC 2.0 client over the Solana RPC HTTP surface. Its transport
// tuning and rate-limited request pattern are grounded
// on the teacher's internal/binance/client.go; no pack example models a
// Solana JSON-RPC envelope directly, so the request/response shapes here
// are hand-written against spec.md §6.
package httprpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"openbook-candles/internal/rpc"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const programID = "srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX"

// Client is a rate-limited, retrying JSON-RPC client.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
	limiter  *rate.Limiter
}

// New builds a Client against endpoint, bounding outbound request rate to
// rps with the given burst — reusing the teacher's rate-limiter dependency
// (golang.org/x/time/rate) in the outbound direction instead of the
// teacher's inbound API middleware use of it.
func New(endpoint string, rps, burst int) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 250 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient = &http.Client{
		Transport: transport,
		Timeout:   10 * time.Second,
	}
	retryClient.Logger = nil

	return &Client{
		endpoint: endpoint,
		http:     retryClient,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal rpc request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rpc call %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode rpc response for %s: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc call %s returned error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("failed to unmarshal rpc result for %s: %w", method, err)
	}
	return nil
}

type signatureInfoWire struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Err       any    `json:"err"`
}

// GetSignaturesForAddress implements rpc.Client.
func (c *Client) GetSignaturesForAddress(ctx context.Context, addr string, before, until string, limit int) ([]rpc.SignatureInfo, error) {
	cfg := map[string]any{
		"limit":      limit,
		"commitment": "confirmed",
	}
	if before != "" {
		cfg["before"] = before
	}
	if until != "" {
		cfg["until"] = until
	}

	var wire []signatureInfoWire
	if err := c.call(ctx, "getSignaturesForAddress", []any{addr, cfg}, &wire); err != nil {
		return nil, err
	}

	out := make([]rpc.SignatureInfo, len(wire))
	for i, w := range wire {
		var blockTime time.Time
		if w.BlockTime != nil {
			blockTime = time.Unix(*w.BlockTime, 0).UTC()
		}
		out[i] = rpc.SignatureInfo{
			Signature: w.Signature,
			Slot:      w.Slot,
			BlockTime: blockTime,
			Err:       w.Err != nil,
		}
	}
	return out, nil
}

type transactionMetaWire struct {
	Err         any      `json:"err"`
	LogMessages []string `json:"logMessages"`
}

type transactionWire struct {
	Slot      uint64              `json:"slot"`
	BlockTime *int64              `json:"blockTime"`
	Meta      transactionMetaWire `json:"meta"`
}

// GetTransaction implements rpc.Client.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*rpc.Transaction, error) {
	cfg := map[string]any{
		"encoding":                       "json",
		"commitment":                     "confirmed",
		"maxSupportedTransactionVersion": 0,
	}

	var wire *transactionWire
	if err := c.call(ctx, "getTransaction", []any{signature, cfg}, &wire); err != nil {
		return nil, err
	}
	if wire == nil {
		return nil, fmt.Errorf("transaction %s not found", signature)
	}

	var blockTime time.Time
	if wire.BlockTime != nil {
		blockTime = time.Unix(*wire.BlockTime, 0).UTC()
	}

	return &rpc.Transaction{
		Signature:   signature,
		Slot:        wire.Slot,
		BlockTime:   blockTime,
		Err:         wire.Meta.Err != nil,
		LogMessages: wire.Meta.LogMessages,
	}, nil
}

type accountInfoWire struct {
	Data  []string `json:"data"`
	Owner string   `json:"owner"`
}

type accountsResultWire struct {
	Value []*accountInfoWire `json:"value"`
}

// openbook market account field offsets, per the packed MarketState layout
// (5-byte header padding, then account_flags through referrer_rebates_accrued).
const (
	offsetCoinMint     = 13
	offsetPcMint       = 45
	offsetCoinLotSize  = 141
	offsetPcLotSize    = 149
)

// GetMultipleAccounts implements rpc.Client. It performs the batch market
// account fetch spec.md allows at startup, decodes lot sizes and mint
// addresses from each market account, then issues a second batch fetch
// against the mint accounts to read SPL token decimals (offset 44 in the
// standard mint layout).
func (c *Client) GetMultipleAccounts(ctx context.Context, addresses []string) ([]rpc.MarketState, error) {
	marketAccounts, err := c.getMultipleAccountsRaw(ctx, addresses)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market accounts: %w", err)
	}

	// mints holds each market's base mint at 2*i and quote mint at 2*i+1.
	mints := make([]string, 2*len(addresses))
	lotSizes := make([][2]int64, len(addresses))
	for i, acct := range marketAccounts {
		if acct == nil {
			return nil, fmt.Errorf("market account %s not found", addresses[i])
		}
		data, err := decodeAccountData(acct)
		if err != nil {
			return nil, fmt.Errorf("failed to decode market account %s: %w", addresses[i], err)
		}
		mints[2*i] = base64.StdEncoding.EncodeToString(data[offsetCoinMint : offsetCoinMint+32])
		mints[2*i+1] = base64.StdEncoding.EncodeToString(data[offsetPcMint : offsetPcMint+32])
		lotSizes[i][0] = int64(binary.LittleEndian.Uint64(data[offsetCoinLotSize : offsetCoinLotSize+8]))
		lotSizes[i][1] = int64(binary.LittleEndian.Uint64(data[offsetPcLotSize : offsetPcLotSize+8]))
	}

	mintAccounts, err := c.getMultipleAccountsRaw(ctx, mints)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mint accounts: %w", err)
	}

	if len(mintAccounts) != len(mints) {
		return nil, fmt.Errorf("expected %d mint accounts, got %d", len(mints), len(mintAccounts))
	}

	mintDecimals := func(acct *accountInfoWire) int {
		decimals := 6
		if acct != nil {
			if data, err := decodeAccountData(acct); err == nil && len(data) > 44 {
				decimals = int(data[44])
			}
		}
		return decimals
	}

	out := make([]rpc.MarketState, len(addresses))
	for i := range addresses {
		out[i] = rpc.MarketState{
			BaseDecimals:  mintDecimals(mintAccounts[2*i]),
			QuoteDecimals: mintDecimals(mintAccounts[2*i+1]),
			BaseLotSize:   lotSizes[i][0],
			QuoteLotSize:  lotSizes[i][1],
		}
	}
	return out, nil
}

func (c *Client) getMultipleAccountsRaw(ctx context.Context, addresses []string) ([]*accountInfoWire, error) {
	cfg := map[string]any{"encoding": "base64", "commitment": "confirmed"}

	var result accountsResultWire
	if err := c.call(ctx, "getMultipleAccounts", []any{addresses, cfg}, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

func decodeAccountData(acct *accountInfoWire) ([]byte, error) {
	if len(acct.Data) == 0 {
		return nil, fmt.Errorf("empty account data")
	}
	return base64.StdEncoding.DecodeString(acct.Data[0])
}

// ProgramID is the OpenBook/Serum program address every scrape targets.
func ProgramID() string { return programID }
