package helius

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BadGenius22/vouch-protocol-sub001/service/metrics"
)

// BatchSize is the documented limit on signatures per parse call.
const BatchSize = 100

// HTTPError is an error response from the indexing service. It carries
// a typed retry classification so callers never inspect message text:
// 4xx rejections are final, 429 and 5xx are transient.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("helius http %d", e.StatusCode)
	}
	return fmt.Sprintf("helius http %d: %s", e.StatusCode, b)
}

// Retryable reports whether the request is worth another attempt.
func (e *HTTPError) Retryable() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode >= 500
}

// RPCError is a JSON-RPC level error from the indexing service.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("helius rpc error %d: %s", e.Code, e.Message)
}

// Retryable: JSON-RPC application errors (bad params, unknown method)
// do not improve on retry.
func (e *RPCError) Retryable() bool { return false }

// Client talks to the Helius indexing service: JSON-RPC for signature
// listing, balances and asset holdings, and the REST endpoint for
// enhanced-transaction parsing.
type Client struct {
	rpcURL   string
	parseURL string
	apiKey   string
	http     *http.Client
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewClient creates a new indexing-service client. If m is nil, no
// metrics are recorded.
func NewClient(rpcURL, parseURL, apiKey string, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		rpcURL:   strings.TrimRight(strings.TrimSpace(rpcURL), "/"),
		parseURL: strings.TrimRight(strings.TrimSpace(parseURL), "/"),
		apiKey:   strings.TrimSpace(apiKey),
		http:     &http.Client{Timeout: 30 * time.Second},
		metrics:  m,
		logger:   logger,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error,omitempty"`
}

// call performs one JSON-RPC request and decodes the result into out.
// Retry is deliberately left to the caller so each pipeline batch is
// wrapped independently.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	start := time.Now()
	err := c.doCall(ctx, method, params, out)
	if c.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		c.metrics.RecordIndexerCall(method, status, time.Since(start).Seconds())
	}
	return err
}

func (c *Client) doCall(ctx context.Context, method string, params any, out any) error {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	endpoint := c.rpcURL
	if c.apiKey != "" {
		endpoint += "/?api-key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var rpcRes rpcResponse
	if err := json.Unmarshal(body, &rpcRes); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if rpcRes.Error != nil {
		return rpcRes.Error
	}
	if out != nil {
		if err := json.Unmarshal(rpcRes.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

// signatureResult matches the getSignaturesForAddress wire format.
type signatureResult struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Err       any    `json:"err"`
}

// ListSignatures returns the most recent transaction signatures for a
// wallet, newest first, up to limit.
func (c *Client) ListSignatures(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	params := []any{address, map[string]any{"limit": limit}}

	var raw []signatureResult
	if err := c.call(ctx, "getSignaturesForAddress", params, &raw); err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, 0, len(raw))
	for _, r := range raw {
		info := SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			Failed:    r.Err != nil,
		}
		if r.BlockTime != nil {
			t := time.Unix(*r.BlockTime, 0).UTC()
			info.BlockTime = &t
		}
		sigs = append(sigs, info)
	}

	c.logger.DebugContext(ctx, "listed signatures",
		"address", address,
		"limit", limit,
		"count", len(sigs),
	)
	return sigs, nil
}

// ParseTransactions submits one batch of signatures to the
// enhanced-transaction endpoint and returns structured records with
// their classification kind decoded. Callers slice the signature list
// into batches of at most BatchSize.
func (c *Client) ParseTransactions(ctx context.Context, signatures []string) ([]*EnhancedTransaction, error) {
	if len(signatures) == 0 {
		return nil, nil
	}
	if len(signatures) > BatchSize {
		return nil, fmt.Errorf("batch of %d exceeds parse limit of %d", len(signatures), BatchSize)
	}

	reqBody, err := json.Marshal(map[string]any{"transactions": signatures})
	if err != nil {
		return nil, fmt.Errorf("marshal parse request: %w", err)
	}

	endpoint := c.parseURL
	if c.apiKey != "" {
		endpoint += "?api-key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if c.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		c.metrics.RecordIndexerCall("parseTransactions", status, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("parse transactions: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse transactions: read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var txns []*EnhancedTransaction
	if err := json.Unmarshal(body, &txns); err != nil {
		return nil, fmt.Errorf("parse transactions: decode response: %w", err)
	}

	for _, tx := range txns {
		tx.Kind = decodeKind(tx)
	}

	c.logger.DebugContext(ctx, "parsed transaction batch",
		"requested", len(signatures),
		"returned", len(txns),
	)
	return txns, nil
}

// balanceResult matches the getBalance wire format.
type balanceResult struct {
	Value uint64 `json:"value"`
}

// GetNativeBalance returns a wallet's native balance in lamports.
func (c *Client) GetNativeBalance(ctx context.Context, address string) (uint64, error) {
	var raw balanceResult
	if err := c.call(ctx, "getBalance", []any{address}, &raw); err != nil {
		return 0, err
	}
	return raw.Value, nil
}

// assetsResult matches the getAssetsByOwner (DAS) wire format, pared
// down to the priced token info this service consumes.
type assetsResult struct {
	Items []struct {
		ID        string `json:"id"`
		TokenInfo *struct {
			PriceInfo *struct {
				TotalPrice float64 `json:"total_price"`
			} `json:"price_info"`
		} `json:"token_info"`
	} `json:"items"`
}

// GetAssetsByOwner returns the priced fungible holdings of an owner.
// Assets without price information are returned with a zero value so
// callers can still count them.
func (c *Client) GetAssetsByOwner(ctx context.Context, owner string) ([]Asset, error) {
	params := map[string]any{
		"ownerAddress": owner,
		"page":         1,
		"limit":        1000,
		"displayOptions": map[string]any{
			"showFungible": true,
		},
	}

	var raw assetsResult
	if err := c.call(ctx, "getAssetsByOwner", params, &raw); err != nil {
		return nil, err
	}

	assets := make([]Asset, 0, len(raw.Items))
	for _, item := range raw.Items {
		asset := Asset{ID: item.ID}
		if item.TokenInfo != nil && item.TokenInfo.PriceInfo != nil {
			asset.TotalPrice = item.TokenInfo.PriceInfo.TotalPrice
		}
		assets = append(assets, asset)
	}
	return assets, nil
}
