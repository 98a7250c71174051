// Package client provides an HTTP client for the wallet analysis API.
// It is the library the vouch CLI is built on and can be embedded in
// any Go program that consumes the service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BadGenius22/vouch-protocol-sub001/service/activity"
)

// Wallet is a registered wallet as reported by the server.
type Wallet struct {
	Address                string    `json:"address"`
	Network                string    `json:"network"`
	RefreshIntervalSeconds int64     `json:"refresh_interval_seconds"`
	Status                 string    `json:"status"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Snapshot is a stored metric snapshot as reported by the server.
type Snapshot struct {
	ID            int64           `json:"ID"`
	WalletAddress string          `json:"WalletAddress"`
	Network       string          `json:"Network"`
	Kind          string          `json:"Kind"`
	PeriodDays    int             `json:"PeriodDays"`
	Payload       json.RawMessage `json:"Payload"`
	Partial       bool            `json:"Partial"`
	ComputedAt    time.Time       `json:"ComputedAt"`
}

// RegisterWalletParams configures a wallet registration.
type RegisterWalletParams struct {
	Address                string `json:"address"`
	Network                string `json:"network,omitempty"`
	RefreshIntervalSeconds int64  `json:"refresh_interval_seconds,omitempty"`
	PeriodDays             int    `json:"period_days,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Partial bool            `json:"partial"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client is the HTTP client for the wallet analysis service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new analysis service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// DeployedPrograms fetches the deployed-programs analysis for a wallet.
// The returned result carries its own Partial flag when the server
// degraded.
func (c *Client) DeployedPrograms(ctx context.Context, address string) (*activity.DeployedProgramsResult, error) {
	var result activity.DeployedProgramsResult
	path := "/api/v1/wallets/" + url.PathEscape(address) + "/programs"
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TradingVolume fetches the trading-volume analysis for a wallet over
// the given lookback window in days.
func (c *Client) TradingVolume(ctx context.Context, address string, days int) (*activity.TradingVolumeResult, error) {
	var result activity.TradingVolumeResult
	path := "/api/v1/wallets/" + url.PathEscape(address) + "/volume?days=" + strconv.Itoa(days)
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RegisterWallet tells the server to start refreshing metrics for a
// wallet on a schedule.
func (c *Client) RegisterWallet(ctx context.Context, params RegisterWalletParams) (*Wallet, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/wallets", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, c.parseErrorResponse(resp)
	}

	var wallet Wallet
	if err := decodeEnvelope(resp.Body, &wallet); err != nil {
		return nil, err
	}

	c.logger.Debug("wallet registered", "address", wallet.Address, "network", wallet.Network)
	return &wallet, nil
}

// UnregisterWallet tells the server to stop refreshing a wallet and
// drop its row.
func (c *Client) UnregisterWallet(ctx context.Context, address, network string) error {
	path := c.baseURL + "/api/v1/wallets/" + url.PathEscape(address)
	if network != "" {
		path += "?network=" + url.QueryEscape(network)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return c.parseErrorResponse(resp)
	}

	c.logger.Debug("wallet unregistered", "address", address, "network", network)
	return nil
}

// GetWallet fetches a registered wallet.
func (c *Client) GetWallet(ctx context.Context, address, network string) (*Wallet, error) {
	path := "/api/v1/wallets/" + url.PathEscape(address)
	if network != "" {
		path += "?network=" + url.QueryEscape(network)
	}

	var wallet Wallet
	if err := c.get(ctx, path, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// ListWallets fetches all registered wallets, optionally filtered by
// status ("active" or "paused").
func (c *Client) ListWallets(ctx context.Context, status string) ([]*Wallet, error) {
	path := "/api/v1/wallets"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var data struct {
		Wallets []*Wallet `json:"wallets"`
	}
	if err := c.get(ctx, path, &data); err != nil {
		return nil, err
	}
	return data.Wallets, nil
}

// ListSnapshots fetches stored metric snapshots for a wallet, newest
// first. Kind may be "programs", "volume", or empty for both.
func (c *Client) ListSnapshots(ctx context.Context, address, network, kind string, limit int) ([]*Snapshot, error) {
	query := url.Values{}
	if network != "" {
		query.Set("network", network)
	}
	if kind != "" {
		query.Set("kind", kind)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/wallets/" + url.PathEscape(address) + "/snapshots"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var data struct {
		Snapshots []*Snapshot `json:"snapshots"`
	}
	if err := c.get(ctx, path, &data); err != nil {
		return nil, err
	}
	return data.Snapshots, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}
	return nil
}

// get performs a GET request and unmarshals the envelope's data field
// into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	return decodeEnvelope(resp.Body, out)
}

func decodeEnvelope(body io.Reader, out any) error {
	var env envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("server reported failure: %s", env.Error)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// parseErrorResponse attempts to parse an error envelope from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: env.Error}
}
