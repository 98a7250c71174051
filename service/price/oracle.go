package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/BadGenius22/vouch-protocol-sub001/service/metrics"
)

// DefaultSOLPriceUSD is the last-resort price used when no fetch has
// ever succeeded and no cached quote exists. Monetary outputs built on
// it are still served rather than failing the whole request.
const DefaultSOLPriceUSD = 150.0

// DefaultTTL is how long a fetched quote stays fresh.
const DefaultTTL = time.Minute

// Quote is one observed price with its provenance.
type Quote struct {
	USD       float64
	FetchedAt time.Time
	// Stale is true when the quote outlived its TTL but was served
	// anyway because a refresh failed.
	Stale bool
	// Fallback is true when the quote is the hardcoded default.
	Fallback bool
}

// Fetcher retrieves the current SOL price in USD. Implementations make
// exactly one attempt; the oracle handles degradation, not retries.
type Fetcher interface {
	FetchSOLPrice(ctx context.Context) (float64, error)
}

// Oracle serves SOL/USD quotes with a short-lived cache. A fresh quote
// is served from cache; an expired one triggers a single fetch, and on
// fetch failure the stale quote keeps being served. Only when there is
// nothing cached at all does the hardcoded default apply.
type Oracle struct {
	fetcher Fetcher
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu   sync.Mutex
	last *Quote

	now func() time.Time
}

// NewOracle creates a price oracle. If ttl is zero DefaultTTL is used;
// if m is nil no metrics are recorded.
func NewOracle(fetcher Fetcher, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *Oracle {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Oracle{
		fetcher: fetcher,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// SOLPrice returns the current SOL price in USD. It never returns an
// error: degraded quotes are marked Stale or Fallback instead.
func (o *Oracle) SOLPrice(ctx context.Context) Quote {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	if o.last != nil && now.Sub(o.last.FetchedAt) < o.ttl {
		o.record("cached")
		return *o.last
	}

	usd, err := o.fetcher.FetchSOLPrice(ctx)
	if err == nil && usd > 0 {
		o.last = &Quote{USD: usd, FetchedAt: now}
		o.record("fresh")
		if o.metrics != nil {
			o.metrics.RecordPrice("SOL", usd)
		}
		return *o.last
	}
	if err == nil {
		err = fmt.Errorf("non-positive price %f", usd)
	}

	if o.last != nil {
		o.logger.Warn("price refresh failed, serving stale quote",
			"error", err,
			"quote_age", now.Sub(o.last.FetchedAt).String())
		o.record("stale")
		stale := *o.last
		stale.Stale = true
		return stale
	}

	o.logger.Warn("price fetch failed with empty cache, using default price",
		"error", err,
		"default_usd", DefaultSOLPriceUSD)
	o.record("fallback")
	return Quote{USD: DefaultSOLPriceUSD, FetchedAt: now, Fallback: true}
}

func (o *Oracle) record(status string) {
	if o.metrics != nil {
		o.metrics.RecordPriceFetch(status)
	}
}

// HTTPFetcher fetches the SOL price from a simple-price endpoint that
// responds with {"solana":{"usd":<n>}}.
type HTTPFetcher struct {
	url  string
	http *http.Client
}

// NewHTTPFetcher creates a fetcher against the given simple-price URL.
func NewHTTPFetcher(url string) *HTTPFetcher {
	return &HTTPFetcher{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchSOLPrice makes a single request for the current SOL price.
func (f *HTTPFetcher) FetchSOLPrice(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("price endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var payload map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}

	entry, ok := payload["solana"]
	if !ok {
		return 0, fmt.Errorf("price response missing solana entry")
	}
	return entry.USD, nil
}
