package activity

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/BadGenius22/vouch-protocol-sub001/service/cache"
	"github.com/BadGenius22/vouch-protocol-sub001/service/helius"
	"github.com/BadGenius22/vouch-protocol-sub001/service/metrics"
	"github.com/BadGenius22/vouch-protocol-sub001/service/price"
	"github.com/BadGenius22/vouch-protocol-sub001/service/retry"
)

// DefaultActivityTTL is how long a computed pipeline result is served
// from cache.
const DefaultActivityTTL = 5 * time.Minute

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	cacheMaxEntries       = 1024
)

// Indexer is the upstream surface both pipelines consume. Implemented
// by helius.Client and helius.MockClient.
type Indexer interface {
	ListSignatures(ctx context.Context, address string, limit int) ([]helius.SignatureInfo, error)
	ParseTransactions(ctx context.Context, signatures []string) ([]*helius.EnhancedTransaction, error)
	GetNativeBalance(ctx context.Context, address string) (uint64, error)
	GetAssetsByOwner(ctx context.Context, owner string) ([]helius.Asset, error)
}

// PriceSource provides the SOL/USD quote. It never fails; degraded
// quotes are marked on the Quote itself.
type PriceSource interface {
	SOLPrice(ctx context.Context) price.Quote
}

// Service runs the wallet-activity analysis pipelines. Construct one
// per process and reuse it across requests; the response caches and the
// price quote live on it.
type Service struct {
	indexer Indexer
	prices  PriceSource
	metrics *metrics.Metrics
	logger  *slog.Logger

	programCache *cache.Store[DeployedProgramsResult]
	volumeCache  *cache.Store[TradingVolumeResult]

	retryAttempts  int
	retryBaseDelay time.Duration

	now func() time.Time
}

// NewService creates the analysis service. If activityTTL is zero
// DefaultActivityTTL is used; if m is nil no metrics are recorded.
func NewService(indexer Indexer, prices PriceSource, activityTTL time.Duration, m *metrics.Metrics, logger *slog.Logger) *Service {
	if activityTTL <= 0 {
		activityTTL = DefaultActivityTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		indexer:        indexer,
		prices:         prices,
		metrics:        m,
		logger:         logger.With("component", "activity"),
		programCache:   cache.New[DeployedProgramsResult](activityTTL, cacheMaxEntries),
		volumeCache:    cache.New[TradingVolumeResult](activityTTL, cacheMaxEntries),
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
		now:            time.Now,
	}
}

// DeployedPrograms finds programs deployed by the wallet and estimates
// each one's holdings value. Only a validation failure returns an
// error; upstream failures degrade to an empty or partial result.
func (s *Service) DeployedPrograms(ctx context.Context, wallet string) (*DeployedProgramsResult, error) {
	wallet, err := ValidateAddress(wallet)
	if err != nil {
		return nil, err
	}

	key := "programs:" + wallet
	if cached, ok := s.programCache.Get(key); ok {
		s.recordCache("programs", true)
		return &cached, nil
	}
	s.recordCache("programs", false)

	start := s.now()
	quote := s.prices.SOLPrice(ctx)

	sigs, err := s.listSignatures(ctx, wallet, SignatureLimitPrograms, "programs")
	if err != nil {
		s.logger.WarnContext(ctx, "signature listing failed, returning empty partial result",
			"wallet", wallet, "error", err)
		s.recordRun("programs", "degraded", start, true)
		return &DeployedProgramsResult{Wallet: wallet, Programs: []ProgramRecord{}, Partial: true}, nil
	}

	type candidate struct {
		address    string
		deployedAt time.Time
	}
	var (
		candidates []candidate
		seen       = make(map[string]struct{})
		partial    bool
	)

	for _, batch := range batchSignatures(sigs) {
		txns, err := retry.Do(ctx, s.retryAttempts, s.retryBaseDelay, func(ctx context.Context) ([]*helius.EnhancedTransaction, error) {
			return s.indexer.ParseTransactions(ctx, batch)
		})
		if err != nil {
			s.logger.WarnContext(ctx, "transaction batch failed, continuing",
				"wallet", wallet, "batch_size", len(batch), "error", err)
			partial = true
			continue
		}

		for _, tx := range txns {
			s.recordKind(tx.Kind)
			addr, ok := ClassifyDeployment(tx, wallet)
			if !ok {
				continue
			}
			if _, dup := seen[addr]; dup {
				continue
			}
			seen[addr] = struct{}{}
			candidates = append(candidates, candidate{address: addr, deployedAt: tx.BlockTime()})
		}
	}

	tvls := mapBounded(ctx, candidates, EnrichmentConcurrency, func(ctx context.Context, c candidate) int64 {
		return s.estimateTVL(ctx, c.address, quote.USD)
	})

	programs := make([]ProgramRecord, len(candidates))
	for i, c := range candidates {
		programs[i] = ProgramRecord{
			Address:      c.address,
			Name:         programName(c.address),
			DeployedAt:   c.deployedAt,
			Deployer:     wallet,
			EstimatedTVL: tvls[i],
		}
	}

	result := &DeployedProgramsResult{Wallet: wallet, Programs: programs, Partial: partial}
	if !partial {
		s.programCache.Set(key, *result)
	}

	status := "complete"
	if partial {
		status = "partial"
	}
	s.recordRun("programs", status, start, partial)
	s.logger.InfoContext(ctx, "deployed-programs pipeline finished",
		"wallet", wallet,
		"signatures", len(sigs),
		"programs", len(programs),
		"partial", partial,
	)
	return result, nil
}

// TradingVolume aggregates the wallet's swap activity over the
// lookback window in whole USD. Only a validation failure returns an
// error; upstream failures degrade to an empty or partial result.
func (s *Service) TradingVolume(ctx context.Context, wallet string, days int) (*TradingVolumeResult, error) {
	wallet, err := ValidateAddress(wallet)
	if err != nil {
		return nil, err
	}
	if err := ValidateLookbackDays(days); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("volume:%s:%d", wallet, days)
	if cached, ok := s.volumeCache.Get(key); ok {
		s.recordCache("volume", true)
		return &cached, nil
	}
	s.recordCache("volume", false)

	start := s.now()
	cutoff := start.AddDate(0, 0, -days)

	// Price and signatures are independent resources; fetch them
	// concurrently and join before parsing.
	var (
		quote price.Quote
		wg    sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		quote = s.prices.SOLPrice(ctx)
	}()

	sigs, err := s.listSignatures(ctx, wallet, SignatureLimitVolume, "volume")
	wg.Wait()
	if err != nil {
		s.logger.WarnContext(ctx, "signature listing failed, returning empty partial result",
			"wallet", wallet, "error", err)
		s.recordRun("volume", "degraded", start, true)
		return &TradingVolumeResult{
			Wallet: wallet, Amounts: []int64{}, PeriodDays: days, Trades: []TradeRecord{}, Partial: true,
		}, nil
	}

	// A signature with an unknown block time cannot prove recency, so
	// it is excluded rather than conservatively included.
	recent := make([]helius.SignatureInfo, 0, len(sigs))
	for _, sig := range sigs {
		if sig.BlockTime == nil || sig.BlockTime.Before(cutoff) {
			continue
		}
		recent = append(recent, sig)
	}

	var (
		trades  []TradeRecord
		partial bool
	)
	for _, batch := range batchSignatures(recent) {
		txns, err := retry.Do(ctx, s.retryAttempts, s.retryBaseDelay, func(ctx context.Context) ([]*helius.EnhancedTransaction, error) {
			return s.indexer.ParseTransactions(ctx, batch)
		})
		if err != nil {
			s.logger.WarnContext(ctx, "transaction batch failed, continuing",
				"wallet", wallet, "batch_size", len(batch), "error", err)
			partial = true
			continue
		}

		for _, tx := range txns {
			s.recordKind(tx.Kind)
			trade, ok := ExtractTrade(tx, quote.USD)
			if !ok {
				if tx.Kind == helius.KindSwap && s.metrics != nil {
					s.metrics.RecordTradeDropped("dust_or_unpriced")
				}
				continue
			}
			trades = append(trades, trade)
		}
	}

	sort.Slice(trades, func(i, j int) bool { return trades[i].Amount > trades[j].Amount })

	var total int64
	for _, t := range trades {
		total += t.Amount
	}

	amounts := make([]int64, 0, MaxVolumeAmounts)
	for _, t := range trades {
		if len(amounts) == MaxVolumeAmounts {
			break
		}
		amounts = append(amounts, t.Amount)
	}

	top := trades
	if len(top) > MaxVolumeTrades {
		top = top[:MaxVolumeTrades]
	}
	if top == nil {
		top = []TradeRecord{}
	}

	result := &TradingVolumeResult{
		Wallet:      wallet,
		TotalVolume: total,
		TradeCount:  len(trades),
		Amounts:     amounts,
		PeriodDays:  days,
		Trades:      top,
		Partial:     partial,
	}
	if !partial {
		s.volumeCache.Set(key, *result)
	}

	status := "complete"
	if partial {
		status = "partial"
	}
	s.recordRun("volume", status, start, partial)
	s.logger.InfoContext(ctx, "trading-volume pipeline finished",
		"wallet", wallet,
		"days", days,
		"trades", len(trades),
		"total_volume", total,
		"partial", partial,
	)
	return result, nil
}

// listSignatures fetches and retries the signature listing for one
// pipeline.
func (s *Service) listSignatures(ctx context.Context, wallet string, limit int, pipeline string) ([]helius.SignatureInfo, error) {
	sigs, err := retry.Do(ctx, s.retryAttempts, s.retryBaseDelay, func(ctx context.Context) ([]helius.SignatureInfo, error) {
		return s.indexer.ListSignatures(ctx, wallet, limit)
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordSignaturesListed(pipeline, len(sigs))
	}
	return sigs, nil
}

// estimateTVL values one program's holdings: native balance at the
// request's price quote plus priced fungible assets. Any failure
// yields zero for this program only.
func (s *Service) estimateTVL(ctx context.Context, program string, solPriceUSD float64) int64 {
	start := s.now()

	lamports, err := retry.Do(ctx, s.retryAttempts, s.retryBaseDelay, func(ctx context.Context) (uint64, error) {
		return s.indexer.GetNativeBalance(ctx, program)
	})
	if err != nil {
		s.recordEnrichment("error", start)
		s.logger.WarnContext(ctx, "balance lookup failed, valuing program at zero",
			"program", program, "error", err)
		return 0
	}

	assets, err := retry.Do(ctx, s.retryAttempts, s.retryBaseDelay, func(ctx context.Context) ([]helius.Asset, error) {
		return s.indexer.GetAssetsByOwner(ctx, program)
	})
	if err != nil {
		s.recordEnrichment("error", start)
		s.logger.WarnContext(ctx, "asset lookup failed, valuing program at zero",
			"program", program, "error", err)
		return 0
	}

	total := float64(lamports) / LamportsPerSOL * solPriceUSD
	for _, asset := range assets {
		total += asset.TotalPrice
	}

	s.recordEnrichment("success", start)
	return int64(math.Round(total))
}

// batchSignatures slices successful signatures into parse batches.
// Failed transactions cannot carry events and are skipped.
func batchSignatures(sigs []helius.SignatureInfo) [][]string {
	var batches [][]string
	current := make([]string, 0, helius.BatchSize)
	for _, sig := range sigs {
		if sig.Failed {
			continue
		}
		current = append(current, sig.Signature)
		if len(current) == helius.BatchSize {
			batches = append(batches, current)
			current = make([]string, 0, helius.BatchSize)
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func (s *Service) recordCache(name string, hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.RecordCacheHit(name)
	} else {
		s.metrics.RecordCacheMiss(name)
	}
}

func (s *Service) recordKind(kind helius.TransactionKind) {
	if s.metrics != nil {
		s.metrics.RecordClassification(string(kind))
	}
}

func (s *Service) recordRun(pipeline, status string, start time.Time, partial bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordPipelineRun(pipeline, status, s.now().Sub(start).Seconds())
	if partial {
		s.metrics.RecordPipelinePartial(pipeline)
	}
}

func (s *Service) recordEnrichment(status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordEnrichment(status, s.now().Sub(start).Seconds())
	}
}
