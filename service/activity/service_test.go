package activity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BadGenius22/vouch-protocol-sub001/service/helius"
	"github.com/BadGenius22/vouch-protocol-sub001/service/price"
)

const testWallet = "So11111111111111111111111111111111111111112"

type fixedPrice struct {
	usd float64
}

func (p fixedPrice) SOLPrice(ctx context.Context) price.Quote {
	return price.Quote{USD: p.usd, FetchedAt: time.Now()}
}

// fakeIndexer scripts upstream behavior and counts every call.
type fakeIndexer struct {
	mu sync.Mutex

	sigs    []helius.SignatureInfo
	listErr error

	txBySig    map[string]*helius.EnhancedTransaction
	failBatch  map[int]error
	batchesSeen [][]string

	balances   map[string]uint64
	balanceErr map[string]error
	assets     map[string][]helius.Asset

	listCalls    int
	parseCalls   int
	balanceCalls int
	assetCalls   int
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{
		txBySig:    map[string]*helius.EnhancedTransaction{},
		failBatch:  map[int]error{},
		balances:   map[string]uint64{},
		balanceErr: map[string]error{},
		assets:     map[string][]helius.Asset{},
	}
}

func (f *fakeIndexer) ListSignatures(ctx context.Context, address string, limit int) ([]helius.SignatureInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.sigs) > limit {
		return f.sigs[:limit], nil
	}
	return f.sigs, nil
}

func (f *fakeIndexer) ParseTransactions(ctx context.Context, signatures []string) ([]*helius.EnhancedTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := f.parseCalls
	f.parseCalls++
	f.batchesSeen = append(f.batchesSeen, signatures)
	if err, ok := f.failBatch[batch]; ok {
		return nil, err
	}
	var txns []*helius.EnhancedTransaction
	for _, sig := range signatures {
		if tx, ok := f.txBySig[sig]; ok {
			txns = append(txns, tx)
		}
	}
	return txns, nil
}

func (f *fakeIndexer) GetNativeBalance(ctx context.Context, address string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceCalls++
	if err, ok := f.balanceErr[address]; ok {
		return 0, err
	}
	return f.balances[address], nil
}

func (f *fakeIndexer) GetAssetsByOwner(ctx context.Context, owner string) ([]helius.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assetCalls++
	return f.assets[owner], nil
}

func (f *fakeIndexer) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls + f.parseCalls + f.balanceCalls + f.assetCalls
}

func newTestService(f *fakeIndexer, ttl time.Duration) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(f, fixedPrice{usd: 150}, ttl, nil, logger)
	svc.retryBaseDelay = time.Millisecond
	return svc
}

func recentSig(name string, age time.Duration) helius.SignatureInfo {
	t := time.Now().Add(-age)
	return helius.SignatureInfo{Signature: name, BlockTime: &t}
}

func deployTxFor(sig, program string) *helius.EnhancedTransaction {
	return &helius.EnhancedTransaction{
		Signature: sig,
		Type:      "UPGRADE_PROGRAM_INSTRUCTION",
		FeePayer:  testWallet,
		Timestamp: time.Now().Add(-24 * time.Hour).Unix(),
		AccountData: []helius.AccountData{
			{Account: testWallet, NativeBalanceChange: -2_000_000_000},
			{Account: program, NativeBalanceChange: 1_500_000_000},
		},
		Kind: helius.KindProgramDeploy,
	}
}

func swapTxFor(sig string, lamports int64) *helius.EnhancedTransaction {
	return &helius.EnhancedTransaction{
		Signature: sig,
		Type:      "SWAP",
		Source:    "JUPITER",
		Timestamp: time.Now().Add(-time.Hour).Unix(),
		Events: helius.Events{
			Swap: &helius.SwapEvent{
				NativeInput: &helius.NativeBalance{Account: testWallet, Amount: fmt.Sprintf("%d", lamports)},
			},
		},
		Kind: helius.KindSwap,
	}
}

func TestPipelinesRejectInvalidAddressBeforeAnyUpstreamCall(t *testing.T) {
	fake := newFakeIndexer()
	svc := newTestService(fake, time.Minute)

	_, err := svc.DeployedPrograms(context.Background(), "not-an-address")
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.TradingVolume(context.Background(), "not-an-address", 30)
	require.Error(t, err)
	require.ErrorAs(t, err, &verr)

	assert.Zero(t, fake.totalCalls(), "invalid input must fail before any network activity")
}

func TestTradingVolumeRejectsOutOfRangeDays(t *testing.T) {
	fake := newFakeIndexer()
	svc := newTestService(fake, time.Minute)

	for _, days := range []int{0, -1, 366} {
		_, err := svc.TradingVolume(context.Background(), testWallet, days)
		require.Error(t, err, "days=%d", days)
	}
	assert.Zero(t, fake.totalCalls())
}

func TestDeployedProgramsDeduplicatesAndEnriches(t *testing.T) {
	const (
		p1 = "Prog111111111111111111111111111111111111111"
		p2 = "Prog222222222222222222222222222222222222222"
	)

	fake := newFakeIndexer()
	fake.sigs = []helius.SignatureInfo{
		recentSig("d1", time.Hour),
		recentSig("d2", 2*time.Hour),
		recentSig("d3", 3*time.Hour),
	}
	fake.txBySig["d1"] = deployTxFor("d1", p1)
	fake.txBySig["d2"] = deployTxFor("d2", p2)
	fake.txBySig["d3"] = deployTxFor("d3", p1)

	fake.balances[p1] = 2 * LamportsPerSOL
	fake.balances[p2] = 1 * LamportsPerSOL
	fake.assets[p2] = []helius.Asset{{ID: "mint-a", TotalPrice: 50}}

	svc := newTestService(fake, time.Minute)
	result, err := svc.DeployedPrograms(context.Background(), testWallet)
	require.NoError(t, err)
	require.Len(t, result.Programs, 2, "duplicate deployments must collapse to one record")
	assert.False(t, result.Partial)

	byAddr := map[string]ProgramRecord{}
	for _, p := range result.Programs {
		assert.Equal(t, testWallet, p.Deployer)
		byAddr[p.Address] = p
	}
	// 2 SOL at $150; 1 SOL at $150 plus $50 of priced assets.
	assert.Equal(t, int64(300), byAddr[p1].EstimatedTVL)
	assert.Equal(t, int64(200), byAddr[p2].EstimatedTVL)
}

func TestDeployedProgramsEnrichmentFailureYieldsZeroForThatProgramOnly(t *testing.T) {
	const (
		p1 = "Prog111111111111111111111111111111111111111"
		p2 = "Prog222222222222222222222222222222222222222"
	)

	fake := newFakeIndexer()
	fake.sigs = []helius.SignatureInfo{recentSig("d1", time.Hour), recentSig("d2", 2*time.Hour)}
	fake.txBySig["d1"] = deployTxFor("d1", p1)
	fake.txBySig["d2"] = deployTxFor("d2", p2)
	fake.balances[p1] = 4 * LamportsPerSOL
	fake.balanceErr[p2] = &helius.HTTPError{StatusCode: http.StatusBadRequest}

	svc := newTestService(fake, time.Minute)
	result, err := svc.DeployedPrograms(context.Background(), testWallet)
	require.NoError(t, err)
	require.Len(t, result.Programs, 2)
	assert.False(t, result.Partial, "an absorbed enrichment failure is not a partial result")

	byAddr := map[string]int64{}
	for _, p := range result.Programs {
		byAddr[p.Address] = p.EstimatedTVL
	}
	assert.Equal(t, int64(600), byAddr[p1])
	assert.Zero(t, byAddr[p2])
}

func TestDeployedProgramsCacheIdempotence(t *testing.T) {
	fake := newFakeIndexer()
	fake.sigs = []helius.SignatureInfo{recentSig("d1", time.Hour)}
	fake.txBySig["d1"] = deployTxFor("d1", "Prog111111111111111111111111111111111111111")

	svc := newTestService(fake, time.Minute)

	first, err := svc.DeployedPrograms(context.Background(), testWallet)
	require.NoError(t, err)
	second, err := svc.DeployedPrograms(context.Background(), testWallet)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.listCalls, "second call within the TTL must be served from cache")
	assert.Equal(t, 1, fake.parseCalls)
}

func TestDeployedProgramsCacheExpiryTriggersRefetch(t *testing.T) {
	fake := newFakeIndexer()
	fake.sigs = []helius.SignatureInfo{recentSig("d1", time.Hour)}

	svc := newTestService(fake, 10*time.Millisecond)

	_, err := svc.DeployedPrograms(context.Background(), testWallet)
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)

	_, err = svc.DeployedPrograms(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.listCalls)
}

func TestDeployedProgramsListingFailureDegradesToEmptyPartial(t *testing.T) {
	fake := newFakeIndexer()
	fake.listErr = &helius.HTTPError{StatusCode: http.StatusBadRequest}

	svc := newTestService(fake, time.Minute)
	result, err := svc.DeployedPrograms(context.Background(), testWallet)
	require.NoError(t, err, "upstream failure must degrade, not fail the request")
	assert.Empty(t, result.Programs)
	assert.True(t, result.Partial)
}

func TestTradingVolumeSortsAndTruncates(t *testing.T) {
	fake := newFakeIndexer()
	for i := 0; i < 25; i++ {
		sig := fmt.Sprintf("s%d", i)
		fake.sigs = append(fake.sigs, recentSig(sig, time.Duration(i+1)*time.Hour))
		// 1..25 SOL, so fiat amounts 150..3750.
		fake.txBySig[sig] = swapTxFor(sig, int64(i+1)*LamportsPerSOL)
	}

	svc := newTestService(fake, time.Minute)
	result, err := svc.TradingVolume(context.Background(), testWallet, 30)
	require.NoError(t, err)

	assert.Equal(t, 25, result.TradeCount)
	assert.Len(t, result.Amounts, MaxVolumeAmounts)
	assert.Len(t, result.Trades, MaxVolumeTrades)
	assert.Equal(t, 30, result.PeriodDays)

	// Sum of 150*(1+...+25).
	assert.Equal(t, int64(150*325), result.TotalVolume)

	assert.Equal(t, int64(3750), result.Amounts[0])
	for i := 1; i < len(result.Amounts); i++ {
		assert.GreaterOrEqual(t, result.Amounts[i-1], result.Amounts[i], "amounts must be descending")
	}
	assert.Equal(t, result.Amounts[:MaxVolumeTrades], tradeAmounts(result.Trades))
}

func tradeAmounts(trades []TradeRecord) []int64 {
	out := make([]int64, len(trades))
	for i, t := range trades {
		out[i] = t.Amount
	}
	return out
}

func TestTradingVolumeExcludesDustAndUnknownBlockTimes(t *testing.T) {
	fake := newFakeIndexer()

	fake.sigs = []helius.SignatureInfo{
		recentSig("big", time.Hour),
		recentSig("dust", 2*time.Hour),
		{Signature: "no-blocktime"},
		recentSig("old", 24*400*time.Hour),
	}
	fake.txBySig["big"] = swapTxFor("big", 2*LamportsPerSOL)
	fake.txBySig["dust"] = swapTxFor("dust", LamportsPerSOL/200) // 0.005 SOL
	fake.txBySig["no-blocktime"] = swapTxFor("no-blocktime", 5*LamportsPerSOL)
	fake.txBySig["old"] = swapTxFor("old", 5*LamportsPerSOL)

	svc := newTestService(fake, time.Minute)
	result, err := svc.TradingVolume(context.Background(), testWallet, 30)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TradeCount)
	assert.Equal(t, int64(300), result.TotalVolume)
	require.Len(t, fake.batchesSeen, 1)
	assert.Equal(t, []string{"big", "dust"}, fake.batchesSeen[0],
		"signatures without a provable recent block time must not reach the parser")
}

func TestTradingVolumePartialWhenOneBatchFails(t *testing.T) {
	fake := newFakeIndexer()
	for i := 0; i < 250; i++ {
		sig := fmt.Sprintf("s%d", i)
		fake.sigs = append(fake.sigs, recentSig(sig, time.Hour))
		fake.txBySig[sig] = swapTxFor(sig, LamportsPerSOL)
	}
	fake.failBatch[1] = &helius.HTTPError{StatusCode: http.StatusBadRequest}

	svc := newTestService(fake, time.Minute)
	result, err := svc.TradingVolume(context.Background(), testWallet, 30)
	require.NoError(t, err, "a failed batch must not fail the request")

	assert.True(t, result.Partial)
	assert.Equal(t, 150, result.TradeCount, "only the successful batches contribute")
	assert.Equal(t, int64(150*150), result.TotalVolume)
}

func TestPartialResultsAreNotCached(t *testing.T) {
	fake := newFakeIndexer()
	fake.sigs = []helius.SignatureInfo{recentSig("s0", time.Hour)}
	fake.txBySig["s0"] = swapTxFor("s0", LamportsPerSOL)
	fake.failBatch[0] = &helius.HTTPError{StatusCode: http.StatusBadRequest}

	svc := newTestService(fake, time.Minute)

	first, err := svc.TradingVolume(context.Background(), testWallet, 30)
	require.NoError(t, err)
	require.True(t, first.Partial)

	second, err := svc.TradingVolume(context.Background(), testWallet, 30)
	require.NoError(t, err)
	assert.False(t, second.Partial, "the retried request succeeds once upstream recovers")
	assert.Equal(t, 2, fake.listCalls)
}

func TestTradingVolumeRetriesTransientBatchFailures(t *testing.T) {
	fake := newFakeIndexer()
	fake.sigs = []helius.SignatureInfo{recentSig("s0", time.Hour)}
	fake.txBySig["s0"] = swapTxFor("s0", LamportsPerSOL)
	fake.failBatch[0] = &helius.HTTPError{StatusCode: http.StatusInternalServerError}

	svc := newTestService(fake, time.Minute)
	result, err := svc.TradingVolume(context.Background(), testWallet, 30)
	require.NoError(t, err)

	assert.False(t, result.Partial, "a transient failure must be retried within the batch")
	assert.Equal(t, 1, result.TradeCount)
	assert.Equal(t, 2, fake.parseCalls)
}
