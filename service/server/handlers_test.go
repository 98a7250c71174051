package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BadGenius22/vouch-protocol-sub001/service/activity"
	"github.com/BadGenius22/vouch-protocol-sub001/service/config"
	"github.com/BadGenius22/vouch-protocol-sub001/service/db"
	"github.com/BadGenius22/vouch-protocol-sub001/service/temporal"
)

const testWallet = "So11111111111111111111111111111111111111112"

type fakeAnalysis struct {
	programs    *activity.DeployedProgramsResult
	programsErr error
	volume      *activity.TradingVolumeResult
	volumeErr   error
	lastDays    int
}

func (f *fakeAnalysis) DeployedPrograms(ctx context.Context, wallet string) (*activity.DeployedProgramsResult, error) {
	return f.programs, f.programsErr
}

func (f *fakeAnalysis) TradingVolume(ctx context.Context, wallet string, days int) (*activity.TradingVolumeResult, error) {
	f.lastDays = days
	return f.volume, f.volumeErr
}

type fakeStore struct {
	wallets   map[string]*db.Wallet
	snapshots []*db.MetricSnapshot
	createErr error
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{wallets: make(map[string]*db.Wallet)}
}

func storeKey(address, network string) string { return address + ":" + network }

func (f *fakeStore) CreateWallet(ctx context.Context, params db.CreateWalletParams) (*db.Wallet, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	w := &db.Wallet{
		Address:         params.Address,
		Network:         params.Network,
		RefreshInterval: params.RefreshInterval,
		Status:          "active",
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	f.wallets[storeKey(params.Address, params.Network)] = w
	return w, nil
}

func (f *fakeStore) GetWallet(ctx context.Context, address, network string) (*db.Wallet, error) {
	w, ok := f.wallets[storeKey(address, network)]
	if !ok {
		return nil, db.ErrNotFound
	}
	return w, nil
}

func (f *fakeStore) ListWallets(ctx context.Context, status string) ([]*db.Wallet, error) {
	var out []*db.Wallet
	for _, w := range f.wallets {
		if status == "" || w.Status == status {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteWallet(ctx context.Context, address, network string) error {
	key := storeKey(address, network)
	if _, ok := f.wallets[key]; !ok {
		return db.ErrNotFound
	}
	delete(f.wallets, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) ListSnapshots(ctx context.Context, address, network, kind string, limit int32) ([]*db.MetricSnapshot, error) {
	var out []*db.MetricSnapshot
	for _, s := range f.snapshots {
		if s.WalletAddress != address || s.Network != network {
			continue
		}
		if kind != "" && s.Kind != kind {
			continue
		}
		out = append(out, s)
		if int32(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

type serverFixture struct {
	analysis  *fakeAnalysis
	store     *fakeStore
	scheduler *temporal.MockScheduler
	handler   http.Handler
}

func newFixture(t *testing.T) *serverFixture {
	t.Helper()
	analysis := &fakeAnalysis{
		programs: &activity.DeployedProgramsResult{Wallet: testWallet},
		volume:   &activity.TradingVolumeResult{Wallet: testWallet, PeriodDays: 30},
	}
	store := newFakeStore()
	scheduler := temporal.NewMockScheduler()
	cfg := &config.Config{
		DefaultRefreshInterval: 15 * time.Minute,
		MinRefreshInterval:     time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(":0", cfg, analysis, store, scheduler, nil, nil, logger)
	return &serverFixture{
		analysis:  analysis,
		store:     store,
		scheduler: scheduler,
		handler:   srv.Handler(),
	}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDeployedProgramsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.analysis.programs = &activity.DeployedProgramsResult{
		Wallet: testWallet,
		Programs: []activity.ProgramRecord{
			{Address: "Prog111111111111111111111111111111111111111", EstimatedTVL: 300},
		},
	}

	rec := f.do(t, http.MethodGet, "/api/v1/wallets/"+testWallet+"/programs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.False(t, resp.Partial)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result activity.DeployedProgramsResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Programs, 1)
	assert.Equal(t, int64(300), result.Programs[0].EstimatedTVL)
}

func TestDeployedProgramsRejectsBadAddress(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/wallets/not-base58!/programs", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestDeployedProgramsPartialFlagSurfaces(t *testing.T) {
	f := newFixture(t)
	f.analysis.programs = &activity.DeployedProgramsResult{Wallet: testWallet, Partial: true}

	rec := f.do(t, http.MethodGet, "/api/v1/wallets/"+testWallet+"/programs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Partial)
}

func TestTradingVolumeEndpoint(t *testing.T) {
	f := newFixture(t)
	f.analysis.volume = &activity.TradingVolumeResult{
		Wallet:      testWallet,
		TotalVolume: 4500,
		TradeCount:  3,
		PeriodDays:  7,
	}

	rec := f.do(t, http.MethodGet, "/api/v1/wallets/"+testWallet+"/volume?days=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, f.analysis.lastDays)

	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
}

func TestTradingVolumeDefaultsTo30Days(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/wallets/"+testWallet+"/volume", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, f.analysis.lastDays)
}

func TestTradingVolumeRejectsBadDays(t *testing.T) {
	f := newFixture(t)

	for _, q := range []string{"days=0", "days=366", "days=abc"} {
		rec := f.do(t, http.MethodGet, "/api/v1/wallets/"+testWallet+"/volume?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestPipelineFailureMapsToBadGateway(t *testing.T) {
	f := newFixture(t)
	f.analysis.volumeErr = errors.New("indexer unreachable")

	rec := f.do(t, http.MethodGet, "/api/v1/wallets/"+testWallet+"/volume", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestRegisterWallet(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/wallets", registerWalletRequest{
		Address:                testWallet,
		Network:                "mainnet",
		RefreshIntervalSeconds: 600,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)

	require.True(t, f.scheduler.ScheduleExists(testWallet, "mainnet"))
	interval, ok := f.scheduler.GetScheduleInterval(testWallet, "mainnet")
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, interval)

	_, err := f.store.GetWallet(context.Background(), testWallet, "mainnet")
	require.NoError(t, err)
}

func TestRegisterWalletValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		req  registerWalletRequest
	}{
		{"bad address", registerWalletRequest{Address: "nope"}},
		{"bad network", registerWalletRequest{Address: testWallet, Network: "testnet"}},
		{"interval too short", registerWalletRequest{Address: testWallet, RefreshIntervalSeconds: 5}},
		{"bad period", registerWalletRequest{Address: testWallet, PeriodDays: 400}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/wallets", tc.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 0, f.scheduler.ScheduleCount())
		})
	}
}

func TestRegisterWalletRollsBackOnScheduleFailure(t *testing.T) {
	f := newFixture(t)
	f.scheduler.SetCreateError(errors.New("temporal down"))

	rec := f.do(t, http.MethodPost, "/api/v1/wallets", registerWalletRequest{Address: testWallet})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	_, err := f.store.GetWallet(context.Background(), testWallet, "mainnet")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestUnregisterWallet(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.CreateWallet(context.Background(), db.CreateWalletParams{
		Address: testWallet, Network: "mainnet", RefreshInterval: time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, f.scheduler.CreateWalletSchedule(context.Background(), testWallet, "mainnet", 30, time.Minute))

	rec := f.do(t, http.MethodDelete, "/api/v1/wallets/"+testWallet, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, f.scheduler.ScheduleExists(testWallet, "mainnet"))

	rec = f.do(t, http.MethodDelete, "/api/v1/wallets/"+testWallet, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAndListWallets(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.CreateWallet(context.Background(), db.CreateWalletParams{
		Address: testWallet, Network: "mainnet", RefreshInterval: 15 * time.Minute,
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/v1/wallets/"+testWallet, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/wallets/"+testWallet+"?network=devnet", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/wallets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	data, _ := json.Marshal(resp.Data)
	assert.Contains(t, string(data), testWallet)
}

func TestListSnapshots(t *testing.T) {
	f := newFixture(t)
	f.store.snapshots = []*db.MetricSnapshot{
		{WalletAddress: testWallet, Network: "mainnet", Kind: "programs", Payload: []byte(`{}`)},
		{WalletAddress: testWallet, Network: "mainnet", Kind: "volume", PeriodDays: 30, Payload: []byte(`{}`)},
	}

	rec := f.do(t, http.MethodGet, "/api/v1/wallets/"+testWallet+"/snapshots?kind=volume", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	data, _ := json.Marshal(resp.Data)
	assert.Contains(t, string(data), `"volume"`)
	assert.NotContains(t, string(data), `"programs"`)

	rec = f.do(t, http.MethodGet, "/api/v1/wallets/"+testWallet+"/snapshots?kind=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodOptions, "/api/v1/wallets", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
