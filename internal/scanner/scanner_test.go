package scanner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/adapters/storage"
	"github.com/alejandrodnm/whalewatch/internal/detector"
	"github.com/alejandrodnm/whalewatch/internal/domain"
	"github.com/alejandrodnm/whalewatch/internal/metrics"
	"github.com/alejandrodnm/whalewatch/internal/scanner"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockMarketProvider struct {
	markets []domain.Market
	err     error
	calls   int
}

func (m *mockMarketProvider) FetchActiveMarkets(_ context.Context, _ int) ([]domain.Market, error) {
	m.calls++
	return m.markets, m.err
}

type mockTradeProvider struct {
	trades []domain.Trade
	err    error
	since  time.Time
}

func (m *mockTradeProvider) FetchRecentTrades(_ context.Context, since time.Time) ([]domain.Trade, error) {
	m.since = since
	return m.trades, m.err
}

type mockNotifier struct {
	notified []domain.AlertSignal
	err      error
	onNotify func()
}

func (m *mockNotifier) Notify(_ context.Context, s domain.AlertSignal) error {
	m.notified = append(m.notified, s)
	if m.onNotify != nil {
		m.onNotify()
	}
	return m.err
}

type mockReporter struct {
	reports []domain.CycleReport
}

func (m *mockReporter) ReportCycle(_ context.Context, r domain.CycleReport) error {
	m.reports = append(m.reports, r)
	return nil
}

type mockHistory struct {
	saved []domain.AlertSignal
	err   error
}

func (m *mockHistory) SaveAlert(_ context.Context, s domain.AlertSignal) error {
	m.saved = append(m.saved, s)
	return m.err
}

func (m *mockHistory) GetHistory(_ context.Context, _, _ time.Time) ([]domain.AlertRecord, error) {
	return nil, nil
}

// --- helpers ---

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func makeMarket(id string) domain.Market {
	return domain.Market{
		ID:           id,
		Title:        "Market " + id,
		Slug:         "market-" + id,
		LiquidityUSD: 50000,
		Volume24hUSD: 100000,
		Active:       true,
	}
}

func makeTrade(id, market, wallet string, usd float64) domain.Trade {
	return domain.Trade{
		ID:          id,
		MarketID:    market,
		Side:        domain.SideYes,
		Wallet:      wallet,
		Price:       0.6,
		NotionalUSD: usd,
		Timestamp:   now.Add(-time.Minute),
	}
}

func detectorConfig() detector.Config {
	return detector.Config{
		Gates: detector.GateConfig{
			MinWhaleUSD:     20000,
			MinLiquidityUSD: 10000,
			MinVolume24hUSD: 50000,
		},
		ClusterLookback:   5 * time.Minute,
		MinClusterWallets: 2,
		Cooldown:          2 * time.Hour,
	}
}

func scannerConfig() scanner.Config {
	cfg := scanner.DefaultConfig()
	cfg.Once = true
	return cfg
}

// --- tests ---

func TestRunOnce_DetectsAndNotifies(t *testing.T) {
	markets := &mockMarketProvider{markets: []domain.Market{makeMarket("m1")}}
	trades := &mockTradeProvider{trades: []domain.Trade{
		makeTrade("t1", "m1", "0xa", 50000),
		makeTrade("t2", "m1", "0xb", 500),
	}}
	notifier := &mockNotifier{}
	reporter := &mockReporter{}

	s := scanner.New(scannerConfig(), markets, trades,
		detector.New(detectorConfig(), storage.NewMemoryStore()), notifier,
		scanner.WithReporter(reporter), scanner.WithClock(clock))

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, notifier.notified, 1)
	assert.Equal(t, "t1", notifier.notified[0].Trade.ID)
	assert.Equal(t, now.Add(-5*time.Minute), trades.since, "fetch desde now - lookback")

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 1, report.Markets)
	assert.Equal(t, 2, report.Trades)
	assert.Equal(t, 1, report.Notified)
	assert.Equal(t, 1, report.Rejections[string(detector.GateWhaleSize)])
	require.Len(t, reporter.reports, 1)
	assert.Equal(t, report.ID, reporter.reports[0].ID)
}

func TestRunOnce_SecondCycleDoesNotRealert(t *testing.T) {
	markets := &mockMarketProvider{markets: []domain.Market{makeMarket("m1")}}
	trades := &mockTradeProvider{trades: []domain.Trade{makeTrade("t1", "m1", "0xa", 50000)}}
	notifier := &mockNotifier{}

	s := scanner.New(scannerConfig(), markets, trades,
		detector.New(detectorConfig(), storage.NewMemoryStore()), notifier, scanner.WithClock(clock))

	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Len(t, notifier.notified, 1)
	assert.Equal(t, 1, report.Rejections[detector.ReasonDuplicate])
}

func TestRunOnce_NotifierErrorIsNotFatal(t *testing.T) {
	cfg := detectorConfig()
	cfg.MinClusterWallets = 0
	markets := &mockMarketProvider{markets: []domain.Market{makeMarket("m1")}}
	trades := &mockTradeProvider{trades: []domain.Trade{
		makeTrade("t1", "m1", "0xa", 50000),
		makeTrade("t2", "m1", "0xb", 60000),
	}}
	notifier := &mockNotifier{err: errors.New("telegram down")}
	store := storage.NewMemoryStore()

	s := scanner.New(scannerConfig(), markets, trades, detector.New(cfg, store), notifier, scanner.WithClock(clock))
	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Len(t, notifier.notified, 2, "un fallo no bloquea la siguiente alerta")
	assert.Equal(t, 2, report.NotifyFailures)
	assert.Zero(t, report.Notified)
	// La detección no depende de la entrega: el trade queda marcado.
	assert.True(t, store.HasAlerted("t1"))
}

func TestRunOnce_FetchErrorsYieldEmptyCycle(t *testing.T) {
	m := metrics.New("")
	markets := &mockMarketProvider{err: errors.New("dns failure")}
	trades := &mockTradeProvider{err: errors.New("dns failure")}
	notifier := &mockNotifier{}

	s := scanner.New(scannerConfig(), markets, trades,
		detector.New(detectorConfig(), storage.NewMemoryStore()), notifier,
		scanner.WithMetrics(m), scanner.WithClock(clock))

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Trades)
	assert.Empty(t, notifier.notified)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchErrors.WithLabelValues("gamma")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchErrors.WithLabelValues("data_api")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal))
}

func TestRunOnce_MissingMarketsRejectTrades(t *testing.T) {
	markets := &mockMarketProvider{err: errors.New("gamma 502")}
	trades := &mockTradeProvider{trades: []domain.Trade{makeTrade("t1", "m1", "0xa", 50000)}}

	s := scanner.New(scannerConfig(), markets, trades,
		detector.New(detectorConfig(), storage.NewMemoryStore()), &mockNotifier{}, scanner.WithClock(clock))

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rejections[detector.ReasonMissingMarket])
}

func TestRunOnce_SavesHistory(t *testing.T) {
	markets := &mockMarketProvider{markets: []domain.Market{makeMarket("m1")}}
	trades := &mockTradeProvider{trades: []domain.Trade{makeTrade("t1", "m1", "0xa", 50000)}}
	history := &mockHistory{err: errors.New("db locked")}

	s := scanner.New(scannerConfig(), markets, trades,
		detector.New(detectorConfig(), storage.NewMemoryStore()), &mockNotifier{},
		scanner.WithHistory(history), scanner.WithClock(clock))

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, history.saved, 1)
	assert.Equal(t, 1, report.PersistFailures)
}

func TestRunOnce_CancelBetweenSignals(t *testing.T) {
	cfg := detectorConfig()
	cfg.MinClusterWallets = 0
	markets := &mockMarketProvider{markets: []domain.Market{makeMarket("m1")}}
	trades := &mockTradeProvider{trades: []domain.Trade{
		makeTrade("t1", "m1", "0xa", 50000),
		makeTrade("t2", "m1", "0xb", 50000),
		makeTrade("t3", "m1", "0xc", 50000),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	notifier := &mockNotifier{onNotify: cancel}
	store := storage.NewMemoryStore()

	s := scanner.New(scannerConfig(), markets, trades, detector.New(cfg, store), notifier, scanner.WithClock(clock))
	_, err := s.RunOnce(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, notifier.notified, 1)
	assert.True(t, store.HasAlerted("t1"))
	assert.False(t, store.HasAlerted("t2"))
}

func TestRun_OnceMode(t *testing.T) {
	markets := &mockMarketProvider{markets: []domain.Market{makeMarket("m1")}}
	trades := &mockTradeProvider{}

	s := scanner.New(scannerConfig(), markets, trades,
		detector.New(detectorConfig(), storage.NewMemoryStore()), &mockNotifier{})

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 1, markets.calls)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := scanner.DefaultConfig()
	cfg.ScanInterval = 10 * time.Millisecond
	markets := &mockMarketProvider{}

	s := scanner.New(cfg, markets, &mockTradeProvider{},
		detector.New(detectorConfig(), storage.NewMemoryStore()), &mockNotifier{})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.GreaterOrEqual(t, markets.calls, 2)
}

func TestRunOnce_ScanTimeTakenAfterFetch(t *testing.T) {
	// Cada llamada al reloj avanza 3s: fetch en now, scan en now+3s.
	calls := 0
	stepping := func() time.Time {
		at := now.Add(time.Duration(calls) * 3 * time.Second)
		calls++
		return at
	}

	trigger := makeTrade("t1", "m1", "0xa", 50000)
	trigger.Timestamp = now.Add(2 * time.Second)
	markets := &mockMarketProvider{markets: []domain.Market{makeMarket("m1")}}
	trades := &mockTradeProvider{trades: []domain.Trade{
		trigger,
		makeTrade("t2", "m1", "0xb", 1000),
		makeTrade("t3", "m1", "0xc", 1000),
	}}
	notifier := &mockNotifier{}

	s := scanner.New(scannerConfig(), markets, trades,
		detector.New(detectorConfig(), storage.NewMemoryStore()), notifier, scanner.WithClock(stepping))

	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, notifier.notified, 1)
	sig := notifier.notified[0]
	assert.Equal(t, now.Add(3*time.Second), sig.DetectedAt)
	assert.Equal(t, now.Add(-5*time.Minute), trades.since)
	assert.Equal(t, domain.ClassCluster, sig.Classification)
	assert.Equal(t, 3, sig.Cluster.WalletCount)
	assert.InDelta(t, 52000, sig.Cluster.NotionalUSD, 0.001)
}
