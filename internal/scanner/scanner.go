package scanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/detector"
	"github.com/alejandrodnm/whalewatch/internal/domain"
	"github.com/alejandrodnm/whalewatch/internal/metrics"
	"github.com/alejandrodnm/whalewatch/internal/ports"
	"github.com/google/uuid"
)

// Config contiene la configuración del loop de polling.
type Config struct {
	ScanInterval  time.Duration
	TradeLookback time.Duration // ventana de fetch de trades
	MarketLimit   int
	Once          bool // un solo ciclo y salir
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		ScanInterval:  60 * time.Second,
		TradeLookback: 5 * time.Minute,
		MarketLimit:   300,
	}
}

// Scanner es el orquestador del ciclo fetch → detect → notify → persist.
// Los ciclos nunca se solapan.
type Scanner struct {
	cfg      Config
	markets  ports.MarketProvider
	trades   ports.TradeProvider
	detector *detector.Detector
	notifier ports.Notifier
	reporter ports.CycleReporter
	history  ports.AlertHistory
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configura dependencias opcionales del Scanner.
type Option func(*Scanner)

// WithReporter recibe el resumen de cada ciclo.
func WithReporter(r ports.CycleReporter) Option {
	return func(s *Scanner) { s.reporter = r }
}

// WithHistory guarda cada alerta emitida.
func WithHistory(h ports.AlertHistory) Option {
	return func(s *Scanner) { s.history = h }
}

// WithMetrics exporta contadores del ciclo.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// New crea un Scanner con todas las dependencias inyectadas.
func New(
	cfg Config,
	markets ports.MarketProvider,
	trades ports.TradeProvider,
	det *detector.Detector,
	notifier ports.Notifier,
	opts ...Option,
) *Scanner {
	s := &Scanner{
		cfg:      cfg,
		markets:  markets,
		trades:   trades,
		detector: det,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ejecuta el loop de escaneo hasta que el contexto se cancele.
// Si cfg.Once está activo, solo ejecuta un ciclo.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner starting",
		"interval", s.cfg.ScanInterval,
		"trade_lookback", s.cfg.TradeLookback,
		"market_limit", s.cfg.MarketLimit,
		"once", s.cfg.Once,
	)

	// RunOnce solo falla si el contexto se canceló.
	if _, err := s.RunOnce(ctx); err != nil || s.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scanner stopped")
			return nil
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				slog.Info("scanner stopped")
				return nil
			}
		}
	}
}

// RunOnce ejecuta un ciclo completo. Los errores de fetch, notificación y
// persistencia se loguean y se cuentan; solo devuelve error si ctx se canceló.
func (s *Scanner) RunOnce(ctx context.Context) (domain.CycleReport, error) {
	start := s.now()
	report := domain.CycleReport{
		ID:        uuid.NewString(),
		StartedAt: start,
	}
	log := slog.With("cycle", report.ID[:8])

	snap := s.fetchSnapshot(ctx, log, start.Add(-s.cfg.TradeLookback))
	if err := ctx.Err(); err != nil {
		return report, err
	}
	report.Markets = len(snap.markets)
	report.Trades = len(snap.trades)

	// La hora del scan se toma después del fetch: los trades ejecutados
	// mientras se paginaba quedan dentro de la ventana de cluster.
	scan := s.detector.Scan(snap.markets, snap.trades, s.now())
	for signal := range scan.Signals() {
		report.Signals = append(report.Signals, signal)

		if err := s.notifier.Notify(ctx, signal); err != nil {
			report.NotifyFailures++
			log.Warn("notifier error", "trade_id", signal.Trade.ID, "err", err)
		} else {
			report.Notified++
		}

		if s.history != nil {
			if err := s.history.SaveAlert(ctx, signal); err != nil {
				report.PersistFailures++
				log.Warn("alert history error", "trade_id", signal.Trade.ID, "err", err)
			}
		}

		// Cancelación segura entre dos trades.
		if ctx.Err() != nil {
			break
		}
	}

	stats := scan.Stats()
	report.Rejections = stats.Rejections
	report.PersistFailures += stats.PersistFailures
	report.Duration = s.now().Sub(start)

	if s.metrics != nil {
		s.metrics.ObserveCycle(report)
	}
	if s.reporter != nil {
		if err := s.reporter.ReportCycle(ctx, report); err != nil {
			log.Warn("reporter error", "err", err)
		}
	}

	log.Info("scan cycle complete",
		"markets", report.Markets,
		"trades", report.Trades,
		"signals", len(report.Signals),
		"clusters", stats.Clusters,
		"notify_failures", report.NotifyFailures,
		"persist_failures", report.PersistFailures,
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, ctx.Err()
}

func (s *Scanner) recordFetchError(source string) {
	if s.metrics != nil {
		s.metrics.RecordFetchError(source)
	}
}
