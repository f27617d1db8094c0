// Package metrics expone métricas Prometheus del loop de escaneo.
package metrics

import (
	"github.com/alejandrodnm/whalewatch/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultNamespace = "whalewatch"

// Metrics agrupa todas las métricas del scanner.
type Metrics struct {
	registry  *prometheus.Registry
	namespace string

	// Ciclo de scan
	ScansTotal    prometheus.Counter
	ScanDuration  prometheus.Histogram
	LastScan      prometheus.Gauge
	TradesScanned prometheus.Counter
	MarketsSeen   prometheus.Gauge

	// Detección
	SignalsTotal    *prometheus.CounterVec
	RejectionsTotal *prometheus.CounterVec

	// Fallos
	FetchErrors     *prometheus.CounterVec
	NotifyFailures  prometheus.Counter
	PersistFailures prometheus.Counter
}

// New crea las métricas sobre un registry propio.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		namespace: namespace,

		ScansTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "cycles_total",
			Help:      "Total number of completed scan cycles",
		}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Scan cycle duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		LastScan: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "last_completed_timestamp",
			Help:      "Unix timestamp of the last completed scan cycle",
		}),
		TradesScanned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "trades_total",
			Help:      "Total number of trades evaluated",
		}),
		MarketsSeen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "markets",
			Help:      "Number of markets in the last snapshot",
		}),

		SignalsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "signals_total",
			Help:      "Total number of emitted signals by classification",
		}, []string{"classification"}),
		RejectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "rejections_total",
			Help:      "Total number of rejected trades by reason",
		}, []string{"reason"}),

		FetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed fetches by source",
		}, []string{"source"}),
		NotifyFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Total number of alerts that failed to deliver",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "persist_failures_total",
			Help:      "Total number of failed state writes",
		}),
	}
}

// Registry devuelve el registry de las métricas.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TrackState exporta cuántas entradas tiene el state store; se lee en cada scrape.
func (m *Metrics) TrackState(counts func() (alerted, cooldowns int)) {
	f := promauto.With(m.registry)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "state",
		Name:      "alerted_trades",
		Help:      "Trade ids currently held in the dedupe state",
	}, func() float64 {
		a, _ := counts()
		return float64(a)
	})
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "state",
		Name:      "cooldown_keys",
		Help:      "Cooldown keys currently held in the state store",
	}, func() float64 {
		_, c := counts()
		return float64(c)
	})
}

// RecordFetchError suma un error de fetch para la fuente dada.
func (m *Metrics) RecordFetchError(source string) {
	m.FetchErrors.WithLabelValues(source).Inc()
}

// ObserveCycle registra el resultado de un ciclo.
func (m *Metrics) ObserveCycle(r domain.CycleReport) {
	m.ScansTotal.Inc()
	m.ScanDuration.Observe(r.Duration.Seconds())
	m.LastScan.Set(float64(r.StartedAt.Add(r.Duration).Unix()))
	m.TradesScanned.Add(float64(r.Trades))
	m.MarketsSeen.Set(float64(r.Markets))

	for _, s := range r.Signals {
		m.SignalsTotal.WithLabelValues(string(s.Classification)).Inc()
	}
	for reason, n := range r.Rejections {
		m.RejectionsTotal.WithLabelValues(reason).Add(float64(n))
	}
	m.NotifyFailures.Add(float64(r.NotifyFailures))
	m.PersistFailures.Add(float64(r.PersistFailures))
}
