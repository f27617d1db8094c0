// Package detector convierte un lote de trades y un snapshot de mercados en
// señales de alerta: gates, dedupe, contexto de cluster y cooldown.
package detector

import (
	"iter"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/domain"
	"github.com/alejandrodnm/whalewatch/internal/ports"
)

// Motivos de rechazo además de los nombres de gate.
const (
	ReasonMalformed     = "malformed"
	ReasonMissingMarket = "missing_market"
	ReasonDuplicate     = "duplicate"
	ReasonCooldown      = "cooldown"
	ReasonScanCap       = "scan_cap"
)

// Config contiene todo lo que el detector necesita para un scan.
type Config struct {
	Gates GateConfig

	ClusterLookback time.Duration
	// MinClusterWallets es cuántas otras wallets hacen falta para clasificar
	// una señal como cluster. 0 desactiva la clasificación.
	MinClusterWallets int
	DisableCluster    bool

	Cooldown        time.Duration
	DisableCooldown bool

	// MaxAlertsPerScan limita las señales por scan. 0 = sin límite.
	MaxAlertsPerScan int
}

// Detector ejecuta scans contra un state store. No admite scans concurrentes
// sobre el mismo store.
type Detector struct {
	cfg   Config
	store ports.StateStore
}

// New crea un Detector.
func New(cfg Config, store ports.StateStore) *Detector {
	return &Detector{cfg: cfg, store: store}
}

// Stats cuenta qué pasó con cada trade del scan.
type Stats struct {
	Trades          int
	Signals         int
	Clusters        int
	Rejections      map[string]int
	PersistFailures int
}

// Scan es una pasada sobre un lote de trades. Su secuencia de señales se
// consume una vez; una segunda iteración no produce nada.
type Scan struct {
	d       *Detector
	markets map[string]domain.Market
	trades  []domain.Trade
	now     time.Time

	stats    Stats
	consumed bool
}

// Scan prepara un scan de trades con markets como snapshot. now es la hora
// del scan: fija la ventana de cluster y los chequeos de cooldown.
func (d *Detector) Scan(markets []domain.Market, trades []domain.Trade, now time.Time) *Scan {
	index := make(map[string]domain.Market, len(markets)*2)
	for _, m := range markets {
		index[m.ID] = m
		index[strings.ToLower(m.ID)] = m
	}
	return &Scan{
		d:       d,
		markets: index,
		trades:  trades,
		now:     now,
		stats:   Stats{Rejections: make(map[string]int)},
	}
}

// Signals produce las señales en el orden de entrada. El estado de cada señal
// se graba cuando yield vuelve: si el consumidor corta antes, la última señal
// recibida igual queda marcada.
func (s *Scan) Signals() iter.Seq[domain.AlertSignal] {
	return func(yield func(domain.AlertSignal) bool) {
		if s.consumed {
			return
		}
		s.consumed = true

		for _, t := range s.trades {
			signal, ok := s.evaluate(t)
			if !ok {
				continue
			}
			if limit := s.d.cfg.MaxAlertsPerScan; limit > 0 && s.stats.Signals >= limit {
				s.reject(t, ReasonScanCap)
				continue
			}

			s.stats.Signals++
			if signal.IsCluster() {
				s.stats.Clusters++
			}
			slog.Info("whale signal",
				"trade_id", t.ID,
				"market", signal.Market.ID,
				"side", t.SideLabel(),
				"notional_usd", t.NotionalUSD,
				"classification", signal.Classification,
			)

			more := yield(signal)
			s.commit(signal)
			if !more {
				return
			}
		}
	}
}

// Stats devuelve una copia de los contadores hasta ahora.
func (s *Scan) Stats() Stats {
	st := s.stats
	st.Rejections = maps.Clone(s.stats.Rejections)
	return st
}

func (s *Scan) evaluate(t domain.Trade) (domain.AlertSignal, bool) {
	s.stats.Trades++
	cfg := s.d.cfg

	if !t.Valid() {
		s.reject(t, ReasonMalformed)
		return domain.AlertSignal{}, false
	}

	m, ok := s.lookupMarket(t.MarketID)
	if !ok {
		s.reject(t, ReasonMissingMarket)
		return domain.AlertSignal{}, false
	}

	if res := Evaluate(m, t, cfg.Gates); !res.Pass {
		s.reject(t, string(res.Failed))
		return domain.AlertSignal{}, false
	}

	if s.d.store.HasAlerted(t.ID) {
		s.reject(t, ReasonDuplicate)
		return domain.AlertSignal{}, false
	}

	signal := domain.AlertSignal{
		Trade:          t,
		Market:         m,
		Classification: domain.ClassSingle,
		DetectedAt:     s.now,
	}
	if !cfg.DisableCluster {
		cc := Aggregate(s.trades, t.MarketID, t.SideKey(), t.Wallet, cfg.ClusterLookback, s.now)
		cc = includeTrigger(cc, t, s.now)
		signal.Cluster = &cc
		if cfg.MinClusterWallets > 0 && cc.OtherWallets >= cfg.MinClusterWallets {
			signal.Classification = domain.ClassCluster
		}
	}

	if !cfg.DisableCooldown && s.d.store.IsCoolingDown(CooldownKey(signal), s.now, cfg.Cooldown) {
		s.reject(t, ReasonCooldown)
		return domain.AlertSignal{}, false
	}
	return signal, true
}

func (s *Scan) commit(signal domain.AlertSignal) {
	if err := s.d.store.RecordAlert(signal.Trade.ID, s.now); err != nil {
		s.stats.PersistFailures++
		slog.Warn("failed to persist alerted trade", "trade_id", signal.Trade.ID, "err", err)
	}
	if err := s.d.store.RecordCooldown(CooldownKey(signal), s.now); err != nil {
		s.stats.PersistFailures++
		slog.Warn("failed to persist cooldown", "key", CooldownKey(signal), "err", err)
	}
}

func (s *Scan) reject(t domain.Trade, reason string) {
	s.stats.Rejections[reason]++
	slog.Debug("trade rejected", "trade_id", t.ID, "market", t.MarketID, "reason", reason)
}

func (s *Scan) lookupMarket(id string) (domain.Market, bool) {
	if m, ok := s.markets[id]; ok {
		return m, true
	}
	m, ok := s.markets[strings.ToLower(id)]
	return m, ok
}

// CooldownKey devuelve la clave de supresión de una señal. Las single se
// enfrían por wallet; las de cluster por lado del mercado.
func CooldownKey(signal domain.AlertSignal) string {
	side := signal.Trade.SideKey()
	if signal.IsCluster() {
		return "cluster|" + signal.Market.ID + "|" + side
	}
	return "single|" + signal.Market.ID + "|" + side + "|" + strings.ToLower(signal.Trade.Wallet)
}
