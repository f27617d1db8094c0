package scanner

// fetch.go: descarga concurrente de mercados y trades.
//
// Gamma y la Data API son independientes: se piden en paralelo y el ciclo
// espera a ambas. Un fallo en una no cancela la otra.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/domain"
)

// snapshot es lo obtenido de las fuentes en un ciclo.
type snapshot struct {
	markets []domain.Market
	trades  []domain.Trade
}

// fetchSnapshot pide mercados y trades concurrentemente. Un error de fuente se
// loguea, se cuenta y deja esa parte vacía.
func (s *Scanner) fetchSnapshot(ctx context.Context, log *slog.Logger, since time.Time) snapshot {
	var (
		snap snapshot
		wg   sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		markets, err := s.markets.FetchActiveMarkets(ctx, s.cfg.MarketLimit)
		if err != nil {
			log.Warn("fetch markets failed", "err", err)
			s.recordFetchError("gamma")
			return
		}
		snap.markets = markets
	}()
	go func() {
		defer wg.Done()
		trades, err := s.trades.FetchRecentTrades(ctx, since)
		if err != nil {
			log.Warn("fetch trades failed", "err", err)
			s.recordFetchError("data_api")
			return
		}
		snap.trades = trades
	}()
	wg.Wait()

	return snap
}
