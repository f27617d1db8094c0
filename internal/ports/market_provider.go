package ports

import (
	"context"

	"github.com/alejandrodnm/whalewatch/internal/domain"
)

// MarketProvider obtiene el snapshot de mercados activos de Gamma.
type MarketProvider interface {
	// FetchActiveMarkets devuelve hasta limit mercados activos, ordenados por volumen 24h.
	FetchActiveMarkets(ctx context.Context, limit int) ([]domain.Market, error)
}
