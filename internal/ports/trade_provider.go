package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/domain"
)

// TradeProvider obtiene los trades recientes de la Data API.
type TradeProvider interface {
	// FetchRecentTrades devuelve los trades con timestamp >= since.
	FetchRecentTrades(ctx context.Context, since time.Time) ([]domain.Trade, error)
}
