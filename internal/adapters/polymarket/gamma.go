package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/whalewatch/internal/domain"
)

const gammaMarketsPath = "/markets"

// FetchActiveMarkets devuelve hasta limit mercados activos, ordenados por
// volumen 24h. Los mercados sin identificador se descartan.
func (c *Client) FetchActiveMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("order", "volume24hr")
	q.Set("ascending", "false")

	var resp []gammaMarket
	if err := c.get(ctx, c.gammaLimiter, c.gammaBase, gammaMarketsPath, q, &resp); err != nil {
		return nil, fmt.Errorf("gamma.FetchActiveMarkets: %w", err)
	}

	markets := make([]domain.Market, 0, len(resp))
	skipped := 0
	for _, gm := range resp {
		m, ok := mapGammaMarket(gm)
		if !ok {
			skipped++
			continue
		}
		markets = append(markets, m)
	}

	slog.Debug("fetched gamma markets",
		"raw", len(resp),
		"markets", len(markets),
		"skipped", skipped,
	)
	return markets, nil
}
