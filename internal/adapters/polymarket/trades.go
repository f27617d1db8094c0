package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/domain"
)

const dataTradesPath = "/trades"

// FetchRecentTrades pagina /trades (más recientes primero) hasta cubrir since
// y devuelve los trades con timestamp >= since.
//
// Si falla la primera página devuelve error. Si falla una página posterior
// devuelve lo acumulado hasta ahí.
func (c *Client) FetchRecentTrades(ctx context.Context, since time.Time) ([]domain.Trade, error) {
	var raw []dataTrade

	for page := 0; page < c.maxPages; page++ {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.pageSize))
		q.Set("offset", strconv.Itoa(page*c.pageSize))
		q.Set("takerOnly", "true")

		var resp []dataTrade
		if err := c.get(ctx, c.dataLimiter, c.dataBase, dataTradesPath, q, &resp); err != nil {
			if page == 0 {
				return nil, fmt.Errorf("data-api.FetchRecentTrades: %w", err)
			}
			slog.Warn("trades page failed, using partial result",
				"page", page,
				"collected", len(raw),
				"err", err,
			)
			break
		}
		if len(resp) == 0 {
			break
		}
		raw = append(raw, resp...)

		slog.Debug("fetched trades page",
			"page", page,
			"count", len(resp),
			"total", len(raw),
		)

		if oldest := resp[len(resp)-1].Timestamp; oldest.Valid && unixTime(oldest.Value).Before(since) {
			break
		}
		if len(resp) < c.pageSize {
			break
		}
	}

	trades := make([]domain.Trade, 0, len(raw))
	for _, dt := range raw {
		t, ok := mapDataTrade(dt)
		if !ok || t.Timestamp.Before(since) {
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}
