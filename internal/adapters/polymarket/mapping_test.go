package polymarket_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapping_GammaMarkets(t *testing.T) {
	srv := serveFile(t, "../../../testdata/fixtures/gamma_markets.json")

	markets, err := newTestClient(srv, nil).FetchActiveMarkets(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, markets, 3, "el mercado sin id se descarta")

	fed := markets[0]
	assert.Equal(t, "0xabc001", fed.ID)
	assert.Equal(t, "economics", fed.Category)
	assert.InDelta(t, 25000.5, fed.LiquidityUSD, 0.001)
	assert.InDelta(t, 81234.25, fed.Volume24hUSD, 0.001)
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), fed.EndDate)
	assert.True(t, fed.Active)
	assert.Equal(t, "https://polymarket.com/market/fed-cut-rates-march", fed.URL())

	// Sin conditionId → id de Gamma; volume24h vacío → volume24hr.
	btc := markets[1]
	assert.Equal(t, "512346", btc.ID)
	assert.InDelta(t, 64000, btc.Volume24hUSD, 0.001)
	assert.Equal(t, "crypto", btc.Category)

	// Cerrado → inactivo; valores basura → 0.
	game := markets[2]
	assert.False(t, game.Active)
	assert.Zero(t, game.LiquidityUSD)
	assert.Zero(t, game.Volume24hUSD)
	assert.Equal(t, "sports", game.Category)
}

func TestMapping_DataTrades(t *testing.T) {
	srv := serveFile(t, "../../../testdata/fixtures/data_trades.json")
	since := time.Date(2026, 3, 1, 11, 50, 0, 0, time.UTC)

	trades, err := newTestClient(nil, srv).FetchRecentTrades(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, trades, 3)

	yes := trades[0]
	assert.Equal(t, "0xtx001", yes.ID)
	assert.Equal(t, "0xaaaa000000000000000000000000000000000001", yes.Wallet, "wallet en minúsculas")
	assert.Equal(t, domain.SideYes, yes.Side)
	assert.InDelta(t, 25000, yes.NotionalUSD, 0.001, "usdcSize tiene prioridad")
	assert.InDelta(t, 0.734, yes.Price, 0.0001)
	assert.Equal(t, time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC), yes.Timestamp)

	// Sin hash: id = wallet-ts; outcome vacío → outcomeIndex "1" = NO; notional = price*size.
	no := trades[1]
	assert.Equal(t, "0xbbbb000000000000000000000000000000000002-1772366280", no.ID)
	assert.Equal(t, domain.SideNo, no.Side)
	assert.InDelta(t, 20000, no.NotionalUSD, 0.001)

	// Categórico: etiqueta conservada, outcomeIndex inválido ignorado.
	spurs := trades[2]
	assert.Equal(t, domain.SideUnknown, spurs.Side)
	assert.Equal(t, "Spurs", spurs.SideLabel())
	assert.Equal(t, "spurs", spurs.SideKey())
}

func TestMapping_DataTradesFilteredBySince(t *testing.T) {
	srv := serveFile(t, "../../../testdata/fixtures/data_trades.json")
	since := time.Date(2026, 3, 1, 11, 57, 30, 0, time.UTC)

	trades, err := newTestClient(nil, srv).FetchRecentTrades(context.Background(), since)
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}
