package detector

import (
	"strings"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/domain"
)

// Aggregate calcula la actividad del mismo lado de un mercado dentro de
// [now-lookback, now]. No aplica gates: cuenta todo trade del lado, sea
// whale o no.
//
// Una wallet con varios trades cuenta una vez pero suma todo su notional.
// Un trade ID repetido en la ventana cuenta una sola vez.
func Aggregate(window []domain.Trade, marketID, sideKey, wallet string, lookback time.Duration, now time.Time) domain.ClusterContext {
	cc := domain.ClusterContext{
		MarketID: marketID,
		SideKey:  sideKey,
		Lookback: lookback,
	}

	seen := make(map[string]struct{}, len(window))
	wallets := make(map[string]struct{})
	for _, t := range window {
		if !strings.EqualFold(t.MarketID, marketID) || t.SideKey() != sideKey {
			continue
		}
		if !inWindow(t.Timestamp, lookback, now) {
			continue
		}
		if t.ID != "" {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
		}
		cc.NotionalUSD += t.NotionalUSD
		if t.Wallet != "" {
			wallets[strings.ToLower(t.Wallet)] = struct{}{}
		}
	}

	cc.WalletCount = len(wallets)
	cc.OtherWallets = cc.WalletCount
	if _, ok := wallets[strings.ToLower(wallet)]; ok {
		cc.OtherWallets--
	}
	return cc
}

// includeTrigger suma el trade que dispara la alerta cuando quedó fuera de la
// ventana: ejecutado durante el fetch (después de now) o más viejo que un
// lookback de cluster menor que el de fetch. La alerta siempre cuenta su
// propio trade.
func includeTrigger(cc domain.ClusterContext, t domain.Trade, now time.Time) domain.ClusterContext {
	if inWindow(t.Timestamp, cc.Lookback, now) {
		return cc
	}
	cc.NotionalUSD += t.NotionalUSD
	// OtherWallets == WalletCount: la wallet del trigger no estaba contada.
	if cc.OtherWallets == cc.WalletCount {
		cc.WalletCount++
	}
	return cc
}

func inWindow(ts time.Time, lookback time.Duration, now time.Time) bool {
	return !ts.Before(now.Add(-lookback)) && !ts.After(now)
}
