package detector

import (
	"slices"
	"strings"

	"github.com/alejandrodnm/whalewatch/internal/domain"
)

// Gate es un predicado pasa/no pasa sobre un mercado y un trade.
type Gate string

const (
	GateMarketActive Gate = "market_active"
	GateCategory     Gate = "category"
	GateLiquidity    Gate = "liquidity"
	GateVolume       Gate = "volume"
	GateWhaleSize    Gate = "whale_size"
	GateWallet       Gate = "wallet"
)

// GateOrder es el orden de evaluación. Se corta en el primer fallo.
var GateOrder = []Gate{
	GateMarketActive,
	GateCategory,
	GateLiquidity,
	GateVolume,
	GateWhaleSize,
	GateWallet,
}

// GateConfig contiene los umbrales de los gates. No cambia durante un scan.
type GateConfig struct {
	MinWhaleUSD     float64
	MinLiquidityUSD float64
	MinVolume24hUSD float64
	// Categories vacío = cualquier categoría.
	Categories []string
	// Un WalletAllowlist no vacío es exclusivo.
	WalletAllowlist []string
	WalletBlocklist []string
	// Los gates desactivados siempre pasan.
	Disabled map[Gate]bool
}

// GateResult es el resultado de Evaluate. Failed está vacío si Pass es true.
type GateResult struct {
	Pass   bool
	Failed Gate
}

// Evaluate aplica los gates en orden y devuelve el primero que falla.
// Solo depende de sus argumentos.
func Evaluate(m domain.Market, t domain.Trade, cfg GateConfig) GateResult {
	for _, g := range GateOrder {
		if cfg.Disabled[g] {
			continue
		}
		if !passes(g, m, t, cfg) {
			return GateResult{Failed: g}
		}
	}
	return GateResult{Pass: true}
}

func passes(g Gate, m domain.Market, t domain.Trade, cfg GateConfig) bool {
	switch g {
	case GateMarketActive:
		return m.Active
	case GateCategory:
		return len(cfg.Categories) == 0 || containsFold(cfg.Categories, m.Category)
	case GateLiquidity:
		return m.LiquidityUSD >= cfg.MinLiquidityUSD
	case GateVolume:
		return m.Volume24hUSD >= cfg.MinVolume24hUSD
	case GateWhaleSize:
		return t.NotionalUSD >= cfg.MinWhaleUSD
	case GateWallet:
		if containsFold(cfg.WalletBlocklist, t.Wallet) {
			return false
		}
		if len(cfg.WalletAllowlist) > 0 {
			return containsFold(cfg.WalletAllowlist, t.Wallet)
		}
		return true
	}
	return true
}

func containsFold(list []string, v string) bool {
	v = strings.TrimSpace(v)
	return slices.ContainsFunc(list, func(s string) bool {
		return strings.EqualFold(s, v)
	})
}
