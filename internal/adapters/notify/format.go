package notify

import (
	"fmt"
	"math"
	"strings"

	"github.com/alejandrodnm/whalewatch/internal/domain"
	"github.com/dustin/go-humanize"
)

// FormatOptions controla cómo se muestra una alerta.
type FormatOptions struct {
	ShortWallet bool // 0x1234...abcd en lugar de la dirección completa
}

// FormatMessage construye el texto de la alerta, una línea por campo.
func FormatMessage(s domain.AlertSignal, opts FormatOptions) string {
	var sb strings.Builder
	sb.WriteString("🐋 Whale Alert\n")
	fmt.Fprintf(&sb, "🎯 Market: %s\n", marketTitle(s))
	fmt.Fprintf(&sb, "%s Side: %s @ %.3f\n", sideIcon(s.Trade.Side), s.Trade.SideLabel(), s.Trade.Price)
	fmt.Fprintf(&sb, "💵 Trade size: %s\n", usd(s.Trade.NotionalUSD))

	wallet := s.Trade.Wallet
	if opts.ShortWallet {
		wallet = domain.ShortWallet(wallet)
	}
	fmt.Fprintf(&sb, "🧾 Wallet: %s\n", wallet)

	if s.IsCluster() && s.Cluster != nil {
		fmt.Fprintf(&sb, "👥 Cluster wallets (same side): %d (%d other)\n", s.Cluster.WalletCount, s.Cluster.OtherWallets)
		fmt.Fprintf(&sb, "📦 Cluster notional (lookback): %s\n", usd(s.Cluster.NotionalUSD))
	}

	switch {
	case !s.IsCluster():
		fmt.Fprintf(&sb, "🔗 Trader: %s", s.Link())
	case s.Link() != "":
		fmt.Fprintf(&sb, "🔗 Market: %s", s.Link())
	default:
		sb.WriteString("🔗 Market: unavailable (missing market slug)")
	}
	return sb.String()
}

func marketTitle(s domain.AlertSignal) string {
	if s.Market.Title != "" {
		return s.Market.Title
	}
	return domain.TruncateTitle(s.Trade.MarketTitle, s.Trade.MarketID, 120)
}

func sideIcon(side domain.Side) string {
	switch side {
	case domain.SideYes:
		return "🟢"
	case domain.SideNo:
		return "🔴"
	default:
		return "⚪"
	}
}

// usd formatea dólares sin decimales: $25,000.
func usd(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}
