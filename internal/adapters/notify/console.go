package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/alejandrodnm/whalewatch/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier y ports.CycleReporter escribiendo a stdout.
// Se usa en dry-run: imprime el mensaje que se habría enviado.
type Console struct {
	out    io.Writer
	table  bool
	format FormatOptions
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool, format FormatOptions) *Console {
	return &Console{out: os.Stdout, table: table, format: format}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool, format FormatOptions) *Console {
	return &Console{out: w, table: table, format: format}
}

// Notify imprime el mensaje de la alerta.
func (c *Console) Notify(_ context.Context, signal domain.AlertSignal) error {
	fmt.Fprintf(c.out, "[%s] DRY-RUN alert (%s)\n%s\n\n",
		time.Now().Format("15:04:05"), signal.Classification, FormatMessage(signal, c.format))
	return nil
}

// ReportCycle imprime el resumen del ciclo: una línea, o tabla si table=true.
func (c *Console) ReportCycle(_ context.Context, r domain.CycleReport) error {
	ts := r.StartedAt.Format("15:04:05")
	fmt.Fprintf(c.out, "[%s] %d mkts, %d trades → %d signals (notified:%d failed:%d) in %s\n",
		ts, r.Markets, r.Trades, len(r.Signals), r.Notified, r.NotifyFailures,
		r.Duration.Round(time.Millisecond))

	if len(r.Rejections) > 0 {
		fmt.Fprintf(c.out, "  rejected: %s\n", formatRejections(r.Rejections))
	}
	if r.PersistFailures > 0 {
		fmt.Fprintf(c.out, "  ⚠ %d state writes failed\n", r.PersistFailures)
	}

	if c.table && len(r.Signals) > 0 {
		c.printSignals(r.Signals)
	}
	return nil
}

// PrintHistory imprime el histórico de alertas como tabla.
func (c *Console) PrintHistory(records []domain.AlertRecord, from, to time.Time) {
	fmt.Fprintf(c.out, "\nAlerts %s → %s: %d\n",
		from.Format("2006-01-02 15:04"), to.Format("2006-01-02 15:04"), len(records))
	if len(records) == 0 {
		fmt.Fprintln(c.out, "No alerts in range.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("When", "Class", "Market", "Side", "Price", "Size", "Wallet", "Cluster")
	for _, r := range records {
		cluster := "-"
		if r.Classification == domain.ClassCluster {
			cluster = fmt.Sprintf("%d wallets / %s", r.WalletCount, usd(r.ClusterUSD))
		}
		table.Append(
			r.AlertedAt.Local().Format("01-02 15:04"),
			string(r.Classification),
			domain.TruncateTitle(r.MarketTitle, r.MarketID, 40),
			r.Side,
			fmt.Sprintf("%.3f", r.Price),
			usd(r.NotionalUSD),
			domain.ShortWallet(r.Wallet),
			cluster,
		)
	}
	table.Render()
}

func (c *Console) printSignals(signals []domain.AlertSignal) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Class", "Market", "Side", "Price", "Size", "Wallet", "Cluster")
	for i, s := range signals {
		cluster := "-"
		if s.Cluster != nil {
			cluster = fmt.Sprintf("%d (%d other) %s", s.Cluster.WalletCount, s.Cluster.OtherWallets, usd(s.Cluster.NotionalUSD))
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			string(s.Classification),
			domain.TruncateTitle(s.Market.Title, s.Market.ID, 40),
			s.Trade.SideLabel(),
			fmt.Sprintf("%.3f", s.Trade.Price),
			usd(s.Trade.NotionalUSD),
			domain.ShortWallet(s.Trade.Wallet),
			cluster,
		)
	}
	table.Render()
}

// formatRejections devuelve "reason=n" ordenado por motivo.
func formatRejections(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, " ")
}
