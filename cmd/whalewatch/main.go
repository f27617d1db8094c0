package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/whalewatch/config"
	"github.com/alejandrodnm/whalewatch/internal/adapters/notify"
	"github.com/alejandrodnm/whalewatch/internal/adapters/polymarket"
	"github.com/alejandrodnm/whalewatch/internal/adapters/storage"
	"github.com/alejandrodnm/whalewatch/internal/detector"
	"github.com/alejandrodnm/whalewatch/internal/metrics"
	"github.com/alejandrodnm/whalewatch/internal/ports"
	"github.com/alejandrodnm/whalewatch/internal/scanner"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan cycle and exit")
	dryRun := flag.Bool("dry-run", false, "print alerts to stdout instead of Telegram, keep state in memory")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print a table of the cycle's signals")
	history := flag.Duration("history", 0, "print alerts from the last duration (e.g. 24h) and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	dry := *dryRun || cfg.Scanner.DryRun
	format := notify.FormatOptions{ShortWallet: cfg.Telegram.WalletDisplay == "short"}
	console := notify.NewConsole(*table, format)

	backend := cfg.Storage.Backend
	if dry && *history == 0 {
		backend = storage.BackendMemory
	}
	store, err := storage.Open(backend, cfg.Storage.StateFile, cfg.Retention())
	if err != nil {
		slog.Error("failed to open state store", "err", err, "path", cfg.Storage.StateFile)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Load(); err != nil {
		slog.Error("failed to load state", "err", err, "path", cfg.Storage.StateFile)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	alertHistory, hasHistory := store.(ports.AlertHistory)

	if *history > 0 {
		if !hasHistory {
			slog.Error("alert history requires the sqlite backend", "backend", backend)
			os.Exit(1)
		}
		to := time.Now()
		from := to.Add(-*history)
		records, err := alertHistory.GetHistory(ctx, from, to)
		if err != nil {
			slog.Error("failed to read alert history", "err", err)
			os.Exit(1)
		}
		console.PrintHistory(records, from, to)
		return
	}

	slog.Info("whalewatch starting",
		"config", *configPath,
		"interval", cfg.ScanInterval(),
		"dry_run", dry,
		"once", *once,
		"backend", backend,
		"telegram", config.MaskSecret(cfg.Telegram.BotToken),
	)

	var notifier ports.Notifier = console
	if !dry {
		if !cfg.TelegramConfigured() {
			slog.Warn("telegram not configured: alerts will fail until TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are set")
		}
		notifier = notify.NewTelegram(cfg.Telegram.APIBase, cfg.Telegram.BotToken, cfg.Telegram.ChatID, format)
	}

	client := polymarket.NewClient(cfg.API.GammaBase, cfg.API.DataBase,
		polymarket.WithTradePaging(cfg.Scanner.TradePageSize, cfg.Scanner.TradeMaxPages))

	det := detector.New(detectorConfig(cfg), store)

	opts := []scanner.Option{scanner.WithReporter(console)}
	if hasHistory {
		opts = append(opts, scanner.WithHistory(alertHistory))
	}
	if cfg.Metrics.Addr != "" {
		m := metrics.New("whalewatch")
		opts = append(opts, scanner.WithMetrics(m))
		if counted, ok := store.(interface{ Len() (int, int) }); ok {
			m.TrackState(counted.Len)
		}
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, m); err != nil {
				slog.Error("metrics server failed", "err", err)
			}
		}()
	}

	scanCfg := scanner.DefaultConfig()
	scanCfg.ScanInterval = cfg.ScanInterval()
	scanCfg.TradeLookback = cfg.TradeLookback()
	scanCfg.MarketLimit = cfg.Scanner.MarketLimit
	scanCfg.Once = *once

	s := scanner.New(scanCfg, client, client, det, notifier, opts...)
	if err := s.Run(ctx); err != nil {
		slog.Error("scanner exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("whalewatch stopped cleanly")
}

// detectorConfig traduce la config plana a la del detector.
func detectorConfig(cfg *config.Config) detector.Config {
	d := cfg.Detector
	g := cfg.Gates
	return detector.Config{
		Gates: detector.GateConfig{
			MinWhaleUSD:     d.MinWhaleUSD,
			MinLiquidityUSD: d.MinLiquidityUSD,
			MinVolume24hUSD: d.MinVolume24hUSD,
			Categories:      d.Categories,
			WalletAllowlist: d.WalletAllowlist,
			WalletBlocklist: d.WalletBlocklist,
			Disabled: map[detector.Gate]bool{
				detector.GateMarketActive: g.DisableActive,
				detector.GateCategory:     g.DisableCategory,
				detector.GateLiquidity:    g.DisableLiquidity,
				detector.GateVolume:       g.DisableVolume,
				detector.GateWhaleSize:    g.DisableWhale,
				detector.GateWallet:       g.DisableWallet,
			},
		},
		ClusterLookback:   cfg.ClusterLookback(),
		MinClusterWallets: d.MinClusterWallets,
		DisableCluster:    g.DisableCluster,
		Cooldown:          cfg.Cooldown(),
		DisableCooldown:   g.DisableCooldown,
		MaxAlertsPerScan:  d.MaxAlertsPerScan,
	}
}

// setupLogger configura slog según nivel y formato. Escribe a stderr: stdout
// queda para el reporte de consola.
func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
