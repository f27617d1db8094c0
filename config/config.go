package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Detector DetectorConfig `yaml:"detector"`
	Gates    GatesConfig    `yaml:"gates"`
	Scanner  ScannerConfig  `yaml:"scanner"`
	API      APIConfig      `yaml:"api"`
	Telegram TelegramConfig `yaml:"telegram"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// DetectorConfig contiene los umbrales de detección.
type DetectorConfig struct {
	MinWhaleUSD            float64  `yaml:"min_whale_usd"`
	MinLiquidityUSD        float64  `yaml:"min_liquidity_usd"`
	MinVolume24hUSD        float64  `yaml:"min_volume_24h_usd"`
	Categories             []string `yaml:"categories"`       // vacío = todas
	WalletAllowlist        []string `yaml:"wallet_allowlist"` // no vacío = exclusivo
	WalletBlocklist        []string `yaml:"wallet_blocklist"`
	WhaleLookbackMinutes   int      `yaml:"whale_lookback_minutes"`
	ClusterLookbackMinutes int      `yaml:"cluster_lookback_minutes"` // 0 = igual que whale
	MinClusterWallets      int      `yaml:"min_cluster_wallets"`
	CooldownMinutes        int      `yaml:"cooldown_minutes"`
	MaxAlertsPerScan       int      `yaml:"max_alerts_per_scan"` // 0 = sin límite
}

// GatesConfig permite apagar gates individuales.
type GatesConfig struct {
	DisableActive    bool `yaml:"disable_active"`
	DisableCategory  bool `yaml:"disable_category"`
	DisableLiquidity bool `yaml:"disable_liquidity"`
	DisableVolume    bool `yaml:"disable_volume"`
	DisableWhale     bool `yaml:"disable_whale"`
	DisableWallet    bool `yaml:"disable_wallet"`
	DisableCluster   bool `yaml:"disable_cluster"`
	DisableCooldown  bool `yaml:"disable_cooldown"`
}

// ScannerConfig controla el loop de polling.
type ScannerConfig struct {
	IntervalSeconds int  `yaml:"interval_seconds"`
	MarketLimit     int  `yaml:"market_limit"`
	TradePageSize   int  `yaml:"trade_page_size"`
	TradeMaxPages   int  `yaml:"trade_max_pages"`
	DryRun          bool `yaml:"dry_run"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	GammaBase string `yaml:"gamma_base"`
	DataBase  string `yaml:"data_base"`
}

// TelegramConfig contiene las credenciales del canal de alertas.
type TelegramConfig struct {
	BotToken      string `yaml:"bot_token"`
	ChatID        string `yaml:"chat_id"`
	APIBase       string `yaml:"api_base"`
	WalletDisplay string `yaml:"wallet_display"` // full | short
}

// StorageConfig controla dónde se persiste el estado de dedupe.
type StorageConfig struct {
	Backend       string `yaml:"backend"` // json | sqlite | memory ("" = por extensión)
	StateFile     string `yaml:"state_file"`
	RetentionDays int    `yaml:"retention_days"` // 0 = sin límite
}

// MetricsConfig controla el endpoint de métricas.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // vacío = deshabilitado
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default devuelve la configuración por defecto.
func Default() Config {
	return Config{
		Detector: DetectorConfig{
			MinWhaleUSD:          20000,
			MinLiquidityUSD:      10000,
			MinVolume24hUSD:      50000,
			WhaleLookbackMinutes: 5,
			MinClusterWallets:    2,
			CooldownMinutes:      120,
			MaxAlertsPerScan:     5,
		},
		Scanner: ScannerConfig{
			IntervalSeconds: 60,
			MarketLimit:     300,
			TradePageSize:   200,
			TradeMaxPages:   8,
		},
		Storage: StorageConfig{
			StateFile: "memory/polymarket_semi_auto_state.json",
		},
	}
}

// Load carga la configuración: defaults, luego el YAML (opcional), luego .env
// y variables de entorno. Devuelve error si algún valor no parsea o no es válido.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// sin archivo: solo env
		case err != nil:
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
			}
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)
	normalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// WhaleLookback es cuánto hacia atrás se buscan trades.
func (c *Config) WhaleLookback() time.Duration {
	return time.Duration(c.Detector.WhaleLookbackMinutes) * time.Minute
}

// ClusterLookback es la ventana del cluster.
func (c *Config) ClusterLookback() time.Duration {
	return time.Duration(c.Detector.ClusterLookbackMinutes) * time.Minute
}

// TradeLookback es la ventana de fetch: cubre tanto whales como clusters.
func (c *Config) TradeLookback() time.Duration {
	return max(c.WhaleLookback(), c.ClusterLookback())
}

// Cooldown devuelve el intervalo mínimo entre alertas con la misma clave.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Detector.CooldownMinutes) * time.Minute
}

// Retention devuelve la retención del estado de dedupe (0 = sin límite).
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}

// TelegramConfigured indica si hay credenciales para enviar alertas.
func (c *Config) TelegramConfigured() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate revisa valores incoherentes. Devuelve todos los errores juntos.
func (c *Config) Validate() error {
	var errs []error
	nonNegative := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be a finite number, got %v", name, v))
			return
		}
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", name, v))
		}
	}

	d := c.Detector
	nonNegative("MIN_WHALE_BET_USD", d.MinWhaleUSD)
	nonNegative("MIN_LIQUIDITY_USD", d.MinLiquidityUSD)
	nonNegative("MIN_MARKET_VOLUME_24H", d.MinVolume24hUSD)
	nonNegative("WHALE_LOOKBACK_MINUTES", float64(d.WhaleLookbackMinutes))
	nonNegative("CLUSTER_LOOKBACK_MINUTES", float64(d.ClusterLookbackMinutes))
	nonNegative("MIN_CLUSTER_WALLETS", float64(d.MinClusterWallets))
	nonNegative("ALERT_COOLDOWN_MINUTES", float64(d.CooldownMinutes))
	nonNegative("MAX_ALERTS_PER_SCAN", float64(d.MaxAlertsPerScan))
	nonNegative("DEDUPE_RETENTION_DAYS", float64(c.Storage.RetentionDays))

	for _, w := range d.WalletAllowlist {
		if slices.Contains(d.WalletBlocklist, w) {
			errs = append(errs, fmt.Errorf("wallet %s is in both WALLET_ALLOWLIST and WALLET_BLOCKLIST", w))
		}
	}

	switch c.Storage.Backend {
	case "", "json", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("STATE_BACKEND must be json, sqlite or memory, got %q", c.Storage.Backend))
	}
	switch c.Telegram.WalletDisplay {
	case "full", "short":
	default:
		errs = append(errs, fmt.Errorf("WALLET_DISPLAY must be full or short, got %q", c.Telegram.WalletDisplay))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// MaskSecret oculta un secreto para logs: "1234...abcd".
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
// Cada setting acepta su nombre canónico y sus alias; el canónico gana.
func applyEnvOverrides(cfg *Config) error {
	e := &envReader{}

	d := &cfg.Detector
	e.float(&d.MinWhaleUSD, "MIN_WHALE_BET_USD", "MIN_WHALE_USD")
	e.float(&d.MinLiquidityUSD, "MIN_LIQUIDITY_USD")
	e.float(&d.MinVolume24hUSD, "MIN_MARKET_VOLUME_24H")
	e.list(&d.Categories, "MARKET_CATEGORIES")
	e.list(&d.WalletAllowlist, "WALLET_ALLOWLIST")
	e.list(&d.WalletBlocklist, "WALLET_BLOCKLIST")
	e.int(&d.WhaleLookbackMinutes, "WHALE_LOOKBACK_MINUTES")
	e.int(&d.ClusterLookbackMinutes, "CLUSTER_LOOKBACK_MINUTES")
	e.int(&d.MinClusterWallets, "MIN_CLUSTER_WALLETS")
	e.int(&d.CooldownMinutes, "ALERT_COOLDOWN_MINUTES")
	e.int(&d.MaxAlertsPerScan, "MAX_ALERTS_PER_SCAN", "MAX_CANDIDATES_PER_TYPE")

	g := &cfg.Gates
	var allMarket bool
	e.bool(&allMarket, "DISABLE_MARKET_GATES")
	if allMarket {
		g.DisableActive, g.DisableCategory, g.DisableLiquidity, g.DisableVolume = true, true, true, true
	}
	e.bool(&g.DisableActive, "DISABLE_ACTIVE_GATE")
	e.bool(&g.DisableCategory, "DISABLE_CATEGORY_GATE")
	e.bool(&g.DisableLiquidity, "DISABLE_LIQUIDITY_GATE")
	e.bool(&g.DisableVolume, "DISABLE_VOLUME_GATE")
	e.bool(&g.DisableWhale, "DISABLE_WHALE_GATE")
	e.bool(&g.DisableWallet, "DISABLE_WALLET_GATE")
	e.bool(&g.DisableCluster, "DISABLE_CLUSTER_GATE")
	e.bool(&g.DisableCooldown, "DISABLE_COOLDOWN")

	s := &cfg.Scanner
	e.int(&s.IntervalSeconds, "POLL_INTERVAL_SECONDS")
	e.int(&s.MarketLimit, "MARKET_LIMIT")
	e.int(&s.TradePageSize, "TRADE_PAGE_SIZE")
	e.int(&s.TradeMaxPages, "TRADE_MAX_PAGES")
	e.bool(&s.DryRun, "DRY_RUN")

	e.string(&cfg.API.GammaBase, "POLYMARKET_GAMMA_API", "POLY_GAMMA_API")
	e.string(&cfg.API.DataBase, "POLYMARKET_DATA_API", "POLY_DATA_API")

	t := &cfg.Telegram
	e.string(&t.BotToken, "TELEGRAM_BOT_TOKEN", "TELEGRAM_TOKEN", "TG_BOT_TOKEN")
	e.string(&t.ChatID, "TELEGRAM_CHAT_ID", "TELEGRAM_CHANNEL_ID", "TELEGRAM_CHAT")
	e.string(&t.APIBase, "TELEGRAM_API_BASE")
	e.string(&t.WalletDisplay, "WALLET_DISPLAY")

	e.string(&cfg.Storage.Backend, "STATE_BACKEND")
	e.string(&cfg.Storage.StateFile, "BOT_STATE_FILE")
	e.int(&cfg.Storage.RetentionDays, "DEDUPE_RETENTION_DAYS")

	e.string(&cfg.Metrics.Addr, "METRICS_ADDR")
	e.string(&cfg.Log.Level, "LOG_LEVEL")
	e.string(&cfg.Log.Format, "LOG_FORMAT")

	return errors.Join(e.errs...)
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Detector.ClusterLookbackMinutes == 0 {
		cfg.Detector.ClusterLookbackMinutes = cfg.Detector.WhaleLookbackMinutes
	}
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 60
	}
	if cfg.Scanner.MarketLimit <= 0 {
		cfg.Scanner.MarketLimit = 300
	}
	if cfg.Scanner.TradePageSize <= 0 {
		cfg.Scanner.TradePageSize = 200
	}
	if cfg.Scanner.TradeMaxPages <= 0 {
		cfg.Scanner.TradeMaxPages = 8
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.Telegram.APIBase == "" {
		cfg.Telegram.APIBase = "https://api.telegram.org"
	}
	if cfg.Telegram.WalletDisplay == "" {
		cfg.Telegram.WalletDisplay = "full"
	}
	if cfg.Storage.StateFile == "" {
		cfg.Storage.StateFile = "memory/polymarket_semi_auto_state.json"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// normalize pasa listas y enums a minúsculas para comparar sin case.
func normalize(cfg *Config) {
	cfg.Detector.Categories = lowerAll(cfg.Detector.Categories)
	cfg.Detector.WalletAllowlist = lowerAll(cfg.Detector.WalletAllowlist)
	cfg.Detector.WalletBlocklist = lowerAll(cfg.Detector.WalletBlocklist)
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Telegram.WalletDisplay = strings.ToLower(strings.TrimSpace(cfg.Telegram.WalletDisplay))
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// envReader resuelve alias y acumula errores de parseo.
type envReader struct {
	errs []error
}

// lookup devuelve el primer valor no vacío entre names.
func (e *envReader) lookup(names ...string) (name, value string, ok bool) {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return n, v, true
		}
	}
	return "", "", false
}

func (e *envReader) string(dst *string, names ...string) {
	if _, v, ok := e.lookup(names...); ok {
		*dst = v
	}
}

func (e *envReader) float(dst *float64, names ...string) {
	name, v, ok := e.lookup(names...)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid number %q", name, v))
		return
	}
	*dst = f
}

func (e *envReader) int(dst *int, names ...string) {
	name, v, ok := e.lookup(names...)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", name, v))
		return
	}
	*dst = n
}

func (e *envReader) bool(dst *bool, names ...string) {
	name, v, ok := e.lookup(names...)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		*dst = true
	case "0", "false", "no", "n", "off":
		*dst = false
	default:
		e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", name, v))
	}
}

func (e *envReader) list(dst *[]string, names ...string) {
	if _, v, ok := e.lookup(names...); ok {
		*dst = strings.Split(v, ",")
	}
}
