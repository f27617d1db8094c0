package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/whalewatch/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 20000.0, cfg.Detector.MinWhaleUSD)
	assert.Equal(t, 10000.0, cfg.Detector.MinLiquidityUSD)
	assert.Equal(t, 50000.0, cfg.Detector.MinVolume24hUSD)
	assert.Equal(t, 60*time.Second, cfg.ScanInterval())
	assert.Equal(t, 5*time.Minute, cfg.ClusterLookback(), "cluster lookback hereda el de whale")
	assert.Equal(t, 120*time.Minute, cfg.Cooldown())
	assert.Equal(t, 5, cfg.Detector.MaxAlertsPerScan)
	assert.Equal(t, "memory/polymarket_semi_auto_state.json", cfg.Storage.StateFile)
	assert.Equal(t, "https://gamma-api.polymarket.com", cfg.API.GammaBase)
	assert.Equal(t, "https://data-api.polymarket.com", cfg.API.DataBase)
	assert.Equal(t, "full", cfg.Telegram.WalletDisplay)
	assert.Zero(t, cfg.Retention())
	assert.False(t, cfg.TelegramConfigured())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := writeYAML(t, `
detector:
  min_whale_usd: 5000
  categories: [Politics, crypto]
  cluster_lookback_minutes: 15
scanner:
  interval_seconds: 30
`)
	t.Setenv("MIN_WHALE_BET_USD", "7500")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7500.0, cfg.Detector.MinWhaleUSD, "env gana sobre YAML")
	assert.Equal(t, []string{"politics", "crypto"}, cfg.Detector.Categories)
	assert.Equal(t, 30*time.Second, cfg.ScanInterval())
	assert.Equal(t, 15*time.Minute, cfg.TradeLookback())
}

func TestLoad_AliasResolution(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "alias-token")
	t.Setenv("TELEGRAM_CHANNEL_ID", "-100123")
	t.Setenv("MAX_CANDIDATES_PER_TYPE", "9")
	t.Setenv("POLY_GAMMA_API", "http://gamma.local")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "alias-token", cfg.Telegram.BotToken)
	assert.Equal(t, "-100123", cfg.Telegram.ChatID)
	assert.Equal(t, 9, cfg.Detector.MaxAlertsPerScan)
	assert.Equal(t, "http://gamma.local", cfg.API.GammaBase)
	assert.True(t, cfg.TelegramConfigured())
}

func TestLoad_CanonicalNameWinsOverAlias(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "canonical")
	t.Setenv("TG_BOT_TOKEN", "legacy")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "canonical", cfg.Telegram.BotToken)
}

func TestLoad_GateToggles(t *testing.T) {
	t.Setenv("DISABLE_MARKET_GATES", "true")
	t.Setenv("DISABLE_VOLUME_GATE", "0")
	t.Setenv("DISABLE_COOLDOWN", "yes")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Gates.DisableActive)
	assert.True(t, cfg.Gates.DisableCategory)
	assert.True(t, cfg.Gates.DisableLiquidity)
	assert.False(t, cfg.Gates.DisableVolume, "el toggle individual gana sobre el grupo")
	assert.False(t, cfg.Gates.DisableWhale)
	assert.True(t, cfg.Gates.DisableCooldown)
}

func TestLoad_ExplicitZeroKept(t *testing.T) {
	t.Setenv("MAX_ALERTS_PER_SCAN", "0")
	t.Setenv("MIN_LIQUIDITY_USD", "0")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Zero(t, cfg.Detector.MaxAlertsPerScan)
	assert.Zero(t, cfg.Detector.MinLiquidityUSD)
}

func TestLoad_InvalidValuesFailFast(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unparseable threshold", map[string]string{"MIN_WHALE_BET_USD": "lots"}, "MIN_WHALE_BET_USD"},
		{"unparseable alias", map[string]string{"MIN_WHALE_USD": "20k"}, "MIN_WHALE_USD"},
		{"negative threshold", map[string]string{"MIN_LIQUIDITY_USD": "-1"}, "MIN_LIQUIDITY_USD"},
		{"NaN threshold", map[string]string{"MIN_WHALE_BET_USD": "NaN"}, "MIN_WHALE_BET_USD"},
		{"infinite threshold", map[string]string{"MIN_LIQUIDITY_USD": "Inf"}, "MIN_LIQUIDITY_USD"},
		{"negative infinite volume", map[string]string{"MIN_MARKET_VOLUME_24H": "-Inf"}, "MIN_MARKET_VOLUME_24H"},
		{"bad bool", map[string]string{"DISABLE_COOLDOWN": "maybe"}, "DISABLE_COOLDOWN"},
		{"conflicting wallet lists", map[string]string{
			"WALLET_ALLOWLIST": "0xAAA,0xbbb",
			"WALLET_BLOCKLIST": "0xaaa",
		}, "0xaaa"},
		{"unknown backend", map[string]string{"STATE_BACKEND": "redis"}, "STATE_BACKEND"},
		{"bad wallet display", map[string]string{"WALLET_DISPLAY": "emoji"}, "WALLET_DISPLAY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeYAML(t, "detector: [unclosed")
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse YAML")
}

func TestLoad_NonFiniteYAMLThreshold(t *testing.T) {
	path := writeYAML(t, "detector:\n  min_whale_usd: .nan\n  min_liquidity_usd: .inf\n")
	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MIN_WHALE_BET_USD")
	assert.Contains(t, err.Error(), "MIN_LIQUIDITY_USD")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "1234...wxyz", config.MaskSecret("1234567890:abcdefwxyz"))
	assert.Equal(t, "****", config.MaskSecret("abcd"))
	assert.Equal(t, "", config.MaskSecret(""))
}
