package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, 1024, cfg.Anthropic.MaxTokens)
	assert.True(t, cfg.Anthropic.WebSearch)
	assert.InDelta(t, 2.0, cfg.AuctionMethod.RateLimit, 0.001)
	assert.Equal(t, 15, cfg.Enrich.PaceSecs)
	assert.False(t, cfg.Enrich.PaceFirst)
	assert.Equal(t, 120, cfg.Enrich.TimeoutSecs)
	assert.Equal(t, 60, cfg.Enrich.RateLimitWaitSecs)
	assert.Equal(t, 120, cfg.Enrich.RateLimitCapSecs)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
enrich:
  pace_secs: 5
auctionmethod:
  domain: demo
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Enrich.PaceSecs)
	assert.Equal(t, "demo", cfg.AuctionMethod.Domain)
	// Defaults still apply for unset values
	assert.Equal(t, 120, cfg.Enrich.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
enrich:
  pace_secs: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LOTSMITH_LOG_LEVEL", "warn")
	t.Setenv("LOTSMITH_ENRICH_PACE_SECS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 30, cfg.Enrich.PaceSecs)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LOTSMITH_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestEnrichDurations(t *testing.T) {
	cfg := EnrichConfig{PaceSecs: 15, TimeoutSecs: 120, RateLimitWaitSecs: 60, RateLimitCapSecs: 120}
	assert.Equal(t, 15*time.Second, cfg.Pace())
	assert.Equal(t, 120*time.Second, cfg.Timeout())
	assert.Equal(t, 60*time.Second, cfg.RateLimitWait())
	assert.Equal(t, 120*time.Second, cfg.RateLimitCap())
}

func TestRedacted(t *testing.T) {
	cfg := Config{}
	cfg.Anthropic.Key = "sk-ant-secret"
	cfg.AuctionMethod.Domain = "demo"
	cfg.AuctionMethod.Password = "hunter2"

	red := cfg.Redacted()
	assert.Equal(t, "<redacted>", red.Anthropic.Key)
	assert.Equal(t, "<redacted>", red.AuctionMethod.Password)
	assert.Equal(t, "demo", red.AuctionMethod.Domain)
	// Original untouched
	assert.Equal(t, "sk-ant-secret", cfg.Anthropic.Key)
}

func TestRedactedLeavesEmptySecrets(t *testing.T) {
	red := Config{}.Redacted()
	assert.Empty(t, red.Anthropic.Key)
	assert.Empty(t, red.AuctionMethod.Password)
}

// validDefaults returns a Config with defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Anthropic.MaxTokens = 1024
	cfg.Enrich.PaceSecs = 15
	cfg.Enrich.TimeoutSecs = 120
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateEnrich_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"

	assert.NoError(t, cfg.Validate("enrich"))
}

func TestValidateEnrich_MissingFields(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("enrich")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestValidateEnrich_BadPacing(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Enrich.PaceSecs = -1
	cfg.Enrich.TimeoutSecs = 0

	err := cfg.Validate("enrich")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "enrich.pace_secs must be >= 0")
	assert.Contains(t, err.Error(), "enrich.timeout_secs must be >= 1")
}

func TestValidatePush_MissingCredentials(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("push")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "auctionmethod.domain is required")
	assert.Contains(t, err.Error(), "auctionmethod.email is required")
	assert.Contains(t, err.Error(), "auctionmethod.password is required")
}

func TestValidatePush_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.AuctionMethod.Domain = "demo"
	cfg.AuctionMethod.Email = "ops@example.com"
	cfg.AuctionMethod.Password = "hunter2"

	assert.NoError(t, cfg.Validate("push"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.AuctionMethod.Domain = "demo"
	cfg.AuctionMethod.Email = "ops@example.com"
	cfg.AuctionMethod.Password = "hunter2"
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
