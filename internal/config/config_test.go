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

// chtemp moves the test into an empty dir so no real config file is found.
func chtemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "https://www.sebi.gov.in", cfg.Source.BaseURL)
	assert.Equal(t, "/sebiweb/ajax/home/getnewslistinfo.jsp", cfg.Source.ListingPath)
	assert.Equal(t, 30, cfg.Source.TimeoutSecs)
	assert.Equal(t, 1000, cfg.Source.LinkDelayMs)
	assert.Equal(t, 2000, cfg.Source.PageDelayMs)
	assert.Equal(t, "circulars", cfg.Download.Dir)
	assert.Equal(t, "local", cfg.Reader.Provider)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, 2048, cfg.Anthropic.MaxTokens)
	assert.False(t, cfg.Anthropic.UseBatch)
	assert.False(t, cfg.Pipeline.Persist)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, 10, cfg.Monitoring.ErrorThreshold)
	assert.Equal(t, 50, cfg.Monitoring.LookbackRuns)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chtemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/circulars
log:
  level: debug
  format: console
server:
  addr: ":9090"
source:
  page_delay_ms: 500
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "circular-cli.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/circulars", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 500, cfg.Source.PageDelayMs)
	// Defaults still apply for unset values.
	assert.Equal(t, 1000, cfg.Source.LinkDelayMs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chtemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "circular-cli.yaml"), []byte(yaml), 0644))

	t.Setenv("CIRCULAR_STORE_DRIVER", "postgres")
	t.Setenv("CIRCULAR_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtemp(t)

	t.Setenv("CIRCULAR_SERVER_ADDR", ":3000")
	t.Setenv("CIRCULAR_ANTHROPIC_USE_BATCH", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.True(t, cfg.Anthropic.UseBatch)
}

func TestSourceTimeout(t *testing.T) {
	assert.Equal(t, 45*time.Second, SourceConfig{TimeoutSecs: 45}.Timeout())
	assert.Equal(t, 30*time.Second, SourceConfig{}.Timeout(), "zero falls back to default")
	assert.Equal(t, 30*time.Second, SourceConfig{TimeoutSecs: -1}.Timeout())
}

func TestAnthropicPollDurations(t *testing.T) {
	cfg := AnthropicConfig{PollIntervalSecs: 10, PollTimeoutMins: 5}
	assert.Equal(t, 10*time.Second, cfg.PollInterval())
	assert.Equal(t, 5*time.Minute, cfg.PollTimeout())

	var zero AnthropicConfig
	assert.Equal(t, 5*time.Second, zero.PollInterval())
	assert.Equal(t, 30*time.Minute, zero.PollTimeout())
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
