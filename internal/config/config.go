package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Download   DownloadConfig   `yaml:"download" mapstructure:"download"`
	Reader     ReaderConfig     `yaml:"reader" mapstructure:"reader"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SourceConfig configures the regulator's listing endpoint and the fetch
// behavior against it.
type SourceConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	ListingPath    string `yaml:"listing_path" mapstructure:"listing_path"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	LinkDelayMs    int    `yaml:"link_delay_ms" mapstructure:"link_delay_ms"`
	PageDelayMs    int    `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
	MaxBodyMB      int    `yaml:"max_body_mb" mapstructure:"max_body_mb"`
	SectionID      string `yaml:"section_id" mapstructure:"section_id"`
	SubsectionID   string `yaml:"subsection_id" mapstructure:"subsection_id"`
	SectionText    string `yaml:"section_text" mapstructure:"section_text"`
	SubsectionText string `yaml:"subsection_text" mapstructure:"subsection_text"`
}

// Timeout returns the per-request timeout as a duration.
func (c SourceConfig) Timeout() time.Duration {
	if c.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// DownloadConfig configures where attachments land on disk.
type DownloadConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ReaderConfig configures PDF text extraction.
type ReaderConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
}

// AnthropicConfig holds Anthropic API settings for the analysis stage.
type AnthropicConfig struct {
	Key              string `yaml:"key" mapstructure:"key"`
	Model            string `yaml:"model" mapstructure:"model"`
	MaxTokens        int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	UseBatch         bool   `yaml:"use_batch" mapstructure:"use_batch"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	PollTimeoutMins  int    `yaml:"poll_timeout_mins" mapstructure:"poll_timeout_mins"`
}

// PollInterval returns the batch polling interval as a duration.
func (c AnthropicConfig) PollInterval() time.Duration {
	if c.PollIntervalSecs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// PollTimeout returns how long to wait for a batch before giving up.
func (c AnthropicConfig) PollTimeout() time.Duration {
	if c.PollTimeoutMins <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.PollTimeoutMins) * time.Minute
}

// PipelineConfig configures the orchestrator's optional tail stages.
type PipelineConfig struct {
	Persist             bool   `yaml:"persist" mapstructure:"persist"`
	AssignmentRulesPath string `yaml:"assignment_rules_path" mapstructure:"assignment_rules_path"`
}

// MonitoringConfig configures the background run-health checker.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	ErrorThreshold       int     `yaml:"error_threshold" mapstructure:"error_threshold"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackRuns         int     `yaml:"lookback_runs" mapstructure:"lookback_runs"`
}

// ServerConfig configures the workflow trigger server.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("circular-cli")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "circular-cli"))
	}

	// Environment
	v.SetEnvPrefix("CIRCULAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("source.base_url", "https://www.sebi.gov.in")
	v.SetDefault("source.listing_path", "/sebiweb/ajax/home/getnewslistinfo.jsp")
	v.SetDefault("source.user_agent", "circular-cli/1.0")
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("source.link_delay_ms", 1000)
	v.SetDefault("source.page_delay_ms", 2000)
	v.SetDefault("source.max_body_mb", 32)
	v.SetDefault("source.section_id", "1")
	v.SetDefault("source.subsection_id", "7")
	v.SetDefault("source.section_text", "Legal")
	v.SetDefault("source.subsection_text", "Circulars")
	v.SetDefault("download.dir", "circulars")
	v.SetDefault("reader.provider", "local")
	v.SetDefault("reader.pdftotext_path", "pdftotext")
	v.SetDefault("reader.mistral_ocr_model", "pixtral-large-latest")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.use_batch", false)
	v.SetDefault("anthropic.poll_interval_secs", 5)
	v.SetDefault("anthropic.poll_timeout_mins", 30)
	v.SetDefault("pipeline.persist", false)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.error_threshold", 10)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_runs", 50)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
