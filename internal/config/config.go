// Package config provides configuration management for the stock alerts application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig    `mapstructure:"database"`
	Engine   EngineConfig      `mapstructure:"engine"`
	Ledger   LedgerConfig      `mapstructure:"ledger"`
	Sources  SourcesConfig     `mapstructure:"sources"`
	Telegram TelegramConfig    `mapstructure:"telegram"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Log      logging.LogConfig `mapstructure:"log"`
	Secrets  Secrets           `mapstructure:"-" json:"-"` // Loaded from the environment
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// EngineConfig holds alert engine settings.
type EngineConfig struct {
	SymbolDelay time.Duration `mapstructure:"symbol_delay"` // pause after every fetch
	Timezone    string        `mapstructure:"timezone"`     // day boundary for dedup; "Local" by default
}

// LedgerConfig selects the alert ledger backend.
type LedgerConfig struct {
	Backend string      `mapstructure:"backend"` // sqlite, redis
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds settings for the redis ledger backend.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// SourcesConfig holds per-provider settings.
type SourcesConfig struct {
	Yahoo        YahooConfig      `mapstructure:"yahoo"`
	Finnhub      HTTPSourceConfig `mapstructure:"finnhub"`
	TwelveData   HTTPSourceConfig `mapstructure:"twelvedata"`
	EODHD        HTTPSourceConfig `mapstructure:"eodhd"`
	AlphaVantage HTTPSourceConfig `mapstructure:"alphavantage"`
	Polygon      HTTPSourceConfig `mapstructure:"polygon"`
	Kite         HTTPSourceConfig `mapstructure:"kite"`
	Breaker      BreakerConfig    `mapstructure:"breaker"`
}

// HTTPSourceConfig holds settings shared by every HTTP price source.
type HTTPSourceConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"` // 0 = unlimited
}

// YahooConfig adds the fallback chain retry budget.
type YahooConfig struct {
	HTTPSourceConfig `mapstructure:",squash"`
	Attempts         int           `mapstructure:"attempts"`
	Backoff          time.Duration `mapstructure:"backoff"`
	// CookieURL is visited once per run for the session cookie the quote
	// endpoint requires. Empty skips the visit.
	CookieURL string `mapstructure:"cookie_url"`
}

// BreakerConfig controls the per-source circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"` // 0 disables the breaker
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

// TelegramConfig holds Telegram delivery settings. Credentials live in Secrets.
type TelegramConfig struct {
	APIEndpoint       string        `mapstructure:"api_endpoint"`
	ParseMode         string        `mapstructure:"parse_mode"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MessagesPerSecond int           `mapstructure:"messages_per_second"`
}

// MetricsConfig holds Prometheus Pushgateway settings.
type MetricsConfig struct {
	PushURL string `mapstructure:"push_url"` // empty disables pushing
	Job     string `mapstructure:"job"`
}

// Secrets holds API credentials supplied through the environment.
type Secrets struct {
	Telegram           TelegramSecrets `ignored:"true"`
	FinnhubAPIKey      string          `envconfig:"FINNHUB_API_KEY"`
	TwelveDataAPIKey   string          `envconfig:"TWELVEDATA_API_KEY"`
	EODHDAPIKey        string          `envconfig:"EODHD_API_KEY"`
	AlphaVantageAPIKey string          `envconfig:"ALPHA_VANTAGE_API_KEY"`
	PolygonAPIKey      string          `envconfig:"POLYGON_API_KEY"`
	KiteAPIKey         string          `envconfig:"KITE_API_KEY"`
	KiteAccessToken    string          `envconfig:"KITE_ACCESS_TOKEN"`
	RedisPassword      string          `envconfig:"REDIS_PASSWORD"`
}

// TelegramSecrets holds the notification channel credentials.
type TelegramSecrets struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	ChatID   string `envconfig:"TELEGRAM_CHAT_ID" required:"true"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	return "."
}

// Load loads configuration from the specified directory.
// A missing config.toml is not an error; every key has a default.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	if err := loadDotEnv(configDir); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{}
	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadSecrets(&cfg.Secrets); err != nil {
		return nil, fmt.Errorf("loading secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv(configDir string) error {
	err := godotenv.Load(filepath.Join(configDir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func newViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	// STOCKALERTS_ENGINE_SYMBOL_DELAY overrides engine.symbol_delay, etc.
	v.SetEnvPrefix("STOCKALERTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "stock_alerts.db")

	v.SetDefault("engine.symbol_delay", 5*time.Second)
	v.SetDefault("engine.timezone", "Local")

	v.SetDefault("ledger.backend", "sqlite")
	v.SetDefault("ledger.redis.addr", "localhost:6379")
	v.SetDefault("ledger.redis.db", 0)
	v.SetDefault("ledger.redis.key_prefix", "stockalerts")
	v.SetDefault("ledger.redis.ttl", 48*time.Hour)

	v.SetDefault("sources.yahoo.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("sources.yahoo.timeout", 10*time.Second)
	v.SetDefault("sources.yahoo.requests_per_minute", 0)
	v.SetDefault("sources.yahoo.attempts", 3)
	v.SetDefault("sources.yahoo.backoff", time.Second)
	v.SetDefault("sources.yahoo.cookie_url", "https://fc.yahoo.com")

	v.SetDefault("sources.finnhub.base_url", "https://finnhub.io/api/v1")
	v.SetDefault("sources.finnhub.timeout", 5*time.Second)
	v.SetDefault("sources.finnhub.requests_per_minute", 60)

	v.SetDefault("sources.twelvedata.base_url", "https://api.twelvedata.com")
	v.SetDefault("sources.twelvedata.timeout", 5*time.Second)
	v.SetDefault("sources.twelvedata.requests_per_minute", 8)

	v.SetDefault("sources.eodhd.base_url", "https://eodhd.com/api")
	v.SetDefault("sources.eodhd.timeout", 10*time.Second)
	v.SetDefault("sources.eodhd.requests_per_minute", 0)

	v.SetDefault("sources.alphavantage.base_url", "https://www.alphavantage.co")
	v.SetDefault("sources.alphavantage.timeout", 10*time.Second)
	v.SetDefault("sources.alphavantage.requests_per_minute", 5)

	v.SetDefault("sources.polygon.base_url", "")
	v.SetDefault("sources.polygon.timeout", 10*time.Second)
	v.SetDefault("sources.polygon.requests_per_minute", 5)

	v.SetDefault("sources.kite.base_url", "")
	v.SetDefault("sources.kite.timeout", 10*time.Second)
	v.SetDefault("sources.kite.requests_per_minute", 0)

	v.SetDefault("sources.breaker.failure_threshold", 5)
	v.SetDefault("sources.breaker.cooldown", 30*time.Second)

	v.SetDefault("telegram.api_endpoint", "")
	v.SetDefault("telegram.parse_mode", "Markdown")
	v.SetDefault("telegram.timeout", 10*time.Second)
	v.SetDefault("telegram.messages_per_second", 1)

	v.SetDefault("metrics.push_url", "")
	v.SetDefault("metrics.job", "stock_alerts")

	logDefaults := logging.DefaultLogConfig()
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.console", logDefaults.Console)
	v.SetDefault("log.file", logDefaults.File)
	v.SetDefault("log.file_path", logDefaults.FilePath)
	v.SetDefault("log.max_size", logDefaults.MaxSize)
	v.SetDefault("log.max_backups", logDefaults.MaxBackups)
	v.SetDefault("log.max_age", logDefaults.MaxAge)
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := newViper(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

// loadSecrets reads provider keys, which are all optional: a missing key
// degrades only that source. Telegram credentials are read when present and
// enforced by RequireTelegram.
func loadSecrets(secrets *Secrets) error {
	if err := envconfig.Process("", secrets); err != nil {
		return err
	}

	var tg TelegramSecrets
	if err := envconfig.Process("", &tg); err == nil {
		secrets.Telegram = tg
	}
	return nil
}

// RequireTelegram fails when the notification credentials are absent.
// Commands that deliver alerts call it before any network activity.
func (c *Config) RequireTelegram() error {
	if c.Secrets.Telegram.BotToken != "" && c.Secrets.Telegram.ChatID != "" {
		return nil
	}

	var tg TelegramSecrets
	if err := envconfig.Process("", &tg); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrMissingCredentials, err)
	}
	if tg.BotToken == "" || tg.ChatID == "" {
		return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must not be empty", apperrors.ErrMissingCredentials)
	}
	c.Secrets.Telegram = tg
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return invalid("database.path must not be empty")
	}

	if c.Engine.SymbolDelay < 0 {
		return invalid("engine.symbol_delay must be non-negative")
	}
	if _, err := c.Location(); err != nil {
		return invalid("engine.timezone %q: %v", c.Engine.Timezone, err)
	}

	switch c.Ledger.Backend {
	case "sqlite":
	case "redis":
		if c.Ledger.Redis.Addr == "" {
			return invalid("ledger.redis.addr is required for the redis backend")
		}
		if c.Ledger.Redis.TTL < 24*time.Hour {
			return invalid("ledger.redis.ttl must cover at least one day")
		}
	default:
		return invalid("invalid ledger backend: %s (must be 'sqlite' or 'redis')", c.Ledger.Backend)
	}

	if c.Sources.Yahoo.Attempts < 1 {
		return invalid("sources.yahoo.attempts must be at least 1")
	}
	if c.Sources.Yahoo.Backoff < 0 {
		return invalid("sources.yahoo.backoff must be non-negative")
	}
	for name, sc := range c.httpSources() {
		if sc.Timeout <= 0 {
			return invalid("sources.%s.timeout must be positive", name)
		}
		if sc.RequestsPerMinute < 0 {
			return invalid("sources.%s.requests_per_minute must be non-negative", name)
		}
	}
	if c.Sources.Breaker.FailureThreshold < 0 {
		return invalid("sources.breaker.failure_threshold must be non-negative")
	}

	if c.Telegram.Timeout <= 0 {
		return invalid("telegram.timeout must be positive")
	}
	switch strings.ToLower(c.Telegram.ParseMode) {
	case "", "none", "markdown", "markdownv2", "html":
	default:
		return invalid("telegram.parse_mode %q must be Markdown, MarkdownV2, HTML or none", c.Telegram.ParseMode)
	}

	return nil
}

func (c *Config) httpSources() map[string]HTTPSourceConfig {
	return map[string]HTTPSourceConfig{
		"yahoo":        c.Sources.Yahoo.HTTPSourceConfig,
		"finnhub":      c.Sources.Finnhub,
		"twelvedata":   c.Sources.TwelveData,
		"eodhd":        c.Sources.EODHD,
		"alphavantage": c.Sources.AlphaVantage,
		"polygon":      c.Sources.Polygon,
		"kite":         c.Sources.Kite,
	}
}

// Location returns the time zone that defines an alert day.
func (c *Config) Location() (*time.Location, error) {
	if c.Engine.Timezone == "" || c.Engine.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Engine.Timezone)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", apperrors.ErrConfigInvalid, fmt.Sprintf(format, args...))
}
