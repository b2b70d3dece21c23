// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Capture   CaptureConfig   `mapstructure:"capture"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Inference InferenceConfig `mapstructure:"inference"`
	Storage   StorageConfig   `mapstructure:"storage"`
	DB        DBConfig        `mapstructure:"db"`
	Events    EventsConfig    `mapstructure:"events"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig names the proxy-injected header carrying the authenticated user id.
type AuthConfig struct {
	UserHeader string `mapstructure:"user_header"`
}

// CaptureConfig governs screenshot acquisition and retry budgets.
type CaptureConfig struct {
	Provider      string `mapstructure:"provider"` // mshots | chromedp
	Width         int    `mapstructure:"width"`
	Height        int    `mapstructure:"height"`
	MinBytes      int    `mapstructure:"min_bytes"`
	Attempts      int    `mapstructure:"attempts"`
	DelayMs       int    `mapstructure:"delay_ms"`
	CrawlAttempts int    `mapstructure:"crawl_attempts"`
	CrawlDelayMs  int    `mapstructure:"crawl_delay_ms"`
	MaxParallel   int    `mapstructure:"max_parallel"` // chromedp sessions
}

// CrawlConfig governs link discovery for crawler mode.
type CrawlConfig struct {
	UserAgent     string `mapstructure:"user_agent"`
	MaxExtraPages int    `mapstructure:"max_extra_pages"`
	FetchTimeout  int    `mapstructure:"fetch_timeout_seconds"`
}

// InferenceConfig configures the vision model endpoint.
type InferenceConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxParallel    int     `mapstructure:"max_parallel"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// StorageConfig selects the blob store for captured/uploaded images.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // gcs | memory
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig selects the usage/report persistence backend.
type DBConfig struct {
	Provider string `mapstructure:"provider"` // postgres | memory
	DSN      string `mapstructure:"dsn"`
}

// EventsConfig configures audit-completed event publishing.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"` // pubsub | memory | noop
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("UXLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 90)
	v.SetDefault("auth.user_header", "X-Auth-User")
	v.SetDefault("capture.provider", "mshots")
	v.SetDefault("capture.width", 1024)
	v.SetDefault("capture.height", 768)
	v.SetDefault("capture.min_bytes", 6000)
	v.SetDefault("capture.attempts", 5)
	v.SetDefault("capture.delay_ms", 2000)
	v.SetDefault("capture.crawl_attempts", 4)
	v.SetDefault("capture.crawl_delay_ms", 2500)
	v.SetDefault("capture.max_parallel", 2)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (uxlens-bot/1.0)")
	v.SetDefault("crawl.max_extra_pages", 2)
	v.SetDefault("crawl.fetch_timeout_seconds", 15)
	v.SetDefault("inference.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("inference.api_key", "")
	v.SetDefault("inference.model", "meta-llama/llama-4-scout-17b-16e-instruct")
	v.SetDefault("inference.temperature", 0.7)
	v.SetDefault("inference.max_parallel", 2)
	v.SetDefault("inference.timeout_seconds", 60)
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "screenshots")
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.dsn", "")
	v.SetDefault("events.provider", "noop")
	v.SetDefault("events.project_id", "")
	v.SetDefault("events.topic", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.TimeoutSeconds <= 0 {
		return fmt.Errorf("server.timeout_seconds must be > 0")
	}
	if c.Capture.Attempts <= 0 || c.Capture.CrawlAttempts <= 0 {
		return fmt.Errorf("capture attempts must be > 0")
	}
	if c.Capture.MinBytes < 0 {
		return fmt.Errorf("capture.min_bytes must be >= 0")
	}
	if c.Capture.Provider == "chromedp" && c.Capture.MaxParallel <= 0 {
		return fmt.Errorf("capture.max_parallel must be > 0 for chromedp")
	}
	if c.Crawl.MaxExtraPages < 0 {
		return fmt.Errorf("crawl.max_extra_pages must be >= 0")
	}
	if c.Inference.MaxParallel <= 0 {
		return fmt.Errorf("inference.max_parallel must be > 0")
	}
	if c.Storage.Provider == "gcs" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set when storage.provider is gcs")
	}
	if c.DB.Provider == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db.provider is postgres")
	}
	if c.Events.Provider == "pubsub" && (c.Events.ProjectID == "" || c.Events.Topic == "") {
		return fmt.Errorf("events.project_id and events.topic must be set when events.provider is pubsub")
	}
	return nil
}

// RequestTimeout converts the server timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}
