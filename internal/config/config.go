package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Proxy    ProxyConfig    `yaml:"proxy" mapstructure:"proxy"`
	Gather   GatherConfig   `yaml:"gather" mapstructure:"gather"`
	Scan     ScanConfig     `yaml:"scan" mapstructure:"scan"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// LLMConfig holds the chat-completion endpoint settings. The key is the only
// mandatory credential in the application: without it a scan aborts before
// touching any store.
type LLMConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// RegistryConfig holds the company-registry API settings. An empty key turns
// every registry call into a no-op.
type RegistryConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	MinIntervalMs int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// MinInterval returns the minimum delay between registry calls.
func (r RegistryConfig) MinInterval() time.Duration {
	return time.Duration(r.MinIntervalMs) * time.Millisecond
}

// ProxyConfig configures the fetch fallback chain.
type ProxyConfig struct {
	RelayBaseURL   string `yaml:"relay_base_url" mapstructure:"relay_base_url"`
	PublicProxyURL string `yaml:"public_proxy_url" mapstructure:"public_proxy_url"`
}

// GatherConfig configures evidence gathering.
type GatherConfig struct {
	FetchTimeoutSecs int `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	PageCharBudget   int `yaml:"page_char_budget" mapstructure:"page_char_budget"`
	SearchCharBudget int `yaml:"search_char_budget" mapstructure:"search_char_budget"`
	MaxNewsItems     int `yaml:"max_news_items" mapstructure:"max_news_items"`
}

// FetchTimeout returns the per-call fetch timeout.
func (g GatherConfig) FetchTimeout() time.Duration {
	return time.Duration(g.FetchTimeoutSecs) * time.Second
}

// ScanConfig configures batch scanning.
type ScanConfig struct {
	BatchSize      int      `yaml:"batch_size" mapstructure:"batch_size"`
	ActiveRegions  []string `yaml:"active_regions" mapstructure:"active_regions"`
	AlertThreshold int      `yaml:"alert_threshold" mapstructure:"alert_threshold"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VEILLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credential and proxy keys get empty defaults so the env
	// lookup sees them during Unmarshal.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "veille.db")
	v.SetDefault("llm.key", "")
	v.SetDefault("registry.key", "")
	v.SetDefault("proxy.relay_base_url", "")
	v.SetDefault("proxy.public_proxy_url", "")
	v.SetDefault("scan.active_regions", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_tokens", 1500)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("registry.base_url", "https://api.pappers.fr/v2")
	v.SetDefault("registry.min_interval_ms", 1100)
	v.SetDefault("gather.fetch_timeout_secs", 8)
	v.SetDefault("gather.page_char_budget", 3000)
	v.SetDefault("gather.search_char_budget", 2000)
	v.SetDefault("gather.max_news_items", 5)
	v.SetDefault("scan.batch_size", 10)
	v.SetDefault("scan.alert_threshold", 60)

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
