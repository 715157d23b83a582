package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
	Claude   ClaudeConfig   `yaml:"claude" mapstructure:"claude"`
	WebIndex WebIndexConfig `yaml:"webindex" mapstructure:"webindex"`
	Sources  SourcesConfig  `yaml:"sources" mapstructure:"sources"`
	Validate ValidateConfig `yaml:"validate" mapstructure:"validate"`
	Runner   RunnerConfig   `yaml:"runner" mapstructure:"runner"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LedgerConfig configures the append-only audit ledger.
type LedgerConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ClaudeConfig holds Anthropic API settings for the structured knowledge source.
type ClaudeConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// WebIndexConfig holds the search index API settings.
type WebIndexConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SourcesConfig tunes the knowledge source cascade.
type SourcesConfig struct {
	StaticTablePath   string   `yaml:"static_table_path" mapstructure:"static_table_path"`
	RetailerDomains   []string `yaml:"retailer_domains" mapstructure:"retailer_domains"`
	WebSearchMaxConf  int      `yaml:"websearch_max_confidence" mapstructure:"websearch_max_confidence"`
	LookupTimeoutSecs int      `yaml:"lookup_timeout_secs" mapstructure:"lookup_timeout_secs"`
	RequestsPerMinute int      `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// ValidateConfig tunes the candidate validator.
type ValidateConfig struct {
	MinConfidence int `yaml:"min_confidence" mapstructure:"min_confidence"`
}

// RunnerConfig configures batch pacing.
type RunnerConfig struct {
	ProductsPerMinute int `yaml:"products_per_minute" mapstructure:"products_per_minute"`
	CheckpointEvery   int `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
	CheckpointSecs    int `yaml:"checkpoint_secs" mapstructure:"checkpoint_secs"`
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
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "food.db")
	v.SetDefault("ledger.path", "enrichment_log.csv")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("claude.model", "claude-haiku-4-5-20251001")
	v.SetDefault("claude.max_tokens", 1024)
	v.SetDefault("webindex.base_url", "https://s.jina.ai")
	v.SetDefault("webindex.timeout_secs", 15)
	v.SetDefault("sources.static_table_path", "")
	v.SetDefault("sources.retailer_domains", []string{
		"tesco.com", "sainsburys.co.uk", "ocado.com", "waitrose.com",
	})
	v.SetDefault("sources.websearch_max_confidence", 65)
	v.SetDefault("sources.lookup_timeout_secs", 12)
	v.SetDefault("sources.requests_per_minute", 20)
	v.SetDefault("validate.min_confidence", 70)
	v.SetDefault("runner.products_per_minute", 12)
	v.SetDefault("runner.checkpoint_every", 25)
	v.SetDefault("runner.checkpoint_secs", 30)

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
