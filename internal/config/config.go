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
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Scanner  ScannerConfig  `yaml:"scanner" mapstructure:"scanner"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DataConfig configures dataset locations.
type DataConfig struct {
	// RawPath is the raw claims export (CSV or XLSX).
	RawPath string `yaml:"raw_path" mapstructure:"raw_path"`
	// ProcessedDir holds the preprocessed summary tables.
	ProcessedDir string `yaml:"processed_dir" mapstructure:"processed_dir"`
}

// ScannerConfig holds the anomaly detector thresholds. These are
// domain-specific heuristics, not statistical parameters; every threshold is
// overridable here and per invocation instead of being a hidden literal.
type ScannerConfig struct {
	// MaxClaimsPerMonth is the highest physically plausible claim volume for
	// one provider in one calendar month.
	MaxClaimsPerMonth int64 `yaml:"max_claims_per_month" mapstructure:"max_claims_per_month"`
	// RevenueZThreshold is the modified z-score (MAD units) above which a
	// provider's paid-per-claim rate is flagged.
	RevenueZThreshold float64 `yaml:"revenue_zscore_threshold" mapstructure:"revenue_zscore_threshold"`
	// SpikeMultiplier flags months billing more than this multiple of the
	// provider's own monthly average.
	SpikeMultiplier float64 `yaml:"spike_multiplier" mapstructure:"spike_multiplier"`
	// ConsistencyRatio flags providers whose top identical paid amount covers
	// more than this fraction of their line items.
	ConsistencyRatio float64 `yaml:"consistency_ratio" mapstructure:"consistency_ratio"`
	// ConsistencyMinRows is the minimum line-item count below which the
	// consistency ratio is statistically meaningless.
	ConsistencyMinRows int64 `yaml:"consistency_min_rows" mapstructure:"consistency_min_rows"`
	// MinViableTotal excludes providers whose summed paid amount is too small
	// to be an actionable case.
	MinViableTotal float64 `yaml:"min_viable_total" mapstructure:"min_viable_total"`
}

// RegistryConfig configures the NPI registry lookup client.
type RegistryConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Disabled       bool    `yaml:"disabled" mapstructure:"disabled"`
}

// ServerConfig configures the results API server.
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
	v.SetEnvPrefix("CLAIMSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "claimscan.db")
	v.SetDefault("data.processed_dir", "data/processed")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("scanner.max_claims_per_month", 1500)
	v.SetDefault("scanner.revenue_zscore_threshold", 3.0)
	v.SetDefault("scanner.spike_multiplier", 5.0)
	v.SetDefault("scanner.consistency_ratio", 0.9)
	v.SetDefault("scanner.consistency_min_rows", 30)
	v.SetDefault("scanner.min_viable_total", 10000)
	v.SetDefault("registry.base_url", "https://npiregistry.cms.hhs.gov/api/")
	v.SetDefault("registry.timeout_secs", 10)
	v.SetDefault("registry.requests_per_sec", 5)

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
