// Package config loads the bot's configuration from file and environment
// and owns global logger setup.
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
	Provider   ProviderConfig   `yaml:"provider" mapstructure:"provider"`
	Social     SocialConfig     `yaml:"social" mapstructure:"social"`
	Monitor    MonitorConfig    `yaml:"monitor" mapstructure:"monitor"`
	Cancel     CancelConfig     `yaml:"cancel" mapstructure:"cancel"`
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Events     EventsConfig     `yaml:"events" mapstructure:"events"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ProviderConfig configures the game data source.
type ProviderConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// AccountConfig holds credentials for one posting account.
type AccountConfig struct {
	Server            string  `yaml:"server" mapstructure:"server"`
	AccessToken       string  `yaml:"access_token" mapstructure:"access_token"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// SocialConfig holds the two posting accounts: Primary posts every punt,
// Curated boosts the high-percentile ones and hosts cancellation votes.
type SocialConfig struct {
	Primary AccountConfig `yaml:"primary" mapstructure:"primary"`
	Curated AccountConfig `yaml:"curated" mapstructure:"curated"`
}

// MonitorConfig tunes the polling loop.
type MonitorConfig struct {
	CycleFloorSecs         int     `yaml:"cycle_floor_secs" mapstructure:"cycle_floor_secs"`
	IdleSleepMins          int     `yaml:"idle_sleep_mins" mapstructure:"idle_sleep_mins"`
	MaxConsecutiveFailures int     `yaml:"max_consecutive_failures" mapstructure:"max_consecutive_failures"`
	BoostThreshold         float64 `yaml:"boost_threshold" mapstructure:"boost_threshold"`
	FetchConcurrency       int     `yaml:"fetch_concurrency" mapstructure:"fetch_concurrency"`
	SeasonLabel            string  `yaml:"season_label" mapstructure:"season_label"`
	HistoricalLabel        string  `yaml:"historical_label" mapstructure:"historical_label"`
}

// CancelConfig tunes the vote-gated retraction workflow.
type CancelConfig struct {
	Enabled       bool `yaml:"enabled" mapstructure:"enabled"`
	VoteWaitMins  int  `yaml:"vote_wait_mins" mapstructure:"vote_wait_mins"`
	MaxConcurrent int  `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// DataConfig points at the population and dedup files.
type DataConfig struct {
	HistoricalPath     string `yaml:"historical_path" mapstructure:"historical_path"`
	CurrentSeasonPath  string `yaml:"current_season_path" mapstructure:"current_season_path"`
	NotifiedPath       string `yaml:"notified_path" mapstructure:"notified_path"`
	NotifiedFreshHours int    `yaml:"notified_fresh_hours" mapstructure:"notified_fresh_hours"`
}

// StoreConfig configures the notification record backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// EventsConfig configures the optional Redis stream feed. Publishing is
// disabled when Addr is empty.
type EventsConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// ServerConfig configures the HTTP status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures metrics collection and webhook alerts.
type MonitoringConfig struct {
	WebhookURL        string `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackHours     int    `yaml:"lookback_hours" mapstructure:"lookback_hours"`
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
	v.SetEnvPrefix("PUNTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.base_url", "https://site.api.espn.com/apis/site/v2/sports/football/nfl")
	v.SetDefault("provider.requests_per_second", 2.0)
	v.SetDefault("social.primary.server", "")
	v.SetDefault("social.primary.access_token", "")
	v.SetDefault("social.primary.requests_per_second", 1.0)
	v.SetDefault("social.curated.server", "")
	v.SetDefault("social.curated.access_token", "")
	v.SetDefault("social.curated.requests_per_second", 1.0)
	v.SetDefault("store.database_url", "")
	v.SetDefault("events.addr", "")
	v.SetDefault("events.password", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_hours", 24)
	v.SetDefault("monitor.cycle_floor_secs", 30)
	v.SetDefault("monitor.idle_sleep_mins", 14)
	v.SetDefault("monitor.max_consecutive_failures", 10)
	v.SetDefault("monitor.boost_threshold", 70.0)
	v.SetDefault("monitor.fetch_concurrency", 4)
	v.SetDefault("monitor.season_label", "the 2025 season")
	v.SetDefault("monitor.historical_label", "all punts since 1999")
	v.SetDefault("cancel.enabled", true)
	v.SetDefault("cancel.vote_wait_mins", 61)
	v.SetDefault("cancel.max_concurrent", 8)
	v.SetDefault("data.historical_path", "data/historical_surrender_indices.txt")
	v.SetDefault("data.current_season_path", "data/current_surrender_indices.txt")
	v.SetDefault("data.notified_path", "data/notified_plays.json")
	v.SetDefault("data.notified_fresh_hours", 12)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "data/puntwatch.db")
	v.SetDefault("events.db", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
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
