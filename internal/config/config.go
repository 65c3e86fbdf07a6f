// Package config loads runtime settings from a YAML file, GRANDLINE_* environment
// variables and built-in defaults, in that order of precedence from last to first.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "GRANDLINE"

type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Game    GameConfig    `mapstructure:"game"`
	Search  SearchConfig  `mapstructure:"search"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Server  ServerConfig  `mapstructure:"server"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

type GameConfig struct {
	Seed              int64  `mapstructure:"seed"` // 0 picks a time-based seed
	StartingPlayer    int    `mapstructure:"starting_player"`
	StartingResources int    `mapstructure:"starting_resources"`
	MaxTurns          int    `mapstructure:"max_turns"`
	ReplayDir         string `mapstructure:"replay_dir"` // empty disables replay files
}

type SearchConfig struct {
	Depth        int   `mapstructure:"depth"`
	Branching    int   `mapstructure:"branching"`
	TimeBudgetMS int   `mapstructure:"time_budget_ms"`
	NodeBudget   int64 `mapstructure:"node_budget"`
	Workers      int   `mapstructure:"workers"`
}

// TimeBudget is the wall-clock limit per search, 0 for none.
func (s SearchConfig) TimeBudget() time.Duration {
	return time.Duration(s.TimeBudgetMS) * time.Millisecond
}

type CatalogConfig struct {
	Path string `mapstructure:"path"` // YAML catalog imported on start
	DSN  string `mapstructure:"dsn"`  // sqlite database file
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("game.seed", 0)
	v.SetDefault("game.starting_player", 0)
	v.SetDefault("game.starting_resources", 0)
	v.SetDefault("game.max_turns", 200)
	v.SetDefault("game.replay_dir", "")

	v.SetDefault("search.depth", 3)
	v.SetDefault("search.branching", 5)
	v.SetDefault("search.time_budget_ms", 2000)
	v.SetDefault("search.node_budget", 0)
	v.SetDefault("search.workers", 4)

	v.SetDefault("catalog.path", "cards.yaml")
	v.SetDefault("catalog.dsn", "grandline.db")

	v.SetDefault("server.addr", ":8080")
}

// Load reads the config file at path (optional) and applies environment
// overrides such as GRANDLINE_SEARCH_DEPTH=4.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every nonsensical setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format: %q is not console or json", c.Logging.Format))
	}
	if c.Game.StartingPlayer != 0 && c.Game.StartingPlayer != 1 {
		errs = append(errs, fmt.Errorf("game.starting_player: %d is not 0 or 1", c.Game.StartingPlayer))
	}
	if c.Game.StartingResources < 0 || c.Game.StartingResources > 10 {
		errs = append(errs, fmt.Errorf("game.starting_resources: %d outside 0-10", c.Game.StartingResources))
	}
	if c.Game.MaxTurns < 1 {
		errs = append(errs, fmt.Errorf("game.max_turns: %d must be positive", c.Game.MaxTurns))
	}
	if c.Search.Depth < 1 {
		errs = append(errs, fmt.Errorf("search.depth: %d must be positive", c.Search.Depth))
	}
	if c.Search.Branching < 1 {
		errs = append(errs, fmt.Errorf("search.branching: %d must be positive", c.Search.Branching))
	}
	if c.Search.TimeBudgetMS < 0 || c.Search.NodeBudget < 0 {
		errs = append(errs, errors.New("search: budgets cannot be negative"))
	}
	if c.Search.Workers < 1 {
		errs = append(errs, fmt.Errorf("search.workers: %d must be positive", c.Search.Workers))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr: empty"))
	}
	return errors.Join(errs...)
}

// NewLogger builds the operational logger described by the logging section.
func (c LoggingConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	if c.Format == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
