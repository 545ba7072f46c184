// Package config loads nurture.yaml and NURTURE_* environment overrides on
// top of the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Bradley1112/nurture/internal/analysis"
	"github.com/Bradley1112/nurture/internal/expertise"
	"github.com/Bradley1112/nurture/internal/llm"
	"github.com/Bradley1112/nurture/internal/logging"
	"github.com/Bradley1112/nurture/internal/orchestrator"
	"github.com/Bradley1112/nurture/internal/server"
	"github.com/Bradley1112/nurture/internal/store"
)

const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"

	envPrefix = "NURTURE"
)

// Config is the whole nurture.yaml document.
type Config struct {
	Log    logging.Config    `mapstructure:"log" yaml:"log"`
	Store  StoreConfig       `mapstructure:"store" yaml:"store"`
	Redis  store.RedisConfig `mapstructure:"redis" yaml:"redis"`
	Engine EngineConfig      `mapstructure:"engine" yaml:"engine"`
	LLM    llm.Config        `mapstructure:"llm" yaml:"llm"`
	Server server.Config     `mapstructure:"server" yaml:"server"`
}

// StoreConfig selects the progress backend. Path is the SQLite file; empty
// means store.DefaultDBPath.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// EngineConfig holds the tunable tables of the session engine.
type EngineConfig struct {
	Orchestrator      orchestrator.Config `mapstructure:"orchestrator" yaml:"orchestrator"`
	Promotion         expertise.Config    `mapstructure:"promotion" yaml:"promotion"`
	Analysis          analysis.Config     `mapstructure:"analysis" yaml:"analysis"`
	RecentSessionsCap int                 `mapstructure:"recent_sessions_cap" yaml:"recent_sessions_cap"`
	OptimisticLocking bool                `mapstructure:"optimistic_locking" yaml:"optimistic_locking"`
}

// Default returns the built-in settings every loaded Config starts from.
func Default() Config {
	return Config{
		Log:   logging.DefaultConfig(),
		Store: StoreConfig{Driver: DriverSQLite},
		Redis: store.DefaultRedisConfig(),
		Engine: EngineConfig{
			Orchestrator:      orchestrator.DefaultConfig(),
			Promotion:         expertise.DefaultConfig(),
			Analysis:          analysis.DefaultConfig(),
			RecentSessionsCap: 3,
			OptimisticLocking: true,
		},
		LLM:    llm.DefaultConfig(),
		Server: server.DefaultConfig(),
	}
}

// scalar keys that may be overridden from the environment without a
// config file; viper only maps env vars onto keys it knows.
var envKeys = []string{
	"log.level", "log.format", "log.file",
	"store.driver", "store.path",
	"redis.host", "redis.port", "redis.db", "redis.key_prefix",
	"engine.recent_sessions_cap", "engine.optimistic_locking", "engine.analysis.classifier",
	"llm.provider", "llm.timeout",
	"llm.anthropic.model", "llm.openai.model", "llm.gemini.model", "llm.openrouter.model",
	"llm.openai.base_url",
	"server.addr", "server.mode",
	"server.rate_limit.requests", "server.rate_limit.window",
}

// secrets keep their conventional unprefixed names
var secretEnv = map[string]string{
	"llm.anthropic.api_key":  "ANTHROPIC_API_KEY",
	"llm.openai.api_key":     "OPENAI_API_KEY",
	"llm.gemini.api_key":     "GEMINI_API_KEY",
	"llm.openrouter.api_key": "OPENROUTER_API_KEY",
	"redis.password":         "REDIS_PASSWORD",
}

// Load reads path, or searches for nurture.yaml in the working directory
// and $XDG_CONFIG_HOME/nurture when path is empty. A missing file found by
// search is not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("nurture")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		if err := v.BindEnv(k, envName(k)); err != nil {
			return cfg, fmt.Errorf("bind %s: %w", k, err)
		}
	}
	for k, env := range secretEnv {
		if err := v.BindEnv(k, envName(k), env); err != nil {
			return cfg, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// envName is the NURTURE_* variable for a config key.
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func configDir() string {
	if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
		return filepath.Join(x, "nurture")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "nurture")
	}
	return ""
}

// Validate reports every invalid section at once.
func (c Config) Validate() error {
	var errs []error
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q: want sqlite or redis", c.Store.Driver))
	}
	if err := c.Engine.Orchestrator.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine.orchestrator: %w", err))
	}
	if err := c.Engine.Promotion.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine.promotion: %w", err))
	}
	if err := c.Engine.Analysis.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine.analysis: %w", err))
	}
	if c.Engine.RecentSessionsCap < 1 {
		errs = append(errs, fmt.Errorf("engine.recent_sessions_cap must be at least 1"))
	}
	if c.Engine.Analysis.Classifier == analysis.ClassifierLLM {
		if err := c.LLM.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Server.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
