package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration. Values come from the YAML file,
// then OEE_ENGINE_* environment variables override individual fields.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Engine  EngineConfig  `yaml:"engine"`
	Cache   CacheConfig   `yaml:"cache"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metrics_address"`
	GracefulTimeout time.Duration `yaml:"graceful_timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type EngineConfig struct {
	AllocationTolerance     float64 `yaml:"allocation_tolerance"`
	DefaultVariationPercent float64 `yaml:"default_variation_percent"`
	ThresholdPreset         string  `yaml:"threshold_preset"`
	PresetsPath             string  `yaml:"presets_path"`
	WatchPresets            bool    `yaml:"watch_presets"`
}

type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":9090",
			GracefulTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: true},
		Engine: EngineConfig{
			AllocationTolerance:     0.01,
			DefaultVariationPercent: 10,
			ThresholdPreset:         "default",
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 1024,
		},
	}
}

// Load reads the YAML file at path, applies defaults for absent fields and
// environment overrides on top. An empty path yields defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Engine.AllocationTolerance < 0 || c.Engine.AllocationTolerance > 1 {
		return fmt.Errorf("engine.allocation_tolerance must be within [0,1], got %v", c.Engine.AllocationTolerance)
	}
	if c.Engine.DefaultVariationPercent <= 0 || c.Engine.DefaultVariationPercent >= 100 {
		return fmt.Errorf("engine.default_variation_percent must be within (0,100), got %v", c.Engine.DefaultVariationPercent)
	}
	if c.Cache.Enabled && c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive when cache is enabled")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString("OEE_ENGINE_SERVER_ADDRESS", &cfg.Server.Address)
	setString("OEE_ENGINE_METRICS_ADDRESS", &cfg.Server.MetricsAddress)
	setDuration("OEE_ENGINE_GRACEFUL_TIMEOUT", &cfg.Server.GracefulTimeout)
	setString("OEE_ENGINE_LOG_LEVEL", &cfg.Logging.Level)
	setBool("OEE_ENGINE_LOG_JSON", &cfg.Logging.JSON)
	setFloat("OEE_ENGINE_ALLOCATION_TOLERANCE", &cfg.Engine.AllocationTolerance)
	setFloat("OEE_ENGINE_VARIATION_PERCENT", &cfg.Engine.DefaultVariationPercent)
	setString("OEE_ENGINE_THRESHOLD_PRESET", &cfg.Engine.ThresholdPreset)
	setString("OEE_ENGINE_PRESETS_PATH", &cfg.Engine.PresetsPath)
	setBool("OEE_ENGINE_WATCH_PRESETS", &cfg.Engine.WatchPresets)
	setBool("OEE_ENGINE_CACHE_ENABLED", &cfg.Cache.Enabled)
	setDuration("OEE_ENGINE_CACHE_TTL", &cfg.Cache.TTL)
	setInt("OEE_ENGINE_CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}
