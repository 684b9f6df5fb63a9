package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the server and CLI configuration.
type Config struct {
	DataPath   string      `mapstructure:"data_path"`
	Timezone   string      `mapstructure:"timezone"`
	ListenAddr string      `mapstructure:"listen_addr"`
	Env        string      `mapstructure:"env"`
	LogLevel   string      `mapstructure:"log_level"`
	ChunkRows  int         `mapstructure:"chunk_rows"`
	Workers    int         `mapstructure:"workers"`
	Cache      CacheConfig `mapstructure:"cache"`
}

type CacheConfig struct {
	Backend       string `mapstructure:"backend"` // memory|redis|none
	TTLSec        int    `mapstructure:"ttl_sec"`
	Size          int    `mapstructure:"size"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

// Location resolves the pinned timezone used to parse timestamps.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (MHDASH_*) > config file > defaults. Flags are applied by
// the caller on top.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MHDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_path", "mental_health_dataset.csv")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("env", "production")
	v.SetDefault("log_level", "info")
	v.SetDefault("chunk_rows", 8192)
	v.SetDefault("workers", 0)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl_sec", 300)
	v.SetDefault("cache.size", 1024)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("mhdash")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return &c, nil
}
