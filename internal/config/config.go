package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. QUIZ_REDIS_ADDR.
const EnvPrefix = "QUIZ"

type Config struct {
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		TTL      string `mapstructure:"ttl"` // session liveness marker TTL
	} `mapstructure:"redis"`
	Postgres struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"postgres"`
	Catalog struct {
		Dir string `mapstructure:"dir"`
		TTL string `mapstructure:"ttl"` // catalog cache TTL
	} `mapstructure:"catalog"`
	Quiz struct {
		Duration      string  `mapstructure:"duration"`
		PassThreshold float64 `mapstructure:"pass_threshold"`
	} `mapstructure:"quiz"`
	Log struct {
		Env   string `mapstructure:"env"`
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Load reads YAML config from path (optional), a .env file in the working
// directory (optional) and QUIZ_-prefixed environment variables, in
// increasing order of precedence.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("server.port", "8080")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "10m")
	v.SetDefault("catalog.ttl", "10m")
	v.SetDefault("quiz.duration", "10m")
	v.SetDefault("quiz.pass_threshold", 51)
	v.SetDefault("log.env", "development")
	v.SetDefault("log.level", "")

	// Defaults register every key, so AutomaticEnv can see nested ones.
	for _, key := range []string{"redis.addr", "redis.password", "postgres.url", "catalog.dir"} {
		v.SetDefault(key, "")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// ParseDuration parses a duration string or returns the fallback if empty or invalid.
func ParseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
