// Package config loads service configuration from defaults, an optional YAML file,
// an optional .env file and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/csmather/better-recs/internal/validation"
)

const (
	ConfigPathEnvVar  = "CONFIG_PATH"
	DefaultConfigPath = "config.yaml"
	DefaultDotEnvPath = ".env"

	CacheDriverNone   = "none"
	CacheDriverSQLite = "sqlite"
	CacheDriverRedis  = "redis"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Spotify   SpotifyConfig   `koanf:"spotify"`
	LastFM    LastFMConfig    `koanf:"lastfm"`
	Recommend RecommendConfig `koanf:"recommend"`
	Cache     CacheConfig     `koanf:"cache"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Port               int           `koanf:"port" validate:"min=1,max=65535"`
	ReadHeaderTimeout  time.Duration `koanf:"read_header_timeout" validate:"gt=0s"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout" validate:"gt=0s"`
	RateLimitPerMinute int           `koanf:"rate_limit_per_minute" validate:"min=0"`
	CORSOrigins        []string      `koanf:"cors_origins"`
}

type SpotifyConfig struct {
	ClientID     string        `koanf:"client_id" validate:"required"`
	ClientSecret string        `koanf:"client_secret" validate:"required"`
	APIURL       string        `koanf:"api_url" validate:"required,url"`
	TokenURL     string        `koanf:"token_url" validate:"required,url"`
	MaxRetries   int           `koanf:"max_retries" validate:"min=1,max=10"`
	RetryBackoff time.Duration `koanf:"retry_backoff" validate:"gt=0s"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0s"`
}

type LastFMConfig struct {
	APIKey            string        `koanf:"api_key" validate:"required"`
	APIURL            string        `koanf:"api_url" validate:"required,url"`
	SimilarLimit      int           `koanf:"similar_limit" validate:"min=1,max=1000"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	BreakerFailures   uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerTimeout    time.Duration `koanf:"breaker_timeout" validate:"gt=0s"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0s"`
}

type RecommendConfig struct {
	Concurrency   int           `koanf:"concurrency" validate:"min=1,max=64"`
	LookupTimeout time.Duration `koanf:"lookup_timeout" validate:"gt=0s"`
}

type CacheConfig struct {
	Driver        string        `koanf:"driver" validate:"oneof=none sqlite redis"`
	TTL           time.Duration `koanf:"ttl" validate:"min=0s"`
	SQLitePath    string        `koanf:"sqlite_path" validate:"required_if=Driver sqlite"`
	RedisAddr     string        `koanf:"redis_addr" validate:"required_if=Driver redis"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db" validate:"min=0"`
	Workers       int           `koanf:"workers" validate:"min=1,max=32"`
	QueueSize     int           `koanf:"queue_size" validate:"min=1"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			ReadHeaderTimeout:  15 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			RateLimitPerMinute: 120,
			CORSOrigins:        []string{"*"},
		},
		Spotify: SpotifyConfig{
			APIURL:       "https://api.spotify.com/v1",
			TokenURL:     "https://accounts.spotify.com/api/token",
			MaxRetries:   3,
			RetryBackoff: 500 * time.Millisecond,
			Timeout:      15 * time.Second,
		},
		LastFM: LastFMConfig{
			APIURL:            "https://ws.audioscrobbler.com/2.0/",
			SimilarLimit:      50,
			RequestsPerSecond: 5,
			BreakerFailures:   5,
			BreakerTimeout:    30 * time.Second,
			Timeout:           10 * time.Second,
		},
		Recommend: RecommendConfig{
			Concurrency:   8,
			LookupTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Driver:     CacheDriverNone,
			TTL:        24 * time.Hour,
			SQLitePath: "better-recs.db",
			RedisAddr:  "localhost:6379",
			Workers:    2,
			QueueSize:  256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration and validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional YAML file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: .env feeds the process environment without overriding it
	if _, err := os.Stat(DefaultDotEnvPath); err == nil {
		if err := godotenv.Load(DefaultDotEnvPath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", DefaultDotEnvPath, err)
		}
	}

	// Layer 4: environment
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks every field against its validate tag.
func (c *Config) Validate() error {
	c.Cache.Driver = strings.ToLower(strings.TrimSpace(c.Cache.Driver))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return validation.Struct(c)
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"port":                       "server.port",
	"read_header_timeout":        "server.read_header_timeout",
	"shutdown_timeout":           "server.shutdown_timeout",
	"rate_limit_per_minute":      "server.rate_limit_per_minute",
	"cors_origins":               "server.cors_origins",
	"spotify_client_id":          "spotify.client_id",
	"spotify_client_secret":      "spotify.client_secret",
	"spotify_api_url":            "spotify.api_url",
	"spotify_token_url":          "spotify.token_url",
	"spotify_max_retries":        "spotify.max_retries",
	"spotify_retry_backoff":      "spotify.retry_backoff",
	"spotify_timeout":            "spotify.timeout",
	"lastfm_api_key":             "lastfm.api_key",
	"lastfm_api_url":             "lastfm.api_url",
	"lastfm_similar_limit":       "lastfm.similar_limit",
	"lastfm_requests_per_second": "lastfm.requests_per_second",
	"lastfm_breaker_failures":    "lastfm.breaker_failures",
	"lastfm_breaker_timeout":     "lastfm.breaker_timeout",
	"lastfm_timeout":             "lastfm.timeout",
	"recommend_concurrency":      "recommend.concurrency",
	"recommend_lookup_timeout":   "recommend.lookup_timeout",
	"cache_driver":               "cache.driver",
	"cache_ttl":                  "cache.ttl",
	"cache_sqlite_path":          "cache.sqlite_path",
	"redis_addr":                 "cache.redis_addr",
	"redis_password":             "cache.redis_password",
	"redis_db":                   "cache.redis_db",
	"cache_workers":              "cache.workers",
	"cache_queue_size":           "cache.queue_size",
	"log_level":                  "logging.level",
	"log_format":                 "logging.format",
}

// envTransformFunc maps known environment variable names to config paths and drops
// everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
