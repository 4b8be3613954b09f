// Package config loads the service configuration: defaults, then an
// optional YAML file, then environment variables with the KSM prefix.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ksmlabs/ksmserver/pkg/logging"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Pools   PoolsConfig    `yaml:"pools" envconfig:"POOLS"`
	Cache   CacheConfig    `yaml:"cache" envconfig:"CACHE"`
	Logging logging.Config `yaml:"logging" envconfig:"LOGGING"`
	CORS    CORSConfig     `yaml:"cors" envconfig:"CORS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host" envconfig:"HOST"`
	Port int    `yaml:"port" envconfig:"PORT"`
}

// Address returns the host:port bind address
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PoolsConfig names the two asset pool root directories
type PoolsConfig struct {
	ArtRoot string `yaml:"art_root" envconfig:"ART_ROOT"`
	DatRoot string `yaml:"dat_root" envconfig:"DAT_ROOT"`
}

// CacheConfig bounds the content cache and the parsed-file cache
type CacheConfig struct {
	// MaxWeightBytes is the content cache eviction budget.
	MaxWeightBytes int64 `yaml:"max_weight_bytes" envconfig:"MAX_WEIGHT_BYTES"`
	// InlineThresholdBytes is the largest asset cached with its body.
	InlineThresholdBytes int64 `yaml:"inline_threshold_bytes" envconfig:"INLINE_THRESHOLD_BYTES"`
	// ParsedMaxEntries caps the parsed .art/.dat result cache.
	ParsedMaxEntries int `yaml:"parsed_max_entries" envconfig:"PARSED_MAX_ENTRIES"`
}

// CORSConfig contains CORS middleware configuration
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	AllowedMethods []string `yaml:"allowed_methods" envconfig:"ALLOWED_METHODS"`
	AllowedHeaders []string `yaml:"allowed_headers" envconfig:"ALLOWED_HEADERS"`
	MaxAge         int      `yaml:"max_age" envconfig:"MAX_AGE"` // seconds
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Load from YAML file if provided (overrides defaults)
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, that's ok - we'll use defaults and env vars
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("KSM", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	// Legacy environment names from the original deployment keep working.
	applyLegacyEnv(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyLegacyEnv honors the pre-existing deployment variables BIND_ADDRESS,
// KSM_ART_PATH and KSM_DAT_PATH.
func applyLegacyEnv(cfg *Config) {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		if host, portStr, err := net.SplitHostPort(addr); err == nil {
			if port, err := strconv.Atoi(portStr); err == nil {
				cfg.Server.Host = host
				cfg.Server.Port = port
			}
		}
	}
	if p := os.Getenv("KSM_ART_PATH"); p != "" {
		cfg.Pools.ArtRoot = p
	}
	if p := os.Getenv("KSM_DAT_PATH"); p != "" {
		cfg.Pools.DatRoot = p
	}
}

// defaultConfig returns a Config with sensible default values
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Pools: PoolsConfig{
			ArtRoot: "testdata/art",
			DatRoot: "testdata/dat",
		},
		Cache: CacheConfig{
			MaxWeightBytes:       64 << 20,
			InlineThresholdBytes: 256 << 10,
			ParsedMaxEntries:     256,
		},
		Logging: logging.DefaultConfig(),
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
			AllowedHeaders: []string{"Range", "If-Modified-Since"},
			MaxAge:         43200,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Pools.ArtRoot == "" {
		return fmt.Errorf("pools.art_root is required")
	}
	if c.Pools.DatRoot == "" {
		return fmt.Errorf("pools.dat_root is required")
	}
	if c.Cache.MaxWeightBytes <= 0 {
		return fmt.Errorf("cache.max_weight_bytes must be positive")
	}
	if c.Cache.InlineThresholdBytes <= 0 {
		return fmt.Errorf("cache.inline_threshold_bytes must be positive")
	}
	if c.Cache.InlineThresholdBytes > c.Cache.MaxWeightBytes {
		return fmt.Errorf("cache.inline_threshold_bytes exceeds cache.max_weight_bytes")
	}
	if c.Cache.ParsedMaxEntries <= 0 {
		return fmt.Errorf("cache.parsed_max_entries must be positive")
	}
	return nil
}
