package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Server.Address() != "127.0.0.1:8080" {
		t.Errorf("default address = %q, want 127.0.0.1:8080", cfg.Server.Address())
	}
	if cfg.Cache.MaxWeightBytes != 64<<20 {
		t.Errorf("default cache weight = %d", cfg.Cache.MaxWeightBytes)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default log level = %q", cfg.Logging.Level)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	content := `
server:
  host: 0.0.0.0
  port: 9090
pools:
  art_root: /srv/art
  dat_root: /srv/dat
cache:
  inline_threshold_bytes: 1024
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Server.Address() != "0.0.0.0:9090" {
		t.Errorf("address = %q", cfg.Server.Address())
	}
	if cfg.Pools.ArtRoot != "/srv/art" || cfg.Pools.DatRoot != "/srv/dat" {
		t.Errorf("pools = %+v", cfg.Pools)
	}
	if cfg.Cache.InlineThresholdBytes != 1024 {
		t.Errorf("inline threshold = %d, want 1024", cfg.Cache.InlineThresholdBytes)
	}
	// Unset keys keep defaults.
	if cfg.Cache.MaxWeightBytes != 64<<20 {
		t.Errorf("max weight = %d, want default", cfg.Cache.MaxWeightBytes)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KSM_SERVER_PORT", "7070")
	t.Setenv("KSM_POOLS_ART_ROOT", "/env/art")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Pools.ArtRoot != "/env/art" {
		t.Errorf("art root = %q, want /env/art", cfg.Pools.ArtRoot)
	}
}

func TestLoad_LegacyEnv(t *testing.T) {
	t.Setenv("BIND_ADDRESS", "10.0.0.5:8181")
	t.Setenv("KSM_ART_PATH", "/legacy/art")
	t.Setenv("KSM_DAT_PATH", "/legacy/dat")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Server.Address() != "10.0.0.5:8181" {
		t.Errorf("address = %q, want 10.0.0.5:8181", cfg.Server.Address())
	}
	if cfg.Pools.ArtRoot != "/legacy/art" || cfg.Pools.DatRoot != "/legacy/dat" {
		t.Errorf("pools = %+v", cfg.Pools)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"missing art root", func(c *Config) { c.Pools.ArtRoot = "" }},
		{"missing dat root", func(c *Config) { c.Pools.DatRoot = "" }},
		{"zero cache weight", func(c *Config) { c.Cache.MaxWeightBytes = 0 }},
		{"zero inline threshold", func(c *Config) { c.Cache.InlineThresholdBytes = 0 }},
		{"inline above weight", func(c *Config) {
			c.Cache.MaxWeightBytes = 10
			c.Cache.InlineThresholdBytes = 20
		}},
		{"zero parsed entries", func(c *Config) { c.Cache.ParsedMaxEntries = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := defaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
