// Package config loads client configuration from yaml with environment
// overrides, and owns the runtime-mutable registry endpoint.
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerURL         string
	RefreshInterval   time.Duration
	HTTPTimeout       time.Duration
	StoragePath       string
	StoragePassphrase string
}

func DefaultConfig() Config {
	return Config{
		ServerURL:       "http://127.0.0.1:3536",
		RefreshInterval: 5 * time.Second,
		HTTPTimeout:     10 * time.Second,
	}
}

type fileConfig struct {
	Client clientFileConfig `yaml:"client"`
}

type clientFileConfig struct {
	ServerURL         string        `yaml:"serverUrl"`
	RefreshInterval   time.Duration `yaml:"refreshInterval"`
	HTTPTimeout       time.Duration `yaml:"httpTimeout"`
	StoragePath       string        `yaml:"storagePath"`
	StoragePassphrase string        `yaml:"storagePassphrase"`
}

// LoadFromPath reads configPath when given, otherwise tries the default
// candidates. Unreadable or unparsable files fall through to defaults;
// env overrides always apply last.
func LoadFromPath(configPath string) Config {
	cfg := DefaultConfig()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates, "configs/client.yaml")
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		merged := cfg
		Merge(&merged, parsed.Client)
		ApplyEnvOverrides(&merged)
		return merged
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

func Merge(dst *Config, src clientFileConfig) {
	if src.ServerURL != "" {
		dst.ServerURL = src.ServerURL
	}
	if src.RefreshInterval > 0 {
		dst.RefreshInterval = src.RefreshInterval
	}
	if src.HTTPTimeout > 0 {
		dst.HTTPTimeout = src.HTTPTimeout
	}
	if src.StoragePath != "" {
		dst.StoragePath = src.StoragePath
	}
	if src.StoragePassphrase != "" {
		dst.StoragePassphrase = src.StoragePassphrase
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("MATCHLOBBY_SERVER_URL")); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MATCHLOBBY_REFRESH_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RefreshInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("MATCHLOBBY_STORAGE_PATH")); v != "" {
		cfg.StoragePath = v
	}
	if v := os.Getenv("MATCHLOBBY_STORAGE_PASSPHRASE"); v != "" {
		cfg.StoragePassphrase = v
	}
}
