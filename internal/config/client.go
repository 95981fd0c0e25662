package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ClientConfig holds the test-taking client's settings, read from a
// YAML file with environment overrides for the credentials.
type ClientConfig struct {
	ServerURL      string `yaml:"server_url"`
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
	SnapshotPath   string `yaml:"snapshot_path"`
	ViolationLimit int    `yaml:"violation_limit"`
	LogLevel       string `yaml:"log_level"`
}

// LoadClient reads the client configuration file. A missing file yields
// defaults; a malformed file is an error.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{
		ServerURL:      "http://localhost:8080/api/v1",
		SnapshotPath:   defaultSnapshotPath(),
		ViolationLimit: 3,
		LogLevel:       "warn",
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyClientEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read client config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse client config: %w", err)
	}

	applyClientEnv(cfg)
	return cfg, nil
}

func applyClientEnv(cfg *ClientConfig) {
	if v := os.Getenv("PROCTOR_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("PROCTOR_EMAIL"); v != "" {
		cfg.Email = v
	}
	if v := os.Getenv("PROCTOR_PASSWORD"); v != "" {
		cfg.Password = v
	}
}

func defaultSnapshotPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "proctor-snapshots.db"
	}
	return filepath.Join(dir, "proctor", "snapshots.db")
}
