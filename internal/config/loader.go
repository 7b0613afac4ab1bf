// Package config loads CLI configuration (global YAML file plus environment
// overrides) and persists mutable session state between runs.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load merges defaults, the global config file and environment variables.
// A .env file in the working directory is honored for the remote credentials.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Best effort; most runs have no .env
	_ = godotenv.Load()

	if path := GlobalConfigPath(); path != "" {
		if err := loadFile(path, cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

// applyEnv layers environment variables over file values. The SUPABASE_*
// names match what the hosted backend's dashboard hands out; UNITES_* names
// win when both are set.
func applyEnv(cfg *Config) {
	overrides := []struct {
		name   string
		target *string
	}{
		{"SUPABASE_URL", &cfg.Remote.URL},
		{"SUPABASE_ANON_KEY", &cfg.Remote.APIKey},
		{"UNITES_REMOTE_URL", &cfg.Remote.URL},
		{"UNITES_API_KEY", &cfg.Remote.APIKey},
		{"UNITES_USER_ID", &cfg.Remote.UserID},
		{"UNITES_DB_PATH", &cfg.Local.Path},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.name); v != "" {
			*o.target = v
		}
	}
	if os.Getenv("UNITES_LOCAL") != "" {
		cfg.Local.Force = true
	}
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".unites", "config.yaml")
}

// GlobalDir returns the directory holding config, state and the local
// database.
func GlobalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".unites")
}
