// Package config handles global configuration.
//
// Settings live in $XDG_CONFIG_HOME/bibfold/config.yml. Environment
// variables override file values, and API keys may also come from a
// .env file loaded by the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigDirName is the directory name under XDG_CONFIG_HOME.
	ConfigDirName = "bibfold"
	// ConfigFileName is the config file name.
	ConfigFileName = "config.yml"
	// DBFileName is the default database file name under XDG_DATA_HOME.
	DBFileName = "library.db"
)

// ScholarConfig tunes the canonical-text client.
type ScholarConfig struct {
	MinIntervalSeconds int    `yaml:"min_interval_seconds,omitempty"`
	JitterSeconds      int    `yaml:"jitter_seconds,omitempty"`
	Proxy              string `yaml:"proxy,omitempty"`
}

// ServerConfig tunes the HTTP front end.
type ServerConfig struct {
	Addr      string  `yaml:"addr,omitempty"`
	AuthToken string  `yaml:"auth_token,omitempty"`
	RateLimit float64 `yaml:"rate_limit,omitempty"` // requests per second, 0 = unlimited
}

// Config represents configuration stored in ~/.config/bibfold/config.yml.
type Config struct {
	DatabasePath string        `yaml:"database_path,omitempty"`
	S2APIKey     string        `yaml:"s2_api_key,omitempty"`
	Workers      int           `yaml:"workers,omitempty"`
	Scholar      ScholarConfig `yaml:"scholar,omitempty"`
	Server       ServerConfig  `yaml:"server,omitempty"`
}

// configCache caches the loaded config.
var configCache *Config

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/bibfold/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDirName, ConfigFileName)
}

// DefaultDBPath returns the default database location.
// Respects XDG_DATA_HOME, defaults to ~/.local/share/bibfold/library.db.
func DefaultDBPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DBFileName
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, ConfigDirName, DBFileName)
}

// Load loads the configuration file, applies environment overrides, and
// fills defaults. Returns a usable config (not an error) if the file
// doesn't exist.
func Load() (*Config, error) {
	if configCache != nil {
		return configCache, nil
	}

	cfg := &Config{}
	path := Path()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDBPath()
	} else {
		cfg.DatabasePath = ExpandTilde(cfg.DatabasePath)
	}

	configCache = cfg
	return cfg, nil
}

// applyEnv overlays environment variables on file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("S2_API_KEY"); v != "" {
		c.S2APIKey = v
	}
	if v := os.Getenv("BIBFOLD_DB"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("BIBFOLD_AUTH_TOKEN"); v != "" {
		c.Server.AuthToken = v
	}
	if v := os.Getenv("BIBFOLD_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers = n
		}
	}
}

// ResetCache clears the cached config.
// Useful for testing.
func ResetCache() {
	configCache = nil
}

// GetS2APIKey returns the Semantic Scholar API key.
func GetS2APIKey() string {
	cfg, _ := Load()
	return cfg.S2APIKey
}

// GetDatabasePath returns the configured database path.
func GetDatabasePath() string {
	cfg, _ := Load()
	return cfg.DatabasePath
}

// EnsureDBDir creates the parent directory of the database path.
func EnsureDBDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// ExpandTilde expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandTilde(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
