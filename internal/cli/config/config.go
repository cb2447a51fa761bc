package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents a shellkit project's runtime configuration: its VFS
// mounts, state store, remote tool servers, and the remote-serve defaults.
type Config struct {
	ProjectName string         `mapstructure:"project_name"`
	Mounts      []MountConfig  `mapstructure:"mounts"`
	State       StateConfig    `mapstructure:"state"`
	Remotes     []RemoteConfig `mapstructure:"remotes"`
	Server      ServerConfig   `mapstructure:"server"`
}

// MountConfig describes one entry in the VFS router's mount table.
type MountConfig struct {
	Prefix   string `mapstructure:"prefix"`
	Backend  string `mapstructure:"backend"` // "memory", "local", "cache", "resource"
	Root     string `mapstructure:"root"`
	ReadOnly bool   `mapstructure:"read_only"`
	// Server names the registered remote server a "resource" mount
	// proxies to; unused by the other backend kinds.
	Server string `mapstructure:"server"`
}

// StateConfig selects the state store backend and its connection string.
// The DSN scheme ("sqlite://" or "postgres://") alone determines the
// driver; the Driver field is not consulted when the store is opened.
type StateConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// RemoteConfig names one remote tool server the registry can dial for
// dotted `server.tool` dispatch.
type RemoteConfig struct {
	Name      string `mapstructure:"name"`
	Transport string `mapstructure:"transport"` // only "stdio" is dialed; other values are skipped with a warning
	Address   string `mapstructure:"address"`
}

// ServerConfig holds defaults for `shellkit serve`. AuthSecret, when set,
// requires every HTTP/WebSocket RPC request to carry a JWT signed with it;
// an empty secret leaves the HTTP transport unauthenticated, matching
// stdio serve mode's trust-the-parent-process model.
type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	Host       string `mapstructure:"host"`
	AuthSecret string `mapstructure:"auth_secret"`
}

// GetAuthSecret returns the HTTP serve mode's JWT signing secret from the
// SHELLKIT_AUTH_SECRET environment variable if set, otherwise from the
// config file.
func GetAuthSecret() string {
	if secret := os.Getenv("SHELLKIT_AUTH_SECRET"); secret != "" {
		return secret
	}
	cfg, err := Load()
	if err != nil {
		return ""
	}
	return cfg.Server.AuthSecret
}

// Load loads the configuration from shellkit.yml or shellkit.yaml in the
// current directory, falling back to defaults when no config file exists.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("state.driver", "sqlite")
	v.SetDefault("state.dsn", "shellkit.db")
	v.SetDefault("server.port", 7777)
	v.SetDefault("server.host", "localhost")

	v.SetConfigName("shellkit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetStateDSN returns the state store DSN from the SHELLKIT_STATE_DSN
// environment variable if set, otherwise from the config file.
func GetStateDSN() string {
	if dsn := os.Getenv("SHELLKIT_STATE_DSN"); dsn != "" {
		return dsn
	}

	cfg, err := Load()
	if err != nil {
		return ""
	}
	return cfg.State.DSN
}

// InProject checks if the current directory holds a shellkit project
// config.
func InProject() bool {
	if _, err := os.Stat("shellkit.yml"); err == nil {
		return true
	}
	if _, err := os.Stat("shellkit.yaml"); err == nil {
		return true
	}
	return false
}

// GetProjectRoot walks up from the current directory looking for a
// shellkit.yml/shellkit.yaml config file.
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "shellkit.yml")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "shellkit.yaml")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a shellkit project (no shellkit.yml found)")
		}
		dir = parent
	}
}

// validateConfig validates the configuration.
func validateConfig(cfg *Config) error {
	for _, m := range cfg.Mounts {
		if !strings.HasPrefix(m.Prefix, "/") {
			return fmt.Errorf("mount prefix must start with '/', got: %s", m.Prefix)
		}
		switch m.Backend {
		case "memory", "local", "cache", "resource", "":
		default:
			return fmt.Errorf("unknown mount backend %q for prefix %s", m.Backend, m.Prefix)
		}
	}
	return nil
}
