// Package config handles loading, parsing, and validating application configuration.
// It defines the structure for configuration settings, provides default values,
// loads settings from YAML files, and applies overrides from environment variables.
// file: internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/hostbridge/hostbridge/internal/logging"
)

// ServerConfig contains settings for the local protocol surface.
type ServerConfig struct {
	// Name is the human-readable server name reported during the initialize handshake.
	Name string `yaml:"name"`
	// Version is the server version reported during the initialize handshake.
	Version string `yaml:"version"`
	// HTTPPort is the port for the local POST-only /rpc gate. 0 disables the gate.
	HTTPPort int `yaml:"http_port"`
	// LogLevel selects the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// BackendConfig contains settings for the outbound backend connection.
type BackendConfig struct {
	// BaseURL is the backend hub base URL. The client identifier is appended
	// to its path as /ws/<id>. ws://, wss://, http://, and https:// are accepted.
	BaseURL string `yaml:"base_url"`
	// ClientID identifies this host to the backend. Empty means a persisted
	// identity is generated on first run.
	ClientID string `yaml:"client_id"`
	// ReconnectDelaySeconds is the fixed backoff between reconnect attempts.
	ReconnectDelaySeconds int `yaml:"reconnect_delay_seconds"`
	// HandshakeTimeoutSeconds bounds a single dial attempt.
	HandshakeTimeoutSeconds int `yaml:"handshake_timeout_seconds"`
}

// WorkspaceConfig contains settings for workspace-scoped filesystem operations.
type WorkspaceConfig struct {
	// Root is the trusted base directory for all workspace-scoped operations.
	// An empty root makes every workspace-scoped call fail its precondition.
	Root string `yaml:"root"`
}

// ShellConfig contains settings for the shell execution tool.
type ShellConfig struct {
	// DefaultTimeoutSeconds is used when a call supplies no timeout.
	DefaultTimeoutSeconds int `yaml:"default_timeout_seconds"`
}

// TypingConfig contains settings for the typed-insertion tool.
type TypingConfig struct {
	// DefaultDelayMs is the per-character delay when a call supplies none.
	DefaultDelayMs int `yaml:"default_delay_ms"`
}

// EditorConfig selects the editing surface launched for open requests.
type EditorConfig struct {
	// Name is one of vscode, sublime, atom, vim, pycharm.
	Name string `yaml:"name"`
}

// Config is the root configuration structure for hostbridge.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Shell     ShellConfig     `yaml:"shell"`
	Typing    TypingConfig    `yaml:"typing"`
	Editor    EditorConfig    `yaml:"editor"`
}

// DefaultConfig returns a configuration populated with default values, with
// environment-variable overrides already applied.
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Name:     "hostbridge",
			Version:  "dev",
			HTTPPort: 0,
			LogLevel: "info",
		},
		Backend: BackendConfig{
			BaseURL:                 "ws://localhost:8000",
			ReconnectDelaySeconds:   5,
			HandshakeTimeoutSeconds: 10,
		},
		Shell: ShellConfig{
			DefaultTimeoutSeconds: 30,
		},
		Typing: TypingConfig{
			DefaultDelayMs: 20,
		},
		Editor: EditorConfig{
			Name: "vscode",
		},
	}
	applyEnvironmentOverrides(cfg, logging.GetLogger("config"))
	return cfg
}

// LoadFromFile loads configuration from the specified YAML file path. It starts
// with defaults, merges values from the file, then applies environment
// overrides. Supports '~' expansion in the path.
func LoadFromFile(path string) (*Config, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path comes from a command-line flag, considered trusted input.
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", expanded)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file YAML: %s", expanded)
	}

	applyEnvironmentOverrides(cfg, logging.GetLogger("config"))
	return cfg, nil
}

// ReconnectDelay returns the configured backoff as a duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Backend.ReconnectDelaySeconds) * time.Second
}

// HandshakeTimeout returns the configured dial bound as a duration.
func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Backend.HandshakeTimeoutSeconds) * time.Second
}

// ShellTimeout returns the default shell timeout as a duration.
func (c *Config) ShellTimeout() time.Duration {
	return time.Duration(c.Shell.DefaultTimeoutSeconds) * time.Second
}

// TypingDelay returns the default per-character typing delay as a duration.
func (c *Config) TypingDelay() time.Duration {
	return time.Duration(c.Typing.DefaultDelayMs) * time.Millisecond
}

// ExpandHome expands a leading '~' in path to the user's home directory.
func ExpandHome(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory to expand path")
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// applyEnvironmentOverrides applies configuration overrides from environment
// variables. Environment variables take precedence over file values and defaults.
func applyEnvironmentOverrides(cfg *Config, logger logging.Logger) {
	if baseURL := os.Getenv("HOSTBRIDGE_BACKEND_URL"); baseURL != "" {
		logger.Debug("Overriding backend base URL from environment.", "envVar", "HOSTBRIDGE_BACKEND_URL")
		cfg.Backend.BaseURL = baseURL
	}
	if clientID := os.Getenv("HOSTBRIDGE_CLIENT_ID"); clientID != "" {
		cfg.Backend.ClientID = clientID
	}
	if root := os.Getenv("HOSTBRIDGE_WORKSPACE_ROOT"); root != "" {
		if expanded, err := ExpandHome(root); err == nil {
			cfg.Workspace.Root = expanded
		} else {
			logger.Warn("Could not expand '~' in HOSTBRIDGE_WORKSPACE_ROOT.", "error", err)
			cfg.Workspace.Root = root
		}
	}
	if portStr := os.Getenv("HOSTBRIDGE_HTTP_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port >= 0 && port < 65536 {
			cfg.Server.HTTPPort = port
		} else {
			logger.Warn("Invalid HOSTBRIDGE_HTTP_PORT environment variable ignored.", "value", portStr)
		}
	}
	if level := os.Getenv("HOSTBRIDGE_LOG_LEVEL"); level != "" {
		cfg.Server.LogLevel = level
	}
	if delayStr := os.Getenv("HOSTBRIDGE_RECONNECT_DELAY_SECONDS"); delayStr != "" {
		if delay, err := strconv.Atoi(delayStr); err == nil && delay > 0 {
			cfg.Backend.ReconnectDelaySeconds = delay
		} else {
			logger.Warn("Invalid HOSTBRIDGE_RECONNECT_DELAY_SECONDS environment variable ignored.", "value", delayStr)
		}
	}
}

// Validate checks that the configuration is usable for serving.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base URL must not be empty")
	}
	if c.Backend.ReconnectDelaySeconds <= 0 {
		return errors.New("reconnect delay must be positive")
	}
	if c.Workspace.Root != "" && !filepath.IsAbs(c.Workspace.Root) {
		return errors.Newf("workspace root must be an absolute path: %s", c.Workspace.Root)
	}
	return nil
}
