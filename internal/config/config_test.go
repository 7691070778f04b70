// file: internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_HasSaneDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "hostbridge", cfg.Server.Name, "Default server name.")
	assert.Equal(t, 5, cfg.Backend.ReconnectDelaySeconds, "Default reconnect backoff is 5 seconds.")
	assert.Equal(t, 30, cfg.Shell.DefaultTimeoutSeconds, "Default shell timeout.")
	assert.Equal(t, "vscode", cfg.Editor.Name, "Default editor.")
	assert.NoError(t, cfg.Validate(), "Defaults should validate.")
}

func TestLoadFromFile_MergesYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hostbridge.yaml")
	content := `
server:
  name: test-bridge
  http_port: 9090
backend:
  base_url: ws://backend:8000
  reconnect_delay_seconds: 2
workspace:
  root: ` + dir + `
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600), "Writing test config should succeed.")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err, "LoadFromFile should succeed on valid YAML.")

	assert.Equal(t, "test-bridge", cfg.Server.Name, "File values should override defaults.")
	assert.Equal(t, 9090, cfg.Server.HTTPPort, "File values should override defaults.")
	assert.Equal(t, "ws://backend:8000", cfg.Backend.BaseURL, "File values should override defaults.")
	assert.Equal(t, 2, cfg.Backend.ReconnectDelaySeconds, "File values should override defaults.")
	assert.Equal(t, dir, cfg.Workspace.Root, "Workspace root should come from the file.")
	assert.Equal(t, 30, cfg.Shell.DefaultTimeoutSeconds, "Unset sections keep defaults.")
}

func TestLoadFromFile_Fails_WhenFileIsMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "Missing config files should be an error.")
}

func TestApplyEnvironmentOverrides_TakePrecedence(t *testing.T) {
	t.Setenv("HOSTBRIDGE_BACKEND_URL", "wss://env-backend")
	t.Setenv("HOSTBRIDGE_CLIENT_ID", "env-client")
	t.Setenv("HOSTBRIDGE_HTTP_PORT", "7070")

	cfg := DefaultConfig()

	assert.Equal(t, "wss://env-backend", cfg.Backend.BaseURL, "Environment should override the backend URL.")
	assert.Equal(t, "env-client", cfg.Backend.ClientID, "Environment should override the client id.")
	assert.Equal(t, 7070, cfg.Server.HTTPPort, "Environment should override the HTTP port.")
}

func TestApplyEnvironmentOverrides_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("HOSTBRIDGE_HTTP_PORT", "not-a-port")
	t.Setenv("HOSTBRIDGE_RECONNECT_DELAY_SECONDS", "-3")

	cfg := DefaultConfig()

	assert.Equal(t, 0, cfg.Server.HTTPPort, "Invalid port overrides are ignored.")
	assert.Equal(t, 5, cfg.Backend.ReconnectDelaySeconds, "Invalid delay overrides are ignored.")
}

func TestValidate_Fails_OnBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty backend URL", mutate: func(c *Config) { c.Backend.BaseURL = "" }},
		{name: "zero reconnect delay", mutate: func(c *Config) { c.Backend.ReconnectDelaySeconds = 0 }},
		{name: "relative workspace root", mutate: func(c *Config) { c.Workspace.Root = "relative/path" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate(), "Validate should reject this configuration.")
		})
	}
}
