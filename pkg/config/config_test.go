package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/widgetry/pkg/logging"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "chromium", cfg.Browser.Engine)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 10*time.Second, cfg.Wait.Timeout)
	assert.Equal(t, logging.LevelNormal, cfg.Level())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widgetry.yaml")
	data := `
browser:
  engine: firefox
  headless: false
  viewport:
    width: 800
wait:
  timeout: 2s
  poll_interval: 50ms
logging:
  verbosity: debug
version: "2.1.0"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "firefox", cfg.Browser.Engine)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 800, cfg.Browser.Viewport.Width)
	assert.Equal(t, 720, cfg.Browser.Viewport.Height, "unset keys keep defaults")
	assert.Equal(t, 30*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Wait.Timeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Wait.PollInterval)
	assert.Equal(t, logging.LevelDebug, cfg.Level())
	assert.Equal(t, "2.1.0", cfg.Version)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Parse([]byte("browser: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown engine", func(c *Config) { c.Browser.Engine = "lynx" }, "invalid browser engine"},
		{"negative viewport", func(c *Config) { c.Browser.Viewport.Width = -1 }, "viewport"},
		{"negative browser timeout", func(c *Config) { c.Browser.Timeout = -time.Second }, "browser timeout"},
		{"negative wait timeout", func(c *Config) { c.Wait.Timeout = -time.Second }, "wait timeout"},
		{"negative poll", func(c *Config) { c.Wait.PollInterval = -time.Second }, "poll interval"},
		{"poll exceeds timeout", func(c *Config) { c.Wait.PollInterval = time.Minute }, "exceeds wait timeout"},
		{"bad verbosity", func(c *Config) { c.Logging.Verbosity = "loud" }, "invalid logging verbosity"},
		{"empty verbosity defaults", func(c *Config) { c.Logging.Verbosity = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "normal", cfg.Logging.Verbosity)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
