// Package config loads the YAML configuration shared by the widgetry CLI and
// programs embedding the widget engine.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/widgetry/pkg/logging"
)

// Config is the root configuration document.
type Config struct {
	// Browser configures live Playwright sessions
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Wait configures widget wait operations
	Wait WaitConfig `yaml:"wait" json:"wait"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Version pins the application version used by version picks. Empty
	// means the driver is asked.
	Version string `yaml:"version" json:"version"`

	// VersionExpression is evaluated in live pages to read the version
	VersionExpression string `yaml:"version_expression" json:"version_expression"`
}

// BrowserConfig defines how live browser sessions are launched
type BrowserConfig struct {
	Engine   string         `yaml:"engine" json:"engine"`
	Headless bool           `yaml:"headless" json:"headless"`
	Viewport ViewportConfig `yaml:"viewport" json:"viewport"`
	Timeout  time.Duration  `yaml:"timeout" json:"timeout"`
	Install  bool           `yaml:"install" json:"install"`
}

// ViewportConfig is the initial page size
type ViewportConfig struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// WaitConfig defines widget wait behaviour
type WaitConfig struct {
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// Default returns a configuration suitable for most use cases
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Engine:   "chromium",
			Headless: true,
			Viewport: ViewportConfig{Width: 1280, Height: 720},
			Timeout:  30 * time.Second,
			Install:  true,
		},
		Wait: WaitConfig{
			Timeout:      10 * time.Second,
			PollInterval: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{Verbosity: "normal"},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Browser.Engine {
	case "", "chromium", "firefox", "webkit":
	default:
		return fmt.Errorf("invalid browser engine: %s (must be 'chromium', 'firefox' or 'webkit')", c.Browser.Engine)
	}

	if c.Browser.Viewport.Width < 0 || c.Browser.Viewport.Height < 0 {
		return fmt.Errorf("viewport dimensions cannot be negative")
	}
	if c.Browser.Timeout < 0 {
		return fmt.Errorf("browser timeout cannot be negative")
	}
	if c.Wait.Timeout < 0 {
		return fmt.Errorf("wait timeout cannot be negative")
	}
	if c.Wait.PollInterval < 0 {
		return fmt.Errorf("poll interval cannot be negative")
	}
	if c.Wait.Timeout > 0 && c.Wait.PollInterval > c.Wait.Timeout {
		return fmt.Errorf("poll interval %s exceeds wait timeout %s", c.Wait.PollInterval, c.Wait.Timeout)
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	if _, err := logging.ParseLevel(c.Logging.Verbosity); err != nil {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// Level returns the parsed logging level. Call Validate first.
func (c *Config) Level() logging.Level {
	level, err := logging.ParseLevel(c.Logging.Verbosity)
	if err != nil {
		return logging.LevelNormal
	}
	return level
}
