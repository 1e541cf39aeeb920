package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is read when --config is not given
	DefaultPath = "config.yaml"

	// TokenEnvVar supplies the access token when the file has none
	TokenEnvVar = "VTDASH_HASS_TOKEN"

	DefaultTerminalPort    = "/dev/ttyUSB0"
	DefaultBaud            = 9600
	DefaultMonitoringPort  = 8080
	DefaultName            = "Home Assistant Dashboard"
	DefaultRefreshInterval = time.Second
	DefaultTransport       = "rest"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// ValidationError reports one bad field
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalid) match
func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// Load reads, defaults and validates the configuration at path. Files ending
// in .toml are TOML; everything else is YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, strings.EqualFold(filepath.Ext(path), ".toml"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data and applies defaults without validating
func Parse(data []byte, isTOML bool) (*Config, error) {
	var cfg Config
	if isTOML {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills every unset field
func (c *Config) ApplyDefaults() {
	if c.HomeAssistant.Token == "" {
		c.HomeAssistant.Token = os.Getenv(TokenEnvVar)
	}
	if c.HomeAssistant.Transport == "" {
		c.HomeAssistant.Transport = DefaultTransport
	}
	if c.HomeAssistant.Monitoring.Port == 0 {
		c.HomeAssistant.Monitoring.Port = DefaultMonitoringPort
	}

	if c.Terminal.Port == "" {
		c.Terminal.Port = DefaultTerminalPort
	}
	if c.Terminal.Baud == 0 {
		c.Terminal.Baud = DefaultBaud
	}

	if c.General.Name == "" {
		c.General.Name = DefaultName
	}
	if c.General.RefreshInterval.Duration <= 0 {
		c.General.RefreshInterval.Duration = DefaultRefreshInterval
	}

	for i := range c.Layout {
		if c.Layout[i].Name == "" {
			c.Layout[i].Name = fmt.Sprintf("Tab %d", i+1)
		}
	}
}

// Validate reports the first field that makes the configuration unusable
func (c *Config) Validate() error {
	if c.HomeAssistant.URL == "" {
		return &ValidationError{Field: "homeassistant.url", Message: "is required"}
	}
	u, err := url.Parse(c.HomeAssistant.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{Field: "homeassistant.url", Message: fmt.Sprintf("%q is not an http(s) URL", c.HomeAssistant.URL)}
	}

	if c.HomeAssistant.Token == "" {
		return &ValidationError{Field: "homeassistant.token", Message: fmt.Sprintf("is required (or set %s)", TokenEnvVar)}
	}

	switch c.HomeAssistant.Transport {
	case "rest", "websocket":
	default:
		return &ValidationError{Field: "homeassistant.transport", Message: fmt.Sprintf("must be rest or websocket, got %q", c.HomeAssistant.Transport)}
	}

	if port := c.HomeAssistant.Monitoring.Port; port < 1 || port > 65535 {
		return &ValidationError{Field: "homeassistant.monitoring.port", Message: fmt.Sprintf("must be 1-65535, got %d", port)}
	}

	if c.Terminal.Baud <= 0 {
		return &ValidationError{Field: "terminal.baud", Message: fmt.Sprintf("must be positive, got %d", c.Terminal.Baud)}
	}

	return nil
}
