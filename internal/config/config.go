// Package config loads the lightslider YAML configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/lightslider/internal/card"
)

// Config represents the application configuration
type Config struct {
	Hue             HueConfig              `yaml:"hue"`
	Database        DatabaseConfig         `yaml:"database"`
	Log             LogConfig              `yaml:"log"`
	Ledger          LedgerConfig           `yaml:"ledger"`
	Server          ServerConfig           `yaml:"server"`
	Session         SessionConfig          `yaml:"session"`
	Dispatch        DispatchConfig         `yaml:"dispatch"`
	EventBus        EventBusConfig         `yaml:"eventbus"`
	Script          string                 `yaml:"script"` // empty = no script
	Discovery       DiscoveryConfig        `yaml:"discovery"`
	Cards           map[string]card.Config `yaml:"cards"`
	ShutdownTimeout Duration               `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Bridge  string   `yaml:"bridge"`
	Token   string   `yaml:"token"`
	Timeout Duration `yaml:"timeout"` // per command sent to the bridge

	// Event stream reconnect settings
	EventStream     *bool    `yaml:"event_stream"`      // follow bridge changes (default: true)
	MinRetryBackoff Duration `yaml:"min_retry_backoff"` // Minimum backoff between reconnects (default: 1s)
	MaxRetryBackoff Duration `yaml:"max_retry_backoff"` // Maximum backoff between reconnects (default: 2m)
	RetryMultiplier float64  `yaml:"retry_multiplier"`  // Backoff multiplier (default: 2.0)
	MaxReconnects   int      `yaml:"max_reconnects"`    // Max reconnect attempts, 0 = infinite (default: 0)
}

// IsEventStreamEnabled returns whether the bridge event stream is followed
func (c *HueConfig) IsEventStreamEnabled() bool {
	return c.EventStream == nil || *c.EventStream
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// LedgerConfig contains command ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// ServerConfig contains the HTTP listener for sessions and health checks
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionConfig tunes the per-connection engine
type SessionConfig struct {
	OverlayDelay    Duration `yaml:"overlay_delay"`    // touch overlay re-arm delay (default: 2.5s)
	Threshold       float64  `yaml:"threshold"`        // drag/scroll classification distance in px (default: 10)
	ScrollCooldown  Duration `yaml:"scroll_cooldown"`  // scroll stays suspended after a drag (default: 250ms)
	RefreshInterval Duration `yaml:"refresh_interval"` // periodic state refresh (default: 30s)
	LabelHold       Duration `yaml:"label_hold"`       // brightness label hold after a live change (default: 250ms)
	WriteTimeout    Duration `yaml:"write_timeout"`    // websocket write deadline (default: 5s)
}

// DispatchConfig contains outbound command settings
type DispatchConfig struct {
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
	Burst        int     `yaml:"burst"`
	QueueSize    int     `yaml:"queue_size"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// DiscoveryConfig contains mDNS advertisement settings
type DiscoveryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Name      string `yaml:"name"`
	Interface string `yaml:"interface"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes configuration from YAML, expanding environment variables and
// applying defaults
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./lightslider.sqlite"
	}

	// Hue defaults
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(10 * time.Second)
	}
	if cfg.Hue.MinRetryBackoff == 0 {
		cfg.Hue.MinRetryBackoff = Duration(1 * time.Second)
	}
	if cfg.Hue.MaxRetryBackoff == 0 {
		cfg.Hue.MaxRetryBackoff = Duration(2 * time.Minute)
	}
	if cfg.Hue.RetryMultiplier == 0 {
		cfg.Hue.RetryMultiplier = 2.0
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8765
	}

	// Session defaults
	if cfg.Session.OverlayDelay == 0 {
		cfg.Session.OverlayDelay = Duration(2500 * time.Millisecond)
	}
	if cfg.Session.Threshold == 0 {
		cfg.Session.Threshold = 10
	}
	if cfg.Session.ScrollCooldown == 0 {
		cfg.Session.ScrollCooldown = Duration(250 * time.Millisecond)
	}
	if cfg.Session.RefreshInterval == 0 {
		cfg.Session.RefreshInterval = Duration(30 * time.Second)
	}
	if cfg.Session.LabelHold == 0 {
		cfg.Session.LabelHold = Duration(250 * time.Millisecond)
	}
	if cfg.Session.WriteTimeout == 0 {
		cfg.Session.WriteTimeout = Duration(5 * time.Second)
	}

	// Dispatch defaults
	if cfg.Dispatch.RateLimitRPS == 0 {
		cfg.Dispatch.RateLimitRPS = 10.0 // 10 requests per second
	}
	if cfg.Dispatch.Burst == 0 {
		cfg.Dispatch.Burst = 1
	}
	if cfg.Dispatch.QueueSize == 0 {
		cfg.Dispatch.QueueSize = 64
	}

	// Event bus defaults
	if cfg.EventBus.Workers <= 0 {
		cfg.EventBus.Workers = 4
	}
	if cfg.EventBus.QueueSize <= 0 {
		cfg.EventBus.QueueSize = 100
	}

	if cfg.Discovery.Name == "" {
		cfg.Discovery.Name = "lightslider"
	}

	// Card entries default to showing every control
	for name, c := range cfg.Cards {
		if !c.ShowBrightnessControl && !c.ShowColorTempControl && !c.ShowColorControl && !c.ShowAllControls {
			c.ShowBrightnessControl = true
			c.ShowColorTempControl = true
			c.ShowColorControl = true
		}
		cfg.Cards[name] = c
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate checks settings that have no usable default
func (c *Config) Validate() error {
	if c.Hue.Bridge == "" {
		return fmt.Errorf("hue.bridge is required")
	}
	if c.Hue.Token == "" {
		return fmt.Errorf("hue.token is required")
	}
	for name, cc := range c.Cards {
		if cc.Entity == "" {
			return fmt.Errorf("cards.%s: entity is required", name)
		}
		if n := len(cc.DefaultRGB); n != 0 && n != 3 {
			return fmt.Errorf("cards.%s: default_rgb needs 3 components, got %d", name, n)
		}
	}
	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
