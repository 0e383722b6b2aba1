package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dyluth/cuebridge/internal/cue"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for the configuration file.
const DefaultPath = "cuebridge.yml"

// Defaults matching the production venue deployment.
const (
	DefaultOBSAddress        = "192.168.31.111:4445"
	DefaultOBSTimeout        = 2 * time.Second
	DefaultShowControlHost   = "192.168.101.112"
	DefaultShowControlPort   = 7400
	DefaultShowControlAddr   = "/d3/showcontrol/sectionhint"
	DefaultStatusHost        = "localhost"
	DefaultStatusPort        = 8081
	DefaultStatusPath        = "/obs_record/json"
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultMaxRetries        = 5
	DefaultRetryDelay        = 100 * time.Millisecond
	DefaultRedisInstance     = "default"
	DefaultPublishInterval   = 5 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// DefaultStartCues and DefaultEndCues are the venue's standard cue sets.
var (
	DefaultStartCues = []string{"0.0.9", "9.80.93", "9.91.0"}
	DefaultEndCues   = []string{"0.0.1", "9.80.93", "9.91.0"}
)

// Config represents the top-level cuebridge.yml configuration
type Config struct {
	Version     string            `yaml:"version"`
	OBS         OBSConfig         `yaml:"obs"`
	ShowControl ShowControlConfig `yaml:"show_control"`
	Status      StatusConfig      `yaml:"status"`
	Cues        CuesConfig        `yaml:"cues"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
	Redis       RedisConfig       `yaml:"redis"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// OBSConfig locates the recording device's remote-control endpoint
type OBSConfig struct {
	Address string        `yaml:"address"` // host:port
	Timeout time.Duration `yaml:"timeout"` // connect and per-message I/O bound
}

// ShowControlConfig is where section hints arrive
type ShowControlConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Address string `yaml:"address"` // OSC address pattern
}

// Addr returns host:port for the UDP listener.
func (s ShowControlConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StatusConfig controls the status HTTP server
type StatusConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// Addr returns host:port for the HTTP listener.
func (s StatusConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// CuesConfig lists the cues that start and stop recording
type CuesConfig struct {
	Start []string `yaml:"start"`
	End   []string `yaml:"end"`
}

// Set converts the configured cues into a cue.Set.
func (c CuesConfig) Set() cue.Set {
	return cue.NewSet(c.Start, c.End)
}

// ReconcileConfig bounds the heartbeat reconciliation loop
type ReconcileConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
}

// RedisConfig enables status board publication when URL is set
type RedisConfig struct {
	URL             string        `yaml:"url,omitempty"`
	Instance        string        `yaml:"instance,omitempty"`
	PublishInterval time.Duration `yaml:"publish_interval,omitempty"`
}

// Enabled reports whether a Redis URL was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// LoggingConfig controls the root logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json or logfmt
	File   string `yaml:"file,omitempty"`
}

// Default returns a validated configuration with the built-in defaults.
func Default() *Config {
	c := &Config{Version: "1.0"}
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("built-in configuration defaults are invalid: %v", err))
	}
	return c
}

// Validate performs strict validation on the configuration, filling in
// defaults for anything omitted.
func (c *Config) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	c.applyDefaults()

	if _, _, err := net.SplitHostPort(c.OBS.Address); err != nil {
		return fmt.Errorf("obs.address must be host:port, got %q", c.OBS.Address)
	}
	if c.OBS.Timeout < 0 {
		return fmt.Errorf("obs.timeout must be positive, got %s", c.OBS.Timeout)
	}

	if err := validatePort("show_control.port", c.ShowControl.Port); err != nil {
		return err
	}
	if !strings.HasPrefix(c.ShowControl.Address, "/") {
		return fmt.Errorf("show_control.address must start with '/', got %q", c.ShowControl.Address)
	}

	if err := validatePort("status.port", c.Status.Port); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Status.Path, "/") {
		return fmt.Errorf("status.path must be absolute, got %q", c.Status.Path)
	}
	if c.Status.Path == "/healthz" || c.Status.Path == "/metrics" {
		return fmt.Errorf("status.path %q is reserved", c.Status.Path)
	}

	for _, set := range []struct {
		name string
		cues []string
	}{{"cues.start", c.Cues.Start}, {"cues.end", c.Cues.End}} {
		for _, s := range set.cues {
			if !cue.IsCanonical(s) {
				return fmt.Errorf("%s: invalid cue %q (expected a decimal triple such as 9.80.93)", set.name, s)
			}
		}
	}

	if c.Reconcile.HeartbeatInterval < 0 {
		return fmt.Errorf("reconcile.heartbeat_interval must be positive, got %s", c.Reconcile.HeartbeatInterval)
	}
	if c.Reconcile.MaxRetries < 0 {
		return fmt.Errorf("reconcile.max_retries must be >= 1, got %d", c.Reconcile.MaxRetries)
	}
	if c.Reconcile.RetryDelay < 0 {
		return fmt.Errorf("reconcile.retry_delay must be positive, got %s", c.Reconcile.RetryDelay)
	}

	if c.Redis.Enabled() {
		if _, err := redis.ParseURL(c.Redis.URL); err != nil {
			return fmt.Errorf("redis.url is invalid: %w", err)
		}
	}
	if c.Redis.PublishInterval < 0 {
		return fmt.Errorf("redis.publish_interval must be positive, got %s", c.Redis.PublishInterval)
	}

	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %s (must be 'debug', 'info', 'warn' or 'error')", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("invalid logging.format: %s (must be 'text', 'json' or 'logfmt')", c.Logging.Format)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.OBS.Address == "" {
		c.OBS.Address = DefaultOBSAddress
	}
	if c.OBS.Timeout == 0 {
		c.OBS.Timeout = DefaultOBSTimeout
	}

	if c.ShowControl.Host == "" {
		c.ShowControl.Host = DefaultShowControlHost
	}
	if c.ShowControl.Port == 0 {
		c.ShowControl.Port = DefaultShowControlPort
	}
	if c.ShowControl.Address == "" {
		c.ShowControl.Address = DefaultShowControlAddr
	}

	if c.Status.Host == "" {
		c.Status.Host = DefaultStatusHost
	}
	if c.Status.Port == 0 {
		c.Status.Port = DefaultStatusPort
	}
	if c.Status.Path == "" {
		c.Status.Path = DefaultStatusPath
	}

	// An explicit empty list is kept; only an omitted one takes the default.
	if c.Cues.Start == nil {
		c.Cues.Start = append([]string(nil), DefaultStartCues...)
	}
	if c.Cues.End == nil {
		c.Cues.End = append([]string(nil), DefaultEndCues...)
	}

	if c.Reconcile.HeartbeatInterval == 0 {
		c.Reconcile.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Reconcile.MaxRetries == 0 {
		c.Reconcile.MaxRetries = DefaultMaxRetries
	}
	if c.Reconcile.RetryDelay == 0 {
		c.Reconcile.RetryDelay = DefaultRetryDelay
	}

	if c.Redis.Instance == "" {
		c.Redis.Instance = DefaultRedisInstance
	}
	if c.Redis.PublishInterval == 0 {
		c.Redis.PublishInterval = DefaultPublishInterval
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
	}
	return nil
}

// Overrides are command-line values that replace file settings when set.
type Overrides struct {
	ShowControlHost string
	ShowControlPort int
	OBSAddress      string
}

// Apply copies the non-zero overrides into c and re-validates it.
func (c *Config) Apply(o Overrides) error {
	if o.ShowControlHost != "" {
		c.ShowControl.Host = o.ShowControlHost
	}
	if o.ShowControlPort != 0 {
		c.ShowControl.Port = o.ShowControlPort
	}
	if o.OBSAddress != "" {
		c.OBS.Address = o.OBSAddress
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load reads and validates cuebridge.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault behaves like Load but returns Default when the file does
// not exist. found reports whether a file was read.
func LoadOrDefault(path string) (config *Config, found bool, err error) {
	config, err = Load(path)
	if err == nil {
		return config, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}
	return nil, false, err
}
