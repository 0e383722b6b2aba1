package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/cuebridge/internal/cue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "cuebridge.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestDefault_IsValid(t *testing.T) {
	var config *Config
	require.NotPanics(t, func() { config = Default() })

	assert.Equal(t, DefaultOBSAddress, config.OBS.Address)
	assert.Equal(t, DefaultMaxRetries, config.Reconcile.MaxRetries)
	assert.NoError(t, config.Validate(), "defaults validate again unchanged")
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
obs:
  address: "10.0.0.5:4455"
  timeout: 3s
show_control:
  host: "0.0.0.0"
  port: 7401
status:
  port: 9090
  path: /status
cues:
  start: ["1.2.3"]
  end: ["4.5.6", "1.2.3"]
reconcile:
  heartbeat_interval: 10s
  max_retries: 3
  retry_delay: 250ms
redis:
  url: "redis://localhost:6379/0"
  instance: stage-left
logging:
  level: debug
  format: json
  file: runtime.log
`)

	config, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:4455", config.OBS.Address)
	assert.Equal(t, 3*time.Second, config.OBS.Timeout)
	assert.Equal(t, "0.0.0.0:7401", config.ShowControl.Addr())
	assert.Equal(t, DefaultShowControlAddr, config.ShowControl.Address)
	assert.Equal(t, "localhost:9090", config.Status.Addr())
	assert.Equal(t, "/status", config.Status.Path)
	assert.Equal(t, []string{"1.2.3"}, config.Cues.Start)
	assert.Equal(t, []string{"4.5.6", "1.2.3"}, config.Cues.End)
	assert.Equal(t, 10*time.Second, config.Reconcile.HeartbeatInterval)
	assert.Equal(t, 3, config.Reconcile.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, config.Reconcile.RetryDelay)
	assert.True(t, config.Redis.Enabled())
	assert.Equal(t, "stage-left", config.Redis.Instance)
	assert.Equal(t, DefaultPublishInterval, config.Redis.PublishInterval)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "runtime.log", config.Logging.File)
}

func TestLoad_MinimalConfigTakesDefaults(t *testing.T) {
	config, err := Load(writeConfig(t, `version: "1.0"`))
	require.NoError(t, err)

	assert.Equal(t, Default(), config)
	assert.Equal(t, DefaultOBSAddress, config.OBS.Address)
	assert.Equal(t, "192.168.101.112:7400", config.ShowControl.Addr())
	assert.Equal(t, "localhost:8081", config.Status.Addr())
	assert.Equal(t, DefaultStatusPath, config.Status.Path)
	assert.Equal(t, DefaultStartCues, config.Cues.Start)
	assert.Equal(t, DefaultEndCues, config.Cues.End)
	assert.Equal(t, 30*time.Second, config.Reconcile.HeartbeatInterval)
	assert.Equal(t, 5, config.Reconcile.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, config.Reconcile.RetryDelay)
	assert.False(t, config.Redis.Enabled())
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
}

func TestLoad_ExplicitEmptyCueListIsKept(t *testing.T) {
	config, err := Load(writeConfig(t, `version: "1.0"
cues:
  end: []
`))
	require.NoError(t, err)
	assert.Equal(t, DefaultStartCues, config.Cues.Start)
	assert.Empty(t, config.Cues.End)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/cuebridge.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	config, err := Load(writeConfig(t, `version: "1.0"
cues:
  - this is invalid
    yaml syntax
`))
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `version: "1.0"
reconcile:
  heartbeat_interval: soon
`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		config, found, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yml"))
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, Default(), config)
	})

	t.Run("existing file is loaded", func(t *testing.T) {
		config, found, err := LoadOrDefault(writeConfig(t, `version: "1.0"
obs:
  address: "127.0.0.1:4455"
`))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "127.0.0.1:4455", config.OBS.Address)
	})

	t.Run("invalid file is an error", func(t *testing.T) {
		_, _, err := LoadOrDefault(writeConfig(t, `version: "2.0"`))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unsupported version", func(c *Config) { c.Version = "2.0" }, "unsupported version: 2.0"},
		{"missing version", func(c *Config) { c.Version = "" }, "unsupported version"},
		{"obs address without port", func(c *Config) { c.OBS.Address = "10.0.0.1" }, "obs.address must be host:port"},
		{"negative obs timeout", func(c *Config) { c.OBS.Timeout = -time.Second }, "obs.timeout must be positive"},
		{"show control port too large", func(c *Config) { c.ShowControl.Port = 70000 }, "show_control.port must be between 1 and 65535"},
		{"relative osc address", func(c *Config) { c.ShowControl.Address = "d3/sectionhint" }, "show_control.address must start with '/'"},
		{"negative status port", func(c *Config) { c.Status.Port = -1 }, "status.port must be between 1 and 65535"},
		{"relative status path", func(c *Config) { c.Status.Path = "status" }, "status.path must be absolute"},
		{"reserved status path", func(c *Config) { c.Status.Path = "/healthz" }, "is reserved"},
		{"non-canonical start cue", func(c *Config) { c.Cues.Start = []string{"1.2"} }, "cues.start: invalid cue \"1.2\""},
		{"non-canonical end cue", func(c *Config) { c.Cues.End = []string{"9.80.93|x"} }, "cues.end: invalid cue"},
		{"negative heartbeat", func(c *Config) { c.Reconcile.HeartbeatInterval = -time.Second }, "reconcile.heartbeat_interval must be positive"},
		{"negative retries", func(c *Config) { c.Reconcile.MaxRetries = -1 }, "reconcile.max_retries"},
		{"negative retry delay", func(c *Config) { c.Reconcile.RetryDelay = -time.Millisecond }, "reconcile.retry_delay must be positive"},
		{"bad redis url", func(c *Config) { c.Redis.URL = "http://localhost" }, "redis.url is invalid"},
		{"negative publish interval", func(c *Config) { c.Redis.PublishInterval = -time.Second }, "redis.publish_interval must be positive"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid logging.level: verbose"},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid logging.format: xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)

			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApply(t *testing.T) {
	t.Run("overrides replace file values", func(t *testing.T) {
		config := Default()
		err := config.Apply(Overrides{
			ShowControlHost: "127.0.0.1",
			ShowControlPort: 9000,
			OBSAddress:      "127.0.0.1:4455",
		})
		require.NoError(t, err)

		assert.Equal(t, "127.0.0.1:9000", config.ShowControl.Addr())
		assert.Equal(t, "127.0.0.1:4455", config.OBS.Address)
	})

	t.Run("zero overrides change nothing", func(t *testing.T) {
		config := Default()
		require.NoError(t, config.Apply(Overrides{}))
		assert.Equal(t, Default(), config)
	})

	t.Run("invalid override is rejected", func(t *testing.T) {
		config := Default()
		err := config.Apply(Overrides{OBSAddress: "no-port"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestCuesConfig_Set(t *testing.T) {
	set := Default().Cues.Set()
	assert.Equal(t, cue.ActionRestart, set.Action("9.80.93"))
	assert.Equal(t, cue.ActionStart, set.Action("0.0.9"))
	assert.Equal(t, cue.ActionStop, set.Action("0.0.1"))
}
