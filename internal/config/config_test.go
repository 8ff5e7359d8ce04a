package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GLYCO_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.True(t, cfg.Reference.UseBundled())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  port: 9000\nlogging:\n  level: debug\n"), 0o644))

	t.Setenv("GLYCO_CONFIG_FILE", file)
	t.Setenv("GLYCO_SERVER_PORT", "9443")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9443, cfg.Server.Port, "env takes precedence")
	assert.Equal(t, "debug", cfg.Logging.Level, "file value survives when env is unset")
	assert.Equal(t, "json", cfg.Logging.Format, "default fills fields neither env nor file set")
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := "server:\n" +
		"  port: 9000\n" +
		"  read_timeout: 5s\n" +
		"security:\n" +
		"  enable_cors: false\n" +
		"  rate_limit:\n" +
		"    enabled: false\n" +
		"logging:\n" +
		"  level: debug\n" +
		"  output: both\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	t.Setenv("GLYCO_CONFIG_FILE", file)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Security.EnableCORS, "file false beats the true default")
	assert.False(t, cfg.Security.RateLimit.Enabled, "file false beats the true default")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "both", cfg.Logging.Output)

	// Untouched fields keep their defaults.
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, float64(100), cfg.Security.RateLimit.RPS)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080, MaxUploadBytes: 1 << 20},
			Logging: LoggingConfig{
				Level:  "info",
				Output: "console",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "log level"},
		{"bad log output", func(c *Config) { c.Logging.Output = "syslog" }, "log output"},
		{
			"rate limit enabled without rps",
			func(c *Config) { c.Security.RateLimit = RateLimitConfig{Enabled: true} },
			"rate limit",
		},
		{
			"half-configured reference override",
			func(c *Config) { c.Reference.RangesPath = "/data/ranges.csv" },
			"set together",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
