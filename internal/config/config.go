// Package config loads the imputation service configuration from
// environment variables and an optional YAML file. Environment variables
// take precedence over file values.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix namespaces all environment variables, e.g. GLYCO_SERVER_PORT.
const envPrefix = "GLYCO"

// Config represents the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Reference ReferenceConfig `yaml:"reference" envconfig:"REFERENCE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	// MaxUploadBytes caps panel file uploads.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"16777216"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/imputed.log"`
}

// ReferenceConfig selects the model reference data. When both paths are
// empty the bundled release is used.
type ReferenceConfig struct {
	RangesPath       string `yaml:"ranges_path" envconfig:"RANGES_PATH"`
	CoefficientsPath string `yaml:"coefficients_path" envconfig:"COEFFICIENTS_PATH"`
}

// UseBundled reports whether the bundled reference data release should be
// loaded instead of external files.
func (rc ReferenceConfig) UseBundled() bool {
	return rc.RangesPath == "" && rc.CoefficientsPath == ""
}

// yamlDuration accepts Go duration strings ("15s") in the YAML file;
// yaml.v2 cannot decode those into time.Duration directly.
type yamlDuration time.Duration

func (d *yamlDuration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = yamlDuration(v)
	return nil
}

// fileConfig mirrors Config with pointer fields so a key absent from the
// YAML file is distinguishable from one set to a zero value.
type fileConfig struct {
	Server struct {
		Port            *int          `yaml:"port"`
		ReadTimeout     *yamlDuration `yaml:"read_timeout"`
		WriteTimeout    *yamlDuration `yaml:"write_timeout"`
		IdleTimeout     *yamlDuration `yaml:"idle_timeout"`
		MaxHeaderBytes  *int          `yaml:"max_header_bytes"`
		ShutdownTimeout *yamlDuration `yaml:"shutdown_timeout"`
		MaxUploadBytes  *int64        `yaml:"max_upload_bytes"`
	} `yaml:"server"`
	Security struct {
		AllowedOrigins *[]string `yaml:"allowed_origins"`
		EnableCORS     *bool     `yaml:"enable_cors"`
		RateLimit      struct {
			Enabled *bool    `yaml:"enabled"`
			RPS     *float64 `yaml:"rps"`
			Burst   *int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Logging struct {
		Level    *string `yaml:"level"`
		Format   *string `yaml:"format"`
		Output   *string `yaml:"output"`
		FilePath *string `yaml:"file_path"`
	} `yaml:"logging"`
	Reference struct {
		RangesPath       *string `yaml:"ranges_path"`
		CoefficientsPath *string `yaml:"coefficients_path"`
	} `yaml:"reference"`
}

// Load loads configuration from environment variables and, when present,
// the YAML file named by GLYCO_CONFIG_FILE (default "config.yaml").
// Precedence is environment > file > struct-tag default.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	configFile := os.Getenv(envPrefix + "_CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fileCfg fileConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &fileCfg, nil
}

// envSet reports whether the namespaced environment variable is present,
// even when empty. envconfig already applied such variables to cfg.
func envSet(key string) bool {
	_, ok := os.LookupEnv(envPrefix + "_" + key)
	return ok
}

// mergeFileConfig overlays file values onto cfg. A file value applies only
// when its key is present in the YAML and its environment variable is
// unset, so the environment always wins and defaults only fill gaps.
func mergeFileConfig(cfg *Config, f *fileConfig) {
	if f.Server.Port != nil && !envSet("SERVER_PORT") {
		cfg.Server.Port = *f.Server.Port
	}
	if f.Server.ReadTimeout != nil && !envSet("SERVER_READ_TIMEOUT") {
		cfg.Server.ReadTimeout = time.Duration(*f.Server.ReadTimeout)
	}
	if f.Server.WriteTimeout != nil && !envSet("SERVER_WRITE_TIMEOUT") {
		cfg.Server.WriteTimeout = time.Duration(*f.Server.WriteTimeout)
	}
	if f.Server.IdleTimeout != nil && !envSet("SERVER_IDLE_TIMEOUT") {
		cfg.Server.IdleTimeout = time.Duration(*f.Server.IdleTimeout)
	}
	if f.Server.MaxHeaderBytes != nil && !envSet("SERVER_MAX_HEADER_BYTES") {
		cfg.Server.MaxHeaderBytes = *f.Server.MaxHeaderBytes
	}
	if f.Server.ShutdownTimeout != nil && !envSet("SERVER_SHUTDOWN_TIMEOUT") {
		cfg.Server.ShutdownTimeout = time.Duration(*f.Server.ShutdownTimeout)
	}
	if f.Server.MaxUploadBytes != nil && !envSet("SERVER_MAX_UPLOAD_BYTES") {
		cfg.Server.MaxUploadBytes = *f.Server.MaxUploadBytes
	}

	if f.Security.AllowedOrigins != nil && !envSet("SECURITY_ALLOWED_ORIGINS") {
		cfg.Security.AllowedOrigins = *f.Security.AllowedOrigins
	}
	if f.Security.EnableCORS != nil && !envSet("SECURITY_ENABLE_CORS") {
		cfg.Security.EnableCORS = *f.Security.EnableCORS
	}
	if f.Security.RateLimit.Enabled != nil && !envSet("SECURITY_RATE_LIMIT_ENABLED") {
		cfg.Security.RateLimit.Enabled = *f.Security.RateLimit.Enabled
	}
	if f.Security.RateLimit.RPS != nil && !envSet("SECURITY_RATE_LIMIT_RPS") {
		cfg.Security.RateLimit.RPS = *f.Security.RateLimit.RPS
	}
	if f.Security.RateLimit.Burst != nil && !envSet("SECURITY_RATE_LIMIT_BURST") {
		cfg.Security.RateLimit.Burst = *f.Security.RateLimit.Burst
	}

	if f.Logging.Level != nil && !envSet("LOGGING_LEVEL") {
		cfg.Logging.Level = *f.Logging.Level
	}
	if f.Logging.Format != nil && !envSet("LOGGING_FORMAT") {
		cfg.Logging.Format = *f.Logging.Format
	}
	if f.Logging.Output != nil && !envSet("LOGGING_OUTPUT") {
		cfg.Logging.Output = *f.Logging.Output
	}
	if f.Logging.FilePath != nil && !envSet("LOGGING_FILE_PATH") {
		cfg.Logging.FilePath = *f.Logging.FilePath
	}

	if f.Reference.RangesPath != nil && !envSet("REFERENCE_RANGES_PATH") {
		cfg.Reference.RangesPath = *f.Reference.RangesPath
	}
	if f.Reference.CoefficientsPath != nil && !envSet("REFERENCE_COEFFICIENTS_PATH") {
		cfg.Reference.CoefficientsPath = *f.Reference.CoefficientsPath
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid log output %q", c.Logging.Output)
	}

	if c.Security.RateLimit.Enabled {
		if c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit rps and burst must be positive when enabled")
		}
	}

	// Reference paths come as a pair: overriding only one table would mix
	// releases.
	if c.Reference.UseBundled() {
		return nil
	}
	if c.Reference.RangesPath == "" || c.Reference.CoefficientsPath == "" {
		return fmt.Errorf("reference ranges_path and coefficients_path must be set together")
	}
	return nil
}
