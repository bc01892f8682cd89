package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverValkey   = "valkey"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the labeldesk configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Twitter    TwitterConfig    `yaml:"twitter"`
	Projection ProjectionConfig `yaml:"projection"`
	Session    SessionConfig    `yaml:"session"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds JSON API authentication settings. Empty disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds label store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, postgres, sqlite (default: valkey)
	Addrs            []string `yaml:"addrs"`  // valkey/redis
	Password         string   `yaml:"password"`
	DSN              string   `yaml:"dsn"` // postgres/sqlite
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// TwitterConfig holds profile directory and embed settings.
type TwitterConfig struct {
	APIBaseURL      string `yaml:"api_base_url"`
	PublishBaseURL  string `yaml:"publish_base_url"`
	BearerToken     string `yaml:"bearer_token"`
	BearerTokenFile string `yaml:"bearer_token_file"` // first line is used when bearer_token is empty
	UserAgent       string `yaml:"user_agent"`
	TimeoutSec      int    `yaml:"timeout_sec"`
}

// ProjectionConfig holds t-SNE and chart settings.
type ProjectionConfig struct {
	Perplexity   float64 `yaml:"perplexity"`
	LearningRate float64 `yaml:"learning_rate"`
	Iterations   int     `yaml:"iterations"`
	Seed         uint64  `yaml:"seed"`
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
}

// SessionConfig holds annotation session settings.
type SessionConfig struct {
	CookieName       string `yaml:"cookie_name"`
	IdleTTLMin       int    `yaml:"idle_ttl_min"`
	SweepIntervalSec int    `yaml:"sweep_interval_sec"`
	SecureCookie     bool   `yaml:"secure_cookie"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates the configuration at path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Twitter.APIBaseURL == "" {
		c.Twitter.APIBaseURL = "https://api.twitter.com"
	}
	if c.Twitter.PublishBaseURL == "" {
		c.Twitter.PublishBaseURL = "https://publish.twitter.com"
	}
	if c.Twitter.UserAgent == "" {
		c.Twitter.UserAgent = "labeldesk"
	}
	if c.Twitter.TimeoutSec <= 0 {
		c.Twitter.TimeoutSec = 10
	}
	if c.Projection.Perplexity <= 0 {
		c.Projection.Perplexity = 10
	}
	if c.Projection.LearningRate <= 0 {
		c.Projection.LearningRate = 200
	}
	if c.Projection.Iterations <= 0 {
		c.Projection.Iterations = 1000
	}
	if c.Projection.Width <= 0 {
		c.Projection.Width = 800
	}
	if c.Projection.Height <= 0 {
		c.Projection.Height = 800
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "labeldesk_session"
	}
	if c.Session.IdleTTLMin <= 0 {
		c.Session.IdleTTLMin = 720
	}
	if c.Session.SweepIntervalSec <= 0 {
		c.Session.SweepIntervalSec = 60
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "labeldesk:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverPostgres, DriverSQLite:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf(
			"database.driver must be one of valkey, redis, postgres, sqlite, got %q",
			c.Database.Driver,
		)
	}
	if c.Session.SweepIntervalSec > c.Session.IdleTTLMin*60 {
		return fmt.Errorf("session.sweep_interval_sec must not exceed session.idle_ttl_min")
	}
	return nil
}

// ResolveBearerToken returns twitter.bearer_token, or the first line of
// twitter.bearer_token_file when the token is empty.
func (c *TwitterConfig) ResolveBearerToken() (string, error) {
	if c.BearerToken != "" || c.BearerTokenFile == "" {
		return c.BearerToken, nil
	}
	f, err := os.Open(filepath.Clean(c.BearerTokenFile))
	if err != nil {
		return "", fmt.Errorf("open bearer token file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("read bearer token file: %w", err)
		}
		return "", fmt.Errorf("bearer token file %s is empty", c.BearerTokenFile)
	}
	return strings.TrimSpace(sc.Text()), nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
