package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for all environment variable overrides
const EnvPrefix = "WALLETCHECKIN_"

// Config holds all configuration options for the check-in driver
type Config struct {
	// Address list
	Source SourceConfig `yaml:"source" json:"source"`

	// Progress persistence
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Batching and concurrency
	Batch BatchConfig `yaml:"batch" json:"batch"`

	// Per-operation retry policy
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Hosted backend endpoint
	Backend BackendConfig `yaml:"backend" json:"backend"`

	// Client-side request throttle
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Prometheus metrics
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// SourceConfig describes where work items come from
type SourceConfig struct {
	Path   string `yaml:"path" json:"path"`
	Prefix string `yaml:"prefix" json:"prefix"`
}

// CheckpointConfig holds checkpoint storage options
type CheckpointConfig struct {
	// Path of the checkpoint file. Empty means the platform data directory.
	Path string `yaml:"path" json:"path"`
	// Strict makes a failed checkpoint write abort the job
	Strict bool `yaml:"strict" json:"strict"`
}

// BatchConfig holds the batching knobs
type BatchConfig struct {
	Size            int           `yaml:"size" json:"size"`
	Concurrency     int           `yaml:"concurrency" json:"concurrency"`
	InterCallDelay  time.Duration `yaml:"inter_call_delay" json:"inter_call_delay"`
	InterBatchDelay time.Duration `yaml:"inter_batch_delay" json:"inter_batch_delay"`
}

// RetryConfig holds the retry policy applied to each remote call
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per operation
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	Delay       time.Duration `yaml:"delay" json:"delay"`
	// Strategy is "constant" or "exponential"
	Strategy     string        `yaml:"strategy" json:"strategy"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// BackendConfig holds the hosted backend settings
type BackendConfig struct {
	URL             string        `yaml:"url" json:"url"`
	LoginFunction   string        `yaml:"login_function" json:"login_function"`
	CheckInFunction string        `yaml:"checkin_function" json:"checkin_function"`
	PointsPath      string        `yaml:"points_path" json:"points_path"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	DeployKey       string        `yaml:"deploy_key" json:"deploy_key"`
	Deployment      string        `yaml:"deployment" json:"deployment"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerMinute of zero disables throttling
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// MetricsConfig holds Prometheus exporter settings
type MetricsConfig struct {
	// Addr to serve /metrics on while a job runs, e.g. ":9102". Empty disables.
	Addr      string `yaml:"addr" json:"addr"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Path:   "addresses.txt",
			Prefix: "0x",
		},
		Checkpoint: CheckpointConfig{
			Path:   "",
			Strict: false,
		},
		Batch: BatchConfig{
			Size:            10,
			Concurrency:     5,
			InterCallDelay:  1 * time.Second,
			InterBatchDelay: 2 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			Delay:        2 * time.Second,
			Strategy:     "constant",
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Backend: BackendConfig{
			URL:             "",
			LoginFunction:   "wallet:login",
			CheckInFunction: "wallet:checkIn",
			PointsPath:      "points",
			Timeout:         30 * time.Second,
			UserAgent:       "walletcheckin/1.0",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
			BurstSize:         10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		Metrics: MetricsConfig{
			Addr:      "",
			Namespace: "walletcheckin",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	setString("SOURCE", &c.Source.Path)
	setString("ADDRESS_PREFIX", &c.Source.Prefix)
	setString("CHECKPOINT", &c.Checkpoint.Path)
	if v := os.Getenv(EnvPrefix + "CHECKPOINT_STRICT"); v != "" {
		c.Checkpoint.Strict = strings.ToLower(v) == "true"
	}

	setInt("BATCH_SIZE", &c.Batch.Size)
	setInt("CONCURRENCY", &c.Batch.Concurrency)
	setDuration("INTER_CALL_DELAY", &c.Batch.InterCallDelay)
	setDuration("INTER_BATCH_DELAY", &c.Batch.InterBatchDelay)

	setInt("MAX_ATTEMPTS", &c.Retry.MaxAttempts)
	setDuration("RETRY_DELAY", &c.Retry.Delay)
	setString("RETRY_STRATEGY", &c.Retry.Strategy)

	setString("BACKEND_URL", &c.Backend.URL)
	setString("LOGIN_FUNCTION", &c.Backend.LoginFunction)
	setString("CHECKIN_FUNCTION", &c.Backend.CheckInFunction)
	setString("DEPLOY_KEY", &c.Backend.DeployKey)
	setString("DEPLOYMENT", &c.Backend.Deployment)
	setDuration("BACKEND_TIMEOUT", &c.Backend.Timeout)

	setInt("REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute)

	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)
	setString("LOG_FILE", &c.Logging.File)

	setString("METRICS_ADDR", &c.Metrics.Addr)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"walletcheckin.yaml",
		"walletcheckin.yml",
		".walletcheckin.yaml",
		filepath.Join(home, ".config", "walletcheckin", "config.yaml"),
		filepath.Join(home, ".config", "walletcheckin", "config.yml"),
		filepath.Join(home, ".walletcheckin.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Source.Path) == "" {
		errs = append(errs, errors.New("source path is required"))
	}

	if c.Batch.Size < 1 {
		errs = append(errs, errors.New("batch size must be at least 1"))
	}
	if c.Batch.Concurrency < 1 {
		errs = append(errs, errors.New("concurrency must be at least 1"))
	}
	if c.Batch.InterCallDelay < 0 || c.Batch.InterBatchDelay < 0 {
		errs = append(errs, errors.New("delays cannot be negative"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("max attempts must be at least 1"))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
	}
	switch strings.ToLower(c.Retry.Strategy) {
	case "constant", "exponential":
	default:
		errs = append(errs, fmt.Errorf("unknown retry strategy %q", c.Retry.Strategy))
	}

	if c.Backend.LoginFunction == "" || c.Backend.CheckInFunction == "" {
		errs = append(errs, errors.New("login and check-in function paths are required"))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend timeout must be positive"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ValidateRemote checks the settings needed to actually contact the backend
func (c *Config) ValidateRemote() error {
	if c.Backend.URL == "" {
		if c.Backend.Deployment != "" {
			return nil
		}
		return fmt.Errorf("backend URL is required (set backend.url, backend.deployment or %sBACKEND_URL)", EnvPrefix)
	}
	if !strings.HasPrefix(c.Backend.URL, "http://") && !strings.HasPrefix(c.Backend.URL, "https://") {
		return fmt.Errorf("backend URL must be http(s): %s", c.Backend.URL)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["source"].(string); ok && v != "" {
		c.Source.Path = v
	}
	if v, ok := flags["prefix"].(string); ok && v != "" {
		c.Source.Prefix = v
	}
	if v, ok := flags["checkpoint"].(string); ok && v != "" {
		c.Checkpoint.Path = v
	}
	if v, ok := flags["strict-checkpoint"].(bool); ok {
		c.Checkpoint.Strict = v
	}
	if v, ok := flags["batch-size"].(int); ok && v > 0 {
		c.Batch.Size = v
	}
	if v, ok := flags["concurrency"].(int); ok && v > 0 {
		c.Batch.Concurrency = v
	}
	if v, ok := flags["inter-call-delay"].(time.Duration); ok {
		c.Batch.InterCallDelay = v
	}
	if v, ok := flags["inter-batch-delay"].(time.Duration); ok {
		c.Batch.InterBatchDelay = v
	}
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["retry-delay"].(time.Duration); ok {
		c.Retry.Delay = v
	}
	if v, ok := flags["backend-url"].(string); ok && v != "" {
		c.Backend.URL = v
	}
	if v, ok := flags["deployment"].(string); ok && v != "" {
		c.Backend.Deployment = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok && v >= 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["metrics-addr"].(string); ok && v != "" {
		c.Metrics.Addr = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".walletcheckin.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
