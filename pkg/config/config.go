package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for postscope
type Config struct {
	// Upstream data API
	API APIConfig `yaml:"api" json:"api"`

	// Outbound request budget shared by every job
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry policy for transient API failures
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Defaults for new collection jobs
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Heuristic tagging knobs
	Tagger TaggerConfig `yaml:"tagger" json:"tagger"`

	// Background job execution
	Jobs JobsConfig `yaml:"jobs" json:"jobs"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// HTTP surface
	Server ServerConfig `yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds the data API endpoint and credential
type APIConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	APIKey         string        `yaml:"api_key,omitempty" json:"-"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
}

// RateLimitConfig holds the rolling window budget and minimum spacing
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests" json:"max_requests"`
	Window      time.Duration `yaml:"window" json:"window"`
	MinInterval time.Duration `yaml:"min_interval" json:"min_interval"`
}

// RetryConfig holds exponential backoff settings
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
	Jitter      float64       `yaml:"jitter" json:"jitter"`
}

// FetchConfig holds defaults applied when a job omits them
type FetchConfig struct {
	PostType string `yaml:"post_type" json:"post_type"`
	MaxPosts int    `yaml:"max_posts" json:"max_posts"`
}

// TaggerConfig holds topic, sentiment and style heuristics settings
type TaggerConfig struct {
	TopK           int     `yaml:"top_k" json:"top_k"`
	MinTokenLength int     `yaml:"min_token_length" json:"min_token_length"`
	MinCount       int     `yaml:"min_count" json:"min_count"`
	EmphaticRatio  float64 `yaml:"emphatic_ratio" json:"emphatic_ratio"`
}

// JobsConfig holds background execution settings
type JobsConfig struct {
	Workers     int    `yaml:"workers" json:"workers"`
	QueueSize   int    `yaml:"queue_size" json:"queue_size"`
	HistoryFile string `yaml:"history_file" json:"history_file"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string   `yaml:"base_directory" json:"base_directory"`
	Formats       []string `yaml:"formats" json:"formats"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultBaseURL is the SocialData API root
const DefaultBaseURL = "https://api.socialdata.tools"

// AllFormats lists every output format the generator understands
var AllFormats = []string{"json", "csv", "xml", "summary", "sqlite"}

var validPostTypes = map[string]bool{"posts": true, "replies": true, "both": true}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        DefaultBaseURL,
			RequestTimeout: 30 * time.Second,
			UserAgent:      "postscope/1.0",
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 30,
			Window:      60 * time.Second,
			MinInterval: 500 * time.Millisecond,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   5 * time.Second,
			MaxDelay:    60 * time.Second,
			Multiplier:  2.0,
			Jitter:      0.1,
		},
		Fetch: FetchConfig{
			PostType: "posts",
			MaxPosts: 100,
		},
		Tagger: TaggerConfig{
			TopK:           10,
			MinTokenLength: 2,
			MinCount:       1,
			EmphaticRatio:  0,
		},
		Jobs: JobsConfig{
			Workers:   2,
			QueueSize: 32,
		},
		Output: OutputConfig{
			BaseDirectory: "./output",
			Formats:       append([]string(nil), AllFormats...),
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	// SOCIALDATA_API_KEY is what the provider's own docs use; keep it working
	for _, key := range []string{"TWITTER_API_KEY", "SOCIALDATA_API_KEY", "POSTSCOPE_API_KEY"} {
		if v := os.Getenv(key); v != "" {
			c.API.APIKey = v
		}
	}
	if v := os.Getenv("POSTSCOPE_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("POSTSCOPE_REQUEST_TIMEOUT"); v != "" {
		errs = append(errs, setDuration(&c.API.RequestTimeout, "POSTSCOPE_REQUEST_TIMEOUT", v))
	}

	if v := os.Getenv("POSTSCOPE_RATE_LIMIT"); v != "" {
		errs = append(errs, setInt(&c.RateLimit.MaxRequests, "POSTSCOPE_RATE_LIMIT", v))
	}
	if v := os.Getenv("POSTSCOPE_RATE_WINDOW"); v != "" {
		errs = append(errs, setDuration(&c.RateLimit.Window, "POSTSCOPE_RATE_WINDOW", v))
	}
	if v := os.Getenv("POSTSCOPE_MIN_INTERVAL"); v != "" {
		errs = append(errs, setDuration(&c.RateLimit.MinInterval, "POSTSCOPE_MIN_INTERVAL", v))
	}
	if v := os.Getenv("POSTSCOPE_MAX_RETRIES"); v != "" {
		errs = append(errs, setInt(&c.Retry.MaxAttempts, "POSTSCOPE_MAX_RETRIES", v))
	}

	if v := os.Getenv("POSTSCOPE_WORKERS"); v != "" {
		errs = append(errs, setInt(&c.Jobs.Workers, "POSTSCOPE_WORKERS", v))
	}
	if v := os.Getenv("POSTSCOPE_HISTORY_FILE"); v != "" {
		c.Jobs.HistoryFile = v
	}

	if v := os.Getenv("POSTSCOPE_OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv("POSTSCOPE_FORMATS"); v != "" {
		c.Output.Formats = splitList(v)
	}

	if v := os.Getenv("POSTSCOPE_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv("POSTSCOPE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("POSTSCOPE_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

func setInt(dst *int, name, raw string) error {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = v
	return nil
}

func setDuration(dst *time.Duration, name, raw string) error {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = v
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
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

// DefaultPath is where `config init` writes a fresh file
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "postscope", "config.yaml")
}

func findConfigFile() string {
	locations := []string{
		".postscope.yaml",
		".postscope.yml",
		DefaultPath(),
		filepath.Join(os.Getenv("HOME"), ".config", "postscope", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".postscope.yaml"),
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

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid API base URL %q", c.API.BaseURL))
	}
	if c.API.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.RateLimit.MaxRequests <= 0 {
		errs = append(errs, errors.New("rate limit max requests must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}
	if c.RateLimit.MinInterval < 0 {
		errs = append(errs, errors.New("minimum request interval cannot be negative"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}
	if c.Retry.BaseDelay <= 0 {
		errs = append(errs, errors.New("retry base delay must be positive"))
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, errors.New("retry max delay must not be below base delay"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		errs = append(errs, errors.New("retry jitter must be between 0 and 1"))
	}

	if !validPostTypes[strings.ToLower(c.Fetch.PostType)] {
		errs = append(errs, fmt.Errorf("invalid post type %q (want posts, replies or both)", c.Fetch.PostType))
	}
	if c.Fetch.MaxPosts < 0 {
		errs = append(errs, errors.New("max posts cannot be negative"))
	}

	if c.Tagger.TopK <= 0 {
		errs = append(errs, errors.New("tagger top_k must be positive"))
	}
	if c.Tagger.MinTokenLength < 1 {
		errs = append(errs, errors.New("tagger min_token_length must be at least 1"))
	}
	if c.Tagger.MinCount < 1 {
		errs = append(errs, errors.New("tagger min_count must be at least 1"))
	}
	if c.Tagger.EmphaticRatio < 0 || c.Tagger.EmphaticRatio >= 1 {
		errs = append(errs, errors.New("tagger emphatic_ratio must be in [0, 1)"))
	}

	if c.Jobs.Workers <= 0 {
		errs = append(errs, errors.New("job workers must be positive"))
	}
	if c.Jobs.Workers > 16 {
		errs = append(errs, errors.New("job workers should not exceed 16"))
	}
	if c.Jobs.QueueSize <= 0 {
		errs = append(errs, errors.New("job queue size must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	known := make(map[string]bool, len(AllFormats))
	for _, f := range AllFormats {
		known[f] = true
	}
	for _, f := range c.Output.Formats {
		if !known[strings.ToLower(f)] {
			errs = append(errs, fmt.Errorf("unknown output format %q", f))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// HistoryPath returns the history index location, defaulting to a file
// inside the output directory
func (c *Config) HistoryPath() string {
	if c.Jobs.HistoryFile != "" {
		return c.Jobs.HistoryFile
	}
	return filepath.Join(c.Output.BaseDirectory, "history.json")
}

// Save writes the configuration to path. The API key is never written.
func (c *Config) Save(path string) error {
	clean := *c
	clean.API.APIKey = ""

	data, err := yaml.Marshal(&clean)
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
	if v, ok := flags["api-key"].(string); ok && v != "" {
		c.API.APIKey = v
	}
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.API.BaseURL = v
	}
	if v, ok := flags["rate-limit"].(int); ok && v > 0 {
		c.RateLimit.MaxRequests = v
	}
	if v, ok := flags["rate-window"].(time.Duration); ok && v > 0 {
		c.RateLimit.Window = v
	}
	if v, ok := flags["max-retries"].(int); ok && v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["type"].(string); ok && v != "" {
		c.Fetch.PostType = strings.ToLower(v)
	}
	if v, ok := flags["max"].(int); ok && v >= 0 {
		c.Fetch.MaxPosts = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["formats"].([]string); ok && len(v) > 0 {
		c.Output.Formats = v
	}
	if v, ok := flags["workers"].(int); ok && v > 0 {
		c.Jobs.Workers = v
	}
	if v, ok := flags["addr"].(string); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".postscope.env"))

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
