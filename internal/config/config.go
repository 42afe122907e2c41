package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the resumatch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Reasoning ReasoningConfig `yaml:"reasoning"`
	Matching  MatchingConfig  `yaml:"matching"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
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

// DatabaseConfig holds document store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// RetryConfig holds the backoff policy for upstream model calls.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`  // bounded attempt count
	BaseDelayMs int `yaml:"base_delay_ms"` // initial backoff, doubles each attempt
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey        string      `yaml:"api_key"`
	BaseURL       string      `yaml:"base_url"`
	Model         string      `yaml:"model"`
	Dimensions    int         `yaml:"dimensions"` // canonical vector dimension
	MaxInputChars int         `yaml:"max_input_chars"`
	BatchSize     int         `yaml:"batch_size"` // texts per batch API call
	Retry         RetryConfig `yaml:"retry"`
}

// ReasoningConfig holds LLM reasoning provider settings.
type ReasoningConfig struct {
	Provider        string      `yaml:"provider"` // openai, gemini
	APIKey          string      `yaml:"api_key"`
	BaseURL         string      `yaml:"base_url"` // openai-compatible providers only
	Model           string      `yaml:"model"`
	Temperature     float32     `yaml:"temperature"`
	MaxOutputTokens int         `yaml:"max_output_tokens"`
	MaxPromptChars  int         `yaml:"max_prompt_chars"` // per-text head truncation
	Retry           RetryConfig `yaml:"retry"`
}

// MatchingConfig holds query pipeline settings.
type MatchingConfig struct {
	DefaultTopK       int     `yaml:"default_top_k"`
	Workers           int     `yaml:"workers"`             // explanation fan-out pool size
	ReasoningPerSec   float64 `yaml:"reasoning_per_sec"`   // upstream rate limit, 0 = unlimited
	CandidatePageSize int     `yaml:"candidate_page_size"` // records per store page while draining
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

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
		// Query latency is dominated by K LLM calls; leave headroom.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.MaxInputChars <= 0 {
		c.Embedding.MaxInputChars = 12000
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 30
	}
	applyRetryDefaults(&c.Embedding.Retry)
	if c.Reasoning.Provider == "" {
		c.Reasoning.Provider = "openai"
	}
	if c.Reasoning.MaxOutputTokens <= 0 {
		c.Reasoning.MaxOutputTokens = 1024
	}
	if c.Reasoning.MaxPromptChars <= 0 {
		c.Reasoning.MaxPromptChars = 3000
	}
	applyRetryDefaults(&c.Reasoning.Retry)
	if c.Matching.DefaultTopK <= 0 {
		c.Matching.DefaultTopK = 3
	}
	if c.Matching.Workers <= 0 {
		c.Matching.Workers = 4
	}
	if c.Matching.CandidatePageSize <= 0 {
		c.Matching.CandidatePageSize = 200
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "resumatch:"
	}
}

func applyRetryDefaults(r *RetryConfig) {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 3
	}
	if r.BaseDelayMs <= 0 {
		r.BaseDelayMs = 1000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions is required")
	}
	switch c.Reasoning.Provider {
	case "openai", "gemini":
		// ok
	default:
		return fmt.Errorf("reasoning.provider must be \"openai\" or \"gemini\", got %q", c.Reasoning.Provider)
	}
	if c.Reasoning.Model == "" {
		return fmt.Errorf("reasoning.model is required")
	}
	return nil
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
