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

// Config holds the quizdex configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Redis      RedisConfig      `yaml:"redis"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Validation ValidationConfig `yaml:"validation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Exposure   ExposureConfig   `yaml:"exposure"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port             int `yaml:"port"`
	ReadTimeoutSec   int `yaml:"read_timeout_sec"`
	WriteTimeoutSec  int `yaml:"write_timeout_sec"`
	ShutdownSec      int `yaml:"shutdown_timeout_sec"`
	HealthTimeoutSec int `yaml:"health_timeout_sec"` // per probe, 0 = 2s
}

// CatalogConfig holds the persistent question catalog connection.
type CatalogConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres (default: sqlite)
	DSN    string `yaml:"dsn"`
}

// RedisConfig holds Redis/Valkey settings. Empty Addrs selects in-process stores.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // openai, local (default: local)
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	Cache               bool   `yaml:"cache"`
	CacheTTLSec         int    `yaml:"cache_ttl_sec"` // 0 = no expiry
}

// GenerationConfig holds the question generator settings.
type GenerationConfig struct {
	Enabled           bool         `yaml:"enabled"`
	APIKey            string       `yaml:"api_key"`
	BaseURL           string       `yaml:"base_url"`
	Model             string       `yaml:"model"`
	Temperature       float32      `yaml:"temperature"`
	RequestsPerSecond float64      `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int          `yaml:"burst"`
	Budget            BudgetConfig `yaml:"budget"`
}

// BudgetConfig caps chat tokens spent by generation and validation together.
type BudgetConfig struct {
	DailyTokens   int64  `yaml:"daily_tokens"`   // 0 = unlimited
	MonthlyTokens int64  `yaml:"monthly_tokens"` // 0 = unlimited
	Action        string `yaml:"action"`         // reject, warn (default: reject)
}

// ValidationConfig holds the alignment validator settings.
// Empty credentials and model fall back to the generation settings.
type ValidationConfig struct {
	APIKey   string  `yaml:"api_key"`
	BaseURL  string  `yaml:"base_url"`
	Model    string  `yaml:"model"`
	MinScore float64 `yaml:"min_score"`
}

// RetrievalConfig holds retrieval tuning.
type RetrievalConfig struct {
	OverFetchFactor int `yaml:"over_fetch_factor"`
}

// ExposureConfig holds exposure record settings.
type ExposureConfig struct {
	RetentionDays int `yaml:"retention_days"` // 0 = keep forever
}

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, decodes it and applies defaults and validation.
func Parse(data []byte) (Config, error) {
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
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = "sqlite"
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "quizdex:"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderLocal
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 256
	}
	if c.Generation.Burst <= 0 {
		c.Generation.Burst = 1
	}
	if c.Generation.Budget.Action == "" {
		c.Generation.Budget.Action = "reject"
	}
	if c.Validation.APIKey == "" {
		c.Validation.APIKey = c.Generation.APIKey
	}
	if c.Validation.BaseURL == "" {
		c.Validation.BaseURL = c.Generation.BaseURL
	}
	if c.Validation.Model == "" {
		c.Validation.Model = c.Generation.Model
	}
	if c.Validation.MinScore == 0 {
		c.Validation.MinScore = 0.7
	}
	if c.Retrieval.OverFetchFactor == 0 {
		c.Retrieval.OverFetchFactor = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Catalog.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("catalog.driver must be \"sqlite\" or \"postgres\", got %q", c.Catalog.Driver)
	}
	if c.Catalog.DSN == "" {
		return fmt.Errorf("catalog.dsn is required")
	}
	switch c.Embedding.Provider {
	case ProviderLocal:
	case ProviderOpenAI:
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for provider openai")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"local\", got %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.CacheTTLSec < 0 {
		return fmt.Errorf("embedding.cache_ttl_sec must not be negative, got %d", c.Embedding.CacheTTLSec)
	}
	if c.Generation.Enabled && c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required when generation is enabled")
	}
	if c.Generation.RequestsPerSecond < 0 {
		return fmt.Errorf("generation.requests_per_second must not be negative")
	}
	if c.Generation.Budget.DailyTokens < 0 || c.Generation.Budget.MonthlyTokens < 0 {
		return fmt.Errorf("generation.budget limits must not be negative")
	}
	switch c.Generation.Budget.Action {
	case "reject", "warn":
	default:
		return fmt.Errorf("generation.budget.action must be \"reject\" or \"warn\", got %q", c.Generation.Budget.Action)
	}
	if c.Validation.MinScore < 0 || c.Validation.MinScore > 1 {
		return fmt.Errorf("validation.min_score must be within [0, 1], got %v", c.Validation.MinScore)
	}
	if c.Retrieval.OverFetchFactor < 1 {
		return fmt.Errorf("retrieval.over_fetch_factor must be at least 1, got %d", c.Retrieval.OverFetchFactor)
	}
	if c.Exposure.RetentionDays < 0 {
		return fmt.Errorf("exposure.retention_days must not be negative, got %d", c.Exposure.RetentionDays)
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
