package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Worker   WorkerConfig   `yaml:"worker"`
	Search   SearchConfig   `yaml:"search"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level"`
	Format           string `yaml:"format"`
	Output           string `yaml:"output"`
	EnableCaller     bool   `yaml:"enable_caller"`
	EnableStackTrace bool   `yaml:"enable_stack_trace"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	SkillTimeout    time.Duration `yaml:"skill_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SearchConfig holds search manager configuration. Provider order in the
// list is the fallback order.
type SearchConfig struct {
	Providers       []SearchProviderConfig `yaml:"providers"`
	CacheCapacity   int                    `yaml:"cache_capacity"`
	CacheTTL        time.Duration          `yaml:"cache_ttl"`
	ProviderTimeout time.Duration          `yaml:"provider_timeout"`
}

// SearchProviderConfig configures one search provider slot.
type SearchProviderConfig struct {
	Name   string `yaml:"name"` // tavily, serpapi, brave
	APIKey string `yaml:"api_key"`
}

// OpenAIConfig holds the model client configuration. The API key comes from
// the OPENAI_API_KEY environment variable, not from the file.
type OpenAIConfig struct {
	Model           string        `yaml:"model"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxTokens       int           `yaml:"max_tokens"`
	InputCostPer1K  float64       `yaml:"input_cost_per_1k"`
	OutputCostPer1K float64       `yaml:"output_cost_per_1k"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// ValidateAPIConfig checks the fields the API service depends on
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	return c.validateDatabase()
}

// ValidateWorkerConfig checks the fields the worker service depends on
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker poll_interval must be greater than 0")
	}

	if c.Worker.SkillTimeout <= 0 {
		return fmt.Errorf("worker skill_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if len(c.Search.Providers) == 0 {
		return fmt.Errorf("at least one search provider is required")
	}

	for _, p := range c.Search.Providers {
		switch p.Name {
		case "tavily", "serpapi", "brave":
		default:
			return fmt.Errorf("unknown search provider: %q", p.Name)
		}
	}

	if c.Search.CacheCapacity <= 0 {
		return fmt.Errorf("search cache_capacity must be greater than 0")
	}

	if c.Search.CacheTTL <= 0 {
		return fmt.Errorf("search cache_ttl must be greater than 0")
	}

	if c.Search.ProviderTimeout <= 0 {
		return fmt.Errorf("search provider_timeout must be greater than 0")
	}

	if c.OpenAI.Model == "" {
		return fmt.Errorf("openai model is required")
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}
