// Package config provides configuration loading and management for swagger2dcat.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreNATS   = "nats"
	StoreRedis  = "redis"
)

// Config represents the complete swagger2dcat configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Fetch     FetchConfig     `yaml:"fetch"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	DeepL     DeepLConfig     `yaml:"deepl"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Directory DirectoryConfig `yaml:"directory"`
	Store     StoreConfig     `yaml:"store"`
}

// ServerConfig configures the review web interface
type ServerConfig struct {
	// Listen is the HTTP listen address (default: :8080)
	Listen string `yaml:"listen"`
	// SessionSecret signs session cookies. Required to serve.
	SessionSecret string `yaml:"session_secret"`
	// SessionTTL is how long a review session stays valid
	SessionTTL time.Duration `yaml:"session_ttl"`
	// SecureCookies marks session cookies Secure (enable behind TLS)
	SecureCookies bool `yaml:"secure_cookies"`
}

// FetchConfig configures document and landing page fetching
type FetchConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxContentSize int64         `yaml:"max_content_size"`
	UserAgent      string        `yaml:"user_agent"`
	// MaxAttempts bounds retries on network errors, 429 and 5xx
	MaxAttempts int `yaml:"max_attempts"`
	// RequireHTTPS rejects plain http document URLs
	RequireHTTPS bool `yaml:"require_https"`
	// AllowPrivate permits localhost and private network hosts
	AllowPrivate bool `yaml:"allow_private"`
}

// OpenAIConfig configures the AI description generator.
// An empty APIKey disables the feature.
type OpenAIConfig struct {
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

// DeepLConfig configures machine translation.
// An empty APIKey disables the feature.
type DeepLConfig struct {
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the endpoint derived from the key type
	BaseURL           string        `yaml:"base_url"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// CatalogConfig configures the catalog admin API
type CatalogConfig struct {
	// BaseURL is the admin API root, e.g. https://input.i14y.admin.ch/api
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DirectoryConfig configures the publisher directory
type DirectoryConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// StaatskalenderURL is the organization search endpoint used to
	// enrich agent addresses (empty disables enrichment)
	StaatskalenderURL string `yaml:"staatskalender_url"`
}

// StoreConfig configures review draft storage
type StoreConfig struct {
	// Backend is memory, nats or redis
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	NATS    NATSConfig    `yaml:"nats"`
	Redis   RedisConfig   `yaml:"redis"`
}

// NATSConfig configures the JetStream key-value backend
type NATSConfig struct {
	URL    string `yaml:"url"`
	Bucket string `yaml:"bucket"`
}

// RedisConfig configures the Redis backend
type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:     ":8080",
			SessionTTL: 24 * time.Hour,
		},
		Fetch: FetchConfig{
			Timeout:        30 * time.Second,
			MaxContentSize: 10 * 1024 * 1024,
			UserAgent:      "swagger2dcat/1.0",
			MaxAttempts:    3,
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   1000,
			Timeout:     60 * time.Second,
			MaxRetries:  2,
		},
		DeepL: DeepLConfig{
			RequestsPerSecond: 5,
			Timeout:           30 * time.Second,
		},
		Catalog: CatalogConfig{
			BaseURL: "https://input.i14y.admin.ch/api",
			Timeout: 30 * time.Second,
		},
		Directory: DirectoryConfig{
			CacheTTL:          time.Hour,
			StaatskalenderURL: "https://www.staatskalender.admin.ch/api/search/organizations",
		},
		Store: StoreConfig{
			Backend: StoreMemory,
			TTL:     24 * time.Hour,
			NATS: NATSConfig{
				URL:    "nats://127.0.0.1:4222",
				Bucket: "SWAGGER2DCAT_DRAFTS",
			},
			Redis: RedisConfig{
				URL:    "redis://127.0.0.1:6379/0",
				Prefix: "swagger2dcat:draft:",
			},
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.MaxContentSize <= 0 {
		return fmt.Errorf("fetch.max_content_size must be positive")
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("fetch.max_attempts must be at least 1")
	}
	if c.OpenAI.Model == "" {
		return fmt.Errorf("openai.model is required")
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("openai.temperature must be between 0 and 2")
	}
	if c.DeepL.RequestsPerSecond <= 0 {
		return fmt.Errorf("deepl.requests_per_second must be positive")
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	switch c.Store.Backend {
	case StoreMemory:
	case StoreNATS:
		if c.Store.NATS.URL == "" || c.Store.NATS.Bucket == "" {
			return fmt.Errorf("store.nats.url and store.nats.bucket are required for the nats backend")
		}
	case StoreRedis:
		if c.Store.Redis.URL == "" {
			return fmt.Errorf("store.redis.url is required for the redis backend")
		}
	default:
		return fmt.Errorf("store.backend must be one of memory, nats, redis (got %q)", c.Store.Backend)
	}
	return nil
}

// ValidateServe checks the settings only the web interface needs.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if len(c.Server.SessionSecret) < 16 {
		return fmt.Errorf("server.session_secret must be set (at least 16 characters)")
	}
	return nil
}

// AIEnabled reports whether AI descriptions are available.
func (c *Config) AIEnabled() bool {
	return c.OpenAI.APIKey != ""
}

// TranslationEnabled reports whether machine translation is available.
func (c *Config) TranslationEnabled() bool {
	return c.DeepL.APIKey != ""
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// loadLayer reads a YAML file without applying defaults, so Merge only
// sees the keys the file actually sets.
func loadLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var layer Config
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &layer, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Secrets may be present.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	mergeString(&c.Server.Listen, other.Server.Listen)
	mergeString(&c.Server.SessionSecret, other.Server.SessionSecret)
	mergeDuration(&c.Server.SessionTTL, other.Server.SessionTTL)
	if other.Server.SecureCookies {
		c.Server.SecureCookies = true
	}

	// Fetch
	mergeDuration(&c.Fetch.Timeout, other.Fetch.Timeout)
	if other.Fetch.MaxContentSize != 0 {
		c.Fetch.MaxContentSize = other.Fetch.MaxContentSize
	}
	mergeString(&c.Fetch.UserAgent, other.Fetch.UserAgent)
	if other.Fetch.MaxAttempts != 0 {
		c.Fetch.MaxAttempts = other.Fetch.MaxAttempts
	}
	if other.Fetch.RequireHTTPS {
		c.Fetch.RequireHTTPS = true
	}
	if other.Fetch.AllowPrivate {
		c.Fetch.AllowPrivate = true
	}

	// OpenAI
	mergeString(&c.OpenAI.APIKey, other.OpenAI.APIKey)
	mergeString(&c.OpenAI.Model, other.OpenAI.Model)
	mergeString(&c.OpenAI.BaseURL, other.OpenAI.BaseURL)
	if other.OpenAI.Temperature != 0 {
		c.OpenAI.Temperature = other.OpenAI.Temperature
	}
	if other.OpenAI.MaxTokens != 0 {
		c.OpenAI.MaxTokens = other.OpenAI.MaxTokens
	}
	mergeDuration(&c.OpenAI.Timeout, other.OpenAI.Timeout)
	if other.OpenAI.MaxRetries != 0 {
		c.OpenAI.MaxRetries = other.OpenAI.MaxRetries
	}

	// DeepL
	mergeString(&c.DeepL.APIKey, other.DeepL.APIKey)
	mergeString(&c.DeepL.BaseURL, other.DeepL.BaseURL)
	if other.DeepL.RequestsPerSecond != 0 {
		c.DeepL.RequestsPerSecond = other.DeepL.RequestsPerSecond
	}
	mergeDuration(&c.DeepL.Timeout, other.DeepL.Timeout)

	// Catalog and directory
	mergeString(&c.Catalog.BaseURL, other.Catalog.BaseURL)
	mergeDuration(&c.Catalog.Timeout, other.Catalog.Timeout)
	mergeDuration(&c.Directory.CacheTTL, other.Directory.CacheTTL)
	mergeString(&c.Directory.StaatskalenderURL, other.Directory.StaatskalenderURL)

	// Store
	mergeString(&c.Store.Backend, other.Store.Backend)
	mergeDuration(&c.Store.TTL, other.Store.TTL)
	mergeString(&c.Store.NATS.URL, other.Store.NATS.URL)
	mergeString(&c.Store.NATS.Bucket, other.Store.NATS.Bucket)
	mergeString(&c.Store.Redis.URL, other.Store.Redis.URL)
	mergeString(&c.Store.Redis.Prefix, other.Store.Redis.Prefix)
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func mergeDuration(dst *time.Duration, src time.Duration) {
	if src != 0 {
		*dst = src
	}
}
