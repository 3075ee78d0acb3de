package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %s", cfg.OpenAI.Model)
	}
	if cfg.Catalog.BaseURL != "https://input.i14y.admin.ch/api" {
		t.Errorf("expected default catalog URL, got %s", cfg.Catalog.BaseURL)
	}
	if cfg.Directory.CacheTTL != time.Hour {
		t.Errorf("expected directory cache TTL 1h, got %s", cfg.Directory.CacheTTL)
	}
	if cfg.Store.Backend != StoreMemory {
		t.Errorf("expected memory store by default, got %s", cfg.Store.Backend)
	}
	if cfg.AIEnabled() || cfg.TranslationEnabled() {
		t.Error("enrichment should be disabled without API keys")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing model",
			modify:  func(c *Config) { c.OpenAI.Model = "" },
			wantErr: true,
		},
		{
			name:    "temperature too high",
			modify:  func(c *Config) { c.OpenAI.Temperature = 2.5 },
			wantErr: true,
		},
		{
			name:    "zero attempts",
			modify:  func(c *Config) { c.Fetch.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "unknown store backend",
			modify:  func(c *Config) { c.Store.Backend = "postgres" },
			wantErr: true,
		},
		{
			name:    "redis backend without URL",
			modify:  func(c *Config) { c.Store.Backend = StoreRedis; c.Store.Redis.URL = "" },
			wantErr: true,
		},
		{
			name:    "nats backend with defaults",
			modify:  func(c *Config) { c.Store.Backend = StoreNATS },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateServeRequiresSessionSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidateServe(); err == nil {
		t.Fatal("expected error without session secret")
	}

	cfg.Server.SessionSecret = "0123456789abcdef"
	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
openai:
  model: "gpt-4o"
  timeout: 90s
fetch:
  require_https: true
store:
  backend: redis
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %s", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.Timeout != 90*time.Second {
		t.Errorf("expected timeout 90s, got %s", cfg.OpenAI.Timeout)
	}
	if !cfg.Fetch.RequireHTTPS {
		t.Error("expected require_https to be set")
	}
	if cfg.Store.Backend != StoreRedis {
		t.Errorf("expected redis backend, got %s", cfg.Store.Backend)
	}
	// Defaults survive for keys the file omits.
	if cfg.Fetch.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", cfg.Fetch.MaxAttempts)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMerge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Listen = ":9000"

	cfg.Merge(&Config{
		OpenAI: OpenAIConfig{APIKey: "sk-test"},
		Store:  StoreConfig{Backend: StoreNATS},
	})

	if cfg.Server.Listen != ":9000" {
		t.Errorf("zero values must not override, got listen %s", cfg.Server.Listen)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("expected API key to merge, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.Store.Backend != StoreNATS {
		t.Errorf("expected nats backend, got %s", cfg.Store.Backend)
	}
	if cfg.Store.NATS.Bucket != "SWAGGER2DCAT_DRAFTS" {
		t.Errorf("expected default bucket to survive, got %s", cfg.Store.NATS.Bucket)
	}

	cfg.Merge(nil)
}

func TestLoaderLayers(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	projectDir := t.TempDir()

	project := `
server:
  listen: ":7000"
deepl:
  api_key: "from-file:fx"
`
	if err := os.WriteFile(filepath.Join(projectDir, ProjectConfigFile), []byte(project), 0644); err != nil {
		t.Fatal(err)
	}

	explicit := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(explicit, []byte("openai:\n  model: gpt-4.1-mini\n"), 0644); err != nil {
		t.Fatal(err)
	}

	env := map[string]string{
		EnvDeepLKey:      "from-env:fx",
		EnvSessionSecret: "a-very-long-session-secret",
		EnvAllowPrivate:  "true",
		EnvOpenAIBaseURL: "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg, err := NewLoader(nil).WithDir(projectDir).WithEnv(lookup).Load(explicit)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Listen != ":7000" {
		t.Errorf("expected project listen :7000, got %s", cfg.Server.Listen)
	}
	if cfg.OpenAI.Model != "gpt-4.1-mini" {
		t.Errorf("expected explicit model, got %s", cfg.OpenAI.Model)
	}
	if cfg.DeepL.APIKey != "from-env:fx" {
		t.Errorf("environment should win, got %s", cfg.DeepL.APIKey)
	}
	if cfg.OpenAI.BaseURL != "" {
		t.Errorf("empty env values must not override, got %q", cfg.OpenAI.BaseURL)
	}
	if !cfg.Fetch.AllowPrivate {
		t.Error("expected allow_private from environment")
	}
	if err := cfg.ValidateServe(); err != nil {
		t.Errorf("ValidateServe: %v", err)
	}
}

func TestLoaderMissingExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	lookup := func(string) (string, bool) { return "", false }

	_, err := NewLoader(nil).WithDir(t.TempDir()).WithEnv(lookup).Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestConfigSaveToFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.OpenAI.Model = "saved-model"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.OpenAI.Model != "saved-model" {
		t.Errorf("expected saved-model, got %s", loaded.OpenAI.Model)
	}
	if loaded.Directory.CacheTTL != time.Hour {
		t.Errorf("expected cache TTL to round-trip, got %s", loaded.Directory.CacheTTL)
	}
}
