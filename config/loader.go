package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "swagger2dcat.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/swagger2dcat"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Environment variables read by the loader.
const (
	EnvSessionSecret = "SWAGGER2DCAT_SESSION_SECRET"
	EnvListen        = "SWAGGER2DCAT_LISTEN"
	EnvStoreBackend  = "SWAGGER2DCAT_STORE"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIModel   = "OPENAI_MODEL"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvDeepLKey      = "DEEPL_API_KEY"
	EnvCatalogURL    = "I14Y_API_URL"
	EnvNATSURL       = "NATS_URL"
	EnvRedisURL      = "REDIS_URL"
	EnvAllowPrivate  = "SWAGGER2DCAT_ALLOW_PRIVATE"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	lookup func(string) (string, bool)
	dir    string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, lookup: os.LookupEnv}
}

// WithEnv replaces the environment lookup, for tests.
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	l.lookup = lookup
	return l
}

// WithDir starts the project config search at dir instead of the working
// directory.
func (l *Loader) WithDir(dir string) *Loader {
	l.dir = dir
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/swagger2dcat/config.yaml)
// 3. Project config (swagger2dcat.yaml in current or parent directories)
// 4. Explicit file passed as path (if non-empty)
// 5. Environment variables
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfigPath != "" {
		if layer, err := loadLayer(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			config.Merge(layer)
		} else if !os.IsNotExist(err) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	if projectConfigPath := l.findProjectConfig(); projectConfigPath != "" {
		if layer, err := loadLayer(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(layer)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if path != "" {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", slog.String("path", path))
		config.Merge(layer)
	}

	l.applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv overlays environment variables onto config.
func (l *Loader) applyEnv(config *Config) {
	set := func(key string, dst *string) {
		if v, ok := l.lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(EnvSessionSecret, &config.Server.SessionSecret)
	set(EnvListen, &config.Server.Listen)
	set(EnvStoreBackend, &config.Store.Backend)
	set(EnvOpenAIKey, &config.OpenAI.APIKey)
	set(EnvOpenAIModel, &config.OpenAI.Model)
	set(EnvOpenAIBaseURL, &config.OpenAI.BaseURL)
	set(EnvDeepLKey, &config.DeepL.APIKey)
	set(EnvCatalogURL, &config.Catalog.BaseURL)
	set(EnvNATSURL, &config.Store.NATS.URL)
	set(EnvRedisURL, &config.Store.Redis.URL)

	if v, ok := l.lookup(EnvAllowPrivate); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Fetch.AllowPrivate = b
		} else {
			l.logger.Warn("Ignoring invalid boolean", slog.String("env", EnvAllowPrivate), slog.String("value", v))
		}
	}
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()

	if _, err := os.Stat(userConfigPath); err == nil {
		return nil
	}

	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for swagger2dcat.yaml in the start directory
// and its parents
func (l *Loader) findProjectConfig() string {
	dir := l.dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
