package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/c360studio/swagger2dcat/catalogapi"
	"github.com/c360studio/swagger2dcat/config"
	"github.com/c360studio/swagger2dcat/deepl"
	"github.com/c360studio/swagger2dcat/describe"
	"github.com/c360studio/swagger2dcat/llm"
	"github.com/c360studio/swagger2dcat/metrics"
	"github.com/c360studio/swagger2dcat/review"
	"github.com/c360studio/swagger2dcat/source/fetcher"
	"github.com/c360studio/swagger2dcat/source/landing"
	"github.com/c360studio/swagger2dcat/source/weburl"
	"github.com/c360studio/swagger2dcat/storage"
	"github.com/c360studio/swagger2dcat/translate"
)

// App wires the conversion pipeline for both commands.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     storage.Store
	directory *catalogapi.Directory
	metrics   *metrics.Metrics
	svc       *review.Service
}

// NewApp builds every component from cfg. Optional services without
// credentials stay disabled. The store is owned by the App.
func NewApp(cfg *config.Config, store storage.Store, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f := fetcher.New(fetcher.Options{
		Timeout:        cfg.Fetch.Timeout,
		UserAgent:      cfg.Fetch.UserAgent,
		MaxContentSize: cfg.Fetch.MaxContentSize,
		MaxAttempts:    cfg.Fetch.MaxAttempts,
		Policy: weburl.Policy{
			AllowHTTP:    !cfg.Fetch.RequireHTTPS,
			AllowPrivate: cfg.Fetch.AllowPrivate,
		},
		Logger: logger,
	})

	client := catalogapi.NewClient(catalogapi.Config{
		BaseURL:   cfg.Catalog.BaseURL,
		Timeout:   cfg.Catalog.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
	}, logger)

	dirOpts := []catalogapi.DirectoryOption{catalogapi.WithCacheTTL(cfg.Directory.CacheTTL)}
	if cfg.Directory.StaatskalenderURL != "" {
		dirOpts = append(dirOpts, catalogapi.WithStaatskalender(catalogapi.NewStaatskalender(client, cfg.Directory.StaatskalenderURL)))
	}
	directory := catalogapi.NewDirectory(client, dirOpts...)

	describer, err := newDescriber(cfg.OpenAI, logger)
	if err != nil {
		return nil, err
	}
	translator, err := newTranslator(cfg.DeepL, logger)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	svc := review.NewService(f, store,
		review.WithLanding(landing.NewExtractor(f, logger)),
		review.WithDirectory(directory),
		review.WithDescriber(describer),
		review.WithTranslator(translator),
		review.WithSubmitter(client),
		review.WithMetrics(m),
		review.WithLogger(logger),
	)

	logger.Debug("Pipeline ready",
		"describe", describer.Enabled(),
		"translate", translator.Enabled(),
		"catalog", client.BaseURL())

	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		directory: directory,
		metrics:   m,
		svc:       svc,
	}, nil
}

func newDescriber(cfg config.OpenAIConfig, logger *slog.Logger) (*describe.Generator, error) {
	retry := llm.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries + 1

	client, err := llm.NewClient(llm.Config{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	}, llm.WithRetryConfig(retry), llm.WithLogger(logger))
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Info("AI descriptions disabled (no OpenAI API key)")
		return describe.NewGenerator(nil, logger), nil
	case err != nil:
		return nil, fmt.Errorf("create OpenAI client: %w", err)
	}
	return describe.NewGenerator(client, logger), nil
}

func newTranslator(cfg config.DeepLConfig, logger *slog.Logger) (*translate.Translator, error) {
	opts := []deepl.Option{
		deepl.WithRateLimit(cfg.RequestsPerSecond),
		deepl.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		deepl.WithLogger(logger),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, deepl.WithBaseURL(cfg.BaseURL))
	}

	client, err := deepl.NewClient(cfg.APIKey, opts...)
	switch {
	case errors.Is(err, deepl.ErrNotConfigured):
		logger.Info("Translation disabled (no DeepL API key)")
		return translate.New(nil, translate.WithLogger(logger)), nil
	case err != nil:
		return nil, fmt.Errorf("create DeepL client: %w", err)
	}
	return translate.New(client, translate.WithLogger(logger)), nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.store.Close()
}

// openStore opens the configured draft store.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	store, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	return store, nil
}
