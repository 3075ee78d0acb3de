package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/c360studio/swagger2dcat/catalog"
	"github.com/c360studio/swagger2dcat/config"
	"github.com/c360studio/swagger2dcat/describe"
	"github.com/c360studio/swagger2dcat/export"
	"github.com/c360studio/swagger2dcat/llm"
	"github.com/c360studio/swagger2dcat/review"
	"github.com/c360studio/swagger2dcat/storage"
	"github.com/c360studio/swagger2dcat/translate"
)

// convertOptions are the flags of the convert command.
type convertOptions struct {
	landingPage  string
	publisherID  string
	themes       []string
	accessRights string
	license      string
	describe     bool
	translate    bool
	sourceLang   string
	format       string
	output       string
}

func convertCmd(flags *globalFlags) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert <url>",
		Short: "Map one document to a catalog record",
		Long: `Convert fetches a Swagger/OpenAPI document (or a Swagger UI page), maps it
onto a catalog record and writes the record as JSON or RDF.

AI descriptions and translations run only when requested and configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(flags.logLevel)
			cfg, err := loadConfig(flags.configPath, logger)
			if err != nil {
				return err
			}
			return convert(cmd.Context(), cfg, logger, args[0], opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.landingPage, "landing-page", "", "Landing page URL to read documents and address from")
	f.StringVar(&opts.publisherID, "publisher", "", "Publisher identifier (detected when empty)")
	f.StringSliceVar(&opts.themes, "theme", nil, "Theme code (repeatable)")
	f.StringVar(&opts.accessRights, "access-rights", "", "Access rights code (default PUBLIC)")
	f.StringVar(&opts.license, "license", "", "License code")
	f.BoolVar(&opts.describe, "describe", false, "Generate title, description and keywords with AI")
	f.BoolVar(&opts.translate, "translate", false, "Translate texts into the other catalog languages")
	f.StringVar(&opts.sourceLang, "source-lang", catalog.PrimaryLanguage, "Language to translate from")
	f.StringVarP(&opts.format, "format", "f", string(export.FormatJSON), "Output format (json, turtle, ntriples, jsonld)")
	f.StringVarP(&opts.output, "output", "o", "", "Output file or directory (default stdout)")

	return cmd
}

func convert(ctx context.Context, cfg *config.Config, logger *slog.Logger, rawURL string, opts convertOptions, stdout io.Writer) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	app, err := NewApp(cfg, storage.NewMemoryStore(0), logger)
	if err != nil {
		return err
	}
	defer app.Close()

	d, err := app.svc.Start(ctx, review.StartRequest{
		URL:          rawURL,
		LandingPage:  opts.landingPage,
		PublisherID:  opts.publisherID,
		ThemeCodes:   opts.themes,
		AccessRights: opts.accessRights,
		License:      opts.license,
	})
	if err != nil {
		return fmt.Errorf("convert %s: %w", rawURL, err)
	}

	if opts.describe {
		if _, err := app.svc.Generate(ctx, d.ID); err != nil {
			var ee *describe.EnrichmentError
			if errors.Is(err, llm.ErrNotConfigured) || !errors.As(err, &ee) {
				return fmt.Errorf("describe: %w", err)
			}
			logger.Warn("AI description failed, keeping the document description", "reason", ee.Message, "error", ee.Err)
		}
	}
	if opts.translate {
		if _, err := app.svc.Translate(ctx, d.ID, opts.sourceLang); err != nil && !translate.IsPartialError(err) {
			return fmt.Errorf("translate: %w", err)
		}
	}

	if d, err = app.svc.Get(ctx, d.ID); err != nil {
		return err
	}
	for _, n := range d.Notices {
		logger.Warn(n)
	}

	data, filename, err := app.svc.Export(ctx, d.ID, format)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if opts.output == "" || opts.output == "-" {
		_, err := stdout.Write(data)
		return err
	}

	path := opts.output
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, filename)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Info("Record written", "path", path, "format", format)
	return nil
}
