// Package describe drafts catalog titles, descriptions, keywords and
// theme codes for an API with a chat completion model.
package describe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/c360studio/swagger2dcat/catalog"
	"github.com/c360studio/swagger2dcat/llm"
	"github.com/c360studio/swagger2dcat/source/parser"
)

const (
	// maxOperations bounds the endpoint list sent to the model.
	maxOperations = 30
	// maxLandingChars bounds the landing page excerpt sent to the model.
	maxLandingChars = 1500
	// maxThemeCodes is the most theme codes kept from an answer.
	maxThemeCodes = 3
)

// EnrichmentError reports a failed AI description. Callers keep the
// original values and surface Message to the user.
type EnrichmentError struct {
	Message string
	Err     error
}

func (e *EnrichmentError) Error() string {
	if e.Err == nil {
		return "describe: " + e.Message
	}
	return fmt.Sprintf("describe: %s: %v", e.Message, e.Err)
}

func (e *EnrichmentError) Unwrap() error { return e.Err }

// IsEnrichmentError reports whether err is an *EnrichmentError.
func IsEnrichmentError(err error) bool {
	var ee *EnrichmentError
	return errors.As(err, &ee)
}

// Input is the API context handed to the model.
type Input struct {
	Title              string
	Description        string
	Version            string
	Operations         []parser.Operation
	MethodSummary      string
	LandingPageURL     string
	LandingPageContent string
}

// InputFromMetadata builds an Input from parsed metadata.
func InputFromMetadata(meta *parser.Metadata) Input {
	if meta == nil {
		return Input{}
	}
	return Input{
		Title:         meta.Title,
		Description:   meta.Description,
		Version:       meta.Version,
		Operations:    meta.Operations,
		MethodSummary: meta.EndpointSummary(),
	}
}

// Suggestion is the model's proposal for the primary language.
type Suggestion struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	ThemeCodes  []string `json:"theme_codes"`
}

// Generator produces Suggestions.
type Generator struct {
	client llm.Completer
	tmpl   *template.Template
	logger *slog.Logger
}

// NewGenerator creates a Generator. A nil client yields a Generator whose
// Describe always fails with an EnrichmentError.
func NewGenerator(client llm.Completer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client: client,
		tmpl:   template.Must(template.New("describe").Parse(userPromptTemplate)),
		logger: logger,
	}
}

// Enabled reports whether a model client is configured.
func (g *Generator) Enabled() bool {
	return g != nil && g.client != nil
}

// Describe asks the model for a catalog entry. Every failure is returned
// as an *EnrichmentError.
func (g *Generator) Describe(ctx context.Context, in Input) (*Suggestion, error) {
	if !g.Enabled() {
		return nil, &EnrichmentError{Message: "AI description is not configured", Err: llm.ErrNotConfigured}
	}

	prompt, err := g.render(in)
	if err != nil {
		return nil, &EnrichmentError{Message: "failed to build prompt", Err: err}
	}

	resp, err := g.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		JSON: true,
	})
	if err != nil {
		g.logger.Warn("AI description failed", "title", in.Title, "error", err)
		return nil, &EnrichmentError{Message: "Failed to generate content. Please try again.", Err: err}
	}

	suggestion, err := parseSuggestion(resp.Content)
	if err != nil {
		g.logger.Warn("AI description unusable", "request_id", resp.RequestID, "error", err)
		return nil, &EnrichmentError{Message: "The AI answer could not be used. Please try again.", Err: err}
	}

	g.logger.Debug("AI description generated",
		"request_id", resp.RequestID,
		"keywords", len(suggestion.Keywords),
		"theme_codes", suggestion.ThemeCodes)
	return suggestion, nil
}

type promptData struct {
	Input
	Operations     []parser.Operation
	MoreOperations int
	Themes         []catalog.Theme
}

func (g *Generator) render(in Input) (string, error) {
	data := promptData{Input: in, Operations: in.Operations, Themes: catalog.Themes}
	if len(data.Operations) > maxOperations {
		data.MoreOperations = len(data.Operations) - maxOperations
		data.Operations = data.Operations[:maxOperations]
	}
	if data.MethodSummary == "" {
		data.MethodSummary = "n/a"
	}
	data.LandingPageContent = truncateRunes(strings.TrimSpace(in.LandingPageContent), maxLandingChars)

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseSuggestion decodes and cleans a model answer. An answer without a
// description is rejected.
func parseSuggestion(content string) (*Suggestion, error) {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}

	s.Title = strings.TrimSpace(s.Title)
	s.Description = strings.TrimSpace(s.Description)
	if s.Description == "" {
		return nil, fmt.Errorf("response has no description")
	}

	s.Keywords = catalog.DedupeKeywords(s.Keywords)
	s.ThemeCodes = catalog.NormalizeThemeCodes(s.ThemeCodes)
	if len(s.ThemeCodes) > maxThemeCodes {
		s.ThemeCodes = s.ThemeCodes[:maxThemeCodes]
	}
	return &s, nil
}

// Apply writes the suggestion into the primary language of rec. A title
// or description that changes drops its other languages, which no longer
// match. New keywords replace the whole keyword list, translations
// included. Theme codes replace the record's only when the suggestion has
// any. Apply reports whether translations were dropped.
func (s *Suggestion) Apply(rec *catalog.Record) bool {
	dropped := false
	if s.Title != "" {
		dropped = replacePrimary(&rec.Title, s.Title) || dropped
	}
	if s.Description != "" {
		dropped = replacePrimary(&rec.Description, s.Description) || dropped
	}
	if len(s.Keywords) > 0 {
		for _, kw := range rec.Keywords {
			if hasTranslations(kw.Label) {
				dropped = true
				break
			}
		}
		rec.Keywords = []catalog.Keyword{}
		rec.SetKeywords(catalog.PrimaryLanguage, s.Keywords)
	}
	if len(s.ThemeCodes) > 0 {
		rec.ThemeCodes = s.ThemeCodes
	}
	return dropped
}

// replacePrimary sets the primary language of t to v. When the value
// changes the other languages are cleared; it reports whether any of
// them held text.
func replacePrimary(t *catalog.Text, v string) bool {
	if t.Get(catalog.PrimaryLanguage) == v {
		return false
	}
	hadOthers := hasTranslations(*t)
	*t = catalog.Text{}
	t.Set(catalog.PrimaryLanguage, v)
	return hadOthers
}

func hasTranslations(t catalog.Text) bool {
	for _, lang := range catalog.Languages {
		if lang != catalog.PrimaryLanguage && t.Get(lang) != "" {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
