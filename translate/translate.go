// Package translate fans catalog texts out to one translation call per
// target language and applies the results to records.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/swagger2dcat/catalog"
	"github.com/c360studio/swagger2dcat/deepl"
)

// DefaultTargets are the languages filled from the primary language.
var DefaultTargets = []string{catalog.LangDE, catalog.LangFR, catalog.LangIT}

// Backend translates texts between DeepL language codes.
// *deepl.Client satisfies it.
type Backend interface {
	Translate(ctx context.Context, texts []string, source, target string) ([]string, error)
}

// Request asks for Texts in Source to be translated into every Target.
// Languages are catalog codes (de, en, fr, it).
type Request struct {
	Texts   []string
	Source  string
	Targets []string
}

// Result maps a target language to the translated texts, in input order.
type Result map[string][]string

// PartialError lists the target languages that failed.
type PartialError struct {
	Failed map[string]error
}

// Languages returns the failed languages, sorted.
func (e *PartialError) Languages() []string {
	langs := make([]string, 0, len(e.Failed))
	for lang := range e.Failed {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

func (e *PartialError) Error() string {
	langs := e.Languages()
	parts := make([]string, 0, len(langs))
	for _, lang := range langs {
		parts = append(parts, fmt.Sprintf("%s: %v", lang, e.Failed[lang]))
	}
	return "translation failed for " + strings.Join(parts, "; ")
}

// Unwrap exposes the per-language causes to errors.Is and errors.As.
func (e *PartialError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, lang := range e.Languages() {
		errs = append(errs, e.Failed[lang])
	}
	return errs
}

// IsPartialError reports whether err is a *PartialError.
func IsPartialError(err error) bool {
	var pe *PartialError
	return errors.As(err, &pe)
}

// Translator runs translations concurrently, one call per target.
type Translator struct {
	backend     Backend
	concurrency int
	logger      *slog.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithConcurrency bounds the number of languages translated at once.
func WithConcurrency(n int) Option {
	return func(t *Translator) {
		t.concurrency = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) {
		t.logger = logger
	}
}

// New creates a Translator. A nil backend yields a disabled Translator.
func New(backend Backend, opts ...Option) *Translator {
	t := &Translator{backend: backend, concurrency: 3, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Enabled reports whether a backend is configured.
func (t *Translator) Enabled() bool {
	return t != nil && t.backend != nil
}

// Translate translates req.Texts into every target. A failing language
// never stops the others: the successful ones are returned together with
// a *PartialError. When every target fails the Result is nil.
func (t *Translator) Translate(ctx context.Context, req Request) (Result, error) {
	if !t.Enabled() {
		return nil, deepl.ErrNotConfigured
	}

	targets := make([]string, 0, len(req.Targets))
	for _, target := range req.Targets {
		if !strings.EqualFold(target, req.Source) {
			targets = append(targets, strings.ToLower(target))
		}
	}

	result := make(Result, len(targets))
	if len(req.Texts) == 0 {
		for _, target := range targets {
			result[target] = []string{}
		}
		return result, nil
	}

	var (
		mu     sync.Mutex
		failed = make(map[string]error)
		g      errgroup.Group
	)
	if t.concurrency > 0 {
		g.SetLimit(t.concurrency)
	}

	for _, target := range targets {
		g.Go(func() error {
			out, err := t.backend.Translate(ctx, req.Texts, deepl.SourceCode(req.Source), deepl.TargetCode(target))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				t.logger.Warn("Translation failed", "source", req.Source, "target", target, "error", err)
				failed[target] = err
				return nil
			}
			result[target] = out
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		return result, nil
	}
	if len(failed) == len(targets) {
		return nil, &PartialError{Failed: failed}
	}
	return result, &PartialError{Failed: failed}
}

// TranslateRecord translates the title, description and keywords of rec
// from source into targets and writes them in place. Languages that fail
// are left untouched; the returned error is then a *PartialError.
func (t *Translator) TranslateRecord(ctx context.Context, rec *catalog.Record, source string, targets []string) error {
	var (
		texts []string
		slots []func(lang, value string)
	)
	add := func(value string, set func(lang, value string)) {
		if strings.TrimSpace(value) == "" {
			return
		}
		texts = append(texts, value)
		slots = append(slots, set)
	}

	add(rec.Title.Get(source), func(lang, v string) { rec.Title.Set(lang, v) })
	add(rec.Description.Get(source), func(lang, v string) { rec.Description.Set(lang, v) })

	for i := range rec.Keywords {
		add(rec.Keywords[i].Label.Get(source), func(lang, v string) { rec.Keywords[i].Label.Set(lang, v) })
	}

	if len(texts) == 0 {
		return nil
	}

	result, err := t.Translate(ctx, Request{Texts: texts, Source: source, Targets: targets})
	for lang, translated := range result {
		for i, value := range translated {
			if i < len(slots) {
				slots[i](lang, value)
			}
		}
	}
	return err
}
