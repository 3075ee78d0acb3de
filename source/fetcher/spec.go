package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/c360studio/swagger2dcat/source/parser"
	"github.com/c360studio/swagger2dcat/source/weburl"
)

type contentKind int

const (
	kindYAML contentKind = iota
	kindJSON
	kindHTML
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// detectKind classifies a body: an explicit JSON or YAML content type
// wins, otherwise the first non-blank byte decides.
func detectKind(contentType string, body []byte) contentKind {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	mediaType = strings.ToLower(mediaType)
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(body, utf8BOM))

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return kindJSON
	case strings.Contains(mediaType, "yaml") || strings.Contains(mediaType, "yml"):
		return kindYAML
	}

	if len(trimmed) > 0 {
		switch trimmed[0] {
		case '{', '[':
			return kindJSON
		case '<':
			return kindHTML
		}
	}
	if strings.Contains(mediaType, "html") {
		return kindHTML
	}
	return kindYAML
}

func (k contentKind) format() parser.Format {
	if k == kindJSON {
		return parser.FormatJSON
	}
	return parser.FormatYAML
}

// Fetch retrieves the service description behind rawURL. rawURL may point
// at the document itself or at a Swagger UI page; in the latter case the
// page is scanned once for the document URL and that URL is fetched.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*parser.Source, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := f.opts.Policy.Validate(rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	if link, ok := queryLink(rawURL); ok {
		f.logger.Debug("Spec URL from query parameter", slog.String("page", rawURL), slog.String("spec", link.URL))
		return f.fetchLink(ctx, rawURL, link)
	}

	resp, err := f.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	kind := detectKind(resp.ContentType, resp.Body)
	if kind != kindHTML {
		return &parser.Source{
			Raw:         resp.Body,
			Format:      kind.format(),
			OriginalURL: rawURL,
			ResolvedURL: resp.URL,
		}, nil
	}

	link, ok := scanPage(resp.URL, resp.Body)
	if !ok {
		link, ok = f.tryCommonPaths(ctx, resp.URL)
	}
	if !ok {
		return nil, &FetchError{URL: rawURL, Err: ErrSpecURLNotFound}
	}
	f.logger.Debug("Spec URL found on page", slog.String("page", resp.URL), slog.String("spec", link.URL), slog.Bool("config", link.Config))
	return f.fetchLink(ctx, rawURL, link)
}

// fetchLink fetches a discovered link without further HTML scanning.
func (f *Fetcher) fetchLink(ctx context.Context, originalURL string, link specLink) (*parser.Source, error) {
	specURL := link.URL
	if link.Config {
		resolved, err := f.resolveConfig(ctx, link.URL)
		if err != nil {
			return nil, err
		}
		specURL = resolved
	}

	resp, err := f.Get(ctx, specURL)
	if err != nil {
		return nil, err
	}
	kind := detectKind(resp.ContentType, resp.Body)
	if kind == kindHTML {
		return nil, &FetchError{URL: specURL, Err: ErrSpecURLNotFound}
	}
	return &parser.Source{
		Raw:         resp.Body,
		Format:      kind.format(),
		OriginalURL: originalURL,
		ResolvedURL: resp.URL,
		Detected:    true,
	}, nil
}

// resolveConfig reads a Swagger UI config document and returns the spec
// URL it names.
func (f *Fetcher) resolveConfig(ctx context.Context, configURL string) (string, error) {
	resp, err := f.Get(ctx, configURL)
	if err != nil {
		return "", err
	}
	var cfg swaggerConfig
	if err := json.Unmarshal(resp.Body, &cfg); err != nil {
		return "", &FetchError{URL: configURL, Err: fmt.Errorf("invalid Swagger UI config: %w", err)}
	}
	specURL := cfg.specURL()
	if specURL == "" {
		return "", &FetchError{URL: configURL, Err: ErrSpecURLNotFound}
	}
	return weburl.Resolve(resp.URL, specURL), nil
}

// tryCommonPaths tries CommonSpecPaths against the page origin with HEAD requests.
func (f *Fetcher) tryCommonPaths(ctx context.Context, pageURL string) (specLink, bool) {
	for _, path := range CommonSpecPaths {
		candidate := weburl.Resolve(pageURL, path)
		if err := f.opts.Policy.Validate(candidate); err != nil {
			continue
		}
		resp, err := f.do(ctx, http.MethodHead, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return specLink{}, false
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			continue
		}
		ct := strings.ToLower(resp.ContentType)
		if strings.Contains(ct, "json") || strings.Contains(ct, "yaml") ||
			strings.Contains(ct, "octet-stream") || strings.Contains(ct, "text/plain") {
			return specLink{URL: candidate}, true
		}
	}
	return specLink{}, false
}
