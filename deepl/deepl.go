// Package deepl is a small client for the DeepL v2 translate endpoint.
package deepl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	baseURL     = "https://api.deepl.com"
	baseURLFree = "https://api-free.deepl.com"

	maxResponseSize = 2 * 1024 * 1024
)

// ErrNotConfigured is returned by NewClient without an API key.
var ErrNotConfigured = errors.New("deepl: API key not configured")

// httpErrorMessages maps DeepL status codes to readable messages.
var httpErrorMessages = map[int]string{
	400: "Bad request. Please check error message and your parameters.",
	403: "Authorization failed. Please supply a valid auth key.",
	404: "The requested resource could not be found.",
	413: "The request size exceeds the limit.",
	429: "Too many requests. Please wait and resend your request.",
	456: "Quota exceeded. The character limit has been reached.",
	500: "Internal server error.",
	503: "Resource currently unavailable. Try again later.",
	529: "Too many requests. Please wait and resend your request.",
}

// Error is a non-2xx answer from DeepL.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("deepl: HTTP %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the request may succeed when repeated.
func (e *Error) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client calls the DeepL API.
type Client struct {
	apiKey      string
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoffBase time.Duration
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(c *Client)

// WithBaseURL overrides the endpoint chosen from the key type.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less disables it.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithRetry sets the attempt count and the initial backoff.
func WithRetry(maxAttempts int, base time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.backoffBase = base
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client. Keys ending in ":fx" use the free API host.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	c := &Client{
		apiKey:      apiKey,
		baseURL:     getBaseURL(apiKey),
		userAgent:   "swagger2dcat",
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(5), 1),
		maxAttempts: 3,
		backoffBase: 500 * time.Millisecond,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	return c, nil
}

func getBaseURL(apiKey string) string {
	if strings.HasSuffix(apiKey, ":fx") {
		return baseURLFree
	}
	return baseURL
}

// TranslateOptions is the /v2/translate request body.
type TranslateOptions struct {
	Text               []string `json:"text"`
	SourceLang         string   `json:"source_lang,omitempty"`
	TargetLang         string   `json:"target_lang"`
	Formality          string   `json:"formality,omitempty"`
	PreserveFormatting *bool    `json:"preserve_formatting,omitempty"`
}

// Translation is one translated text.
type Translation struct {
	DetectedSourceLanguage string `json:"detected_source_language"`
	Text                   string `json:"text"`
}

type translationsResponse struct {
	Translations []Translation `json:"translations"`
}

// Translate translates texts from source to target, where both are DeepL
// codes (see SourceCode and TargetCode). Results are in input order.
func (c *Client) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out, err := c.TranslateWithOptions(ctx, TranslateOptions{
		Text:       texts,
		SourceLang: source,
		TargetLang: target,
	})
	if err != nil {
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("deepl: got %d translations for %d texts", len(out), len(texts))
	}

	result := make([]string, len(out))
	for i, t := range out {
		result[i] = t.Text
	}
	return result, nil
}

// TranslateWithOptions posts o to /v2/translate.
func (c *Client) TranslateWithOptions(ctx context.Context, o TranslateOptions) ([]Translation, error) {
	body, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("deepl: encode request: %w", err)
	}

	var resp translationsResponse
	if err := c.post(ctx, "/v2/translate", body, &resp); err != nil {
		return nil, err
	}
	return resp.Translations, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, v any) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.backoffBase
	eb.MaxInterval = 10 * time.Second
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxAttempts-1)), ctx)

	op := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		err := c.do(ctx, path, body, v)
		var apiErr *Error
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("DeepL request failed, retrying", "path", path, "backoff", wait, "error", err)
	}
	return backoff.RetryNotify(op, b, notify)
}

func (c *Client) do(ctx context.Context, path string, body []byte, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("deepl: create request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deepl: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("deepl: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return newError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("deepl: decode response: %w", err)
	}
	return nil
}

func newError(status int, body []byte) *Error {
	msg, ok := httpErrorMessages[status]
	if !ok {
		msg = "unknown error"
	}
	var errRes struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errRes) == nil && errRes.Message != "" {
		msg = msg + " --> " + errRes.Message
	}
	return &Error{StatusCode: status, Message: msg}
}
