// Package fetcher retrieves Swagger/OpenAPI documents over HTTP. It follows
// Swagger UI pages to the document they render and retries transient
// failures.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/c360studio/swagger2dcat/source/weburl"
)

// Response is a fetched HTTP body.
type Response struct {
	// URL is the final URL after redirects.
	URL         string
	Body        []byte
	ContentType string
	StatusCode  int
}

// Options configures a Fetcher.
type Options struct {
	Timeout        time.Duration
	UserAgent      string
	MaxContentSize int64
	// MaxAttempts bounds tries per GET, including the first one.
	MaxAttempts int
	// InitialBackoff is the first retry delay.
	InitialBackoff time.Duration
	Policy         weburl.Policy
	Logger         *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = "swagger2dcat/1.0"
	}
	if o.MaxContentSize <= 0 {
		o.MaxContentSize = 10 * 1024 * 1024
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Fetcher fetches documents with security checks and retries.
type Fetcher struct {
	client *http.Client
	opts   Options
	logger *slog.Logger
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	opts.applyDefaults()

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	if !opts.Policy.AllowPrivate {
		transport.Proxy = nil
		transport.DialContext = safeDialContext(dialer)
	}

	policy := opts.Policy
	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				if err := policy.Validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		opts:   opts,
		logger: opts.Logger,
	}
}

// safeDialContext validates resolved IPs to prevent DNS rebinding attacks.
func safeDialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}

		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("DNS lookup failed: %w", err)
		}

		for _, ipAddr := range ips {
			if weburl.IsPrivateIP(ipAddr.IP) {
				return nil, fmt.Errorf("connection to private IP %s is not allowed", ipAddr.IP)
			}
		}

		for _, ipAddr := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ipAddr.IP.String(), port))
			if err == nil {
				return conn, nil
			}
		}

		return nil, fmt.Errorf("failed to connect to any resolved IP")
	}
}

// Get fetches rawURL, retrying network errors, 429 and 5xx responses with
// exponential backoff. Any other non-2xx status fails immediately.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Response, error) {
	if err := f.opts.Policy.Validate(rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	var result *Response
	attempt := 0
	operation := func() error {
		attempt++
		resp, err := f.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrTooLarge) {
				return backoff.Permanent(err)
			}
			return err
		}
		if retryableStatus(resp.StatusCode) {
			return &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return backoff.Permanent(&FetchError{URL: rawURL, StatusCode: resp.StatusCode})
		}
		result = resp
		return nil
	}

	notify := func(err error, wait time.Duration) {
		f.logger.Debug("Retrying fetch",
			slog.String("url", rawURL),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
	}

	if err := backoff.RetryNotify(operation, f.newBackOff(ctx), notify); err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return result, nil
}

func (f *Fetcher) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.opts.InitialBackoff
	b.MaxInterval = 10 * f.opts.InitialBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.opts.MaxAttempts-1)), ctx)
}

// do performs a single request and reads the body with the size limit.
func (f *Fetcher) do(ctx context.Context, method, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/json, application/yaml, text/yaml, text/html;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result := &Response{
		URL:         resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}
	if method == http.MethodHead {
		return result, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxContentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.opts.MaxContentSize {
		return nil, fmt.Errorf("%w (exceeds %d bytes)", ErrTooLarge, f.opts.MaxContentSize)
	}
	result.Body = body
	return result, nil
}
