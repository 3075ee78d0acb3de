// Package web serves the review interface: a start form, an editable
// record page with enrichment buttons, downloads and catalog submission.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/swagger2dcat/catalog"
	"github.com/c360studio/swagger2dcat/catalogapi"
	"github.com/c360studio/swagger2dcat/metrics"
	"github.com/c360studio/swagger2dcat/review"
)

//go:embed templates/*.html
var templateFS embed.FS

// Publishers lists the publisher directory.
type Publishers interface {
	Agents(ctx context.Context) ([]catalogapi.Agent, error)
}

// Server holds the HTTP handlers.
type Server struct {
	svc        *review.Service
	sessions   *Sessions
	publishers Publishers
	metrics    *metrics.Metrics
	pages      map[string]*template.Template
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithPublishers enables the publisher select and /api/publishers.
func WithPublishers(p Publishers) Option {
	return func(s *Server) { s.publishers = p }
}

// WithMetrics enables request metrics and /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a Server and parses its templates.
func New(svc *review.Service, sessions *Sessions, opts ...Option) (*Server, error) {
	s := &Server{
		svc:      svc,
		sessions: sessions,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.pages = make(map[string]*template.Template)
	for _, page := range []string{"start", "review"} {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		s.pages[page] = t
	}
	return s, nil
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "GET /{$}", s.handleIndex)
	s.handle(mux, "GET /start", s.handleStartForm)
	s.handle(mux, "POST /start", s.handleStart)
	s.handle(mux, "GET /review", s.handleReview)
	s.handle(mux, "POST /review", s.handleSave)
	s.handle(mux, "POST /generate", s.handleGenerate)
	s.handle(mux, "POST /translate", s.handleTranslate)
	s.handle(mux, "GET /download", s.handleDownload)
	s.handle(mux, "POST /submit", s.handleSubmit)
	s.handle(mux, "GET /api/publishers", s.handlePublishers)
	s.handle(mux, "GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	route := pattern[strings.Index(pattern, " ")+1:]
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.ObserveRequest(route, r.Method, rec.status, time.Since(start))
		s.logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

var templateFuncs = template.FuncMap{
	"text": func(t catalog.Text, lang string) string { return t.Get(lang) },
	"keywords": func(rec *catalog.Record, lang string) string {
		return strings.TrimRight(strings.Join(rec.KeywordSlots(lang), ", "), ", ")
	},
	"contains": func(list []string, s string) bool {
		for _, v := range list {
			if v == s {
				return true
			}
		}
		return false
	},
	"upper": strings.ToUpper,
	"contact": func(rec *catalog.Record) catalog.ContactPoint {
		if len(rec.ContactPoints) == 0 {
			return catalog.ContactPoint{}
		}
		return rec.ContactPoints[0]
	},
	"license": func(rec *catalog.Record) string {
		if rec.License == nil {
			return ""
		}
		return rec.License.Code
	},
}

// pageData is the view model of both pages.
type pageData struct {
	Error            string
	Notices          []string
	Draft            *review.Draft
	Form             startForm
	Agents           []catalogapi.Agent
	Themes           []catalog.Theme
	AccessRights     []string
	Licenses         []string
	Languages        []string
	DescribeEnabled  bool
	TranslateEnabled bool
	SubmitEnabled    bool
}

type startForm struct {
	URL         string
	LandingPage string
	PublisherID string
}

func (s *Server) newPageData(ctx context.Context) pageData {
	data := pageData{
		Themes:           catalog.Themes,
		AccessRights:     catalog.AccessRightsCodes,
		Licenses:         catalog.LicenseCodes,
		Languages:        catalog.Languages,
		DescribeEnabled:  s.svc.DescribeEnabled(),
		TranslateEnabled: s.svc.TranslateEnabled(),
		SubmitEnabled:    s.svc.SubmitEnabled(),
	}
	if s.publishers != nil {
		agents, err := s.publishers.Agents(ctx)
		if err != nil {
			s.logger.Warn("Publisher directory unavailable", "error", err)
			data.Notices = append(data.Notices, "The publisher directory is currently unavailable.")
		}
		data.Agents = agents
	}
	return data
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		s.logger.Error("Template render failed", "page", page, "error", err)
	}
}
