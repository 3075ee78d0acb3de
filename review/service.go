package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/swagger2dcat/catalog"
	"github.com/c360studio/swagger2dcat/catalogapi"
	"github.com/c360studio/swagger2dcat/deepl"
	"github.com/c360studio/swagger2dcat/describe"
	"github.com/c360studio/swagger2dcat/export"
	"github.com/c360studio/swagger2dcat/llm"
	"github.com/c360studio/swagger2dcat/metrics"
	"github.com/c360studio/swagger2dcat/source/landing"
	"github.com/c360studio/swagger2dcat/source/parser"
	"github.com/c360studio/swagger2dcat/storage"
	"github.com/c360studio/swagger2dcat/translate"
)

// ErrInvalid marks user input the record cannot accept.
var ErrInvalid = errors.New("invalid input")

// TranslationsClearedNotice tells the user that generated texts replaced
// translated ones.
const TranslationsClearedNotice = "Translations were cleared because the English texts changed. Translate again to update them."

// ErrSubmitDisabled is returned when no submitter is configured.
var ErrSubmitDisabled = errors.New("submission is not configured")

// Fetcher loads a service description from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*parser.Source, error)
}

// LandingExtractor reads a landing page.
type LandingExtractor interface {
	Extract(ctx context.Context, pageURL string) (*landing.Page, error)
}

// Directory resolves publishers.
type Directory interface {
	Agents(ctx context.Context) ([]catalogapi.Agent, error)
	Lookup(ctx context.Context, query string) (catalogapi.Agent, bool, error)
	Resolve(ctx context.Context, id string) (*catalog.PublisherMatch, error)
}

// Describer suggests titles, descriptions and keywords.
type Describer interface {
	Enabled() bool
	Describe(ctx context.Context, in describe.Input) (*describe.Suggestion, error)
}

// Translator fills the other languages of a record.
type Translator interface {
	Enabled() bool
	TranslateRecord(ctx context.Context, rec *catalog.Record, source string, targets []string) error
}

// Submitter uploads a record to the catalog.
type Submitter interface {
	Submit(ctx context.Context, token string, rec *catalog.Record) (*catalogapi.SubmitResult, error)
}

// Recorder counts pipeline steps.
type Recorder interface {
	Observe(stage, result string)
}

// StartRequest is the input of a new conversion.
type StartRequest struct {
	URL          string
	LandingPage  string
	PublisherID  string
	ThemeCodes   []string
	AccessRights string
	License      string
}

// Edit is a full form submission of the review page. Title and
// Description replace all four languages; Keywords holds the labels per
// language by position.
type Edit struct {
	Title        catalog.Text
	Description  catalog.Text
	Keywords     map[string][]string
	PublisherID  string
	Contact      *catalog.ContactPoint
	ThemeCodes   []string
	AccessRights string
	License      string
	LandingPage  string
	Version      string
}

// Service runs conversions and keeps their drafts in a store.
type Service struct {
	fetcher    Fetcher
	store      storage.Store
	landing    LandingExtractor
	directory  Directory
	describer  Describer
	translator Translator
	submitter  Submitter
	metrics    Recorder
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLanding enables landing page extraction.
func WithLanding(l LandingExtractor) Option {
	return func(s *Service) { s.landing = l }
}

// WithDirectory enables publisher resolution.
func WithDirectory(d Directory) Option {
	return func(s *Service) { s.directory = d }
}

// WithDescriber enables AI descriptions.
func WithDescriber(d Describer) Option {
	return func(s *Service) { s.describer = d }
}

// WithTranslator enables translations.
func WithTranslator(t Translator) Option {
	return func(s *Service) { s.translator = t }
}

// WithSubmitter enables catalog submission.
func WithSubmitter(sub Submitter) Option {
	return func(s *Service) { s.submitter = sub }
}

// WithMetrics sets the step recorder.
func WithMetrics(r Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service. Enrichment and submission stay disabled
// until their options are given.
func NewService(fetcher Fetcher, store storage.Store, opts ...Option) *Service {
	s := &Service{
		fetcher: fetcher,
		store:   store,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DescribeEnabled reports whether AI descriptions are available.
func (s *Service) DescribeEnabled() bool {
	return s.describer != nil && s.describer.Enabled()
}

// TranslateEnabled reports whether translations are available.
func (s *Service) TranslateEnabled() bool {
	return s.translator != nil && s.translator.Enabled()
}

// SubmitEnabled reports whether catalog submission is available.
func (s *Service) SubmitEnabled() bool {
	return s.submitter != nil
}

// Start fetches, parses and maps the document at req.URL and stores the
// resulting draft. Fetch and parse failures abort; landing page and
// publisher problems only add notices.
func (s *Service) Start(ctx context.Context, req StartRequest) (*Draft, error) {
	req.URL = strings.TrimSpace(req.URL)
	req.LandingPage = strings.TrimSpace(req.LandingPage)
	req.AccessRights = strings.ToUpper(strings.TrimSpace(req.AccessRights))
	if req.AccessRights != "" && !catalog.IsAccessRights(req.AccessRights) {
		return nil, fmt.Errorf("%w: unknown access rights %q", ErrInvalid, req.AccessRights)
	}
	if unknown := catalog.UnknownThemeCodes(req.ThemeCodes); len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown theme codes %s", ErrInvalid, strings.Join(unknown, ", "))
	}

	src, err := s.fetcher.Fetch(ctx, req.URL)
	s.observe(metrics.StageFetch, err)
	if err != nil {
		return nil, err
	}

	meta, err := parser.Parse(src)
	s.observe(metrics.StageParse, err)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	d := &Draft{
		ID:        storage.NewID(),
		State:     StateDraft,
		Metadata:  meta,
		SourceURL: req.URL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, w := range meta.Warnings {
		d.Notice(w)
	}

	ov := catalog.Overrides{
		ThemeCodes:   req.ThemeCodes,
		AccessRights: req.AccessRights,
		License:      req.License,
		LandingPage:  req.LandingPage,
		Issued:       now,
	}

	if req.LandingPage != "" && s.landing != nil {
		page, err := s.landing.Extract(ctx, req.LandingPage)
		s.observe(metrics.StageLanding, err)
		if err != nil {
			s.logger.Warn("Landing page extraction failed", "url", req.LandingPage, "error", err)
			d.Notice(fmt.Sprintf("The landing page could not be read: %v", err))
		} else {
			d.Landing = page
			ov.Documents = page.Documents
		}
	}

	urls := append([]string{req.URL, src.ResolvedURL, req.LandingPage, meta.Contact.URL}, meta.Servers...)
	ov.Publisher = s.resolvePublisher(ctx, d, req.PublisherID, catalog.PublisherKey(meta.Contact), urls)

	d.Record = catalog.Map(meta, ov)
	if d.Landing != nil && len(d.Record.ContactPoints) > 0 {
		cp := &d.Record.ContactPoints[0]
		if addr := d.Landing.Address.String(); addr != "" && cp.HasAddress.IsEmpty() {
			cp.HasAddress = catalog.Uniform(addr)
		}
	}

	d.History = []Event{{Kind: EventCreated, To: StateDraft, Detail: src.ResolvedURL, At: now}}
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info("Draft created", "id", d.ID, "url", req.URL, "spec", src.ResolvedURL, "publisher", d.Record.Publisher.Identifier)
	return d, nil
}

// resolvePublisher picks the publisher: the explicit id, then a directory
// match on the document contact, then the office detected from the URLs.
func (s *Service) resolvePublisher(ctx context.Context, d *Draft, id, key string, urls []string) *catalog.PublisherMatch {
	if s.directory == nil {
		return nil
	}

	id = strings.TrimSpace(id)
	if id == "" && key != "" {
		agent, ok, err := s.directory.Lookup(ctx, key)
		if err != nil {
			s.logger.Warn("Publisher lookup failed", "key", key, "error", err)
			d.Notice("The publisher directory is unavailable; please choose the publisher manually.")
			return nil
		}
		if ok {
			id = agent.ID
		}
	}
	if id == "" {
		agents, err := s.directory.Agents(ctx)
		if err != nil {
			s.logger.Warn("Publisher directory unavailable", "error", err)
			d.Notice("The publisher directory is unavailable; please choose the publisher manually.")
			return nil
		}
		id = catalogapi.DetectOffice(agents, urls...)
	}
	if id == "" {
		return nil
	}

	match, err := s.directory.Resolve(ctx, id)
	if err != nil {
		s.logger.Warn("Publisher resolve failed", "id", id, "error", err)
		d.Notice(fmt.Sprintf("Publisher %q could not be resolved.", id))
		return nil
	}
	return match
}

// Get loads a draft.
func (s *Service) Get(ctx context.Context, id string) (*Draft, error) {
	var d Draft
	if err := storage.GetJSON(ctx, s.store, id, &d); err != nil {
		return nil, fmt.Errorf("load draft %s: %w", id, err)
	}
	return &d, nil
}

// Delete removes a draft.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) save(ctx context.Context, d *Draft) error {
	if err := storage.PutJSON(ctx, s.store, d.ID, d); err != nil {
		return fmt.Errorf("save draft %s: %w", d.ID, err)
	}
	return nil
}

// Save applies a review form to the draft.
func (s *Service) Save(ctx context.Context, id string, e Edit) (*Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Editable() {
		return d, fmt.Errorf("save: %w", ErrTerminal)
	}

	rec := d.Record.Clone()
	rec.Title = trimText(e.Title)
	rec.Description = trimText(e.Description)

	rec.Keywords = []catalog.Keyword{}
	for _, lang := range catalog.Languages {
		if labels, ok := e.Keywords[lang]; ok {
			rec.SetKeywords(lang, labels)
		}
	}

	switch pid := strings.TrimSpace(e.PublisherID); {
	case pid == rec.Publisher.Identifier:
	case pid == "" || s.directory == nil:
		rec.Publisher.Identifier = pid
	default:
		match, err := s.directory.Resolve(ctx, pid)
		if err != nil {
			return d, fmt.Errorf("%w: publisher %q: %v", ErrInvalid, pid, err)
		}
		rec.ApplyPublisher(*match)
	}

	if e.Contact != nil {
		cp := *e.Contact
		if cp.Kind == "" {
			cp.Kind = catalog.ContactKind
		}
		if len(rec.ContactPoints) == 0 {
			rec.ContactPoints = []catalog.ContactPoint{cp}
		} else {
			rec.ContactPoints[0] = cp
		}
	}

	if e.AccessRights != "" {
		if err := rec.SetAccessRights(e.AccessRights); err != nil {
			return d, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	rec.SetThemeCodes(e.ThemeCodes)
	rec.SetLicense(e.License)
	if lp := strings.TrimSpace(e.LandingPage); lp != rec.LandingPage() {
		rec.SetLandingPage(lp)
	}
	if v := strings.TrimSpace(e.Version); v != "" {
		rec.Version = v
	}

	d.Record = rec
	d.ClearNotices()
	if err := d.touch(EventEdited, "", s.now().UTC()); err != nil {
		return d, err
	}
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Generate asks the describer for a title, description, keywords and
// themes and applies them. On failure the draft is left unchanged and
// the error is usually a *describe.EnrichmentError.
func (s *Service) Generate(ctx context.Context, id string) (*Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Editable() {
		return nil, fmt.Errorf("generate: %w", ErrTerminal)
	}
	if !s.DescribeEnabled() {
		return nil, &describe.EnrichmentError{Message: "AI description is not configured.", Err: llm.ErrNotConfigured}
	}

	in := describe.InputFromMetadata(d.Metadata)
	if t := d.Record.Title.Get(catalog.PrimaryLanguage); t != "" {
		in.Title = t
	}
	if desc := d.Record.Description.Get(catalog.PrimaryLanguage); desc != "" {
		in.Description = desc
	}
	in.LandingPageURL = d.Record.LandingPage()
	if d.Landing != nil {
		in.LandingPageContent = d.Landing.Content
	}

	suggestion, err := s.describer.Describe(ctx, in)
	s.observe(metrics.StageDescribe, err)
	if err != nil {
		return nil, err
	}

	if suggestion.Apply(d.Record) {
		d.Notice(TranslationsClearedNotice)
	}
	if err := d.touch(EventGenerated, "", s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Translate fills the other catalog languages from source (the primary
// language when empty). When some languages fail the draft is saved with
// the successful ones and the *translate.PartialError is returned with it;
// when all fail nothing is saved.
func (s *Service) Translate(ctx context.Context, id, source string) (*Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Editable() {
		return nil, fmt.Errorf("translate: %w", ErrTerminal)
	}
	if !s.TranslateEnabled() {
		return nil, deepl.ErrNotConfigured
	}

	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		source = catalog.PrimaryLanguage
	}
	var targets []string
	for _, lang := range catalog.Languages {
		if lang != source {
			targets = append(targets, lang)
		}
	}

	rec := d.Record.Clone()
	err = s.translator.TranslateRecord(ctx, rec, source, targets)

	var partial *translate.PartialError
	switch {
	case err == nil:
		s.observe(metrics.StageTranslate, nil)
	case errors.As(err, &partial) && len(partial.Failed) < len(targets):
		s.metricsObserve(metrics.StageTranslate, metrics.ResultPartial)
		d.Notice(fmt.Sprintf("Translation failed for: %s", strings.Join(partial.Languages(), ", ")))
	default:
		s.observe(metrics.StageTranslate, err)
		return nil, err
	}

	d.Record = rec
	if terr := d.touch(EventTranslated, source, s.now().UTC()); terr != nil {
		return nil, terr
	}
	if serr := s.save(ctx, d); serr != nil {
		return nil, serr
	}
	return d, err
}

// Export renders the draft record in format and marks the draft exported.
// Submitted drafts can still be downloaded; their state does not change.
func (s *Service) Export(ctx context.Context, id string, format export.Format) ([]byte, string, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	data, err := export.Export(d.Record, format)
	s.observe(metrics.StageExport, err)
	if err != nil {
		return nil, "", err
	}

	if d.Editable() {
		if err := d.transition(EventExported, StateExported, string(format), s.now().UTC()); err != nil {
			return nil, "", err
		}
		if err := s.save(ctx, d); err != nil {
			return nil, "", err
		}
	}
	return data, export.FileName(d.Record, format), nil
}

// Submit validates the record and uploads it with the caller's bearer
// token. Failures leave the draft editable with LastError set and a
// submit_failed event in the history; there are no automatic retries.
func (s *Service) Submit(ctx context.Context, id, token string) (*Draft, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Editable() {
		return d, fmt.Errorf("submit: %w", ErrTerminal)
	}
	if s.submitter == nil {
		return d, ErrSubmitDisabled
	}

	var result *catalogapi.SubmitResult
	if verr := d.Record.Validate(); verr != nil {
		err = fmt.Errorf("%w: %v", ErrInvalid, verr)
	} else {
		result, err = s.submitter.Submit(ctx, token, d.Record)
	}
	s.observe(metrics.StageSubmit, err)

	now := s.now().UTC()
	if err != nil {
		d.LastError = submitMessage(err)
		if terr := d.transition(EventSubmitFailed, StateDraft, d.LastError, now); terr != nil {
			return d, terr
		}
		if serr := s.save(ctx, d); serr != nil {
			return nil, serr
		}
		s.logger.Warn("Submission failed", "id", d.ID, "error", err)
		return d, err
	}

	d.LastError = ""
	d.DatasetID = result.DatasetID
	if terr := d.transition(EventSubmitted, StateSubmitted, result.DatasetID, now); terr != nil {
		return d, terr
	}
	if serr := s.save(ctx, d); serr != nil {
		return nil, serr
	}
	s.logger.Info("Draft submitted", "id", d.ID, "dataset_id", result.DatasetID)
	return d, nil
}

// submitMessage returns the user-facing text of a submission error.
func submitMessage(err error) string {
	var se *catalogapi.SubmissionError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

func (s *Service) observe(stage string, err error) {
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}
	s.metricsObserve(stage, result)
}

func (s *Service) metricsObserve(stage, result string) {
	if s.metrics != nil {
		s.metrics.Observe(stage, result)
	}
}

func trimText(t catalog.Text) catalog.Text {
	return catalog.Text{
		DE: strings.TrimSpace(t.DE),
		EN: strings.TrimSpace(t.EN),
		FR: strings.TrimSpace(t.FR),
		IT: strings.TrimSpace(t.IT),
	}
}
