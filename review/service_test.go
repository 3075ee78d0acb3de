package review

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/swagger2dcat/catalog"
	"github.com/c360studio/swagger2dcat/catalogapi"
	"github.com/c360studio/swagger2dcat/describe"
	"github.com/c360studio/swagger2dcat/export"
	"github.com/c360studio/swagger2dcat/llm"
	"github.com/c360studio/swagger2dcat/source/fetcher"
	"github.com/c360studio/swagger2dcat/source/landing"
	"github.com/c360studio/swagger2dcat/source/parser"
	"github.com/c360studio/swagger2dcat/storage"
	"github.com/c360studio/swagger2dcat/translate"
)

const specJSON = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Address API",
    "description": "Swiss building addresses.",
    "version": "1.2.0",
    "contact": {"name": "Geo Team", "email": "geo@bafu.admin.ch"}
  },
  "servers": [{"url": "https://bafu.admin.ch/api/v1"}],
  "tags": [{"name": "addresses"}, {"name": "Addresses"}],
  "paths": {
    "/addresses": {
      "get": {
        "summary": "List addresses",
        "tags": ["addresses"],
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`

const untaggedSpecJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "Plain API", "version": "1.0.0"},
  "paths": {}
}`

var testNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type fakeFetcher struct {
	body string
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*parser.Source, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &parser.Source{
		Raw:         []byte(f.body),
		Format:      parser.FormatJSON,
		OriginalURL: rawURL,
		ResolvedURL: rawURL,
	}, nil
}

type fakeLanding struct {
	page *landing.Page
	err  error
}

func (f *fakeLanding) Extract(context.Context, string) (*landing.Page, error) {
	return f.page, f.err
}

type fakeDirectory struct {
	agents   []catalogapi.Agent
	byKey    map[string]string
	err      error
	resolved []string
}

func (f *fakeDirectory) Agents(context.Context) ([]catalogapi.Agent, error) {
	return f.agents, f.err
}

func (f *fakeDirectory) Lookup(_ context.Context, query string) (catalogapi.Agent, bool, error) {
	if f.err != nil {
		return catalogapi.Agent{}, false, f.err
	}
	id, ok := f.byKey[query]
	return catalogapi.Agent{ID: id}, ok, nil
}

func (f *fakeDirectory) Resolve(_ context.Context, id string) (*catalog.PublisherMatch, error) {
	f.resolved = append(f.resolved, id)
	for _, a := range f.agents {
		if a.ID == id {
			return &catalog.PublisherMatch{
				ID:    id,
				Name:  catalog.Uniform("Office " + id),
				Email: strings.ToLower(id) + "@admin.ch",
			}, nil
		}
	}
	return nil, catalogapi.ErrUnknownAgent
}

type fakeDescriber struct {
	suggestion *describe.Suggestion
	err        error
	got        describe.Input
}

func (f *fakeDescriber) Enabled() bool { return true }

func (f *fakeDescriber) Describe(_ context.Context, in describe.Input) (*describe.Suggestion, error) {
	f.got = in
	return f.suggestion, f.err
}

type fakeTranslator struct {
	fail map[string]error
}

func (f *fakeTranslator) Enabled() bool { return true }

func (f *fakeTranslator) TranslateRecord(_ context.Context, rec *catalog.Record, source string, targets []string) error {
	failed := map[string]error{}
	for _, lang := range targets {
		if err, ok := f.fail[lang]; ok {
			failed[lang] = err
			continue
		}
		rec.Title.Set(lang, strings.ToUpper(lang)+" "+rec.Title.Get(source))
	}
	if len(failed) > 0 {
		return &translate.PartialError{Failed: failed}
	}
	return nil
}

type fakeSubmitter struct {
	result *catalogapi.SubmitResult
	err    error
	calls  int
}

func (f *fakeSubmitter) Submit(context.Context, string, *catalog.Record) (*catalogapi.SubmitResult, error) {
	f.calls++
	return f.result, f.err
}

type countingRecorder map[string]int

func (c countingRecorder) Observe(stage, result string) { c[stage+"/"+result]++ }

func newTestService(opts ...Option) (*Service, *storage.MemoryStore) {
	store := storage.NewMemoryStore(time.Hour)
	base := []Option{WithClock(func() time.Time { return testNow })}
	return NewService(&fakeFetcher{body: specJSON}, store, append(base, opts...)...), store
}

func bafuDirectory() *fakeDirectory {
	return &fakeDirectory{
		agents: []catalogapi.Agent{
			{ID: "CH_BAFU", DisplayName: "Federal Office for the Environment"},
			{ID: "CH_BFS", DisplayName: "Federal Statistical Office"},
		},
		byKey: map[string]string{},
	}
}

func TestStart(t *testing.T) {
	rec := countingRecorder{}
	svc, store := newTestService(WithMetrics(rec))

	d, err := svc.Start(context.Background(), StartRequest{URL: " https://bafu.admin.ch/api/openapi.json "})
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, StateDraft, d.State)
	assert.Equal(t, "https://bafu.admin.ch/api/openapi.json", d.SourceURL)
	assert.Equal(t, "Address API", d.Record.Title.EN)
	assert.Equal(t, "1.2.0", d.Record.Version)
	assert.Equal(t, "2026-10-15", d.Record.Issued)
	assert.Equal(t, []string{"addresses"}, d.Record.KeywordsIn(catalog.LangEN))
	assert.Empty(t, d.Record.Publisher.Identifier)
	require.Len(t, d.History, 1)
	assert.Equal(t, EventCreated, d.History[0].Kind)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, rec["fetch/ok"])
	assert.Equal(t, 1, rec["parse/ok"])

	loaded, err := svc.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Record.Title, loaded.Record.Title)
	assert.Equal(t, "Address API", loaded.Metadata.Title)
}

func TestStartFailures(t *testing.T) {
	fetchErr := &fetcher.FetchError{URL: "https://x.example", Err: fetcher.ErrSpecURLNotFound}

	tests := []struct {
		name    string
		fetcher *fakeFetcher
		check   func(t *testing.T, err error)
	}{
		{
			name:    "fetch error",
			fetcher: &fakeFetcher{err: fetchErr},
			check: func(t *testing.T, err error) {
				assert.True(t, fetcher.IsFetchError(err))
			},
		},
		{
			name:    "parse error",
			fetcher: &fakeFetcher{body: `{"hello": "world"}`},
			check: func(t *testing.T, err error) {
				assert.True(t, parser.IsParseError(err))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore(time.Hour)
			svc := NewService(tt.fetcher, store)

			d, err := svc.Start(context.Background(), StartRequest{URL: "https://x.example"})
			require.Error(t, err)
			assert.Nil(t, d)
			tt.check(t, err)
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestStartValidatesVocabulary(t *testing.T) {
	tests := []struct {
		name string
		req  StartRequest
	}{
		{"unknown access rights", StartRequest{AccessRights: "BOGUS"}},
		{"unknown theme", StartRequest{ThemeCodes: []string{"122", "999"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService()
			tt.req.URL = "https://x.example/openapi.json"

			d, err := svc.Start(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Nil(t, d)
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestStartNormalizesAccessRights(t *testing.T) {
	svc, _ := newTestService()

	d, err := svc.Start(context.Background(), StartRequest{
		URL:          "https://x.example/openapi.json",
		AccessRights: " restricted ",
		ThemeCodes:   []string{"122", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, catalog.AccessRestricted, d.Record.AccessRights.Code)
	assert.Equal(t, []string{"122"}, d.Record.ThemeCodes)
}

func TestSaveWithoutKeywordsKeepsEmptyList(t *testing.T) {
	svc := NewService(&fakeFetcher{body: untaggedSpecJSON}, storage.NewMemoryStore(time.Hour))
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json"})
	require.NoError(t, err)
	require.Empty(t, d.Record.Keywords)

	d, err = svc.Save(ctx, d.ID, Edit{
		Title:    d.Record.Title,
		Keywords: map[string][]string{"de": {}, "en": {}, "fr": {}, "it": {}},
	})
	require.NoError(t, err)
	assert.NotNil(t, d.Record.Keywords)

	data, _, err := svc.Export(ctx, d.ID, export.FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"keywords": []`)
	assert.NotContains(t, string(data), "null")
}

func TestStartDetectsPublisherFromHost(t *testing.T) {
	dir := bafuDirectory()
	svc, _ := newTestService(WithDirectory(dir))

	d, err := svc.Start(context.Background(), StartRequest{URL: "https://bafu.admin.ch/api/openapi.json"})
	require.NoError(t, err)

	assert.Equal(t, "CH_BAFU", d.Record.Publisher.Identifier)
	assert.Equal(t, "Office CH_BAFU", d.Record.ContactPoints[0].Fn.DE)
	assert.Equal(t, "ch_bafu@admin.ch", d.Record.ContactPoints[0].HasEmail)
	assert.Equal(t, []string{"CH_BAFU"}, dir.resolved)
}

func TestStartPublisherPrecedence(t *testing.T) {
	t.Run("explicit id wins", func(t *testing.T) {
		dir := bafuDirectory()
		dir.byKey["bafu.admin.ch"] = "CH_BAFU"
		svc, _ := newTestService(WithDirectory(dir))

		d, err := svc.Start(context.Background(), StartRequest{URL: "https://x.example/openapi.json", PublisherID: "CH_BFS"})
		require.NoError(t, err)
		assert.Equal(t, "CH_BFS", d.Record.Publisher.Identifier)
	})

	t.Run("contact email domain", func(t *testing.T) {
		dir := bafuDirectory()
		dir.byKey["bafu.admin.ch"] = "CH_BFS"
		svc, _ := newTestService(WithDirectory(dir))

		d, err := svc.Start(context.Background(), StartRequest{URL: "https://x.example/openapi.json"})
		require.NoError(t, err)
		assert.Equal(t, "CH_BFS", d.Record.Publisher.Identifier)
	})

	t.Run("directory down", func(t *testing.T) {
		dir := bafuDirectory()
		dir.err = errors.New("HTTP 502")
		svc, _ := newTestService(WithDirectory(dir))

		d, err := svc.Start(context.Background(), StartRequest{URL: "https://bafu.admin.ch/openapi.json"})
		require.NoError(t, err)
		assert.Empty(t, d.Record.Publisher.Identifier)
		assert.Contains(t, d.Notices, "The publisher directory is unavailable; please choose the publisher manually.")
	})
}

func TestStartWithLandingPage(t *testing.T) {
	page := &landing.Page{
		URL:     "https://example.ch/en/address-api",
		Content: "About the address API.",
		Documents: []catalog.DocumentLink{
			{URL: "https://example.ch/manual.pdf", Label: "Manual", Type: "pdf"},
		},
		Address: landing.Address{Name: "Geo Office", Street: "Main 1", PostalCode: "3003", City: "Bern"},
	}
	svc, _ := newTestService(WithLanding(&fakeLanding{page: page}))

	d, err := svc.Start(context.Background(), StartRequest{
		URL:         "https://x.example/openapi.json",
		LandingPage: page.URL,
	})
	require.NoError(t, err)

	require.NotNil(t, d.Landing)
	assert.Equal(t, page.URL, d.Record.LandingPage())
	assert.Equal(t, page.Address.String(), d.Record.ContactPoints[0].HasAddress.EN)

	var uris []string
	for _, doc := range d.Record.Documents {
		uris = append(uris, doc.URI)
	}
	assert.Contains(t, uris, "https://example.ch/manual.pdf")
}

func TestStartLandingFailureIsNotice(t *testing.T) {
	rec := countingRecorder{}
	svc, _ := newTestService(WithLanding(&fakeLanding{err: errors.New("HTTP 404")}), WithMetrics(rec))

	d, err := svc.Start(context.Background(), StartRequest{
		URL:         "https://x.example/openapi.json",
		LandingPage: "https://example.ch/missing",
	})
	require.NoError(t, err)

	assert.Nil(t, d.Landing)
	assert.Equal(t, "https://example.ch/missing", d.Record.LandingPage())
	require.NotEmpty(t, d.Notices)
	assert.Contains(t, d.Notices[len(d.Notices)-1], "HTTP 404")
	assert.Equal(t, 1, rec["landing/error"])
}

func TestSave(t *testing.T) {
	dir := bafuDirectory()
	svc, _ := newTestService(WithDirectory(dir))
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json"})
	require.NoError(t, err)

	d, err = svc.Save(ctx, d.ID, Edit{
		Title:        catalog.Text{EN: " Address API ", DE: "Adress-API"},
		Description:  catalog.Text{EN: "Addresses of Swiss buildings."},
		Keywords:     map[string][]string{"en": {"addresses", "buildings"}, "de": {"Adressen"}},
		PublisherID:  "CH_BFS",
		ThemeCodes:   []string{"122", "999"},
		AccessRights: "restricted",
		License:      "terms_by",
		LandingPage:  "https://example.ch/api",
		Version:      "1.3.0",
	})
	require.NoError(t, err)

	rec := d.Record
	assert.Equal(t, "Address API", rec.Title.EN)
	assert.Equal(t, "Adress-API", rec.Title.DE)
	assert.Equal(t, []string{"addresses", "buildings"}, rec.KeywordsIn("en"))
	assert.Equal(t, []string{"Adressen"}, rec.KeywordsIn("de"))
	assert.Equal(t, "CH_BFS", rec.Publisher.Identifier)
	assert.Equal(t, "Office CH_BFS", rec.ContactPoints[0].Fn.EN)
	assert.Equal(t, []string{"122"}, rec.ThemeCodes)
	assert.Equal(t, catalog.AccessRestricted, rec.AccessRights.Code)
	require.NotNil(t, rec.License)
	assert.Equal(t, "terms_by", rec.License.Code)
	assert.Equal(t, "https://example.ch/api", rec.LandingPage())
	assert.Equal(t, "1.3.0", rec.Version)
	assert.Equal(t, EventEdited, d.History[len(d.History)-1].Kind)
}

func TestSaveRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(WithDirectory(bafuDirectory()))
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json"})
	require.NoError(t, err)

	_, err = svc.Save(ctx, d.ID, Edit{Title: d.Record.Title, AccessRights: "SECRET"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Save(ctx, d.ID, Edit{Title: d.Record.Title, PublisherID: "CH_NOPE"})
	assert.ErrorIs(t, err, ErrInvalid)

	loaded, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.History, 1)
}

func TestSaveContactOverride(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json"})
	require.NoError(t, err)

	d, err = svc.Save(ctx, d.ID, Edit{
		Title:   d.Record.Title,
		Contact: &catalog.ContactPoint{Fn: catalog.Uniform("Service Desk"), HasEmail: "desk@example.ch"},
	})
	require.NoError(t, err)
	assert.Equal(t, "desk@example.ch", d.Record.ContactPoints[0].HasEmail)
	assert.Equal(t, catalog.ContactKind, d.Record.ContactPoints[0].Kind)
}

func TestGenerate(t *testing.T) {
	desc := &fakeDescriber{suggestion: &describe.Suggestion{
		Title:       "Swiss Address Service",
		Description: "Search building addresses.",
		Keywords:    []string{"address", "geodata"},
		ThemeCodes:  []string{"122"},
	}}
	page := &landing.Page{URL: "https://example.ch/api", Content: "Landing text"}
	svc, _ := newTestService(WithDescriber(desc), WithLanding(&fakeLanding{page: page}))
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json", LandingPage: page.URL})
	require.NoError(t, err)

	d, err = svc.Generate(ctx, d.ID)
	require.NoError(t, err)

	assert.Equal(t, "Swiss Address Service", d.Record.Title.EN)
	assert.Equal(t, "Search building addresses.", d.Record.Description.EN)
	assert.Equal(t, []string{"address", "geodata"}, d.Record.KeywordsIn("en"))
	assert.Equal(t, []string{"122"}, d.Record.ThemeCodes)
	assert.Equal(t, EventGenerated, d.History[len(d.History)-1].Kind)

	assert.Equal(t, "Address API", desc.got.Title)
	assert.Equal(t, "https://example.ch/api", desc.got.LandingPageURL)
	assert.Equal(t, "Landing text", desc.got.LandingPageContent)
	assert.Len(t, desc.got.Operations, 1)
}

func TestGenerateAfterTranslateClearsStaleLanguages(t *testing.T) {
	desc := &fakeDescriber{suggestion: &describe.Suggestion{
		Title:       "Swiss Address Service",
		Description: "Search building addresses.",
	}}
	svc, _ := newTestService(WithDescriber(desc), WithTranslator(&fakeTranslator{}))
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json"})
	require.NoError(t, err)
	assert.NotContains(t, d.Notices, TranslationsClearedNotice)

	_, err = svc.Translate(ctx, d.ID, "")
	require.NoError(t, err)

	d, err = svc.Generate(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.Text{EN: "Swiss Address Service"}, d.Record.Title)
	assert.Equal(t, catalog.Text{EN: "Search building addresses."}, d.Record.Description)
	assert.Contains(t, d.Notices, TranslationsClearedNotice)
}

func TestGenerateFailureKeepsDraft(t *testing.T) {
	desc := &fakeDescriber{err: &describe.EnrichmentError{Message: "Failed to generate content. Please try again."}}
	svc, _ := newTestService(WithDescriber(desc))
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json"})
	require.NoError(t, err)

	_, err = svc.Generate(ctx, d.ID)
	assert.True(t, describe.IsEnrichmentError(err))

	loaded, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Address API", loaded.Record.Title.EN)
	assert.Len(t, loaded.History, 1)
}

func TestGenerateNotConfigured(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json"})
	require.NoError(t, err)

	_, err = svc.Generate(ctx, d.ID)
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
	assert.False(t, svc.DescribeEnabled())
}

func TestTranslate(t *testing.T) {
	svc, _ := newTestService(WithTranslator(&fakeTranslator{}))
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json"})
	require.NoError(t, err)

	d, err = svc.Translate(ctx, d.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "DE Address API", d.Record.Title.DE)
	assert.Equal(t, "FR Address API", d.Record.Title.FR)
	assert.Equal(t, "IT Address API", d.Record.Title.IT)
	assert.Equal(t, "en", d.History[len(d.History)-1].Detail)
}

func TestTranslatePartialAndTotalFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("one language fails", func(t *testing.T) {
		rec := countingRecorder{}
		svc, _ := newTestService(
			WithTranslator(&fakeTranslator{fail: map[string]error{"it": errors.New("quota")}}),
			WithMetrics(rec),
		)
		d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json"})
		require.NoError(t, err)

		d, err = svc.Translate(ctx, d.ID, "en")
		require.Error(t, err)
		assert.True(t, translate.IsPartialError(err))
		require.NotNil(t, d)
		assert.Equal(t, "DE Address API", d.Record.Title.DE)
		assert.Empty(t, d.Record.Title.IT)
		assert.Contains(t, d.Notices, "Translation failed for: it")
		assert.Equal(t, 1, rec["translate/partial"])

		loaded, err := svc.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "FR Address API", loaded.Record.Title.FR)
	})

	t.Run("every language fails", func(t *testing.T) {
		boom := errors.New("down")
		svc, _ := newTestService(WithTranslator(&fakeTranslator{fail: map[string]error{"de": boom, "fr": boom, "it": boom}}))
		d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json"})
		require.NoError(t, err)

		got, err := svc.Translate(ctx, d.ID, "en")
		require.Error(t, err)
		assert.Nil(t, got)

		loaded, err := svc.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Len(t, loaded.History, 1)
	})
}

func TestExport(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json"})
	require.NoError(t, err)

	data, name, err := svc.Export(ctx, d.ID, export.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "address_api_dcat.json", name)
	assert.Contains(t, string(data), `"title"`)

	loaded, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StateExported, loaded.State)

	// Editing an exported draft returns it to draft.
	loaded, err = svc.Save(ctx, d.ID, Edit{Title: loaded.Record.Title, Description: loaded.Record.Description})
	require.NoError(t, err)
	assert.Equal(t, StateDraft, loaded.State)

	_, name, err = svc.Export(ctx, d.ID, export.FormatTurtle)
	require.NoError(t, err)
	assert.Equal(t, "address_api_dcat.ttl", name)
}

func TestSubmit(t *testing.T) {
	dir := bafuDirectory()
	sub := &fakeSubmitter{result: &catalogapi.SubmitResult{DatasetID: "ds-42"}}
	rec := countingRecorder{}
	svc, _ := newTestService(WithDirectory(dir), WithSubmitter(sub), WithMetrics(rec))
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://bafu.admin.ch/openapi.json"})
	require.NoError(t, err)

	d, err = svc.Submit(ctx, d.ID, "Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, d.State)
	assert.Equal(t, "ds-42", d.DatasetID)
	assert.Equal(t, 1, rec["submit/ok"])

	// Submitted is terminal.
	_, err = svc.Submit(ctx, d.ID, "Bearer abc")
	assert.ErrorIs(t, err, ErrTerminal)
	_, err = svc.Save(ctx, d.ID, Edit{Title: d.Record.Title})
	assert.ErrorIs(t, err, ErrTerminal)
	_, err = svc.Translate(ctx, d.ID, "")
	assert.ErrorIs(t, err, ErrTerminal)
	assert.Equal(t, 1, sub.calls)

	// Downloads still work without changing state.
	_, _, err = svc.Export(ctx, d.ID, export.FormatJSON)
	require.NoError(t, err)
	loaded, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, loaded.State)
}

func TestSubmitFailureRecorded(t *testing.T) {
	dir := bafuDirectory()
	sub := &fakeSubmitter{err: &catalogapi.SubmissionError{StatusCode: 401, Message: "Authentication failed. Please check your access token."}}
	svc, _ := newTestService(WithDirectory(dir), WithSubmitter(sub))
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://bafu.admin.ch/openapi.json"})
	require.NoError(t, err)
	_, _, err = svc.Export(ctx, d.ID, export.FormatJSON)
	require.NoError(t, err)

	d, err = svc.Submit(ctx, d.ID, "Bearer bad")
	require.Error(t, err)
	assert.True(t, catalogapi.IsSubmissionError(err))
	assert.Equal(t, StateDraft, d.State)
	assert.Equal(t, "Authentication failed. Please check your access token.", d.LastError)

	last := d.History[len(d.History)-1]
	assert.Equal(t, EventSubmitFailed, last.Kind)
	assert.Equal(t, StateExported, last.From)

	// The user may retry.
	sub.err = nil
	sub.result = &catalogapi.SubmitResult{DatasetID: "ds-1"}
	d, err = svc.Submit(ctx, d.ID, "Bearer good")
	require.NoError(t, err)
	assert.Empty(t, d.LastError)
	assert.Equal(t, StateSubmitted, d.State)
}

func TestSubmitValidatesFirst(t *testing.T) {
	sub := &fakeSubmitter{}
	svc, _ := newTestService(WithSubmitter(sub))
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json"})
	require.NoError(t, err)

	d, err = svc.Submit(ctx, d.ID, "Bearer abc")
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, d.LastError, "publisher is required")
	assert.Equal(t, 0, sub.calls)
}

func TestSubmitDisabled(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	d, err := svc.Start(ctx, StartRequest{URL: "https://x.example/openapi.json"})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, d.ID, "Bearer abc")
	assert.ErrorIs(t, err, ErrSubmitDisabled)
}

func TestGetMissing(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
