package landing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/swagger2dcat/catalog"
	"github.com/c360studio/swagger2dcat/source/fetcher"
)

const officePage = `<!DOCTYPE html>
<html>
<head>
  <title> Statistics API </title>
  <meta name="description" content="Open statistical data for everyone.">
</head>
<body>
  <nav><a href="/de/">Home</a></nav>
  <main>
    <h1>Statistics API</h1>
    <p>The API publishes <strong>population</strong> figures.</p>
    <ul><li>Daily updates</li></ul>
    <script>var tracking = true;</script>
  </main>
  <div class="documents">
    <a href="/files/handbook.pdf">Handbook</a>
    <a href="/files/schema.xlsx?v=2"><img src="x.png" alt="Schema table"></a>
    <a href="/files/terms.docx"></a>
    <a href="/files/handbook.pdf">Handbook again</a>
  </div>
  <a href="/files/other.pdf">Outside section</a>
  <address>
    <span>Data Section</span>
    <span itemprop="name">Federal Statistical Office</span>
    <span itemprop="street-address">Espace de l'Europe 10</span>
    <span itemprop="postal-code">2010</span>
    <span itemprop="locality">Neuchâtel</span>
  </address>
  <footer>Copyright</footer>
</body>
</html>`

type fakeGetter struct {
	pages map[string]string
	calls []string
}

func (f *fakeGetter) Get(_ context.Context, rawURL string) (*fetcher.Response, error) {
	f.calls = append(f.calls, rawURL)
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, errors.New("not found")
	}
	return &fetcher.Response{URL: rawURL, Body: []byte(body), StatusCode: 200}, nil
}

func TestParse(t *testing.T) {
	e := NewExtractor(nil, nil)
	page, err := e.Parse("https://www.example.admin.ch/en/stats.html", []byte(officePage))
	require.NoError(t, err)

	assert.Equal(t, "en", page.Language)
	assert.Equal(t, "Statistics API", page.Title)
	assert.Equal(t, "Open statistical data for everyone.", page.Description)

	assert.Contains(t, page.Content, "# Statistics API")
	assert.Contains(t, page.Content, "**population**")
	assert.Contains(t, page.Content, "Daily updates")
	assert.NotContains(t, page.Content, "tracking")
	assert.NotContains(t, page.Content, "Copyright")

	assert.Equal(t, []catalog.DocumentLink{
		{URL: "https://www.example.admin.ch/files/handbook.pdf", Label: "Handbook", Type: "pdf"},
		{URL: "https://www.example.admin.ch/files/schema.xlsx?v=2", Label: "Schema table", Type: "xlsx"},
		{URL: "https://www.example.admin.ch/files/terms.docx", Label: "terms.docx", Type: "docx"},
	}, page.Documents)

	assert.Equal(t, Address{
		Name:       "Federal Statistical Office",
		Section:    "Data Section",
		Street:     "Espace de l'Europe 10",
		PostalCode: "2010",
		City:       "Neuchâtel",
	}, page.Address)
}

func TestParseFallbacks(t *testing.T) {
	e := NewExtractor(nil, nil)
	html := `<html><body><header>Top</header><p>Plain body text.</p>
<a href="guide.PDF">Guide</a><a href="readme.txt">Readme</a></body></html>`

	page, err := e.Parse("https://example.com/docs/", []byte(html))
	require.NoError(t, err)

	assert.Equal(t, catalog.PrimaryLanguage, page.Language)
	assert.Empty(t, page.Title)
	assert.True(t, strings.HasPrefix(page.Content, "Plain body text."))
	assert.NotContains(t, page.Content, "Top")
	require.Len(t, page.Documents, 1)
	assert.Equal(t, "https://example.com/docs/guide.PDF", page.Documents[0].URL)
	assert.Equal(t, "pdf", page.Documents[0].Type)
	assert.Equal(t, Address{}, page.Address)
}

func TestParseTruncatesContent(t *testing.T) {
	e := NewExtractor(nil, nil)
	html := "<main><p>" + strings.Repeat("ä", MaxContentRunes+500) + "</p></main>"

	page, err := e.Parse("https://example.com/", []byte(html))
	require.NoError(t, err)
	assert.Len(t, []rune(page.Content), MaxContentRunes)
}

func TestExtractMergesVariantDocuments(t *testing.T) {
	getter := &fakeGetter{pages: map[string]string{
		"https://example.ch/en/api": `<html><body><a href="/en/doc.pdf">Doc</a></body></html>`,
		"https://example.ch/de/api": `<html><body><a href="/de/doc.pdf">Dokument</a><a href="/en/doc.pdf">Doc</a></body></html>`,
		"https://example.ch/fr/api": `<html><body><a href="/fr/doc.pdf">Document</a></body></html>`,
	}}
	e := NewExtractor(getter, nil)

	page, err := e.Extract(context.Background(), "https://example.ch/en/api")
	require.NoError(t, err)

	var urls []string
	for _, d := range page.Documents {
		urls = append(urls, d.URL)
	}
	assert.Equal(t, "https://example.ch/en/doc.pdf", urls[0])
	assert.ElementsMatch(t, []string{
		"https://example.ch/en/doc.pdf",
		"https://example.ch/de/doc.pdf",
		"https://example.ch/fr/doc.pdf",
	}, urls)
	// it variant is missing and skipped.
	assert.Contains(t, getter.calls, "https://example.ch/it/api")
}

func TestExtractFetchError(t *testing.T) {
	e := NewExtractor(&fakeGetter{}, nil)
	_, err := e.Extract(context.Background(), "https://example.ch/api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch landing page")
}

func TestAddressString(t *testing.T) {
	a := Address{Name: "Office", Street: "Main 1", PostalCode: "3003", City: "Bern"}
	assert.Equal(t, "Office, Main 1, 3003 Bern", a.String())
	assert.Equal(t, "Bern", Address{City: "Bern"}.String())
	assert.Empty(t, Address{}.String())
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.bfs.admin.ch/bfs/de/home.html", "de"},
		{"https://example.ch/fr", "fr"},
		{"https://example.ch/en-us/docs", "en"},
		{"https://api.it.example.ch/docs", "it"},
		{"https://example.ch/xx/docs", ""},
		{"https://example.ch/docs", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.url))
		})
	}
}

func TestLanguageVariants(t *testing.T) {
	got := LanguageVariants("https://example.ch/de/api/index.html")
	assert.Equal(t, map[string]string{
		"de": "https://example.ch/de/api/index.html",
		"en": "https://example.ch/en/api/index.html",
		"fr": "https://example.ch/fr/api/index.html",
		"it": "https://example.ch/it/api/index.html",
	}, got)

	plain := LanguageVariants("https://example.ch/api")
	for _, lang := range catalog.Languages {
		assert.Equal(t, "https://example.ch/api", plain[lang])
	}
}
