// Package landing extracts catalog-relevant content from an API landing
// page: title, meta description, main text as markdown, downloadable
// documents and the postal address block.
package landing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/c360studio/swagger2dcat/catalog"
	"github.com/c360studio/swagger2dcat/source/fetcher"
	"github.com/c360studio/swagger2dcat/source/weburl"
)

// MaxContentRunes bounds the markdown kept from the main content.
const MaxContentRunes = 3000

// DocumentExtensions are the file types collected as documents.
var DocumentExtensions = []string{".pdf", ".doc", ".docx", ".odt", ".xls", ".xlsx", ".ppt", ".pptx"}

var (
	mainSelectors     = "main, article, [role=main], .content, #content, .main-content, #main-content"
	documentSelectors = ".documents, #documents, .downloads, #downloads, .dokumente, #dokumente"
	noiseSelectors    = "nav, header, footer, aside, script, style, noscript, iframe, form, button"
	excessiveLinesRe  = regexp.MustCompile(`\n{4,}`)
)

// Address is the postal address block of a page.
type Address struct {
	Name       string `json:"name,omitempty"`
	Section    string `json:"section,omitempty"`
	Street     string `json:"street,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
}

// String joins the non-empty parts, e.g. "Federal Office, Main St 1, 3003 Bern".
func (a Address) String() string {
	var parts []string
	for _, p := range []string{a.Name, a.Section, a.Street} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if place := strings.TrimSpace(a.PostalCode + " " + a.City); place != "" {
		parts = append(parts, place)
	}
	return strings.Join(parts, ", ")
}

// Page is the extracted landing page content.
type Page struct {
	URL         string                 `json:"url"`
	Language    string                 `json:"language,omitempty"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	Content     string                 `json:"content,omitempty"`
	Documents   []catalog.DocumentLink `json:"documents,omitempty"`
	Address     Address                `json:"address"`
}

// Getter fetches a URL. *fetcher.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*fetcher.Response, error)
}

// Extractor fetches and parses landing pages.
type Extractor struct {
	getter    Getter
	converter *md.Converter
	logger    *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(getter Getter, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Extractor{getter: getter, converter: converter, logger: logger}
}

// Extract fetches pageURL and its language variants. Documents found on
// variant pages are merged in; variant failures are logged and skipped.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*Page, error) {
	resp, err := e.getter.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch landing page: %w", err)
	}

	page, err := e.Parse(resp.URL, resp.Body)
	if err != nil {
		return nil, err
	}

	for lang, variant := range LanguageVariants(pageURL) {
		if lang == page.Language || variant == pageURL {
			continue
		}
		vresp, err := e.getter.Get(ctx, variant)
		if err != nil {
			e.logger.Debug("Skipping landing page variant", slog.String("url", variant), slog.String("error", err.Error()))
			continue
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(vresp.Body))
		if err != nil {
			continue
		}
		page.Documents = mergeDocuments(page.Documents, documentLinks(doc, vresp.URL))
	}

	return page, nil
}

// Parse extracts a Page from HTML without any network access.
func (e *Extractor) Parse(pageURL string, body []byte) (*Page, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse landing page: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	lang := DetectLanguage(pageURL)
	if lang == "" {
		lang = catalog.PrimaryLanguage
	}

	page := &Page{
		URL:         pageURL,
		Language:    lang,
		Title:       extractHTMLTitle(root),
		Description: strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", "")),
		Documents:   documentLinks(doc, pageURL),
		Address:     extractAddress(doc),
	}

	content, err := e.mainContent(doc)
	if err != nil {
		return nil, err
	}
	page.Content = content
	return page, nil
}

// mainContent converts the main content area to markdown, falling back
// to the body with navigation and boilerplate removed.
func (e *Extractor) mainContent(doc *goquery.Document) (string, error) {
	sel := doc.Find(mainSelectors).First()
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}
	sel = sel.Clone()
	sel.Find(noiseSelectors).Remove()

	fragment, err := goquery.OuterHtml(sel)
	if err != nil {
		return "", fmt.Errorf("render landing content: %w", err)
	}
	markdown, err := e.converter.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("convert landing content: %w", err)
	}
	return truncateRunes(cleanMarkdown(markdown), MaxContentRunes), nil
}

// extractHTMLTitle returns the text of the first <title> element.
func extractHTMLTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := extractHTMLTitle(c); title != "" {
			return title
		}
	}
	return ""
}

// documentLinks collects links to office documents, preferring dedicated
// document sections when the page has any.
func documentLinks(doc *goquery.Document, pageURL string) []catalog.DocumentLink {
	scope := doc.Find(documentSelectors)
	links := collectDocuments(scope.Find("a[href]"), pageURL)
	if len(links) == 0 {
		links = collectDocuments(doc.Find("a[href]"), pageURL)
	}
	return links
}

func collectDocuments(anchors *goquery.Selection, pageURL string) []catalog.DocumentLink {
	var links []catalog.DocumentLink
	anchors.Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		ext := documentExtension(href)
		if ext == "" {
			return
		}

		label := strings.Join(strings.Fields(a.Text()), " ")
		if label == "" {
			label = strings.TrimSpace(a.Find("img").AttrOr("alt", ""))
		}
		if label == "" {
			label = path.Base(href)
		}

		links = mergeDocuments(links, []catalog.DocumentLink{{
			URL:   weburl.Resolve(pageURL, href),
			Label: label,
			Type:  strings.TrimPrefix(ext, "."),
		}})
	})
	return links
}

func documentExtension(href string) string {
	lower := strings.ToLower(href)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, ext := range DocumentExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// mergeDocuments appends docs whose URL is not yet present.
func mergeDocuments(existing, docs []catalog.DocumentLink) []catalog.DocumentLink {
	seen := make(map[string]bool, len(existing))
	for _, d := range existing {
		seen[d.URL] = true
	}
	for _, d := range docs {
		if !seen[d.URL] {
			seen[d.URL] = true
			existing = append(existing, d)
		}
	}
	return existing
}

// extractAddress reads the first <address> block using itemprop fields.
func extractAddress(doc *goquery.Document) Address {
	block := doc.Find("address").First()
	if block.Length() == 0 {
		return Address{}
	}
	prop := func(name string) string {
		return strings.Join(strings.Fields(block.Find(`[itemprop="`+name+`"]`).First().Text()), " ")
	}
	return Address{
		Name:       prop("name"),
		Section:    strings.Join(strings.Fields(block.Find("span").First().Text()), " "),
		Street:     prop("street-address"),
		PostalCode: prop("postal-code"),
		City:       prop("locality"),
	}
}

// cleanMarkdown collapses blank runs and trims trailing whitespace.
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
