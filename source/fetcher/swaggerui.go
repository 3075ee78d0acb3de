package fetcher

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/c360studio/swagger2dcat/source/weburl"
)

// specKeyPattern matches `url: "..."`, `configUrl: '...'` and `"spec": "..."`
// style assignments in Swagger UI bootstrap scripts, both JS and JSON.
var specKeyPattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9_$])["']?(url|configUrl|spec)["']?\s*:\s*["']([^"']+)["']`)

// CommonSpecPaths are tried when a page does not name its document.
var CommonSpecPaths = []string{
	"/swagger/v1/swagger.json",
	"/swagger.json",
	"/openapi.json",
	"/openapi.yaml",
	"/api-docs",
	"/api-docs.json",
	"/v1/api-docs",
	"/v2/api-docs",
	"/v3/api-docs",
	"/swagger/doc.json",
	"/swagger/api-docs.json",
	"/api/swagger.json",
}

// specLink is a candidate found in a page. Config links point at a
// Swagger UI config document rather than the spec itself.
type specLink struct {
	URL    string
	Config bool
}

// queryLink returns the spec named by a Swagger UI ?url= or ?configUrl=
// query parameter, resolved against the page URL.
func queryLink(pageURL string) (specLink, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return specLink{}, false
	}
	q := u.Query()
	if v := strings.TrimSpace(q.Get("url")); v != "" {
		return specLink{URL: weburl.Resolve(pageURL, v)}, true
	}
	if v := strings.TrimSpace(q.Get("configUrl")); v != "" {
		return specLink{URL: weburl.Resolve(pageURL, v), Config: true}, true
	}
	return specLink{}, false
}

// scanPage looks for the document a Swagger UI page renders: inline
// script assignments first, then script sources, then plain links.
func scanPage(pageURL string, body []byte) (specLink, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return specLink{}, false
	}

	var found specLink
	ok := false

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if _, hasSrc := s.Attr("src"); hasSrc {
			return true
		}
		for _, m := range specKeyPattern.FindAllStringSubmatch(s.Text(), -1) {
			key, value := m[1], strings.TrimSpace(m[2])
			if key == "configUrl" {
				found, ok = specLink{URL: weburl.Resolve(pageURL, value), Config: true}, true
				return false
			}
			if looksLikeSpecURL(value) {
				found, ok = specLink{URL: weburl.Resolve(pageURL, value)}, true
				return false
			}
		}
		return true
	})
	if ok {
		return found, true
	}

	doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := s.AttrOr("src", "")
		lower := strings.ToLower(src)
		if strings.Contains(lower, ".json") &&
			(strings.Contains(lower, "swagger") || strings.Contains(lower, "openapi") || strings.Contains(lower, "api-docs")) {
			found, ok = specLink{URL: weburl.Resolve(pageURL, src)}, true
			return false
		}
		return true
	})
	if ok {
		return found, true
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := s.AttrOr("href", "")
		if hasSpecExtension(href) {
			found, ok = specLink{URL: weburl.Resolve(pageURL, href)}, true
			return false
		}
		return true
	})
	return found, ok
}

// looksLikeSpecURL filters script values down to plausible documents.
func looksLikeSpecURL(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	if lower == "" || strings.HasPrefix(lower, "#") || strings.HasPrefix(lower, "javascript:") {
		return false
	}
	path := lower
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, ext := range []string{".js", ".css", ".html", ".htm", ".png", ".svg", ".ico"} {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	if hasSpecExtension(lower) {
		return true
	}
	for _, hint := range []string{"api-docs", "openapi", "swagger"} {
		if strings.Contains(path, hint) {
			return true
		}
	}
	return false
}

func hasSpecExtension(href string) bool {
	path := strings.ToLower(strings.TrimSpace(href))
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}

// swaggerConfig is the Swagger UI configUrl document.
type swaggerConfig struct {
	URL  string `json:"url"`
	URLs []struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	} `json:"urls"`
}

func (c swaggerConfig) specURL() string {
	if u := strings.TrimSpace(c.URL); u != "" {
		return u
	}
	for _, entry := range c.URLs {
		if u := strings.TrimSpace(entry.URL); u != "" {
			return u
		}
	}
	return ""
}
