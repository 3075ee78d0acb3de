package landing

import (
	"regexp"
	"strings"

	"github.com/c360studio/swagger2dcat/catalog"
)

var languagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/([a-z]{2})/`),
	regexp.MustCompile(`/([a-z]{2})$`),
	regexp.MustCompile(`/([a-z]{2})-[a-z]{2}/`),
	regexp.MustCompile(`\.([a-z]{2})\.`),
}

// DetectLanguage returns the catalog language encoded in a URL path
// (/de/, /fr, /en-us/) or host (.it.), or "" when none is found.
func DetectLanguage(rawURL string) string {
	lower := strings.ToLower(rawURL)
	for _, re := range languagePatterns {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			if isCatalogLanguage(m[1]) {
				return m[1]
			}
		}
	}
	return ""
}

// LanguageVariants returns the URL of the page in every catalog language
// by substituting the detected language segment. Without a language
// segment every variant is the original URL.
func LanguageVariants(rawURL string) map[string]string {
	variants := make(map[string]string, len(catalog.Languages))
	lang := DetectLanguage(rawURL)
	for _, target := range catalog.Languages {
		variants[target] = rawURL
	}
	if lang == "" {
		return variants
	}

	replacements := []struct {
		re   *regexp.Regexp
		repl func(target string) string
	}{
		{regexp.MustCompile(`(?i)/` + lang + `/`), func(t string) string { return "/" + t + "/" }},
		{regexp.MustCompile(`(?i)/` + lang + `-[a-z]{2}/`), func(t string) string { return "/" + t + "/" }},
		{regexp.MustCompile(`(?i)/` + lang + `$`), func(t string) string { return "/" + t }},
		{regexp.MustCompile(`(?i)\.` + lang + `\.`), func(t string) string { return "." + t + "." }},
	}

	for _, target := range catalog.Languages {
		if target == lang {
			continue
		}
		for _, r := range replacements {
			if loc := r.re.FindStringIndex(rawURL); loc != nil {
				variants[target] = rawURL[:loc[0]] + r.repl(target) + rawURL[loc[1]:]
				break
			}
		}
	}
	return variants
}

func isCatalogLanguage(code string) bool {
	for _, lang := range catalog.Languages {
		if lang == code {
			return true
		}
	}
	return false
}
