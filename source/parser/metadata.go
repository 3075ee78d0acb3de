package parser

import (
	"fmt"
	"sort"
	"strings"
)

// Format is the serialization of a fetched document.
type Format string

// Supported document formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Source is a fetched service description. It is immutable once fetched.
type Source struct {
	// Raw holds the document bytes exactly as served.
	Raw []byte

	// Format is the detected serialization.
	Format Format

	// OriginalURL is the URL the user entered.
	OriginalURL string

	// ResolvedURL is the URL the document was actually loaded from. It
	// differs from OriginalURL when the input was a Swagger UI page.
	ResolvedURL string

	// Detected reports whether ResolvedURL was discovered by scanning HTML.
	Detected bool
}

// Contact is the contact block of the info object.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

// IsZero reports whether no contact field is present.
func (c Contact) IsZero() bool {
	return c.Name == "" && c.Email == "" && c.URL == ""
}

// License is the license block of the info object.
type License struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Operation is a single path/method pair.
type Operation struct {
	Method  string   `json:"method"`
	Path    string   `json:"path"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags,omitempty"`
}

// Metadata is the field set extracted from a service description.
// Empty strings and nil slices mean the field is absent from the document;
// no defaults are applied at this stage.
type Metadata struct {
	// SpecVersion is the value of the swagger or openapi key.
	SpecVersion string `json:"spec_version"`

	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Version     string  `json:"version,omitempty"`
	Contact     Contact `json:"contact"`
	License     License `json:"license"`

	// Servers holds absolute base URLs in document order, first is primary.
	Servers []string `json:"servers,omitempty"`

	// Tags lists top-level tags first, then operation tags. Exact repeats
	// are dropped; entries differing only by case are kept.
	Tags []string `json:"tags,omitempty"`

	Operations []Operation `json:"operations,omitempty"`

	// SourceURL is the URL the document was loaded from.
	SourceURL string `json:"source_url,omitempty"`

	// Warnings lists non-fatal problems met while extracting.
	Warnings []string `json:"warnings,omitempty"`
}

// IsSwagger2 reports whether the document was a Swagger 2.0 description.
func (m *Metadata) IsSwagger2() bool {
	return strings.HasPrefix(m.SpecVersion, "2")
}

var methodOrder = map[string]int{
	"GET": 0, "POST": 1, "PUT": 2, "PATCH": 3, "DELETE": 4, "HEAD": 5, "OPTIONS": 6, "TRACE": 7,
}

// EndpointSummary describes the operation mix, for example
// "API contains 3 endpoints with 2 GET, 1 POST operations".
func (m *Metadata) EndpointSummary() string {
	if len(m.Operations) == 0 {
		return "API contains no documented endpoints"
	}

	paths := make(map[string]struct{})
	counts := make(map[string]int)
	for _, op := range m.Operations {
		paths[op.Path] = struct{}{}
		counts[op.Method]++
	}

	methods := make([]string, 0, len(counts))
	for method := range counts {
		methods = append(methods, method)
	}
	sort.Slice(methods, func(i, j int) bool { return lessMethod(methods[i], methods[j]) })

	parts := make([]string, 0, len(methods))
	for _, method := range methods {
		parts = append(parts, fmt.Sprintf("%d %s", counts[method], method))
	}
	return fmt.Sprintf("API contains %d endpoints with %s operations", len(paths), strings.Join(parts, ", "))
}

func lessMethod(a, b string) bool {
	oa, okA := methodOrder[a]
	ob, okB := methodOrder[b]
	switch {
	case okA && okB:
		return oa < ob
	case okA != okB:
		return okA
	default:
		return a < b
	}
}

const (
	maxSummaryRunes    = 120
	noDescriptionShort = "No description available."
)

// shortDescription picks the summary, else the first line of the
// description, truncated to maxSummaryRunes.
func shortDescription(summary, description string) string {
	text := strings.TrimSpace(summary)
	if text == "" {
		text = strings.TrimSpace(description)
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = strings.TrimSpace(text[:i])
		}
	}
	if text == "" {
		return noDescriptionShort
	}
	runes := []rune(text)
	if len(runes) > maxSummaryRunes {
		return string(runes[:maxSummaryRunes-3]) + "..."
	}
	return text
}

// appendUnique appends s when it is non-empty and not yet in list.
func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
