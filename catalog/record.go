// Package catalog defines the I14Y DataServiceInput record and maps parsed
// Swagger/OpenAPI metadata onto it.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/c360studio/swagger2dcat/source/weburl"
)

// Catalog languages. PrimaryLanguage is the slot mapped values land in.
const (
	LangDE = "de"
	LangEN = "en"
	LangFR = "fr"
	LangIT = "it"

	PrimaryLanguage = LangEN
)

// Languages lists every language slot of a Text, in catalog order.
var Languages = []string{LangDE, LangEN, LangFR, LangIT}

// Text is a multilingual string. Missing translations are empty strings,
// never absent keys.
type Text struct {
	DE string `json:"de"`
	EN string `json:"en"`
	FR string `json:"fr"`
	IT string `json:"it"`
}

// Uniform returns a Text with the same value in every language.
func Uniform(s string) Text {
	return Text{DE: s, EN: s, FR: s, IT: s}
}

// Get returns the value for lang, or "" for unknown languages.
func (t Text) Get(lang string) string {
	switch strings.ToLower(lang) {
	case LangDE:
		return t.DE
	case LangEN:
		return t.EN
	case LangFR:
		return t.FR
	case LangIT:
		return t.IT
	}
	return ""
}

// Set stores s for lang. Unknown languages are ignored.
func (t *Text) Set(lang, s string) {
	switch strings.ToLower(lang) {
	case LangDE:
		t.DE = s
	case LangEN:
		t.EN = s
	case LangFR:
		t.FR = s
	case LangIT:
		t.IT = s
	}
}

// IsEmpty reports whether every language is blank.
func (t Text) IsEmpty() bool {
	return strings.TrimSpace(t.DE+t.EN+t.FR+t.IT) == ""
}

// First returns the first non-empty value, preferring en then de.
func (t Text) First() string {
	for _, s := range []string{t.EN, t.DE, t.FR, t.IT} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Link is a URI with a multilingual label.
type Link struct {
	URI   string `json:"uri"`
	Label Text   `json:"label"`
}

// Keyword is one keyword entry. URI stays null for free-text keywords.
type Keyword struct {
	Label Text    `json:"label"`
	URI   *string `json:"uri"`
}

// Publisher references an agent of the catalog directory.
type Publisher struct {
	Identifier string `json:"identifier"`
}

// ContactPoint is a VCard contact as the catalog expects it.
type ContactPoint struct {
	Fn           Text   `json:"fn"`
	HasAddress   Text   `json:"hasAddress"`
	HasEmail     string `json:"hasEmail"`
	HasTelephone string `json:"hasTelephone"`
	Kind         string `json:"kind"`
	Note         Text   `json:"note"`
}

// AccessRights holds an access-rights vocabulary code.
type AccessRights struct {
	Code string `json:"code"`
}

// License is a license vocabulary entry.
type License struct {
	Code string `json:"code"`
	Name Text   `json:"name"`
	URI  string `json:"uri"`
}

// Record is a DataServiceInput: the catalog entry for one API.
type Record struct {
	Title                Text              `json:"title"`
	Description          Text              `json:"description"`
	Keywords             []Keyword         `json:"keywords"`
	Publisher            Publisher         `json:"publisher"`
	ContactPoints        []ContactPoint    `json:"contactPoints"`
	ThemeCodes           []string          `json:"themeCodes"`
	AccessRights         AccessRights      `json:"accessRights"`
	License              *License          `json:"license,omitempty"`
	EndpointURLs         []Link            `json:"endpointUrls"`
	EndpointDescriptions []Link            `json:"endpointDescriptions"`
	Documents            []Link            `json:"documents"`
	ConformsTo           []Link            `json:"conformTos"`
	LandingPages         []Link            `json:"landingPages,omitempty"`
	Version              string            `json:"version"`
	VersionNotes         map[string]string `json:"versionNotes"`
	Issued               string            `json:"issued,omitempty"`
}

// KeywordsIn returns the keyword labels for lang, skipping blanks.
func (r *Record) KeywordsIn(lang string) []string {
	var out []string
	for _, kw := range r.Keywords {
		if s := kw.Label.Get(lang); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// KeywordSlots returns the label for lang of every keyword, blanks
// included, so that position i is always keyword i.
func (r *Record) KeywordSlots(lang string) []string {
	out := make([]string, len(r.Keywords))
	for i, kw := range r.Keywords {
		out[i] = kw.Label.Get(lang)
	}
	return out
}

// SetKeywords writes labels for lang by position, growing the list when
// labels is longer. Entries beyond len(labels) keep their other languages
// but lose lang.
func (r *Record) SetKeywords(lang string, labels []string) {
	for len(r.Keywords) < len(labels) {
		r.Keywords = append(r.Keywords, Keyword{})
	}
	for i := range r.Keywords {
		value := ""
		if i < len(labels) {
			value = strings.TrimSpace(labels[i])
		}
		r.Keywords[i].Label.Set(lang, value)
	}
	r.compactKeywords()
}

func (r *Record) compactKeywords() {
	kept := make([]Keyword, 0, len(r.Keywords))
	for _, kw := range r.Keywords {
		if !kw.Label.IsEmpty() {
			kept = append(kept, kw)
		}
	}
	r.Keywords = kept
}

// PrimaryEndpoint returns the first endpoint URL, or "".
func (r *Record) PrimaryEndpoint() string {
	if len(r.EndpointURLs) == 0 {
		return ""
	}
	return r.EndpointURLs[0].URI
}

// FileName is the export file name: the lowercased title with spaces
// replaced by underscores, suffixed with _dcat.json.
func (r *Record) FileName() string {
	return weburl.Slug(r.Title.First()) + "_dcat.json"
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	data, err := json.Marshal(r)
	if err != nil {
		panic(fmt.Sprintf("catalog: marshal record: %v", err))
	}
	var c Record
	if err := json.Unmarshal(data, &c); err != nil {
		panic(fmt.Sprintf("catalog: unmarshal record: %v", err))
	}
	return &c
}

// Validate checks the fields that must be present before the record is
// submitted. Mapped records always pass except for the publisher, which
// only the user can choose.
func (r *Record) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Publisher.Identifier) == "" {
		errs = append(errs, errors.New("publisher is required"))
	}
	if r.Title.IsEmpty() {
		errs = append(errs, errors.New("title is required"))
	}
	if r.Description.IsEmpty() {
		errs = append(errs, errors.New("description is required"))
	}
	if len(r.EndpointURLs) == 0 || r.PrimaryEndpoint() == "" {
		errs = append(errs, errors.New("at least one endpoint URL is required"))
	}
	if len(r.ContactPoints) == 0 || r.ContactPoints[0].HasEmail == "" {
		errs = append(errs, errors.New("contact email is required"))
	}
	if !IsAccessRights(r.AccessRights.Code) {
		errs = append(errs, fmt.Errorf("unknown access rights %q", r.AccessRights.Code))
	}
	for _, code := range r.ThemeCodes {
		if !IsThemeCode(code) {
			errs = append(errs, fmt.Errorf("unknown theme code %q", code))
		}
	}
	return errors.Join(errs...)
}
