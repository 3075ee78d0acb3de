package catalog

import (
	"fmt"
	"strings"

	"github.com/c360studio/swagger2dcat/source/parser"
)

// ApplyPublisher sets the publisher and rebuilds the contact point from
// the directory entry.
func (r *Record) ApplyPublisher(p PublisherMatch) {
	r.Publisher.Identifier = p.ID
	cp := mapContact(parser.Contact{}, Overrides{Publisher: &p})
	if len(r.ContactPoints) == 0 {
		r.ContactPoints = []ContactPoint{cp}
		return
	}
	r.ContactPoints[0] = cp
}

// SetAccessRights validates and stores an access rights code.
func (r *Record) SetAccessRights(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !IsAccessRights(code) {
		return fmt.Errorf("unknown access rights %q", code)
	}
	r.AccessRights.Code = code
	return nil
}

// SetLicense stores the license for code; an empty code removes it.
func (r *Record) SetLicense(code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		r.License = nil
		return
	}
	l := LicenseFor(code)
	r.License = &l
}

// SetThemeCodes replaces the theme codes, dropping unknown ones.
func (r *Record) SetThemeCodes(codes []string) {
	r.ThemeCodes = NormalizeThemeCodes(codes)
}

// SetLandingPage replaces the landing page and its document entry. An
// empty URL removes both.
func (r *Record) SetLandingPage(u string) {
	u = strings.TrimSpace(u)

	docs := r.Documents[:0]
	for _, d := range r.Documents {
		if d.Label != landingPageLabel {
			docs = append(docs, d)
		}
	}
	r.Documents = docs
	r.LandingPages = nil

	if u == "" {
		return
	}
	r.LandingPages = []Link{{URI: u, Label: landingPageLabel}}

	// Keep the landing page right after the spec document.
	link := Link{URI: u, Label: landingPageLabel}
	if len(r.Documents) == 0 {
		r.Documents = []Link{link}
		return
	}
	r.Documents = append(r.Documents[:1], append([]Link{link}, r.Documents[1:]...)...)
}

// LandingPage returns the landing page URL, or "".
func (r *Record) LandingPage() string {
	if len(r.LandingPages) == 0 {
		return ""
	}
	return r.LandingPages[0].URI
}
