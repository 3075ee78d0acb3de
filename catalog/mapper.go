package catalog

import (
	"strings"
	"time"

	"github.com/c360studio/swagger2dcat/source/parser"
	"github.com/c360studio/swagger2dcat/source/weburl"
)

// Documented defaults for fields the document leaves out.
const (
	DefaultTitle        = "Unknown API"
	DefaultDescription  = "No description available."
	VersionPlaceholder  = "n/a"
	DefaultContactEmail = "info@example.com"
	ContactKind         = "Organization"
	IssuedLayout        = "2006-01-02"
)

// PublisherMatch is a directory agent resolved from the document contact.
type PublisherMatch struct {
	ID      string
	Name    Text
	Email   string
	Phone   string
	Address Text
}

// DocumentLink is an extra document attached to the record.
type DocumentLink struct {
	URL   string `json:"url"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Overrides are the user-supplied inputs of a mapping.
type Overrides struct {
	// Publisher is the resolved directory agent, nil when the contact did
	// not match any agent.
	Publisher *PublisherMatch

	// Contact replaces the derived contact point entirely.
	Contact *ContactPoint

	ThemeCodes   []string
	AccessRights string
	License      string
	LandingPage  string
	Documents    []DocumentLink

	// Issued is the mapping date. Zero leaves the issued field empty.
	Issued time.Time
}

// PublisherKey returns the publisher lookup key for a document contact:
// the email domain when an email is present, otherwise the contact name.
func PublisherKey(c parser.Contact) string {
	if domain := weburl.EmailDomain(c.Email); domain != "" {
		return domain
	}
	return strings.TrimSpace(c.Name)
}

// Map builds a catalog record from parsed metadata. It is pure: the same
// inputs always produce an equal record, and every mandatory field is
// populated with the value from the document or its documented default.
func Map(meta *parser.Metadata, ov Overrides) *Record {
	if meta == nil {
		meta = &parser.Metadata{}
	}

	title := orDefault(meta.Title, DefaultTitle)
	description := orDefault(meta.Description, DefaultDescription)

	rec := &Record{
		Keywords:      []Keyword{},
		ThemeCodes:    NormalizeThemeCodes(ov.ThemeCodes),
		AccessRights:  AccessRights{Code: AccessPublic},
		Version:       orDefault(meta.Version, VersionPlaceholder),
		VersionNotes:  map[string]string{},
		ContactPoints: []ContactPoint{mapContact(meta.Contact, ov)},
		ConformsTo:    []Link{{URI: OpenAPISpecificationURI, Label: conformsToLabel}},
	}
	rec.Title.Set(PrimaryLanguage, title)
	rec.Description.Set(PrimaryLanguage, description)

	for _, tag := range DedupeKeywords(meta.Tags) {
		var kw Keyword
		kw.Label.Set(PrimaryLanguage, tag)
		rec.Keywords = append(rec.Keywords, kw)
	}

	if ov.Publisher != nil {
		rec.Publisher.Identifier = ov.Publisher.ID
	}

	if IsAccessRights(ov.AccessRights) {
		rec.AccessRights.Code = ov.AccessRights
	}

	if code := strings.TrimSpace(ov.License); code != "" {
		l := LicenseFor(code)
		rec.License = &l
	}

	endpoints := meta.Servers
	if len(endpoints) == 0 && meta.SourceURL != "" {
		endpoints = []string{meta.SourceURL}
	}
	rec.EndpointURLs = []Link{}
	for _, u := range endpoints {
		rec.EndpointURLs = append(rec.EndpointURLs, Link{URI: u, Label: endpointLabel})
	}

	rec.EndpointDescriptions = []Link{}
	rec.Documents = []Link{}
	if meta.SourceURL != "" {
		rec.EndpointDescriptions = append(rec.EndpointDescriptions, Link{URI: meta.SourceURL, Label: endpointDescriptionLabel})

		docLabel := documentationLabel
		docLabel.Set(PrimaryLanguage, title)
		rec.Documents = append(rec.Documents, Link{URI: meta.SourceURL, Label: docLabel})
	}

	if lp := strings.TrimSpace(ov.LandingPage); lp != "" {
		rec.LandingPages = []Link{{URI: lp, Label: landingPageLabel}}
		rec.Documents = append(rec.Documents, Link{URI: lp, Label: landingPageLabel})
	}

	for _, doc := range ov.Documents {
		if link, ok := documentLink(doc); ok {
			rec.Documents = append(rec.Documents, link)
		}
	}

	if !ov.Issued.IsZero() {
		rec.Issued = ov.Issued.Format(IssuedLayout)
	}

	return rec
}

// mapContact derives the contact point: an explicit override wins, then
// the matched publisher, then the raw document contact as free text.
func mapContact(c parser.Contact, ov Overrides) ContactPoint {
	if ov.Contact != nil {
		cp := *ov.Contact
		if cp.Kind == "" {
			cp.Kind = ContactKind
		}
		if cp.HasEmail == "" {
			cp.HasEmail = DefaultContactEmail
		}
		return cp
	}

	cp := ContactPoint{
		Fn:       unknownOrganization,
		HasEmail: DefaultContactEmail,
		Kind:     ContactKind,
		Note:     contactNote,
	}

	if p := ov.Publisher; p != nil {
		for _, lang := range Languages {
			if name := p.Name.Get(lang); name != "" {
				cp.Fn.Set(lang, name)
			}
		}
		if p.Email != "" {
			cp.HasEmail = p.Email
		}
		cp.HasTelephone = p.Phone
		cp.HasAddress = p.Address
		return cp
	}

	if name := strings.TrimSpace(c.Name); name != "" {
		cp.Fn = Uniform(name)
	}
	if email := strings.TrimSpace(c.Email); email != "" {
		cp.HasEmail = email
	}
	return cp
}

// DedupeKeywords trims tags, drops empty ones and removes duplicates that
// differ only by case. The first spelling wins and order is preserved.
func DedupeKeywords(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func documentLink(doc DocumentLink) (Link, bool) {
	u := strings.TrimSpace(doc.URL)
	if u == "" {
		return Link{}, false
	}
	label := strings.TrimSpace(doc.Label)
	if label == "" {
		kind := strings.ToUpper(strings.TrimSpace(doc.Type))
		if kind == "" {
			kind = "DOC"
		}
		label = "Document (" + kind + ")"
	}
	return Link{URI: u, Label: Uniform(label)}, true
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
