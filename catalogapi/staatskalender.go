package catalogapi

import (
	"context"
	"net/url"
	"strings"

	"github.com/c360studio/swagger2dcat/catalog"
)

// DefaultStaatskalenderURL is the federal organization search endpoint.
const DefaultStaatskalenderURL = "https://www.staatskalender.admin.ch/api/search/organizations"

// Organization is the contact data of a federal organization.
type Organization struct {
	Phone        string       `json:"phone,omitempty"`
	Email        string       `json:"email,omitempty"`
	Department   catalog.Text `json:"department"`
	Organization catalog.Text `json:"organization"`
}

type organizationHit struct {
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Department struct {
		Name flexText `json:"name"`
	} `json:"department"`
	Organization struct {
		Name flexText `json:"name"`
	} `json:"organization"`
}

type organizationSearch struct {
	Result []organizationHit `json:"result"`
}

// Staatskalender searches the federal organization directory.
type Staatskalender struct {
	client    *Client
	searchURL string
}

// NewStaatskalender creates a search client. An empty searchURL uses
// DefaultStaatskalenderURL.
func NewStaatskalender(client *Client, searchURL string) *Staatskalender {
	if searchURL == "" {
		searchURL = DefaultStaatskalenderURL
	}
	return &Staatskalender{client: client, searchURL: searchURL}
}

// SearchOrganization returns the best match for a German organization
// name, or nil when the search has no result.
func (s *Staatskalender) SearchOrganization(ctx context.Context, name string) (*Organization, error) {
	q := url.Values{}
	q.Set("lang", "de")
	q.Set("s", name)
	q.Set("page", "1")
	q.Set("pageSize", "1")

	sep := "?"
	if strings.Contains(s.searchURL, "?") {
		sep = "&"
	}

	var res organizationSearch
	if err := s.client.getJSON(ctx, s.searchURL+sep+q.Encode(), &res); err != nil {
		return nil, err
	}
	if len(res.Result) == 0 {
		return nil, nil
	}

	hit := res.Result[0]
	return &Organization{
		Phone:        strings.TrimSpace(hit.Phone),
		Email:        strings.TrimSpace(hit.Email),
		Department:   catalog.Text(hit.Department.Name),
		Organization: catalog.Text(hit.Organization.Name),
	}, nil
}
