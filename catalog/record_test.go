package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordJSONShape(t *testing.T) {
	rec := Map(sampleMetadata(), Overrides{})
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, key := range []string{
		"title", "description", "keywords", "publisher", "contactPoints", "themeCodes",
		"accessRights", "endpointUrls", "endpointDescriptions", "documents", "conformTos",
		"version", "versionNotes",
	} {
		assert.Contains(t, raw, key)
	}
	assert.NotContains(t, raw, "license")
	assert.NotContains(t, raw, "landingPages")

	// Empty collections serialize as [] and {}, never null.
	assert.Equal(t, []any{}, raw["themeCodes"])
	assert.Equal(t, map[string]any{}, raw["versionNotes"])

	title := raw["title"].(map[string]any)
	assert.Equal(t, map[string]any{"de": "", "en": "Address API", "fr": "", "it": ""}, title)

	kw := raw["keywords"].([]any)[0].(map[string]any)
	assert.Contains(t, kw, "uri")
	assert.Nil(t, kw["uri"])
}

func TestRecordValidate(t *testing.T) {
	rec := Map(sampleMetadata(), Overrides{})
	err := rec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publisher is required")

	rec.Publisher.Identifier = "CH_BFS"
	assert.NoError(t, rec.Validate())

	rec.ThemeCodes = []string{"999"}
	rec.AccessRights.Code = "SECRET"
	err = rec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown theme code "999"`)
	assert.Contains(t, err.Error(), `unknown access rights "SECRET"`)
}

func TestSetKeywords(t *testing.T) {
	rec := Map(sampleMetadata(), Overrides{})

	rec.SetKeywords(LangDE, []string{"Adressen", "Geo", "Gebäude", "Extra"})
	require.Len(t, rec.Keywords, 4)
	assert.Equal(t, "Addresses", rec.Keywords[0].Label.EN)
	assert.Equal(t, "Adressen", rec.Keywords[0].Label.DE)
	assert.Equal(t, Text{DE: "Extra"}, rec.Keywords[3].Label)

	// Shrinking drops entries left with no label at all.
	rec.SetKeywords(LangDE, []string{"Adressen"})
	assert.Len(t, rec.Keywords, 3)
	assert.Equal(t, []string{"Adressen"}, rec.KeywordsIn(LangDE))
}

func TestRecordCloneIsDeep(t *testing.T) {
	rec := Map(sampleMetadata(), Overrides{License: "terms_open"})
	clone := rec.Clone()
	clone.Title.EN = "Changed"
	clone.Keywords[0].Label.EN = "Changed"
	clone.License.Code = "other"

	assert.Equal(t, "Address API", rec.Title.EN)
	assert.Equal(t, "Addresses", rec.Keywords[0].Label.EN)
	assert.Equal(t, "terms_open", rec.License.Code)
}

func TestFileName(t *testing.T) {
	rec := Map(sampleMetadata(), Overrides{})
	assert.Equal(t, "address_api_dcat.json", rec.FileName())
}

func TestEditHelpers(t *testing.T) {
	rec := Map(sampleMetadata(), Overrides{LandingPage: "https://old.example.ch"})
	require.Len(t, rec.Documents, 2)

	rec.SetLandingPage("https://new.example.ch")
	assert.Equal(t, "https://new.example.ch", rec.LandingPage())
	require.Len(t, rec.Documents, 2)
	assert.Equal(t, "https://new.example.ch", rec.Documents[1].URI)

	rec.SetLandingPage("")
	assert.Empty(t, rec.LandingPage())
	assert.Len(t, rec.Documents, 1)

	require.NoError(t, rec.SetAccessRights("non_public"))
	assert.Equal(t, AccessNonPublic, rec.AccessRights.Code)
	assert.Error(t, rec.SetAccessRights("open"))

	rec.SetLicense("terms_by")
	require.NotNil(t, rec.License)
	rec.SetLicense("")
	assert.Nil(t, rec.License)

	rec.ApplyPublisher(PublisherMatch{ID: "CH_BFS", Name: Uniform("Federal Statistical Office")})
	assert.Equal(t, "CH_BFS", rec.Publisher.Identifier)
	assert.Equal(t, "Federal Statistical Office", rec.ContactPoints[0].Fn.FR)
	assert.Equal(t, DefaultContactEmail, rec.ContactPoints[0].HasEmail)
}

func TestLicenseForUnknownCode(t *testing.T) {
	l := LicenseFor("cc-by")
	assert.Equal(t, "License: cc-by", l.Name.EN)
	assert.Empty(t, l.URI)
}
