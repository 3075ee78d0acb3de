package catalogapi

import (
	"encoding/json"
	"strings"

	"github.com/c360studio/swagger2dcat/catalog"
)

// flexText decodes either a plain string or a {"de": ..., "en": ...}
// object into a catalog.Text. A plain string fills every language.
type flexText catalog.Text

func (t *flexText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = flexText(catalog.Uniform(strings.TrimSpace(s)))
		return nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var text catalog.Text
	for lang, v := range m {
		text.Set(lang, strings.TrimSpace(v))
	}
	*t = flexText(text)
	return nil
}
