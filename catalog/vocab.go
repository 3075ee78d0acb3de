package catalog

import (
	"slices"
	"strings"
)

// Theme is an entry of the I14Y theme vocabulary.
type Theme struct {
	Code string `json:"code"`
	DE   string `json:"de"`
	EN   string `json:"en"`
}

// Themes is the I14Y theme vocabulary, ordered by code.
var Themes = []Theme{
	{"101", "Arbeit", "Work"},
	{"102", "Bauen", "Construction"},
	{"103", "Bildung", "Education"},
	{"104", "Aussenbeziehungen", "Foreign relations"},
	{"105", "Gerichtsbarkeit", "Jurisdiction"},
	{"106", "Gesellschaft", "Society"},
	{"107", "Politische Aktivitäten", "Political activities"},
	{"108", "Kultur", "Culture"},
	{"109", "Landwirtschaft", "Agriculture"},
	{"110", "Infrastruktur", "Infrastructure"},
	{"111", "Sicherheit", "Security"},
	{"112", "Steuern", "Taxes"},
	{"113", "Umwelt", "Environment"},
	{"114", "Gesundheit", "Health"},
	{"115", "Wirtschaft", "Economy"},
	{"116", "Mobilität", "Mobility"},
	{"117", "Einwohner", "Residents"},
	{"118", "Unternehmen", "Businesses"},
	{"119", "Behörden", "Public authorities"},
	{"120", "Gebäude und Grundstücke", "Buildings and properties"},
	{"121", "Tiere", "Animals"},
	{"122", "Geoinformationen", "Geo-information"},
	{"123", "Rechtssammlung", "Legal collection"},
	{"124", "Energie", "Energy"},
	{"125", "Öffentliche Statistik", "Public statistics"},
	{"126", "Soziale Sicherheit", "Social security"},
}

// IsThemeCode reports whether code is in the theme vocabulary.
func IsThemeCode(code string) bool {
	return slices.ContainsFunc(Themes, func(t Theme) bool { return t.Code == code })
}

// NormalizeThemeCodes trims, validates and deduplicates codes, keeping
// order. The result is never nil.
func NormalizeThemeCodes(codes []string) []string {
	out := []string{}
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if IsThemeCode(code) && !slices.Contains(out, code) {
			out = append(out, code)
		}
	}
	return out
}

// UnknownThemeCodes returns the codes that are not in the theme
// vocabulary, in input order. Blank entries are ignored.
func UnknownThemeCodes(codes []string) []string {
	var out []string
	for _, code := range codes {
		if code = strings.TrimSpace(code); code != "" && !IsThemeCode(code) {
			out = append(out, code)
		}
	}
	return out
}

// Access rights codes.
const (
	AccessPublic      = "PUBLIC"
	AccessRestricted  = "RESTRICTED"
	AccessNonPublic   = "NON_PUBLIC"
	AccessConditional = "CONDITIONAL"
)

// AccessRightsCodes lists the access rights vocabulary.
var AccessRightsCodes = []string{AccessPublic, AccessRestricted, AccessNonPublic, AccessConditional}

// IsAccessRights reports whether code is in the access rights vocabulary.
func IsAccessRights(code string) bool {
	return slices.Contains(AccessRightsCodes, code)
}

// LicenseCodes lists the known license codes in display order.
var LicenseCodes = []string{"terms_open", "terms_by", "terms_ask", "terms_by_ask"}

var licenses = map[string]License{
	"terms_open": {
		Code: "terms_open",
		Name: Text{
			DE: "Opendata OPEN: Freie Nutzung.",
			EN: "Opendata OPEN: Open use.",
			FR: "Opendata OPEN: Utilisation libre.",
			IT: "Opendata OPEN: Libero utilizzo.",
		},
		URI: "http://dcat-ap.ch/vocabulary/licenses/terms_open",
	},
	"terms_by": {
		Code: "terms_by",
		Name: Text{
			DE: "Opendata BY: Freie Nutzung. Quellenangabe ist Pflicht.",
			EN: "Opendata BY: Open use. Must provide the source.",
			FR: "Opendata BY: Utilisation libre. Obligation d'indiquer la source.",
			IT: "Opendata BY: Libero utilizzo. Indicazione della fonte obbligatoria.",
		},
		URI: "http://dcat-ap.ch/vocabulary/licenses/terms_by",
	},
	"terms_ask": {
		Code: "terms_ask",
		Name: Text{
			DE: "Opendata ASK: Freie Nutzung. Kommerzielle Nutzung nur mit Bewilligung des Datenlieferanten zulässig.",
			EN: "Opendata ASK: Open use. Use for commercial purposes requires permission of the data owner.",
			FR: "Opendata ASK: Utilisation libre. Utilisation à des fins commerciales uniquement avec l'autorisation du fournisseur des données.",
			IT: "Opendata ASK: Libero utilizzo. Utilizzo a fini commerciali ammesso soltanto previo consenso del titolare dei dati.",
		},
		URI: "http://dcat-ap.ch/vocabulary/licenses/terms_ask",
	},
	"terms_by_ask": {
		Code: "terms_by_ask",
		Name: Text{
			DE: "Opendata BY ASK: Freie Nutzung. Quellenangabe ist Pflicht. Kommerzielle Nutzung nur mit Bewilligung des Datenlieferanten zulässig.",
			EN: "Opendata BY ASK: Open use. Must provide the source. Use for commercial purposes requires permission of the data owner.",
			FR: "Opendata BY ASK: Utilisation libre. Obligation d'indiquer la source. Utilisation commerciale uniquement avec l'autorisation du fournisseur des données.",
			IT: "Opendata BY ASK: Libero utilizzo. Indicazione della fonte obbligatoria. Utilizzo a fini commerciali ammesso soltanto previo consenso del titolare dei dati.",
		},
		URI: "http://dcat-ap.ch/vocabulary/licenses/terms_by_ask",
	},
}

// LicenseFor returns the license entry for code. Unknown codes get a
// generic label and an empty URI.
func LicenseFor(code string) License {
	if l, ok := licenses[code]; ok {
		return l
	}
	return License{
		Code: code,
		Name: Text{
			DE: "Lizenz: " + code,
			EN: "License: " + code,
			FR: "Licence: " + code,
			IT: "Licenza: " + code,
		},
	}
}

// Fixed labels used by the mapper.
var (
	endpointLabel = Text{
		DE: "API Endpunkt",
		EN: "API Endpoint",
		FR: "Point de terminaison API",
		IT: "Endpoint API",
	}
	endpointDescriptionLabel = Text{
		DE: "API-Beschreibung (Swagger/OpenAPI)",
		EN: "API Description (Swagger/OpenAPI)",
		FR: "Description de l'API (Swagger/OpenAPI)",
		IT: "Descrizione dell'API (Swagger/OpenAPI)",
	}
	documentationLabel = Text{
		DE: "API-Dokumentation (Swagger/OpenAPI)",
		EN: "API Documentation (Swagger/OpenAPI)",
		FR: "Documentation de l'API (Swagger/OpenAPI)",
		IT: "Documentazione API (Swagger/OpenAPI)",
	}
	conformsToLabel = Text{
		DE: "Konform mit OpenAPI (Swagger) Spezifikation",
		EN: "Conforms to OpenAPI (Swagger) specification",
		FR: "Conforme à la spécification OpenAPI (Swagger)",
		IT: "Conforme alle specifiche OpenAPI (Swagger)",
	}
	landingPageLabel = Text{
		DE: "Weitere Informationen",
		EN: "More information",
		FR: "Plus d'informations",
		IT: "Maggiori informazioni",
	}
	unknownOrganization = Text{
		DE: "Unbekannte Organisation",
		EN: "Unknown Organization",
		FR: "Organisation inconnue",
		IT: "Organizzazione sconosciuta",
	}
	contactNote = Text{
		DE: "Für weitere Informationen kontaktieren Sie uns.",
		EN: "For more information, contact us.",
		FR: "Pour plus d'informations, contactez-nous.",
		IT: "Per ulteriori informazioni, contattaci.",
	}
)

// OpenAPISpecificationURI is the conformsTo target of every record.
const OpenAPISpecificationURI = "https://swagger.io/specification/"
