// Package parser normalizes Swagger 2.0 and OpenAPI 3.x documents, in JSON
// or YAML, into a uniform Metadata field set.
package parser

import (
	"bytes"
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/oasdiff/yaml"

	"github.com/c360studio/swagger2dcat/source/weburl"
)

var serverVarPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Parse extracts Metadata from a fetched document. It fails with a
// *ParseError on malformed JSON/YAML, a root that is not an object, a
// document that is neither Swagger 2.0 nor OpenAPI 3.x, or a missing info
// object.
func Parse(src *Source) (*Metadata, error) {
	if src == nil || len(bytes.TrimSpace(src.Raw)) == 0 {
		return nil, &ParseError{Reason: "empty document"}
	}

	root, err := decodeTree(src)
	if err != nil {
		return nil, err
	}

	info, ok := root["info"].(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: "missing info object"}
	}

	// YAML authors often write `version: 1.0`; kin-openapi wants strings.
	if v, ok := info["version"]; ok {
		info["version"] = scalarString(v)
	}
	if v, ok := info["title"]; ok {
		info["title"] = scalarString(v)
	}

	swagger := scalarString(root["swagger"])
	openapi := scalarString(root["openapi"])

	meta := &Metadata{SourceURL: src.ResolvedURL}
	switch {
	case strings.HasPrefix(swagger, "2"):
		if !strings.Contains(swagger, ".") {
			swagger += ".0"
		}
		root["swagger"] = swagger
		meta.SpecVersion = swagger
		err = parseSwagger2(root, meta)
	case strings.HasPrefix(openapi, "3"):
		root["openapi"] = openapi
		meta.SpecVersion = openapi
		err = parseOpenAPI3(root, meta)
	default:
		return nil, &ParseError{Reason: "document is neither Swagger 2.0 nor OpenAPI 3.x"}
	}
	if err != nil {
		// The typed model rejected something the tree still carries;
		// fall back to reading the generic tree.
		meta.Warnings = append(meta.Warnings, "typed decoding failed, used generic extraction: "+err.Error())
		fromTree(root, meta)
	}

	sort.SliceStable(meta.Operations, func(i, j int) bool {
		a, b := meta.Operations[i], meta.Operations[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return lessMethod(a.Method, b.Method)
	})
	collectOperationTags(meta)

	return meta, nil
}

// decodeTree converts the document into a generic JSON object tree.
func decodeTree(src *Source) (map[string]any, error) {
	data := src.Raw
	switch {
	case src.Format == FormatJSON:
		if !json.Valid(data) {
			return nil, &ParseError{Reason: "malformed JSON", Err: json.Unmarshal(data, new(any))}
		}
	case !json.Valid(data):
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, &ParseError{Reason: "malformed YAML", Err: err}
		}
		data = converted
	}

	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, &ParseError{Reason: "malformed document", Err: err}
	}
	root, ok := tree.(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: "document root is not an object"}
	}
	return root, nil
}

func parseOpenAPI3(root map[string]any, meta *Metadata) error {
	data, err := json.Marshal(root)
	if err != nil {
		return err
	}
	var doc openapi3.T
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	fromOpenAPI3(&doc, meta)
	meta.Servers = openAPI3Servers(doc.Servers, meta.SourceURL)
	return nil
}

func parseSwagger2(root map[string]any, meta *Metadata) error {
	data, err := json.Marshal(root)
	if err != nil {
		return err
	}
	var doc2 openapi2.T
	if err := json.Unmarshal(data, &doc2); err != nil {
		return err
	}

	doc3, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		meta.Warnings = append(meta.Warnings, "conversion to OpenAPI 3 failed: "+err.Error())
		fromSwagger2(&doc2, meta)
	} else {
		fromOpenAPI3(doc3, meta)
	}

	// Servers come from host/basePath/schemes directly so the document URL
	// can fill in what the description leaves out.
	meta.Servers = swagger2Servers(doc2.Host, doc2.BasePath, doc2.Schemes, meta.SourceURL)
	return nil
}

func fromOpenAPI3(doc *openapi3.T, meta *Metadata) {
	if doc.Info != nil {
		meta.Title = strings.TrimSpace(doc.Info.Title)
		meta.Description = strings.TrimSpace(doc.Info.Description)
		meta.Version = strings.TrimSpace(doc.Info.Version)
		if c := doc.Info.Contact; c != nil {
			meta.Contact = Contact{
				Name:  strings.TrimSpace(c.Name),
				Email: strings.TrimSpace(c.Email),
				URL:   strings.TrimSpace(c.URL),
			}
		}
		if l := doc.Info.License; l != nil {
			meta.License = License{Name: strings.TrimSpace(l.Name), URL: strings.TrimSpace(l.URL)}
		}
	}

	for _, tag := range doc.Tags {
		if tag != nil {
			meta.Tags = appendUnique(meta.Tags, strings.TrimSpace(tag.Name))
		}
	}

	if doc.Paths == nil {
		return
	}
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			meta.Operations = append(meta.Operations, Operation{
				Method:  strings.ToUpper(method),
				Path:    path,
				Summary: shortDescription(op.Summary, op.Description),
				Tags:    trimAll(op.Tags),
			})
		}
	}
}

func fromSwagger2(doc *openapi2.T, meta *Metadata) {
	meta.Title = strings.TrimSpace(doc.Info.Title)
	meta.Description = strings.TrimSpace(doc.Info.Description)
	meta.Version = strings.TrimSpace(doc.Info.Version)
	if c := doc.Info.Contact; c != nil {
		meta.Contact = Contact{
			Name:  strings.TrimSpace(c.Name),
			Email: strings.TrimSpace(c.Email),
			URL:   strings.TrimSpace(c.URL),
		}
	}
	if l := doc.Info.License; l != nil {
		meta.License = License{Name: strings.TrimSpace(l.Name), URL: strings.TrimSpace(l.URL)}
	}

	for _, tag := range doc.Tags {
		if tag != nil {
			meta.Tags = appendUnique(meta.Tags, strings.TrimSpace(tag.Name))
		}
	}

	for path, item := range doc.Paths {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			meta.Operations = append(meta.Operations, Operation{
				Method:  strings.ToUpper(method),
				Path:    path,
				Summary: shortDescription(op.Summary, op.Description),
				Tags:    trimAll(op.Tags),
			})
		}
	}
}

var treeMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// fromTree reads the same fields from the generic tree. It is used when
// the typed model cannot decode an otherwise well-formed document.
func fromTree(root map[string]any, meta *Metadata) {
	info, _ := root["info"].(map[string]any)
	meta.Title = stringAt(info, "title")
	meta.Description = stringAt(info, "description")
	meta.Version = stringAt(info, "version")
	if c, ok := info["contact"].(map[string]any); ok {
		meta.Contact = Contact{Name: stringAt(c, "name"), Email: stringAt(c, "email"), URL: stringAt(c, "url")}
	}
	if l, ok := info["license"].(map[string]any); ok {
		meta.License = License{Name: stringAt(l, "name"), URL: stringAt(l, "url")}
	}

	meta.Tags = nil
	if tags, ok := root["tags"].([]any); ok {
		for _, t := range tags {
			if tag, ok := t.(map[string]any); ok {
				meta.Tags = appendUnique(meta.Tags, stringAt(tag, "name"))
			}
		}
	}

	meta.Operations = nil
	if paths, ok := root["paths"].(map[string]any); ok {
		for path, raw := range paths {
			item, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			for _, method := range treeMethods {
				op, ok := item[method].(map[string]any)
				if !ok {
					continue
				}
				var tags []string
				if list, ok := op["tags"].([]any); ok {
					for _, t := range list {
						if s, ok := t.(string); ok {
							tags = append(tags, strings.TrimSpace(s))
						}
					}
				}
				meta.Operations = append(meta.Operations, Operation{
					Method:  strings.ToUpper(method),
					Path:    path,
					Summary: shortDescription(stringAt(op, "summary"), stringAt(op, "description")),
					Tags:    tags,
				})
			}
		}
	}

	if meta.IsSwagger2() {
		var schemes []string
		if list, ok := root["schemes"].([]any); ok {
			for _, s := range list {
				if str, ok := s.(string); ok {
					schemes = append(schemes, str)
				}
			}
		}
		meta.Servers = swagger2Servers(stringAt(root, "host"), stringAt(root, "basePath"), schemes, meta.SourceURL)
		return
	}

	var servers openapi3.Servers
	if list, ok := root["servers"].([]any); ok {
		for _, s := range list {
			srv, ok := s.(map[string]any)
			if !ok {
				continue
			}
			server := &openapi3.Server{URL: stringAt(srv, "url"), Variables: map[string]*openapi3.ServerVariable{}}
			if vars, ok := srv["variables"].(map[string]any); ok {
				for name, v := range vars {
					if variable, ok := v.(map[string]any); ok {
						server.Variables[name] = &openapi3.ServerVariable{Default: stringAt(variable, "default")}
					}
				}
			}
			servers = append(servers, server)
		}
	}
	meta.Servers = openAPI3Servers(servers, meta.SourceURL)
}

// openAPI3Servers expands server variables with their defaults and
// resolves relative server URLs against the document URL.
func openAPI3Servers(servers openapi3.Servers, documentURL string) []string {
	var out []string
	for _, server := range servers {
		if server == nil || strings.TrimSpace(server.URL) == "" {
			continue
		}
		expanded := serverVarPattern.ReplaceAllStringFunc(strings.TrimSpace(server.URL), func(m string) string {
			name := m[1 : len(m)-1]
			if v, ok := server.Variables[name]; ok && v != nil && v.Default != "" {
				return v.Default
			}
			return m
		})
		if documentURL != "" {
			expanded = weburl.Resolve(documentURL, expanded)
		}
		out = appendUnique(out, strings.TrimRight(expanded, "/"))
	}
	return out
}

// swagger2Servers builds base URLs from schemes × host + basePath. A
// missing scheme or host is taken from the document URL.
func swagger2Servers(host, basePath string, schemes []string, documentURL string) []string {
	var docScheme, docHost string
	if u, err := url.Parse(documentURL); err == nil {
		docScheme, docHost = u.Scheme, u.Host
	}

	host = strings.TrimSpace(host)
	if host == "" {
		host = docHost
	}
	if host == "" {
		return nil
	}

	if len(schemes) == 0 {
		if docScheme != "" {
			schemes = []string{docScheme}
		} else {
			schemes = []string{"https"}
		}
	}

	basePath = strings.TrimSpace(basePath)
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	var out []string
	for _, scheme := range schemes {
		scheme = strings.ToLower(strings.TrimSpace(scheme))
		if scheme != "http" && scheme != "https" {
			continue
		}
		out = appendUnique(out, strings.TrimRight(scheme+"://"+host+basePath, "/"))
	}
	return out
}

// collectOperationTags appends operation tags after the top-level tags,
// in the order operations are sorted.
func collectOperationTags(meta *Metadata) {
	for _, op := range meta.Operations {
		for _, tag := range op.Tags {
			meta.Tags = appendUnique(meta.Tags, tag)
		}
	}
}

func stringAt(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(scalarString(m[key]))
}

// scalarString renders a decoded scalar as a string. Numbers keep their
// shortest form, so 1.0 becomes "1" and the caller decides about ".0".
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
