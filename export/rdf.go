// Package export serializes catalog records, either as the DataServiceInput
// JSON the catalog accepts or as a DCAT data service graph.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/c360studio/swagger2dcat/catalog"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatJSON produces the DataServiceInput JSON document.
	FormatJSON Format = "json"

	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

// ParseFormat maps a user-supplied name or file extension to a Format. An
// empty name selects JSON.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "", "json":
		return FormatJSON, nil
	case "turtle", "ttl":
		return FormatTurtle, nil
	case "ntriples", "n-triples", "nt":
		return FormatNTriples, nil
	case "jsonld", "json-ld":
		return FormatJSONLD, nil
	}
	return "", fmt.Errorf("unsupported format: %s", name)
}

// Namespaces used by the DCAT graph.
const (
	nsRDF   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsXSD   = "http://www.w3.org/2001/XMLSchema#"
	nsDCAT  = "http://www.w3.org/ns/dcat#"
	nsDCT   = "http://purl.org/dc/terms/"
	nsFOAF  = "http://xmlns.com/foaf/0.1/"
	nsVCard = "http://www.w3.org/2006/vcard/ns#"

	rdfType = nsRDF + "type"
)

// defaultPrefixes returns the namespace prefixes written to Turtle and
// JSON-LD output.
func defaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":   nsRDF,
		"xsd":   nsXSD,
		"dcat":  nsDCAT,
		"dct":   nsDCT,
		"foaf":  nsFOAF,
		"vcard": nsVCard,
	}
}

// TermKind distinguishes IRIs, blank nodes and literals.
type TermKind int

const (
	KindIRI TermKind = iota
	KindBlank
	KindLiteral
)

// Term is a node or literal in a triple.
type Term struct {
	Kind     TermKind
	Value    string
	Lang     string
	Datatype string
}

// IRI returns an IRI term.
func IRI(v string) Term { return Term{Kind: KindIRI, Value: v} }

// Blank returns a blank node with the given label.
func Blank(label string) Term { return Term{Kind: KindBlank, Value: label} }

// Literal returns a plain literal, language-tagged when lang is set.
func Literal(v, lang string) Term { return Term{Kind: KindLiteral, Value: v, Lang: lang} }

// Typed returns a literal with a datatype IRI.
func Typed(v, datatype string) Term { return Term{Kind: KindLiteral, Value: v, Datatype: datatype} }

// Triple is one statement of the graph.
type Triple struct {
	Subject   Term
	Predicate string
	Object    Term
}

// RDFExporter collects triples and serializes them.
type RDFExporter struct {
	prefixes map[string]string
	triples  []Triple
}

// NewRDFExporter creates an exporter with the DCAT prefixes.
func NewRDFExporter() *RDFExporter {
	return &RDFExporter{prefixes: defaultPrefixes()}
}

// Add appends a triple.
func (e *RDFExporter) Add(subject Term, predicate string, object Term) {
	e.triples = append(e.triples, Triple{Subject: subject, Predicate: predicate, Object: object})
}

// Triples returns the collected triples in insertion order.
func (e *RDFExporter) Triples() []Triple {
	return e.triples
}

// SubjectIRI is the stable identifier of a record's data service node,
// derived from its primary endpoint (or its title when there is none).
func SubjectIRI(rec *catalog.Record) string {
	name := rec.PrimaryEndpoint()
	if name == "" {
		name = rec.Title.First()
	}
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// AddRecord adds the DCAT description of rec and returns its subject IRI.
func (e *RDFExporter) AddRecord(rec *catalog.Record) string {
	iri := SubjectIRI(rec)
	s := IRI(iri)

	e.Add(s, rdfType, IRI(nsDCAT+"DataService"))
	e.addText(s, nsDCT+"title", rec.Title)
	e.addText(s, nsDCT+"description", rec.Description)
	for _, kw := range rec.Keywords {
		e.addText(s, nsDCAT+"keyword", kw.Label)
	}

	if id := rec.Publisher.Identifier; id != "" {
		pub := Blank("publisher")
		e.Add(s, nsDCT+"publisher", pub)
		e.Add(pub, rdfType, IRI(nsFOAF+"Agent"))
		e.Add(pub, nsDCT+"identifier", Literal(id, ""))
	}

	for i, cp := range rec.ContactPoints {
		node := Blank(fmt.Sprintf("contact%d", i))
		e.Add(s, nsDCAT+"contactPoint", node)
		e.addContact(node, cp)
	}

	for _, code := range rec.ThemeCodes {
		e.Add(s, nsDCAT+"theme", Literal(code, ""))
	}
	if rec.AccessRights.Code != "" {
		e.Add(s, nsDCT+"accessRights", Literal(rec.AccessRights.Code, ""))
	}
	if rec.License != nil && rec.License.URI != "" {
		e.Add(s, nsDCT+"license", IRI(rec.License.URI))
	}

	e.addLinks(s, nsDCAT+"endpointURL", rec.EndpointURLs)
	e.addLinks(s, nsDCAT+"endpointDescription", rec.EndpointDescriptions)
	e.addLinks(s, nsFOAF+"page", rec.Documents)
	e.addLinks(s, nsDCT+"conformsTo", rec.ConformsTo)
	e.addLinks(s, nsDCAT+"landingPage", rec.LandingPages)

	if rec.Version != "" {
		e.Add(s, nsDCAT+"version", Literal(rec.Version, ""))
	}
	if rec.Issued != "" {
		e.Add(s, nsDCT+"issued", Typed(rec.Issued, nsXSD+"date"))
	}
	return iri
}

func (e *RDFExporter) addContact(node Term, cp catalog.ContactPoint) {
	switch strings.ToLower(cp.Kind) {
	case "organization":
		e.Add(node, rdfType, IRI(nsVCard+"Organization"))
	case "individual":
		e.Add(node, rdfType, IRI(nsVCard+"Individual"))
	default:
		e.Add(node, rdfType, IRI(nsVCard+"Kind"))
	}
	e.addText(node, nsVCard+"fn", cp.Fn)
	e.addText(node, nsVCard+"hasAddress", cp.HasAddress)
	e.addText(node, nsVCard+"note", cp.Note)
	if cp.HasEmail != "" {
		e.Add(node, nsVCard+"hasEmail", IRI(withScheme("mailto:", cp.HasEmail)))
	}
	if cp.HasTelephone != "" {
		tel := strings.ReplaceAll(cp.HasTelephone, " ", "")
		e.Add(node, nsVCard+"hasTelephone", IRI(withScheme("tel:", tel)))
	}
}

func (e *RDFExporter) addText(s Term, predicate string, t catalog.Text) {
	for _, lang := range catalog.Languages {
		if v := t.Get(lang); v != "" {
			e.Add(s, predicate, Literal(v, lang))
		}
	}
}

func (e *RDFExporter) addLinks(s Term, predicate string, links []catalog.Link) {
	for _, l := range links {
		if l.URI != "" {
			e.Add(s, predicate, IRI(l.URI))
		}
	}
}

func withScheme(scheme, v string) string {
	if strings.HasPrefix(strings.ToLower(v), scheme) {
		return v
	}
	return scheme + v
}

// Export serializes all triples to the specified RDF format.
func (e *RDFExporter) Export(format Format) (string, error) {
	switch format {
	case FormatTurtle:
		return e.toTurtle(), nil
	case FormatNTriples:
		return e.toNTriples(), nil
	case FormatJSONLD:
		return e.toJSONLD()
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// predicateGroup is one predicate of a subject with all its objects.
type predicateGroup struct {
	predicate string
	objects   []Term
}

// grouped returns subjects in first-seen order with their predicates,
// also in first-seen order.
func (e *RDFExporter) grouped() ([]Term, map[Term][]predicateGroup) {
	var order []Term
	groups := make(map[Term][]predicateGroup)
	for _, t := range e.triples {
		preds, seen := groups[t.Subject]
		if !seen {
			order = append(order, t.Subject)
		}
		idx := -1
		for i, g := range preds {
			if g.predicate == t.Predicate {
				idx = i
				break
			}
		}
		if idx < 0 {
			preds = append(preds, predicateGroup{predicate: t.Predicate})
			idx = len(preds) - 1
		}
		preds[idx].objects = append(preds[idx].objects, t.Object)
		groups[t.Subject] = preds
	}
	return order, groups
}

func (e *RDFExporter) toTurtle() string {
	w := NewTurtleWriter()
	for prefix, iri := range e.prefixes {
		w.SetPrefix(prefix, iri)
	}
	w.WritePrefixes()

	order, groups := e.grouped()
	for i, subject := range order {
		w.WriteSubject(subject)
		preds := groups[subject]
		for j, g := range preds {
			w.WritePredicate(g.predicate, g.objects, j == len(preds)-1)
		}
		if i < len(order)-1 {
			w.WriteBlank()
		}
	}
	return w.String()
}

func (e *RDFExporter) toNTriples() string {
	w := NewNTriplesWriter()
	for _, t := range e.triples {
		w.WriteTriple(t)
	}
	return w.String()
}

func (e *RDFExporter) toJSONLD() (string, error) {
	w := NewJSONLDWriter()
	w.SetContext(e.prefixes)

	order, groups := e.grouped()
	for _, subject := range order {
		var types []string
		props := make(map[string]any)
		for _, g := range groups[subject] {
			if g.predicate == rdfType {
				for _, o := range g.objects {
					types = append(types, compactIRI(e.prefixes, o.Value))
				}
				continue
			}
			values := make([]any, 0, len(g.objects))
			for _, o := range g.objects {
				values = append(values, jsonLDValue(e.prefixes, o))
			}
			key := compactIRI(e.prefixes, g.predicate)
			if len(values) == 1 {
				props[key] = values[0]
			} else {
				props[key] = values
			}
		}
		w.AddNode(nodeID(subject), types, props)
	}
	return w.String()
}

// Export renders rec in format.
func Export(rec *catalog.Record, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return MarshalRecord(rec)
	case FormatTurtle, FormatNTriples, FormatJSONLD:
		e := NewRDFExporter()
		e.AddRecord(rec)
		out, err := e.Export(format)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

// MarshalRecord encodes rec as indented DataServiceInput JSON without
// escaping HTML characters in descriptions.
func MarshalRecord(rec *catalog.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName returns the download name of rec in format: the record's
// <slug>_dcat.json, with the extension swapped for RDF formats.
func FileName(rec *catalog.Record, format Format) string {
	name := rec.FileName()
	info, ok := GetFormatInfo(format)
	if !ok || format == FormatJSON {
		return name
	}
	return strings.TrimSuffix(name, ".json") + info.Extension
}
