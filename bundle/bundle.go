package bundle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Syntax names a structured data standard.
type Syntax string

const (
	JSONLD      Syntax = "json-ld"
	Microdata   Syntax = "microdata"
	RDFa        Syntax = "rdfa"
	OpenGraph   Syntax = "opengraph"
	Microformat Syntax = "microformat"
)

// Syntaxes lists every known syntax in default priority order.
var Syntaxes = []Syntax{JSONLD, Microdata, RDFa, OpenGraph, Microformat}

// ParseSyntax maps a configuration name to a Syntax. Matching ignores case
// and accepts a few common spellings.
func ParseSyntax(name string) (Syntax, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json-ld", "jsonld", "json_ld":
		return JSONLD, true
	case "microdata":
		return Microdata, true
	case "rdfa":
		return RDFa, true
	case "opengraph", "open-graph", "og":
		return OpenGraph, true
	case "microformat", "microformats", "mf2":
		return Microformat, true
	}
	return "", false
}

// Bundle is the per-page collection of structured data grouped by syntax.
// Extraction code treats it as read-only.
type Bundle struct {
	JSONLD      []Value
	Microdata   []MicrodataItem
	RDFa        []RDFaNode
	OpenGraph   []OpenGraphNode
	Microformat []MicroformatItem
}

// Empty reports whether the bundle carries no nodes at all.
func (b *Bundle) Empty() bool {
	return b == nil || len(b.JSONLD)+len(b.Microdata)+len(b.RDFa)+len(b.OpenGraph)+len(b.Microformat) == 0
}

// FromValue converts a raw bundle object keyed by syntax name. Unknown
// syntax names are ignored.
func FromValue(raw Value) *Bundle {
	b := &Bundle{}
	for _, key := range raw.Keys() {
		syntax, ok := ParseSyntax(key)
		if !ok {
			continue
		}
		entries := raw.Get(key)
		switch syntax {
		case JSONLD:
			b.JSONLD = append(b.JSONLD, flattenJSONLD(entries)...)
		case Microdata:
			for _, entry := range entries.List() {
				if entry.IsObject() {
					b.Microdata = append(b.Microdata, NewMicrodataItem(entry))
				}
			}
		case RDFa:
			for _, entry := range entries.List() {
				if entry.IsObject() {
					b.RDFa = append(b.RDFa, NewRDFaNode(entry))
				}
			}
		case OpenGraph:
			b.OpenGraph = append(b.OpenGraph, openGraphNodes(entries)...)
		case Microformat:
			for _, entry := range entries.List() {
				if entry.IsObject() {
					b.Microformat = append(b.Microformat, NewMicroformatItem(entry))
				}
			}
		}
	}
	return b
}

// FromMap converts an already-decoded bundle.
func FromMap(raw map[string]any) *Bundle {
	return FromValue(FromAny(raw))
}

// Parse decodes a JSON bundle document.
func Parse(data []byte) (*Bundle, error) {
	raw, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if !raw.IsObject() {
		return nil, fmt.Errorf("bundle: expected object keyed by syntax, got kind %d", raw.Kind())
	}
	return FromValue(raw), nil
}

// flattenJSONLD expands top-level arrays and appends @graph members after
// their container.
func flattenJSONLD(entries Value) []Value {
	var out []Value
	for _, entry := range entries.List() {
		switch {
		case entry.IsList():
			out = append(out, flattenJSONLD(entry)...)
		case entry.IsObject():
			out = append(out, entry)
			for _, member := range entry.Get("@graph").List() {
				if member.IsObject() {
					out = append(out, member)
				}
			}
		}
	}
	return out
}

// Page is one page worth of structured data together with its location.
type Page struct {
	URL    string `json:"url"`
	Origin string `json:"origin,omitempty"`
	Data   Value  `json:"data"`
}

// Bundle converts the page data.
func (p Page) Bundle() *Bundle {
	return FromValue(p.Data)
}

// ParsePage decodes one JSONL page record.
func ParsePage(line []byte) (Page, error) {
	var page Page
	if err := json.Unmarshal(line, &page); err != nil {
		return Page{}, fmt.Errorf("bundle: decode page: %w", err)
	}
	return page, nil
}
