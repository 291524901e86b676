// Package htmldata reads the embedded structured data of an HTML page
// (JSON-LD scripts, microdata, RDFa attributes, OpenGraph meta tags and
// microformats) into a bundle.
package htmldata

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-products/bundle"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse reads an HTML document and returns its structured data.
func Parse(r io.Reader, pageURL string) (*bundle.Bundle, error) {
	raw, err := Extract(r, pageURL)
	if err != nil {
		return nil, err
	}
	return bundle.FromValue(raw), nil
}

// Extract reads an HTML document and returns the raw bundle value keyed by
// syntax name, in the same shape ParsePage accepts.
func Extract(r io.Reader, pageURL string) (bundle.Value, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return bundle.Null, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return bundle.Null, fmt.Errorf("parse page url: %w", err)
	}
	return FromSelection(doc.Selection, base), nil
}

// FromSelection extracts every syntax below root. Syntaxes with no data are
// omitted from the result.
func FromSelection(root *goquery.Selection, base *url.URL) bundle.Value {
	var fields []bundle.Field
	add := func(syntax bundle.Syntax, entries []bundle.Value) {
		if len(entries) > 0 {
			fields = append(fields, bundle.Field{Key: string(syntax), Value: bundle.List(entries...)})
		}
	}
	add(bundle.JSONLD, jsonLD(root))
	add(bundle.Microdata, microdata(root, base))
	add(bundle.RDFa, rdfa(root, base))
	add(bundle.OpenGraph, openGraph(root))
	add(bundle.Microformat, microformats(root, base))
	return bundle.Object(fields...)
}

// jsonLD decodes every ld+json script. Scripts that are not valid JSON are
// skipped.
func jsonLD(root *goquery.Selection) []bundle.Value {
	var out []bundle.Value
	root.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		body := strings.TrimSpace(s.Text())
		if body == "" {
			return
		}
		v, err := bundle.Decode([]byte(body))
		if err != nil {
			return
		}
		out = append(out, v)
	})
	return out
}

var openGraphPrefixes = []string{"og:", "product:", "article:", "book:", "profile:", "fb:"}

// openGraph collects meta property pairs in document order into one node.
func openGraph(root *goquery.Selection) []bundle.Value {
	var pairs []bundle.Value
	root.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key := strings.TrimSpace(s.AttrOr("property", ""))
		if key == "" {
			key = strings.TrimSpace(s.AttrOr("name", ""))
		}
		content, ok := s.Attr("content")
		if !ok || !hasOpenGraphPrefix(key) {
			return
		}
		pairs = append(pairs, bundle.List(bundle.String(key), bundle.String(strings.TrimSpace(content))))
	})
	if len(pairs) == 0 {
		return nil
	}
	return []bundle.Value{bundle.Object(
		bundle.Field{Key: "namespace", Value: bundle.Object(bundle.Field{Key: "og", Value: bundle.String(ogpNS)})},
		bundle.Field{Key: "properties", Value: bundle.List(pairs...)},
	)}
}

func hasOpenGraphPrefix(key string) bool {
	key = strings.ToLower(key)
	for _, p := range openGraphPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// orderedProps groups values by property name, keeping first-seen order.
type orderedProps struct {
	names  []string
	values map[string][]bundle.Value
}

func (o *orderedProps) add(name string, v bundle.Value) {
	if o.values == nil {
		o.values = make(map[string][]bundle.Value)
	}
	if _, ok := o.values[name]; !ok {
		o.names = append(o.names, name)
	}
	o.values[name] = append(o.values[name], v)
}

func (o *orderedProps) has(name string) bool {
	_, ok := o.values[name]
	return ok
}

func (o *orderedProps) object() bundle.Value {
	fields := make([]bundle.Field, 0, len(o.names))
	for _, name := range o.names {
		fields = append(fields, bundle.Field{Key: name, Value: bundle.List(o.values[name]...)})
	}
	return bundle.Object(fields...)
}

func tagAtom(s *goquery.Selection) atom.Atom {
	if len(s.Nodes) == 0 || s.Nodes[0].Type != html.ElementNode {
		return 0
	}
	return s.Nodes[0].DataAtom
}

// elementValue returns the value an element carries as a property, using
// the attribute its tag defines and falling back to its text.
func elementValue(s *goquery.Selection, base *url.URL) string {
	if v, ok := s.Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	switch tagAtom(s) {
	case atom.Meta:
		return ""
	case atom.Img, atom.Audio, atom.Video, atom.Source, atom.Embed, atom.Iframe, atom.Track:
		return absolute(base, s.AttrOr("src", ""))
	case atom.A, atom.Area, atom.Link:
		return absolute(base, s.AttrOr("href", ""))
	case atom.Object:
		return absolute(base, s.AttrOr("data", ""))
	case atom.Data, atom.Meter:
		if v, ok := s.Attr("value"); ok {
			return strings.TrimSpace(v)
		}
	case atom.Time:
		if v, ok := s.Attr("datetime"); ok {
			return strings.TrimSpace(v)
		}
	}
	return collapse(s.Text())
}

func absolute(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stringValues(ss []string) []bundle.Value {
	out := make([]bundle.Value, len(ss))
	for i, s := range ss {
		out[i] = bundle.String(s)
	}
	return out
}
