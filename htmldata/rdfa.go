package htmldata

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-products/bundle"
)

const ogpNS = "http://ogp.me/ns#"

var defaultPrefixes = map[string]string{
	"og":      ogpNS,
	"product": "http://ogp.me/ns/product#",
	"schema":  "http://schema.org/",
	"dc":      "http://purl.org/dc/terms/",
	"rdf":     "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
}

type rdfaNode struct {
	types []string
	props orderedProps
}

// rdfa reads property and typeof attributes into one node per subject.
// Subjects come from the closest about attribute and default to the page.
func rdfa(root *goquery.Selection, base *url.URL) []bundle.Value {
	prefixes := rdfaPrefixes(root)
	pageSubject := ""
	if base != nil {
		pageSubject = base.String()
	}

	var order []string
	nodes := map[string]*rdfaNode{}
	node := func(s *goquery.Selection) *rdfaNode {
		subject := pageSubject
		if about, ok := s.Closest("[about]").Attr("about"); ok {
			subject = absolute(base, about)
		}
		n, ok := nodes[subject]
		if !ok {
			n = &rdfaNode{}
			nodes[subject] = n
			order = append(order, subject)
		}
		return n
	}

	root.Find("[typeof], [property]").Each(func(_ int, s *goquery.Selection) {
		n := node(s)
		for _, t := range strings.Fields(s.AttrOr("typeof", "")) {
			n.types = append(n.types, expandCURIE(t, prefixes))
		}
		names := strings.Fields(s.AttrOr("property", ""))
		if len(names) == 0 {
			return
		}
		fields := []bundle.Field{{Key: "@value", Value: bundle.String(elementValue(s, base))}}
		if lang, ok := s.Closest("[lang]").Attr("lang"); ok && strings.TrimSpace(lang) != "" {
			fields = append(fields, bundle.Field{Key: "@language", Value: bundle.String(strings.TrimSpace(lang))})
		}
		literal := bundle.Object(fields...)
		for _, name := range names {
			n.props.add(expandCURIE(name, prefixes), literal)
		}
	})

	var out []bundle.Value
	for _, subject := range order {
		n := nodes[subject]
		fields := []bundle.Field{{Key: "@id", Value: bundle.String(subject)}}
		if len(n.types) > 0 {
			fields = append(fields, bundle.Field{Key: "@type", Value: bundle.List(stringValues(n.types)...)})
		}
		obj := n.props.object()
		for _, key := range obj.Keys() {
			fields = append(fields, bundle.Field{Key: key, Value: obj.Get(key)})
		}
		out = append(out, bundle.Object(fields...))
	}
	return out
}

// rdfaPrefixes merges the default prefixes with every prefix attribute in
// the document, such as prefix="og: http://ogp.me/ns#".
func rdfaPrefixes(root *goquery.Selection) map[string]string {
	prefixes := make(map[string]string, len(defaultPrefixes))
	for k, v := range defaultPrefixes {
		prefixes[k] = v
	}
	root.Find("[prefix]").AddSelection(root.Filter("[prefix]")).Each(func(_ int, s *goquery.Selection) {
		tokens := strings.Fields(s.AttrOr("prefix", ""))
		for i := 0; i+1 < len(tokens); i += 2 {
			name, ok := strings.CutSuffix(tokens[i], ":")
			if !ok {
				continue
			}
			prefixes[name] = tokens[i+1]
		}
	})
	return prefixes
}

// expandCURIE expands a compact name whose prefix is known. Absolute IRIs
// and unknown prefixes are returned unchanged.
func expandCURIE(name string, prefixes map[string]string) string {
	prefix, rest, ok := strings.Cut(name, ":")
	if !ok || strings.HasPrefix(rest, "//") {
		return name
	}
	if ns, known := prefixes[prefix]; known {
		return ns + rest
	}
	return name
}
