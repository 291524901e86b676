package bundle

import "strings"

// RDFaNode is a subject with its predicates, as emitted by RDFa parsers in
// expanded JSON-LD form.
type RDFaNode struct {
	ID         string
	Types      []string
	Predicates []RDFaPredicate
}

// RDFaPredicate is one predicate IRI with its objects.
type RDFaPredicate struct {
	IRI    string
	Values []RDFaValue
}

// RDFaValue is either a literal (Value, Language) or a reference (ID).
type RDFaValue struct {
	Value    string
	Language string
	ID       string
}

// NewRDFaNode converts a raw node. Wrappers carrying neither @value nor @id
// are dropped.
func NewRDFaNode(raw Value) RDFaNode {
	node := RDFaNode{
		ID:    raw.Get("@id").Text(),
		Types: raw.Get("@type").Strings(),
	}
	for _, key := range raw.Keys() {
		if key == "@id" || key == "@type" || key == "@context" {
			continue
		}
		pred := RDFaPredicate{IRI: key}
		for _, v := range raw.Get(key).List() {
			switch {
			case v.IsObject():
				switch {
				case v.Has("@value"):
					pred.Values = append(pred.Values, RDFaValue{
						Value:    strings.TrimSpace(v.Get("@value").String()),
						Language: v.Get("@language").Text(),
					})
				case v.Has("@id"):
					pred.Values = append(pred.Values, RDFaValue{ID: v.Get("@id").Text()})
				}
			case v.Kind() == KindString, v.Kind() == KindNumber, v.Kind() == KindBool:
				pred.Values = append(pred.Values, RDFaValue{Value: strings.TrimSpace(v.String())})
			}
		}
		node.Predicates = append(node.Predicates, pred)
	}
	return node
}

// Values returns the objects of the first predicate among iris that exists.
func (n *RDFaNode) Values(iris ...string) []RDFaValue {
	for _, iri := range iris {
		for _, p := range n.Predicates {
			if p.IRI == iri {
				return p.Values
			}
		}
	}
	return nil
}

// Literal returns the first non-empty literal of the first matching predicate.
func (n *RDFaNode) Literal(iris ...string) string {
	for _, iri := range iris {
		for _, v := range n.Values(iri) {
			if v.Value != "" {
				return v.Value
			}
		}
	}
	return ""
}

// Literals returns every non-empty literal of the first matching predicate.
func (n *RDFaNode) Literals(iris ...string) []string {
	var out []string
	for _, v := range n.Values(iris...) {
		if v.Value != "" {
			out = append(out, v.Value)
		}
	}
	return out
}

// PredicatesWithSuffix returns predicates whose IRI ends with suffix.
func (n *RDFaNode) PredicatesWithSuffix(suffix string) []RDFaPredicate {
	var out []RDFaPredicate
	for _, p := range n.Predicates {
		if strings.HasSuffix(p.IRI, suffix) {
			out = append(out, p)
		}
	}
	return out
}
