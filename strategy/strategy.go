// Package strategy turns the structured data of one page into a canonical
// product. Each supported syntax has its own Strategy; a Selector runs them
// in the caller's preferred order and keeps the first usable product.
package strategy

import (
	"errors"
	"strings"

	"github.com/aluiziolira/go-scrape-products/bundle"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
)

// Status tells whether a strategy found a product node.
type Status int

const (
	// Absent means the syntax is missing or carries no product node.
	Absent Status = iota
	// Found means a product was built, possibly with malformed fields.
	Found
)

func (s Status) String() string {
	if s == Found {
		return "found"
	}
	return "absent"
}

// Outcome is the result of running one strategy. Malformed lists the fields
// whose values were present but unparsable and fell back to sentinels.
type Outcome struct {
	Status    Status
	Product   *models.Product
	Malformed []models.FieldIssue
}

// Strategy extracts a product from a single syntax of a bundle.
type Strategy interface {
	Syntax() bundle.Syntax
	Extract(b *bundle.Bundle, pageURL string) Outcome
}

// Default returns every built-in strategy in default priority order.
func Default() []Strategy {
	return []Strategy{
		JSONLDStrategy{},
		MicrodataStrategy{},
		RDFaStrategy{},
		OpenGraphStrategy{},
		MicroformatStrategy{},
	}
}

// fields accumulates malformed-field reports while a product is built.
type fields struct {
	issues []models.FieldIssue
}

func (f *fields) malformed(field, raw string) {
	f.issues = append(f.issues, models.FieldIssue{Field: field, Raw: raw})
}

// amount parses raw into cents. Empty input is absence; anything else that
// fails to parse is reported and yields 0.
func (f *fields) amount(raw string, lenient bool) int64 {
	parse := parser.ParseAmount
	if lenient {
		parse = parser.ParseLenientAmount
	}
	cents, err := parse(raw)
	if err != nil {
		if !errors.Is(err, parser.ErrEmptyPrice) {
			f.malformed("price", raw)
		}
		return 0
	}
	return cents
}

func (f *fields) currency(raw string) string {
	code, ok := parser.ParseCurrency(raw)
	if !ok && strings.TrimSpace(raw) != "" {
		f.malformed("currency", raw)
	}
	return code
}

func (f *fields) state(raw string) models.AvailabilityState {
	if strings.TrimSpace(raw) != "" && !parser.KnownAvailability(raw) {
		f.malformed("availability", raw)
	}
	return parser.NormalizeAvailability(raw)
}

func (f *fields) found(p *models.Product, pageURL string) Outcome {
	finish(p, pageURL)
	return Outcome{Status: Found, Product: p, Malformed: f.issues}
}

// finish fills sentinels so every record has the same shape.
func finish(p *models.Product, pageURL string) {
	p.Title.Text = strings.TrimSpace(p.Title.Text)
	p.Description.Text = strings.TrimSpace(p.Description.Text)
	if p.Title.Language == "" {
		p.Title.Language = models.UnknownLanguage
	}
	if p.Description.Language == "" {
		p.Description.Language = models.UnknownLanguage
	}
	if p.Price.Currency == "" {
		p.Price.Currency = models.UnknownCurrency
	}
	if p.State == "" {
		p.State = models.StateUnknown
	}
	if p.URL == "" {
		p.URL = pageURL
	}
	if p.ShopsItemID == "" {
		p.ShopsItemID = firstNonEmpty(pageURL, models.UnknownIdentifier)
	}
	if p.Images == nil {
		p.Images = []string{}
	}
}

func text(s, lang string) models.LocalizedText {
	return models.LocalizedText{Text: s, Language: lang}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// localName returns the part of an IRI or compact name after the last
// '/', '#' or ':'.
func localName(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexAny(s, "/#:"); i >= 0 {
		return s[i+1:]
	}
	return s
}
