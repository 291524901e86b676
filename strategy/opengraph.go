package strategy

import (
	"strings"

	"github.com/aluiziolira/go-scrape-products/bundle"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
)

// OpenGraphStrategy reads og:type=product meta properties.
type OpenGraphStrategy struct{}

// Syntax implements Strategy.
func (OpenGraphStrategy) Syntax() bundle.Syntax { return bundle.OpenGraph }

// Extract implements Strategy. It reads the first node whose own og:type
// contains "product"; properties never mix across nodes.
func (OpenGraphStrategy) Extract(b *bundle.Bundle, pageURL string) Outcome {
	if b == nil {
		return Outcome{}
	}
	var props map[string]string
	for _, node := range b.OpenGraph {
		lookup := node.Lookup()
		if strings.Contains(strings.ToLower(lookup["og:type"]), "product") {
			props = lookup
			break
		}
	}
	if props == nil {
		return Outcome{}
	}

	get := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(props[k]); v != "" {
				return v
			}
		}
		return ""
	}

	f := &fields{}
	locale, _, _ := strings.Cut(get("og:locale"), "_")
	lang := parser.NormalizeLanguage(locale)

	var images []string
	if img := get("og:image", "og:image:url", "og:image:secure_url"); img != "" {
		images = []string{img}
	}

	p := &models.Product{
		ShopsItemID: firstNonEmpty(get("product:retailer_item_id"), pageURL),
		ShopName:    get("og:site_name"),
		Title:       text(get("og:title"), lang),
		Description: text(get("og:description"), lang),
		Price: models.Money{
			Currency: f.currency(get("product:price:currency", "og:price:currency")),
			Amount:   f.amount(get("product:price:amount", "og:price:amount"), true),
		},
		State:  f.state(get("product:availability", "og:availability")),
		URL:    firstNonEmpty(get("og:url"), pageURL),
		Images: images,
	}
	return f.found(p, pageURL)
}
