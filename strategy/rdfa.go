package strategy

import (
	"strings"
	"unicode/utf8"

	"github.com/aluiziolira/go-scrape-products/bundle"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
)

const (
	ogpNS     = "http://ogp.me/ns#"
	productNS = "http://ogp.me/ns/product#"
)

// RDFaStrategy reads OpenGraph-vocabulary product nodes expressed as RDFa.
type RDFaStrategy struct{}

// Syntax implements Strategy.
func (RDFaStrategy) Syntax() bundle.Syntax { return bundle.RDFa }

// Extract implements Strategy.
func (RDFaStrategy) Extract(b *bundle.Bundle, pageURL string) Outcome {
	if b == nil {
		return Outcome{}
	}
	var node *bundle.RDFaNode
	for i := range b.RDFa {
		if isRDFaProduct(&b.RDFa[i]) {
			node = &b.RDFa[i]
			break
		}
	}
	if node == nil {
		return Outcome{}
	}

	f := &fields{}
	lang := parser.NormalizeLanguage(firstRunes(node.Literal(ogpNS+"locale", "og:locale"), 2))
	resolvedURL := firstNonEmpty(node.Literal(ogpNS+"url", "og:url"), pageURL)

	p := &models.Product{
		ShopsItemID: firstNonEmpty(
			node.Literal("product:retailer_item_id", productNS+"retailer_item_id"),
			resolvedURL,
			models.UnknownIdentifier,
		),
		ShopName:    node.Literal(ogpNS+"site_name", "og:site_name"),
		Title:       text(node.Literal(ogpNS+"title", "og:title"), lang),
		Description: text(node.Literal(ogpNS+"description", "og:description"), lang),
		Price: models.Money{
			Currency: f.currency(node.Literal("product:price:currency", productNS+"price:currency")),
			Amount: f.amount(node.Literal(
				"product:price:amount", productNS+"price:amount",
				"product:price", productNS+"price",
			), true),
		},
		State:  f.state(node.Literal("product:availability", productNS+"availability")),
		URL:    resolvedURL,
		Images: node.Literals(ogpNS+"image", "og:image"),
	}
	return f.found(p, pageURL)
}

// isRDFaProduct matches on the values of #type predicates only. A typeof
// attribute alone, such as schema:Product, does not select the node.
func isRDFaProduct(n *bundle.RDFaNode) bool {
	preds := n.PredicatesWithSuffix("#type")
	preds = append(preds, bundle.RDFaPredicate{IRI: "og:type", Values: n.Values("og:type")})
	for _, p := range preds {
		for _, v := range p.Values {
			if strings.EqualFold(v.Value, "product") {
				return true
			}
			if v.ID != "" && strings.EqualFold(localName(v.ID), "product") {
				return true
			}
		}
	}
	return false
}

func firstRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
