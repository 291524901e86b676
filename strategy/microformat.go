package strategy

import (
	"strings"
	"unicode"

	"github.com/aluiziolira/go-scrape-products/bundle"
	"github.com/aluiziolira/go-scrape-products/models"
)

// MicroformatStrategy reads mf2 h-product items.
type MicroformatStrategy struct{}

// Syntax implements Strategy.
func (MicroformatStrategy) Syntax() bundle.Syntax { return bundle.Microformat }

// Extract implements Strategy.
func (MicroformatStrategy) Extract(b *bundle.Bundle, pageURL string) Outcome {
	if b == nil {
		return Outcome{}
	}
	var item *bundle.MicroformatItem
	for i := range b.Microformat {
		item = b.Microformat[i].Find(func(it *bundle.MicroformatItem) bool {
			return it.HasType("h-product")
		})
		if item != nil {
			break
		}
	}
	if item == nil {
		return Outcome{}
	}

	f := &fields{}
	symbol, rawAmount := splitCurrencySymbol(item.Text("price"))
	images := item.Values("photo")

	p := &models.Product{
		ShopsItemID: firstNonEmpty(item.Text("identifier", "sku"), pageURL),
		ShopName:    item.Text("brand"),
		Title:       text(item.Text("name"), models.UnknownLanguage),
		Description: text(item.Text("description", "summary"), models.UnknownLanguage),
		Price: models.Money{
			Currency: f.currency(firstNonEmpty(item.Text("currency"), symbol)),
			Amount:   f.amount(rawAmount, true),
		},
		State:  f.state(item.Text("availability")),
		URL:    firstNonEmpty(item.Text("url"), pageURL),
		Images: append([]string{}, images...),
	}
	return f.found(p, pageURL)
}

// splitCurrencySymbol separates a leading or trailing currency marker from
// a price such as "€10,50" or "10.50 EUR".
func splitCurrencySymbol(raw string) (symbol, amount string) {
	raw = strings.TrimSpace(raw)
	start := strings.IndexFunc(raw, unicode.IsDigit)
	end := strings.LastIndexFunc(raw, unicode.IsDigit)
	if start < 0 || end < start {
		return "", raw
	}
	amount = raw[start : end+1]
	symbol = strings.TrimSpace(raw[:start] + raw[end+1:])
	return symbol, amount
}
