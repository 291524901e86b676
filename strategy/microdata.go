package strategy

import (
	"github.com/aluiziolira/go-scrape-products/bundle"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
)

var microdataProductTypes = map[string]bool{
	"http://schema.org/Product":           true,
	"https://schema.org/Product":          true,
	"http://data-vocabulary.org/Product":  true,
	"https://data-vocabulary.org/Product": true,
}

// MicrodataStrategy reads schema.org Product items from microdata.
type MicrodataStrategy struct{}

// Syntax implements Strategy.
func (MicrodataStrategy) Syntax() bundle.Syntax { return bundle.Microdata }

// Extract implements Strategy. The first product item in document order
// wins, however deeply it is nested.
func (MicrodataStrategy) Extract(b *bundle.Bundle, pageURL string) Outcome {
	if b == nil {
		return Outcome{}
	}
	var item *bundle.MicrodataItem
	for i := range b.Microdata {
		item = b.Microdata[i].Find(func(it *bundle.MicrodataItem) bool {
			return it.HasType(microdataProductTypes)
		})
		if item != nil {
			break
		}
	}
	if item == nil {
		return Outcome{}
	}

	f := &fields{}
	offer := item.Item("offers")
	rawPrice := firstNonEmpty(offer.Text("price"), offer.Text("lowPrice"), item.Text("price"))
	rawCurrency := firstNonEmpty(offer.Text("priceCurrency"), item.Text("priceCurrency"))
	lang := parser.NormalizeLanguage(item.Text("inLanguage"))

	p := &models.Product{
		ShopsItemID: firstNonEmpty(item.Text("sku"), item.Text("productID"), item.Text("productGroupID"), pageURL),
		ShopName:    firstNonEmpty(offer.Text("seller"), item.Text("seller")),
		Title:       text(item.Text("name"), lang),
		Description: text(item.Text("description"), lang),
		Price: models.Money{
			Currency: f.currency(rawCurrency),
			Amount:   f.amount(rawPrice, false),
		},
		State:  f.state(firstNonEmpty(offer.Text("availability"), item.Text("availability"))),
		URL:    firstNonEmpty(offer.Text("url"), item.Text("url"), pageURL),
		Images: item.Texts("image"),
	}
	return f.found(p, pageURL)
}
