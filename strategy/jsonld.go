package strategy

import (
	"strings"

	"github.com/aluiziolira/go-scrape-products/bundle"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
)

// JSONLDStrategy reads schema.org Product nodes from JSON-LD.
type JSONLDStrategy struct{}

// Syntax implements Strategy.
func (JSONLDStrategy) Syntax() bundle.Syntax { return bundle.JSONLD }

// Extract implements Strategy.
func (JSONLDStrategy) Extract(b *bundle.Bundle, pageURL string) Outcome {
	if b == nil {
		return Outcome{}
	}
	node, ok := findJSONLDProduct(b.JSONLD)
	if !ok {
		return Outcome{}
	}

	f := &fields{}
	offer := node.Get("offers").First()
	if !offer.IsObject() {
		offer = bundle.Null
	}

	price := models.Money{
		Currency: f.currency(offer.Get("priceCurrency").Text()),
		Amount:   f.amount(offer.Get("price").Text(), false),
	}
	if price.Amount == 0 {
		if spec := offer.Get("priceSpecification").First(); spec.IsObject() {
			price = fallbackPrice(f, price, spec.Get("price").Text(), spec.Get("priceCurrency").Text())
		}
	}
	if price.Amount == 0 && offer.Has("lowPrice") {
		price = fallbackPrice(f, price, offer.Get("lowPrice").Text(), "")
	}

	lang := parser.NormalizeLanguage(jsonldLanguage(node.Get("inLanguage")))
	if lang == models.UnknownLanguage {
		lang = parser.NormalizeLanguage(siblingLanguage(b.JSONLD))
	}

	p := &models.Product{
		ShopsItemID: firstNonEmpty(node.Get("sku").Text(), node.Get("productGroupID").Text(), pageURL),
		ShopName:    namedText(offer.Get("seller")),
		Title:       text(node.Get("name").Text(), lang),
		Description: text(node.Get("description").Text(), lang),
		Price:       price,
		State:       f.state(offer.Get("availability").Text()),
		URL:         firstNonEmpty(node.Get("url").Text(), offer.Get("url").Text(), pageURL),
		Images:      jsonldImages(node.Get("image")),
	}
	return f.found(p, pageURL)
}

// fallbackPrice replaces a zero price with the parsed alternative. The
// alternative keeps the current currency when it has none of its own.
func fallbackPrice(f *fields, current models.Money, rawAmount, rawCurrency string) models.Money {
	amount := f.amount(rawAmount, false)
	if amount == 0 {
		return current
	}
	cur := current.Currency
	if strings.TrimSpace(rawCurrency) != "" {
		cur = f.currency(rawCurrency)
	}
	return models.Money{Currency: cur, Amount: amount}
}

func findJSONLDProduct(nodes []bundle.Value) (bundle.Value, bool) {
	for _, n := range nodes {
		if hasJSONLDType(n, "Product") {
			return n, true
		}
	}
	return bundle.Null, false
}

func hasJSONLDType(node bundle.Value, want string) bool {
	for _, t := range node.Get("@type").Strings() {
		if strings.EqualFold(localName(t), want) {
			return true
		}
	}
	return false
}

// jsonldLanguage accepts a plain code or a schema.org Language object.
func jsonldLanguage(v bundle.Value) string {
	v = v.First()
	if v.IsObject() {
		return firstNonEmpty(v.Get("alternateName").Text(), v.Get("name").Text())
	}
	return v.Text()
}

func siblingLanguage(nodes []bundle.Value) string {
	for _, n := range nodes {
		if lang := jsonldLanguage(n.Get("inLanguage")); lang != "" {
			return lang
		}
	}
	return ""
}

// namedText reads a plain string or the name of an embedded object.
func namedText(v bundle.Value) string {
	v = v.First()
	if v.IsObject() {
		return v.Get("name").Text()
	}
	return v.Text()
}

func jsonldImages(v bundle.Value) []string {
	images := []string{}
	for _, item := range v.List() {
		var src string
		if item.IsObject() {
			src = firstNonEmpty(item.Get("url").Text(), item.Get("contentUrl").Text())
		} else {
			src = strings.TrimSpace(item.String())
		}
		if src != "" {
			images = append(images, src)
		}
	}
	return images
}
