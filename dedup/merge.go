package dedup

import (
	"strings"

	"github.com/aluiziolira/go-scrape-products/models"
)

// SameProduct reports whether a and b share a URL or a title.
func SameProduct(a, b *models.Product) bool {
	if a == nil || b == nil {
		return false
	}
	if ua, ub := strings.TrimSpace(a.URL), strings.TrimSpace(b.URL); ua != "" && ua == ub {
		return true
	}
	ta, tb := strings.TrimSpace(a.Title.Text), strings.TrimSpace(b.Title.Text)
	return ta != "" && strings.EqualFold(ta, tb)
}

// Merge returns a copy of base with its empty or unknown fields filled from
// other and the images of both combined.
func Merge(base, other *models.Product) *models.Product {
	out := base.Clone()
	if other == nil {
		return out
	}

	out.Title = mergeText(out.Title, other.Title)
	out.Description = mergeText(out.Description, other.Description)

	if out.Price.Amount <= 0 && other.Price.Amount > 0 {
		out.Price = other.Price
	}
	if out.Price.Currency == "" || out.Price.Currency == models.UnknownCurrency {
		if other.Price.Currency != "" && other.Price.Currency != models.UnknownCurrency {
			out.Price.Currency = other.Price.Currency
		}
	}
	if out.State == "" || out.State == models.StateUnknown {
		out.State = other.State
	}
	if out.URL == "" {
		out.URL = other.URL
	}
	if preferIdentifier(out.ShopsItemID, other.ShopsItemID) {
		out.ShopsItemID = other.ShopsItemID
	}
	if out.ShopName == "" {
		out.ShopName = other.ShopName
	}
	if out.ShopID == "" {
		out.ShopID = other.ShopID
	}
	out.Images = unionImages(out.Images, other.Images)
	return out
}

// MergeLists folds others into base: products matching an existing entry
// are merged into it, the rest are appended.
func MergeLists(base, others []*models.Product) []*models.Product {
	out := make([]*models.Product, 0, len(base)+len(others))
	for _, p := range base {
		if p != nil {
			out = append(out, p.Clone())
		}
	}
	for _, p := range others {
		if p == nil {
			continue
		}
		merged := false
		for i := range out {
			if SameProduct(out[i], p) {
				out[i] = Merge(out[i], p)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, p.Clone())
		}
	}
	return out
}

func mergeText(base, other models.LocalizedText) models.LocalizedText {
	if strings.TrimSpace(base.Text) == "" {
		if strings.TrimSpace(other.Text) != "" {
			return other
		}
		return base
	}
	if base.Language == "" || base.Language == models.UnknownLanguage {
		if other.Language != "" && other.Language != models.UnknownLanguage {
			base.Language = other.Language
		}
	}
	return base
}

// preferIdentifier reports whether candidate should replace current.
// Identifiers that are not URLs win over URL fallbacks.
func preferIdentifier(current, candidate string) bool {
	if candidate == "" || candidate == models.UnknownIdentifier {
		return false
	}
	if current == "" || current == models.UnknownIdentifier {
		return true
	}
	return isURL(current) && !isURL(candidate)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func unionImages(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, img := range list {
			img = strings.TrimSpace(img)
			if img == "" {
				continue
			}
			if _, ok := seen[img]; ok {
				continue
			}
			seen[img] = struct{}{}
			out = append(out, img)
		}
	}
	return out
}
