// Package dedup groups products describing the same real-world item and
// keeps the richest record per group.
package dedup

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/google/uuid"
)

// Identity returns the grouping key of p. Rules, first match wins: title,
// URL path, raw URL, shopsItemId, "unknown".
func Identity(p *models.Product) string {
	if p == nil {
		return "unknown"
	}
	if title := strings.ToLower(strings.TrimSpace(p.Title.Text)); title != "" {
		return "title::" + title
	}
	if raw := strings.ToLower(strings.TrimSpace(p.URL)); raw != "" {
		if u, err := url.Parse(raw); err == nil {
			if path := strings.TrimRight(u.Path, "/"); path != "" {
				return "urlpath::" + path
			}
		}
		return "url::" + raw
	}
	if id := strings.TrimSpace(p.ShopsItemID); id != "" && id != models.UnknownIdentifier {
		return id
	}
	return "unknown"
}

// ShopID derives a stable shop identifier from an origin such as
// "shop.example" or "https://shop.example/p/1".
func ShopID(origin string) string {
	host := strings.ToLower(strings.TrimSpace(origin))
	if strings.Contains(host, "://") {
		if u, err := url.Parse(host); err == nil {
			host = u.Hostname()
		}
	}
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return ""
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(host)).String()
}

const (
	weightTitle       = 3
	weightDescription = 2
	weightPrice       = 4
	weightImages      = 3
	weightState       = 1
	weightURL         = 2
	weightShopsItemID = 2
	weightShopName    = 1
	weightShopID      = 1

	longDescription = 120
	manyImages      = 3
	maxListScore    = 5
)

// Score measures how complete p is. Higher is richer. Localized fields
// count on their text alone; a language tag adds nothing.
func Score(p *models.Product) int {
	if p == nil {
		return 0
	}
	score := weightTitle*textScore(p.Title.Text) +
		weightDescription*textScore(p.Description.Text) +
		weightPrice*moneyScore(p.Price) +
		weightImages*listScore(p.Images) +
		weightState*textScore(string(p.State)) +
		weightURL*textScore(p.URL) +
		weightShopsItemID*textScore(p.ShopsItemID) +
		weightShopName*textScore(p.ShopName) +
		weightShopID*textScore(p.ShopID)

	if utf8.RuneCountInString(p.Description.Text) > longDescription {
		score += 2
	}
	if len(p.Images) >= manyImages {
		score += 2
	}
	return score
}

func textScore(s string) int {
	s = strings.TrimSpace(s)
	if s == "" || s == "UNKNOWN" {
		return 0
	}
	return 1
}

func moneyScore(m models.Money) int {
	if m.Amount > 0 {
		return 2
	}
	return 0
}

func listScore(items []string) int {
	n := 0
	for _, item := range items {
		if textScore(item) > 0 {
			n++
		}
	}
	return min(n, maxListScore)
}
