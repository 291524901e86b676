// Package parser normalizes raw field values into canonical form and
// decides whether an extracted product is usable.
package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-products/models"
)

// ValidateProduct reports why a product is unusable, or nil when it has a
// title or a positive price.
func ValidateProduct(p *models.Product) error {
	if p == nil {
		return fmt.Errorf("product is nil")
	}
	if strings.TrimSpace(p.Title.Text) == "" && p.Price.Amount <= 0 {
		return fmt.Errorf("product %q has neither title nor price", p.URL)
	}
	return nil
}

// IsValidProduct reports whether p carries a title or a positive price.
func IsValidProduct(p *models.Product) bool {
	return ValidateProduct(p) == nil
}

// AnyValid reports whether any of products is valid.
func AnyValid(products []*models.Product) bool {
	for _, p := range products {
		if IsValidProduct(p) {
			return true
		}
	}
	return false
}

var availabilityStates = map[string]models.AvailabilityState{
	"INSTOCK":             models.StateAvailable,
	"INSTOREONLY":         models.StateAvailable,
	"ONLINEONLY":          models.StateAvailable,
	"LIMITEDAVAILABILITY": models.StateAvailable,
	"MADETOORDER":         models.StateAvailable,
	"AVAILABLEFORORDER":   models.StateAvailable,
	"BACKORDER":           models.StateListed,
	"PREORDER":            models.StateListed,
	"PRESALE":             models.StateListed,
	"RESERVED":            models.StateReserved,
	"SOLDOUT":             models.StateSold,
	"OUTOFSTOCK":          models.StateSold,
	"OOS":                 models.StateSold,
	"DISCONTINUED":        models.StateRemoved,
}

// NormalizeAvailability maps an availability token or URI such as
// "https://schema.org/InStock", "schema:InStock" or "in stock" to a state.
// Unrecognized input yields StateUnknown.
func NormalizeAvailability(raw string) models.AvailabilityState {
	token := AvailabilityToken(raw)
	if state, ok := availabilityStates[token]; ok {
		return state
	}
	return models.StateUnknown
}

// NormalizeAvailabilityList normalizes the first element of raw.
func NormalizeAvailabilityList(raw []string) models.AvailabilityState {
	if len(raw) == 0 {
		return models.StateUnknown
	}
	return NormalizeAvailability(raw[0])
}

// KnownAvailability reports whether raw maps to a state other than unknown.
func KnownAvailability(raw string) bool {
	_, ok := availabilityStates[AvailabilityToken(raw)]
	return ok
}

// AvailabilityToken returns the upper-cased last path, fragment or prefix
// segment of raw with inner separators removed.
func AvailabilityToken(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.LastIndexAny(s, "/#:"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, s)
	return strings.ToUpper(s)
}
