package parser

import (
	"strings"

	"github.com/aluiziolira/go-scrape-products/models"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

var currencySymbols = map[string]string{
	"€":   "EUR",
	"$":   "USD",
	"US$": "USD",
	"£":   "GBP",
	"¥":   "JPY",
	"ZŁ":  "PLN",
	"KČ":  "CZK",
}

// NormalizeCurrency returns the ISO 4217 code for raw, or UnknownCurrency
// when raw is empty or not a recognized code or symbol.
func NormalizeCurrency(raw string) string {
	code, _ := ParseCurrency(raw)
	return code
}

// ParseCurrency is NormalizeCurrency that also reports whether raw was
// recognized.
func ParseCurrency(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return models.UnknownCurrency, false
	}
	if code, ok := currencySymbols[s]; ok {
		s = code
	}
	unit, err := currency.ParseISO(s)
	if err != nil {
		return models.UnknownCurrency, false
	}
	return unit.String(), true
}

// NormalizeLanguage reduces a language tag or locale such as "de-DE" or
// "en_US" to its base language code. Tags the parser does not understand
// are returned lower-cased; empty input yields UnknownLanguage.
func NormalizeLanguage(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, models.UnknownLanguage) {
		return models.UnknownLanguage
	}
	s = strings.ReplaceAll(s, "_", "-")
	if tag, err := language.Parse(s); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			return base.String()
		}
	}
	return strings.ToLower(s)
}
