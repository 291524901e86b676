// Package models defines the canonical product record and crawl results.
package models

import "time"

// Sentinels used when a field could not be resolved.
const (
	UnknownCurrency   = "UNKNOWN"
	UnknownLanguage   = "UNKNOWN"
	UnknownIdentifier = "UNKNOWN"
)

// AvailabilityState is the closed set of listing states.
type AvailabilityState string

const (
	StateListed    AvailabilityState = "LISTED"
	StateAvailable AvailabilityState = "AVAILABLE"
	StateReserved  AvailabilityState = "RESERVED"
	StateSold      AvailabilityState = "SOLD"
	StateRemoved   AvailabilityState = "REMOVED"
	StateUnknown   AvailabilityState = "UNKNOWN"
)

// LocalizedText is a text value tagged with its language code.
type LocalizedText struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Money is an amount in minor currency units.
type Money struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// Product is the canonical record every extraction strategy converges to.
type Product struct {
	ShopsItemID string            `json:"shopsItemId"`
	ShopID      string            `json:"shopId,omitempty"`
	ShopName    string            `json:"shopName,omitempty"`
	Title       LocalizedText     `json:"title"`
	Description LocalizedText     `json:"description"`
	Price       Money             `json:"price"`
	State       AvailabilityState `json:"state"`
	URL         string            `json:"url"`
	Images      []string          `json:"images"`
}

// Clone returns a deep copy so callers can modify the result freely.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	out := *p
	out.Images = append([]string{}, p.Images...)
	return &out
}

// FieldIssue records a value that was present but could not be parsed.
type FieldIssue struct {
	Field string `json:"field"`
	Raw   string `json:"raw"`
}

// CrawlResult holds the overall result of a crawl.
type CrawlResult struct {
	StartTime     time.Time
	EndTime       time.Time
	TotalCount    int
	ExtractedURLs int
	MissedURLs    int
	ErrorCount    int
	FailedURLs    []string
	ErrorsByType  map[string]int
	WinsBySyntax  map[string]int
	RetryCount    int
	RequestCount  int
	PageCount     int
}
