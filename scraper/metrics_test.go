package scraper

import (
	"testing"

	"github.com/aluiziolira/go-scrape-products/bundle"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/strategy"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsObserveOutcome(t *testing.T) {
	m := NewMetrics()

	m.ObserveOutcome(bundle.JSONLD, strategy.Outcome{Status: strategy.Absent}, false)
	m.ObserveOutcome(bundle.Microdata, strategy.Outcome{
		Status:    strategy.Found,
		Product:   &models.Product{},
		Malformed: []models.FieldIssue{{Field: "price", Raw: "abc"}},
	}, false)
	m.ObserveOutcome(bundle.OpenGraph, strategy.Outcome{Status: strategy.Found, Product: &models.Product{}}, true)

	tests := []struct {
		syntax, result string
	}{
		{"json-ld", "absent"},
		{"microdata", "invalid"},
		{"opengraph", "valid"},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.StrategyOutcomesTotal.WithLabelValues(tt.syntax, tt.result)); got != 1 {
			t.Fatalf("outcomes{%s,%s} = %v, want 1", tt.syntax, tt.result, got)
		}
	}
	if got := testutil.ToFloat64(m.MalformedFieldsTotal.WithLabelValues("microdata", "price")); got != 1 {
		t.Fatalf("malformed price = %v, want 1", got)
	}
}

func TestMetricsObserveSelection(t *testing.T) {
	m := NewMetrics()
	m.ObserveSelection(nil)
	m.ObserveSelection(&strategy.Selection{Syntax: bundle.RDFa})

	if got := testutil.ToFloat64(m.SelectionsTotal.WithLabelValues("none")); got != 1 {
		t.Fatalf("none = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SelectionsTotal.WithLabelValues("rdfa")); got != 1 {
		t.Fatalf("rdfa = %v, want 1", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.IncRequest("started")
	m.IncProducts()
	m.IncRetries()
	m.IncError("timeout")
	m.ObserveSelection(nil)
	m.ObserveOutcome(bundle.JSONLD, strategy.Outcome{}, false)
}
