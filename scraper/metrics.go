package scraper

import (
	"time"

	"github.com/aluiziolira/go-scrape-products/bundle"
	"github.com/aluiziolira/go-scrape-products/strategy"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawler and the extraction
// selector. It implements strategy.Observer.
type Metrics struct {
	Registry               *prometheus.Registry
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        prometheus.Histogram
	ProductsExtractedTotal prometheus.Counter
	RetriesTotal           prometheus.Counter
	ErrorsTotal            *prometheus.CounterVec
	StrategyOutcomesTotal  *prometheus.CounterVec
	SelectionsTotal        *prometheus.CounterVec
	MalformedFieldsTotal   *prometheus.CounterVec
}

var _ strategy.Observer = (*Metrics)(nil)

const namespace = "extractor"

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
}

// NewMetrics registers every collector on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry:      prometheus.NewRegistry(),
		RequestsTotal: counterVec("requests_total", "HTTP requests issued by the crawler, by phase.", "phase"),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of completed crawler requests.",
			Buckets:   prometheus.DefBuckets,
		}),
		ProductsExtractedTotal: counter("products_extracted_total", "Selected products sent to the pipeline."),
		RetriesTotal:           counter("retries_total", "Retry attempts scheduled."),
		ErrorsTotal:            counterVec("errors_total", "Crawler errors by type.", "error_type"),
		StrategyOutcomesTotal:  counterVec("strategy_outcomes_total", "Strategy runs by syntax and result (absent, invalid, valid).", "syntax", "result"),
		SelectionsTotal:        counterVec("selections_total", "Pages by winning syntax, or none.", "syntax"),
		MalformedFieldsTotal:   counterVec("malformed_fields_total", "Present but unparsable field values by syntax and field.", "syntax", "field"),
	}
	m.Registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ProductsExtractedTotal,
		m.RetriesTotal,
		m.ErrorsTotal,
		m.StrategyOutcomesTotal,
		m.SelectionsTotal,
		m.MalformedFieldsTotal,
	)
	return m
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncProducts increments the extracted products counter.
func (m *Metrics) IncProducts() {
	if m == nil {
		return
	}
	m.ProductsExtractedTotal.Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObserveOutcome implements strategy.Observer.
func (m *Metrics) ObserveOutcome(syntax bundle.Syntax, outcome strategy.Outcome, valid bool) {
	if m == nil {
		return
	}
	result := "absent"
	switch {
	case valid:
		result = "valid"
	case outcome.Status == strategy.Found:
		result = "invalid"
	}
	m.StrategyOutcomesTotal.WithLabelValues(string(syntax), result).Inc()
	for _, issue := range outcome.Malformed {
		m.MalformedFieldsTotal.WithLabelValues(string(syntax), issue.Field).Inc()
	}
}

// ObserveSelection implements strategy.Observer.
func (m *Metrics) ObserveSelection(sel *strategy.Selection) {
	if m == nil {
		return
	}
	label := "none"
	if sel != nil {
		label = string(sel.Syntax)
	}
	m.SelectionsTotal.WithLabelValues(label).Inc()
}
