package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Outcome values recorded on invoice_generated_total.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// InvoiceMetrics holds the instruments recorded by the invoice service.
type InvoiceMetrics struct {
	generated         *Counter
	imageFallbacks    *Counter
	cacheLookups      *Counter
	generationSeconds *Histogram
}

// NewInvoiceMetrics registers the invoice instruments on meter.
func NewInvoiceMetrics(meter metric.Meter) (*InvoiceMetrics, error) {
	generated, err := NewCounter(meter, "invoice_generated_total", "Invoice generation attempts by outcome", "{invoice}")
	if err != nil {
		return nil, err
	}
	fallbacks, err := NewCounter(meter, "invoice_image_fallback_total", "Product images replaced by a placeholder", "{image}")
	if err != nil {
		return nil, err
	}
	lookups, err := NewCounter(meter, "invoice_cache_lookups_total", "Document cache lookups by result", "{lookup}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "invoice_generation_duration_seconds",
		Description: "Time spent producing an invoice document",
		Unit:        "s",
		Boundaries:  GenerationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &InvoiceMetrics{
		generated:         generated,
		imageFallbacks:    fallbacks,
		cacheLookups:      lookups,
		generationSeconds: duration,
	}, nil
}

// RecordGeneration records one generation attempt. errorCode is empty on success.
func (m *InvoiceMetrics) RecordGeneration(ctx context.Context, d time.Duration, errorCode string) {
	if m == nil {
		return
	}
	if errorCode == "" {
		m.generated.Inc(ctx, AttrOutcome.String(OutcomeSuccess))
		m.generationSeconds.RecordDuration(ctx, d, AttrOutcome.String(OutcomeSuccess))
		return
	}
	m.generated.Inc(ctx, AttrOutcome.String(OutcomeFailure), AttrErrorCode.String(errorCode))
	m.generationSeconds.RecordDuration(ctx, d, AttrOutcome.String(OutcomeFailure))
}

// RecordFallbacks adds n placeholder images.
func (m *InvoiceMetrics) RecordFallbacks(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.imageFallbacks.Add(ctx, int64(n))
}

// RecordCacheLookup records a cache hit or miss.
func (m *InvoiceMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Inc(ctx, AttrCacheResult.String(result))
}
