package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments creates instruments on one meter and keeps the first
// creation error, so a metrics set can declare all its instruments and
// check Err once.
type Instruments struct {
	meter metric.Meter
	errs  []error
}

// NewInstruments returns a builder over meter
func NewInstruments(meter metric.Meter) *Instruments {
	return &Instruments{meter: meter}
}

// Err reports every instrument that failed to register
func (b *Instruments) Err() error {
	return errors.Join(b.errs...)
}

func (b *Instruments) fail(name string, err error) {
	b.errs = append(b.errs, fmt.Errorf("instrument %s: %w", name, err))
}

// Counter declares a monotonically increasing int64 counter
func (b *Instruments) Counter(name, description, unit string) *Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		b.fail(name, err)
		return nil
	}
	return &Counter{c: c}
}

// Histogram declares a float64 histogram with explicit bucket bounds
func (b *Instruments) Histogram(name, description, unit string, bounds []float64) *Histogram {
	opts := []metric.Float64HistogramOption{metric.WithDescription(description), metric.WithUnit(unit)}
	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}
	h, err := b.meter.Float64Histogram(name, opts...)
	if err != nil {
		b.fail(name, err)
		return nil
	}
	return &Histogram{h: h}
}

// Gauge declares an int64 gauge
func (b *Instruments) Gauge(name, description, unit string) *Gauge {
	g, err := b.meter.Int64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		b.fail(name, err)
		return nil
	}
	return &Gauge{g: g}
}

// UpDown declares an int64 up/down counter
func (b *Instruments) UpDown(name, description, unit string) metric.Int64UpDownCounter {
	u, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		b.fail(name, err)
		return nil
	}
	return u
}

type Counter struct{ c metric.Int64Counter }

func (c *Counter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.c.Add(ctx, n, metric.WithAttributes(attrs...))
}

func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

type Histogram struct{ h metric.Float64Histogram }

func (h *Histogram) Record(ctx context.Context, v float64, attrs ...attribute.KeyValue) {
	h.h.Record(ctx, v, metric.WithAttributes(attrs...))
}

// RecordDuration records d in seconds
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), attrs...)
}

type Gauge struct{ g metric.Int64Gauge }

func (g *Gauge) Record(ctx context.Context, v int64, attrs ...attribute.KeyValue) {
	g.g.Record(ctx, v, metric.WithAttributes(attrs...))
}

// Metric attribute keys
var (
	AttrVaultID     = attribute.Key("vault.id")
	AttrVaultType   = attribute.Key("vault.type")
	AttrVaultKind   = attribute.Key("vault.kind")
	AttrVaultDomain = attribute.Key("vault.domain")
	AttrLoanStatus  = attribute.Key("loan.status")
	AttrBatchType   = attribute.Key("savings.batch_type")
	AttrOutcome     = attribute.Key("outcome")

	AttrHTTPMethod      = attribute.Key("http.request.method")
	AttrHTTPRoute       = attribute.Key("http.route")
	AttrHTTPStatusClass = attribute.Key("http.response.status_class")

	AttrDBOperation = attribute.Key("db.operation")
	AttrDBTable     = attribute.Key("db.table")
	AttrDBState     = attribute.Key("db.pool.state")
)

var (
	// DBDurationBuckets are query latency bounds in seconds
	DBDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

	// HTTPDurationBuckets are request latency bounds in seconds
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

	// AmountBuckets run from pocket money to a term loan, in rupiah
	AmountBuckets = []float64{10_000, 50_000, 100_000, 500_000, 1_000_000, 5_000_000, 10_000_000, 50_000_000}
)
