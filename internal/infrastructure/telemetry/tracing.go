package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for business spans
const TracerName = "fund-ledger"

// Span attribute keys for fund operations
const (
	SpanAttrAccountID     = "account_id"
	SpanAttrTransactionID = "transaction_id"
	SpanAttrCategoryID    = "category_id"

	SpanAttrVaultID            = "vault_id"
	SpanAttrSourceVaultID      = "source_vault_id"
	SpanAttrDestinationVaultID = "destination_vault_id"
	SpanAttrVaultKind          = "vault_kind"

	SpanAttrLoanID     = "loan_id"
	SpanAttrLoanStatus = "loan_status"

	SpanAttrBatchID     = "batch_id"
	SpanAttrCollectorID = "collector_id"

	SpanAttrActorID = "actor_id"
	SpanAttrAmount  = "amount"
)

// WithAttribute sets an attribute when the span starts
func WithAttribute(key string, value any) trace.SpanStartOption {
	return trace.WithAttributes(toAttribute(key, value))
}

// StartSpan starts an internal span on the global provider. End it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts = append([]trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindInternal)}, opts...)
	return otel.Tracer(TracerName).Start(ctx, name, opts...)
}

// StartServiceSpan starts a span named "<service>.<method>", e.g. "loan.approve"
func StartServiceSpan(ctx context.Context, service, method string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, opts...)
}

// SetAttributes sets alternating key/value pairs. Pairs whose key is not a
// string, and a trailing key without a value, are dropped.
func SetAttributes(span trace.Span, kv ...any) {
	if span != nil {
		span.SetAttributes(pairs(kv)...)
	}
}

func SetAttribute(span trace.Span, key string, value any) {
	if span != nil {
		span.SetAttributes(toAttribute(key, value))
	}
}

// RecordError marks the span failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

func SetOK(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

func AddEvent(span trace.Span, name string, kv ...any) {
	if span != nil {
		span.AddEvent(name, trace.WithAttributes(pairs(kv)...))
	}
}

// GetTraceID returns the active trace id as hex, or "" outside a trace
func GetTraceID(ctx context.Context) string {
	if id := trace.SpanContextFromContext(ctx).TraceID(); id.IsValid() {
		return id.String()
	}
	return ""
}

func pairs(kv []any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			out = append(out, toAttribute(key, kv[i+1]))
		}
	}
	return out
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
