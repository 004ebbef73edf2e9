package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fieldMap(entry observer.LoggedEntry) map[string]any {
	return entry.ContextMap()
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))

	wrong := context.WithValue(context.Background(), LoggerKey, "not a logger")
	assert.NotNil(t, FromContext(wrong))
}

func TestWithRequestIDAndUserID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, _ := WithRequestID(context.Background(), base, "req-42")
	ctx, l := WithUserID(ctx, FromContext(ctx), "bendahara-1")

	assert.Equal(t, "req-42", GetRequestID(ctx))
	assert.Equal(t, "bendahara-1", GetUserID(ctx))
	assert.Same(t, l, FromContext(ctx))

	l.Info("Batch verified")
	fields := fieldMap(logs.All()[0])
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "bendahara-1", fields["user_id"])
}

func TestGetters_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetUserID(ctx))
}

func TestL_AttachedLoggerIsNotDuplicated(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx, _ := WithRequestID(context.Background(), zap.New(core), "req-1")

	L(ctx).Info("Loan approved")

	require.Equal(t, 1, logs.Len())
	count := 0
	for _, f := range logs.All()[0].Context {
		if f.Key == "request_id" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestWithLogger_AddsContextValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-7")
	ctx = context.WithValue(ctx, UserIDKey, "kolektor-3")

	cl := WithLogger(ctx, zap.New(core)).With(zap.String("batch_id", "b-1"))
	cl.Debug("d")
	cl.Warn("w")
	cl.Error("e")

	require.Equal(t, 3, logs.Len())
	for _, entry := range logs.All() {
		fields := fieldMap(entry)
		assert.Equal(t, "req-7", fields["request_id"])
		assert.Equal(t, "kolektor-3", fields["user_id"])
		assert.Equal(t, "b-1", fields["batch_id"])
	}
}

func TestWithTraceContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	assert.Same(t, base, WithTraceContext(context.Background(), base))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "vault.transfer")
	defer span.End()

	L(WithContext(ctx, base)).Info("Transfer done")
	fields := fieldMap(logs.All()[0])
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
}
