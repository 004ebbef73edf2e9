package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestStartPipeline_AllSignalsOff(t *testing.T) {
	p, err := StartPipeline(t.Context(), Settings{ServiceName: "fund-ledger"}, nil)
	require.NoError(t, err)

	assert.False(t, p.Tracing())
	assert.NotNil(t, p.Tracer("test"))
	assert.NotNil(t, p.Meter("test"))
	assert.False(t, p.EnableSpanProfiles())

	base := zap.NewExample()
	assert.Same(t, base, p.TeeLogger(base, zapcore.InfoLevel))
	assert.NoError(t, p.Shutdown(t.Context()))
}

func TestPipeline_NilTeeLoggerReturnsBase(t *testing.T) {
	var p *Pipeline
	base := zap.NewExample()
	assert.Same(t, base, p.TeeLogger(base, zapcore.WarnLevel))
}

func TestStartPipeline_AllSignalsOn(t *testing.T) {
	original := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(original) })

	// Exporters dial lazily; nothing listens on this port.
	p, err := StartPipeline(t.Context(), Settings{
		ServiceName:   "fund-ledger",
		Endpoint:      "localhost:14317",
		Insecure:      true,
		Traces:        true,
		SamplingRatio: 0.5,
		Metrics:       true,
		Logs:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, p.Tracing())

	assert.True(t, p.EnableSpanProfiles())
	assert.True(t, p.EnableSpanProfiles())

	_, span := p.Tracer("test").Start(t.Context(), "custody.transfer")
	span.End()

	tee := p.TeeLogger(zap.NewNop(), zapcore.InfoLevel)
	assert.NotNil(t, tee)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "ParentBased")
}
