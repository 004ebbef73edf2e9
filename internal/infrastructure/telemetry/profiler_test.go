package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresAddressAndName(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "fund"}, zap.NewNop())
	assert.ErrorIs(t, err, errProfilerAddress)

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://pyroscope:4040"}, zap.NewNop())
	assert.ErrorIs(t, err, errProfilerAppName)
}

func TestProfilerConfig_ProfileTypes(t *testing.T) {
	cfg := ProfilerConfig{ProfileCPU: true, ProfileAlloc: true, ProfileMutex: true}
	assert.Len(t, cfg.profileTypes(), 5)
	assert.Empty(t, ProfilerConfig{}.profileTypes())
}

func TestSanitizeLabels(t *testing.T) {
	long := strings.Repeat("x", MaxLabelValueLength+10)
	pairs := sanitizeLabels(map[string]string{
		"Fund-Context": "savings",
		"operation":    long,
		"vault_id":     "v-1",
		"empty":        "",
		"!!!":          "dropped",
	})

	require.Len(t, pairs, 4)
	assert.Equal(t, "fund_context", pairs[0])
	assert.Equal(t, "savings", pairs[1])
	assert.Equal(t, "operation", pairs[2])
	assert.Len(t, pairs[3], MaxLabelValueLength)
}

func TestWithProfilingLabels_AttachesLabels(t *testing.T) {
	var got string
	WithProfilingLabels(context.Background(), FundOperationLabels("loan", "disburse"), func(ctx context.Context) {
		got, _ = pprof.Label(ctx, ProfilingLabelOperation)
	})
	assert.Equal(t, "disburse", got)
}

func TestWithProfilingLabels_EmptyRunsFn(t *testing.T) {
	called := false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}
