package otel

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit_Disabled(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "true")
	core, logs := observer.New(zapcore.InfoLevel)

	shutdown, err := Init(context.Background(), zap.New(core))
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	entries := logs.FilterMessage("tracing_configured").All()
	require.Len(t, entries, 1)
	assert.Equal(t, false, entries[0].ContextMap()["tracing_enabled"])
}

func TestInit_UnsupportedProtocolDegrades(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "carrier-pigeon")
	core, logs := observer.New(zapcore.InfoLevel)

	shutdown, err := Init(context.Background(), zap.New(core))
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("tracing_init_failed").Len())
	assert.Equal(t, 0, logs.FilterMessage("tracing_configured").Len())
}

func TestNewSampler(t *testing.T) {
	cases := map[string]struct {
		name, arg string
		want      string
	}{
		"always on":          {"always_on", "", "AlwaysOnSampler"},
		"always off":         {"always_off", "", "AlwaysOffSampler"},
		"ratio":              {"traceidratio", "0.5", "TraceIDRatioBased{0.5}"},
		"bad ratio defaults": {"traceidratio", "lots", "AlwaysOnSampler"},
		"unknown":            {"whatever", "", "ParentBased{root:AlwaysOnSampler"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(newSampler(tc.name, tc.arg).Description(), tc.want))
		})
	}
}
