package otelx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	traceparent, _ := TraceContextStrings(ctx)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", traceparent)

	restored := trace.SpanContextFromContext(ContextWithTraceContext(context.Background(), traceparent, ""))
	assert.Equal(t, traceID, restored.TraceID())
	assert.True(t, restored.IsRemote())
}

func TestContextWithTraceContextEmpty(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, ContextWithTraceContext(ctx, "", ""))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLING_RATIO", "2")
	cfg := ConfigFromEnv("booking-service")
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 1.0, cfg.SampleRatio)
	assert.Equal(t, "booking-service", cfg.ServiceName)
}
