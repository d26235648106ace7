package middleware

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/peter-kozarec/pairs/pkg/common"
)

func TestMiddlewareTelemetry_Counters(t *testing.T) {
	tel := NewTelemetry(zap.NewNop())
	ctx := context.Background()

	obs := tel.WithObservation(func(context.Context, common.Observation) {})
	dir := tel.WithDirective(func(context.Context, common.Directive) {})
	sel := tel.WithSelection(func(context.Context, common.Selection) {})
	fill := tel.WithFill(func(context.Context, common.Fill) {})
	eq := tel.WithEquity(func(context.Context, common.Equity) {})

	for i := 0; i < 4; i++ {
		obs(ctx, common.Observation{})
	}
	dir(ctx, common.Directive{})
	dir(ctx, common.Directive{})
	sel(ctx, common.Selection{})
	fill(ctx, common.Fill{})
	eq(ctx, common.Equity{})
	eq(ctx, common.Equity{})
	eq(ctx, common.Equity{})

	tests := []struct {
		name string
		got  int64
		want int64
	}{
		{"observations", tel.observationEventCounter, 4},
		{"directives", tel.directiveEventCounter, 2},
		{"selections", tel.selectionEventCounter, 1},
		{"fills", tel.fillEventCounter, 1},
		{"equity", tel.equityEventCounter, 3},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d; want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestMiddlewarePerformance_WithObservation(t *testing.T) {
	p := NewPerformance(zap.NewNop())

	var handlerCalled bool
	wrapped := p.WithObservation(func(ctx context.Context, obs common.Observation) {
		handlerCalled = true
		time.Sleep(5 * time.Millisecond)
	})
	wrapped(context.Background(), common.Observation{})

	if !handlerCalled {
		t.Error("Handler not called")
	}
	if p.totalObservationHandlerDur < 5*time.Millisecond {
		t.Errorf("Expected duration >= 5ms, got %v", p.totalObservationHandlerDur)
	}
}

func TestMiddlewarePerformance_PrintStatistics(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	tel := NewTelemetry(logger)
	p := NewPerformance(logger)

	wrapped := tel.WithFill(p.WithFill(func(ctx context.Context, f common.Fill) {
		time.Sleep(time.Millisecond)
	}))
	wrapped(context.Background(), common.Fill{})
	wrapped(context.Background(), common.Fill{})

	p.PrintStatistics(tel)

	entries := logs.FilterMessage("performance statistics").All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 statistics entry, got %d", len(entries))
	}
	if _, ok := entries[0].ContextMap()["fill_avg_duration"]; !ok {
		t.Error("fill_avg_duration missing")
	}
	if _, ok := entries[0].ContextMap()["observation_avg_duration"]; ok {
		t.Error("observation_avg_duration reported without observations")
	}

	p.PrintStatistics(nil)
	if logs.FilterMessage("telemetry is nil; cannot compute performance statistics").Len() != 1 {
		t.Error("Expected warning for nil telemetry")
	}
}
