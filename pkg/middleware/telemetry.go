package middleware

import (
	"context"

	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/pkg/bus"
	"github.com/peter-kozarec/pairs/pkg/common"
)

type Telemetry struct {
	logger *zap.Logger

	observationEventCounter int64
	directiveEventCounter   int64
	selectionEventCounter   int64
	fillEventCounter        int64
	equityEventCounter      int64
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{
		logger: logger,
	}
}

func (t *Telemetry) WithObservation(handler bus.ObservationEventHandler) bus.ObservationEventHandler {
	return func(ctx context.Context, obs common.Observation) {
		t.observationEventCounter++
		handler(ctx, obs)
	}
}

func (t *Telemetry) WithDirective(handler bus.DirectiveEventHandler) bus.DirectiveEventHandler {
	return func(ctx context.Context, d common.Directive) {
		t.directiveEventCounter++
		handler(ctx, d)
	}
}

func (t *Telemetry) WithSelection(handler bus.SelectionEventHandler) bus.SelectionEventHandler {
	return func(ctx context.Context, s common.Selection) {
		t.selectionEventCounter++
		handler(ctx, s)
	}
}

func (t *Telemetry) WithFill(handler bus.FillEventHandler) bus.FillEventHandler {
	return func(ctx context.Context, f common.Fill) {
		t.fillEventCounter++
		handler(ctx, f)
	}
}

func (t *Telemetry) WithEquity(handler bus.EquityEventHandler) bus.EquityEventHandler {
	return func(ctx context.Context, eq common.Equity) {
		t.equityEventCounter++
		handler(ctx, eq)
	}
}

func (t *Telemetry) PrintStatistics() {
	t.logger.Info("event statistics",
		zap.Int64("observation_events", t.observationEventCounter),
		zap.Int64("directive_events", t.directiveEventCounter),
		zap.Int64("selection_events", t.selectionEventCounter),
		zap.Int64("fill_events", t.fillEventCounter),
		zap.Int64("equity_events", t.equityEventCounter))
}
