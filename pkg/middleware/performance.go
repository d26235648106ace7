package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/pkg/bus"
	"github.com/peter-kozarec/pairs/pkg/common"
)

// Performance accumulates wall time spent inside the wrapped handlers. Averages
// are computed against the event counts of a Telemetry placed in the same chain.
type Performance struct {
	logger *zap.Logger

	totalObservationHandlerDur time.Duration
	totalDirectiveHandlerDur   time.Duration
	totalSelectionHandlerDur   time.Duration
	totalFillHandlerDur        time.Duration
	totalEquityHandlerDur      time.Duration
}

func NewPerformance(logger *zap.Logger) *Performance {
	return &Performance{
		logger: logger,
	}
}

func (p *Performance) WithObservation(handler bus.ObservationEventHandler) bus.ObservationEventHandler {
	return func(ctx context.Context, obs common.Observation) {
		startTime := time.Now()
		handler(ctx, obs)
		p.totalObservationHandlerDur += time.Since(startTime)
	}
}

func (p *Performance) WithDirective(handler bus.DirectiveEventHandler) bus.DirectiveEventHandler {
	return func(ctx context.Context, d common.Directive) {
		startTime := time.Now()
		handler(ctx, d)
		p.totalDirectiveHandlerDur += time.Since(startTime)
	}
}

func (p *Performance) WithSelection(handler bus.SelectionEventHandler) bus.SelectionEventHandler {
	return func(ctx context.Context, s common.Selection) {
		startTime := time.Now()
		handler(ctx, s)
		p.totalSelectionHandlerDur += time.Since(startTime)
	}
}

func (p *Performance) WithFill(handler bus.FillEventHandler) bus.FillEventHandler {
	return func(ctx context.Context, f common.Fill) {
		startTime := time.Now()
		handler(ctx, f)
		p.totalFillHandlerDur += time.Since(startTime)
	}
}

func (p *Performance) WithEquity(handler bus.EquityEventHandler) bus.EquityEventHandler {
	return func(ctx context.Context, eq common.Equity) {
		startTime := time.Now()
		handler(ctx, eq)
		p.totalEquityHandlerDur += time.Since(startTime)
	}
}

func (p *Performance) PrintStatistics(t *Telemetry) {
	if t == nil {
		p.logger.Warn("telemetry is nil; cannot compute performance statistics")
		return
	}

	var fields []zap.Field
	fields = appendDuration(fields, "observation", p.totalObservationHandlerDur, t.observationEventCounter)
	fields = appendDuration(fields, "directive", p.totalDirectiveHandlerDur, t.directiveEventCounter)
	fields = appendDuration(fields, "selection", p.totalSelectionHandlerDur, t.selectionEventCounter)
	fields = appendDuration(fields, "fill", p.totalFillHandlerDur, t.fillEventCounter)
	fields = appendDuration(fields, "equity", p.totalEquityHandlerDur, t.equityEventCounter)

	p.logger.Info("performance statistics", fields...)
}

func appendDuration(fields []zap.Field, name string, total time.Duration, count int64) []zap.Field {
	if count <= 0 {
		return fields
	}
	avg := total / time.Duration(count)
	if avg <= 0 {
		return fields
	}
	return append(fields,
		zap.Duration(name+"_avg_duration", avg),
		zap.Duration(name+"_total_duration", total))
}
