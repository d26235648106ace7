package middleware

import (
	"context"

	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/pkg/bus"
	"github.com/peter-kozarec/pairs/pkg/common"
)

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorObservations
	MonitorDirectives
	MonitorSelections
	MonitorFills
	MonitorEquity
)

type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		logger: logger,
		flags:  flags,
	}
}

func (m *Monitor) WithObservation(handler bus.ObservationEventHandler) bus.ObservationEventHandler {
	return func(ctx context.Context, obs common.Observation) {
		if m.enabled(MonitorObservations) {
			fields := []zap.Field{
				zap.Time("ts", obs.TimeStamp),
				zap.Uint64("tid", obs.TraceID),
				zap.Int("instruments", len(obs.Prices)),
			}
			for symbol, price := range obs.Prices {
				fields = append(fields, zap.String(symbol, price.String()))
			}
			m.logger.Info("observation", fields...)
		}
		handler(ctx, obs)
	}
}

func (m *Monitor) WithDirective(handler bus.DirectiveEventHandler) bus.DirectiveEventHandler {
	return func(ctx context.Context, d common.Directive) {
		if m.enabled(MonitorDirectives) {
			m.logger.Info("directive",
				zap.Time("ts", d.TimeStamp),
				zap.Uint64("tid", d.TraceID),
				zap.Stringer("command", d.Command),
				zap.String("symbol", d.Symbol),
				zap.String("fraction", d.Fraction.String()),
				zap.Stringer("pair", d.Pair),
				zap.Stringer("rule", d.Rule),
				zap.String("spread", d.Spread.String()),
				zap.String("lower", d.Lower.String()),
				zap.String("middle", d.Middle.String()),
				zap.String("upper", d.Upper.String()))
		}
		handler(ctx, d)
	}
}

func (m *Monitor) WithSelection(handler bus.SelectionEventHandler) bus.SelectionEventHandler {
	return func(ctx context.Context, s common.Selection) {
		if m.enabled(MonitorSelections) {
			selected := make([]string, 0, len(s.Pairs))
			for _, p := range s.Pairs {
				selected = append(selected, p.String()+"="+p.Correlation.String())
			}
			dropped := make([]string, 0, len(s.Dropped))
			for _, p := range s.Dropped {
				dropped = append(dropped, p.String())
			}
			m.logger.Info("selection",
				zap.Time("ts", s.TimeStamp),
				zap.Uint64("tid", s.TraceID),
				zap.Int("rows", s.Rows),
				zap.Strings("pairs", selected),
				zap.Strings("dropped", dropped))
		}
		handler(ctx, s)
	}
}

func (m *Monitor) WithFill(handler bus.FillEventHandler) bus.FillEventHandler {
	return func(ctx context.Context, f common.Fill) {
		if m.enabled(MonitorFills) {
			m.logger.Info("fill",
				zap.Time("ts", f.TimeStamp),
				zap.Uint64("tid", f.TraceID),
				zap.String("symbol", f.Symbol),
				zap.String("quantity", f.Quantity.String()),
				zap.String("price", f.Price.String()),
				zap.String("position", f.Position.String()),
				zap.Stringer("rule", f.Rule))
		}
		handler(ctx, f)
	}
}

func (m *Monitor) WithEquity(handler bus.EquityEventHandler) bus.EquityEventHandler {
	return func(ctx context.Context, eq common.Equity) {
		if m.enabled(MonitorEquity) {
			m.logger.Info("equity",
				zap.Time("ts", eq.TimeStamp),
				zap.String("value", eq.Value.String()),
				zap.String("cash", eq.Cash.String()))
		}
		handler(ctx, eq)
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}
