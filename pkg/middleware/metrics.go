package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/peter-kozarec/pairs/pkg/bus"
	"github.com/peter-kozarec/pairs/pkg/common"
)

const metricsNamespace = "pairs"

// Metrics exports event flow as Prometheus collectors. Collectors are
// registered on the given registerer so tests and binaries can use separate
// registries.
type Metrics struct {
	observations    prometheus.Counter
	directives      *prometheus.CounterVec
	selections      prometheus.Counter
	selectedPairs   prometheus.Gauge
	fills           *prometheus.CounterVec
	equity          prometheus.Gauge
	handlerDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		observations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "observations_total", Help: "Observations processed"}),
		directives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "directives_total", Help: "Exposure directives by rule and command"},
			[]string{"rule", "command"}),
		selections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "selections_total", Help: "Completed pair selection cycles"}),
		selectedPairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Name: "selected_pairs", Help: "Pairs in the active registry"}),
		fills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "fills_total", Help: "Fills by symbol"},
			[]string{"symbol"}),
		equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Name: "equity", Help: "Last marked portfolio equity"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Name: "handler_duration_seconds", Help: "Handler latency by event",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12)},
			[]string{"event"}),
	}

	for _, c := range []prometheus.Collector{
		m.observations, m.directives, m.selections, m.selectedPairs, m.fills, m.equity, m.handlerDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) WithObservation(handler bus.ObservationEventHandler) bus.ObservationEventHandler {
	return func(ctx context.Context, obs common.Observation) {
		defer m.observe(bus.ObservationEvent, time.Now())
		m.observations.Inc()
		handler(ctx, obs)
	}
}

func (m *Metrics) WithDirective(handler bus.DirectiveEventHandler) bus.DirectiveEventHandler {
	return func(ctx context.Context, d common.Directive) {
		defer m.observe(bus.DirectiveEvent, time.Now())
		m.directives.WithLabelValues(d.Rule.String(), d.Command.String()).Inc()
		handler(ctx, d)
	}
}

func (m *Metrics) WithSelection(handler bus.SelectionEventHandler) bus.SelectionEventHandler {
	return func(ctx context.Context, s common.Selection) {
		defer m.observe(bus.SelectionEvent, time.Now())
		m.selections.Inc()
		m.selectedPairs.Set(float64(len(s.Pairs)))
		handler(ctx, s)
	}
}

func (m *Metrics) WithFill(handler bus.FillEventHandler) bus.FillEventHandler {
	return func(ctx context.Context, f common.Fill) {
		defer m.observe(bus.FillEvent, time.Now())
		m.fills.WithLabelValues(f.Symbol).Inc()
		handler(ctx, f)
	}
}

func (m *Metrics) WithEquity(handler bus.EquityEventHandler) bus.EquityEventHandler {
	return func(ctx context.Context, eq common.Equity) {
		defer m.observe(bus.EquityEvent, time.Now())
		if v, ok := eq.Value.Float64(); ok {
			m.equity.Set(v)
		}
		handler(ctx, eq)
	}
}

func (m *Metrics) observe(id bus.EventId, start time.Time) {
	m.handlerDuration.WithLabelValues(id.String()).Observe(time.Since(start).Seconds())
}
