package pairs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/pkg/bus"
	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/utility"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

const (
	advisorComponentName = "pairs.advisor"
)

type AdvisorOption func(*Advisor)

func WithLiquidateDeselected(enabled bool) AdvisorOption {
	return func(a *Advisor) {
		a.liquidateDeselected = enabled
	}
}

// WithDirectiveHandler applies directives synchronously through handler
// instead of posting them to the router. Use it when observations can queue
// up behind directives, so the next observation sees the updated holdings.
func WithDirectiveHandler(handler bus.DirectiveEventHandler) AdvisorOption {
	return func(a *Advisor) {
		a.directiveHandler = handler
	}
}

// Advisor connects the selector and the engine to the router: selections and
// directives are posted as events, observations are consumed as events.
type Advisor struct {
	logger   *zap.Logger
	router   *bus.Router
	selector *Selector
	engine   *Engine
	holdings Holdings

	liquidateDeselected bool
	directiveHandler    bus.DirectiveEventHandler
}

func NewAdvisor(logger *zap.Logger, router *bus.Router, selector *Selector, engine *Engine, holdings Holdings, options ...AdvisorOption) *Advisor {
	a := &Advisor{
		logger:   logger,
		router:   router,
		selector: selector,
		engine:   engine,
		holdings: holdings,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

func (a *Advisor) OnObservation(ctx context.Context, obs common.Observation) {
	for _, d := range a.engine.Evaluate(obs, a.holdings) {
		a.emit(ctx, d)
	}
}

// Select is the scheduled selection callback. A failed cycle keeps the
// previous pairs active and is retried on the next trigger.
func (a *Advisor) Select(ctx context.Context, t time.Time) {
	selection, err := a.selector.Select(ctx, t)
	if err != nil {
		a.logger.Warn("pair selection failed, keeping previous pairs",
			zap.Time("ts", t),
			zap.Error(err))
		return
	}

	a.post(bus.SelectionEvent, selection)

	if a.liquidateDeselected {
		for _, d := range a.deselectedLiquidations(selection) {
			a.emit(ctx, d)
		}
	}
}

func (a *Advisor) deselectedLiquidations(selection common.Selection) []common.Directive {
	active := a.selector.registry.Load()
	seen := make(map[string]struct{})

	var directives []common.Directive
	for _, p := range selection.Dropped {
		for _, symbol := range []string{p.First, p.Second} {
			if _, ok := seen[symbol]; ok || active.HasLeg(symbol) {
				continue
			}
			seen[symbol] = struct{}{}

			if a.holdings.Quantity(symbol).IsZero() {
				continue
			}
			directives = append(directives, common.Directive{
				Command:     common.DirectiveCommandLiquidate,
				Symbol:      symbol,
				Fraction:    fixed.Zero,
				Pair:        p,
				Rule:        common.SignalRuleDeselected,
				Source:      advisorComponentName,
				ExecutionId: utility.GetExecutionID(),
				TraceID:     utility.CreateTraceID(),
				TimeStamp:   selection.TimeStamp,
			})
		}
	}
	return directives
}

func (a *Advisor) emit(ctx context.Context, d common.Directive) {
	if a.directiveHandler != nil {
		a.directiveHandler(ctx, d)
		return
	}
	a.post(bus.DirectiveEvent, d)
}

func (a *Advisor) post(id bus.EventId, data any) {
	if err := a.router.Post(id, data); err != nil {
		a.logger.Warn("unable to post event",
			zap.Stringer("event_id", id),
			zap.Error(err))
	}
}
