package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/pkg/bus"
	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/pairs"
	"github.com/peter-kozarec/pairs/pkg/utility"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

const (
	portfolioComponentName = "exchange.sandbox.portfolio"
)

var (
	ErrNoPrice = errors.New("no price observed")
)

type directiveKey struct{}

// Portfolio is a paper account holding cash and signed quantities. Every
// trade fills immediately at the last observed price without fees.
type Portfolio struct {
	logger *zap.Logger
	router *bus.Router

	quantityDigits int

	cash       fixed.Point
	quantities map[string]fixed.Point
	prices     map[string]fixed.Point

	simulationTime time.Time
	lastEquity     fixed.Point
	firstPostDone  bool
}

func NewPortfolio(logger *zap.Logger, router *bus.Router, initialCash fixed.Point, options ...Option) *Portfolio {
	p := &Portfolio{
		logger:     logger,
		router:     router,
		cash:       initialCash,
		quantities: make(map[string]fixed.Point),
		prices:     make(map[string]fixed.Point),
	}

	for _, option := range options {
		option(p)
	}

	return p
}

func (p *Portfolio) Quantity(symbol string) fixed.Point {
	if q, ok := p.quantities[symbol]; ok {
		return q
	}
	return fixed.Zero
}

func (p *Portfolio) Cash() fixed.Point { return p.cash }

// Equity is cash plus every holding marked at its last price.
func (p *Portfolio) Equity() fixed.Point {
	equity := p.cash
	for symbol, q := range p.quantities {
		equity = equity.Add(q.Mul(p.prices[symbol]))
	}
	return equity
}

// Holdings returns a copy of the non zero quantities.
func (p *Portfolio) Holdings() map[string]fixed.Point {
	holdings := make(map[string]fixed.Point, len(p.quantities))
	for symbol, q := range p.quantities {
		holdings[symbol] = q
	}
	return holdings
}

func (p *Portfolio) OnObservation(_ context.Context, obs common.Observation) {
	p.simulationTime = obs.TimeStamp
	for symbol, price := range obs.Prices {
		p.prices[symbol] = price
	}

	if equity := p.Equity(); !p.firstPostDone || !equity.Eq(p.lastEquity) {
		p.firstPostDone = true
		p.postEquity(equity)
	}
}

func (p *Portfolio) OnDirective(ctx context.Context, d common.Directive) {
	if err := pairs.Execute(context.WithValue(ctx, directiveKey{}, d), p, d); err != nil {
		p.logger.Warn("unable to execute directive",
			zap.String("symbol", d.Symbol),
			zap.Stringer("command", d.Command),
			zap.Stringer("rule", d.Rule),
			zap.Error(err))
	}
}

// SetTargetExposure trades the symbol to fraction times current equity.
func (p *Portfolio) SetTargetExposure(ctx context.Context, symbol string, fraction fixed.Point) error {
	price, ok := p.prices[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPrice, symbol)
	}

	target := fraction.Mul(p.Equity()).Div(price).Trunc(p.quantityDigits)
	return p.trade(ctx, symbol, target.Sub(p.Quantity(symbol)), price)
}

func (p *Portfolio) Liquidate(ctx context.Context, symbol string) error {
	current := p.Quantity(symbol)
	if current.IsZero() {
		return nil
	}
	price, ok := p.prices[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPrice, symbol)
	}
	return p.trade(ctx, symbol, current.Neg(), price)
}

// LiquidateAll flattens every holding, in symbol order.
func (p *Portfolio) LiquidateAll(ctx context.Context) error {
	symbols := make([]string, 0, len(p.quantities))
	for symbol := range p.quantities {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var err error
	for _, symbol := range symbols {
		err = multierr.Append(err, p.Liquidate(ctx, symbol))
	}
	return err
}

func (p *Portfolio) trade(ctx context.Context, symbol string, delta, price fixed.Point) error {
	if delta.IsZero() {
		return nil
	}

	position := p.Quantity(symbol).Add(delta)
	p.cash = p.cash.Sub(delta.Mul(price))
	if position.IsZero() {
		delete(p.quantities, symbol)
	} else {
		p.quantities[symbol] = position
	}

	fill := common.Fill{
		Symbol:      symbol,
		Quantity:    delta,
		Price:       price,
		Position:    position,
		Command:     common.DirectiveCommandLiquidate,
		Rule:        common.SignalRuleManual,
		Source:      portfolioComponentName,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   p.simulationTime,
	}
	if d, ok := ctx.Value(directiveKey{}).(common.Directive); ok {
		fill.Command = d.Command
		fill.Rule = d.Rule
	} else if !position.IsZero() {
		fill.Command = common.DirectiveCommandSetTarget
	}

	if err := p.router.Post(bus.FillEvent, fill); err != nil {
		p.logger.Warn("unable to post fill event", zap.String("symbol", symbol), zap.Error(err))
	}
	p.postEquity(p.Equity())
	return nil
}

func (p *Portfolio) postEquity(equity fixed.Point) {
	p.lastEquity = equity
	if err := p.router.Post(bus.EquityEvent, common.Equity{
		Value:       equity,
		Cash:        p.cash,
		Source:      portfolioComponentName,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   p.simulationTime,
	}); err != nil {
		p.logger.Warn("unable to post equity event", zap.Error(err))
	}
}
