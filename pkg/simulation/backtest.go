package simulation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/pkg/bus"
	"github.com/peter-kozarec/pairs/pkg/datasource"
	"github.com/peter-kozarec/pairs/pkg/exchange/sandbox"
	"github.com/peter-kozarec/pairs/pkg/middleware"
	"github.com/peter-kozarec/pairs/pkg/pairs"
	"github.com/peter-kozarec/pairs/pkg/tools/schedule"
	"github.com/peter-kozarec/pairs/pkg/tools/store"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

const selectionJobName = "pairs.selection"

type Setup struct {
	Parameters       pairs.Parameters
	ScheduleRule     schedule.Rule
	ScheduleDelay    time.Duration
	InitialCash      fixed.Point
	QuantityDigits   int
	RouterCapacity   int
	MonitorFlags     middleware.MonitorFlags
	SnapshotInterval time.Duration

	// Metrics is optional.
	Metrics *middleware.Metrics
}

// Backtest wires the close store, scheduler, advisor, sandbox portfolio and
// audit onto one router. The selector only ever sees closes already replayed.
type Backtest struct {
	logger *zap.Logger
	router *bus.Router

	registry    *pairs.Registry
	portfolio   *sandbox.Portfolio
	audit       *Audit
	telemetry   *middleware.Telemetry
	performance *middleware.Performance
}

func NewBacktest(logger *zap.Logger, setup Setup) (*Backtest, error) {
	params := setup.Parameters

	router := bus.NewRouter(logger, setup.RouterCapacity)
	registry := pairs.NewRegistry()
	closes := store.NewCloseStore(params.Frequency, params.Lookback)

	selector, err := pairs.NewSelector(logger, closes, registry, params)
	if err != nil {
		return nil, fmt.Errorf("unable to create selector: %w", err)
	}
	engine := pairs.NewEngine(logger, registry, params.Allocation)
	portfolio := sandbox.NewPortfolio(logger, router, setup.InitialCash, sandbox.WithQuantityDigits(setup.QuantityDigits))
	advisor := pairs.NewAdvisor(logger, router, selector, engine, portfolio, pairs.WithLiquidateDeselected(params.LiquidateDeselected))

	scheduler := schedule.NewScheduler(logger)
	scheduler.Every(selectionJobName, setup.ScheduleRule, setup.ScheduleDelay, advisor.Select)

	audit := NewAudit(setup.SnapshotInterval)
	telemetry := middleware.NewTelemetry(logger)
	performance := middleware.NewPerformance(logger)
	monitor := middleware.NewMonitor(logger, setup.MonitorFlags)

	observationChain := []func(bus.ObservationEventHandler) bus.ObservationEventHandler{telemetry.WithObservation, performance.WithObservation, monitor.WithObservation}
	directiveChain := []func(bus.DirectiveEventHandler) bus.DirectiveEventHandler{telemetry.WithDirective, performance.WithDirective, monitor.WithDirective}
	selectionChain := []func(bus.SelectionEventHandler) bus.SelectionEventHandler{telemetry.WithSelection, performance.WithSelection, monitor.WithSelection}
	fillChain := []func(bus.FillEventHandler) bus.FillEventHandler{telemetry.WithFill, performance.WithFill, monitor.WithFill}
	equityChain := []func(bus.EquityEventHandler) bus.EquityEventHandler{telemetry.WithEquity, performance.WithEquity, monitor.WithEquity}

	if m := setup.Metrics; m != nil {
		observationChain = append(observationChain, m.WithObservation)
		directiveChain = append(directiveChain, m.WithDirective)
		selectionChain = append(selectionChain, m.WithSelection)
		fillChain = append(fillChain, m.WithFill)
		equityChain = append(equityChain, m.WithEquity)
	}

	router.OnObservation = middleware.Chain(observationChain...)(
		bus.MergeHandlers(scheduler.OnObservation, closes.OnObservation, portfolio.OnObservation, advisor.OnObservation))
	router.OnDirective = middleware.Chain(directiveChain...)(
		bus.MergeHandlers(audit.OnDirective, portfolio.OnDirective))
	router.OnSelection = middleware.Chain(selectionChain...)(audit.OnSelection)
	router.OnFill = middleware.Chain(fillChain...)(audit.OnFill)
	router.OnEquity = middleware.Chain(equityChain...)(audit.OnEquity)

	return &Backtest{
		logger:      logger,
		router:      router,
		registry:    registry,
		portfolio:   portfolio,
		audit:       audit,
		telemetry:   telemetry,
		performance: performance,
	}, nil
}

// Run replays source to its end, flattens the portfolio at the last prices and
// reports on the whole run.
func (b *Backtest) Run(ctx context.Context, source datasource.ObservationSource) (Report, error) {
	executor := NewExecutor(b.logger, b.router, source)

	if err := executor.Run(ctx); err != nil {
		return Report{}, fmt.Errorf("replay failed: %w", err)
	}
	if err := b.portfolio.LiquidateAll(ctx); err != nil {
		b.logger.Warn("unable to liquidate portfolio", zap.Error(err))
	}
	if err := executor.Drain(ctx); err != nil {
		return Report{}, fmt.Errorf("unable to drain router: %w", err)
	}

	return b.audit.GenerateReport()
}

func (b *Backtest) Audit() *Audit                 { return b.audit }
func (b *Backtest) Portfolio() *sandbox.Portfolio { return b.portfolio }
func (b *Backtest) Registry() *pairs.Registry     { return b.registry }

func (b *Backtest) PrintStatistics() {
	b.router.GetStatistics().Print(b.logger)
	b.telemetry.PrintStatistics()
	b.performance.PrintStatistics(b.telemetry)
}
