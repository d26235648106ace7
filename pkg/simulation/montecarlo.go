package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/peter-kozarec/pairs/pkg/datasource/synthetic"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

// Scenario describes the synthetic market every Monte Carlo run is drawn from.
type Scenario struct {
	StartTime   time.Time
	Step        time.Duration
	Steps       int64
	StartPrice  fixed.Point
	Mu          float64
	Sigma       float64
	Correlation float64
}

// MonteCarlo repeats a backtest over independently seeded synthetic markets.
type MonteCarlo struct {
	logger   *zap.Logger
	setup    Setup
	scenario Scenario
	workers  int
}

func NewMonteCarlo(logger *zap.Logger, setup Setup, scenario Scenario) *MonteCarlo {
	return &MonteCarlo{
		logger:   logger,
		setup:    setup,
		scenario: scenario,
		workers:  runtime.GOMAXPROCS(0),
	}
}

func (m *MonteCarlo) SetWorkers(workers int) {
	if workers > 0 {
		m.workers = workers
	}
}

// Run executes runs backtests, run i seeded with seed+i, and returns their
// reports in run order. The first failing run cancels the rest.
func (m *MonteCarlo) Run(ctx context.Context, runs int, seed int64) ([]Report, error) {
	reports := make([]Report, runs)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for i := 0; i < runs; i++ {
		g.Go(func() error {
			report, err := m.runOnce(ctx, i, seed+int64(i))
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (m *MonteCarlo) runOnce(ctx context.Context, run int, seed int64) (Report, error) {
	logger := m.logger.With(zap.Int("run", run), zap.Int64("seed", seed))

	backtest, err := NewBacktest(logger, m.setup)
	if err != nil {
		return Report{}, err
	}

	instruments := make([]synthetic.Instrument, len(m.setup.Parameters.Universe))
	for i, symbol := range m.setup.Parameters.Universe {
		instruments[i] = synthetic.Instrument{Symbol: symbol, StartPrice: m.scenario.StartPrice}
	}

	generator := synthetic.NewObservationGenerator(rand.New(rand.NewSource(seed)),
		m.scenario.StartTime, m.scenario.Step, m.scenario.Steps, instruments...)
	generator.SetDynamics(m.scenario.Mu, m.scenario.Sigma, m.scenario.Correlation)

	return backtest.Run(ctx, generator)
}

// Summary aggregates the distribution of a set of reports.
type Summary struct {
	Runs             int
	MeanReturn       fixed.Point
	StdDevReturn     fixed.Point
	WorstReturn      fixed.Point
	BestReturn       fixed.Point
	MeanMaxDrawdown  fixed.Point
	WorstMaxDrawdown fixed.Point
	MeanSharpeRatio  fixed.Point
	ProfitableRuns   int
}

func Summarize(reports []Report) Summary {
	summary := Summary{Runs: len(reports)}
	if len(reports) == 0 {
		return summary
	}

	returns := make([]fixed.Point, len(reports))
	drawdowns := make([]fixed.Point, len(reports))
	sharpes := make([]fixed.Point, len(reports))

	summary.WorstReturn = reports[0].TotalProfit
	summary.BestReturn = reports[0].TotalProfit
	for i, r := range reports {
		returns[i] = r.TotalProfit
		drawdowns[i] = r.MaxDrawdown
		sharpes[i] = r.SharpeRatio

		summary.WorstReturn = fixed.Min(summary.WorstReturn, r.TotalProfit)
		summary.BestReturn = fixed.Max(summary.BestReturn, r.TotalProfit)
		summary.WorstMaxDrawdown = fixed.Max(summary.WorstMaxDrawdown, r.MaxDrawdown)
		if r.TotalProfit.IsPos() {
			summary.ProfitableRuns++
		}
	}

	summary.MeanReturn = fixed.Mean(returns).Rescale(2)
	summary.StdDevReturn = fixed.StdDev(returns, fixed.Mean(returns)).Rescale(2)
	summary.MeanMaxDrawdown = fixed.Mean(drawdowns).Rescale(2)
	summary.MeanSharpeRatio = fixed.Mean(sharpes).Rescale(5)
	return summary
}

func (s Summary) Print(logger *zap.Logger) {
	logger.Info("monte carlo summary",
		zap.Int("runs", s.Runs),
		zap.Int("profitable_runs", s.ProfitableRuns),
		zap.String("mean_return", fmt.Sprintf("%s%%", s.MeanReturn)),
		zap.String("stddev_return", fmt.Sprintf("%s%%", s.StdDevReturn)),
		zap.String("worst_return", fmt.Sprintf("%s%%", s.WorstReturn)),
		zap.String("best_return", fmt.Sprintf("%s%%", s.BestReturn)),
		zap.String("mean_max_drawdown", fmt.Sprintf("%s%%", s.MeanMaxDrawdown)),
		zap.String("worst_max_drawdown", fmt.Sprintf("%s%%", s.WorstMaxDrawdown)),
		zap.String("mean_sharpe_ratio", s.MeanSharpeRatio.String()),
	)
}
