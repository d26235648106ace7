package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/internal/dbg"
	"github.com/peter-kozarec/pairs/internal/version"
	"github.com/peter-kozarec/pairs/pkg/config"
	"github.com/peter-kozarec/pairs/pkg/datasource"
	"github.com/peter-kozarec/pairs/pkg/datasource/historical"
	"github.com/peter-kozarec/pairs/pkg/datasource/synthetic"
	"github.com/peter-kozarec/pairs/pkg/simulation"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	from := flag.String("from", "", "first day to replay from the data dir (YYYY-MM-DD)")
	to := flag.String("to", "", "last day to replay from the data dir (YYYY-MM-DD)")
	runs := flag.Int("runs", 1, "number of synthetic Monte Carlo runs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := dbg.NewLogger(cfg.Log.Production, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to create logger: %v\n", err)
		os.Exit(2)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	logger.Info("pairs backtest started", zap.String("version", version.Version))
	defer logger.Info("pairs backtest finished")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rule, _ := cfg.ScheduleRule()
	setup := simulation.Setup{
		Parameters:       cfg.Parameters(),
		ScheduleRule:     rule,
		ScheduleDelay:    cfg.Schedule.Delay,
		InitialCash:      cfg.Portfolio.InitialCash,
		QuantityDigits:   cfg.Portfolio.QuantityDigits,
		RouterCapacity:   RouterEventCapacity,
		MonitorFlags:     MonitorFlags,
		SnapshotInterval: SnapshotInterval,
	}

	if *runs > 1 {
		runMonteCarlo(ctx, logger, cfg, setup, *runs)
		return
	}

	var source datasource.ObservationSource
	if cfg.Data.Dir != "" {
		replay, closeAll, err := openReplay(cfg.Data.Dir, cfg.Universe, *from, *to)
		if err != nil {
			logger.Fatal("unable to open historical data", zap.Error(err))
		}
		defer closeAll()
		source = replay
	} else {
		source = newGenerator(cfg, cfg.Synthetic.Seed)
	}

	backtest, err := simulation.NewBacktest(logger, setup)
	if err != nil {
		logger.Fatal("unable to set up backtest", zap.Error(err))
	}
	defer backtest.PrintStatistics()

	report, err := backtest.Run(ctx, source)
	if err != nil {
		logger.Error("backtest failed", zap.Error(err))
		return
	}
	report.Print(logger)
}

func runMonteCarlo(ctx context.Context, logger *zap.Logger, cfg config.Configuration, setup simulation.Setup, runs int) {
	start, _ := cfg.SyntheticStart()
	mc := simulation.NewMonteCarlo(logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel)), setup, simulation.Scenario{
		StartTime:   start,
		Step:        cfg.Synthetic.Step,
		Steps:       int64(cfg.Synthetic.Observations),
		StartPrice:  fixed.FromInt(SyntheticStartPrice, 0),
		Sigma:       cfg.Synthetic.Volatility,
		Correlation: cfg.Synthetic.Correlation,
	})

	reports, err := mc.Run(ctx, runs, cfg.Synthetic.Seed)
	if err != nil {
		logger.Error("monte carlo failed", zap.Error(err))
		return
	}
	simulation.Summarize(reports).Print(logger)
}

func newGenerator(cfg config.Configuration, seed int64) *synthetic.ObservationGenerator {
	start, _ := cfg.SyntheticStart()
	instruments := make([]synthetic.Instrument, len(cfg.Universe))
	for i, symbol := range cfg.Universe {
		instruments[i] = synthetic.Instrument{Symbol: symbol, StartPrice: fixed.FromInt(SyntheticStartPrice, 0)}
	}

	generator := synthetic.NewObservationGenerator(rand.New(rand.NewSource(seed)),
		start, cfg.Synthetic.Step, int64(cfg.Synthetic.Observations), instruments...)
	generator.SetDynamics(0, cfg.Synthetic.Volatility, cfg.Synthetic.Correlation)
	return generator
}

func openReplay(dir string, universe []string, from, to string) (*historical.Replay, func(), error) {
	start, end := time.Time{}, time.Now().UTC()
	var err error
	if from != "" {
		if start, err = time.Parse(time.DateOnly, from); err != nil {
			return nil, nil, fmt.Errorf("invalid -from: %w", err)
		}
	}
	if to != "" {
		if end, err = time.Parse(time.DateOnly, to); err != nil {
			return nil, nil, fmt.Errorf("invalid -to: %w", err)
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
	}

	var sources []*historical.Source[historical.BinaryClose]
	closeAll := func() {
		for _, s := range sources {
			s.Close()
		}
	}

	readers := make([]*historical.CloseReader, 0, len(universe))
	for _, symbol := range universe {
		source := historical.NewSource[historical.BinaryClose](filepath.Join(dir, symbol+".bin"))
		if err := source.Open(); err != nil {
			closeAll()
			return nil, nil, err
		}
		sources = append(sources, source)
		readers = append(readers, historical.NewCloseReader(source, symbol, start, end))
	}

	return historical.NewReplay(readers...), closeAll, nil
}
