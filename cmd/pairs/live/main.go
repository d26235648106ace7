package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/internal/dbg"
	"github.com/peter-kozarec/pairs/internal/version"
	"github.com/peter-kozarec/pairs/pkg/bus"
	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/config"
	"github.com/peter-kozarec/pairs/pkg/data/duckdb"
	"github.com/peter-kozarec/pairs/pkg/datasource/stream"
	"github.com/peter-kozarec/pairs/pkg/exchange/sandbox"
	"github.com/peter-kozarec/pairs/pkg/middleware"
	"github.com/peter-kozarec/pairs/pkg/pairs"
	"github.com/peter-kozarec/pairs/pkg/tools/schedule"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	if cfg.Stream.URL == "" || cfg.Data.DuckDB == "" {
		fmt.Fprintln(os.Stderr, "stream.url and data.duckdb are required for a live session")
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

	logger.Info("pairs started", zap.String("environment", "live"), zap.String("version", version.Version))
	defer logger.Info("pairs finished")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reader := duckdb.NewReader(cfg.Data.DuckDB)
	if err := reader.Connect(); err != nil {
		logger.Fatal("unable to open history database", zap.Error(err))
	}
	defer reader.Close()
	if err := reader.EnsureSchema(ctx); err != nil {
		logger.Fatal("unable to prepare history database", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := middleware.NewMetrics(registry)
	if err != nil {
		logger.Fatal("unable to register metrics", zap.Error(err))
	}
	server := serveMetrics(logger, cfg.Metrics.Addr, registry)

	params := cfg.Parameters()
	router := bus.NewRouter(logger, RouterEventCapacity)
	pairRegistry := pairs.NewRegistry()

	selector, err := pairs.NewSelector(logger, reader, pairRegistry, params)
	if err != nil {
		logger.Fatal("unable to create selector", zap.Error(err))
	}
	engine := pairs.NewEngine(logger, pairRegistry, params.Allocation)
	portfolio := sandbox.NewPortfolio(logger, router, cfg.Portfolio.InitialCash, sandbox.WithQuantityDigits(cfg.Portfolio.QuantityDigits))

	monitor := middleware.NewMonitor(logger, MonitorFlags)
	telemetry := middleware.NewTelemetry(logger)

	// The feed keeps posting while directives are pending, so directives
	// bypass the queue and the next observation sees the new holdings.
	onDirective := middleware.Chain(telemetry.WithDirective, metrics.WithDirective, monitor.WithDirective)(portfolio.OnDirective)
	advisor := pairs.NewAdvisor(logger, router, selector, engine, portfolio,
		pairs.WithLiquidateDeselected(params.LiquidateDeselected),
		pairs.WithDirectiveHandler(onDirective))

	rule, _ := cfg.ScheduleRule()
	scheduler := schedule.NewScheduler(logger)
	scheduler.Every("pairs.selection", rule, cfg.Schedule.Delay, advisor.Select)

	persist := func(ctx context.Context, obs common.Observation) {
		closes := make([]common.Close, 0, len(obs.Prices))
		for symbol, price := range obs.Prices {
			closes = append(closes, common.Close{Symbol: symbol, TimeStamp: obs.TimeStamp, Price: price})
		}
		if err := reader.Write(ctx, closes...); err != nil {
			logger.Warn("unable to persist closes", zap.Time("ts", obs.TimeStamp), zap.Error(err))
		}
	}

	router.OnObservation = middleware.Chain(telemetry.WithObservation, metrics.WithObservation, monitor.WithObservation)(
		bus.MergeHandlers(scheduler.OnObservation, persist, portfolio.OnObservation, advisor.OnObservation))
	router.OnDirective = onDirective
	router.OnSelection = middleware.Chain(telemetry.WithSelection, metrics.WithSelection, monitor.WithSelection)(func(context.Context, common.Selection) {})
	router.OnFill = middleware.Chain(telemetry.WithFill, metrics.WithFill, monitor.WithFill)(func(context.Context, common.Fill) {})
	router.OnEquity = middleware.Chain(telemetry.WithEquity, metrics.WithEquity, monitor.WithEquity)(func(context.Context, common.Equity) {})

	feed := stream.NewFeed(logger, router, cfg.Stream.URL, cfg.Universe)
	go feed.RunForever(ctx, ReconnectBackoff)

	defer func() { router.GetStatistics().Print(logger) }()
	defer telemetry.PrintStatistics()

	if err := <-router.Exec(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("something unexpected happened", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("unable to stop metrics server", zap.Error(err))
	}
}

func serveMetrics(logger *zap.Logger, addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return server
}
