package simulation

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/pkg/bus"
	"github.com/peter-kozarec/pairs/pkg/datasource"
)

// Executor replays a finite observation source through the router.
type Executor struct {
	logger *zap.Logger
	router *bus.Router
	source datasource.ObservationSource
}

func NewExecutor(logger *zap.Logger, router *bus.Router, source datasource.ObservationSource) *Executor {
	return &Executor{
		logger: logger,
		router: router,
		source: source,
	}
}

// Run dispatches observations until the source is exhausted. Every event
// caused by an observation is handled before the next one is read.
func (e *Executor) Run(ctx context.Context) error {
	err := <-e.router.ExecLoop(ctx, datasource.CreateObservationDispatcher(e.router, e.source))
	if errors.Is(err, datasource.ErrEof) {
		e.logger.Debug("replay finished")
		return nil
	}
	return err
}

// Drain dispatches whatever is still queued, e.g. fills of a final liquidation.
func (e *Executor) Drain(ctx context.Context) error {
	err := <-e.router.ExecLoop(ctx, func() error { return datasource.ErrEof })
	if errors.Is(err, datasource.ErrEof) {
		return nil
	}
	return err
}
