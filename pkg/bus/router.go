package bus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrCapacityReached = errors.New("event capacity reached")
)

type event struct {
	id   EventId
	data any
}

// Router is a single consumer event queue. Any goroutine may Post, handlers
// always run on the goroutine started by Exec or ExecLoop, one event at a time.
type Router struct {
	logger *zap.Logger
	events chan event

	OnObservation ObservationEventHandler
	OnDirective   DirectiveEventHandler
	OnSelection   SelectionEventHandler
	OnFill        FillEventHandler
	OnEquity      EquityEventHandler

	runTime       atomic.Int64
	postCount     atomic.Uint64
	postFails     atomic.Uint64
	dispatchCount atomic.Uint64
	dispatchFails atomic.Uint64
}

func NewRouter(logger *zap.Logger, eventCapacity int) *Router {
	return &Router{
		logger: logger,
		events: make(chan event, eventCapacity),
	}
}

func (r *Router) Post(id EventId, data any) error {
	select {
	case r.events <- event{id, data}:
		r.postCount.Add(1)
		return nil
	default:
		r.postFails.Add(1)
		return ErrCapacityReached
	}
}

// Exec dispatches posted events until ctx is cancelled.
func (r *Router) Exec(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	go func() {
		start := time.Now()
		defer func() { r.runTime.Add(int64(time.Since(start))) }()

		for {
			select {
			case <-ctx.Done():
				done <- ctx.Err()
				return
			case ev := <-r.events:
				r.handle(ctx, ev)
			}
		}
	}()

	return done
}

// ExecLoop dispatches posted events and calls doOnce whenever the queue is
// empty. Events always take precedence, so everything posted while handling
// one doOnce result is processed before the next call. The loop ends with the
// first doOnce error, after the queue has been drained.
func (r *Router) ExecLoop(ctx context.Context, doOnce func() error) <-chan error {
	done := make(chan error, 1)

	go func() {
		start := time.Now()
		defer func() { r.runTime.Add(int64(time.Since(start))) }()

		for {
			select {
			case <-ctx.Done():
				done <- ctx.Err()
				return
			case ev := <-r.events:
				r.handle(ctx, ev)
			default:
				if err := doOnce(); err != nil {
					r.drain(ctx)
					done <- err
					return
				}
			}
		}
	}()

	return done
}

func (r *Router) GetStatistics() Statistics {
	runTime := time.Duration(r.runTime.Load())
	postCount := r.postCount.Load()

	var throughput float64
	if runTime > 0 {
		throughput = float64(postCount) / runTime.Seconds()
	}

	return Statistics{
		RunTime:       runTime,
		PostCount:     postCount,
		PostFails:     r.postFails.Load(),
		DispatchCount: r.dispatchCount.Load(),
		DispatchFails: r.dispatchFails.Load(),
		Throughput:    throughput,
	}
}

func (r *Router) drain(ctx context.Context) {
	for {
		select {
		case ev := <-r.events:
			r.handle(ctx, ev)
		default:
			return
		}
	}
}

func (r *Router) handle(ctx context.Context, ev event) {
	r.dispatchCount.Add(1)
	if err := r.dispatch(ctx, ev); err != nil {
		r.dispatchFails.Add(1)
		r.logger.Warn("dispatch failed",
			zap.Error(err),
			zap.Stringer("event_id", ev.id))
	}
}

func (r *Router) dispatch(ctx context.Context, ev event) error {
	switch ev.id {
	case ObservationEvent:
		return dispatchAs(ctx, r.logger, ev, r.OnObservation)
	case DirectiveEvent:
		return dispatchAs(ctx, r.logger, ev, r.OnDirective)
	case SelectionEvent:
		return dispatchAs(ctx, r.logger, ev, r.OnSelection)
	case FillEvent:
		return dispatchAs(ctx, r.logger, ev, r.OnFill)
	case EquityEvent:
		return dispatchAs(ctx, r.logger, ev, r.OnEquity)
	default:
		return fmt.Errorf("unsupported event id: %d", ev.id)
	}
}

func dispatchAs[T any, H ~func(context.Context, T)](ctx context.Context, logger *zap.Logger, ev event, handler H) error {
	data, ok := ev.data.(T)
	if !ok {
		return fmt.Errorf("invalid type assertion for %s event: %T", ev.id, ev.data)
	}
	if handler == nil {
		logger.Debug("handler is nil", zap.Stringer("event_id", ev.id))
		return nil
	}
	handler(ctx, data)
	return nil
}
