package bus

import (
	"context"

	"github.com/peter-kozarec/pairs/pkg/common"
)

type EventHandler[T any] = func(context.Context, T)

type ObservationEventHandler EventHandler[common.Observation]
type DirectiveEventHandler EventHandler[common.Directive]
type SelectionEventHandler EventHandler[common.Selection]
type FillEventHandler EventHandler[common.Fill]
type EquityEventHandler EventHandler[common.Equity]

func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(ctx context.Context, event T) {
		for _, handler := range handlers {
			handler(ctx, event)
		}
	}
}
