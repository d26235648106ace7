package pairs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

// History maps a symbol to its closes, oldest first.
type History map[string][]common.Close

// HistoryProvider returns up to count most recent closes per symbol sampled at
// frequency. Implementations return ErrDataUnavailable (possibly wrapped) when
// a symbol has no data at all.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbols []string, count int, frequency time.Duration) (History, error)
}

// Holdings reports the signed quantity currently held in a symbol.
type Holdings interface {
	Quantity(symbol string) fixed.Point
}

type Executor interface {
	SetTargetExposure(ctx context.Context, symbol string, fraction fixed.Point) error
	Liquidate(ctx context.Context, symbol string) error
}

// Execute applies every directive, continuing past failures. The returned
// error combines the failure of each leg.
func Execute(ctx context.Context, executor Executor, directives ...common.Directive) error {
	var err error
	for _, d := range directives {
		switch d.Command {
		case common.DirectiveCommandSetTarget:
			err = multierr.Append(err, executor.SetTargetExposure(ctx, d.Symbol, d.Fraction))
		case common.DirectiveCommandLiquidate:
			err = multierr.Append(err, executor.Liquidate(ctx, d.Symbol))
		default:
			err = multierr.Append(err, fmt.Errorf("unsupported directive command %d for %s", d.Command, d.Symbol))
		}
	}
	return err
}
