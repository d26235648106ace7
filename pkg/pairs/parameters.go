package pairs

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

// Parameters are the static inputs of selection and signal evaluation.
type Parameters struct {
	Universe   []string
	Lookback   int
	Window     int
	Multiplier fixed.Point
	PairCount  int
	Allocation fixed.Point
	Frequency  time.Duration

	// LiquidateDeselected flattens legs of pairs dropped by a selection cycle
	// unless the symbol is still a leg of an active pair.
	LiquidateDeselected bool
}

func DefaultParameters() Parameters {
	return Parameters{
		Lookback:   50,
		Window:     20,
		Multiplier: fixed.Two,
		PairCount:  3,
		Allocation: fixed.PointFive,
		Frequency:  24 * time.Hour,
	}
}

func (p Parameters) Validate() error {
	var err error

	if len(p.Universe) < 2 {
		err = multierr.Append(err, fmt.Errorf("%w: universe needs at least 2 instruments, got %d", ErrInvalidConfiguration, len(p.Universe)))
	}
	seen := make(map[string]struct{}, len(p.Universe))
	for _, symbol := range p.Universe {
		if strings.TrimSpace(symbol) == "" {
			err = multierr.Append(err, fmt.Errorf("%w: empty symbol in universe", ErrInvalidConfiguration))
			continue
		}
		if _, ok := seen[symbol]; ok {
			err = multierr.Append(err, fmt.Errorf("%w: duplicate symbol %s in universe", ErrInvalidConfiguration, symbol))
		}
		seen[symbol] = struct{}{}
	}
	if p.Lookback < 3 {
		err = multierr.Append(err, fmt.Errorf("%w: lookback must be at least 3, got %d", ErrInvalidConfiguration, p.Lookback))
	}
	if p.Window < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: window must be positive, got %d", ErrInvalidConfiguration, p.Window))
	}
	if p.Multiplier.IsNeg() {
		err = multierr.Append(err, fmt.Errorf("%w: band multiplier must not be negative, got %s", ErrInvalidConfiguration, p.Multiplier))
	}
	if p.PairCount < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: pair count must be positive, got %d", ErrInvalidConfiguration, p.PairCount))
	}
	if !p.Allocation.IsPos() || p.Allocation.Gt(fixed.One) {
		err = multierr.Append(err, fmt.Errorf("%w: allocation must be in (0, 1], got %s", ErrInvalidConfiguration, p.Allocation))
	}
	if p.Frequency <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: frequency must be positive, got %s", ErrInvalidConfiguration, p.Frequency))
	}
	return err
}
