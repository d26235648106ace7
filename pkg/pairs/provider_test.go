package pairs

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

type recordingExecutor struct {
	calls  []string
	failOn string
}

func (r *recordingExecutor) SetTargetExposure(_ context.Context, symbol string, fraction fixed.Point) error {
	r.calls = append(r.calls, "target "+symbol+" "+fraction.String())
	if symbol == r.failOn {
		return errors.New("rejected " + symbol)
	}
	return nil
}

func (r *recordingExecutor) Liquidate(_ context.Context, symbol string) error {
	r.calls = append(r.calls, "liquidate "+symbol)
	if symbol == r.failOn {
		return errors.New("rejected " + symbol)
	}
	return nil
}

func TestPairsExecute(t *testing.T) {
	exec := &recordingExecutor{failOn: "A"}
	directives := []common.Directive{
		{Command: common.DirectiveCommandSetTarget, Symbol: "A", Fraction: fixed.PointFive},
		{Command: common.DirectiveCommandSetTarget, Symbol: "B", Fraction: fixed.PointFive.Neg()},
		{Command: common.DirectiveCommandLiquidate, Symbol: "C"},
	}

	err := Execute(context.Background(), exec, directives...)
	if err == nil {
		t.Fatal("expected error from failing leg")
	}
	if n := len(multierr.Errors(err)); n != 1 {
		t.Errorf("got %d errors; want 1", n)
	}

	want := []string{"target A 0.5", "target B -0.5", "liquidate C"}
	if len(exec.calls) != len(want) {
		t.Fatalf("calls = %v; want %v", exec.calls, want)
	}
	for i := range want {
		if exec.calls[i] != want[i] {
			t.Errorf("call %d = %q; want %q", i, exec.calls[i], want[i])
		}
	}
}

func TestPairsParameters_Validate(t *testing.T) {
	valid := testParameters("SPY", "QQQ", "IWM")
	if err := valid.Validate(); err != nil {
		t.Fatalf("default parameters invalid: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Parameters)
		errs   int
	}{
		{"single instrument", func(p *Parameters) { p.Universe = []string{"SPY"} }, 1},
		{"duplicate instrument", func(p *Parameters) { p.Universe = []string{"SPY", "SPY"} }, 1},
		{"empty symbol", func(p *Parameters) { p.Universe = []string{"SPY", " "} }, 1},
		{"short lookback", func(p *Parameters) { p.Lookback = 2 }, 1},
		{"zero window", func(p *Parameters) { p.Window = 0 }, 1},
		{"negative multiplier", func(p *Parameters) { p.Multiplier = fixed.NegOne }, 1},
		{"zero pairs", func(p *Parameters) { p.PairCount = 0 }, 1},
		{"allocation above one", func(p *Parameters) { p.Allocation = fixed.Two }, 1},
		{"zero allocation", func(p *Parameters) { p.Allocation = fixed.Zero }, 1},
		{"zero frequency", func(p *Parameters) { p.Frequency = 0 }, 1},
		{"several", func(p *Parameters) { p.Window = 0; p.PairCount = 0; p.Frequency = -time.Hour }, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParameters("SPY", "QQQ", "IWM")
			tt.modify(&p)

			err := p.Validate()
			errs := multierr.Errors(err)
			if len(errs) != tt.errs {
				t.Fatalf("Validate() = %v; want %d errors", err, tt.errs)
			}
			for _, e := range errs {
				if !errors.Is(e, ErrInvalidConfiguration) {
					t.Errorf("error %v is not ErrInvalidConfiguration", e)
				}
			}
		})
	}
}
