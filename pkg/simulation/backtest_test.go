package simulation

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/pkg/datasource/synthetic"
	"github.com/peter-kozarec/pairs/pkg/middleware"
	"github.com/peter-kozarec/pairs/pkg/pairs"
	"github.com/peter-kozarec/pairs/pkg/tools/schedule"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

var (
	testUniverse = []string{"AAA", "BBB", "CCC", "DDD"}
	testStart    = time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC)
)

func testSetup() Setup {
	params := pairs.DefaultParameters()
	params.Universe = testUniverse
	params.Lookback = 15
	params.Window = 5
	params.PairCount = 2

	return Setup{
		Parameters:     params,
		ScheduleRule:   schedule.Weekly,
		InitialCash:    fixed.FromInt(100_000, 0),
		QuantityDigits: 2,
		RouterCapacity: 256,
		MonitorFlags:   middleware.MonitorNone,
	}
}

func testScenario(steps int64) Scenario {
	return Scenario{
		StartTime:   testStart,
		Step:        24 * time.Hour,
		Steps:       steps,
		StartPrice:  fixed.FromInt(100, 0),
		Mu:          0,
		Sigma:       0.015,
		Correlation: 0.6,
	}
}

func generator(seed int64, steps int64) *synthetic.ObservationGenerator {
	instruments := make([]synthetic.Instrument, len(testUniverse))
	for i, s := range testUniverse {
		instruments[i] = synthetic.Instrument{Symbol: s, StartPrice: fixed.FromInt(100, 0)}
	}
	g := synthetic.NewObservationGenerator(rand.New(rand.NewSource(seed)), testStart, 24*time.Hour, steps, instruments...)
	g.SetDynamics(0, 0.015, 0.6)
	return g
}

func TestBacktest_Run(t *testing.T) {
	backtest, err := NewBacktest(zap.NewNop(), testSetup())
	if err != nil {
		t.Fatalf("NewBacktest() error = %v", err)
	}

	report, err := backtest.Run(context.Background(), generator(5, 150))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Selections == 0 {
		t.Error("no selection happened during the replay")
	}
	if !report.InitialEquity.Eq(fixed.FromInt(100_000, 0)) {
		t.Errorf("initial equity = %s", report.InitialEquity)
	}
	if report.OpenTrades != 0 || len(backtest.Portfolio().Holdings()) != 0 {
		t.Errorf("portfolio not flat after run: %v", backtest.Portfolio().Holdings())
	}
	if !backtest.Portfolio().Cash().Eq(report.FinalEquity) {
		t.Errorf("cash %s != final equity %s", backtest.Portfolio().Cash(), report.FinalEquity)
	}
	if report.TotalTrades != len(backtest.Audit().RoundTrips()) {
		t.Errorf("total trades %d != round trips %d", report.TotalTrades, len(backtest.Audit().RoundTrips()))
	}
	if n := backtest.Registry().Load().Len(); n == 0 || n > 2 {
		t.Errorf("active pairs = %d; want 1..2", n)
	}
	if !report.EndDate.After(report.StartDate) {
		t.Errorf("report period %s..%s", report.StartDate, report.EndDate)
	}
}

func TestBacktest_InvalidSetup(t *testing.T) {
	setup := testSetup()
	setup.Parameters.Universe = []string{"AAA"}

	if _, err := NewBacktest(zap.NewNop(), setup); err == nil {
		t.Error("NewBacktest() with a single symbol universe should fail")
	}
}

func TestBacktest_Cancelled(t *testing.T) {
	backtest, err := NewBacktest(zap.NewNop(), testSetup())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := backtest.Run(ctx, generator(1, 1_000_000)); err == nil {
		t.Error("Run() with cancelled context should fail")
	}
}

func TestMonteCarlo_Run(t *testing.T) {
	mc := NewMonteCarlo(zap.NewNop(), testSetup(), testScenario(80))
	mc.SetWorkers(2)

	first, err := mc.Run(context.Background(), 3, 100)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := mc.Run(context.Background(), 3, 100)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(first) != 3 {
		t.Fatalf("reports = %d; want 3", len(first))
	}
	for i := range first {
		if !first[i].FinalEquity.Eq(second[i].FinalEquity) {
			t.Errorf("run %d not reproducible: %s vs %s", i, first[i].FinalEquity, second[i].FinalEquity)
		}
	}

	summary := Summarize(first)
	if summary.Runs != 3 || summary.WorstReturn.Gt(summary.BestReturn) {
		t.Errorf("summary = %+v", summary)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if s := Summarize(nil); s.Runs != 0 || s.ProfitableRuns != 0 {
		t.Errorf("Summarize(nil) = %+v", s)
	}
}

func BenchmarkBacktest_Run(b *testing.B) {
	for i := 0; i < b.N; i++ {
		backtest, err := NewBacktest(zap.NewNop(), testSetup())
		if err != nil {
			b.Fatal(err)
		}
		if _, err := backtest.Run(context.Background(), generator(int64(i), 250)); err != nil {
			b.Fatal(err)
		}
	}
}

// A selection triggered by an observation only sees closes recorded before
// it, so with a daily schedule the first two observations cannot select.
func TestBacktest_SelectionExcludesTriggeringClose(t *testing.T) {
	tests := []struct {
		name           string
		steps          int64
		wantSelections int
	}{
		{"two observations", 2, 0},
		{"three observations", 3, 1},
		{"five observations", 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup := testSetup()
			setup.ScheduleRule = schedule.Daily

			backtest, err := NewBacktest(zap.NewNop(), setup)
			if err != nil {
				t.Fatal(err)
			}
			report, err := backtest.Run(context.Background(), generator(3, tt.steps))
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if report.Selections != tt.wantSelections {
				t.Errorf("selections = %d; want %d", report.Selections, tt.wantSelections)
			}
		})
	}
}
