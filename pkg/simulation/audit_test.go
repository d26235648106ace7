package simulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

var day0 = time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)

func fill(symbol string, quantity, price, position float64, day int) common.Fill {
	return common.Fill{
		Symbol:    symbol,
		Quantity:  fixed.FromFloat64(quantity),
		Price:     fixed.FromFloat64(price),
		Position:  fixed.FromFloat64(position),
		TimeStamp: day0.Add(time.Duration(day) * 24 * time.Hour),
	}
}

func equity(value float64, day int) common.Equity {
	return common.Equity{
		Value:     fixed.FromFloat64(value),
		TimeStamp: day0.Add(time.Duration(day) * 24 * time.Hour),
	}
}

func TestAudit_RoundTrips(t *testing.T) {
	ctx := context.Background()
	a := NewAudit(0)

	a.OnFill(ctx, fill("AAA", 10, 100, 10, 0))
	a.OnFill(ctx, fill("AAA", 5, 110, 15, 1))
	a.OnFill(ctx, fill("AAA", -15, 120, 0, 2))

	a.OnFill(ctx, fill("BBB", -10, 50, -10, 0))
	a.OnFill(ctx, fill("BBB", 20, 40, 10, 1))
	a.OnFill(ctx, fill("BBB", -10, 35, 0, 3))

	a.OnFill(ctx, fill("CCC", 1, 10, 1, 3))

	trips := a.RoundTrips()
	want := []struct {
		symbol string
		profit float64
		days   int
	}{
		{"AAA", 250, 2},
		{"BBB", 100, 1},
		{"BBB", -50, 2},
	}

	if len(trips) != len(want) {
		t.Fatalf("round trips = %d; want %d", len(trips), len(want))
	}
	for i, w := range want {
		if trips[i].Symbol != w.symbol || !trips[i].Profit.Eq(fixed.FromFloat64(w.profit)) {
			t.Errorf("trip %d = %s %s; want %s %v", i, trips[i].Symbol, trips[i].Profit, w.symbol, w.profit)
		}
		if got := trips[i].CloseTime.Sub(trips[i].OpenTime); got != time.Duration(w.days)*24*time.Hour {
			t.Errorf("trip %d duration = %s; want %d days", i, got, w.days)
		}
	}
}

func TestAudit_GenerateReport(t *testing.T) {
	ctx := context.Background()
	a := NewAudit(0)

	for day, value := range []float64{100, 120, 90, 130} {
		a.OnEquity(ctx, equity(value, day))
	}
	a.OnFill(ctx, fill("AAA", 1, 10, 1, 0))
	a.OnFill(ctx, fill("AAA", -1, 30, 0, 1))
	a.OnFill(ctx, fill("BBB", 1, 10, 1, 1))
	a.OnFill(ctx, fill("BBB", -1, 20, 0, 2))
	a.OnFill(ctx, fill("CCC", 1, 10, 1, 2))
	a.OnFill(ctx, fill("CCC", -1, 5, 0, 3))
	a.OnSelection(ctx, common.Selection{})
	a.OnDirective(ctx, common.Directive{Rule: common.SignalRuleEnterLongSpread})
	a.OnDirective(ctx, common.Directive{Rule: common.SignalRuleEnterLongSpread})

	report, err := a.GenerateReport()
	if err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}

	tests := []struct {
		name string
		got  fixed.Point
		want float64
	}{
		{"initial equity", report.InitialEquity, 100},
		{"final equity", report.FinalEquity, 130},
		{"total profit", report.TotalProfit, 30},
		{"max drawdown", report.MaxDrawdown, 25},
		{"win rate", report.WinRate, 66.67},
		{"average win", report.AverageWin, 15},
		{"average loss", report.AverageLoss, 5},
		{"profit factor", report.ProfitFactor, 6},
		{"expectancy", report.Expectancy, 25.0 / 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := tt.got.Float64()
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("%s = %s; want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if report.TotalTrades != 3 || report.WinningTrades != 2 || report.LosingTrades != 1 {
		t.Errorf("trades = %d/%d/%d; want 3/2/1", report.TotalTrades, report.WinningTrades, report.LosingTrades)
	}
	if report.Selections != 1 || report.Fills != 6 || report.Directives[common.SignalRuleEnterLongSpread] != 2 {
		t.Errorf("counters = %d/%d/%v", report.Selections, report.Fills, report.Directives)
	}
	if report.SharpeRatio.IsZero() || report.AnnualizedVolatility.IsZero() {
		t.Error("risk metrics should be populated for a volatile equity curve")
	}
}

func TestAudit_SnapshotInterval(t *testing.T) {
	ctx := context.Background()
	a := NewAudit(48 * time.Hour)

	for day, value := range []float64{100, 50, 110, 120} {
		a.OnEquity(ctx, equity(value, day))
	}

	report, err := a.GenerateReport()
	if err != nil {
		t.Fatal(err)
	}
	// Day 1 is skipped by the interval, the latest equity is always kept.
	if !report.MaxDrawdown.IsZero() {
		t.Errorf("max drawdown = %s; want 0 with day 1 skipped", report.MaxDrawdown)
	}
	if !report.FinalEquity.Eq(fixed.FromInt(120, 0)) {
		t.Errorf("final equity = %s; want 120", report.FinalEquity)
	}
}

func TestAudit_NoSnapshots(t *testing.T) {
	if _, err := NewAudit(0).GenerateReport(); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("GenerateReport() error = %v; want ErrNoSnapshots", err)
	}
}
