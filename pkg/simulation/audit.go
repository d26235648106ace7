package simulation

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

var ErrNoSnapshots = errors.New("no equity snapshots recorded")

type equitySnapshot struct {
	equity fixed.Point
	cash   fixed.Point
	t      time.Time
}

// RoundTrip is one holding of a symbol from flat back to flat. A fill that
// flips the sign closes the current trip and opens the next one.
type RoundTrip struct {
	Symbol    string
	Rule      common.SignalRule
	OpenTime  time.Time
	CloseTime time.Time
	Profit    fixed.Point
}

type openTrip struct {
	position fixed.Point
	cashFlow fixed.Point
	openTime time.Time
	rule     common.SignalRule
}

// Audit records what happened during a run and turns it into a Report.
type Audit struct {
	minSnapshotInterval time.Duration

	snapshots []equitySnapshot
	latest    equitySnapshot
	hasLatest bool

	open       map[string]*openTrip
	roundTrips []RoundTrip

	selections int
	fills      int
	directives map[common.SignalRule]int
}

func NewAudit(minSnapshotInterval time.Duration) *Audit {
	return &Audit{
		minSnapshotInterval: minSnapshotInterval,
		open:                make(map[string]*openTrip),
		directives:          make(map[common.SignalRule]int),
	}
}

func (a *Audit) OnEquity(_ context.Context, e common.Equity) {
	snapshot := equitySnapshot{equity: e.Value, cash: e.Cash, t: e.TimeStamp}
	a.latest, a.hasLatest = snapshot, true

	if len(a.snapshots) == 0 || e.TimeStamp.Sub(a.snapshots[len(a.snapshots)-1].t) >= a.minSnapshotInterval {
		a.snapshots = append(a.snapshots, snapshot)
	}
}

func (a *Audit) OnSelection(_ context.Context, _ common.Selection) {
	a.selections++
}

func (a *Audit) OnDirective(_ context.Context, d common.Directive) {
	a.directives[d.Rule]++
}

func (a *Audit) OnFill(_ context.Context, f common.Fill) {
	a.fills++

	after := f.Position
	before := after.Sub(f.Quantity)
	trip, ok := a.open[f.Symbol]

	if !ok || before.IsZero() {
		a.open[f.Symbol] = &openTrip{
			position: after,
			cashFlow: f.Quantity.Mul(f.Price).Neg(),
			openTime: f.TimeStamp,
			rule:     f.Rule,
		}
		return
	}

	if after.IsZero() || after.Sign() == before.Sign() {
		trip.cashFlow = trip.cashFlow.Sub(f.Quantity.Mul(f.Price))
		trip.position = after
		if after.IsZero() {
			a.close(f.Symbol, trip, f.TimeStamp)
		}
		return
	}

	// Sign flip, close out the old side at the fill price first.
	trip.cashFlow = trip.cashFlow.Add(before.Mul(f.Price))
	a.close(f.Symbol, trip, f.TimeStamp)
	a.open[f.Symbol] = &openTrip{
		position: after,
		cashFlow: after.Mul(f.Price).Neg(),
		openTime: f.TimeStamp,
		rule:     f.Rule,
	}
}

func (a *Audit) RoundTrips() []RoundTrip {
	return append([]RoundTrip(nil), a.roundTrips...)
}

func (a *Audit) GenerateReport() (Report, error) {
	snapshots := a.equitySeries()
	if len(snapshots) == 0 {
		return Report{}, ErrNoSnapshots
	}

	report := Report{
		Selections: a.selections,
		Fills:      a.fills,
		OpenTrades: len(a.open),
		Directives: make(map[common.SignalRule]int, len(a.directives)),
	}
	for rule, n := range a.directives {
		report.Directives[rule] = n
	}

	first, last := snapshots[0], snapshots[len(snapshots)-1]
	report.InitialEquity = first.equity
	report.StartDate = first.t
	report.FinalEquity = last.equity
	report.EndDate = last.t

	// --- Return Metrics ---
	if report.InitialEquity.IsPos() {
		ratio := report.FinalEquity.Div(report.InitialEquity)
		report.TotalProfit = ratio.Sub(fixed.One).MulInt64(100).Rescale(2)

		days := int(report.EndDate.Sub(report.StartDate).Hours()/24) + 1
		if r, ok := ratio.Float64(); ok && r > 0 && days > 1 {
			annualized := math.Pow(r, 365/float64(days)) - 1
			if !math.IsInf(annualized, 0) && !math.IsNaN(annualized) {
				report.AnnualizedReturn = fixed.FromFloat64(annualized).MulInt64(100).Rescale(2)
			}
		}
	}

	// --- Max Drawdown ---
	maxEquity := report.InitialEquity
	for _, snapshot := range snapshots {
		if snapshot.equity.Gt(maxEquity) {
			maxEquity = snapshot.equity
		}
		if maxEquity.IsPos() {
			if drawdown := maxEquity.Sub(snapshot.equity).Div(maxEquity); drawdown.Gt(report.MaxDrawdown) {
				report.MaxDrawdown = drawdown
			}
		}
	}

	// --- Trade Statistics ---
	var (
		totalDuration time.Duration
		totalProfit   fixed.Point
		totalLoss     fixed.Point
	)
	for _, trip := range a.roundTrips {
		report.TotalTrades++
		totalDuration += trip.CloseTime.Sub(trip.OpenTime)

		if trip.Profit.IsPos() {
			totalProfit = totalProfit.Add(trip.Profit)
			report.WinningTrades++
		} else {
			totalLoss = totalLoss.Add(trip.Profit.Neg())
			report.LosingTrades++
		}
	}

	// --- Averages & Ratios ---
	if report.WinningTrades > 0 {
		report.AverageWin = totalProfit.DivInt(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AverageLoss = totalLoss.DivInt(report.LosingTrades)
	}
	if totalLoss.IsPos() {
		report.ProfitFactor = totalProfit.Div(totalLoss)
	}
	if report.AverageLoss.IsPos() {
		report.RiskRewardRatio = report.AverageWin.Div(report.AverageLoss)
	}
	if report.TotalTrades > 0 {
		report.Expectancy = totalProfit.Sub(totalLoss).DivInt(report.TotalTrades)
		report.AverageTradeDuration = totalDuration / time.Duration(report.TotalTrades)
		report.WinRate = fixed.FromInt(report.WinningTrades, 0).DivInt(report.TotalTrades).MulInt64(100).Rescale(2)
	}
	if report.MaxDrawdown.IsPos() {
		report.RecoveryFactor = report.TotalProfit.Div(report.MaxDrawdown.MulInt64(100)).Rescale(5)
	}
	report.MaxDrawdown = report.MaxDrawdown.MulInt64(100).Rescale(2)

	// --- Risk Metrics: Volatility, Sharpe, Sortino ---
	dailyReturns := dailyReturns(snapshots)
	meanReturn := fixed.Mean(dailyReturns)
	vol := fixed.StdDev(dailyReturns, meanReturn)

	if !vol.IsZero() {
		report.AnnualizedVolatility = vol.Mul(fixed.Sqrt252).MulInt64(100).Rescale(2)
		report.SharpeRatio = fixed.SharpeRatio(dailyReturns, fixed.Zero).Mul(fixed.Sqrt252).Rescale(5)
		report.SortinoRatio = fixed.SortinoRatio(dailyReturns, fixed.Zero).Mul(fixed.Sqrt252).Rescale(5)
	}

	return report, nil
}

func (a *Audit) close(symbol string, trip *openTrip, t time.Time) {
	a.roundTrips = append(a.roundTrips, RoundTrip{
		Symbol:    symbol,
		Rule:      trip.rule,
		OpenTime:  trip.openTime,
		CloseTime: t,
		Profit:    trip.cashFlow,
	})
	delete(a.open, symbol)
}

// equitySeries is the sampled snapshots plus the most recent equity when the
// sampling skipped it.
func (a *Audit) equitySeries() []equitySnapshot {
	series := a.snapshots
	if a.hasLatest && len(series) > 0 && a.latest.t.After(series[len(series)-1].t) {
		series = append(series[:len(series):len(series)], a.latest)
	}
	return series
}

func dailyReturns(snapshots []equitySnapshot) []fixed.Point {
	var returns []fixed.Point
	if len(snapshots) < 2 {
		return returns
	}

	var (
		prevDate   = snapshots[0].t.Truncate(24 * time.Hour)
		prevEquity = snapshots[0].equity
	)

	for _, snapshot := range snapshots[1:] {
		currDate := snapshot.t.Truncate(24 * time.Hour)

		if currDate.After(prevDate) && prevEquity.IsPos() {
			returns = append(returns, snapshot.equity.Div(prevEquity).Sub(fixed.One))
			prevDate = currDate
			prevEquity = snapshot.equity
		}
	}

	return returns
}
