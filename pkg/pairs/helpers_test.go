package pairs

import (
	"context"
	"time"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

var testStart = time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)

type historyFunc func(ctx context.Context, symbols []string, count int, frequency time.Duration) (History, error)

func (f historyFunc) FetchHistory(ctx context.Context, symbols []string, count int, frequency time.Duration) (History, error) {
	return f(ctx, symbols, count, frequency)
}

func staticHistory(h History) HistoryProvider {
	return historyFunc(func(context.Context, []string, int, time.Duration) (History, error) {
		return h, nil
	})
}

type holdingsMap map[string]fixed.Point

func (h holdingsMap) Quantity(symbol string) fixed.Point {
	if q, ok := h[symbol]; ok {
		return q
	}
	return fixed.Zero
}

func dailyCloses(symbol string, prices ...float64) []common.Close {
	closes := make([]common.Close, len(prices))
	for i, p := range prices {
		closes[i] = common.Close{
			Symbol:    symbol,
			TimeStamp: testStart.AddDate(0, 0, i),
			Price:     fixed.FromFloat64(p),
		}
	}
	return closes
}

func observation(ts time.Time, prices map[string]float64) common.Observation {
	obs := common.Observation{
		TimeStamp: ts,
		Prices:    make(map[string]fixed.Point, len(prices)),
	}
	for symbol, p := range prices {
		obs.Prices[symbol] = fixed.FromFloat64(p)
	}
	return obs
}

func testParameters(universe ...string) Parameters {
	params := DefaultParameters()
	params.Universe = universe
	return params
}

var (
	seriesA = []float64{100, 101, 99, 102, 100.5, 103, 104, 101.5}
	seriesB = []float64{50, 49, 51, 50.5, 52, 50, 49.5, 51}
	seriesC = []float64{70, 71, 72, 70, 69, 71, 73, 72.5}
)
