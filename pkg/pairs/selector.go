package pairs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/utility"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

const (
	selectorComponentName = "pairs.selector"
)

// Selector ranks every pair of the universe by the correlation of their
// returns and publishes the top ranked ones to the registry.
type Selector struct {
	logger   *zap.Logger
	provider HistoryProvider
	registry *Registry
	params   Parameters
}

func NewSelector(logger *zap.Logger, provider HistoryProvider, registry *Registry, params Parameters) (*Selector, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Selector{
		logger:   logger,
		provider: provider,
		registry: registry,
		params:   params,
	}, nil
}

// Select runs one selection cycle. On success the registry holds the new pairs,
// each with an empty tracker. On failure the registry is left untouched.
func (s *Selector) Select(ctx context.Context, t time.Time) (common.Selection, error) {
	history, err := s.provider.FetchHistory(ctx, s.params.Universe, s.params.Lookback, s.params.Frequency)
	if err != nil {
		return common.Selection{}, fmt.Errorf("%w: unable to fetch history: %w", ErrDataUnavailable, err)
	}

	returns, rows, err := AlignedReturns(s.params.Universe, history)
	if err != nil {
		return common.Selection{}, err
	}

	ranking := RankPairs(s.params.Universe, returns)
	selected := ranking[:min(s.params.PairCount, len(ranking))]

	previous, next := s.registry.Publish(selected, s.params.Window, s.params.Multiplier, t)

	var dropped []common.Pair
	for _, p := range previous.pairs {
		if !next.Contains(p.Pair) {
			dropped = append(dropped, p.Pair)
		}
	}

	s.logger.Debug("pairs selected",
		zap.Time("ts", t),
		zap.Int("rows", rows),
		zap.Int("candidates", len(ranking)),
		zap.Int("selected", len(selected)),
		zap.Uint64("generation", next.generation))

	return common.Selection{
		Pairs:       next.Pairs(),
		Dropped:     dropped,
		Rows:        rows,
		Source:      selectorComponentName,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   t,
	}, nil
}

// AlignedReturns keeps only the timestamps present for every symbol and turns
// the aligned closes into simple returns p[t]/p[t-1] - 1. The first aligned
// row has no return and is dropped, so rows-1 returns are produced per symbol.
func AlignedReturns(universe []string, history History) (map[string][]fixed.Point, int, error) {
	prices := make(map[string]map[int64]fixed.Point, len(universe))
	var timeline []int64

	for i, symbol := range universe {
		closes := history[symbol]
		if len(closes) == 0 {
			return nil, 0, fmt.Errorf("%w: no history for %s", ErrDataUnavailable, symbol)
		}

		byTime := make(map[int64]fixed.Point, len(closes))
		for _, c := range closes {
			byTime[c.TimeStamp.UnixNano()] = c.Price
		}
		prices[symbol] = byTime

		if i == 0 {
			for ts := range byTime {
				timeline = append(timeline, ts)
			}
		}
	}

	aligned := timeline[:0]
	for _, ts := range timeline {
		present := true
		for _, symbol := range universe[1:] {
			if _, ok := prices[symbol][ts]; !ok {
				present = false
				break
			}
		}
		if present {
			aligned = append(aligned, ts)
		}
	}
	sort.Slice(aligned, func(i, j int) bool { return aligned[i] < aligned[j] })

	if len(aligned) < 2 {
		return nil, len(aligned), fmt.Errorf("%w: %d aligned rows, need at least 2", ErrDataUnavailable, len(aligned))
	}

	returns := make(map[string][]fixed.Point, len(universe))
	for _, symbol := range universe {
		series := make([]fixed.Point, 0, len(aligned)-1)
		prev := prices[symbol][aligned[0]]
		for _, ts := range aligned[1:] {
			cur := prices[symbol][ts]
			if !prev.IsPos() {
				return nil, len(aligned), fmt.Errorf("%w: non-positive close %s for %s at %s",
					ErrInvalidHistory, prev, symbol, time.Unix(0, ts).UTC())
			}
			series = append(series, cur.Div(prev).Sub(fixed.One))
			prev = cur
		}
		returns[symbol] = series
	}

	return returns, len(aligned), nil
}

// RankPairs enumerates every pair (i < j) of the universe once and orders them
// by correlation, highest first. Pairs with equal correlation keep enumeration
// order. Pairs whose correlation is undefined rank after all others.
func RankPairs(universe []string, returns map[string][]fixed.Point) []common.RankedPair {
	n := len(universe)
	ranking := make([]common.RankedPair, 0, n*(n-1)/2)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			corr, ok := fixed.Correlation(returns[universe[i]], returns[universe[j]])
			ranking = append(ranking, common.RankedPair{
				Pair:        common.Pair{First: universe[i], Second: universe[j]},
				Correlation: corr,
				Defined:     ok,
			})
		}
	}

	sort.SliceStable(ranking, func(a, b int) bool {
		if ranking[a].Defined != ranking[b].Defined {
			return ranking[a].Defined
		}
		return ranking[a].Correlation.Gt(ranking[b].Correlation)
	})

	return ranking
}
