package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/pairs"
)

// CloseStore records the closes seen on the observation stream so that pair
// selection during a replay only ever sees the past. One close is kept per
// symbol and frequency bucket, the latest one observed in that bucket.
type CloseStore struct {
	mu        sync.RWMutex
	frequency time.Duration
	capacity  int
	closes    map[string][]common.Close
}

func NewCloseStore(frequency time.Duration, capacity int) *CloseStore {
	return &CloseStore{
		frequency: frequency,
		capacity:  capacity,
		closes:    make(map[string][]common.Close),
	}
}

func (s *CloseStore) OnObservation(_ context.Context, obs common.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for symbol, price := range obs.Prices {
		s.add(common.Close{Symbol: symbol, TimeStamp: obs.TimeStamp, Price: price})
	}
}

func (s *CloseStore) Add(c common.Close) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(c)
}

func (s *CloseStore) add(c common.Close) {
	c.TimeStamp = bucket(c.TimeStamp, s.frequency)
	series := s.closes[c.Symbol]

	if n := len(series); n > 0 {
		last := series[n-1].TimeStamp
		if c.TimeStamp.Equal(last) {
			series[n-1] = c
			return
		}
		if c.TimeStamp.Before(last) {
			return
		}
	}

	series = append(series, c)
	if s.capacity > 0 && len(series) > 2*s.capacity {
		series = append(series[:0], series[len(series)-s.capacity:]...)
	}
	s.closes[c.Symbol] = series
}

func (s *CloseStore) Len(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.retained(symbol))
}

// FetchHistory returns the last count closes of every symbol resampled to
// frequency. The frequency must be a multiple of the store frequency.
func (s *CloseStore) FetchHistory(ctx context.Context, symbols []string, count int, frequency time.Duration) (pairs.History, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.frequency > 0 && frequency%s.frequency != 0 {
		return nil, fmt.Errorf("requested frequency %s is not a multiple of store frequency %s", frequency, s.frequency)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var err error
	history := make(pairs.History, len(symbols))
	for _, symbol := range symbols {
		series := s.retained(symbol)
		if len(series) == 0 {
			err = multierr.Append(err, fmt.Errorf("no closes recorded for %s: %w", symbol, pairs.ErrDataUnavailable))
			continue
		}
		history[symbol] = lastN(resample(series, frequency), count)
	}
	if err != nil {
		return nil, err
	}
	return history, nil
}

// retained is the visible part of a series. The backing slice may hold up to
// twice the capacity so trimming is amortized.
func (s *CloseStore) retained(symbol string) []common.Close {
	series := s.closes[symbol]
	if s.capacity > 0 && len(series) > s.capacity {
		series = series[len(series)-s.capacity:]
	}
	return series
}

func resample(series []common.Close, frequency time.Duration) []common.Close {
	out := make([]common.Close, 0, len(series))
	for _, c := range series {
		c.TimeStamp = bucket(c.TimeStamp, frequency)
		if n := len(out); n > 0 && out[n-1].TimeStamp.Equal(c.TimeStamp) {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}

func lastN(series []common.Close, n int) []common.Close {
	if n > 0 && len(series) > n {
		series = series[len(series)-n:]
	}
	return append([]common.Close(nil), series...)
}

func bucket(t time.Time, frequency time.Duration) time.Time {
	if frequency <= 0 {
		return t
	}
	return t.Truncate(frequency)
}
