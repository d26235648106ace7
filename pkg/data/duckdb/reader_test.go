package duckdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/pairs"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestReader(t *testing.T) *Reader {
	t.Helper()
	r := NewReader("")
	if err := r.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(r.Close)

	if err := r.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return r
}

func hourlyCloses(symbol string, prices ...float64) []common.Close {
	closes := make([]common.Close, len(prices))
	for i, p := range prices {
		closes[i] = common.Close{
			Symbol:    symbol,
			TimeStamp: day0.Add(time.Duration(i) * 6 * time.Hour),
			Price:     fixed.FromFloat64(p),
		}
	}
	return closes
}

func TestReader_FetchHistory(t *testing.T) {
	ctx := context.Background()
	r := newTestReader(t)

	// Four closes per day over three days.
	if err := r.Write(ctx, hourlyCloses("AAA", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)...); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := r.Write(ctx, hourlyCloses("BBB", 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24)...); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	history, err := r.FetchHistory(ctx, []string{"AAA", "BBB"}, 2, 24*time.Hour)
	if err != nil {
		t.Fatalf("FetchHistory() error = %v", err)
	}

	tests := []struct {
		symbol string
		want   []float64
	}{
		{"AAA", []float64{8, 12}},
		{"BBB", []float64{16, 24}},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			series := history[tt.symbol]
			if len(series) != len(tt.want) {
				t.Fatalf("len = %d; want %d", len(series), len(tt.want))
			}
			for i, w := range tt.want {
				if !series[i].Price.Eq(fixed.FromFloat64(w)) {
					t.Errorf("close %d = %s; want %v", i, series[i].Price, w)
				}
				if series[i].Symbol != tt.symbol {
					t.Errorf("close %d symbol = %s", i, series[i].Symbol)
				}
			}
			if !series[0].TimeStamp.Equal(day0.Add(24*time.Hour)) || !series[1].TimeStamp.Equal(day0.Add(48*time.Hour)) {
				t.Errorf("bucket timestamps = %s, %s", series[0].TimeStamp, series[1].TimeStamp)
			}
		})
	}
}

func TestReader_FetchHistoryMissingSymbol(t *testing.T) {
	ctx := context.Background()
	r := newTestReader(t)

	if err := r.Write(ctx, hourlyCloses("AAA", 1, 2)...); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	_, err := r.FetchHistory(ctx, []string{"AAA", "ZZZ"}, 5, 24*time.Hour)
	if !errors.Is(err, pairs.ErrDataUnavailable) {
		t.Errorf("FetchHistory() error = %v; want ErrDataUnavailable", err)
	}
}

func TestReader_FetchHistoryInvalidFrequency(t *testing.T) {
	r := newTestReader(t)
	if _, err := r.FetchHistory(context.Background(), []string{"AAA"}, 5, time.Nanosecond); err == nil {
		t.Error("FetchHistory() with sub-microsecond frequency should fail")
	}
}

func TestReader_WithoutSchema(t *testing.T) {
	r := NewReader("")
	if err := r.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer r.Close()

	if _, err := r.FetchHistory(context.Background(), []string{"AAA"}, 5, time.Hour); err == nil {
		t.Error("FetchHistory() without closes table should fail")
	}
}
