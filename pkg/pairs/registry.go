package pairs

import (
	"sync/atomic"
	"time"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/tools/indicators"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

// Snapshot is one published set of active pairs. The pair list never changes
// after construction; the trackers are mutated by the Engine only.
type Snapshot struct {
	pairs      []common.RankedPair
	trackers   map[common.Pair]*indicators.BollingerBands
	generation uint64
	selectedAt time.Time
}

func newSnapshot(pairs []common.RankedPair, window int, multiplier fixed.Point, generation uint64, selectedAt time.Time) *Snapshot {
	s := &Snapshot{
		pairs:      append([]common.RankedPair(nil), pairs...),
		trackers:   make(map[common.Pair]*indicators.BollingerBands, len(pairs)),
		generation: generation,
		selectedAt: selectedAt,
	}
	for _, p := range pairs {
		s.trackers[p.Pair] = indicators.NewBollingerBands(window, multiplier)
	}
	return s
}

func (s *Snapshot) Pairs() []common.RankedPair {
	return append([]common.RankedPair(nil), s.pairs...)
}

func (s *Snapshot) Len() int {
	return len(s.pairs)
}

func (s *Snapshot) Tracker(p common.Pair) (*indicators.BollingerBands, bool) {
	t, ok := s.trackers[p]
	return t, ok
}

func (s *Snapshot) Contains(p common.Pair) bool {
	_, ok := s.trackers[p]
	return ok
}

// HasLeg reports whether symbol is a leg of any pair in the snapshot.
func (s *Snapshot) HasLeg(symbol string) bool {
	for _, p := range s.pairs {
		if p.Has(symbol) {
			return true
		}
	}
	return false
}

func (s *Snapshot) Generation() uint64 {
	return s.generation
}

func (s *Snapshot) SelectedAt() time.Time {
	return s.selectedAt
}

// Registry holds the currently active snapshot. Readers take one snapshot per
// observation with Load and never observe a partially built pair set.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

func NewRegistry() *Registry {
	r := &Registry{}
	r.current.Store(&Snapshot{trackers: map[common.Pair]*indicators.BollingerBands{}})
	return r
}

func (r *Registry) Load() *Snapshot {
	return r.current.Load()
}

// Publish replaces the active pairs with a fresh snapshot, every pair with a
// new empty tracker, and returns the snapshot it replaced.
func (r *Registry) Publish(pairs []common.RankedPair, window int, multiplier fixed.Point, selectedAt time.Time) (previous, next *Snapshot) {
	for {
		previous = r.current.Load()
		next = newSnapshot(pairs, window, multiplier, previous.generation+1, selectedAt)
		if r.current.CompareAndSwap(previous, next) {
			return previous, next
		}
	}
}
