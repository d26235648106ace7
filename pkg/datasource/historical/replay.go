package historical

import (
	"errors"
	"math"
	"time"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/utility"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

const replayComponentName = "datasource.historical.replay"

// Replay merges per symbol close readers into joint observations in timestamp
// order. A symbol without a close at some timestamp is absent from that
// observation.
type Replay struct {
	readers []*CloseReader
}

func NewReplay(readers ...*CloseReader) *Replay {
	return &Replay{readers: readers}
}

func (r *Replay) GetNext() (common.Observation, error) {
	next := int64(math.MaxInt64)
	found := false

	for _, reader := range r.readers {
		head, err := reader.Peek()
		if errors.Is(err, ErrEof) {
			continue
		}
		if err != nil {
			return common.Observation{}, err
		}
		if head.TimeStamp < next {
			next = head.TimeStamp
		}
		found = true
	}

	if !found {
		return common.Observation{}, ErrEof
	}

	prices := make(map[string]fixed.Point, len(r.readers))
	for _, reader := range r.readers {
		head, err := reader.Peek()
		if err != nil || head.TimeStamp != next {
			continue
		}
		prices[reader.Symbol()] = fixed.FromFloat64(head.Close)
		reader.Advance()
	}

	return common.Observation{
		Prices:      prices,
		Source:      replayComponentName,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   time.Unix(0, next).UTC(),
	}, nil
}
