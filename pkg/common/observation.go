package common

import (
	"time"

	"github.com/peter-kozarec/pairs/pkg/utility"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

// Observation is the latest known price for a subset of the universe at one
// point in time. Instruments without a price are simply absent.
type Observation struct {
	Prices map[string]fixed.Point `json:"prices"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

func (o Observation) Price(symbol string) (fixed.Point, bool) {
	p, ok := o.Prices[symbol]
	return p, ok
}

// Close is one historical closing price.
type Close struct {
	Symbol    string      `json:"symbol"`
	TimeStamp time.Time   `json:"ts"`
	Price     fixed.Point `json:"price"`
}
