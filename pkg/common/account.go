package common

import (
	"time"

	"github.com/peter-kozarec/pairs/pkg/utility"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

// Fill reports a quantity change of one instrument. Quantity is the signed
// delta, Position the resulting holding.
type Fill struct {
	Symbol   string           `json:"symbol"`
	Quantity fixed.Point      `json:"quantity"`
	Price    fixed.Point      `json:"price"`
	Position fixed.Point      `json:"position"`
	Command  DirectiveCommand `json:"command"`
	Rule     SignalRule       `json:"rule"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

type Equity struct {
	Value fixed.Point `json:"value"`
	Cash  fixed.Point `json:"cash"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
