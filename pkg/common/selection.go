package common

import (
	"time"

	"github.com/peter-kozarec/pairs/pkg/utility"
)

// Selection is the outcome of one pair selection cycle.
type Selection struct {
	Pairs   []RankedPair `json:"pairs"`
	Dropped []Pair       `json:"dropped,omitempty"`
	Rows    int          `json:"rows"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
