package common

import (
	"time"

	"github.com/peter-kozarec/pairs/pkg/utility"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

type DirectiveCommand int
type SignalRule int

const (
	DirectiveCommandSetTarget DirectiveCommand = iota
	DirectiveCommandLiquidate
)

const (
	SignalRuleEnterLongSpread SignalRule = iota
	SignalRuleEnterShortSpread
	SignalRuleExitShortSpread
	SignalRuleExitLongSpread
	SignalRuleDeselected
	SignalRuleManual
)

func (c DirectiveCommand) String() string {
	switch c {
	case DirectiveCommandSetTarget:
		return "set_target"
	case DirectiveCommandLiquidate:
		return "liquidate"
	default:
		return "unknown"
	}
}

func (r SignalRule) String() string {
	switch r {
	case SignalRuleEnterLongSpread:
		return "enter_long_spread"
	case SignalRuleEnterShortSpread:
		return "enter_short_spread"
	case SignalRuleExitShortSpread:
		return "exit_short_spread"
	case SignalRuleExitLongSpread:
		return "exit_long_spread"
	case SignalRuleDeselected:
		return "deselected"
	case SignalRuleManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Directive asks the portfolio to hold Fraction of its equity in Symbol, or to
// flatten Symbol completely. Fraction is signed; negative means short.
type Directive struct {
	Command  DirectiveCommand `json:"command"`
	Symbol   string           `json:"symbol"`
	Fraction fixed.Point      `json:"fraction"`

	Pair   Pair        `json:"pair"`
	Rule   SignalRule  `json:"rule"`
	Spread fixed.Point `json:"spread"`
	Lower  fixed.Point `json:"lower"`
	Middle fixed.Point `json:"middle"`
	Upper  fixed.Point `json:"upper"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
