package pairs

import (
	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/tools/indicators"
	"github.com/peter-kozarec/pairs/pkg/utility"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

const (
	engineComponentName = "pairs.engine"
)

// Engine turns observations into exposure directives for the active pairs.
type Engine struct {
	logger     *zap.Logger
	registry   *Registry
	allocation fixed.Point
}

func NewEngine(logger *zap.Logger, registry *Registry, allocation fixed.Point) *Engine {
	return &Engine{
		logger:     logger,
		registry:   registry,
		allocation: allocation,
	}
}

// Evaluate pushes the spread of every active pair with both legs priced into
// its tracker and returns the directives of the first matching rule per pair.
// Holdings are read before any directive of this observation is applied.
func (e *Engine) Evaluate(obs common.Observation, holdings Holdings) []common.Directive {
	snapshot := e.registry.Load()

	var directives []common.Directive
	for _, p := range snapshot.pairs {
		first, ok1 := obs.Price(p.First)
		second, ok2 := obs.Price(p.Second)
		if !ok1 || !ok2 {
			e.logger.Debug("partial observation, pair skipped",
				zap.Stringer("pair", p.Pair),
				zap.Time("ts", obs.TimeStamp))
			continue
		}

		tracker := snapshot.trackers[p.Pair]
		spread := first.Sub(second)
		tracker.AddPoint(spread)
		if !tracker.IsReady() {
			continue
		}

		bands := tracker.Bands()
		h1 := holdings.Quantity(p.First)
		h2 := holdings.Quantity(p.Second)

		rule, ok := Decide(spread, bands, h1, h2)
		if !ok {
			if !legsConsistent(h1, h2) {
				e.logger.Debug("pair legs in unrecognised state",
					zap.Stringer("pair", p.Pair),
					zap.String("first_quantity", h1.String()),
					zap.String("second_quantity", h2.String()))
			}
			continue
		}

		directives = append(directives, e.directives(obs, p.Pair, rule, spread, bands)...)
	}

	return directives
}

// Decide evaluates the band rules in priority order and returns the first one
// that matches the spread and the signed holdings of both legs.
func Decide(spread fixed.Point, bands indicators.Bands, h1, h2 fixed.Point) (common.SignalRule, bool) {
	switch {
	case spread.Lt(bands.Lower) && h1.Sign() <= 0 && h2.Sign() >= 0:
		return common.SignalRuleEnterLongSpread, true
	case spread.Gt(bands.Upper) && h1.Sign() >= 0 && h2.Sign() <= 0:
		return common.SignalRuleEnterShortSpread, true
	case spread.Gt(bands.Middle) && h1.IsNeg() && h2.IsPos():
		return common.SignalRuleExitShortSpread, true
	case spread.Lt(bands.Middle) && h1.IsPos() && h2.IsNeg():
		return common.SignalRuleExitLongSpread, true
	}
	return 0, false
}

func (e *Engine) directives(obs common.Observation, pair common.Pair, rule common.SignalRule, spread fixed.Point, bands indicators.Bands) []common.Directive {
	base := common.Directive{
		Pair:        pair,
		Rule:        rule,
		Spread:      spread,
		Lower:       bands.Lower,
		Middle:      bands.Middle,
		Upper:       bands.Upper,
		Source:      engineComponentName,
		ExecutionId: utility.GetExecutionID(),
		TimeStamp:   obs.TimeStamp,
	}

	first, second := base, base
	first.Symbol, second.Symbol = pair.First, pair.Second
	first.TraceID, second.TraceID = utility.CreateTraceID(), utility.CreateTraceID()

	switch rule {
	case common.SignalRuleEnterLongSpread:
		first.Command, first.Fraction = common.DirectiveCommandSetTarget, e.allocation
		second.Command, second.Fraction = common.DirectiveCommandSetTarget, e.allocation.Neg()
	case common.SignalRuleEnterShortSpread:
		first.Command, first.Fraction = common.DirectiveCommandSetTarget, e.allocation.Neg()
		second.Command, second.Fraction = common.DirectiveCommandSetTarget, e.allocation
	default:
		first.Command, first.Fraction = common.DirectiveCommandLiquidate, fixed.Zero
		second.Command, second.Fraction = common.DirectiveCommandLiquidate, fixed.Zero
	}

	return []common.Directive{first, second}
}

// legsConsistent is true when the pair is flat or holds opposite signed legs.
func legsConsistent(h1, h2 fixed.Point) bool {
	return (h1.IsZero() && h2.IsZero()) || h1.Sign()*h2.Sign() < 0
}
