package synthetic

import (
	"math"
	"math/rand"
	"time"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/datasource"
	"github.com/peter-kozarec/pairs/pkg/utility"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

const (
	observationGeneratorComponentName = "datasource.synthetic.generator"
)

var (
	ErrEof = datasource.ErrEof
)

type Instrument struct {
	Symbol     string
	StartPrice fixed.Point
}

// ObservationGenerator produces joint closes of several instruments following
// geometric Brownian motion. Each step draws one shock common to all
// instruments and one idiosyncratic shock per instrument, mixed so that any
// two log returns have the configured correlation.
type ObservationGenerator struct {
	rng         *rand.Rand
	instruments []Instrument

	step  time.Duration
	steps int64
	t     int64

	mu          float64
	sigma       float64
	correlation float64

	skipWeekends   bool
	gapProbability float64
	priceDigits    int

	lastTime   time.Time
	lastPrices []float64
}

func NewObservationGenerator(rng *rand.Rand, startTime time.Time, step time.Duration, steps int64, instruments ...Instrument) *ObservationGenerator {
	lastPrices := make([]float64, len(instruments))
	for i, instrument := range instruments {
		lastPrices[i], _ = instrument.StartPrice.Float64()
	}

	return &ObservationGenerator{
		rng:         rng,
		instruments: instruments,

		step:  step,
		steps: steps,

		mu:          0.0002,
		sigma:       0.012,
		correlation: 0.8,

		skipWeekends: true,
		priceDigits:  2,

		lastTime:   startTime.Add(-step),
		lastPrices: lastPrices,
	}
}

// SetDynamics sets per step drift, volatility and pairwise correlation of log returns.
func (g *ObservationGenerator) SetDynamics(mu, sigma, correlation float64) {
	g.mu = mu
	g.sigma = sigma
	g.correlation = math.Max(0, math.Min(1, correlation))
}

// SetGapProbability makes every instrument independently absent from an
// observation with probability p.
func (g *ObservationGenerator) SetGapProbability(p float64) {
	g.gapProbability = p
}

func (g *ObservationGenerator) SetSkipWeekends(skip bool) {
	g.skipWeekends = skip
}

func (g *ObservationGenerator) SetPriceDigits(digits int) {
	g.priceDigits = digits
}

func (g *ObservationGenerator) GetNext() (common.Observation, error) {
	if g.t >= g.steps {
		return common.Observation{}, ErrEof
	}
	g.t++

	g.lastTime = g.nextTime()

	drift := g.mu - 0.5*g.sigma*g.sigma
	systematic := math.Sqrt(g.correlation)
	idiosyncratic := math.Sqrt(1 - g.correlation)
	shock := g.rng.NormFloat64()

	prices := make(map[string]fixed.Point, len(g.instruments))
	for i, instrument := range g.instruments {
		z := systematic*shock + idiosyncratic*g.rng.NormFloat64()
		g.lastPrices[i] *= math.Exp(drift + g.sigma*z)

		if g.gapProbability > 0 && g.rng.Float64() < g.gapProbability {
			continue
		}
		prices[instrument.Symbol] = fixed.FromFloat64(g.lastPrices[i]).Rescale(g.priceDigits)
	}

	return common.Observation{
		Prices:      prices,
		Source:      observationGeneratorComponentName,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   g.lastTime,
	}, nil
}

func (g *ObservationGenerator) nextTime() time.Time {
	next := g.lastTime.Add(g.step)
	for g.skipWeekends && (next.Weekday() == time.Saturday || next.Weekday() == time.Sunday) {
		next = next.Add(g.step)
	}
	return next
}
