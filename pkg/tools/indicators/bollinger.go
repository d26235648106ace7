package indicators

import (
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

type Bands struct {
	Lower  fixed.Point
	Middle fixed.Point
	Upper  fixed.Point
}

// BollingerBands is a simple moving average of the last window points with an
// envelope of multiplier population standard deviations on either side. Bands
// are only meaningful once window points have been added since the last Reset.
type BollingerBands struct {
	window     int
	multiplier fixed.Point
	data       *fixed.RingBuffer
	bands      Bands
	stdDev     fixed.Point
}

func NewBollingerBands(window int, multiplier fixed.Point) *BollingerBands {
	return &BollingerBands{
		window:     window,
		multiplier: multiplier,
		data:       fixed.NewRingBuffer(window),
	}
}

func (b *BollingerBands) AddPoint(p fixed.Point) {
	b.data.Add(p)
	if !b.data.IsFull() {
		return
	}

	mean := b.data.Mean()
	b.stdDev = b.data.StdDev()
	width := b.stdDev.Mul(b.multiplier)

	b.bands = Bands{
		Lower:  mean.Sub(width),
		Middle: mean,
		Upper:  mean.Add(width),
	}
}

func (b *BollingerBands) IsReady() bool {
	return b.data.IsFull()
}

func (b *BollingerBands) Bands() Bands {
	return b.bands
}

func (b *BollingerBands) Latest() fixed.Point {
	return b.data.Latest()
}

// ZScore of the latest point against the window. Zero while not ready or when
// the window has no dispersion.
func (b *BollingerBands) ZScore() fixed.Point {
	if !b.IsReady() || b.stdDev.IsZero() {
		return fixed.Zero
	}
	return b.data.Latest().Sub(b.bands.Middle).Div(b.stdDev)
}

func (b *BollingerBands) Count() int {
	return b.data.Size()
}

func (b *BollingerBands) Window() int {
	return b.window
}

func (b *BollingerBands) Reset() {
	b.data.Clear()
	b.bands = Bands{}
	b.stdDev = fixed.Zero
}
