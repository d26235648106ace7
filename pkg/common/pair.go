package common

import (
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

// Pair is an unordered combination of two instruments stored in universe
// order: First always has the lower universe index.
type Pair struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

func (p Pair) String() string {
	return p.First + "/" + p.Second
}

func (p Pair) Has(symbol string) bool {
	return p.First == symbol || p.Second == symbol
}

// RankedPair is a pair with the correlation of the two instruments' returns
// over the selection lookback. Defined is false when one of the return series
// had zero variance and the coefficient does not exist.
type RankedPair struct {
	Pair
	Correlation fixed.Point `json:"correlation"`
	Defined     bool        `json:"defined"`
}
