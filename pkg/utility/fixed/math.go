package fixed

func Sum(points []Point) Point {
	sum := Zero
	for _, point := range points {
		sum = sum.Add(point)
	}
	return sum
}

func Mean(points []Point) Point {
	if len(points) == 0 {
		return Zero
	}
	return Sum(points).DivInt(len(points))
}

// Variance is the population variance around the given mean.
func Variance(points []Point, mean Point) Point {
	if len(points) <= 1 {
		return Zero
	}
	return sumSquaredDiff(points, mean).DivInt(len(points))
}

// StdDev is the population standard deviation around the given mean.
func StdDev(points []Point, mean Point) Point {
	if len(points) <= 1 {
		return Zero
	}
	return Variance(points, mean).Sqrt()
}

func SampleStdDev(points []Point, mean Point) Point {
	if len(points) <= 1 {
		return Zero
	}
	return sumSquaredDiff(points, mean).DivInt(len(points) - 1).Sqrt()
}

func DownsideDev(points []Point, riskFreeRate Point) Point {
	sum := Zero
	count := 0
	for _, point := range points {
		if point.Lt(riskFreeRate) {
			diff := point.Sub(riskFreeRate)
			sum = sum.Add(diff.Mul(diff))
			count++
		}
	}
	if count <= 1 {
		return Zero
	}
	return sum.DivInt(count).Sqrt()
}

// Correlation returns the Pearson correlation coefficient of x and y.
// The second return value is false when the coefficient is undefined, which
// happens for series of unequal or insufficient length and for series with
// zero variance.
func Correlation(x, y []Point) (Point, bool) {
	if len(x) != len(y) || len(x) < 2 {
		return Zero, false
	}

	meanX := Mean(x)
	meanY := Mean(y)

	cov := Zero
	varX := Zero
	varY := Zero
	for i := range x {
		dx := x[i].Sub(meanX)
		dy := y[i].Sub(meanY)
		cov = cov.Add(dx.Mul(dy))
		varX = varX.Add(dx.Mul(dx))
		varY = varY.Add(dy.Mul(dy))
	}

	if varX.IsZero() || varY.IsZero() {
		return Zero, false
	}

	corr := cov.Div(varX.Sqrt().Mul(varY.Sqrt()))

	// Rounding can push perfectly (anti)correlated series a hair past the bounds.
	return Max(NegOne, Min(One, corr)), true
}

func SharpeRatio(points []Point, riskFreeRate Point) Point {
	if len(points) == 0 {
		return Zero
	}

	mean := Mean(points)
	volatility := StdDev(points, mean)
	if volatility.IsZero() {
		return Zero
	}
	return mean.Sub(riskFreeRate).Div(volatility)
}

func SortinoRatio(points []Point, riskFreeRate Point) Point {
	if len(points) == 0 {
		return Zero
	}

	downside := DownsideDev(points, riskFreeRate)
	if downside.IsZero() {
		return Zero
	}
	return Mean(points).Sub(riskFreeRate).Div(downside)
}

func sumSquaredDiff(points []Point, mean Point) Point {
	sum := Zero
	for _, point := range points {
		diff := point.Sub(mean)
		sum = sum.Add(diff.Mul(diff))
	}
	return sum
}
