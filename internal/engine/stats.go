package engine

import "math"

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sumSquares float64
	for _, v := range values {
		diff := v - m
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}

// coefVariation is stddev over mean, zero when the mean is zero.
func coefVariation(values []float64) float64 {
	m := mean(values)
	if m == 0 {
		return 0
	}
	return math.Abs(stdDev(values) / m)
}

// linearSlope fits y = a + b*x by least squares and returns b. Fewer than
// two points, or all x identical, yield zero.
func linearSlope(x, y []float64) float64 {
	n := len(x)
	if n < 2 || len(y) != n {
		return 0
	}
	meanX := mean(x)
	meanY := mean(y)

	var numerator, denom float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		numerator += dx * (y[i] - meanY)
		denom += dx * dx
	}
	if denom == 0 {
		return 0
	}
	return numerator / denom
}

// clip01 clamps v into [0,1].
func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
