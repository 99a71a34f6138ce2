// Package stats holds the population statistics behind the 3-sigma outlier rule.
package stats

import "math"

// SigmaThreshold is the number of standard deviations beyond which a value
// is an outlier.
const SigmaThreshold = 3.0

// Summary is the mean and population standard deviation of a sample.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// Describe computes the population mean and standard deviation of values.
// An empty input yields a zero Summary.
func Describe(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}

	return Summary{
		Count:  n,
		Mean:   mean,
		StdDev: math.Sqrt(sq / float64(n)),
	}
}

// IsOutlier reports whether v deviates from the mean by more than
// SigmaThreshold standard deviations. A zero deviation flags nothing.
func (s Summary) IsOutlier(v float64) bool {
	return math.Abs(v-s.Mean) > SigmaThreshold*s.StdDev
}

// CountOutliers returns how many of values lie outside the 3-sigma band of s.
func (s Summary) CountOutliers(values []float64) int {
	n := 0
	for _, v := range values {
		if s.IsOutlier(v) {
			n++
		}
	}
	return n
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
