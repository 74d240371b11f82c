package similarity

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Fixed p-values used when the t statistic is undefined.
const (
	PMatch    = 0.99
	PMismatch = 0.01
)

// WelchTTest returns the two-sided p-value that a and b share a mean.
//
//   - either side empty: 0
//   - both sides single values, or both without variance: PMatch when the
//     first values are equal, PMismatch otherwise
//   - exactly one side a single value: one-sample t-test of the other side
//     against that value
//   - otherwise Welch's unequal-variance t-test
//
// A statistic that still comes out undefined maps to PMismatch.
func WelchTTest(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	if (len(a) == 1 && len(b) == 1) || (constant(a) && constant(b)) {
		if a[0] == b[0] {
			return PMatch
		}
		return PMismatch
	}

	var p float64
	switch {
	case len(a) == 1:
		p = oneSample(b, a[0])
	case len(b) == 1:
		p = oneSample(a, b[0])
	default:
		p = welch(a, b)
	}

	if math.IsNaN(p) {
		return PMismatch
	}
	return p
}

func oneSample(xs []float64, mu float64) float64 {
	mean, variance := stat.MeanVariance(xs, nil)
	n := float64(len(xs))
	se := math.Sqrt(variance / n)
	if se == 0 {
		if mean == mu {
			return PMatch
		}
		return PMismatch
	}
	return twoSided((mean-mu)/se, n-1)
}

func welch(a, b []float64) float64 {
	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))

	sa, sb := varA/na, varB/nb
	se := math.Sqrt(sa + sb)
	if se == 0 {
		return math.NaN()
	}

	df := (sa + sb) * (sa + sb) / (sa*sa/(na-1) + sb*sb/(nb-1))
	return twoSided((meanA-meanB)/se, df)
}

func twoSided(t, df float64) float64 {
	if math.IsNaN(t) || math.IsNaN(df) || df <= 0 {
		return math.NaN()
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * (1 - dist.CDF(math.Abs(t)))
	return math.Max(0, math.Min(1, p))
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
