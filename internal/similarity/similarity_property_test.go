package similarity

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_OverlapBounds checks that overlap of a column with itself is 1
// and that overlap of any two non-empty columns stays within [0, 1].
func TestProperty_OverlapBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	values := gen.SliceOf(gen.OneConstOf("a", "b", "c", "d", "e", "f", "g"))

	properties.Property("overlap with itself is 1", prop.ForAll(
		func(a []string) bool {
			if len(a) == 0 {
				return true
			}
			return Overlap(a, a) == 1
		},
		values,
	))

	properties.Property("overlap is within [0,1]", prop.ForAll(
		func(a, b []string) bool {
			o := Overlap(a, b)
			return o >= 0 && o <= 1
		},
		values, values,
	))

	properties.Property("deduplicated overlap is symmetric", prop.ForAll(
		func(a, b []string) bool {
			return Overlap(a, b) == Overlap(b, a)
		},
		values, values,
	))

	properties.TestingRun(t)
}

// TestProperty_WelchPValueRange checks that the t-test never leaves [0, 1].
func TestProperty_WelchPValueRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	nums := gen.SliceOf(gen.Float64Range(-1000, 1000))

	properties.Property("p-value in [0,1]", prop.ForAll(
		func(a, b []float64) bool {
			p := WelchTTest(a, b)
			return p >= 0 && p <= 1
		},
		nums, nums,
	))

	properties.TestingRun(t)
}
