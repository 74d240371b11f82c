package expand

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestAssign(t *testing.T) {
	tests := []struct {
		name  string
		score [][]float64
		want  []int
		total float64
		ok    bool
	}{
		{"empty", nil, nil, 0, true},
		{"identity", [][]float64{{1, 0}, {0, 1}}, []int{0, 1}, 2, true},
		{"crossed", [][]float64{{0, 1}, {1, 0}}, []int{1, 0}, 2, true},
		{"greedy trap", [][]float64{{0.9, 0.8}, {0.85, 0.1}}, []int{1, 0}, 1.65, true},
		{"wide", [][]float64{{0.1, 0.2, 0.9}}, []int{2}, 0.9, true},
		{"negative logs", [][]float64{{-1, -20}, {-20, -2}}, []int{0, 1}, -3, true},
		{"too few columns", [][]float64{{1}, {1}}, nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, ok := assign(tt.score)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("assign() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("assign() = %v, want %v", got, tt.want)
				}
			}
			if math.Abs(total-tt.total) > 1e-9 {
				t.Errorf("total = %v, want %v", total, tt.total)
			}
		})
	}
}

// bruteForce tries every injective mapping of rows to columns.
func bruteForce(score [][]float64) float64 {
	n := len(score)
	m := len(score[0])
	used := make([]bool, m)
	best := math.Inf(-1)
	var walk func(i int, sum float64)
	walk = func(i int, sum float64) {
		if i == n {
			if sum > best {
				best = sum
			}
			return
		}
		for j := 0; j < m; j++ {
			if used[j] {
				continue
			}
			used[j] = true
			walk(i+1, sum+score[i][j])
			used[j] = false
		}
	}
	walk(0, 0)
	return best
}

// TestProperty_AssignMatchesBruteForce cross-checks the Hungarian solver.
func TestProperty_AssignMatchesBruteForce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("optimal total and injective", prop.ForAll(
		func(n, extra int, flat []float64) bool {
			m := n + extra
			score := make([][]float64, n)
			for i := range score {
				score[i] = flat[i*m : (i+1)*m]
			}

			cols, total, ok := assign(score)
			if !ok || len(cols) != n {
				return false
			}
			seen := make(map[int]bool)
			sum := 0.0
			for i, j := range cols {
				if j < 0 || j >= m || seen[j] {
					return false
				}
				seen[j] = true
				sum += score[i][j]
			}
			return math.Abs(sum-total) < 1e-9 && math.Abs(total-bruteForce(score)) < 1e-9
		},
		gen.IntRange(1, 4),
		gen.IntRange(0, 2),
		gen.SliceOfN(24, gen.Float64Range(-5, 5)),
	))

	properties.TestingRun(t)
}
