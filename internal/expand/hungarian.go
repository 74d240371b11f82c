package expand

import "math"

// assign solves the rectangular assignment problem on score, which has one
// row per seed column and one column per candidate column. It returns, for
// each row, the chosen column maximizing the total score. ok is false when
// there are fewer columns than rows.
//
// This is the shortest augmenting path form of the Hungarian algorithm with
// row and column potentials, O(n²m) for n rows and m columns.
func assign(score [][]float64) (cols []int, total float64, ok bool) {
	n := len(score)
	if n == 0 {
		return nil, 0, true
	}
	m := len(score[0])
	if m < n {
		return nil, 0, false
	}

	// 1-indexed; index 0 is the virtual column used to start each phase.
	u := make([]float64, n+1)
	v := make([]float64, m+1)
	owner := make([]int, m+1)
	way := make([]int, m+1)
	minv := make([]float64, m+1)
	used := make([]bool, m+1)

	for i := 1; i <= n; i++ {
		owner[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = math.Inf(1)
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := owner[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := -score[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[owner[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if owner[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			owner[j0] = owner[j1]
			j0 = j1
		}
	}

	cols = make([]int, n)
	for j := 1; j <= m; j++ {
		if owner[j] != 0 {
			cols[owner[j]-1] = j - 1
		}
	}
	for i, j := range cols {
		total += score[i][j]
	}
	return cols, total, true
}
