package broker

import "math"

// hungarianAssign solves the rectangular minimum-cost bipartite assignment
// problem on cost (rows <= cols required) and returns, for each row, the
// index of the column it is matched to. Implements the Kuhn-Munkres method
// via row reduction, a greedy initial matching, then repeated
// prime-an-uncovered-zero / flip-covers / subtract-the-minimum-uncovered
// cycles,
func hungarianAssign(cost [][]float64) []int {
	rows := len(cost)
	if rows == 0 {
		return nil
	}
	cols := len(cost[0])

	// Work on a square padded copy so the classical algorithm applies;
	// padding columns carry zero cost and are never reported back.
	n := cols
	if rows > n {
		n = rows
	}
	m := make([][]float64, n)
	for i := 0; i < n; i++ {
		m[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i < rows && j < cols {
				m[i][j] = cost[i][j]
			}
		}
	}

	// Row reduction: subtract each row's minimum.
	for i := 0; i < n; i++ {
		min := m[i][0]
		for j := 1; j < n; j++ {
			if m[i][j] < min {
				min = m[i][j]
			}
		}
		if min != 0 {
			for j := 0; j < n; j++ {
				m[i][j] -= min
			}
		}
	}
	// Column reduction.
	for j := 0; j < n; j++ {
		min := m[0][j]
		for i := 1; i < n; i++ {
			if m[i][j] < min {
				min = m[i][j]
			}
		}
		if min != 0 {
			for i := 0; i < n; i++ {
				m[i][j] -= min
			}
		}
	}

	starRow := make([]int, n) // starRow[i] = starred column in row i, -1 if none
	starCol := make([]int, n) // starCol[j] = starred row in column j, -1 if none
	for i := range starRow {
		starRow[i] = -1
		starCol[i] = -1
	}

	// Greedy initial matching: star a zero in any row/col not yet covered.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if m[i][j] == 0 && starRow[i] == -1 && starCol[j] == -1 {
				starRow[i] = j
				starCol[j] = i
			}
		}
	}

	coveredRow := make([]bool, n)
	coveredCol := make([]bool, n)
	primeRow := make([]int, n)

	countStars := func() int {
		c := 0
		for _, j := range starRow {
			if j != -1 {
				c++
			}
		}
		return c
	}

	for countStars() < n {
		for i := range coveredRow {
			coveredRow[i] = false
		}
		for j := range coveredCol {
			coveredCol[j] = false
			if starCol[j] != -1 {
				coveredCol[j] = true
			}
		}
		for i := range primeRow {
			primeRow[i] = -1
		}

		for {
			zr, zc, found := findUncoveredZero(m, coveredRow, coveredCol)
			if !found {
				min := minUncovered(m, coveredRow, coveredCol)
				for i := 0; i < n; i++ {
					for j := 0; j < n; j++ {
						switch {
						case coveredRow[i] && coveredCol[j]:
							m[i][j] += min
						case !coveredRow[i] && !coveredCol[j]:
							m[i][j] -= min
						}
					}
				}
				continue
			}
			primeRow[zr] = zc
			if starRow[zr] == -1 {
				augmentPath(starRow, starCol, primeRow, zr, zc)
				break
			}
			coveredRow[zr] = true
			coveredCol[starRow[zr]] = false
		}
	}

	result := make([]int, rows)
	for i := 0; i < rows; i++ {
		if starRow[i] < cols {
			result[i] = starRow[i]
		} else {
			result[i] = -1
		}
	}
	return result
}

func findUncoveredZero(m [][]float64, coveredRow, coveredCol []bool) (int, int, bool) {
	for i := range m {
		if coveredRow[i] {
			continue
		}
		for j := range m[i] {
			if !coveredCol[j] && m[i][j] == 0 {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func minUncovered(m [][]float64, coveredRow, coveredCol []bool) float64 {
	min := math.Inf(1)
	for i := range m {
		if coveredRow[i] {
			continue
		}
		for j := range m[i] {
			if !coveredCol[j] && m[i][j] < min {
				min = m[i][j]
			}
		}
	}
	return min
}

// augmentPath stars the alternating path ending at the prime found at
// (row, col), flipping stars to primes along the way.
func augmentPath(starRow, starCol, primeRow []int, row, col int) {
	for {
		prevStarRow := starCol[col]
		starRow[row] = col
		starCol[col] = row
		if prevStarRow == -1 {
			return
		}
		row = prevStarRow
		col = primeRow[row]
	}
}
