// Package percentile converts feature columns to rank-based [0,1] scores.
package percentile

import (
	"math"
	"sort"
)

// Rank returns, for each value, its average-rank percentile (rank/n) among
// the non-missing values. Ties share the mean of the ranks they span. nil and
// NaN are missing: they map to 0 and take no slot in the pool.
func Rank(values []*float64) []float64 {
	out := make([]float64, len(values))
	idx := make([]int, 0, len(values))
	for i, v := range values {
		if v != nil && !math.IsNaN(*v) {
			idx = append(idx, i)
		}
	}
	n := len(idx)
	if n == 0 {
		return out
	}
	sort.SliceStable(idx, func(a, b int) bool { return *values[idx[a]] < *values[idx[b]] })

	for start := 0; start < n; {
		end := start + 1
		for end < n && *values[idx[end]] == *values[idx[start]] {
			end++
		}
		// positions start..end-1 hold ranks start+1..end
		avg := float64(start+1+end) / 2
		for _, i := range idx[start:end] {
			out[i] = avg / float64(n)
		}
		start = end
	}
	return out
}

// Inverse is 1-Rank for present values. Missing values still score 0, so an
// absent feature never earns a component.
func Inverse(values []*float64) []float64 {
	out := Rank(values)
	for i, v := range values {
		if v != nil && !math.IsNaN(*v) {
			out[i] = 1 - out[i]
		}
	}
	return out
}

// Floats lifts a dense column into the optional form Rank expects.
func Floats(vs []float64) []*float64 {
	out := make([]*float64, len(vs))
	for i := range vs {
		out[i] = &vs[i]
	}
	return out
}

// Ints converts an optional integer column.
func Ints(vs []*int) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		if v != nil {
			f := float64(*v)
			out[i] = &f
		}
	}
	return out
}
