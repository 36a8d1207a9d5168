package lgs

import (
	"math"

	"github.com/viterin/vek"
)

//////
// Helper functions.
//////

// cloneVector returns an independent copy of x.
func cloneVector(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)

	return out
}

// cloneVectors returns an independent deep copy of a slice of vectors.
func cloneVectors(xs [][]float64) [][]float64 {
	out := make([][]float64, len(xs))
	for i, x := range xs {
		out[i] = cloneVector(x)
	}

	return out
}

// axpy adds a*x to dst in place. Both slices must have the same length.
func axpy(dst []float64, a float64, x []float64) {
	if a == 0 {
		return
	}

	scaled := vek.MulNumber(x, a)

	vek.Add_Inplace(dst, scaled)
}

// normalize returns x scaled to unit Euclidean norm, together with the
// original norm. A zero vector is returned unchanged with norm 0.
func normalize(x []float64) ([]float64, float64) {
	norm := math.Sqrt(vek.Dot(x, x))

	out := cloneVector(x)
	if norm > 0 {
		vek.DivNumber_Inplace(out, norm)
	}

	return out, norm
}

// linspace returns count evenly spaced values from lo to hi inclusive.
// A count of one yields just lo.
func linspace(lo, hi float64, count int) []float64 {
	out := make([]float64, count)

	if count == 1 {
		out[0] = lo

		return out
	}

	step := (hi - lo) / float64(count-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}

	return out
}

// euclidean returns the Euclidean distance between two points of equal length.
func euclidean(a, b []float64) float64 {
	return vek.Distance(a, b)
}

// lexLess reports whether a precedes b in lexicographic component order.
// Used as the deterministic tie-break between eigenvectors whose eigenvalues
// are equal within tolerance.
func lexLess(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}

	return false
}

// standardBasis returns the n standard basis vectors of R^n.
func standardBasis(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		out[i][i] = 1
	}

	return out
}
