package lgs

import (
	"fmt"

	"github.com/viterin/vek"
)

//////
// Const, vars, types.
//////

// SubspaceBasis is an orthonormal 2D basis embedded in the full input space,
// anchored at a point. It defines the affine map
//
//	(u, v) -> Anchor + u*E1 + v*E2
//
// used by the scanner to lay a dense grid over the principal loss subspace.
// A basis is immutable once created.
type SubspaceBasis struct {
	// Anchor is the full-dimensional point the scan is centered on, usually
	// the adapted distribution's mean.
	Anchor []float64

	// E1 is the first principal direction, unit norm.
	E1 []float64

	// E2 is the second principal direction, unit norm and orthogonal to E1.
	E2 []float64
}

//////
// Exported functionalities.
//////

// SelectSubspace picks the two leading eigenvectors of a decomposition as the
// principal loss subspace, anchored at the given point.
//
// The decomposition's deterministic ordering already resolved any tie at the
// second eigenvalue, so selection is stable for identical inputs.
//
// Returns:
// - SubspaceBasis: The 2D basis
// - error: InsufficientDimensionError when the space has fewer than two
//   dimensions, or a plain error for a mismatched anchor
func SelectSubspace(dec PrincipalDecomposition, anchor []float64) (SubspaceBasis, error) {
	if len(dec.Eigenvectors) < 2 {
		return SubspaceBasis{}, &InsufficientDimensionError{Dim: len(dec.Eigenvectors)}
	}

	dim := len(dec.Eigenvectors[0])
	if dim < 2 {
		return SubspaceBasis{}, &InsufficientDimensionError{Dim: dim}
	}

	if len(anchor) != dim {
		return SubspaceBasis{}, fmt.Errorf("lgs: anchor has length %d, want %d", len(anchor), dim)
	}

	return SubspaceBasis{
		Anchor: cloneVector(anchor),
		E1:     cloneVector(dec.Eigenvectors[0]),
		E2:     cloneVector(dec.Eigenvectors[1]),
	}, nil
}

//////
// Methods.
//////

// Dim returns the dimensionality of the embedding space.
func (b SubspaceBasis) Dim() int { return len(b.Anchor) }

// Point maps subspace coordinates to the full input space:
// Anchor + u*E1 + v*E2.
func (b SubspaceBasis) Point(u, v float64) []float64 {
	p := cloneVector(b.Anchor)

	axpy(p, u, b.E1)
	axpy(p, v, b.E2)

	return p
}

// Project recovers the subspace coordinates of a full-dimensional point by
// projecting its offset from the anchor onto the basis directions. For points
// produced by Point, this round-trips to the original coordinates within
// floating-point tolerance.
func (b SubspaceBasis) Project(p []float64) (u, v float64) {
	diff := vek.Sub(p, b.Anchor)

	return vek.Dot(diff, b.E1), vek.Dot(diff, b.E2)
}
