package lgs

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

// flatTolerance is the largest absolute sensitivity-matrix entry that still
// counts as a flat batch.
const flatTolerance = 1e-12

// tieTolerance is the eigenvalue gap below which two eigenpairs are
// considered tied and ordered by the deterministic lexicographic tie-break.
const tieTolerance = 1e-9

// PrincipalDecomposition holds the eigenstructure of one iteration's
// loss-sensitivity matrix.
//
// Invariants:
// - Eigenvalues are sorted in descending order and are never negative
// - Eigenvectors are unit norm, mutually orthogonal, and index-aligned with
//   Eigenvalues
// - Identical inputs always produce identical output: eigenvector signs are
//   fixed and ties are broken lexicographically
type PrincipalDecomposition struct {
	// Eigenvalues of the sensitivity matrix, descending.
	Eigenvalues []float64

	// Eigenvectors are the principal directions of loss variance, one per
	// eigenvalue.
	Eigenvectors [][]float64

	// VarianceRatio is each eigenvalue's fraction of the total eigenvalue
	// mass. All zeros for a flat batch.
	VarianceRatio []float64

	// Flat reports that the sensitivity matrix was the zero matrix. The
	// eigenvectors are then the standard basis, a defined fallback rather
	// than an error, and the adapter squishes every direction equally.
	Flat bool
}

//////
// Exported functionalities.
//////

// Decompose assembles a batch's sensitivity vectors into the loss-sensitivity
// matrix M = (1/B) * sum(s_i * s_i^T) and eigendecomposes it.
//
// M is an outer-product average, so it is symmetric positive semi-definite by
// construction; tiny negative eigenvalues produced by floating-point noise
// are clamped to zero.
//
// Parameters:
// - sensitivities: One vector per sample, all of equal nonzero length
//
// Returns:
// - PrincipalDecomposition: Eigenpairs in descending order
// - error: Plain error for an empty batch or ragged input
//
// Edge case: if M is the zero matrix (a flat region of the landscape), the
// result has all-zero eigenvalues, the standard basis as eigenvectors, and
// Flat set. Callers that want to warn on flat batches should check Flat.
func Decompose(sensitivities [][]float64) (PrincipalDecomposition, error) {
	batch := len(sensitivities)
	if batch == 0 {
		return PrincipalDecomposition{}, fmt.Errorf("lgs: decompose requires at least one sensitivity vector")
	}

	dim := len(sensitivities[0])
	if dim == 0 {
		return PrincipalDecomposition{}, fmt.Errorf("lgs: sensitivity vectors must not be empty")
	}

	for i, s := range sensitivities {
		if len(s) != dim {
			return PrincipalDecomposition{}, fmt.Errorf(
				"lgs: sensitivity vector %d has length %d, want %d", i, len(s), dim)
		}
	}

	m := mat.NewSymDense(dim, nil)

	var maxAbs float64

	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			var sum float64
			for _, s := range sensitivities {
				sum += s[i] * s[j]
			}

			v := sum / float64(batch)
			m.SetSym(i, j, v)

			if v < 0 {
				v = -v
			}
			if v > maxAbs {
				maxAbs = v
			}
		}
	}

	// Flat batch: defined fallback instead of a division by zero downstream.
	if maxAbs <= flatTolerance {
		return PrincipalDecomposition{
			Eigenvalues:   make([]float64, dim),
			Eigenvectors:  standardBasis(dim),
			VarianceRatio: make([]float64, dim),
			Flat:          true,
		}, nil
	}

	values, vectors, err := eigenDescending(m)
	if err != nil {
		return PrincipalDecomposition{}, err
	}

	var total float64

	for i, v := range values {
		if v < 0 {
			// PSD by construction; anything below is floating-point noise.
			values[i] = 0
			v = 0
		}

		total += v
	}

	ratio := make([]float64, dim)
	if total > 0 {
		for i, v := range values {
			ratio[i] = v / total
		}
	}

	return PrincipalDecomposition{
		Eigenvalues:   values,
		Eigenvectors:  vectors,
		VarianceRatio: ratio,
	}, nil
}

//////
// Methods.
//////

// TopSpread returns the fraction of total eigenvalue mass captured by the two
// largest eigenvalues, or zero for a flat decomposition. The sampling loop
// watches this value to decide convergence.
func (p PrincipalDecomposition) TopSpread() float64 {
	var total float64
	for _, v := range p.Eigenvalues {
		total += v
	}

	if total <= 0 {
		return 0
	}

	top := p.Eigenvalues[0]
	if len(p.Eigenvalues) > 1 {
		top += p.Eigenvalues[1]
	}

	return top / total
}

//////
// Helper functions.
//////

// eigenDescending eigendecomposes a symmetric matrix and returns eigenvalues
// in descending order with index-aligned, sign-fixed eigenvectors. Eigenpairs
// whose eigenvalues are equal within tieTolerance are ordered
// lexicographically by eigenvector so identical inputs give identical output.
//
// Shared by the sensitivity decomposition and the Hessian scan; the input is
// not required to be PSD here.
func eigenDescending(m *mat.SymDense) ([]float64, [][]float64, error) {
	var eig mat.EigenSym
	if !eig.Factorize(m, true) {
		return nil, nil, fmt.Errorf("lgs: eigendecomposition failed")
	}

	vals := eig.Values(nil)

	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	dim := len(vals)

	rawValues := make([]float64, dim)
	rawVectors := make([][]float64, dim)

	// EigenSym yields ascending order; reverse to descending.
	for i := 0; i < dim; i++ {
		src := dim - 1 - i
		rawValues[i] = vals[src]
		rawVectors[i] = signFixed(mat.Col(nil, src, &vecs))
	}

	order := make([]int, dim)
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		i, j := order[a], order[b]

		di := rawValues[i] - rawValues[j]
		if di > tieTolerance {
			return true
		}
		if di < -tieTolerance {
			return false
		}

		return lexLess(rawVectors[i], rawVectors[j])
	})

	values := make([]float64, dim)
	vectors := make([][]float64, dim)

	for i, idx := range order {
		values[i] = rawValues[idx]
		vectors[i] = rawVectors[idx]
	}

	return values, vectors, nil
}

// signFixed flips an eigenvector so its first component of meaningful
// magnitude is positive. Eigenvectors are only defined up to sign; fixing it
// keeps decompositions reproducible.
func signFixed(v []float64) []float64 {
	for _, x := range v {
		if x > 1e-12 {
			return v
		}

		if x < -1e-12 {
			for i := range v {
				v[i] = -v[i]
			}

			return v
		}
	}

	return v
}
