package lgs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecomposeRecoversKnownEigenstructure(t *testing.T) {
	// Three axis-aligned sensitivity vectors produce the diagonal matrix
	// diag(4, 1, 0.01) / 3. Scaling by sqrt(3) makes the eigenvalues exactly
	// 4, 1 and 0.01.
	s := math.Sqrt(3)

	sensitivities := [][]float64{
		{2 * s, 0, 0},
		{0, 1 * s, 0},
		{0, 0, 0.1 * s},
	}

	dec, err := Decompose(sensitivities)
	require.NoError(t, err)
	require.False(t, dec.Flat)

	require.Len(t, dec.Eigenvalues, 3)
	assert.InDelta(t, 4.0, dec.Eigenvalues[0], 1e-9)
	assert.InDelta(t, 1.0, dec.Eigenvalues[1], 1e-9)
	assert.InDelta(t, 0.01, dec.Eigenvalues[2], 1e-9)

	// Eigenvectors align with the axes up to sign; the sign fix makes the
	// dominant component positive.
	for i, axis := range []int{0, 1, 2} {
		for c, v := range dec.Eigenvectors[i] {
			if c == axis {
				assert.InDelta(t, 1.0, v, 1e-9)
			} else {
				assert.InDelta(t, 0.0, v, 1e-9)
			}
		}
	}

	// Variance ratios sum to one and follow the eigenvalues.
	var total float64
	for _, r := range dec.VarianceRatio {
		total += r
	}

	assert.InDelta(t, 1.0, total, 1e-12)
	assert.InDelta(t, 4.0/5.01, dec.VarianceRatio[0], 1e-9)
}

func TestDecomposeOrdersEigenvaluesDescending(t *testing.T) {
	sensitivities := [][]float64{
		{0.1, 0, 0, 0},
		{0, 3, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 2},
	}

	dec, err := Decompose(sensitivities)
	require.NoError(t, err)

	for i := 1; i < len(dec.Eigenvalues); i++ {
		assert.GreaterOrEqual(t, dec.Eigenvalues[i-1], dec.Eigenvalues[i])
	}
}

func TestDecomposeFlatBatch(t *testing.T) {
	sensitivities := [][]float64{
		{0, 0, 0},
		{0, 0, 0},
	}

	dec, err := Decompose(sensitivities)
	require.NoError(t, err)

	// Defined fallback: zero eigenvalues, standard basis, flagged as flat.
	assert.True(t, dec.Flat)
	assert.Equal(t, []float64{0, 0, 0}, dec.Eigenvalues)
	assert.Equal(t, standardBasis(3), dec.Eigenvectors)
	assert.Equal(t, []float64{0, 0, 0}, dec.VarianceRatio)
	assert.Equal(t, 0.0, dec.TopSpread())
}

func TestDecomposeIsDeterministic(t *testing.T) {
	sensitivities := [][]float64{
		{1, 2, 3},
		{-2, 0.5, 1},
		{0.3, -1, 2},
		{1, 1, -0.5},
	}

	first, err := Decompose(sensitivities)
	require.NoError(t, err)

	second, err := Decompose(sensitivities)
	require.NoError(t, err)

	assert.Equal(t, first.Eigenvalues, second.Eigenvalues)
	assert.Equal(t, first.Eigenvectors, second.Eigenvectors)
}

func TestDecomposeTieBreakIsDeterministic(t *testing.T) {
	// Two exactly equal eigenvalues: the pair order must still be stable and
	// lexicographic on the eigenvectors.
	sensitivities := [][]float64{
		{math.Sqrt(2), 0, 0},
		{0, math.Sqrt(2), 0},
	}

	dec, err := Decompose(sensitivities)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, dec.Eigenvalues[0], 1e-9)
	assert.InDelta(t, 1.0, dec.Eigenvalues[1], 1e-9)

	// Tied pairs are ordered lexicographically by eigenvector.
	assert.False(t, lexLess(dec.Eigenvectors[1], dec.Eigenvectors[0]))

	again, err := Decompose(sensitivities)
	require.NoError(t, err)
	assert.Equal(t, dec.Eigenvectors, again.Eigenvectors)
}

func TestDecomposeEigenvectorsAreOrthonormal(t *testing.T) {
	sensitivities := [][]float64{
		{1, 0.2, -0.3, 0.7},
		{0.5, -1, 0.1, 0},
		{-0.2, 0.4, 2, 0.3},
		{0.9, 0.1, -0.6, 1.5},
		{0.05, 1.2, 0.8, -0.4},
	}

	dec, err := Decompose(sensitivities)
	require.NoError(t, err)

	for i := range dec.Eigenvectors {
		for j := i; j < len(dec.Eigenvectors); j++ {
			var dot float64
			for c := range dec.Eigenvectors[i] {
				dot += dec.Eigenvectors[i][c] * dec.Eigenvectors[j][c]
			}

			if i == j {
				assert.InDelta(t, 1.0, dot, 1e-9)
			} else {
				assert.InDelta(t, 0.0, dot, 1e-9)
			}
		}
	}

	// Outer-product averages are PSD: no negative eigenvalues survive.
	for _, v := range dec.Eigenvalues {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestDecomposeInputValidation(t *testing.T) {
	_, err := Decompose(nil)
	assert.Error(t, err)

	_, err = Decompose([][]float64{{}})
	assert.Error(t, err)

	_, err = Decompose([][]float64{{1, 2}, {1}})
	assert.Error(t, err)
}

func TestTopSpread(t *testing.T) {
	dec := PrincipalDecomposition{Eigenvalues: []float64{3, 1, 1, 0}}
	assert.InDelta(t, 0.8, dec.TopSpread(), 1e-12)

	single := PrincipalDecomposition{Eigenvalues: []float64{2}}
	assert.InDelta(t, 1.0, single.TopSpread(), 1e-12)
}
