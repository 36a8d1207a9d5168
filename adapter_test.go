package lgs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func axisDecomposition(eigenvalues []float64) PrincipalDecomposition {
	dim := len(eigenvalues)

	var total float64
	for _, v := range eigenvalues {
		total += v
	}

	ratio := make([]float64, dim)
	for i, v := range eigenvalues {
		ratio[i] = v / total
	}

	return PrincipalDecomposition{
		Eigenvalues:   eigenvalues,
		Eigenvectors:  standardBasis(dim),
		VarianceRatio: ratio,
	}
}

func TestAdaptDistributionSquishesInsignificantDirections(t *testing.T) {
	dist, err := NewIsotropicDistribution(make([]float64, 4), 1.0)
	require.NoError(t, err)

	dec := axisDecomposition([]float64{5, 3, 0.5, 0.1})

	cfg := DefaultConfig()
	cfg.RetainCount = 2
	cfg.SquishFactor = 0.1

	squished, err := AdaptDistribution(dist, dec, cfg)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, squished)

	// Variance scales by the square of the reshape factor.
	for i := 0; i < 4; i++ {
		v := dist.VarianceAlong(dec.Eigenvectors[i])

		if i < 2 {
			assert.InDelta(t, 1.0, v, 1e-9)
		} else {
			assert.InDelta(t, 0.01, v, 1e-9)
		}
	}
}

func TestAdaptDistributionVarianceThreshold(t *testing.T) {
	dist, err := NewIsotropicDistribution(make([]float64, 3), 2.0)
	require.NoError(t, err)

	// Ratios 0.6, 0.3, 0.1; a threshold of 0.85 protects the first two.
	dec := axisDecomposition([]float64{6, 3, 1})

	cfg := DefaultConfig()
	cfg.RetainCount = 0
	cfg.VarianceThreshold = 0.85
	cfg.SquishFactor = 0.5

	squished, err := AdaptDistribution(dist, dec, cfg)
	require.NoError(t, err)

	assert.Equal(t, []int{2}, squished)

	v := dist.VarianceAlong([]float64{0, 0, 1})
	assert.InDelta(t, 0.5, v, 1e-9)
}

func TestAdaptDistributionFlatSquishesEverything(t *testing.T) {
	dist, err := NewIsotropicDistribution(make([]float64, 3), 1.0)
	require.NoError(t, err)

	dec := PrincipalDecomposition{
		Eigenvalues:   make([]float64, 3),
		Eigenvectors:  standardBasis(3),
		VarianceRatio: make([]float64, 3),
		Flat:          true,
	}

	cfg := DefaultConfig()
	cfg.RetainCount = 2
	cfg.SquishFactor = 0.5

	// RetainCount does not apply to a flat landscape.
	squished, err := AdaptDistribution(dist, dec, cfg)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, squished)

	for i := 0; i < 3; i++ {
		basis := make([]float64, 3)
		basis[i] = 1

		v := dist.VarianceAlong(basis)
		assert.InDelta(t, 0.25, v, 1e-9)
	}
}

func TestAdaptDistributionRetainCountCapped(t *testing.T) {
	dist, err := NewIsotropicDistribution(make([]float64, 2), 1.0)
	require.NoError(t, err)

	dec := axisDecomposition([]float64{2, 1})

	cfg := DefaultConfig()
	cfg.RetainCount = 10
	cfg.SquishFactor = 0.5

	squished, err := AdaptDistribution(dist, dec, cfg)
	require.NoError(t, err)
	assert.Empty(t, squished)

	v := dist.VarianceAlong([]float64{1, 0})
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestAdaptDistributionRepeatedSquishCompoundsMultiplicatively(t *testing.T) {
	dist, err := NewIsotropicDistribution(make([]float64, 2), 1.0)
	require.NoError(t, err)

	dec := axisDecomposition([]float64{3, 1})

	cfg := DefaultConfig()
	cfg.RetainCount = 1
	cfg.SquishFactor = 0.5

	for i := 0; i < 3; i++ {
		_, err := AdaptDistribution(dist, dec, cfg)
		require.NoError(t, err)
	}

	v := dist.VarianceAlong([]float64{0, 1})

	// Three reshapes by 0.5 compound to 0.5^6 in variance.
	assert.InDelta(t, math.Pow(0.5, 6), v, 1e-9)
}

func TestAdaptDistributionValidation(t *testing.T) {
	dist, err := NewIsotropicDistribution(make([]float64, 2), 1.0)
	require.NoError(t, err)

	dec := axisDecomposition([]float64{2, 1})

	t.Run("nil distribution", func(t *testing.T) {
		cfg := DefaultConfig()

		_, err := AdaptDistribution(nil, dec, cfg)
		assert.Error(t, err)
	})

	t.Run("squish factor out of range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SquishFactor = 1.5

		_, err := AdaptDistribution(dist, dec, cfg)
		assert.Error(t, err)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		cfg := DefaultConfig()

		_, err := AdaptDistribution(dist, axisDecomposition([]float64{1, 1, 1}), cfg)
		assert.Error(t, err)
	})

	t.Run("no significance policy", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RetainCount = 0
		cfg.VarianceThreshold = 0

		_, err := AdaptDistribution(dist, dec, cfg)
		assert.Error(t, err)
	})
}
