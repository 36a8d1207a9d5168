package lgs

import "fmt"

//////
// Exported functionalities.
//////

// AdaptDistribution reshapes the distribution according to a decomposition:
// the significant leading directions keep their variance, every other
// eigenvector is squished by cfg.SquishFactor.
//
// Significance is decided by cfg.RetainCount when positive, otherwise by the
// smallest prefix of eigenvalues whose cumulative fraction of the total
// reaches cfg.VarianceThreshold. A flat decomposition has no significant
// directions at all, so every axis is squished equally.
//
// Because the eigenvectors of a single decomposition are mutually orthogonal,
// the sequential Reshape calls commute and compose exactly: no direction is
// ever scaled twice.
//
// Parameters:
// - dist: The distribution to mutate in place
// - dec: The decomposition guiding the reshape
// - cfg: Supplies RetainCount or VarianceThreshold, and SquishFactor
//
// Returns:
// - []int: Indices of the squished eigenvectors, in application order
// - error: DegenerateDistributionError from a rejected reshape, or a plain
//   error for invalid configuration. The distribution keeps the last state
//   every successful reshape produced.
func AdaptDistribution(dist *Distribution, dec PrincipalDecomposition, cfg Config) ([]int, error) {
	if dist == nil {
		return nil, fmt.Errorf("lgs: adapt requires a distribution")
	}

	if cfg.SquishFactor <= 0 || cfg.SquishFactor >= 1 {
		return nil, fmt.Errorf("lgs: squish factor must be in (0, 1), got %g", cfg.SquishFactor)
	}

	if len(dec.Eigenvectors) != dist.Dim() {
		return nil, fmt.Errorf("lgs: decomposition has %d directions but distribution has %d",
			len(dec.Eigenvectors), dist.Dim())
	}

	significant, err := significantCount(dec, cfg)
	if err != nil {
		return nil, err
	}

	squished := make([]int, 0, len(dec.Eigenvectors)-significant)

	for i := significant; i < len(dec.Eigenvectors); i++ {
		if err := dist.Reshape(dec.Eigenvectors[i], cfg.SquishFactor); err != nil {
			return squished, err
		}

		squished = append(squished, i)
	}

	return squished, nil
}

//////
// Helper functions.
//////

// significantCount returns how many leading eigenvectors are protected from
// squishing under the configured policy.
func significantCount(dec PrincipalDecomposition, cfg Config) (int, error) {
	// Flat landscape: nothing is significant, squish everything equally.
	if dec.Flat {
		return 0, nil
	}

	total := len(dec.Eigenvectors)

	if cfg.RetainCount > 0 {
		if cfg.RetainCount >= total {
			return total, nil
		}

		return cfg.RetainCount, nil
	}

	if cfg.VarianceThreshold <= 0 || cfg.VarianceThreshold > 1 {
		return 0, fmt.Errorf(
			"lgs: either RetainCount or a VarianceThreshold in (0, 1] is required, got %d and %g",
			cfg.RetainCount, cfg.VarianceThreshold)
	}

	var cumulative float64

	for i, r := range dec.VarianceRatio {
		cumulative += r

		if cumulative >= cfg.VarianceThreshold {
			return i + 1, nil
		}
	}

	return total, nil
}
