package lgs

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

// psdTolerance is the largest magnitude a negative covariance eigenvalue may
// have before the matrix is rejected as degenerate. Smaller negatives are
// treated as floating-point noise and clamped to zero.
const psdTolerance = 1e-9

// Distribution is a Gaussian probability model over R^n, described by a mean
// vector and a symmetric positive semi-definite covariance matrix.
//
// The covariance invariant is enforced after every mutation: a Reshape call
// that would push an eigenvalue below -psdTolerance is rejected with
// DegenerateDistributionError and the previous covariance is kept.
//
// A Distribution is not safe for concurrent mutation. The sampling loop owns
// its distribution exclusively for the loop's duration; concurrent reads
// during parallel batch evaluation are fine because evaluation never touches
// the distribution.
type Distribution struct {
	// mean is the center of the Gaussian.
	mean []float64

	// cov is the covariance matrix, symmetric PSD at all times.
	cov *mat.SymDense

	// dim is the dimensionality n of the input space.
	dim int
}

//////
// Factory.
//////

// NewDistribution creates a Gaussian distribution with the given mean and
// covariance. The covariance is copied, validated for shape, and checked for
// positive semi-definiteness.
//
// Parameters:
// - mean: Center of the distribution, length n > 0
// - cov: n by n symmetric covariance matrix
//
// Returns:
// - *Distribution: The validated distribution
// - error: DegenerateDistributionError if cov has an eigenvalue below
//   -psdTolerance, or a plain error for shape problems
func NewDistribution(mean []float64, cov *mat.SymDense) (*Distribution, error) {
	dim := len(mean)
	if dim == 0 {
		return nil, fmt.Errorf("lgs: distribution mean must not be empty")
	}

	if cov == nil {
		return nil, fmt.Errorf("lgs: distribution covariance must not be nil")
	}

	if cov.SymmetricDim() != dim {
		return nil, fmt.Errorf("lgs: covariance is %dx%d but mean has length %d",
			cov.SymmetricDim(), cov.SymmetricDim(), dim)
	}

	copied := mat.NewSymDense(dim, nil)
	copied.CopySym(cov)

	d := &Distribution{
		mean: cloneVector(mean),
		cov:  copied,
		dim:  dim,
	}

	if minEig := minEigenvalue(copied); minEig < -psdTolerance {
		return nil, &DegenerateDistributionError{MinEigenvalue: minEig}
	}

	return d, nil
}

// NewIsotropicDistribution creates a Gaussian with the given mean and a
// diagonal covariance of constant variance. This is the usual starting point
// for the sampling loop when no seed selection is run.
func NewIsotropicDistribution(mean []float64, variance float64) (*Distribution, error) {
	if variance <= 0 {
		return nil, fmt.Errorf("lgs: isotropic variance must be positive, got %g", variance)
	}

	cov := mat.NewSymDense(len(mean), nil)
	for i := 0; i < len(mean); i++ {
		cov.SetSym(i, i, variance)
	}

	return NewDistribution(mean, cov)
}

// NewDiagonalDistribution creates a Gaussian with the given mean and a
// diagonal covariance built from per-axis variances. Used by the random
// search seed selector.
func NewDiagonalDistribution(mean, variances []float64) (*Distribution, error) {
	if len(mean) != len(variances) {
		return nil, fmt.Errorf("lgs: mean has length %d but variances has length %d",
			len(mean), len(variances))
	}

	cov := mat.NewSymDense(len(mean), nil)

	for i, v := range variances {
		if v <= 0 {
			return nil, fmt.Errorf("lgs: variance for axis %d must be positive, got %g", i, v)
		}

		cov.SetSym(i, i, v)
	}

	return NewDistribution(mean, cov)
}

//////
// Methods.
//////

// Dim returns the dimensionality of the distribution's input space.
func (d *Distribution) Dim() int { return d.dim }

// Mean returns a copy of the distribution's mean vector.
func (d *Distribution) Mean() []float64 { return cloneVector(d.mean) }

// Covariance returns a copy of the distribution's covariance matrix.
func (d *Distribution) Covariance() *mat.SymDense {
	out := mat.NewSymDense(d.dim, nil)
	out.CopySym(d.cov)

	return out
}

// Clone returns an independent copy of the distribution.
func (d *Distribution) Clone() *Distribution {
	return &Distribution{
		mean: cloneVector(d.mean),
		cov:  d.Covariance(),
		dim:  d.dim,
	}
}

// VarianceAlong returns the variance of the distribution along the given
// direction, which is normalized internally. A zero direction yields zero.
func (d *Distribution) VarianceAlong(direction []float64) float64 {
	if len(direction) != d.dim {
		return 0
	}

	u, norm := normalize(direction)
	if norm == 0 {
		return 0
	}

	w := matVec(d.cov, u)

	var out float64
	for i := range u {
		out += u[i] * w[i]
	}

	return out
}

// Sample draws count independent points from the distribution.
//
// Sampling goes through the covariance eigendecomposition rather than a
// Cholesky factorization so that rank-deficient covariances, which squishing
// can legitimately produce, still sample correctly on their support.
//
// Parameters:
// - rng: Random source, must not be nil
// - count: Number of points to draw, must be positive
//
// Returns:
// - [][]float64: count points, each of length Dim()
// - error: DegenerateDistributionError if the covariance lost the PSD
//   invariant since construction, or a plain error for bad arguments
func (d *Distribution) Sample(rng *rand.Rand, count int) ([][]float64, error) {
	if rng == nil {
		return nil, fmt.Errorf("lgs: sample requires a random source")
	}

	if count <= 0 {
		return nil, fmt.Errorf("lgs: sample count must be positive, got %d", count)
	}

	var eig mat.EigenSym
	if !eig.Factorize(d.cov, true) {
		return nil, fmt.Errorf("lgs: covariance eigendecomposition failed")
	}

	vals := eig.Values(nil)

	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Per-axis standard deviation in the eigenbasis.
	scales := make([]float64, d.dim)

	for i, v := range vals {
		if v < -psdTolerance {
			return nil, &DegenerateDistributionError{MinEigenvalue: v}
		}

		if v < 0 {
			v = 0
		}

		scales[i] = math.Sqrt(v)
	}

	columns := make([][]float64, d.dim)
	for i := range columns {
		columns[i] = mat.Col(nil, i, &vecs)
	}

	out := make([][]float64, count)

	for s := range out {
		p := cloneVector(d.mean)

		for i := 0; i < d.dim; i++ {
			if scales[i] == 0 {
				continue
			}

			axpy(p, rng.NormFloat64()*scales[i], columns[i])
		}

		out[s] = p
	}

	return out, nil
}

// Reshape rescales the distribution's standard deviation along an arbitrary
// direction by the given factor, leaving variance along all orthogonal
// directions untouched. Variance along the direction therefore scales with
// factor squared.
//
// The operation is the congruence map S*cov*S with S = I + (factor-1)*u*uT
// for the normalized direction u. For factor > 0 this preserves positive
// semi-definiteness exactly, and reshapes along mutually orthogonal
// directions commute and compose exactly, which the adapter relies on when
// it squishes several eigenvectors of a single decomposition in sequence.
//
// Parameters:
// - direction: Direction to rescale, normalized internally, must be nonzero
// - factor: Standard-deviation scale, must be positive
//
// Returns:
// - error: DegenerateDistributionError if the resulting covariance fails the
//   PSD check, in which case the previous covariance is kept, or a plain
//   error for bad arguments
func (d *Distribution) Reshape(direction []float64, factor float64) error {
	if len(direction) != d.dim {
		return fmt.Errorf("lgs: reshape direction has length %d, want %d", len(direction), d.dim)
	}

	if factor <= 0 {
		return fmt.Errorf("lgs: reshape factor must be positive, got %g", factor)
	}

	u, norm := normalize(direction)
	if norm == 0 {
		return fmt.Errorf("lgs: reshape direction must be nonzero")
	}

	// S*cov*S expanded: cov + a*(u*wT + w*uT) + a^2*q*u*uT,
	// with a = factor-1, w = cov*u, q = uT*cov*u.
	a := factor - 1

	w := matVec(d.cov, u)

	var q float64
	for i := range u {
		q += u[i] * w[i]
	}

	candidate := mat.NewSymDense(d.dim, nil)

	for i := 0; i < d.dim; i++ {
		for j := i; j < d.dim; j++ {
			v := d.cov.At(i, j) +
				a*(u[i]*w[j]+w[i]*u[j]) +
				a*a*q*u[i]*u[j]

			candidate.SetSym(i, j, v)
		}
	}

	if minEig := minEigenvalue(candidate); minEig < -psdTolerance {
		return &DegenerateDistributionError{MinEigenvalue: minEig}
	}

	d.cov = candidate

	return nil
}

//////
// Helper functions.
//////

// matVec computes cov*u for a symmetric matrix.
func matVec(cov *mat.SymDense, u []float64) []float64 {
	n := len(u)
	out := make([]float64, n)

	for i := 0; i < n; i++ {
		var sum float64

		for j := 0; j < n; j++ {
			sum += cov.At(i, j) * u[j]
		}

		out[i] = sum
	}

	return out
}

// minEigenvalue returns the smallest eigenvalue of a symmetric matrix, or
// negative infinity if the factorization fails.
func minEigenvalue(m *mat.SymDense) float64 {
	var eig mat.EigenSym
	if !eig.Factorize(m, false) {
		return math.Inf(-1)
	}

	vals := eig.Values(nil)

	// EigenSym returns eigenvalues in ascending order.
	return vals[0]
}
