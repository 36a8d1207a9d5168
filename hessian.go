package lgs

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

//////
// Exported functionalities.
//////

// NumericHessian estimates the Hessian of the loss at an anchor point with
// central second differences, using 4 evaluations per matrix entry. The
// result is symmetric by construction but, unlike a sensitivity matrix, not
// necessarily positive semi-definite: saddle points produce negative
// eigenvalues, and that is information, not an error.
//
// Parameters:
// - loss: The external loss landscape
// - anchor: Point to differentiate at
// - epsilon: Perturbation size; zero falls back to the same default as the
//   finite-difference sensitivity strategy
//
// Returns:
// - *mat.SymDense: The estimated Hessian
// - error: EvaluationError for a failed evaluation, plain error otherwise
func NumericHessian(loss LossFunc, anchor []float64, epsilon float64) (*mat.SymDense, error) {
	if loss == nil {
		return nil, fmt.Errorf("lgs: hessian estimation requires the loss callable")
	}

	dim := len(anchor)
	if dim == 0 {
		return nil, fmt.Errorf("lgs: hessian anchor must not be empty")
	}

	eps := epsilon
	if eps <= 0 {
		eps = defaultEpsilon
	}

	probe := cloneVector(anchor)

	// evaluate perturbs coordinates i and j by the given signed steps.
	evaluate := func(i, j int, si, sj float64) (float64, error) {
		origI, origJ := probe[i], probe[j]

		probe[i] += si * eps
		probe[j] += sj * eps

		l, err := loss(probe)

		probe[i], probe[j] = origI, origJ

		if err != nil {
			return 0, &EvaluationError{Index: i*dim + j, Point: cloneVector(probe), Err: err}
		}

		return l, nil
	}

	h := mat.NewSymDense(dim, nil)

	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			pp, err := evaluate(i, j, 1, 1)
			if err != nil {
				return nil, err
			}

			pm, err := evaluate(i, j, 1, -1)
			if err != nil {
				return nil, err
			}

			mp, err := evaluate(i, j, -1, 1)
			if err != nil {
				return nil, err
			}

			mm, err := evaluate(i, j, -1, -1)
			if err != nil {
				return nil, err
			}

			h.SetSym(i, j, (pp-pm-mp+mm)/(4*eps*eps))
		}
	}

	return h, nil
}

// HessianScan estimates the Hessian at the anchor, eigendecomposes it, and
// runs a 1D loss profile along every eigenvector direction through the
// anchor. The scans come back in descending eigenvalue order, so the first
// profiles follow the landscape's steepest curvature.
//
// Returns:
// - []LineScan: One profile per eigenvector, aligned with the eigenvalues
// - []float64: Hessian eigenvalues, descending, sign preserved
// - error: EvaluationError for a failed evaluation, plain error otherwise
func HessianScan(loss LossFunc, anchor []float64, spec ScanSpec, epsilon float64) ([]LineScan, []float64, error) {
	h, err := NumericHessian(loss, anchor, epsilon)
	if err != nil {
		return nil, nil, err
	}

	values, vectors, err := eigenDescending(h)
	if err != nil {
		return nil, nil, err
	}

	ur, _, err := spec.axisRanges()
	if err != nil {
		return nil, nil, err
	}

	scans := make([]LineScan, len(vectors))

	for i, direction := range vectors {
		scan, err := lineScan(loss, anchor, direction, ur, spec.Resolution)
		if err != nil {
			return nil, nil, err
		}

		scans[i] = scan
	}

	return scans, values, nil
}
