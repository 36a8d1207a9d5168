package lgs

import "fmt"

//////
// Error taxonomy.
//////

// DegenerateDistributionError reports that a covariance mutation violated the
// positive semi-definite invariant beyond numerical tolerance. It is fatal:
// the offending mutation is discarded and the distribution keeps its last
// valid state.
//
// The usual cause is a Reshape call that over-shrinks a direction whose
// variance is already near zero, or an externally constructed covariance that
// was never valid to begin with.
type DegenerateDistributionError struct {
	// MinEigenvalue is the most negative eigenvalue found in the rejected
	// covariance.
	MinEigenvalue float64
}

func (e *DegenerateDistributionError) Error() string {
	return fmt.Sprintf("lgs: covariance is not positive semi-definite (min eigenvalue %g)", e.MinEigenvalue)
}

// InsufficientDimensionError reports that a 2D subspace was requested from a
// decomposition with fewer than two principal directions.
type InsufficientDimensionError struct {
	// Dim is the number of directions actually available.
	Dim int
}

func (e *InsufficientDimensionError) Error() string {
	return fmt.Sprintf("lgs: need at least 2 dimensions to select a subspace, have %d", e.Dim)
}

// EvaluationError wraps a failure of the external loss callable for a single
// point. Under AbortBatch it surfaces immediately; under DropAndContinue the
// sample is removed from the batch instead.
type EvaluationError struct {
	// Index is the position of the failed sample within its batch.
	Index int

	// Point is the input at which the evaluation failed.
	Point []float64

	// Err is the error returned by the loss callable.
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("lgs: loss evaluation failed for sample %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying loss error so callers can match it with
// errors.Is and errors.As.
func (e *EvaluationError) Unwrap() error { return e.Err }
