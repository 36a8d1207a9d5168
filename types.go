package lgs

import (
	"math/rand"

	"golang.org/x/exp/constraints"
)

//////
// External collaborators.
//////

// LossFunc defines the signature of the externally supplied loss landscape.
// It must be a pure function from a point in R^n to a scalar loss value.
//
// Parameters:
// - x: Point in the full-dimensional input space
//
// Returns:
// - float64: Loss value at x
// - error: Return nil on success, or an error if the evaluation failed
//
// Important notes:
// - Must be safe for concurrent calls when Config.Workers > 1
// - Should be deterministic so that repeated decompositions are reproducible
// - The library never retries a failed evaluation; wrap the callable yourself
//   if you need retry behavior
//
// Usage example:
//
//	loss := func(x []float64) (float64, error) {
//	    return x[0]*x[0] + x[1]*x[1], nil
//	}
type LossFunc func(x []float64) (float64, error)

// GradientFunc optionally exposes the analytic gradient of the loss landscape.
// It is only consulted by the AnalyticGradient sensitivity strategy and must
// return a vector of the same length as its input.
type GradientFunc func(x []float64) ([]float64, error)

//////
// Const, vars, types.
//////

// SampleBatch holds one iteration's samples and their evaluated losses.
// Points and Losses are index-aligned and immutable once produced; the batch
// is discarded after the iteration that created it.
type SampleBatch struct {
	// Points are the sampled input-space points, one per row.
	Points [][]float64

	// Losses holds the evaluated loss per point, same order as Points.
	Losses []float64
}

// Phase identifies the step of a loop iteration a ProgressUpdate refers to.
type Phase string

// Loop phases, in the order they occur within one iteration.
const (
	PhaseSampling    Phase = "Sampling"
	PhaseEvaluating  Phase = "Evaluating"
	PhaseEstimating  Phase = "Estimating"
	PhaseDecomposing Phase = "Decomposing"
	PhaseAdapting    Phase = "Adapting"
	PhaseDone        Phase = "Done"
)

// ProgressUpdate represents the current state of the sampling loop.
// Updates are sent on Config.ProgressChan with a non-blocking send; if the
// channel is full the update is skipped, never the iteration.
type ProgressUpdate struct {
	// Phase indicates which step of the iteration just started.
	Phase Phase

	// Iteration is the current iteration number (1-based).
	Iteration int

	// TotalIterations is the configured iteration budget.
	TotalIterations int

	// TopEigenvalues holds the two largest loss-sensitivity eigenvalues of the
	// most recent decomposition, when one exists.
	TopEigenvalues []float64

	// EigenvalueSpread is the fraction of total eigenvalue mass captured by
	// the top two directions. The loop's convergence criterion watches this
	// value across iterations.
	EigenvalueSpread float64

	// FlatBatch reports that the most recent batch produced an all-zero
	// sensitivity matrix (a flat region of the landscape).
	FlatBatch bool
}

// EvalErrorPolicy controls how a failed loss evaluation inside a batch is
// handled.
type EvalErrorPolicy int

const (
	// AbortBatch fails the whole batch on the first evaluation error.
	// This is the default.
	AbortBatch EvalErrorPolicy = iota

	// DropAndContinue removes the failed sample from the batch and keeps
	// going. The batch shrinks; index alignment between points and losses is
	// preserved.
	DropAndContinue
)

// ParameterRange defines the valid range for one dimension of the random
// search space used to seed the loop.
//
// Type Parameter:
//   - T: The numeric type for this range (typically float64)
//
// Validation:
// - Min must be less than or equal to Max
// - The range is inclusive of both Min and Max values
type ParameterRange[T constraints.Integer | constraints.Float] struct {
	// Min defines the minimum allowed value (inclusive) for this dimension.
	Min T

	// Max defines the maximum allowed value (inclusive) for this dimension.
	Max T
}

// SensitivityParams holds parameters consumed by the sensitivity strategies.
// Each strategy reads only the fields it needs.
type SensitivityParams struct {
	// Epsilon is the perturbation size used by FiniteDifference and by
	// NumericHessian. Defaults to 1e-4 when zero.
	Epsilon float64

	// Gradient supplies the analytic gradient of the loss. Required by the
	// AnalyticGradient strategy, ignored by the others.
	Gradient GradientFunc

	// Workers bounds the number of goroutines used for per-sample
	// re-evaluations. Zero means the loop's Config.Workers value.
	Workers int

	// OnEvalError controls what happens when a perturbed re-evaluation fails.
	OnEvalError EvalErrorPolicy
}

// SensitivityFunc defines the signature for sensitivity-estimation strategies.
// Given a batch of evaluated samples, a strategy produces one sensitivity
// vector per surviving sample, describing how the loss changes with small
// perturbations of each input coordinate.
//
// Built-in strategies:
// - FiniteDifference: central differences, 2n extra evaluations per sample
// - AnalyticGradient: delegates to SensitivityParams.Gradient, no extra evaluations
// - SurrogateGradient: one shared least-squares fit across the batch, cheapest
//
// Implementation notes for custom strategies:
// - Return one vector per sample; dropping samples is allowed under
//   DropAndContinue but the result must never be empty
// - A flat batch (all losses identical) should yield zero vectors, not an error
// - Must be deterministic for identical inputs.
type SensitivityFunc func(batch SampleBatch, loss LossFunc, params SensitivityParams) ([][]float64, error)

// Config holds all configuration parameters for the informed sampling loop.
//
// Fields explanation:
// - BatchSize: Samples drawn and evaluated per iteration
// - Sensitivity: Strategy used to estimate per-sample loss sensitivity
// - SensitivityParams: Parameters for the chosen strategy
// - RetainCount: Number of top principal directions left untouched
// - VarianceThreshold: Alternative to RetainCount, cumulative eigenvalue fraction
// - SquishFactor: Per-call standard-deviation scale for non-significant directions
// - MaxIterations: Iteration budget
// - Patience: Consecutive stable iterations required to declare convergence
// - SpreadTolerance: Stability tolerance on the top-2 eigenvalue spread
// - Workers: Goroutines used for batch evaluation
// - OnEvalError: Policy for failed loss evaluations within a batch
// - Rand: Random source for sampling
// - ProgressChan: Optional progress updates
//
// Note:
// - Create separate configs for parallel loops; Rand is not shared safely.
type Config struct {
	// BatchSize determines how many points are drawn from the distribution
	// and evaluated in every iteration.
	// Recommended range: 50-500
	BatchSize int

	// Sensitivity selects the strategy used to turn a batch into per-sample
	// sensitivity vectors. See SensitivityFunc for built-in options.
	Sensitivity SensitivityFunc

	// SensitivityParams holds the parameters for the chosen strategy.
	SensitivityParams SensitivityParams

	// RetainCount determines how many of the leading principal directions are
	// protected from squishing. When zero, VarianceThreshold is used instead.
	RetainCount int

	// VarianceThreshold selects the significant directions as the smallest
	// prefix whose cumulative eigenvalue fraction reaches this value.
	// Only consulted when RetainCount is zero. Must be in (0, 1].
	VarianceThreshold float64

	// SquishFactor is the standard-deviation scale applied along each
	// non-significant direction. Variance scales with its square: a factor of
	// 0.1 shrinks variance along that direction to 0.01 of its prior value.
	// Must be in (0, 1).
	SquishFactor float64

	// MaxIterations is the hard iteration budget for the loop.
	MaxIterations int

	// Patience is the number of consecutive iterations the eigenvalue spread
	// must stay within SpreadTolerance before the loop declares convergence.
	// Zero disables the convergence criterion and runs the full budget.
	Patience int

	// SpreadTolerance bounds the allowed change of the top-2 eigenvalue
	// spread between consecutive iterations when checking convergence.
	SpreadTolerance float64

	// Workers bounds the number of goroutines evaluating the loss across a
	// batch. One means fully sequential evaluation.
	Workers int

	// OnEvalError controls whether a failed evaluation aborts the batch or
	// drops the sample. See EvalErrorPolicy.
	OnEvalError EvalErrorPolicy

	// Rand is the random source used for sampling. A nil value makes the loop
	// create one seeded from the current time.
	Rand *rand.Rand

	// ProgressChan is used to send progress updates during the loop.
	// If nil, no updates will be sent.
	ProgressChan chan<- ProgressUpdate
}
