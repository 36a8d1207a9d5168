package lgs

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

// defaultEpsilon is the perturbation size used by finite differences when the
// caller does not set one.
const defaultEpsilon = 1e-4

//////
// Available sensitivity strategies.
// Each strategy turns a batch of evaluated samples into one gradient-like
// vector per sample; the loop's decomposition step consumes them all.
//////

// FiniteDifference estimates per-sample sensitivity with central differences:
// every coordinate of every sample is perturbed by plus and minus epsilon and
// the loss re-evaluated, for 2n extra evaluations per sample.
//
// How it works:
// - For sample x and coordinate c: g[c] = (loss(x+eps*e_c) - loss(x-eps*e_c)) / (2*eps)
// - Samples are processed in parallel across params.Workers goroutines
// - A failed re-evaluation aborts the batch under AbortBatch, or drops the
//   sample under DropAndContinue
//
// When to use:
// - No analytic gradient is available and per-sample accuracy matters
// - The loss is cheap enough to afford 2n extra calls per sample
func FiniteDifference(batch SampleBatch, loss LossFunc, params SensitivityParams) ([][]float64, error) {
	if loss == nil {
		return nil, fmt.Errorf("lgs: finite differences require the loss callable")
	}

	eps := params.Epsilon
	if eps <= 0 {
		eps = defaultEpsilon
	}

	return forEachSample(batch, params, func(x []float64) ([]float64, error) {
		dim := len(x)
		g := make([]float64, dim)

		probe := cloneVector(x)

		for c := 0; c < dim; c++ {
			orig := probe[c]

			probe[c] = orig + eps
			up, err := loss(probe)
			if err != nil {
				return nil, err
			}

			probe[c] = orig - eps
			down, err := loss(probe)
			if err != nil {
				return nil, err
			}

			probe[c] = orig
			g[c] = (up - down) / (2 * eps)
		}

		return g, nil
	})
}

// AnalyticGradient delegates sensitivity estimation to an external gradient
// callable. No extra loss evaluations are performed.
//
// When to use:
// - The loss exposes an analytic or autodiff gradient
// - This is the cheapest accurate strategy when available
func AnalyticGradient(batch SampleBatch, loss LossFunc, params SensitivityParams) ([][]float64, error) {
	if params.Gradient == nil {
		return nil, fmt.Errorf("lgs: the AnalyticGradient strategy requires SensitivityParams.Gradient")
	}

	return forEachSample(batch, params, func(x []float64) ([]float64, error) {
		g, err := params.Gradient(x)
		if err != nil {
			return nil, err
		}

		if len(g) != len(x) {
			return nil, fmt.Errorf("lgs: gradient has length %d, want %d", len(g), len(x))
		}

		return cloneVector(g), nil
	})
}

// SurrogateGradient fits an ordinary least-squares linear model relating the
// batch's centered offsets to its centered losses. The fitted coefficient
// vector approximates the local gradient and is shared across the whole
// batch, so no re-evaluations are needed at all.
//
// How it works:
// - Center points and losses on their batch means
// - Solve the least-squares system offsets * beta = losses via QR
// - Every sample receives a copy of beta
//
// When to use:
// - The loss is expensive and 2n extra calls per sample are unaffordable
// - Accept that the estimate is biased toward the batch geometry and that a
//   single shared vector makes the sensitivity matrix rank one
//
// Edge cases: a flat batch yields zero vectors; a rank-deficient batch
// geometry also falls back to zero vectors rather than amplifying noise.
// The batch must hold at least as many samples as the space has dimensions.
func SurrogateGradient(batch SampleBatch, loss LossFunc, params SensitivityParams) ([][]float64, error) {
	count := len(batch.Points)
	if count == 0 || len(batch.Losses) != count {
		return nil, fmt.Errorf("lgs: surrogate fit requires an evaluated, index-aligned batch")
	}

	dim := len(batch.Points[0])
	if count < dim {
		return nil, fmt.Errorf("lgs: surrogate fit requires at least %d samples, have %d", dim, count)
	}

	meanPoint := make([]float64, dim)
	for _, p := range batch.Points {
		for i, v := range p {
			meanPoint[i] += v
		}
	}
	for i := range meanPoint {
		meanPoint[i] /= float64(count)
	}

	var meanLoss float64
	for _, l := range batch.Losses {
		meanLoss += l
	}
	meanLoss /= float64(count)

	flat := true
	for _, l := range batch.Losses {
		if math.Abs(l-meanLoss) > flatTolerance {
			flat = false

			break
		}
	}

	grad := make([]float64, dim)

	if !flat {
		offsets := mat.NewDense(count, dim, nil)
		centered := mat.NewDense(count, 1, nil)

		for r, p := range batch.Points {
			for c, v := range p {
				offsets.Set(r, c, v-meanPoint[c])
			}

			centered.Set(r, 0, batch.Losses[r]-meanLoss)
		}

		var qr mat.QR
		qr.Factorize(offsets)

		var beta mat.Dense
		if err := qr.SolveTo(&beta, false, centered); err != nil {
			if _, conditioned := err.(mat.Condition); !conditioned {
				// Degenerate batch geometry, same fallback as a flat batch.
				return sharedVectors(grad, count), nil
			}
		}

		for i := 0; i < dim; i++ {
			grad[i] = beta.At(i, 0)
		}
	}

	return sharedVectors(grad, count), nil
}

//////
// Helper functions.
//////

// sharedVectors returns count independent copies of one vector.
func sharedVectors(v []float64, count int) [][]float64 {
	out := make([][]float64, count)
	for i := range out {
		out[i] = cloneVector(v)
	}

	return out
}

// forEachSample applies fn to every point of the batch across a worker pool,
// honoring the evaluation-error policy. The batch boundary is the join point:
// all workers finish before results are gathered in input order.
func forEachSample(batch SampleBatch, params SensitivityParams, fn func(x []float64) ([]float64, error)) ([][]float64, error) {
	count := len(batch.Points)
	if count == 0 {
		return nil, fmt.Errorf("lgs: sensitivity estimation requires a non-empty batch")
	}

	workers := params.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > count {
		workers = count
	}

	results := make([][]float64, count)
	failures := make([]error, count)

	indexes := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range indexes {
				g, err := fn(batch.Points[i])
				if err != nil {
					failures[i] = &EvaluationError{Index: i, Point: batch.Points[i], Err: err}

					continue
				}

				results[i] = g
			}
		}()
	}

	for i := 0; i < count; i++ {
		indexes <- i
	}
	close(indexes)

	wg.Wait()

	out := make([][]float64, 0, count)

	for i := 0; i < count; i++ {
		if failures[i] != nil {
			if params.OnEvalError == AbortBatch {
				return nil, failures[i]
			}

			continue
		}

		out = append(out, results[i])
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("lgs: every sample in the batch failed sensitivity estimation")
	}

	return out, nil
}

// evaluateBatch runs the external loss across all points using a worker pool
// and applies the evaluation-error policy. It returns the surviving points
// and their losses, index-aligned.
func evaluateBatch(loss LossFunc, points [][]float64, workers int, policy EvalErrorPolicy) ([][]float64, []float64, error) {
	count := len(points)
	if count == 0 {
		return nil, nil, fmt.Errorf("lgs: cannot evaluate an empty batch")
	}

	if workers < 1 {
		workers = 1
	}
	if workers > count {
		workers = count
	}

	losses := make([]float64, count)
	failures := make([]error, count)

	indexes := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range indexes {
				l, err := loss(points[i])
				if err != nil {
					failures[i] = &EvaluationError{Index: i, Point: points[i], Err: err}

					continue
				}

				losses[i] = l
			}
		}()
	}

	for i := 0; i < count; i++ {
		indexes <- i
	}
	close(indexes)

	wg.Wait()

	keptPoints := make([][]float64, 0, count)
	keptLosses := make([]float64, 0, count)

	for i := 0; i < count; i++ {
		if failures[i] != nil {
			if policy == AbortBatch {
				return nil, nil, failures[i]
			}

			continue
		}

		keptPoints = append(keptPoints, points[i])
		keptLosses = append(keptLosses, losses[i])
	}

	if len(keptPoints) == 0 {
		return nil, nil, fmt.Errorf("lgs: every evaluation in the batch failed")
	}

	return keptPoints, keptLosses, nil
}
