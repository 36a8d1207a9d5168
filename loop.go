package lgs

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

//////
// Exported functionalities.
//////

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:   100,
		Sensitivity: SurrogateGradient,
		SensitivityParams: SensitivityParams{
			Epsilon: defaultEpsilon,
		},
		RetainCount:     2,
		SquishFactor:    0.5,
		MaxIterations:   20,
		Patience:        3,
		SpreadTolerance: 1e-3,
		Workers:         1,
		OnEvalError:     AbortBatch,
		Rand:            rand.New(rand.NewSource(time.Now().UnixNano())),
		ProgressChan:    nil, // Default to no progress updates.
	}
}

// LoopResult is what Run hands back when the loop stops, whether it
// converged, exhausted its budget, or aborted on an error.
type LoopResult struct {
	// Distribution is the adapted distribution in its last valid state. On an
	// aborted run this is the state before the failing mutation.
	Distribution *Distribution

	// Decomposition is the most recent principal decomposition, when at least
	// one iteration got that far.
	Decomposition PrincipalDecomposition

	// Iterations is the number of completed iterations.
	Iterations int

	// Converged reports whether the eigenvalue-spread criterion stopped the
	// loop before the iteration budget ran out.
	Converged bool

	// MeanHistory records the distribution mean at the start of every
	// iteration, ready for a path scan of the trajectory.
	MeanHistory [][]float64

	// FlatIterations counts iterations whose batch produced an all-zero
	// sensitivity matrix.
	FlatIterations int
}

// Run drives the informed sampling loop: it repeatedly samples the
// distribution, evaluates the external loss, estimates per-sample loss
// sensitivity, eigendecomposes the sensitivity matrix, and squishes the
// distribution's variance along the directions the loss cares least about.
//
// Parameters:
// - config: Config controlling the loop; see DefaultConfig
// - loss: The external loss landscape
// - initial: The starting distribution, fixed or chosen by SelectSeed
//
// Returns:
// - *LoopResult: Final distribution and most recent decomposition. Also
//   returned alongside a non-nil error, carrying the last valid state.
// - error: First failure that aborted the loop, nil on a clean finish
//
// Usage example:
//
//	dist, _ := lgs.NewIsotropicDistribution(make([]float64, 8), 1.0)
//
//	config := lgs.DefaultConfig()
//	config.Sensitivity = lgs.FiniteDifference
//	config.MaxIterations = 10
//
//	result, err := lgs.Run(config, loss, dist)
//	if err != nil {
//	    return err
//	}
//
//	basis, err := lgs.SelectSubspace(result.Decomposition, result.Distribution.Mean())
//	if err != nil {
//	    return err
//	}
//
//	for sp, err := range basis.Scan(lgs.ScanSpec{Resolution: 64, Range: 2}, loss) {
//	    ...
//	}
//
// How it works:
// 1. Clones the initial distribution; the loop owns the clone exclusively
// 2. Every iteration runs sample -> evaluate -> estimate -> decompose -> adapt
// 3. Stops when MaxIterations is reached, or when the top-2 eigenvalue spread
//    changes by at most SpreadTolerance for Patience consecutive iterations
//
// Important notes:
// - The caller's initial distribution is never mutated
// - A failure at any step aborts the loop; the result still carries the last
//   valid distribution, so nothing is left half-mutated
// - Cancellation between iterations is the caller's job, by wrapping the loss
//   callable; the loop never interrupts a batch mid-flight
func Run(config Config, loss LossFunc, initial *Distribution) (*LoopResult, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	if loss == nil {
		return nil, fmt.Errorf("lgs: run requires the loss callable")
	}

	if initial == nil {
		return nil, fmt.Errorf("lgs: run requires an initial distribution")
	}

	rng := config.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	// The loop's exclusively owned working copy.
	dist := initial.Clone()

	result := &LoopResult{Distribution: dist}

	// sendProgress publishes an update without ever blocking the loop.
	sendProgress := func(phase Phase, iteration int, dec PrincipalDecomposition, haveDec bool) {
		if config.ProgressChan == nil {
			return
		}

		update := ProgressUpdate{
			Phase:           phase,
			Iteration:       iteration,
			TotalIterations: config.MaxIterations,
		}

		if haveDec {
			update.EigenvalueSpread = dec.TopSpread()
			update.FlatBatch = dec.Flat

			top := dec.Eigenvalues
			if len(top) > 2 {
				top = top[:2]
			}

			update.TopEigenvalues = cloneVector(top)
		}

		select {
		case config.ProgressChan <- update:
		default:
			// Skip update if channel is full.
		}
	}

	sensParams := config.SensitivityParams
	if sensParams.Workers == 0 {
		sensParams.Workers = config.Workers
	}
	sensParams.OnEvalError = config.OnEvalError

	prevSpread := math.NaN()
	stable := 0

	haveDec := false

	for iteration := 1; iteration <= config.MaxIterations; iteration++ {
		result.MeanHistory = append(result.MeanHistory, dist.Mean())

		sendProgress(PhaseSampling, iteration, result.Decomposition, haveDec)

		points, err := dist.Sample(rng, config.BatchSize)
		if err != nil {
			return result, err
		}

		sendProgress(PhaseEvaluating, iteration, result.Decomposition, haveDec)

		keptPoints, losses, err := evaluateBatch(loss, points, config.Workers, config.OnEvalError)
		if err != nil {
			return result, err
		}

		batch := SampleBatch{Points: keptPoints, Losses: losses}

		sendProgress(PhaseEstimating, iteration, result.Decomposition, haveDec)

		sensitivities, err := config.Sensitivity(batch, loss, sensParams)
		if err != nil {
			return result, err
		}

		sendProgress(PhaseDecomposing, iteration, result.Decomposition, haveDec)

		dec, err := Decompose(sensitivities)
		if err != nil {
			return result, err
		}

		result.Decomposition = dec
		haveDec = true

		if dec.Flat {
			result.FlatIterations++
		}

		sendProgress(PhaseAdapting, iteration, dec, true)

		if _, err := AdaptDistribution(dist, dec, config); err != nil {
			return result, err
		}

		result.Iterations = iteration

		spread := dec.TopSpread()

		if !math.IsNaN(prevSpread) && math.Abs(spread-prevSpread) <= config.SpreadTolerance {
			stable++
		} else {
			stable = 0
		}

		prevSpread = spread

		if config.Patience > 0 && stable >= config.Patience {
			result.Converged = true

			break
		}
	}

	sendProgress(PhaseDone, result.Iterations, result.Decomposition, haveDec)

	return result, nil
}

//////
// Helper functions.
//////

// validateConfig rejects configurations the loop cannot run with.
func validateConfig(config Config) error {
	if config.BatchSize <= 0 {
		return fmt.Errorf("lgs: batch size must be positive, got %d", config.BatchSize)
	}

	if config.MaxIterations <= 0 {
		return fmt.Errorf("lgs: iteration budget must be positive, got %d", config.MaxIterations)
	}

	if config.Sensitivity == nil {
		return fmt.Errorf("lgs: a sensitivity strategy is required")
	}

	if config.SquishFactor <= 0 || config.SquishFactor >= 1 {
		return fmt.Errorf("lgs: squish factor must be in (0, 1), got %g", config.SquishFactor)
	}

	if config.RetainCount == 0 && (config.VarianceThreshold <= 0 || config.VarianceThreshold > 1) {
		return fmt.Errorf("lgs: either RetainCount or a VarianceThreshold in (0, 1] is required")
	}

	if config.Patience < 0 {
		return fmt.Errorf("lgs: patience must not be negative, got %d", config.Patience)
	}

	return nil
}
