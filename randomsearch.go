package lgs

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/exp/constraints"
)

//////
// Const, vars, types.
//////

// SearchSpace bounds the distribution parameters the random search may pick
// from. Candidates are diagonal Gaussians: one mean range and one variance
// range per axis.
//
// Type Parameter:
//   - T: The numeric type for the bounds (typically float64)
type SearchSpace[T constraints.Float] struct {
	// MeanRanges bounds the candidate mean per axis.
	MeanRanges []ParameterRange[T]

	// VarianceRanges bounds the candidate variance per axis. All lower bounds
	// must be positive.
	VarianceRanges []ParameterRange[T]
}

// SearchConfig controls the random search seed selection.
//
// Fields explanation:
// - Candidates: Number of candidate distributions to try; zero disables the search
// - BatchSize: Samples drawn and evaluated per candidate
// - Score: Aggregate turning a candidate's losses into one scalar
// - Workers: Candidates evaluated concurrently
// - OnEvalError: Policy for failed loss evaluations within a candidate batch
// - Rand: Random source for candidate parameters and sampling
type SearchConfig struct {
	// Candidates determines how many candidate distributions are drawn from
	// the search space. Zero disables seed selection entirely.
	// Recommended range: 10-100
	Candidates int

	// BatchSize determines how many points each candidate draws and
	// evaluates.
	BatchSize int

	// Score collapses a candidate's batch losses into a single scalar; the
	// lowest score wins. See ScoreFunc for built-in options.
	Score ScoreFunc

	// Workers bounds how many candidates are evaluated concurrently.
	Workers int

	// OnEvalError controls whether a failed evaluation aborts a candidate's
	// batch or drops the sample.
	OnEvalError EvalErrorPolicy

	// Rand is the random source. A nil value makes the search create one
	// seeded from the current time.
	Rand *rand.Rand
}

//////
// Exported functionalities.
//////

// DefaultSearchConfig returns a default search configuration.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Candidates:  25,
		BatchSize:   50,
		Score:       MeanScore,
		Workers:     1,
		OnEvalError: AbortBatch,
		Rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SelectSeed runs a one-shot random search over distribution parameters and
// returns the candidate whose batch scored best against the external loss.
// It is a seed selector for Run, not an optimizer: there is no refinement and
// no convergence logic, just K independent draws and a scalar comparison.
//
// Parameters:
// - config: SearchConfig controlling the search; see DefaultSearchConfig
// - loss: The external loss landscape
// - space: Per-axis bounds for candidate means and variances
//
// Returns:
// - *Distribution: The best-scoring candidate, or nil when the search is
//   disabled via Candidates == 0
// - error: Plain error for an invalid space, or when every candidate failed
//
// How it works:
// 1. Draws Candidates parameter sets uniformly from the space
// 2. Builds a diagonal Gaussian per set, samples BatchSize points, evaluates
// 3. Scores each batch with config.Score and keeps the strict minimum
//
// Important notes:
// - Candidates are evaluated in parallel across config.Workers goroutines
// - Ties keep the earliest candidate, and a single candidate is returned
//   regardless of its score, so the selection is deterministic for a fixed
//   random source
// - A candidate whose batch cannot be evaluated is skipped, unless it is the
//   only one
func SelectSeed[T constraints.Float](config SearchConfig, loss LossFunc, space SearchSpace[T]) (*Distribution, error) {
	if config.Candidates == 0 {
		return nil, nil
	}

	if config.Candidates < 0 {
		return nil, fmt.Errorf("lgs: candidate count must not be negative, got %d", config.Candidates)
	}

	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("lgs: search batch size must be positive, got %d", config.BatchSize)
	}

	if loss == nil {
		return nil, fmt.Errorf("lgs: seed selection requires the loss callable")
	}

	if err := validateSpace(space); err != nil {
		return nil, err
	}

	score := config.Score
	if score == nil {
		score = MeanScore
	}

	rng := config.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	// Draw all candidate parameters and per-candidate seeds up front, from
	// the single source, so the parallel evaluation below stays reproducible.
	candidates := make([]*Distribution, config.Candidates)
	seeds := make([]int64, config.Candidates)

	for i := range candidates {
		mean := uniformParams(rng, space.MeanRanges)
		variances := uniformParams(rng, space.VarianceRanges)

		d, err := NewDiagonalDistribution(mean, variances)
		if err != nil {
			return nil, err
		}

		candidates[i] = d
		seeds[i] = rng.Int63()
	}

	scores := make([]float64, config.Candidates)
	failed := make([]error, config.Candidates)

	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > config.Candidates {
		workers = config.Candidates
	}

	indexes := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range indexes {
				candidateRng := rand.New(rand.NewSource(seeds[i]))

				points, err := candidates[i].Sample(candidateRng, config.BatchSize)
				if err != nil {
					failed[i] = err

					continue
				}

				_, losses, err := evaluateBatch(loss, points, 1, config.OnEvalError)
				if err != nil {
					failed[i] = err

					continue
				}

				scores[i] = score(losses)
			}
		}()
	}

	for i := 0; i < config.Candidates; i++ {
		indexes <- i
	}
	close(indexes)

	wg.Wait()

	// First-found wins ties; a lone candidate wins regardless of score.
	best := -1
	bestScore := math.Inf(1)

	for i := 0; i < config.Candidates; i++ {
		if failed[i] != nil {
			continue
		}

		if best == -1 || scores[i] < bestScore {
			best = i
			bestScore = scores[i]
		}
	}

	if best == -1 {
		if config.Candidates == 1 {
			return candidates[0], nil
		}

		return nil, fmt.Errorf("lgs: every candidate batch failed to evaluate")
	}

	return candidates[best], nil
}

//////
// Helper functions.
//////

// validateSpace rejects malformed search spaces.
func validateSpace[T constraints.Float](space SearchSpace[T]) error {
	if len(space.MeanRanges) == 0 {
		return fmt.Errorf("lgs: search space needs at least one mean range")
	}

	if len(space.MeanRanges) != len(space.VarianceRanges) {
		return fmt.Errorf("lgs: search space has %d mean ranges but %d variance ranges",
			len(space.MeanRanges), len(space.VarianceRanges))
	}

	for i, r := range space.MeanRanges {
		if r.Min > r.Max {
			return fmt.Errorf("lgs: mean range %d has min %v above max %v", i, r.Min, r.Max)
		}
	}

	for i, r := range space.VarianceRanges {
		if r.Min <= 0 {
			return fmt.Errorf("lgs: variance range %d must have a positive lower bound, got %v", i, r.Min)
		}

		if r.Min > r.Max {
			return fmt.Errorf("lgs: variance range %d has min %v above max %v", i, r.Min, r.Max)
		}
	}

	return nil
}

// uniformParams draws one value uniformly from each range.
func uniformParams[T constraints.Float](rng *rand.Rand, ranges []ParameterRange[T]) []float64 {
	out := make([]float64, len(ranges))

	for i, r := range ranges {
		lo := float64(r.Min)
		hi := float64(r.Max)

		out[i] = lo + rng.Float64()*(hi-lo)
	}

	return out
}
