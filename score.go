package lgs

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

//////
// Available aggregate scores for the random search seed selector.
// Each score collapses a candidate distribution's batch of losses into one
// scalar; the candidate with the lowest score wins.
//////

// ScoreFunc defines the signature for aggregate scores. The input slice is
// never empty and must not be mutated.
//
// Implementation notes for custom scores:
// - Lower values must indicate better candidates
// - Must be deterministic for identical inputs
// - Must not retain or mutate the losses slice.
type ScoreFunc func(losses []float64) float64

// MeanScore scores a candidate by its batch's mean loss.
//
// When to use:
// - General purpose default
// - Smooth landscapes where outliers are rare
func MeanScore(losses []float64) float64 {
	return stat.Mean(losses, nil)
}

// MinScore scores a candidate by the best single loss in its batch.
//
// When to use:
// - You care about whether the candidate's region contains any good point at
//   all, not about its average quality
// - Noisy landscapes punish this score; a single lucky draw wins
func MinScore(losses []float64) float64 {
	best := losses[0]

	for _, l := range losses[1:] {
		if l < best {
			best = l
		}
	}

	return best
}

// QuantileScore returns a score that collapses the batch to the q-th loss
// quantile, with q in [0, 1]. A quantile of 0.5 is the median.
//
// When to use:
// - Robust middle ground between MeanScore and MinScore
// - Landscapes with heavy-tailed loss noise
//
// Example:
//
//	search := lgs.DefaultSearchConfig()
//	search.Score = lgs.QuantileScore(0.25)
func QuantileScore(q float64) ScoreFunc {
	return func(losses []float64) float64 {
		sorted := cloneVector(losses)
		sort.Float64s(sorted)

		return stat.Quantile(q, stat.Empirical, sorted, nil)
	}
}
