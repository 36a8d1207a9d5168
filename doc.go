// Package lgs provides loss-guided sampling of high-dimensional parameter
// spaces. Instead of sampling uniformly or along arbitrary axes, it learns
// from the local sensitivity of an externally supplied loss function which
// directions of the input space matter, reshapes its sampling distribution
// accordingly, and finally narrows exploration to the 2D subspace capturing
// the most loss variance for a dense scan.
//
// # Features
//
// The package includes the following key features:
//
//   - Informed Sampling Loop: Iteratively samples a Gaussian distribution,
//     evaluates the external loss, estimates per-sample sensitivity,
//     eigendecomposes the resulting loss-sensitivity matrix, and squishes
//     variance along directions the loss ignores
//   - Pluggable Sensitivity Strategies: Finite differences, analytic
//     gradients, or a shared least-squares surrogate, selected by
//     configuration
//   - Principal Loss Subspace: Deterministic selection of the top two
//     sensitivity eigenvectors as an orthonormal 2D basis
//   - Lazy Subspace Scanning: Restartable row-major grid scans, 1D
//     collective scans, path scans, and Hessian eigen-direction scans for
//     downstream visualization
//   - Random Search Seeding: One-shot selection of a starting distribution
//     from bounded parameter ranges
//   - Parallel Evaluation: Worker-pool fan-out across a batch's samples and
//     across search candidates
//   - Progress Monitoring: Real-time updates on loop progress via channels
//
// # Workflow
//
// The usual pipeline is seed (optional), loop, select, scan:
//
//	seed, err := lgs.SelectSeed(searchConfig, loss, space) // optional
//
//	result, err := lgs.Run(lgs.DefaultConfig(), loss, seed)
//
//	basis, err := lgs.SelectSubspace(result.Decomposition, result.Distribution.Mean())
//
//	for sp, err := range basis.Scan(lgs.ScanSpec{Resolution: 64, Range: 2}, loss) {
//	    // feed (sp.U, sp.V, sp.Loss) to your plotting layer
//	}
//
// The loss function is an external collaborator: a pure func([]float64)
// (float64, error). The library never tries to minimize it; it only maps
// where the loss varies. Plotting and rendering are likewise external; the
// scanner hands over a lazy sequence and stops there.
//
// # Invariants
//
// The numerically load-bearing guarantees, all covered by tests:
//
//   - The distribution covariance stays symmetric positive semi-definite
//     after any sequence of Reshape calls; violations are rejected with
//     DegenerateDistributionError and the last valid state is kept
//   - Decomposition eigenvalues are descending and non-negative, eigenvectors
//     unit norm and orthogonal, with deterministic sign and tie ordering
//   - Squishing a direction by factor f scales its variance by exactly f^2
//     and leaves orthogonal directions untouched; reshapes along the
//     eigenvectors of one decomposition compose exactly
//   - Scan points round-trip: projecting a grid point back onto the basis
//     recovers its (u, v) coordinates within floating-point tolerance
//   - A flat batch (all losses identical) degrades to a defined fallback,
//     never a crash
//
// # Thread Safety
//
// The loop is a synchronous pipeline that exclusively owns its distribution;
// only loss evaluations fan out across workers. The loss callable must be
// safe for concurrent calls when Config.Workers > 1. Create separate configs
// for loops that run in parallel.
package lgs
