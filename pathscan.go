package lgs

import "fmt"

//////
// Const, vars, types.
//////

// PathScanMode selects how a path through the landscape is resampled before
// evaluation.
type PathScanMode int

const (
	// PathRaw evaluates every node of the path as-is.
	PathRaw PathScanMode = iota

	// PathRefined evaluates every node plus a number of evenly spaced points
	// inside each segment, set by PathScanOptions.Resolution.
	PathRefined

	// PathCompressed skips nodes until at least PathScanOptions.StepSize of
	// arc length has accumulated since the last evaluated node.
	PathCompressed

	// PathSegmented resamples the path into roughly equidistant nodes by arc
	// length, PathScanOptions.Resolution of them in total.
	PathSegmented
)

// PathScanOptions configures path resampling.
type PathScanOptions struct {
	// Resolution is the number of extra points per segment for PathRefined,
	// or the total node count for PathSegmented.
	Resolution int

	// StepSize is the minimum arc length between evaluated nodes for
	// PathCompressed.
	StepSize float64
}

// PathScan holds the loss profile along a path through the landscape, for
// example the sampling loop's mean trajectory from LoopResult.MeanHistory.
type PathScan struct {
	// Path holds the evaluated nodes after resampling.
	Path [][]float64

	// Losses holds the evaluated loss per node, aligned with Path.
	Losses []float64

	// Mode records how the path was resampled.
	Mode PathScanMode
}

//////
// Exported functionalities.
//////

// ScanPath evaluates the loss along a path, after resampling it according to
// the mode. The input path is never mutated.
//
// Parameters:
// - loss: The external loss landscape
// - path: At least one node, all of equal dimension
// - mode: One of the PathScanMode constants
// - opt: Mode-specific options; see PathScanOptions
//
// Returns:
// - *PathScan: Evaluated profile along the resampled path
// - error: EvaluationError for a failed evaluation, plain error otherwise
func ScanPath(loss LossFunc, path [][]float64, mode PathScanMode, opt PathScanOptions) (*PathScan, error) {
	if loss == nil {
		return nil, fmt.Errorf("lgs: path scan requires the loss callable")
	}

	if len(path) == 0 {
		return nil, fmt.Errorf("lgs: path scan requires a non-empty path")
	}

	var scanpath [][]float64

	switch mode {
	case PathRaw:
		scanpath = cloneVectors(path)
	case PathRefined:
		if opt.Resolution < 0 {
			return nil, fmt.Errorf("lgs: refined path resolution must not be negative, got %d", opt.Resolution)
		}

		scanpath = refinePath(path, opt.Resolution)
	case PathCompressed:
		if opt.StepSize <= 0 {
			return nil, fmt.Errorf("lgs: compressed path scan requires a positive step size, got %g", opt.StepSize)
		}

		scanpath = compressPath(path, opt.StepSize)
	case PathSegmented:
		if opt.Resolution < 2 {
			return nil, fmt.Errorf("lgs: segmented path scan requires a resolution of at least 2, got %d", opt.Resolution)
		}

		scanpath = segmentPath(path, opt.Resolution)
	default:
		return nil, fmt.Errorf("lgs: unknown path scan mode %d", mode)
	}

	out := &PathScan{
		Path:   scanpath,
		Losses: make([]float64, len(scanpath)),
		Mode:   mode,
	}

	for i, p := range scanpath {
		l, err := loss(p)
		if err != nil {
			return nil, &EvaluationError{Index: i, Point: p, Err: err}
		}

		out.Losses[i] = l
	}

	return out, nil
}

//////
// Helper functions.
//////

// refinePath inserts resolution interior points into every segment of the
// path, keeping all original nodes.
func refinePath(path [][]float64, resolution int) [][]float64 {
	segments := len(path) - 1
	if segments == 0 {
		return cloneVectors(path)
	}

	dim := len(path[0])

	out := make([][]float64, 0, segments*(resolution+1)+1)

	for s := 0; s < segments; s++ {
		from, to := path[s], path[s+1]

		for k := 0; k <= resolution; k++ {
			t := float64(k) / float64(resolution+1)

			p := make([]float64, dim)
			for i := range p {
				p[i] = from[i] + (to[i]-from[i])*t
			}

			out = append(out, p)
		}
	}

	out = append(out, cloneVector(path[len(path)-1]))

	return out
}

// compressPath keeps the first node and every later node that lies at least
// stepSize of accumulated arc length after the previously kept one.
func compressPath(path [][]float64, stepSize float64) [][]float64 {
	out := [][]float64{cloneVector(path[0])}

	var accumulated float64

	for i := 1; i < len(path); i++ {
		accumulated += euclidean(path[i-1], path[i])

		if accumulated >= stepSize {
			out = append(out, cloneVector(path[i]))
			accumulated = 0
		}
	}

	return out
}

// segmentPath resamples the path into count nodes that are approximately
// equidistant along its arc length. Original nodes are generally not kept,
// except the first.
func segmentPath(path [][]float64, count int) [][]float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += euclidean(path[i-1], path[i])
	}

	if total == 0 {
		return [][]float64{cloneVector(path[0])}
	}

	stepSize := total / float64(count-1)

	out := [][]float64{cloneVector(path[0])}

	var accumulated float64

	for i := 1; i < len(path); i++ {
		segment := euclidean(path[i-1], path[i])

		if accumulated+segment >= stepSize {
			out = append(out, cloneVector(path[i]))
			// Carry the overshoot into the next stretch.
			accumulated = accumulated + segment - stepSize
		} else {
			accumulated += segment
		}
	}

	return out
}
