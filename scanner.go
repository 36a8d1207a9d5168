package lgs

import (
	"fmt"
	"iter"
)

//////
// Const, vars, types.
//////

// ScanSpec describes the grid laid over a 2D subspace.
//
// The scan covers Resolution steps per axis. The scanned interval per axis is
// [-Range, Range] unless URange or VRange set explicit bounds, mirroring how
// a scalar scope expands to a symmetric one.
type ScanSpec struct {
	// Resolution is the number of grid steps per axis. Endpoints are
	// included; a resolution of one degenerates to the interval start.
	Resolution int

	// Range sets the symmetric scope [-Range, Range] for both axes. Ignored
	// for an axis that has an explicit range below.
	Range float64

	// URange optionally sets an asymmetric [lo, hi] scope for the first axis.
	URange [2]float64

	// VRange optionally sets an asymmetric [lo, hi] scope for the second axis.
	VRange [2]float64
}

// ScanPoint is one grid cell of a subspace scan.
type ScanPoint struct {
	// U and V are the subspace coordinates of the cell.
	U, V float64

	// Point is the cell mapped back into the full input space.
	Point []float64

	// Loss is the evaluated loss at Point, valid only when Evaluated is set.
	Loss float64

	// Evaluated reports whether Loss holds a real evaluation. It stays false
	// when the scan runs without a loss callable or when the evaluation for
	// this cell failed.
	Evaluated bool
}

// LineScan is a 1D scan along a single direction through an anchor point.
type LineScan struct {
	// Direction is the unit direction the line follows.
	Direction []float64

	// Offsets are the scanned signed distances from the anchor.
	Offsets []float64

	// Points are the full-dimensional scan points, aligned with Offsets.
	Points [][]float64

	// Losses are the evaluated losses, aligned with Offsets.
	Losses []float64
}

//////
// Methods.
//////

// Scan lazily walks a Resolution x Resolution grid over the basis in
// row-major order: the first axis is the row, the second axis varies fastest.
// Each cell is mapped into the full input space and, when a loss callable is
// supplied, evaluated on the spot.
//
// The returned sequence is finite and restartable: every range statement over
// it replays the grid from the start. Evaluation failures surface as an
// EvaluationError next to the affected cell and do not stop the scan; the
// consumer decides whether to break.
//
// Usage example:
//
//	for sp, err := range basis.Scan(ScanSpec{Resolution: 64, Range: 2}, loss) {
//	    if err != nil {
//	        return err
//	    }
//	    plot(sp.U, sp.V, sp.Loss)
//	}
func (b SubspaceBasis) Scan(spec ScanSpec, loss LossFunc) iter.Seq2[ScanPoint, error] {
	return func(yield func(ScanPoint, error) bool) {
		ur, vr, err := spec.axisRanges()
		if err != nil {
			yield(ScanPoint{}, err)

			return
		}

		us := linspace(ur[0], ur[1], spec.Resolution)
		vs := linspace(vr[0], vr[1], spec.Resolution)

		for i, u := range us {
			for j, v := range vs {
				sp := ScanPoint{U: u, V: v, Point: b.Point(u, v)}

				if loss == nil {
					if !yield(sp, nil) {
						return
					}

					continue
				}

				l, lossErr := loss(sp.Point)
				if lossErr != nil {
					evalErr := &EvaluationError{
						Index: i*spec.Resolution + j,
						Point: sp.Point,
						Err:   lossErr,
					}

					if !yield(sp, evalErr) {
						return
					}

					continue
				}

				sp.Loss = l
				sp.Evaluated = true

				if !yield(sp, nil) {
					return
				}
			}
		}
	}
}

// ScanGrid eagerly collects a full scan, aborting on the first evaluation
// failure. Convenience wrapper around Scan for consumers that want the whole
// grid at once.
func (b SubspaceBasis) ScanGrid(spec ScanSpec, loss LossFunc) ([]ScanPoint, error) {
	out := make([]ScanPoint, 0, spec.Resolution*spec.Resolution)

	for sp, err := range b.Scan(spec, loss) {
		if err != nil {
			return nil, err
		}

		out = append(out, sp)
	}

	return out, nil
}

// CollectiveScan produces one 1D scan per basis direction through the anchor,
// instead of the full 2D grid. Useful for quick profiles of the two principal
// directions.
func (b SubspaceBasis) CollectiveScan(spec ScanSpec, loss LossFunc) ([2]LineScan, error) {
	var out [2]LineScan

	ur, vr, err := spec.axisRanges()
	if err != nil {
		return out, err
	}

	first, err := lineScan(loss, b.Anchor, b.E1, ur, spec.Resolution)
	if err != nil {
		return out, err
	}

	second, err := lineScan(loss, b.Anchor, b.E2, vr, spec.Resolution)
	if err != nil {
		return out, err
	}

	out[0] = first
	out[1] = second

	return out, nil
}

//////
// Helper functions.
//////

// axisRanges resolves the effective [lo, hi] scope per axis and validates the
// spec.
func (s ScanSpec) axisRanges() ([2]float64, [2]float64, error) {
	if s.Resolution <= 0 {
		return [2]float64{}, [2]float64{}, fmt.Errorf("lgs: scan resolution must be positive, got %d", s.Resolution)
	}

	ur, vr := s.URange, s.VRange

	if ur == ([2]float64{}) {
		ur = [2]float64{-s.Range, s.Range}
	}

	if vr == ([2]float64{}) {
		vr = [2]float64{-s.Range, s.Range}
	}

	if ur[0] >= ur[1] || vr[0] >= vr[1] {
		return ur, vr, fmt.Errorf("lgs: scan scope must have lo < hi per axis, got %v and %v", ur, vr)
	}

	return ur, vr, nil
}

// lineScan evaluates the loss along anchor + t*direction for t in scope.
func lineScan(loss LossFunc, anchor, direction []float64, scope [2]float64, resolution int) (LineScan, error) {
	offsets := linspace(scope[0], scope[1], resolution)

	out := LineScan{
		Direction: cloneVector(direction),
		Offsets:   offsets,
		Points:    make([][]float64, len(offsets)),
		Losses:    make([]float64, len(offsets)),
	}

	for i, t := range offsets {
		p := cloneVector(anchor)
		axpy(p, t, direction)

		out.Points[i] = p

		if loss == nil {
			continue
		}

		l, err := loss(p)
		if err != nil {
			return out, &EvaluationError{Index: i, Point: p, Err: err}
		}

		out.Losses[i] = l
	}

	return out, nil
}
