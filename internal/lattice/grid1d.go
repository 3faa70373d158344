package lattice

import "math"

// Grid1D is a uniform 1-D integer-lattice axis: begin, end and step are all
// in lattice units, step > 0, and end is always snapped down to the nearest
// reachable multiple of step from begin.
type Grid1D struct {
	begin Unit
	step  Unit
	end   Unit
}

// NewGrid1D builds a Grid1D, snapping end down to begin + k*step.
// Panics if step <= 0 or begin > end: these are programmer errors, not
// runtime conditions to recover from.
func NewGrid1D(begin, step, end Unit) Grid1D {
	if step <= 0 {
		panic("lattice: Grid1D step must be greater than 0")
	}
	if begin > end {
		panic("lattice: Grid1D begin must not exceed end")
	}
	snapped := begin + (end-begin)/step*step
	return Grid1D{begin: begin, step: step, end: snapped}
}

// Begin returns the lower bound.
func (g Grid1D) Begin() Unit { return g.begin }

// End returns the (snapped) upper bound.
func (g Grid1D) End() Unit { return g.end }

// Step returns the lattice spacing.
func (g Grid1D) Step() Unit { return g.step }

// Len returns the number of lattice cells, 0 if the range is degenerate.
func (g Grid1D) Len() int {
	if g.begin > g.end {
		return 0
	}
	return int((g.end-g.begin)/g.step) + 1
}

// Value maps a cell index back to its lattice coordinate.
func (g Grid1D) Value(i int) Unit {
	return g.begin + Unit(i)*g.step
}

// SearchAwayFromZero rounds f to the index whose value lies farther from
// the origin: ceil when f > 0, floor when f <= 0 (note f == 0 takes the
// floor branch). Returns -1 when f falls outside [begin, end]. This is the
// conservative rounding mode used for propagating dynamics: it never snaps
// a successor state optimistically toward the goal.
func (g Grid1D) SearchAwayFromZero(f float64) int {
	if f < float64(g.begin) || f > float64(g.end) {
		return -1
	}
	offset := (f - float64(g.begin)) / float64(g.step)
	if f > 0 {
		return int(math.Ceil(offset))
	}
	return int(math.Floor(offset))
}

// SearchClosest rounds f to the nearest cell index, used when projecting
// obstacles into lattice coordinates where no directional bias is wanted.
// Returns -1 when f falls outside [begin, end].
func (g Grid1D) SearchClosest(f float64) int {
	if f < float64(g.begin) || f > float64(g.end) {
		return -1
	}
	return int(math.Round((f - float64(g.begin)) / float64(g.step)))
}

// WithBounds returns a copy of g with new begin/end, re-snapping end to
// the lattice. Used by StateSpace6D's extensions and by the solver's
// state-space growth recovery.
func (g Grid1D) WithBounds(begin, end Unit) Grid1D {
	return NewGrid1D(begin, g.step, end)
}
