package lattice

// StateSpace6D is an axis-aligned box over the 6-D [position, velocity]
// state: six parallel Grid1Ds, one per component.
type StateSpace6D struct {
	grids [6]Grid1D
}

// NewStateSpace6D builds a box from six independent axis grids.
func NewStateSpace6D(grids [6]Grid1D) StateSpace6D {
	return StateSpace6D{grids: grids}
}

// Grid returns the axis grid for dimension i (0..5).
func (s StateSpace6D) Grid(i int) Grid1D { return s.grids[i] }

// Lengths returns the per-dimension cell counts.
func (s StateSpace6D) Lengths() [6]int {
	var l [6]int
	for i := range s.grids {
		l[i] = s.grids[i].Len()
	}
	return l
}

// Contains reports whether every component of x lies within its grid's
// [begin, end] inclusive.
func (s StateSpace6D) Contains(x State6) bool {
	for i := 0; i < 6; i++ {
		g := s.grids[i]
		if x[i] < float64(g.Begin()) || x[i] > float64(g.End()) {
			return false
		}
	}
	return true
}

// Offset shifts only the position dimensions (0,1,2) by -p, the
// world-to-leg-local coordinate change used when a leg translates world
// waypoints into solver-local coordinates.
func (s StateSpace6D) Offset(p Vec3) StateSpace6D {
	out := s
	for i := 0; i < 3; i++ {
		out.grids[i] = out.grids[i].WithBounds(out.grids[i].Begin()-p.Index(i), out.grids[i].End()-p.Index(i))
	}
	return out
}

// ExtendAbsolute enlarges each dimension by d[i] on both sides.
func (s StateSpace6D) ExtendAbsolute(d [6]Unit) StateSpace6D {
	out := s
	for i := 0; i < 6; i++ {
		out.grids[i] = out.grids[i].WithBounds(out.grids[i].Begin()-d[i], out.grids[i].End()+d[i])
	}
	return out
}

// ExtendForStretching snaps each endpoint away from zero to a multiple of
// the stretch factor for that axis (stretch factor index i%3, since
// dimensions 0-2 are position and 3-5 are velocity over the same 3 physical
// axes). For a box that contains the origin this only ever widens it; a
// box lying wholly on one side of zero has its near endpoint moved away
// from zero as well.
func (s StateSpace6D) ExtendForStretching(factor Vec3) StateSpace6D {
	out := s
	for i := 0; i < 6; i++ {
		f := factor.Index(i % 3)
		out.grids[i] = out.grids[i].WithBounds(
			snapOutward(out.grids[i].Begin(), f),
			snapOutward(out.grids[i].End(), f),
		)
	}
	return out
}

// snapOutward returns v unchanged when it is a multiple of factor, else the
// next multiple of factor away from zero (4 -> 6 and -4 -> -6 for factor 3).
func snapOutward(v, factor Unit) Unit {
	q := v / factor
	if q*factor == v {
		return v
	}
	if v < 0 {
		return factor * (q - 1)
	}
	return factor * (q + 1)
}

// DivideByStretch divides both endpoints of every dimension by the
// stretch factor for that axis, the coarsening step the solver applies to
// its own working copy of the state space.
func (s StateSpace6D) DivideByStretch(factor Vec3) StateSpace6D {
	out := s
	for i := 0; i < 6; i++ {
		f := factor.Index(i % 3)
		out.grids[i] = out.grids[i].WithBounds(out.grids[i].Begin()/f, out.grids[i].End()/f)
	}
	return out
}
