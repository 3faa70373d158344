package solver

import "github.com/dp-flightctl/hybriddp/internal/lattice"

// NumInputs is the size of an input table: the 27 corners of {-a,0,+a}^3.
const NumInputs = 27

// BuildInputs returns the 27 corners of the cube {-a,0,+a}^3, one per axis
// amplitude in amp (x,y,z may differ once a stretch factor rescales them).
func BuildInputs(amp lattice.Vec3) [NumInputs]lattice.Vec3 {
	var inputs [NumInputs]lattice.Vec3
	axisValues := func(a lattice.Unit) [3]lattice.Unit { return [3]lattice.Unit{-a, 0, a} }
	xs, ys, zs := axisValues(amp.X), axisValues(amp.Y), axisValues(amp.Z)
	i := 0
	for _, x := range xs {
		for _, y := range ys {
			for _, z := range zs {
				inputs[i] = lattice.Vec3{X: x, Y: y, Z: z}
				i++
			}
		}
	}
	return inputs
}

// DefaultSmallerAmplitude and DefaultLargerAmplitude are the two
// input-table amplitudes: finer control near the goal, coarser further back.
const (
	DefaultSmallerAmplitude lattice.Unit = 2
	DefaultLargerAmplitude  lattice.Unit = 4
)

// DefaultSwitchStage is the input-schedule switchover K: stages within K
// of the horizon use the smaller (finer) input table.
const DefaultSwitchStage = 100

// inputAmplitudesForStretch picks per-axis amplitudes for the
// smaller/larger tables: the amplitude shrinks as the axis's stretch
// factor grows, since a coarser lattice cell already represents a larger
// physical displacement.
func inputAmplitudesForStretch(factor lattice.Vec3) (smaller, larger lattice.Vec3) {
	axis := func(f lattice.Unit) (s, l lattice.Unit) {
		if f > 2 {
			s = 1
		} else {
			s = 2
		}
		switch {
		case f > 5:
			l = 1
		case f > 3:
			l = 2
		case f > 2:
			l = 3
		default:
			l = 4
		}
		return
	}
	sx, lx := axis(factor.X)
	sy, ly := axis(factor.Y)
	sz, lz := axis(factor.Z)
	return lattice.Vec3{X: sx, Y: sy, Z: sz}, lattice.Vec3{X: lx, Y: ly, Z: lz}
}
