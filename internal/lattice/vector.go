// Package lattice implements the uniform integer grids, state-space boxes
// and dense 6-D value/policy tables the solver sweeps over.
package lattice

// Unit is the solver's integer lattice scalar.
type Unit int

// Vec3 is a triple of lattice units: a position or velocity component group.
type Vec3 struct {
	X, Y, Z Unit
}

// Add returns the componentwise sum.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns the componentwise difference.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale multiplies every component by a scalar.
func (v Vec3) Scale(s Unit) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// DivComponents divides componentwise by another Vec3, used for stretch factors.
func (v Vec3) DivComponents(factor Vec3) Vec3 {
	return Vec3{v.X / factor.X, v.Y / factor.Y, v.Z / factor.Z}
}

// MulComponents multiplies componentwise by another Vec3.
func (v Vec3) MulComponents(factor Vec3) Vec3 {
	return Vec3{v.X * factor.X, v.Y * factor.Y, v.Z * factor.Z}
}

// Index returns the i-th component (0=X, 1=Y, 2=Z).
func (v Vec3) Index(i int) Unit {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	default:
		panic("lattice: Vec3 index out of range")
	}
}

// State6 is the full position+velocity state: [cx,cy,cz,vx,vy,vz].
type State6 [6]float64

// Position returns the first three (position) components.
func (s State6) Position() [3]float64 {
	return [3]float64{s[0], s[1], s[2]}
}

// Velocity returns the last three (velocity) components.
func (s State6) Velocity() [3]float64 {
	return [3]float64{s[3], s[4], s[5]}
}
