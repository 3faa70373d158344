package solver

import "github.com/dp-flightctl/hybriddp/internal/lattice"

// StretchPolicy chooses a per-axis coarsening factor for a leg's
// state/goal geometry, trading resolution for memory on long cruising
// legs. The decision is a pluggable policy; only the identity default
// ships.
type StretchPolicy func(stateSpace, goalSpace lattice.StateSpace6D, x0 lattice.State6) lattice.Vec3

// IdentityStretch never coarsens.
func IdentityStretch(lattice.StateSpace6D, lattice.StateSpace6D, lattice.State6) lattice.Vec3 {
	return lattice.Vec3{X: 1, Y: 1, Z: 1}
}

// ValidateStretch rejects a factor that would leave fewer than 7 cells on
// any axis, or that exceeds 10 on any axis; callers fall back to identity
// stretch on rejection.
func ValidateStretch(stateSpace lattice.StateSpace6D, factor lattice.Vec3) bool {
	if factor.X < 1 || factor.Y < 1 || factor.Z < 1 {
		return false
	}
	if factor.X > 10 || factor.Y > 10 || factor.Z > 10 {
		return false
	}
	coarsened := stateSpace.DivideByStretch(factor)
	for i := 0; i < 6; i++ {
		if coarsened.Grid(i).Len() < 7 {
			return false
		}
	}
	return true
}

// ResolveStretch runs policy and falls back to identity if the result fails
// validation.
func ResolveStretch(policy StretchPolicy, stateSpace, goalSpace lattice.StateSpace6D, x0 lattice.State6) lattice.Vec3 {
	factor := policy(stateSpace, goalSpace, x0)
	if !ValidateStretch(stateSpace, factor) {
		return lattice.Vec3{X: 1, Y: 1, Z: 1}
	}
	return factor
}
