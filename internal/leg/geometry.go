package leg

import "github.com/dp-flightctl/hybriddp/internal/lattice"

func box6(lo, hi [6]lattice.Unit) lattice.StateSpace6D {
	var grids [6]lattice.Grid1D
	for i := 0; i < 6; i++ {
		grids[i] = lattice.NewGrid1D(lo[i], 1, hi[i])
	}
	return lattice.NewStateSpace6D(grids)
}

// startingStateSpace is the takeoff box around the first airborne waypoint
// p: x/y within 3 of p, z from the ground up to one cell above p.
func startingStateSpace(p lattice.Vec3) lattice.StateSpace6D {
	return box6(
		[6]lattice.Unit{p.X - 3, p.Y - 3, 0, -5, -5, -5},
		[6]lattice.Unit{p.X + 3, p.Y + 3, p.Z + 1, 5, 5, 5},
	)
}

// cruisingStateSpace is the axis-aligned hull of x and p, padded by 5 on
// position, velocity fixed at [-5,+5]. The long-distance velocity extension
// is applied separately (see velocityExtension), only to the copy handed
// to the solver, never to the box the invariant check runs against.
func cruisingStateSpace(x lattice.State6, p lattice.Vec3) lattice.StateSpace6D {
	cur := lattice.Vec3{X: lattice.Unit(x[0]), Y: lattice.Unit(x[1]), Z: lattice.Unit(x[2])}
	return box6(
		[6]lattice.Unit{
			minUnit(cur.X, p.X) - 5, minUnit(cur.Y, p.Y) - 5, minUnit(cur.Z, p.Z) - 5,
			-5, -5, -5,
		},
		[6]lattice.Unit{
			maxUnit(cur.X, p.X) + 5, maxUnit(cur.Y, p.Y) + 5, maxUnit(cur.Z, p.Z) + 5,
			5, 5, 5,
		},
	)
}

// velocityExtension widens each velocity axis by its position axis's cell
// count divided by 20, capped at 10, so long cruising legs admit the higher
// speeds needed to cross them in the horizon.
func velocityExtension(stateSpace lattice.StateSpace6D) [6]lattice.Unit {
	var d [6]lattice.Unit
	for i := 0; i < 3; i++ {
		ext := lattice.Unit(stateSpace.Grid(i).Len() / 20)
		if ext > 10 {
			ext = 10
		}
		d[i+3] = ext
	}
	return d
}

// waypointState is a waypoint viewed as a resting continuous state, the
// anchor both goal-box constructions hang off.
func waypointState(p lattice.Vec3) lattice.State6 {
	return lattice.State6{float64(p.X), float64(p.Y), float64(p.Z), 0, 0, 0}
}

// landingStateSpace is the descent box around the touchdown waypoint p:
// x/y within 4 of p, z from the ground up to one cell above whichever of x
// and p is higher.
func landingStateSpace(x lattice.State6, p lattice.Vec3) lattice.StateSpace6D {
	zTop := maxUnit(lattice.Unit(x[2]), p.Z) + 1
	return box6(
		[6]lattice.Unit{p.X - 4, p.Y - 4, 0, -5, -5, -5},
		[6]lattice.Unit{p.X + 4, p.Y + 4, zTop, 5, 5, 5},
	)
}

// landingGoalBox is the touchdown target around p. It is never shrunk
// before being handed to the solver: a landing target tighter than this
// would reject touchdown states the simulator accepts.
func landingGoalBox(p lattice.Vec3) lattice.StateSpace6D {
	return box6(
		[6]lattice.Unit{p.X - 3, p.Y - 3, 0, -3, -3, -3},
		[6]lattice.Unit{p.X + 3, p.Y + 3, 3, 3, 3, 3},
	)
}

// shrinkGoal pulls a goal box inward by pos units per face on the position
// axes and vel units per face on the velocity axes before it is handed to
// the solver, so the simulator's goal detection stays strictly looser
// than the solver's, leaving a margin for rounding.
func shrinkGoal(g lattice.StateSpace6D, pos, vel lattice.Unit) lattice.StateSpace6D {
	return g.ExtendAbsolute([6]lattice.Unit{-pos, -pos, -pos, -vel, -vel, -vel})
}

func minUnit(a, b lattice.Unit) lattice.Unit {
	if a < b {
		return a
	}
	return b
}

func maxUnit(a, b lattice.Unit) lattice.Unit {
	if a > b {
		return a
	}
	return b
}
