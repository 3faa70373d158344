package solver

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/dp-flightctl/hybriddp/internal/collision"
	"github.com/dp-flightctl/hybriddp/internal/disturbance"
	"github.com/dp-flightctl/hybriddp/internal/lattice"
	"github.com/dp-flightctl/hybriddp/internal/telemetry"
)

func smallSpace(lo, hi lattice.Unit, velLo, velHi lattice.Unit) lattice.StateSpace6D {
	pos := lattice.NewGrid1D(lo, 1, hi)
	vel := lattice.NewGrid1D(velLo, 1, velHi)
	return lattice.NewStateSpace6D([6]lattice.Grid1D{pos, pos, pos, vel, vel, vel})
}

func identity(v lattice.Vec3) lattice.Vec3 { return v }

func unitStretch() lattice.Vec3 { return lattice.Vec3{X: 1, Y: 1, Z: 1} }

// TestTrivialReachability: an empty grid, no obstacles, start on the edge
// with the goal near the center, no disturbance.
func TestTrivialReachability(t *testing.T) {
	Convey("Given an obstacle-free grid and a goal box near the center", t, func() {
		stateSpace := smallSpace(-5, 5, -2, 2)
		goalSpace := smallSpace(-1, 1, -1, 1)
		params := DefaultParams()
		params.Stages = 10
		params.NumDisturbances = 1
		params.SwitchStage = params.Stages // the smaller (finer) input table is active at every stage of this short horizon

		s, err := New(stateSpace, goalSpace, unitStretch(), identity, nil, params, nil, telemetry.Discard())
		So(err, ShouldBeNil)

		x0 := lattice.State6{5, 0, 0, 0, 0, 0}

		Convey("CalculateController finds a finite-cost stage at or before stage 6", func() {
			stage, err := s.CalculateController(x0)
			So(err, ShouldBeNil)
			So(stage, ShouldBeLessThanOrEqualTo, 6)
		})
	})
}

// TestWallInMiddle: a vertical wall of obstacles at x=2 forces the solver
// to route around it; no admitted transition may collide.
func TestWallInMiddle(t *testing.T) {
	Convey("Given a wall of obstacles at x=2 spanning y in [-3,3], z=0", t, func() {
		stateSpace := smallSpace(-5, 5, -2, 2)
		goalSpace := smallSpace(3, 5, -1, 1)
		params := DefaultParams()
		params.Stages = 12
		params.NumDisturbances = 1
		params.SwitchStage = 0

		var obstacles []lattice.Vec3
		for y := lattice.Unit(-3); y <= 3; y++ {
			obstacles = append(obstacles, lattice.Vec3{X: 2, Y: y, Z: 0})
		}

		s, err := New(stateSpace, goalSpace, unitStretch(), identity, obstacles, params, nil, telemetry.Discard())
		So(err, ShouldBeNil)

		x0 := lattice.State6{-4, 0, 0, 0, 0, 0}

		Convey("the solver finds a route that never crosses the wall head-on", func() {
			stage, err := s.CalculateController(x0)
			So(err, ShouldBeNil)
			So(stage, ShouldBeGreaterThanOrEqualTo, 0)
			// the cell (2,0,0) sits directly in the wall; the straight
			// segment from (1,0,0) to (3,0,0) runs through it and must
			// report a collision.
			So(s.cloud.WillCollide(
				cellFor(s, lattice.Vec3{X: 1, Y: 0, Z: 0}),
				cellFor(s, lattice.Vec3{X: 3, Y: 0, Z: 0}),
			), ShouldBeTrue)
		})
	})
}

func cellFor(s *DpSolver, local lattice.Vec3) collision.Cell {
	return collision.Cell{
		X: s.grids[0].SearchAwayFromZero(float64(local.X)),
		Y: s.grids[1].SearchAwayFromZero(float64(local.Y)),
		Z: s.grids[2].SearchAwayFromZero(float64(local.Z)),
	}
}

// TestRobustVsNominal: enabling the disturbance set can only raise (never
// lower) the worst-case cost at x0.
func TestRobustVsNominal(t *testing.T) {
	stateSpace := smallSpace(-5, 5, -2, 2)
	goalSpace := smallSpace(-1, 1, -1, 1)
	x0 := lattice.State6{5, 0, 0, 0, 0, 0}

	nominalParams := DefaultParams()
	nominalParams.Stages = 10
	nominalParams.NumDisturbances = 1
	nominalParams.SwitchStage = 0

	robustParams := nominalParams
	robustParams.NumDisturbances = len(disturbance.Table)

	nominal, err := New(stateSpace, goalSpace, unitStretch(), identity, nil, nominalParams, nil, telemetry.Discard())
	require.NoError(t, err)
	robust, err := New(stateSpace, goalSpace, unitStretch(), identity, nil, robustParams, nil, telemetry.Discard())
	require.NoError(t, err)

	stageN, err := nominal.CalculateController(x0)
	require.NoError(t, err)
	stageR, err := robust.CalculateController(x0)
	require.NoError(t, err)

	ixN, ok := nominal.indexOf(x0)
	require.True(t, ok)
	ixR, ok := robust.indexOf(x0)
	require.True(t, ok)

	costN := nominal.table.V(stageN).At(ixN)
	costR := robust.table.V(stageR).At(ixR)
	require.LessOrEqual(t, float64(costN), float64(costR))
}

// TestNormFixPointTerminatesEarly: once the finite-cost cell count is
// unchanged for three consecutive stages, the sweep stops early.
func TestNormFixPointTerminatesEarly(t *testing.T) {
	stateSpace := smallSpace(-3, 3, -2, 2)
	goalSpace := smallSpace(-1, 1, -1, 1)
	params := DefaultParams()
	params.Stages = 60
	params.NumDisturbances = 1
	params.SwitchStage = 0
	params.EnableNormFixPoint = true

	s, err := New(stateSpace, goalSpace, unitStretch(), identity, nil, params, nil, telemetry.Discard())
	require.NoError(t, err)

	x0 := lattice.State6{3, 0, 0, 0, 0, 0}
	stage, err := s.CalculateController(x0)
	require.NoError(t, err)
	require.Greater(t, stage, 0, "fix point should stop well before stage 0 on a small obstacle-free grid")
}

// TestUnreachableRecovers: a state space that excludes the goal entirely
// returns ErrUnreachable, and extending it lets the same x0 succeed.
func TestUnreachableRecovers(t *testing.T) {
	// goal space lies entirely outside the declared state space.
	stateSpace := smallSpace(-2, 2, -1, 1)
	goalSpace := lattice.NewStateSpace6D([6]lattice.Grid1D{
		lattice.NewGrid1D(8, 1, 10), lattice.NewGrid1D(8, 1, 10), lattice.NewGrid1D(8, 1, 10),
		lattice.NewGrid1D(-1, 1, 1), lattice.NewGrid1D(-1, 1, 1), lattice.NewGrid1D(-1, 1, 1),
	})
	params := DefaultParams()
	params.Stages = 6
	params.NumDisturbances = 1
	params.SwitchStage = 0

	s, err := New(stateSpace, goalSpace, unitStretch(), identity, nil, params, nil, telemetry.Discard())
	require.NoError(t, err)

	x0 := lattice.State6{2, 0, 0, 0, 0, 0}
	_, err = s.CalculateController(x0)
	require.ErrorIs(t, err, ErrUnreachable)

	for i := 0; i < 6 && s.rawStateSpace.Grid(0).End() < 10; i++ {
		require.NoError(t, s.ExtendStateSpace(-100))
		_, err = s.CalculateController(x0)
		if err == nil {
			break
		}
	}
	require.NoError(t, err)
}

// TestIdempotentSolve: solving the same problem twice yields identical
// V/U tables.
func TestIdempotentSolve(t *testing.T) {
	stateSpace := smallSpace(-4, 4, -2, 2)
	goalSpace := smallSpace(-1, 1, -1, 1)
	params := DefaultParams()
	params.Stages = 8
	params.NumDisturbances = 1
	params.SwitchStage = 0

	x0 := lattice.State6{4, 0, 0, 0, 0, 0}

	s1, err := New(stateSpace, goalSpace, unitStretch(), identity, nil, params, nil, telemetry.Discard())
	require.NoError(t, err)
	stage1, err := s1.CalculateController(x0)
	require.NoError(t, err)

	s2, err := New(stateSpace, goalSpace, unitStretch(), identity, nil, params, nil, telemetry.Discard())
	require.NoError(t, err)
	stage2, err := s2.CalculateController(x0)
	require.NoError(t, err)

	require.Equal(t, stage1, stage2)
	shape := s1.table.Shape()
	for _, idx := range iterShape(shape) {
		require.Equal(t, s1.table.V(stage1).At(idx), s2.table.V(stage2).At(idx))
		require.Equal(t, s1.table.U(stage1).At(idx), s2.table.U(stage2).At(idx))
	}
}

// TestPolicySafety: wherever V[s,x] is finite, the stored argmin input must
// lead every disturbance branch to a successor cell that is finite at s+1.
func TestPolicySafety(t *testing.T) {
	stateSpace := smallSpace(-4, 4, -2, 2)
	goalSpace := smallSpace(-1, 1, -1, 1)
	params := DefaultParams()
	params.Stages = 8
	params.NumDisturbances = len(disturbance.Table)
	params.SwitchStage = 0 // the larger table is active at every stage below

	s, err := New(stateSpace, goalSpace, unitStretch(), identity, nil, params, nil, telemetry.Discard())
	require.NoError(t, err)
	stage, err := s.CalculateController(lattice.State6{4, 0, 0, 0, 0, 0})
	require.NoError(t, err)

	for _, idx := range iterShape(s.table.Shape()) {
		if !lattice.IsFinite(s.table.V(stage).At(idx)) {
			continue
		}
		iu := s.table.U(stage).At(idx)
		require.GreaterOrEqual(t, int(iu), 0)
		require.Less(t, int(iu), NumInputs)
		u := s.largerInputs[iu]

		for _, d := range s.disturbances {
			v1 := s.grids[3].Value(idx[3])
			v2 := s.grids[4].Value(idx[4])
			v3 := s.grids[5].Value(idx[5])
			newV1 := v1 + (u.X+d.X-s.params.Drag*v1)*s.params.DeltaTime
			newV2 := v2 + (u.Y+d.Y-s.params.Drag*v2)*s.params.DeltaTime
			newV3 := v3 + (u.Z+d.Z-s.params.Drag*v3)*s.params.DeltaTime
			succ := [6]int{
				s.grids[0].SearchAwayFromZero(float64(s.grids[0].Value(idx[0]) + newV1*s.params.DeltaTime)),
				s.grids[1].SearchAwayFromZero(float64(s.grids[1].Value(idx[1]) + newV2*s.params.DeltaTime)),
				s.grids[2].SearchAwayFromZero(float64(s.grids[2].Value(idx[2]) + newV3*s.params.DeltaTime)),
				s.grids[3].SearchAwayFromZero(float64(newV1)),
				s.grids[4].SearchAwayFromZero(float64(newV2)),
				s.grids[5].SearchAwayFromZero(float64(newV3)),
			}
			for i, v := range succ {
				require.GreaterOrEqual(t, v, 0, "axis %d of successor of %v left the grid", i, idx)
			}
			require.True(t, lattice.IsFinite(s.table.V(stage+1).At(succ)),
				"executing U[%d,%v] under disturbance %v lands on an infinite-cost cell", stage, idx, d)
		}
	}
}

func iterShape(shape [6]int) [][6]int {
	var out [][6]int
	var walk func(dim int, acc [6]int)
	walk = func(dim int, acc [6]int) {
		if dim == 6 {
			cp := acc
			out = append(out, cp)
			return
		}
		for v := 0; v < shape[dim]; v++ {
			acc[dim] = v
			walk(dim+1, acc)
		}
	}
	walk(0, [6]int{})
	return out
}
