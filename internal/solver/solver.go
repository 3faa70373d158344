// Package solver implements the backward value-iteration DP core: a
// min-max Bellman solve over a 6-D grid with stage-level parallelism,
// obstacle-aware running cost and fix-point early termination.
package solver

import (
	"math"
	"sync"

	channerics "github.com/niceyeti/channerics/channels"
	"github.com/pkg/errors"

	"github.com/dp-flightctl/hybriddp/internal/collision"
	"github.com/dp-flightctl/hybriddp/internal/disturbance"
	"github.com/dp-flightctl/hybriddp/internal/lattice"
	"github.com/dp-flightctl/hybriddp/internal/stats"
	"github.com/dp-flightctl/hybriddp/internal/telemetry"
)

// DpSolver owns one value-iteration problem: a state/goal space pair, the
// collision cloud, and the resulting ValueTable. One instance is built per
// leg and destroyed on phase transition.
type DpSolver struct {
	params Params

	rawStateSpace lattice.StateSpace6D // before stretch division, for re-extension on recovery
	rawGoalSpace  lattice.StateSpace6D
	stretchFactor lattice.Vec3

	stateSpace lattice.StateSpace6D // stretch-divided working geometry
	stretching bool

	grids   [6]lattice.Grid1D
	lengths [6]int

	smallerInputs [NumInputs]lattice.Vec3
	largerInputs  [NumInputs]lattice.Vec3
	disturbances  []lattice.Vec3

	worldObstacles []lattice.Vec3
	worldToLocal   func(lattice.Vec3) lattice.Vec3
	cloud          *collision.Cloud

	oCost     []float32 // flattened (l0,l1,l2), precomputed obstacle-proximity term
	oCostUsed bool

	table *lattice.ValueTable

	lastIX0       [6]int
	haveLastIX0   bool
	initialRegion [][6]int

	recorder stats.Recorder
	log      *telemetry.Logger
}

// New builds a DpSolver and performs the initial (re)initialization.
// worldObstacles are already-parsed world-frame obstacle points; worldToLocal
// translates a world point into this leg's local (pre-stretch) coordinates.
func New(
	stateSpace, goalSpace lattice.StateSpace6D,
	stretchFactor lattice.Vec3,
	worldToLocal func(lattice.Vec3) lattice.Vec3,
	worldObstacles []lattice.Vec3,
	params Params,
	recorder stats.Recorder,
	log *telemetry.Logger,
) (*DpSolver, error) {
	if recorder == nil {
		recorder = stats.NoOp{}
	}
	if log == nil {
		log = telemetry.Discard()
	}
	s := &DpSolver{
		params:         params,
		rawStateSpace:  stateSpace,
		rawGoalSpace:   goalSpace,
		stretchFactor:  stretchFactor,
		worldObstacles: worldObstacles,
		worldToLocal:   worldToLocal,
		recorder:       recorder,
		log:            log,
	}
	if err := s.Reinitialize(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reinitialize rebuilds grids, tables, input/disturbance scaling and the
// collision cloud from the current raw state/goal space and stretch factor.
// It re-projects the already-parsed world obstacle list rather than
// re-reading any file, so a retried leg never touches the filesystem.
func (s *DpSolver) Reinitialize() error {
	if s.stretchFactor.X < 1 || s.stretchFactor.Y < 1 || s.stretchFactor.Z < 1 {
		return errors.New("solver: stretch factor must be >= 1 on every axis")
	}

	s.stateSpace = s.rawStateSpace.DivideByStretch(s.stretchFactor)
	s.stretching = s.stretchFactor.X > 1 || s.stretchFactor.Y > 1 || s.stretchFactor.Z > 1

	numStates := 1
	for i := 0; i < 6; i++ {
		s.grids[i] = s.stateSpace.Grid(i)
		s.lengths[i] = s.grids[i].Len()
		numStates *= s.lengths[i]
	}

	smallerAmp, largerAmp := inputAmplitudesForStretch(s.stretchFactor)
	s.smallerInputs = BuildInputs(smallerAmp)
	s.largerInputs = BuildInputs(largerAmp)

	s.disturbances = make([]lattice.Vec3, s.params.NumDisturbances)
	for i := 0; i < s.params.NumDisturbances; i++ {
		s.disturbances[i] = disturbance.Table[i].DivComponents(s.stretchFactor)
	}

	s.cloud = collision.NewCloud(s.lengths[0], s.lengths[1], s.lengths[2], collision.DefaultMinDistanceMeters, 1)
	for _, world := range s.worldObstacles {
		local := s.worldToLocal(world).DivComponents(s.stretchFactor)
		cell := collision.Cell{
			X: s.grids[0].SearchClosest(float64(local.X)),
			Y: s.grids[1].SearchClosest(float64(local.Y)),
			Z: s.grids[2].SearchClosest(float64(local.Z)),
		}
		if cell.X < 0 || cell.Y < 0 || cell.Z < 0 {
			continue // obstacle falls outside this leg's local grid entirely
		}
		s.cloud.Add(cell)
	}

	s.table = lattice.NewValueTable(s.params.Stages, s.lengths)

	s.haveLastIX0 = false
	s.initialRegion = nil

	s.log.Debugf("solver: reinitialized, %d states/stage, %d obstacles", numStates, len(s.cloud.Obstacles()))
	return nil
}

// indexOf converts a continuous state into its 6-tuple lattice index using
// the conservative (away-from-zero) rounding mode, dividing position and
// velocity components by the stretch factor first.
func (s *DpSolver) indexOf(x lattice.State6) (idx [6]int, valid bool) {
	for i := 0; i < 6; i++ {
		f := x[i] / float64(s.stretchFactor.Index(i%3))
		v := s.grids[i].SearchAwayFromZero(f)
		if v < 0 {
			return idx, false
		}
		idx[i] = v
	}
	return idx, true
}

// CalculateController runs the backward value iteration for x0 and returns
// the stage at which the sweep stopped: the stage where an enabled
// fix-point test ended it, else stage 0. It returns ErrUnreachable when x0
// lies outside the state space or x0's initial region does not have finite
// cost at that stopping stage; earlier-computed stages are not searched.
func (s *DpSolver) CalculateController(x0 lattice.State6) (int, error) {
	ix0, ok := s.indexOf(x0)
	if !ok {
		return -1, ErrUnreachable
	}

	terminal := s.fillTerminalCosts()
	s.log.Debugf("solver: %d states in goal space at terminal stage", terminal)

	s.precomputeObstacleCost()

	stages := s.params.Stages
	inputs := &s.smallerInputs

	finiteStatesUnchanged := 0
	lastFinite := -1
	stage := stages - 2
	for ; stage >= 0; stage-- {
		if stages-stage > s.params.SwitchStage {
			inputs = &s.largerInputs
		}

		allFinite := s.runStageParallel(stage, *inputs)

		if allFinite == lastFinite {
			finiteStatesUnchanged++
		} else {
			finiteStatesUnchanged = 0
		}
		lastFinite = allFinite

		if finiteStatesUnchanged == 2 && s.params.EnableNormFixPoint {
			break
		}
		if s.params.EnableInitialFixPoint && s.initialRegionIsCovered(stage, ix0) {
			break
		}
	}
	if stage < 0 {
		stage = 0
	}

	if s.initialRegionIsCovered(stage, ix0) {
		s.recorder.RecordSolve(terminal, stages)
		return stage, nil
	}
	return -1, ErrUnreachable
}

// runStageParallel partitions [0, lengths[3]) into NumWorkers contiguous
// chunks over the outermost velocity axis (i_v1) and fans them out as
// goroutines; each worker reads only V[stage+1]/U[stage+1] and writes its
// own disjoint i_v1 slice of V[stage]/U[stage], so the only shared mutable
// state is the collision cache. Per-worker finite counts are collected
// through channerics.Merge and summed single-threaded after the join.
func (s *DpSolver) runStageParallel(stage int, inputs [NumInputs]lattice.Vec3) int {
	numWorkers := s.params.NumWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	n := s.lengths[3]
	chunk := n / numWorkers
	rest := n - chunk*numWorkers

	done := make(chan struct{})
	defer close(done)

	counts := make([]<-chan int, 0, numWorkers)
	start := 0
	for w := 0; w < numWorkers; w++ {
		end := start + chunk
		if w < rest {
			end++
		}
		if start >= end {
			start = end
			continue
		}
		ch := make(chan int, 1)
		counts = append(counts, ch)
		go func(startV1, endV1 int, out chan<- int) {
			out <- s.calculateStagePartition(stage, startV1, endV1, inputs)
			close(out)
		}(start, end, ch)
		start = end
	}

	total := 0
	for c := range channerics.Merge(done, counts...) {
		total += c
	}
	return total
}

// calculateStagePartition is the single-threaded worker body: the full
// min-max Bellman update over a contiguous i_v1 range.
func (s *DpSolver) calculateStagePartition(stage, startV1, endV1 int, inputs [NumInputs]lattice.Vec3) int {
	numD := s.params.NumDisturbances
	V := s.table.V(stage)
	Vnext := s.table.V(stage + 1)
	U := s.table.U(stage)

	finite := 0
	negInf := -lattice.PosInf

	for iv1 := startV1; iv1 < endV1; iv1++ {
		v1 := s.grids[3].Value(iv1)
		for iv2 := 0; iv2 < s.lengths[4]; iv2++ {
			v2 := s.grids[4].Value(iv2)
			for iv3 := 0; iv3 < s.lengths[5]; iv3++ {
				v3 := s.grids[5].Value(iv3)
				for ic1 := 0; ic1 < s.lengths[0]; ic1++ {
					c1 := s.grids[0].Value(ic1)
					for ic2 := 0; ic2 < s.lengths[1]; ic2++ {
						c2 := s.grids[1].Value(ic2)
						for ic3 := 0; ic3 < s.lengths[2]; ic3++ {
							c3 := s.grids[2].Value(ic3)

							minCost := lattice.PosInf
							argmin := lattice.NoInput

							for i := 0; i < NumInputs; i++ {
								u := inputs[i]
								maxCost := negInf

								for j := 0; j < numD; j++ {
									d := s.disturbances[j]

									newV1 := v1 + (u.X+d.X-s.params.Drag*v1)*s.params.DeltaTime
									newV2 := v2 + (u.Y+d.Y-s.params.Drag*v2)*s.params.DeltaTime
									newV3 := v3 + (u.Z+d.Z-s.params.Drag*v3)*s.params.DeltaTime

									iNewV1 := s.grids[3].SearchAwayFromZero(float64(newV1))
									iNewV2 := s.grids[4].SearchAwayFromZero(float64(newV2))
									iNewV3 := s.grids[5].SearchAwayFromZero(float64(newV3))

									var cost float32
									switch {
									case iNewV1 < 0 || iNewV2 < 0 || iNewV3 < 0:
										cost = lattice.PosInf
									default:
										newC1 := c1 + newV1*s.params.DeltaTime
										newC2 := c2 + newV2*s.params.DeltaTime
										newC3 := c3 + newV3*s.params.DeltaTime
										iNewC1 := s.grids[0].SearchAwayFromZero(float64(newC1))
										iNewC2 := s.grids[1].SearchAwayFromZero(float64(newC2))
										iNewC3 := s.grids[2].SearchAwayFromZero(float64(newC3))

										switch {
										case iNewC1 < 0 || iNewC2 < 0 || iNewC3 < 0:
											cost = lattice.PosInf
										default:
											oldCell := collision.Cell{X: ic1, Y: ic2, Z: ic3}
											newCell := collision.Cell{X: iNewC1, Y: iNewC2, Z: iNewC3}

											if s.cloud.WillCollide(oldCell, newCell) {
												cost = lattice.PosInf
											} else {
												succ := lattice.State6{float64(newC1), float64(newC2), float64(newC3), float64(newV1), float64(newV2), float64(newV3)}
												running := s.runningCost(succ, u, ic1, ic2, ic3)
												next := Vnext.At([6]int{iNewC1, iNewC2, iNewC3, iNewV1, iNewV2, iNewV3})
												cost = running + next
											}
										}
									}

									if cost > maxCost {
										maxCost = cost
									}
								}

								if maxCost < minCost {
									minCost = maxCost
									argmin = int16(i)
								}
							}

							idx := [6]int{ic1, ic2, ic3, iv1, iv2, iv3}
							V.Set(idx, minCost)
							U.Set(idx, argmin)
							if lattice.IsFinite(minCost) {
								finite++
							}
						}
					}
				}
			}
		}
	}
	return finite
}

// goalContains tests a coarse (stretch-divided) state against the goal
// space, which is kept in unstretched coordinates: the state is scaled back
// up per axis before the containment test, so endpoint rounding from an
// integer division of the goal box never changes the answer.
func (s *DpSolver) goalContains(x lattice.State6) bool {
	if !s.stretching {
		return s.rawGoalSpace.Contains(x)
	}
	var stretched lattice.State6
	for i := 0; i < 6; i++ {
		stretched[i] = x[i] * float64(s.stretchFactor.Index(i%3))
	}
	return s.rawGoalSpace.Contains(stretched)
}

// runningCost is the one-step cost g evaluated at the successor state x:
// zero inside the goal space, else |u|^2+|x|^2 scaled by delta-time, plus
// the optional obstacle proximity term at the predecessor's position cell.
func (s *DpSolver) runningCost(x lattice.State6, u lattice.Vec3, ic1, ic2, ic3 int) float32 {
	if s.goalContains(x) {
		return 0
	}
	cost := float64(u.X*u.X + u.Y*u.Y + u.Z*u.Z)
	for i := 0; i < 6; i++ {
		cost += x[i] * x[i]
	}
	if s.oCostUsed {
		cost += float64(s.oCostAt(ic1, ic2, ic3))
	}
	return float32(cost) * float32(s.params.DeltaTime)
}

func (s *DpSolver) oCostIndex(ic1, ic2, ic3 int) int {
	return (ic1*s.lengths[1]+ic2)*s.lengths[2] + ic3
}

func (s *DpSolver) oCostAt(ic1, ic2, ic3 int) float32 {
	return s.oCost[s.oCostIndex(ic1, ic2, ic3)]
}

// precomputeObstacleCost fills the lambda/dist_to_nearest_obstacle term for
// every position cell, skipping the pass entirely when disabled or the
// obstacle set is empty.
func (s *DpSolver) precomputeObstacleCost() {
	if s.params.CollisionCostFactor == 0 || len(s.cloud.Obstacles()) == 0 {
		s.oCostUsed = false
		return
	}
	s.oCostUsed = true
	s.oCost = make([]float32, s.lengths[0]*s.lengths[1]*s.lengths[2])
	obstacles := s.cloud.Obstacles()

	var wg sync.WaitGroup
	for ic1 := 0; ic1 < s.lengths[0]; ic1++ {
		wg.Add(1)
		go func(ic1 int) {
			defer wg.Done()
			for ic2 := 0; ic2 < s.lengths[1]; ic2++ {
				for ic3 := 0; ic3 < s.lengths[2]; ic3++ {
					minDist2 := math.MaxFloat64
					for _, ob := range obstacles {
						dx := float64(ic1 - ob.X)
						dy := float64(ic2 - ob.Y)
						dz := float64(ic3 - ob.Z)
						d2 := dx*dx + dy*dy + dz*dz
						if d2 < minDist2 {
							minDist2 = d2
						}
					}
					cost := s.params.CollisionCostFactor / math.Sqrt(minDist2)
					s.oCost[s.oCostIndex(ic1, ic2, ic3)] = float32(cost)
				}
			}
		}(ic1)
	}
	wg.Wait()
}

// fillTerminalCosts sets V[S-1,x] = 0 for x in goal_space, +Inf elsewhere.
func (s *DpSolver) fillTerminalCosts() int {
	stageIdx := s.params.Stages - 1
	V := s.table.V(stageIdx)
	count := 0
	for c1 := 0; c1 < s.lengths[0]; c1++ {
		for c2 := 0; c2 < s.lengths[1]; c2++ {
			for c3 := 0; c3 < s.lengths[2]; c3++ {
				for v1 := 0; v1 < s.lengths[3]; v1++ {
					for v2 := 0; v2 < s.lengths[4]; v2++ {
						for v3 := 0; v3 < s.lengths[5]; v3++ {
							x := lattice.State6{
								float64(s.grids[0].Value(c1)), float64(s.grids[1].Value(c2)), float64(s.grids[2].Value(c3)),
								float64(s.grids[3].Value(v1)), float64(s.grids[4].Value(v2)), float64(s.grids[5].Value(v3)),
							}
							cost := float32(0)
							if !s.goalContains(x) {
								cost = lattice.PosInf
							} else {
								count++
							}
							V.Set([6]int{c1, c2, c3, v1, v2, v3}, cost)
						}
					}
				}
			}
		}
	}
	return count
}

func (s *DpSolver) initialRegionIsCovered(stage int, ix0 [6]int) bool {
	region := s.getInitialRegion(ix0)
	V := s.table.V(stage)
	for _, idx := range region {
		if !lattice.IsFinite(V.At(idx)) {
			return false
		}
	}
	return true
}

// getInitialRegion lazily builds (and caches) the 6-D cube of radius r
// clamped to grid bounds around ix0.
func (s *DpSolver) getInitialRegion(ix0 [6]int) [][6]int {
	if s.haveLastIX0 && s.lastIX0 == ix0 && len(s.initialRegion) > 0 {
		return s.initialRegion
	}
	r := s.params.InitialRegionRadius
	s.lastIX0 = ix0
	s.haveLastIX0 = true
	s.initialRegion = s.initialRegion[:0]

	var walk func(dim int, acc [6]int)
	walk = func(dim int, acc [6]int) {
		if dim == 6 {
			cp := acc
			s.initialRegion = append(s.initialRegion, cp)
			return
		}
		lo := ix0[dim] - r
		hi := ix0[dim] + r
		for v := lo; v <= hi; v++ {
			if v < 0 || v >= s.lengths[dim] {
				continue
			}
			acc[dim] = v
			walk(dim+1, acc)
		}
	}
	walk(0, [6]int{})
	return s.initialRegion
}

// GetControl returns the control vector for x at stage s, scaled back up by
// the stretch factor.
func (s *DpSolver) GetControl(x lattice.State6, stage int) (lattice.Vec3, error) {
	if stage >= s.params.Stages-1 {
		return lattice.Vec3{}, ErrPolicyOutOfHorizon
	}
	inputs := &s.smallerInputs
	if s.params.Stages-stage > s.params.SwitchStage {
		inputs = &s.largerInputs
	}

	idx, ok := s.indexOf(x)
	if !ok {
		return lattice.Vec3{}, errors.Wrap(ErrUnreachable, "get_control: x outside leg state space")
	}

	iu := s.table.U(stage).At(idx)
	if iu < 0 || int(iu) >= NumInputs {
		return lattice.Vec3{}, errors.Wrapf(ErrInvalidPolicyIndex, "got %d", iu)
	}
	return inputs[iu].MulComponents(s.stretchFactor), nil
}

// ExtendStateSpace grows the position axes by 2 units on both sides,
// leaving velocity axes untouched, then reinitializes. This is the
// recovery step after an unreachable solve. groundFloor clamps the z position axis's
// lower bound so the extension never proposes states below ground.
func (s *DpSolver) ExtendStateSpace(groundFloor lattice.Unit) error {
	var delta [6]lattice.Unit
	delta[0], delta[1], delta[2] = 2, 2, 2
	s.rawStateSpace = s.rawStateSpace.ExtendAbsolute(delta)
	if s.stretching {
		s.rawStateSpace = s.rawStateSpace.ExtendForStretching(s.stretchFactor)
	}
	if s.rawStateSpace.Grid(2).Begin() < groundFloor {
		s.rawStateSpace = lattice.NewStateSpace6D([6]lattice.Grid1D{
			s.rawStateSpace.Grid(0), s.rawStateSpace.Grid(1),
			s.rawStateSpace.Grid(2).WithBounds(groundFloor, s.rawStateSpace.Grid(2).End()),
			s.rawStateSpace.Grid(3), s.rawStateSpace.Grid(4), s.rawStateSpace.Grid(5),
		})
	}
	return s.Reinitialize()
}

// StateSpace returns the current raw (pre-stretch) working state space,
// including any recovery extensions, for diagnostics. The leg driver's
// invariant check does not use it.
func (s *DpSolver) StateSpace() lattice.StateSpace6D { return s.rawStateSpace }
