// Package leg implements the hybrid-automaton leg driver: a closed tagged
// variant over three flight phases (Starting, Cruising, Landing) plus a
// terminal Done state, each contributing its state/goal geometry and an
// exit test. The variants are closed, so phase is an enum dispatched
// through small switches, not an open interface hierarchy.
package leg

import (
	"github.com/pkg/errors"

	"github.com/dp-flightctl/hybriddp/internal/disturbance"
	"github.com/dp-flightctl/hybriddp/internal/lattice"
	"github.com/dp-flightctl/hybriddp/internal/observer"
	"github.com/dp-flightctl/hybriddp/internal/route"
	"github.com/dp-flightctl/hybriddp/internal/solver"
	"github.com/dp-flightctl/hybriddp/internal/stats"
	"github.com/dp-flightctl/hybriddp/internal/telemetry"
)

// Phase names the hybrid automaton's four states.
type Phase int

const (
	Starting Phase = iota
	Cruising
	Landing
	Done
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "Starting"
	case Cruising:
		return "Cruising"
	case Landing:
		return "Landing"
	default:
		return "Done"
	}
}

// Options configures a Driver; any nil or zero field takes the documented
// default.
type Options struct {
	Params solver.Params
	// R is the sub-tick period: one policy stage spans R simulation steps
	// of DeltaTime/R each. Default 1.
	R                        int
	GroundFloor              lattice.Unit // world-frame ground plane, default 0
	StretchPolicy            solver.StretchPolicy
	Disturbance              disturbance.Source
	ApplyDisturbance         bool
	UseSingleStageController bool
	Hooks                    observer.Hooks
	Recorder                 stats.Recorder
	Log                      *telemetry.Logger
}

// Driver runs the hybrid automaton for one route: it owns the current
// continuous state, the active phase and target waypoint, the bound
// DpSolver (destroyed on every phase transition), and the major/minor time
// counters governing policy extraction.
type Driver struct {
	route *route.Route
	opts  Options

	phase Phase
	wpID  route.WaypointID
	x     lattice.State6
	major int
	minor int
	solv  *solver.DpSolver

	worldObstacles []lattice.Vec3
}

// New builds a Driver resting at the route's launch pad (route[0]) in the
// Starting phase, targeting the first airborne waypoint (route[1], which
// shares the pad's x/y).
func New(r *route.Route, obstacles []lattice.Vec3, opts Options) *Driver {
	if opts.R <= 0 {
		opts.R = 1
	}
	if opts.StretchPolicy == nil {
		opts.StretchPolicy = solver.IdentityStretch
	}
	if opts.Disturbance == nil {
		opts.Disturbance = disturbance.Zero{}
	}
	if opts.Recorder == nil {
		opts.Recorder = stats.NoOp{}
	}
	if opts.Log == nil {
		opts.Log = telemetry.Discard()
	}
	if opts.Params.Stages == 0 {
		opts.Params = solver.DefaultParams()
	}
	pad, _ := r.At(0)
	return &Driver{
		route:          r,
		opts:           opts,
		phase:          Starting,
		wpID:           1,
		x:              lattice.State6{float64(pad.X), float64(pad.Y), float64(pad.Z), 0, 0, 0},
		worldObstacles: obstacles,
	}
}

// Phase returns the driver's current automaton phase.
func (d *Driver) Phase() Phase { return d.phase }

// State returns the driver's current world-frame continuous state.
func (d *Driver) State() lattice.State6 { return d.x }

// Waypoint returns the current target waypoint's ID.
func (d *Driver) Waypoint() route.WaypointID { return d.wpID }

// goalSpace returns the current phase's world-frame goal box, unshrunk:
// the box the simulator's transition test runs against. On Starting and
// Cruising legs it is strictly looser than the shrunk goal the solver is
// given; on a Landing leg the solver gets this same box, unshrunk.
func (d *Driver) goalSpace() (lattice.StateSpace6D, bool) {
	p, ok := d.route.At(d.wpID)
	if !ok {
		return lattice.StateSpace6D{}, false
	}
	switch d.phase {
	case Starting:
		nextP, ok := d.route.At(d.wpID + 1)
		if !ok {
			return lattice.StateSpace6D{}, false
		}
		return cruisingStateSpace(waypointState(p), nextP), true
	case Cruising:
		nextP, ok := d.route.At(d.wpID + 1)
		if !ok {
			return lattice.StateSpace6D{}, false
		}
		if nextP.Z != 0 {
			return cruisingStateSpace(waypointState(p), nextP), true
		}
		return landingStateSpace(waypointState(p), nextP), true
	case Landing:
		return landingGoalBox(p), true
	default:
		return lattice.StateSpace6D{}, false
	}
}

// invariantSpace is the box the current state is expected to stay inside
// for the duration of the phase. It is rebuilt from the phase's declared
// geometry, not the solver's possibly-extended working space: an extension
// is a recovery measure, not a relaxation of the leg's contract.
func (d *Driver) invariantSpace() (lattice.StateSpace6D, bool) {
	p, ok := d.route.At(d.wpID)
	if !ok {
		return lattice.StateSpace6D{}, false
	}
	switch d.phase {
	case Starting:
		return startingStateSpace(p), true
	case Cruising:
		return cruisingStateSpace(d.x, p), true
	case Landing:
		return landingStateSpace(d.x, p), true
	default:
		return lattice.StateSpace6D{}, false
	}
}

// ensureSolver builds a solver for the current phase if none is bound yet:
// phase geometry in world frame, goal shrink, offset into leg-local
// coordinates, then the calculate/extend/retry loop until the initial
// state is covered.
func (d *Driver) ensureSolver() error {
	if d.solv != nil {
		return nil
	}
	p, ok := d.route.At(d.wpID)
	if !ok {
		return errors.Errorf("leg: no waypoint %v", d.wpID)
	}

	var stateSpace lattice.StateSpace6D
	goalSpace, ok := d.goalSpace()
	if !ok {
		return errors.Errorf("leg: no goal geometry for phase %s at %v", d.phase, d.wpID)
	}

	stretch := lattice.Vec3{X: 1, Y: 1, Z: 1}
	switch d.phase {
	case Starting:
		stateSpace = startingStateSpace(p).Offset(p)
		goalSpace = shrinkGoal(goalSpace, 2, 1).Offset(p)
	case Cruising:
		stateSpace = cruisingStateSpace(d.x, p).Offset(p)
		goalSpace = shrinkGoal(goalSpace, 1, 1).Offset(p)
		stateSpace = stateSpace.ExtendAbsolute(velocityExtension(stateSpace))
		stretch = solver.ResolveStretch(d.opts.StretchPolicy, stateSpace, goalSpace, d.localState(p))
		if stretch != (lattice.Vec3{X: 1, Y: 1, Z: 1}) {
			stateSpace = stateSpace.ExtendForStretching(stretch)
			goalSpace = goalSpace.ExtendForStretching(stretch)
		}
	case Landing:
		stateSpace = landingStateSpace(d.x, p).Offset(p)
		goalSpace = goalSpace.Offset(p) // landing goal is never shrunk
	default:
		return errors.Errorf("leg: no solver geometry for phase %s", d.phase)
	}

	worldToLocal := func(w lattice.Vec3) lattice.Vec3 { return w.Sub(p) }
	s, err := solver.New(stateSpace, goalSpace, stretch, worldToLocal, d.worldObstacles, d.opts.Params, d.opts.Recorder, d.opts.Log)
	if err != nil {
		return err
	}

	localX := d.localState(p)
	for {
		stage, err := s.CalculateController(localX)
		if err == nil {
			d.solv = s
			d.major = stage
			d.minor = 0
			return nil
		}
		if !errors.Is(err, solver.ErrUnreachable) {
			return err
		}
		d.opts.Log.Warnf("leg: no path from x0, extending state space and recalculating")
		if err := s.ExtendStateSpace(d.opts.GroundFloor - p.Z); err != nil {
			return err
		}
	}
}

// localState translates the current state into leg-local coordinates:
// position relative to the target waypoint, velocity unchanged.
func (d *Driver) localState(p lattice.Vec3) lattice.State6 {
	local := d.x
	local[0] -= float64(p.X)
	local[1] -= float64(p.Y)
	local[2] -= float64(p.Z)
	return local
}

// Tick advances the simulation by one sub-step: extract a control, flow
// the dynamics with the injected
// disturbance, advance the time counters, then run the invariant and
// transition checks on the updated state. It is the caller's main-loop
// primitive: call it repeatedly until Phase() == Done.
func (d *Driver) Tick() error {
	if d.phase == Done {
		return nil
	}
	if err := d.ensureSolver(); err != nil {
		return err
	}

	p, _ := d.route.At(d.wpID)
	u, err := d.solv.GetControl(d.localState(p), d.major)
	if errors.Is(err, solver.ErrPolicyOutOfHorizon) {
		// Policy index exhaustion: reset the counters, drop the solver,
		// rebuild on the next tick.
		d.opts.Log.Errorf("leg: %v", err)
		d.solv = nil
		d.major = 0
		d.minor = 0
		return nil
	}
	if err != nil {
		return err
	}

	dist := disturbance.Table[0]
	if d.opts.ApplyDisturbance {
		dist = d.opts.Disturbance.Next()
	}

	dt := float64(d.opts.Params.DeltaTime) / float64(d.opts.R)
	drag := float64(d.opts.Params.Drag)
	for i := 0; i < 3; i++ {
		v := d.x[3+i]
		newV := v + (float64(u.Index(i)+dist.Index(i))-drag*v)*dt
		d.x[3+i] = newV
		d.x[i] += newV * dt
	}

	d.opts.Hooks.Step(observer.StepEvent{
		Leg:       int(d.wpID),
		MajorTime: d.major,
		MinorTime: d.minor,
		State:     d.x,
		Control:   u,
	})

	d.minor++
	if d.minor >= d.opts.R {
		d.minor = 0
		if d.opts.UseSingleStageController {
			d.major++
		}
	}

	if inv, ok := d.invariantSpace(); ok && !inv.Contains(d.x) {
		d.opts.Log.Errorf("leg: invariant does not hold at %v", d.x)
		d.opts.Hooks.Invariant(observer.InvariantViolation{Leg: int(d.wpID), State: d.x})
	}

	if goal, ok := d.goalSpace(); ok && goal.Contains(d.x) {
		d.transition()
	}
	return nil
}

// transition advances the automaton: the next phase is decided by the
// phase being left (Starting always hands over to Cruising; Cruising hands
// over to Landing when the next waypoint is on the ground; Landing is
// terminal), the waypoint counter advances, the solver is dropped and both
// time counters reset.
func (d *Driver) transition() {
	from := d.phase
	d.solv = nil
	d.major = 0
	d.minor = 0
	d.wpID++

	switch from {
	case Starting:
		d.phase = Cruising
	case Cruising:
		if d.route.IsLanding(d.wpID) {
			d.phase = Landing
		} else {
			d.phase = Cruising
		}
	default:
		d.phase = Done
	}

	d.opts.Hooks.Phase(observer.PhaseEvent{
		Leg:       int(d.wpID),
		FromPhase: from.String(),
		ToPhase:   d.phase.String(),
		State:     d.x,
	})
}
