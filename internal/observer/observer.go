// Package observer implements the leg driver's event hooks: a small fixed
// set of well-typed callbacks rather than a dynamic listener registry,
// since no add/remove is needed at steady state; each leg driver is built
// once with whatever hooks its caller wants wired in.
package observer

import "github.com/dp-flightctl/hybriddp/internal/lattice"

// StepEvent is emitted on every simulation sub-tick.
type StepEvent struct {
	Leg       int
	MajorTime int
	MinorTime int
	State     lattice.State6
	Control   lattice.Vec3
}

// PhaseEvent is emitted whenever the leg driver transitions phases.
type PhaseEvent struct {
	Leg       int
	FromPhase string
	ToPhase   string
	State     lattice.State6
}

// InvariantViolation is emitted when the current state leaves the leg's
// declared state space. The violation is observed, not enforced: the
// simulation continues.
type InvariantViolation struct {
	Leg   int
	State lattice.State6
}

// Hooks is the set of callbacks a leg driver calls synchronously inside
// its tick loop. Any field left nil is simply skipped; a Hooks{} zero
// value observes nothing.
type Hooks struct {
	OnStep      func(StepEvent)
	OnPhase     func(PhaseEvent)
	OnInvariant func(InvariantViolation)
}

// Step fires OnStep if set.
func (h Hooks) Step(e StepEvent) {
	if h.OnStep != nil {
		h.OnStep(e)
	}
}

// Phase fires OnPhase if set.
func (h Hooks) Phase(e PhaseEvent) {
	if h.OnPhase != nil {
		h.OnPhase(e)
	}
}

// Invariant fires OnInvariant if set.
func (h Hooks) Invariant(e InvariantViolation) {
	if h.OnInvariant != nil {
		h.OnInvariant(e)
	}
}
