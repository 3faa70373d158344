package observer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dp-flightctl/hybriddp/internal/lattice"
)

func TestHooksZeroValueObservesNothing(t *testing.T) {
	var h Hooks
	require.NotPanics(t, func() {
		h.Step(StepEvent{})
		h.Phase(PhaseEvent{})
		h.Invariant(InvariantViolation{})
	})
}

func TestHooksDispatchToSetCallbacks(t *testing.T) {
	var gotStep StepEvent
	var gotPhase PhaseEvent
	var gotInvariant InvariantViolation

	h := Hooks{
		OnStep:      func(e StepEvent) { gotStep = e },
		OnPhase:     func(e PhaseEvent) { gotPhase = e },
		OnInvariant: func(e InvariantViolation) { gotInvariant = e },
	}

	x := lattice.State6{1, 2, 3, 0, 0, 0}
	h.Step(StepEvent{MajorTime: 4, State: x})
	h.Phase(PhaseEvent{FromPhase: "Starting", ToPhase: "Cruising"})
	h.Invariant(InvariantViolation{State: x})

	require.Equal(t, 4, gotStep.MajorTime)
	require.Equal(t, x, gotStep.State)
	require.Equal(t, "Starting", gotPhase.FromPhase)
	require.Equal(t, "Cruising", gotPhase.ToPhase)
	require.Equal(t, x, gotInvariant.State)
}
