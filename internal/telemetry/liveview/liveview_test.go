package liveview

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dp-flightctl/hybriddp/internal/observer"
)

func TestHooksForwardsOntoChannels(t *testing.T) {
	hooks, steps, phases := Hooks(4)

	hooks.Step(observer.StepEvent{MajorTime: 3})
	hooks.Phase(observer.PhaseEvent{ToPhase: "Cruising"})

	select {
	case e := <-steps:
		require.Equal(t, 3, e.MajorTime)
	default:
		t.Fatal("expected a buffered step event")
	}

	select {
	case e := <-phases:
		require.Equal(t, "Cruising", e.ToPhase)
	default:
		t.Fatal("expected a buffered phase event")
	}
}

func TestHooksDropsWhenBufferFull(t *testing.T) {
	hooks, steps, _ := Hooks(1)
	hooks.Step(observer.StepEvent{MajorTime: 1})
	hooks.Step(observer.StepEvent{MajorTime: 2}) // buffer full, dropped rather than blocking the tick loop

	e := <-steps
	require.Equal(t, 1, e.MajorTime)
	select {
	case <-steps:
		t.Fatal("expected no second event")
	default:
	}
}

func TestNewServerBuildsParsablePage(t *testing.T) {
	s := NewServer(":0", nil, nil)
	require.NotNil(t, s.page)
}
