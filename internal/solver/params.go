package solver

import "github.com/dp-flightctl/hybriddp/internal/lattice"

// Params collects the configuration a DpSolver needs, built once by
// internal/config and passed explicitly; no process-wide singleton.
type Params struct {
	Stages int

	DeltaTime lattice.Unit
	Drag      lattice.Unit

	// NumDisturbances is either 1 (no disturbance, nominal) or
	// len(disturbance.Table) (robust worst-case).
	NumDisturbances int

	SwitchStage int // K: stages within this many steps of the horizon use the smaller input table.

	CollisionCostFactor float64 // lambda; 0 disables the obstacle-proximity term.

	EnableNormFixPoint    bool
	EnableInitialFixPoint bool
	InitialRegionRadius   int

	NumWorkers int
}

// DefaultParams returns the documented default for every knob.
func DefaultParams() Params {
	return Params{
		Stages:              30,
		DeltaTime:           1,
		Drag:                0,
		NumDisturbances:     1,
		SwitchStage:         DefaultSwitchStage,
		CollisionCostFactor: 0,
		NumWorkers:          16,
	}
}
