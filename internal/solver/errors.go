package solver

import "github.com/pkg/errors"

// ErrPolicyOutOfHorizon is the recoverable "policy index exhaustion"
// error: GetControl was asked for a stage at or past the horizon. The leg
// driver catches this, drops the solver, and rebuilds on the next tick.
var ErrPolicyOutOfHorizon = errors.New("solver: stage is at or past the computed horizon")

// ErrInvalidPolicyIndex signals a stored U value outside [0, NumInputs):
// a solver bug, not recoverable.
var ErrInvalidPolicyIndex = errors.New("solver: stored policy index is out of range")

// ErrUnreachable is returned by CalculateController when x0 is off the grid
// or its initial region has no finite cost at the stage the sweep stopped
// at, and (wrapped) by GetControl when x is off the grid. Callers of
// CalculateController recover by extending the state space and retrying.
var ErrUnreachable = errors.New("solver: initial state unreachable within horizon")
