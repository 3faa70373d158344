package lattice

import "math"

// PosInf is the float32 cost-to-go sentinel for "unreachable", kept as a
// named constant so every package comparing against it reads the same
// intent, rather than math.MaxFloat32 sprinkled around.
const PosInf = float32(math.MaxFloat32)

// NoInput marks "no finite option" in a U-grid cell.
const NoInput int16 = -1

// ValueTable holds, for each of S stages, a pair of dense 6-D grids: V (the
// float32 cost-to-go) and U (the int16 argmin input index). Stage s=S-1 is
// terminal; stage 0 is "now".
type ValueTable struct {
	stages int
	shape  [6]int
	v      []*DenseGrid6D[float32]
	u      []*DenseGrid6D[int16]
}

// NewValueTable allocates S stages of shape-sized V/U grids, V filled with
// PosInf and U filled with NoInput (the "nothing computed yet" state).
func NewValueTable(stages int, shape [6]int) *ValueTable {
	vt := &ValueTable{stages: stages, shape: shape}
	vt.v = make([]*DenseGrid6D[float32], stages)
	vt.u = make([]*DenseGrid6D[int16], stages)
	for s := 0; s < stages; s++ {
		vg := NewDenseGrid6D[float32](shape)
		vg.Fill(PosInf)
		vt.v[s] = vg
		ug := NewDenseGrid6D[int16](shape)
		ug.Fill(NoInput)
		vt.u[s] = ug
	}
	return vt
}

// Stages returns the horizon length S.
func (vt *ValueTable) Stages() int { return vt.stages }

// Shape returns the per-dimension cell counts shared by every stage.
func (vt *ValueTable) Shape() [6]int { return vt.shape }

// V returns the cost-to-go grid for stage s.
func (vt *ValueTable) V(s int) *DenseGrid6D[float32] { return vt.v[s] }

// U returns the argmin-input grid for stage s.
func (vt *ValueTable) U(s int) *DenseGrid6D[int16] { return vt.u[s] }

// CostAt returns V[s, idx].
func (vt *ValueTable) CostAt(s int, idx [6]int) float32 { return vt.v[s].At(idx) }

// IsFinite reports whether a cost-to-go value is below the PosInf sentinel.
func IsFinite(cost float32) bool { return cost < PosInf }
