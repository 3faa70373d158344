package lattice

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func uniform6(begin, step, end Unit) [6]Grid1D {
	var grids [6]Grid1D
	for i := range grids {
		grids[i] = NewGrid1D(begin, step, end)
	}
	return grids
}

func TestStateSpaceContainsMonotoneUnderExtend(t *testing.T) {
	base := NewStateSpace6D(uniform6(-5, 1, 5))
	require.True(t, base.Contains(State6{5, 5, 5, 5, 5, 5}), "endpoints are inclusive")

	x := State6{6, 6, 6, 6, 6, 6}
	require.False(t, base.Contains(x))

	extended := base.ExtendAbsolute([6]Unit{1, 1, 1, 1, 1, 1})
	require.True(t, extended.Contains(x))
}

func TestStateSpaceOffsetShiftsPositionOnly(t *testing.T) {
	base := NewStateSpace6D(uniform6(-5, 1, 5))
	shifted := base.Offset(Vec3{X: 2, Y: 0, Z: 0})
	require.Equal(t, Unit(-7), shifted.Grid(0).Begin())
	require.Equal(t, Unit(-5), shifted.Grid(3).Begin(), "velocity dims are untouched by Offset")
}

func TestExtendForStretchingAlignsEndpoints(t *testing.T) {
	base := NewStateSpace6D(uniform6(-4, 1, 5))
	stretched := base.ExtendForStretching(Vec3{X: 3, Y: 3, Z: 3})
	for i := 0; i < 6; i++ {
		require.Zero(t, int(stretched.Grid(i).Begin())%3)
		require.Zero(t, int(stretched.Grid(i).End())%3)
	}
}
