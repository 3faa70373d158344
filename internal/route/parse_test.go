package route

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dp-flightctl/hybriddp/internal/lattice"
)

func TestParsePoints(t *testing.T) {
	input := `# comment line is skipped
 leading-space line is also skipped
0 0 0
0 0 0
5 5 20
10 10 20
10 10 0
10 10 0
end
99 99 99
`
	points, err := ParsePoints(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []lattice.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 0},
		{X: 5, Y: 5, Z: 20},
		{X: 10, Y: 10, Z: 20},
		{X: 10, Y: 10, Z: 0},
		{X: 10, Y: 10, Z: 0},
	}, points)
}

func TestParsePointsRejectsMalformedLine(t *testing.T) {
	_, err := ParsePoints(strings.NewReader("1 2\n"))
	require.Error(t, err)
}

func validPoints() []lattice.Vec3 {
	return []lattice.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 10},
		{X: 5, Y: 5, Z: 20},
		{X: 10, Y: 10, Z: 15},
		{X: 10, Y: 10, Z: 10},
		{X: 10, Y: 10, Z: 0},
	}
}

func TestNewRouteAcceptsValidSequence(t *testing.T) {
	r, err := NewRoute(validPoints())
	require.NoError(t, err)
	require.Equal(t, 6, r.Len())

	p, ok := r.At(0)
	require.True(t, ok)
	require.Equal(t, lattice.Vec3{X: 0, Y: 0, Z: 0}, p)

	next, ok := r.Next(0)
	require.True(t, ok)
	require.Equal(t, WaypointID(1), next)

	require.True(t, r.Done(5))
	require.False(t, r.Done(0))
	require.True(t, r.IsLanding(0))
	require.False(t, r.IsLanding(2))
}

func TestNewRouteRejectsTooFewPoints(t *testing.T) {
	_, err := NewRoute(validPoints()[:2])
	require.Error(t, err)
}

func TestNewRouteRejectsNonZeroStart(t *testing.T) {
	pts := validPoints()
	pts[0].Z = 5
	_, err := NewRoute(pts)
	require.Error(t, err)
}

func TestNewRouteRejectsMismatchedFirstPair(t *testing.T) {
	pts := validPoints()
	pts[1].X = 99
	_, err := NewRoute(pts)
	require.Error(t, err)
}

func TestNewRouteRejectsLowInteriorAltitude(t *testing.T) {
	pts := validPoints()
	pts[2].Z = 3
	_, err := NewRoute(pts)
	require.Error(t, err)
}

func TestWaypointIDString(t *testing.T) {
	require.Equal(t, "wp#3", WaypointID(3).String())
}
