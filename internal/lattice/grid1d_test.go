package lattice

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func TestGrid1DRoundTrip(t *testing.T) {
	Convey("Given a uniform grid from -5 to 5 step 1", t, func() {
		g := NewGrid1D(-5, 1, 5)

		Convey("search_closest(value(i)) == i for every cell", func() {
			for i := 0; i < g.Len(); i++ {
				So(g.SearchClosest(float64(g.Value(i))), ShouldEqual, i)
			}
		})

		Convey("search_away_from_zero rounds outward and stays within one step", func() {
			for _, v := range []float64{0.3, -0.3, 4.9, -4.9, 0} {
				idx := g.SearchAwayFromZero(v)
				So(idx, ShouldBeGreaterThanOrEqualTo, 0)
				value := float64(g.Value(idx))
				if v >= 0 {
					So(value, ShouldBeGreaterThanOrEqualTo, v)
				} else {
					So(value, ShouldBeLessThanOrEqualTo, v)
				}
				So(value-v, ShouldBeBetween, -float64(g.Step())-1e-9, float64(g.Step())+1e-9)
			}
		})

		Convey("out-of-range values return -1 for both rounding modes", func() {
			So(g.SearchAwayFromZero(100), ShouldEqual, -1)
			So(g.SearchClosest(-100), ShouldEqual, -1)
		})

		Convey("zero rounds via the floor branch (documented source behavior)", func() {
			So(g.SearchAwayFromZero(0), ShouldEqual, g.SearchClosest(0))
		})
	})
}

func TestGrid1DInvariants(t *testing.T) {
	require.Panics(t, func() { NewGrid1D(0, 0, 10) })
	require.Panics(t, func() { NewGrid1D(10, 1, 0) })

	g := NewGrid1D(0, 3, 10)
	require.Equal(t, Unit(9), g.End(), "end snaps down to a reachable multiple of step")
	require.Equal(t, 4, g.Len())
}
