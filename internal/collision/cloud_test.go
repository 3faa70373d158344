package collision

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func TestWillCollideEmptyCloudNeverCollides(t *testing.T) {
	c := NewCloud(10, 10, 10, DefaultMinDistanceMeters, 1)
	require.False(t, c.WillCollide(Cell{1, 1, 1}, Cell{5, 5, 5}))
}

func TestWillCollideSymmetric(t *testing.T) {
	Convey("Given a cloud with a handful of obstacles", t, func() {
		c := NewCloud(10, 10, 10, DefaultMinDistanceMeters, 1)
		c.Add(Cell{4, 4, 4})
		c.Add(Cell{2, 7, 1})

		Convey("will_collide(a,b) == will_collide(b,a)", func() {
			a, b := Cell{1, 1, 1}, Cell{8, 8, 8}
			So(c.WillCollide(a, b), ShouldEqual, c.WillCollide(b, a))
		})
	})
}

// referenceCollide is a brute-force, uncached re-implementation used only
// to check the cached predicate's answers against.
func referenceCollide(obstacles []Cell, minDist2 float64, old, new_ Cell) bool {
	for _, ob := range obstacles {
		if segmentDistance2(old, new_, ob) < minDist2 {
			return true
		}
	}
	return false
}

func TestWillCollideCacheSymmetryProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const dim = 20
	c := NewCloud(dim, dim, dim, DefaultMinDistanceMeters, 1)

	var obstacles []Cell
	for i := 0; i < 50; i++ {
		ob := Cell{rng.Intn(dim), rng.Intn(dim), rng.Intn(dim)}
		c.Add(ob)
		obstacles = append(obstacles, ob)
	}

	for i := 0; i < 10000; i++ {
		a := Cell{rng.Intn(dim), rng.Intn(dim), rng.Intn(dim)}
		b := Cell{rng.Intn(dim), rng.Intn(dim), rng.Intn(dim)}

		gotAB := c.WillCollide(a, b)
		gotBA := c.WillCollide(b, a)
		require.Equal(t, gotAB, gotBA, "symmetry violated for %v <-> %v", a, b)

		want := referenceCollide(obstacles, c.minDist2, a, b)
		require.Equal(t, want, gotAB, "cached result diverges from reference for %v -> %v", a, b)
	}
}
