// Package collision implements the obstacle set and the memoised
// segment-vs-points predicate the solver uses to reject colliding
// transitions during the backward sweep.
package collision

import (
	"sync/atomic"

	"gonum.org/v1/gonum/floats"

	"github.com/dp-flightctl/hybriddp/internal/lattice"
)

// Cell is a lattice-space obstacle or solver-state position, indexed on the
// solver's own (i_c1, i_c2, i_c3) grid, not world coordinates.
type Cell struct {
	X, Y, Z int
}

// decision is a tri-state cache cell: unknown has not been resolved, no/yes
// are final. Any concurrent writer computes the same final value, so a
// plain atomic store/load suffices; no locking is required for correctness.
type decision int32

const (
	unknown decision = -1
	no      decision = 0
	yes     decision = 1
)

// Cloud is the obstacle set plus its memoised will-collide predicate.
// It is built once per solver instance and is safe for concurrent
// read-through calls to WillCollide from every stage worker: the cache
// is a pure function of (i_old, i_new, obstacles, minDist), so a benign race
// between two workers computing the same cell converges to the same answer.
type Cloud struct {
	obstacles []Cell
	minDist   float64
	minDist2  float64

	shape [3]int
	cache []int32 // flattened (i_old, i_new) tri-state, atomic access only
}

// NewCloud builds an empty obstacle cloud sized for a (lx,ly,lz) position
// grid. minDistMeters is the real-world clearance radius;
// stepSize converts it into lattice units.
func NewCloud(lx, ly, lz int, minDistMeters, stepSize float64) *Cloud {
	minDist := minDistMeters / stepSize
	c := &Cloud{
		shape:    [3]int{lx, ly, lz},
		minDist:  minDist,
		minDist2: minDist * minDist,
	}
	total := lx * ly * lz * lx * ly * lz
	c.cache = make([]int32, total)
	for i := range c.cache {
		c.cache[i] = int32(unknown)
	}
	return c
}

// DefaultMinDistanceMeters is the default real-world clearance radius.
const DefaultMinDistanceMeters = 1.5

// Add registers an obstacle at a lattice cell.
func (c *Cloud) Add(p Cell) {
	c.obstacles = append(c.obstacles, p)
}

// AddFromWorld projects a world-frame obstacle through the caller's
// world-to-lattice closure (leg-local offset, stretch division,
// search-closest snapping) before adding it.
func (c *Cloud) AddFromWorld(world lattice.Vec3, project func(lattice.Vec3) Cell) {
	c.Add(project(world))
}

// Obstacles returns the registered obstacle cells.
func (c *Cloud) Obstacles() []Cell { return c.obstacles }

// Reset clears the memoised cache back to unknown, keeping the obstacles.
// The solver does not call it: a retried (extended) state space gets a
// freshly built Cloud from Reinitialize.
func (c *Cloud) Reset() {
	for i := range c.cache {
		atomic.StoreInt32(&c.cache[i], int32(unknown))
	}
}

func (c *Cloud) cacheIndex(old, new_ Cell) int {
	// flatten (old.x,old.y,old.z,new.x,new.y,new.z) row-major over shape,shape
	idx := ((old.X*c.shape[1]+old.Y)*c.shape[2]+old.Z)*c.shape[0]*c.shape[1]*c.shape[2] +
		(new_.X*c.shape[1]+new_.Y)*c.shape[2] + new_.Z
	return idx
}

// WillCollide answers whether the straight segment from i_old to i_new
// passes within minDist of any obstacle. Results are memoised; a
// cache hit costs O(1), a cache miss costs O(len(obstacles)) dominated by
// the bounding-box reject.
func (c *Cloud) WillCollide(old, new_ Cell) bool {
	idx := c.cacheIndex(old, new_)
	if d := decision(atomic.LoadInt32(&c.cache[idx])); d != unknown {
		return d == yes
	}

	result := c.computeCollision(old, new_)
	stored := no
	if result {
		stored = yes
	}
	atomic.StoreInt32(&c.cache[idx], int32(stored))
	return result
}

func (c *Cloud) computeCollision(old, new_ Cell) bool {
	minX, maxX := minMax(old.X, new_.X)
	minY, maxY := minMax(old.Y, new_.Y)
	minZ, maxZ := minMax(old.Z, new_.Z)
	margin := 2 * c.minDist

	for _, ob := range c.obstacles {
		if float64(ob.X) < float64(minX)-margin || float64(ob.X) > float64(maxX)+margin ||
			float64(ob.Y) < float64(minY)-margin || float64(ob.Y) > float64(maxY)+margin ||
			float64(ob.Z) < float64(minZ)-margin || float64(ob.Z) > float64(maxZ)+margin {
			continue
		}

		if segmentDistance2(old, new_, ob) < c.minDist2 {
			return true
		}
	}
	return false
}

func minMax(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}

// segmentDistance2 returns the squared distance from obstacle ob to the
// segment old->new (point-to-point if old==new, else the classic
// point-to-segment projection, clamped to the segment's endpoints outside
// t in (0,1)). See https://mathworld.wolfram.com/Point-LineDistance3-Dimensional.html
func segmentDistance2(old, new_, ob Cell) float64 {
	if old == new_ {
		d := []float64{float64(old.X - ob.X), float64(old.Y - ob.Y), float64(old.Z - ob.Z)}
		return floats.Dot(d, d)
	}

	dir := []float64{float64(new_.X - old.X), float64(new_.Y - old.Y), float64(new_.Z - old.Z)}
	toOb := []float64{float64(ob.X - old.X), float64(ob.Y - old.Y), float64(ob.Z - old.Z)}
	t := floats.Dot(toOb, dir) / floats.Dot(dir, dir)

	if t <= 0 || t >= 1 {
		endpoint := old
		if t > 0 {
			endpoint = new_
		}
		d := []float64{float64(endpoint.X - ob.X), float64(endpoint.Y - ob.Y), float64(endpoint.Z - ob.Z)}
		return floats.Dot(d, d)
	}

	proj := []float64{
		float64(old.X) + t*dir[0] - float64(ob.X),
		float64(old.Y) + t*dir[1] - float64(ob.Y),
		float64(old.Z) + t*dir[2] - float64(ob.Z),
	}
	return floats.Dot(proj, proj)
}
