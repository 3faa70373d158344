// Package disturbance implements the pluggable bounded disturbance stream
// the solver treats as an adversary, and the forward simulator injects
// during leg execution.
package disturbance

import (
	"math/rand/v2"

	"github.com/dp-flightctl/hybriddp/internal/lattice"
)

// Table is the fixed family of <=5 lattice disturbance vectors. Index 0 is
// always the zero vector so a disabled/unapplied source can return it
// without any table lookup ambiguity.
var Table = [5]lattice.Vec3{
	{X: 0, Y: 0, Z: 0},
	{X: 1, Y: 0, Z: 0},
	{X: -1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: -1, Z: 0},
}

// Source is the interface consumed by the forward simulator: Next draws the
// disturbance to apply for the upcoming sub-tick.
type Source interface {
	Next() lattice.Vec3
}

// Zero always returns the zero disturbance, used when disturbances are
// disabled (disturbance_on=false) or unapplied (apply_disturbance=false).
type Zero struct{}

// Next implements Source.
func (Zero) Next() lattice.Vec3 { return Table[0] }

// Default is the built-in deterministic-given-a-seed disturbance process:
// a running index into Table and a "turns since last
// change" counter. Each call draws a uniform int in [0, changeFactor); if
// it is less than turnsSinceChange, the index randomly steps +1/-1 (mod
// len(Table), Euclidean modulo) and the counter resets; the counter then
// advances either way.
type Default struct {
	changeFactor int
	index        int
	turnsSince   int
	rng          *rand.Rand
}

// NewDefault builds a deterministic disturbance source from a seed and the
// configured expected dwell time (disturbance_change_factor).
func NewDefault(seed uint64, changeFactor int) *Default {
	if changeFactor <= 0 {
		changeFactor = 1
	}
	return &Default{
		changeFactor: changeFactor,
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next implements Source.
func (d *Default) Next() lattice.Vec3 {
	willChange := d.rng.IntN(d.changeFactor)
	if willChange < d.turnsSince {
		step := -1
		if d.rng.IntN(2) == 0 {
			step = 1
		}
		d.index = euclideanMod(d.index+step, len(Table))
		d.turnsSince = 0
	}
	d.turnsSince++
	return Table[d.index]
}

// euclideanMod returns a%m folded into [0, m), even for negative a, where
// Go's % operator would return a negative remainder.
func euclideanMod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
