package disturbance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZeroAlwaysReturnsZeroVector(t *testing.T) {
	var z Zero
	for i := 0; i < 10; i++ {
		require.Equal(t, Table[0], z.Next())
	}
}

func TestDefaultIsDeterministicForSeed(t *testing.T) {
	a := NewDefault(7, 10)
	b := NewDefault(7, 10)
	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Next(), b.Next(), "same seed must draw the same sequence")
	}
}

func TestDefaultOnlyEmitsTableEntries(t *testing.T) {
	s := NewDefault(3, 2)
	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		d := s.Next()
		found := false
		for j, entry := range Table {
			if d == entry {
				seen[j] = true
				found = true
				break
			}
		}
		require.True(t, found, "emitted a vector not in the table: %v", d)
	}
	// a short dwell time must actually walk the table, not sit on index 0.
	require.Greater(t, len(seen), 1)
}

func TestEuclideanModWrapsNegatives(t *testing.T) {
	require.Equal(t, 4, euclideanMod(-1, 5))
	require.Equal(t, 0, euclideanMod(-5, 5))
	require.Equal(t, 2, euclideanMod(7, 5))
	require.Equal(t, 0, euclideanMod(0, 5))
}
