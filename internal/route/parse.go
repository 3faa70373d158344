// Package route parses route and obstacle text files and models the
// waypoint sequence as a small typed linear chain; a route is always a
// simple chain, never a general graph, so the sequencing stays a typed-ID
// walk over a slice.
package route

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/dp-flightctl/hybriddp/internal/lattice"
)

// WaypointID identifies a route point by its position in the file.
type WaypointID int

// ParsePoints reads the shared route/obstacle text format: one
// `x y z` triple per line, blank lines and lines beginning with `#` or a
// space are comments, a literal `end` line terminates early.
func ParsePoints(r io.Reader) ([]lattice.Vec3, error) {
	var points []lattice.Vec3
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, " ") {
			continue
		}
		if strings.TrimSpace(line) == "end" {
			break
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, errors.Errorf("route: line %d: expected 3 whitespace-separated fields, got %d", lineNo, len(fields))
		}
		var v lattice.Vec3
		for i, dst := range []*lattice.Unit{&v.X, &v.Y, &v.Z} {
			n, err := strconv.Atoi(fields[i])
			if err != nil {
				return nil, errors.Wrapf(err, "route: line %d: field %d", lineNo, i)
			}
			*dst = lattice.Unit(n)
		}
		points = append(points, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "route: scanning input")
	}
	return points, nil
}

// ParsePointsFile opens path and parses it with ParsePoints.
func ParsePointsFile(path string) ([]lattice.Vec3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "route: opening %s", path)
	}
	defer f.Close()
	return ParsePoints(f)
}

// Route is a validated, immutable waypoint sequence.
type Route struct {
	points []lattice.Vec3
}

// NewRoute validates the waypoint sequence and returns a Route. Every
// violation is a fatal argument error, reported as such.
func NewRoute(points []lattice.Vec3) (*Route, error) {
	if len(points) < 4 {
		return nil, errors.Errorf("route: need at least 4 waypoints, got %d", len(points))
	}
	first, second := points[0], points[1]
	if first.Z != 0 {
		return nil, errors.New("route: route[0].z must be 0")
	}
	if first.X != second.X || first.Y != second.Y {
		return nil, errors.New("route: route[0].xy must equal route[1].xy")
	}
	last, penultimate := points[len(points)-1], points[len(points)-2]
	if last.Z != 0 {
		return nil, errors.New("route: route[last].z must be 0")
	}
	if last.X != penultimate.X || last.Y != penultimate.Y {
		return nil, errors.New("route: route[last].xy must equal route[last-1].xy")
	}
	for i := 1; i < len(points)-1; i++ {
		if points[i].Z < 10 {
			return nil, errors.Errorf("route: waypoint %d has z=%d, want z>=10", i, points[i].Z)
		}
	}
	return &Route{points: points}, nil
}

// Len returns the number of waypoints.
func (r *Route) Len() int { return len(r.points) }

// At returns the waypoint at id, and whether id was in range.
func (r *Route) At(id WaypointID) (lattice.Vec3, bool) {
	if int(id) < 0 || int(id) >= len(r.points) {
		return lattice.Vec3{}, false
	}
	return r.points[id], true
}

// Next returns the waypoint ID following id, and whether one exists.
func (r *Route) Next(id WaypointID) (WaypointID, bool) {
	if int(id)+1 >= len(r.points) {
		return 0, false
	}
	return id + 1, true
}

// Done reports whether id is the route's last waypoint.
func (r *Route) Done(id WaypointID) bool {
	return int(id) >= len(r.points)-1
}

// IsLanding reports whether the waypoint at id has z == 0, the Landing
// phase's entry condition.
func (r *Route) IsLanding(id WaypointID) bool {
	p, ok := r.At(id)
	return ok && p.Z == 0
}

func (id WaypointID) String() string { return fmt.Sprintf("wp#%d", int(id)) }
