package flock

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// Waypoint is a position an entity reaches at a given simulated time.
type Waypoint struct {
	At       time.Duration     `json:"at" yaml:"at"`
	Position geometry.Vector3D `json:"position" yaml:"position"`
}

// Scripted is an entity moving along a fixed list of waypoints, typically an adversary.
// Its trajectory does not react to anything in the simulation.
type Scripted struct {
	id        int
	role      Role
	waypoints []Waypoint
}

// NewScripted validates and copies waypoints. Times must be non-decreasing.
func NewScripted(id int, role Role, waypoints []Waypoint) (*Scripted, error) {
	if len(waypoints) == 0 {
		return nil, fmt.Errorf("scripted entity %d has no waypoints: %w", id, ErrInvalidWaypoints)
	}
	for i := 1; i < len(waypoints); i++ {
		if waypoints[i].At < waypoints[i-1].At {
			return nil, fmt.Errorf("scripted entity %d: waypoint %d at %s precedes %s: %w",
				id, i, waypoints[i].At, waypoints[i-1].At, ErrInvalidWaypoints)
		}
	}
	return &Scripted{id: id, role: role, waypoints: slices.Clone(waypoints)}, nil
}

func (s *Scripted) ID() int    { return s.id }
func (s *Scripted) Role() Role { return s.role }

// Waypoints returns a copy of the trajectory.
func (s *Scripted) Waypoints() []Waypoint { return slices.Clone(s.waypoints) }

// segment returns the indices of the waypoints bracketing t, or ok=false when t is outside the
// scripted range.
func (s *Scripted) segment(t time.Duration) (int, int, bool) {
	n := len(s.waypoints)
	if t < s.waypoints[0].At || t >= s.waypoints[n-1].At {
		return 0, 0, false
	}
	// first waypoint strictly after t; never 0 and never n here
	j := sort.Search(n, func(i int) bool { return s.waypoints[i].At > t })
	return j - 1, j, true
}

// PositionAt interpolates linearly between waypoints and holds the first or last position
// outside the scripted range.
func (s *Scripted) PositionAt(t time.Duration) geometry.Vector3D {
	i, j, ok := s.segment(t)
	if !ok {
		if t < s.waypoints[0].At {
			return s.waypoints[0].Position
		}
		return s.waypoints[len(s.waypoints)-1].Position
	}
	a, b := s.waypoints[i], s.waypoints[j]
	frac := float64(t-a.At) / float64(b.At-a.At)
	return a.Position.Lerp(b.Position, frac)
}

// VelocityAt is the slope of the current segment, zero before the first and after the last waypoint.
func (s *Scripted) VelocityAt(t time.Duration) geometry.Vector3D {
	i, j, ok := s.segment(t)
	if !ok {
		return geometry.Zero
	}
	a, b := s.waypoints[i], s.waypoints[j]
	return b.Position.Sub(a.Position).Mul(1 / (b.At - a.At).Seconds())
}
