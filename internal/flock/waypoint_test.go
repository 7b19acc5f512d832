package flock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

func TestScripted_Interpolation(t *testing.T) {
	s, err := NewScripted(9, Adversary, []Waypoint{
		{At: 10 * time.Second, Position: geometry.NewVector(0, 0, 30)},
		{At: 20 * time.Second, Position: geometry.NewVector(100, 0, 30)},
		{At: 30 * time.Second, Position: geometry.NewVector(100, 200, 30)},
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Duration
		pos  geometry.Vector3D
		vel  geometry.Vector3D
	}{
		{"before first", 0, geometry.NewVector(0, 0, 30), geometry.Zero},
		{"on first", 10 * time.Second, geometry.NewVector(0, 0, 30), geometry.NewVector(10, 0, 0)},
		{"mid first segment", 15 * time.Second, geometry.NewVector(50, 0, 30), geometry.NewVector(10, 0, 0)},
		{"on inner waypoint", 20 * time.Second, geometry.NewVector(100, 0, 30), geometry.NewVector(0, 20, 0)},
		{"quarter second segment", 22500 * time.Millisecond, geometry.NewVector(100, 50, 30), geometry.NewVector(0, 20, 0)},
		{"on last", 30 * time.Second, geometry.NewVector(100, 200, 30), geometry.Zero},
		{"after last", time.Minute, geometry.NewVector(100, 200, 30), geometry.Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, s.PositionAt(tt.at).Eq(tt.pos), "position %v, want %v", s.PositionAt(tt.at), tt.pos)
			assert.True(t, s.VelocityAt(tt.at).Eq(tt.vel), "velocity %v, want %v", s.VelocityAt(tt.at), tt.vel)
		})
	}
}

func TestScripted_SingleWaypointIsStatic(t *testing.T) {
	s, err := NewScripted(1, Prey, []Waypoint{{At: 5 * time.Second, Position: geometry.NewVector(1, 2, 3)}})
	require.NoError(t, err)

	for _, at := range []time.Duration{0, 5 * time.Second, time.Hour} {
		assert.Equal(t, geometry.NewVector(1, 2, 3), s.PositionAt(at))
		assert.Equal(t, geometry.Zero, s.VelocityAt(at))
	}
}

func TestScripted_RepeatedTimeJumps(t *testing.T) {
	s, err := NewScripted(1, Adversary, []Waypoint{
		{At: 0, Position: geometry.NewVector(0, 0, 0)},
		{At: time.Second, Position: geometry.NewVector(10, 0, 0)},
		{At: time.Second, Position: geometry.NewVector(50, 0, 0)},
		{At: 2 * time.Second, Position: geometry.NewVector(60, 0, 0)},
	})
	require.NoError(t, err)

	assert.Equal(t, geometry.NewVector(50, 0, 0), s.PositionAt(time.Second))
	assert.True(t, s.VelocityAt(time.Second).Eq(geometry.NewVector(10, 0, 0)))
}

func TestScripted_Invalid(t *testing.T) {
	_, err := NewScripted(1, Adversary, nil)
	assert.ErrorIs(t, err, ErrInvalidWaypoints)

	_, err = NewScripted(1, Adversary, []Waypoint{
		{At: 2 * time.Second, Position: geometry.Zero},
		{At: time.Second, Position: geometry.Zero},
	})
	assert.ErrorIs(t, err, ErrInvalidWaypoints)
}

func TestScripted_CopiesWaypoints(t *testing.T) {
	wps := []Waypoint{{At: 0, Position: geometry.Zero}, {At: time.Second, Position: geometry.NewVector(1, 0, 0)}}
	s, err := NewScripted(1, Adversary, wps)
	require.NoError(t, err)

	wps[1].Position = geometry.NewVector(99, 0, 0)

	assert.Equal(t, geometry.NewVector(1, 0, 0), s.Waypoints()[1].Position)
}
