package flock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/simclock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// quietParams are the default parameters without noise.
func quietParams() Params {
	p := DefaultParams()
	p.Noise = NoiseSpec{}
	return p
}

func newTestEngine(t testing.TB, opts ...Option) (*Engine, *simclock.Clock) {
	t.Helper()
	clock := simclock.New()
	return NewEngine(clock, opts...), clock
}

func mustAgent(t testing.TB, e *Engine, id int, pos geometry.Vector3D, p Params) *Agent {
	t.Helper()
	a, err := e.AddAgent(AgentConfig{ID: id, Role: FlockMember, Position: pos, Params: p, Stream: uint64(id)})
	require.NoError(t, err)
	return a
}

// mover is a flock member crossing the origin at constant velocity v.
func mover(t testing.TB, e *Engine, id int, at, v geometry.Vector3D) {
	t.Helper()
	_, err := e.AddScripted(id, FlockMember, []Waypoint{
		{At: 0, Position: at},
		{At: time.Hour, Position: at.Add(v.Mul(time.Hour.Seconds()))},
	})
	require.NoError(t, err)
}

// constantNoise returns v on every draw.
type constantNoise struct {
	v     float64
	calls int
}

func (n *constantNoise) Sample() float64 {
	n.calls++
	return n.v
}

type recorder struct {
	changes []CourseChange
}

func (r *recorder) CourseChanged(c CourseChange) { r.changes = append(r.changes, c) }

func (r *recorder) last(id int) (CourseChange, bool) {
	for i := len(r.changes) - 1; i >= 0; i-- {
		if r.changes[i].ID == id {
			return r.changes[i], true
		}
	}
	return CourseChange{}, false
}
