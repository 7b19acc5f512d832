package flock

import (
	"time"

	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// Entity is anything with a position known to the registry: flocking agents, scripted
// adversaries and static nodes.
type Entity interface {
	ID() int
	Role() Role
	PositionAt(now time.Duration) geometry.Vector3D
	VelocityAt(now time.Duration) geometry.Vector3D
}

// Agent is an entity driven by the flocking rules.
// Between integration ticks it moves in a straight line at its committed velocity.
type Agent struct {
	id     int
	role   Role
	params Params
	noise  Noise

	pos geometry.Vector3D
	vel geometry.Vector3D
	at  time.Duration

	pending  bool
	retarget *geometry.Vector3D
}

func (a *Agent) ID() int { return a.id }

func (a *Agent) Role() Role { return a.role }

// Params returns the rule parameters the agent was created with.
func (a *Agent) Params() Params { return a.params }

// Pending reports whether the next integration tick will recompute steering.
func (a *Agent) Pending() bool { return a.pending }

// PositionAt extrapolates the committed position to now.
func (a *Agent) PositionAt(now time.Duration) geometry.Vector3D {
	if now == a.at {
		return a.pos
	}
	return a.pos.Add(a.vel.Mul((now - a.at).Seconds()))
}

// VelocityAt returns the committed velocity; it is constant between ticks.
func (a *Agent) VelocityAt(time.Duration) geometry.Vector3D { return a.vel }

func (a *Agent) commit(pos, vel geometry.Vector3D, now time.Duration) {
	a.pos = pos
	a.vel = vel
	a.at = now
}

// Static is an entity that never moves, such as a base station.
type Static struct {
	id       int
	role     Role
	position geometry.Vector3D
}

// NewStatic returns a static entity at pos.
func NewStatic(id int, role Role, pos geometry.Vector3D) *Static {
	return &Static{id: id, role: role, position: pos}
}

func (s *Static) ID() int    { return s.id }
func (s *Static) Role() Role { return s.role }

func (s *Static) PositionAt(time.Duration) geometry.Vector3D { return s.position }

func (s *Static) VelocityAt(time.Duration) geometry.Vector3D { return geometry.Zero }
