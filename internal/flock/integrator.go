package flock

import (
	"time"

	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// IntegrationStep is the period of the integration task.
const IntegrationStep = 100 * time.Millisecond

// CourseChange is emitted every time an agent commits a new velocity.
type CourseChange struct {
	At       time.Duration
	ID       int
	Position geometry.Vector3D
	Velocity geometry.Vector3D
}

// CourseObserver is notified after every commit.
type CourseObserver interface {
	CourseChanged(CourseChange)
}

// CourseObserverFunc adapts a function to CourseObserver.
type CourseObserverFunc func(CourseChange)

func (f CourseObserverFunc) CourseChanged(c CourseChange) { f(c) }

// Integrator turns steering into the next committed velocity of an agent.
type Integrator struct {
	registry  *Registry
	rules     *Rules
	observers []CourseObserver
}

// NewIntegrator returns an integrator committing to registry.
func NewIntegrator(registry *Registry, rules *Rules) *Integrator {
	return &Integrator{registry: registry, rules: rules}
}

// Observe registers o for every subsequent commit.
func (in *Integrator) Observe(o CourseObserver) {
	in.observers = append(in.observers, o)
}

// Step runs one integration tick for a and returns the committed velocity.
func (in *Integrator) Step(a *Agent) (geometry.Vector3D, error) {
	now := in.registry.now()
	pos := a.PositionAt(now)
	p := a.params

	next := a.vel
	if a.pending {
		steer := in.rules.Compute(a).Weighted(p)
		next = a.vel.Mul(1 - p.Alpha).Add(steer.Mul(p.Alpha))
		a.pending = false
	}

	dt := IntegrationStep.Seconds()
	next.X += a.noise.Sample() / dt
	next.Y += a.noise.Sample() / dt
	if p.Enable3D {
		next.Z += a.noise.Sample() / dt
		if p.MinZ != nil && pos.Z <= *p.MinZ && next.Z < 0 {
			next.Z = 0
		}
		if p.MaxZ != nil && pos.Z >= *p.MaxZ && next.Z > 0 {
			next.Z = 0
		}
	} else {
		next.Z = 0
	}

	next = next.ClampLen(p.MaxSpeed)

	if err := in.registry.SetState(a.id, pos, next); err != nil {
		return geometry.Zero, err
	}
	in.notify(CourseChange{At: now, ID: a.id, Position: pos, Velocity: next})
	return next, nil
}

func (in *Integrator) notify(c CourseChange) {
	for _, o := range in.observers {
		o.CourseChanged(c)
	}
}
