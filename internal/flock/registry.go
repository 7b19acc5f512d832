package flock

import (
	"fmt"
	"iter"
	"time"

	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// Registry maps entity ids to their current kinematic state.
// It is single-writer: only the integrator commits state, through SetState.
type Registry struct {
	entities   []Entity
	index      map[int]int
	classifier *Classifier
	now        func() time.Duration
	version    uint64
}

// NewRegistry returns an empty registry reading the current simulated time from now.
// Roles of registered entities are recorded in classifier.
func NewRegistry(now func() time.Duration, classifier *Classifier) *Registry {
	return &Registry{
		index:      make(map[int]int),
		classifier: classifier,
		now:        now,
	}
}

// Register adds e. Ids are never reused.
func (r *Registry) Register(e Entity) error {
	if _, exists := r.index[e.ID()]; exists {
		return fmt.Errorf("register %d: %w", e.ID(), ErrDuplicateID)
	}
	r.index[e.ID()] = len(r.entities)
	r.entities = append(r.entities, e)
	r.classifier.assign(e.ID(), e.Role())
	r.version++
	return nil
}

// Lookup returns the entity registered under id.
func (r *Registry) Lookup(id int) (Entity, error) {
	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("entity %d: %w", id, ErrNotFound)
	}
	return r.entities[i], nil
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id int) bool {
	_, ok := r.index[id]
	return ok
}

// PositionOf returns the position of id at the current simulated time.
func (r *Registry) PositionOf(id int) (geometry.Vector3D, error) {
	e, err := r.Lookup(id)
	if err != nil {
		return geometry.Zero, err
	}
	return e.PositionAt(r.now()), nil
}

// VelocityOf returns the velocity of id at the current simulated time.
func (r *Registry) VelocityOf(id int) (geometry.Vector3D, error) {
	e, err := r.Lookup(id)
	if err != nil {
		return geometry.Zero, err
	}
	return e.VelocityAt(r.now()), nil
}

// SetState commits a new position and velocity for a flocking agent at the current time.
func (r *Registry) SetState(id int, pos, vel geometry.Vector3D) error {
	e, err := r.Lookup(id)
	if err != nil {
		return err
	}
	a, ok := e.(*Agent)
	if !ok {
		return fmt.Errorf("set state of %d: %w", id, ErrImmutable)
	}
	a.commit(pos, vel, r.now())
	return nil
}

// AllOfRole yields every entity of the given role in registration order.
// The sequence is lazy and can be ranged over more than once.
func (r *Registry) AllOfRole(role Role) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, e := range r.entities {
			if !r.classifier.IsRole(e.ID(), role) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// All yields every entity in registration order.
func (r *Registry) All() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, e := range r.entities {
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of registered entities.
func (r *Registry) Len() int { return len(r.entities) }

// IDs returns every registered id in registration order.
func (r *Registry) IDs() []int {
	ids := make([]int, len(r.entities))
	for i, e := range r.entities {
		ids[i] = e.ID()
	}
	return ids
}

// Now returns the simulated time the registry reads positions at.
func (r *Registry) Now() time.Duration { return r.now() }
