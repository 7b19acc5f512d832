package flock

import (
	"iter"
	"time"

	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// Epsilon is the minimal distance for a candidate to count as a neighbour.
// It excludes the agent itself and coincident positions.
const Epsilon = 1e-10

// Steering holds the five raw (unweighted) rule contributions for one agent at one instant.
type Steering struct {
	Separation geometry.Vector3D
	Alignment  geometry.Vector3D
	Cohesion   geometry.Vector3D
	Adversary  geometry.Vector3D
	Center     geometry.Vector3D
}

// Weighted returns Σ w_r·rule_r using the weights of p.
func (s Steering) Weighted(p Params) geometry.Vector3D {
	return s.Separation.Mul(p.WeightSeparation).
		Add(s.Alignment.Mul(p.WeightAlignment)).
		Add(s.Cohesion.Mul(p.WeightCohesion)).
		Add(s.Adversary.Mul(p.WeightAdversary)).
		Add(s.Center.Mul(p.WeightCenter))
}

// Rules computes steering contributions from the registry. It never writes.
type Rules struct {
	registry   *Registry
	classifier *Classifier
	grid       *Grid
}

// NewRules returns a rule engine reading from registry. grid may be nil, in which case the global
// zone search scans every entity of the relevant role.
func NewRules(registry *Registry, classifier *Classifier, grid *Grid) *Rules {
	return &Rules{registry: registry, classifier: classifier, grid: grid}
}

// Compute returns the five contributions for a at the current simulated time.
func (r *Rules) Compute(a *Agent) Steering {
	now := r.registry.now()
	self := a.PositionAt(now)
	p := a.params
	return Steering{
		Separation: r.separation(a, self, now),
		Alignment:  r.alignment(a, self, now),
		Cohesion:   r.cohesion(a, self, now),
		Adversary:  repulsion(r.candidates(Adversary, self, p.ZoneAdversary), self, now, p.ZoneAdversary, p.RefAdversaryDistance),
		Center:     p.Center.Sub(self),
	}
}

type neighbor struct {
	entity   Entity
	position geometry.Vector3D
	distance float64
}

func (r *Rules) candidates(role Role, self geometry.Vector3D, zone float64) iter.Seq[Entity] {
	if r.grid != nil {
		return r.grid.Nearby(r.registry, self, zone, role)
	}
	return r.registry.AllOfRole(role)
}

// flockmates yields the flock members qualifying for a rule with the given zone radius.
// With explicit adjacency the listed members qualify whatever their distance.
func (r *Rules) flockmates(a *Agent, self geometry.Vector3D, now time.Duration, zone float64) iter.Seq[neighbor] {
	return func(yield func(neighbor) bool) {
		if ids, ok := r.classifier.explicit(a.id); ok {
			for _, id := range ids {
				if !r.classifier.IsRole(id, FlockMember) {
					continue
				}
				e, err := r.registry.Lookup(id)
				if err != nil {
					continue
				}
				pos := e.PositionAt(now)
				d := geometry.Distance(self, pos)
				if d <= Epsilon {
					continue
				}
				if !yield(neighbor{entity: e, position: pos, distance: d}) {
					return
				}
			}
			return
		}
		for e := range r.candidates(FlockMember, self, zone) {
			if e.ID() == a.id {
				continue
			}
			pos := e.PositionAt(now)
			d := geometry.Distance(self, pos)
			if d <= Epsilon || d > zone {
				continue
			}
			if !yield(neighbor{entity: e, position: pos, distance: d}) {
				return
			}
		}
	}
}

func (r *Rules) separation(a *Agent, self geometry.Vector3D, now time.Duration) geometry.Vector3D {
	ref := a.params.RefDistance
	sum := geometry.Zero
	for n := range r.flockmates(a, self, now, a.params.ZoneSeparation) {
		sum = sum.Add(push(self, n.position, n.distance, ref))
	}
	return sum
}

func (r *Rules) alignment(a *Agent, self geometry.Vector3D, now time.Duration) geometry.Vector3D {
	sum := geometry.Zero
	count := 0
	for n := range r.flockmates(a, self, now, a.params.ZoneAlignment) {
		sum = sum.Add(n.entity.VelocityAt(now).Sub(a.vel))
		count++
	}
	if count == 0 {
		return geometry.Zero
	}
	return sum.Mul(1 / float64(count))
}

func (r *Rules) cohesion(a *Agent, self geometry.Vector3D, now time.Duration) geometry.Vector3D {
	sum := geometry.Zero
	count := 0
	for n := range r.flockmates(a, self, now, a.params.ZoneCohesion) {
		sum = sum.Add(n.position)
		count++
	}
	if count == 0 {
		return geometry.Zero
	}
	return sum.Mul(1 / float64(count)).Sub(self)
}

// repulsion sums the inverse-square push away from every candidate within zone.
func repulsion(candidates iter.Seq[Entity], self geometry.Vector3D, now time.Duration, zone, ref float64) geometry.Vector3D {
	sum := geometry.Zero
	for e := range candidates {
		pos := e.PositionAt(now)
		d := geometry.Distance(self, pos)
		if d <= Epsilon || d > zone {
			continue
		}
		sum = sum.Add(push(self, pos, d, ref))
	}
	return sum
}

// push points from other to self with magnitude ref·(ref/d)².
func push(self, other geometry.Vector3D, d, ref float64) geometry.Vector3D {
	k := ref / d
	return self.Sub(other).Mul(1 / d).Mul(k * k * ref)
}
