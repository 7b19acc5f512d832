package scenario

import (
	"fmt"

	"github.com/iti/rngstream"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/flock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// layoutStream is the substream of the run seed used for random layouts. Agent noise uses
// substream id+1.
const layoutStream = 0

// Population lists the ids created by Build, per kind.
type Population struct {
	Agents   []int
	Statics  []int
	Scripted []int
}

// Build registers every entity of the scenario in e, assigning ids in group order from 0.
// Agent noise stream numbers are their ids plus one.
func (c *Config) Build(e *flock.Engine) (*Population, error) {
	rng := flock.Substream(c.Seed, layoutStream)
	defaults := c.Defaults.Apply(flock.DefaultParams())
	pop := &Population{}
	next := 0
	// adjacency may point forward, so it is wired once every entity exists
	links := make(map[int][]int)

	for gi, g := range c.Groups {
		positions, err := g.positions(rng)
		if err != nil {
			return nil, fmt.Errorf("group %d (%s): %w", gi, g.Name, err)
		}
		for i := 0; i < g.Count; i++ {
			id := next
			next++
			switch g.Kind {
			case KindFlock:
				cfg := flock.AgentConfig{
					ID:       id,
					Role:     g.role(flock.FlockMember),
					Position: positions[i],
					Params:   c.params(g, defaults, positions[i]),
					Stream:   uint64(id) + 1,
				}
				if g.Neighbors != nil {
					links[id] = append([]int{}, g.Neighbors[i]...)
				}
				if _, err := e.AddAgent(cfg); err != nil {
					return nil, fmt.Errorf("group %d (%s): %w", gi, g.Name, err)
				}
				pop.Agents = append(pop.Agents, id)
			case KindStatic:
				if _, err := e.AddStatic(id, g.role(flock.FlockMember), positions[i]); err != nil {
					return nil, fmt.Errorf("group %d (%s): %w", gi, g.Name, err)
				}
				pop.Statics = append(pop.Statics, id)
			case KindScripted:
				if _, err := e.AddScripted(id, g.role(flock.Adversary), g.waypoints()); err != nil {
					return nil, fmt.Errorf("group %d (%s): %w", gi, g.Name, err)
				}
				pop.Scripted = append(pop.Scripted, id)
			default:
				return nil, fmt.Errorf("group %d (%s): unknown kind %q", gi, g.Name, g.Kind)
			}
		}
	}
	for _, id := range pop.Agents {
		if ids, ok := links[id]; ok {
			if err := e.SetNeighbors(id, ids); err != nil {
				return nil, err
			}
		}
	}
	return pop, nil
}

func (c *Config) params(g Group, defaults flock.Params, start geometry.Vector3D) flock.Params {
	p := g.Params.Apply(defaults)
	if c.DisableFlocking {
		p.WeightSeparation, p.WeightAlignment, p.WeightCohesion = 0, 0, 0
	}
	if g.CenterAtStart {
		p.Center = start
	}
	return p
}

func (g Group) role(fallback flock.Role) flock.Role {
	if g.Role == nil {
		return fallback
	}
	return *g.Role
}

func (g Group) positions(rng *rngstream.RngStream) ([]geometry.Vector3D, error) {
	if g.Kind == KindScripted {
		return nil, nil
	}
	if g.Layout != nil {
		return g.Layout.Positions(g.Count, rng)
	}
	if len(g.Positions) != g.Count {
		return nil, fmt.Errorf("%d positions for %d members", len(g.Positions), g.Count)
	}
	return g.Positions, nil
}

// waypoints converts the configured trajectory; with Hold only the first waypoint is kept.
func (g Group) waypoints() []flock.Waypoint {
	wps := make([]flock.Waypoint, 0, len(g.Waypoints))
	for _, w := range g.Waypoints {
		wps = append(wps, flock.Waypoint{At: Seconds(w.T), Position: w.Position})
		if g.Hold {
			break
		}
	}
	return wps
}

// AgentIDs returns the ids Build gives to flocking agents.
func (c *Config) AgentIDs() []int {
	var ids []int
	next := 0
	for _, g := range c.Groups {
		for range g.Count {
			if g.Kind == KindFlock {
				ids = append(ids, next)
			}
			next++
		}
	}
	return ids
}
