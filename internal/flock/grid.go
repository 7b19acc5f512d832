package flock

import (
	"iter"
	"math"
	"time"

	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

type gridKey struct {
	x, y int
}

// Grid is a uniform spatial hash over the XY plane used to narrow the global zone search.
// It is rebuilt lazily, at most once per simulated instant, and only holds entities the rules
// can see (flock members and adversaries).
type Grid struct {
	cellSize float64
	cells    map[gridKey][]Entity

	built   bool
	builtAt time.Duration
	version uint64
}

// NewGrid returns a grid with square cells of the given side.
// The side is clamped to a minimum of 10 m to avoid tiny grids or div by zero.
func NewGrid(cellSize float64) *Grid {
	return &Grid{
		cellSize: math.Max(cellSize, 10.0),
		cells:    make(map[gridKey][]Entity),
	}
}

// CellSize returns the side of a cell in meters.
func (g *Grid) CellSize() float64 { return g.cellSize }

func (g *Grid) cellOf(x, y float64) gridKey {
	return gridKey{x: int(math.Floor(x / g.cellSize)), y: int(math.Floor(y / g.cellSize))}
}

// refresh re-buckets every visible entity when time moved or the population changed since the
// last build. Agents commit state at the instant they are read, so positions at a given instant
// do not change during that instant.
func (g *Grid) refresh(r *Registry) {
	now := r.now()
	if g.built && g.builtAt == now && g.version == r.version {
		return
	}
	// Reset slices to length 0 but keep their capacity, so steady state allocates nothing.
	for k := range g.cells {
		g.cells[k] = g.cells[k][:0]
	}
	for _, e := range r.entities {
		role, _ := r.classifier.RoleOf(e.ID())
		if role != FlockMember && role != Adversary {
			continue
		}
		p := e.PositionAt(now)
		key := g.cellOf(p.X, p.Y)
		g.cells[key] = append(g.cells[key], e)
	}
	g.built = true
	g.builtAt = now
	g.version = r.version
}

// Nearby yields the entities of the given role whose cell intersects the square of side 2*radius
// around center. Callers still have to check the exact distance.
func (g *Grid) Nearby(r *Registry, center geometry.Vector3D, radius float64, role Role) iter.Seq[Entity] {
	g.refresh(r)
	return func(yield func(Entity) bool) {
		minX := math.Floor((center.X - radius) / g.cellSize)
		maxX := math.Floor((center.X + radius) / g.cellSize)
		minY := math.Floor((center.Y - radius) / g.cellSize)
		maxY := math.Floor((center.Y + radius) / g.cellSize)
		span := (maxX - minX + 1) * (maxY - minY + 1)
		if math.IsNaN(span) || span > float64(len(g.cells)) {
			// the query covers more cells than are populated, a plain scan is cheaper
			for e := range r.AllOfRole(role) {
				if !yield(e) {
					return
				}
			}
			return
		}
		for gx := int(minX); gx <= int(maxX); gx++ {
			for gy := int(minY); gy <= int(maxY); gy++ {
				for _, e := range g.cells[gridKey{x: gx, y: gy}] {
					if !r.classifier.IsRole(e.ID(), role) {
						continue
					}
					if !yield(e) {
						return
					}
				}
			}
		}
	}
}

// Occupancy returns the number of non empty cells, used by benchmarks and the viewer overlay.
func (g *Grid) Occupancy() int {
	n := 0
	for _, c := range g.cells {
		if len(c) > 0 {
			n++
		}
	}
	return n
}
