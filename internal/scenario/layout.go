package scenario

import (
	"fmt"
	"math"

	"github.com/iti/rngstream"

	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// Layout types.
const (
	LayoutGrid = "grid"
	LayoutDisc = "disc"
)

// Layout places the members of a group.
//
// A grid fills rows of GridWidth positions starting at (MinX, MinY), DeltaX apart, rows DeltaY
// apart. A disc draws positions uniformly in the disc of radius Rho centred on (X, Y).
// Both put every member at altitude Z.
type Layout struct {
	Type      string  `json:"type"`
	MinX      float64 `json:"minX,omitempty"`
	MinY      float64 `json:"minY,omitempty"`
	DeltaX    float64 `json:"deltaX,omitempty"`
	DeltaY    float64 `json:"deltaY,omitempty"`
	GridWidth int     `json:"gridWidth,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Rho       float64 `json:"rho,omitempty"`
	Z         float64 `json:"z,omitempty"`
}

// Positions returns n positions. rng is only used by random layouts.
func (l Layout) Positions(n int, rng *rngstream.RngStream) ([]geometry.Vector3D, error) {
	out := make([]geometry.Vector3D, 0, n)
	switch l.Type {
	case LayoutGrid:
		if l.GridWidth < 1 {
			return nil, fmt.Errorf("grid layout needs gridWidth >= 1, got %d", l.GridWidth)
		}
		for i := 0; i < n; i++ {
			col := float64(i % l.GridWidth)
			row := float64(i / l.GridWidth)
			out = append(out, geometry.NewVector(l.MinX+l.DeltaX*col, l.MinY+l.DeltaY*row, l.Z))
		}
	case LayoutDisc:
		for i := 0; i < n; i++ {
			// sqrt keeps the density uniform over the area
			r := l.Rho * math.Sqrt(rng.RandU01())
			theta := 2 * math.Pi * rng.RandU01()
			p := geometry.NewVectorPolar(r, theta, l.Z)
			out = append(out, geometry.NewVector(l.X+p.X, l.Y+p.Y, l.Z))
		}
	default:
		return nil, fmt.Errorf("unknown layout %q", l.Type)
	}
	return out, nil
}
