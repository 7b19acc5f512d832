package scenario

import (
	"fmt"
	"slices"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/flock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/trace"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

func num(v float64) *float64 { return &v }

// DefaultConfig returns the relay scenario: two base stations 160 m apart on the ground, a line
// of five flocking agents 35 m apart between them at 30 m, each anchored at its start position,
// and an adversary which crosses the area at 10 m/s once enabled with SetEnemy.
func DefaultConfig() *Config {
	const (
		height = 30.0
		dist   = 35.0
		stop   = 100.0
	)
	boid := flock.FlockMember
	enemy := flock.Adversary
	cfg := &Config{
		Name:     "relay",
		Prefix:   "boids-relay",
		Seed:     1,
		StopTime: stop,
		Defaults: ParamsConfig{
			ZoneSeparation:   num(70),
			ZoneAlignment:    num(70),
			ZoneCohesion:     num(70),
			WeightSeparation: num(0.1),
			WeightAlignment:  num(1.0),
			WeightCohesion:   num(0.3),
			WeightAdversary:  num(0.2),
			WeightCenter:     num(0.2),
			RefDistance:      num(35),
			MinZ:             num(height),
			MaxZ:             num(height + 40),
			MaxSpeed:         num(15),
			Interval:         num(0.5),
		},
		Groups: []Group{
			{
				Name:  "base-stations",
				Kind:  KindStatic,
				Role:  &boid,
				Count: 2,
				Layout: &Layout{
					Type: LayoutGrid, GridWidth: 5,
					MinX: -80, DeltaX: 160,
				},
			},
			{
				Name:  "relays",
				Kind:  KindFlock,
				Count: 5,
				Layout: &Layout{
					Type: LayoutGrid, GridWidth: 5,
					MinX: -2 * dist, DeltaX: dist, Z: height,
				},
				CenterAtStart: true,
			},
			{
				Name:  "enemy",
				Kind:  KindScripted,
				Role:  &enemy,
				Count: 1,
				Hold:  true,
				Waypoints: []WaypointConfig{
					{T: 0, Position: geometry.NewVector(-500, 30, height)},
					{T: stop, Position: geometry.NewVector(500, 30, height)},
				},
			},
		},
		Trace: TraceConfig{
			Dir:    "output",
			Format: FormatCSV,
			Period: 1,
			Distances: []trace.Pair{
				{A: 0, B: 2}, {A: 2, B: 3}, {A: 3, B: 4}, {A: 4, B: 5}, {A: 5, B: 6}, {A: 6, B: 1},
			},
		},
	}
	return cfg
}

// SweepValues are the weights tried for separation, alignment and cohesion by Sweep.
var SweepValues = []float64{0.1, 0.3, 0.5, 0.7, 0.9}

// Sweep returns a baseline with separation, alignment and cohesion weights at zero, followed by
// one scenario per (ws, wa, wc) combination of SweepValues. Each applies the weights to every
// flock group and writes traces under its own prefix.
func Sweep(base *Config) []*Config {
	out := make([]*Config, 0, 1+len(SweepValues)*len(SweepValues)*len(SweepValues))
	out = append(out, withWeights(base, 0, 0, 0))
	for _, ws := range SweepValues {
		for _, wa := range SweepValues {
			for _, wc := range SweepValues {
				out = append(out, withWeights(base, ws, wa, wc))
			}
		}
	}
	return out
}

func withWeights(base *Config, ws, wa, wc float64) *Config {
	c := base.clone()
	c.Prefix = fmt.Sprintf("%s_ws%.1f_wa%.1f_wc%.1f", base.Prefix, ws, wa, wc)
	c.Defaults.WeightSeparation = num(ws)
	c.Defaults.WeightAlignment = num(wa)
	c.Defaults.WeightCohesion = num(wc)
	for i := range c.Groups {
		if c.Groups[i].Kind != KindFlock {
			continue
		}
		c.Groups[i].Params.WeightSeparation = num(ws)
		c.Groups[i].Params.WeightAlignment = num(wa)
		c.Groups[i].Params.WeightCohesion = num(wc)
	}
	return c
}

// clone copies c deep enough for Sweep and the command line switches to edit the copy.
// Override pointers are shared; callers replace them rather than writing through them.
func (c *Config) clone() *Config {
	cp := *c
	cp.Groups = slices.Clone(c.Groups)
	for i := range cp.Groups {
		cp.Groups[i].Positions = slices.Clone(c.Groups[i].Positions)
		cp.Groups[i].Waypoints = slices.Clone(c.Groups[i].Waypoints)
		cp.Groups[i].Neighbors = slices.Clone(c.Groups[i].Neighbors)
	}
	cp.Trace.Distances = slices.Clone(c.Trace.Distances)
	return &cp
}

// Clone returns an independent copy of c.
func (c *Config) Clone() *Config { return c.clone() }

// SetEnemy toggles the motion of every scripted adversary group: disabled adversaries hold
// their first waypoint.
func (c *Config) SetEnemy(enabled bool) {
	for i := range c.Groups {
		if c.Groups[i].Kind == KindScripted && c.Groups[i].role(flock.Adversary) == flock.Adversary {
			c.Groups[i].Hold = !enabled
		}
	}
}

// SetEnable3D overrides the 3-D flag of every flock group.
func (c *Config) SetEnable3D(enabled bool) {
	c.Defaults.Enable3D = &enabled
	for i := range c.Groups {
		if c.Groups[i].Kind == KindFlock {
			c.Groups[i].Params.Enable3D = &enabled
		}
	}
}
