package flock

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// Params are the rule parameters of one flocking agent.
type Params struct {
	// Zone radii in meters.
	ZoneSeparation float64
	ZoneAlignment  float64
	ZoneCohesion   float64
	ZoneAdversary  float64

	WeightSeparation float64
	WeightAlignment  float64
	WeightCohesion   float64
	WeightAdversary  float64
	WeightCenter     float64

	// Alpha blends the new steering into the previous velocity: 0 keeps the old velocity,
	// 1 replaces it.
	Alpha float64

	// RefDistance and RefAdversaryDistance scale the separation and avoidance pushes.
	RefDistance          float64
	RefAdversaryDistance float64

	Center geometry.Vector3D

	Enable3D bool
	// MinZ and MaxZ bound the altitude when Enable3D is set. Nil means unbounded.
	MinZ *float64
	MaxZ *float64

	// MaxSpeed in m/s, negative for no limit.
	MaxSpeed float64

	// Interval between two steering recomputations.
	Interval time.Duration

	Noise NoiseSpec
}

// NoiseSpec describes the normal distribution of the per-tick velocity perturbation.
type NoiseSpec struct {
	Mean     float64 `json:"mean" yaml:"mean"`
	Variance float64 `json:"variance" yaml:"variance"`
}

// Float returns a pointer to v, handy for MinZ and MaxZ literals.
func Float(v float64) *float64 { return &v }

// DefaultParams returns the reference parameter set of the boids mobility model.
func DefaultParams() Params {
	return Params{
		ZoneSeparation:       100,
		ZoneAlignment:        100,
		ZoneCohesion:         100,
		ZoneAdversary:        100,
		WeightSeparation:     0.1,
		WeightAlignment:      0.2,
		WeightCohesion:       0.3,
		WeightAdversary:      0.2,
		WeightCenter:         0.2,
		Alpha:                0.5,
		RefDistance:          40,
		RefAdversaryDistance: 50,
		Center:               geometry.NewVector(0, 0, 30),
		Enable3D:             false,
		MinZ:                 Float(30),
		MaxZ:                 Float(40),
		MaxSpeed:             -1,
		Interval:             500 * time.Millisecond,
		Noise:                NoiseSpec{Mean: 0, Variance: 0.1},
	}
}

// Validate reports every out-of-range parameter at once. Nothing is clamped.
func (p Params) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

	for _, z := range []struct {
		name string
		v    float64
	}{
		{"separation", p.ZoneSeparation},
		{"alignment", p.ZoneAlignment},
		{"cohesion", p.ZoneCohesion},
		{"adversary", p.ZoneAdversary},
	} {
		check(z.v >= 0 && !math.IsNaN(z.v), "%s zone radius %v must be >= 0", z.name, z.v)
	}
	for _, w := range []float64{p.WeightSeparation, p.WeightAlignment, p.WeightCohesion, p.WeightAdversary, p.WeightCenter} {
		check(finite(w), "weight %v must be finite", w)
	}
	check(p.Alpha >= 0 && p.Alpha <= 1, "alpha %v must be in [0,1]", p.Alpha)
	check(p.RefDistance >= 0 && finite(p.RefDistance), "reference distance %v must be >= 0", p.RefDistance)
	check(p.RefAdversaryDistance >= 0 && finite(p.RefAdversaryDistance),
		"adversary reference distance %v must be >= 0", p.RefAdversaryDistance)
	check(p.Center.IsFinite(), "center %v must be finite", p.Center)
	check(!math.IsNaN(p.MaxSpeed), "max speed must be a number")
	check(p.Interval > 0, "recompute interval %s must be > 0", p.Interval)
	check(p.Noise.Variance >= 0 && finite(p.Noise.Variance), "noise variance %v must be >= 0", p.Noise.Variance)
	check(finite(p.Noise.Mean), "noise mean %v must be finite", p.Noise.Mean)
	if p.MinZ != nil {
		check(finite(*p.MinZ), "min altitude %v must be finite", *p.MinZ)
	}
	if p.MaxZ != nil {
		check(finite(*p.MaxZ), "max altitude %v must be finite", *p.MaxZ)
	}
	if p.MinZ != nil && p.MaxZ != nil {
		check(*p.MinZ <= *p.MaxZ, "min altitude %v above max altitude %v", *p.MinZ, *p.MaxZ)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(problems, "; "))
	}
	return nil
}
