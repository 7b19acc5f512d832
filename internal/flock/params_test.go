package flock

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParams_DefaultsAreValid(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"negative separation zone", func(p *Params) { p.ZoneSeparation = -1 }},
		{"negative adversary zone", func(p *Params) { p.ZoneAdversary = -0.5 }},
		{"NaN cohesion zone", func(p *Params) { p.ZoneCohesion = math.NaN() }},
		{"alpha above one", func(p *Params) { p.Alpha = 1.01 }},
		{"alpha below zero", func(p *Params) { p.Alpha = -0.1 }},
		{"negative reference", func(p *Params) { p.RefDistance = -40 }},
		{"negative adversary reference", func(p *Params) { p.RefAdversaryDistance = -50 }},
		{"zero interval", func(p *Params) { p.Interval = 0 }},
		{"negative variance", func(p *Params) { p.Noise.Variance = -0.1 }},
		{"inverted altitude band", func(p *Params) { p.MinZ, p.MaxZ = Float(50), Float(40) }},
		{"NaN floor alone", func(p *Params) { p.MinZ, p.MaxZ = Float(math.NaN()), nil }},
		{"NaN ceiling alone", func(p *Params) { p.MinZ, p.MaxZ = nil, Float(math.NaN()) }},
		{"infinite ceiling", func(p *Params) { p.MaxZ = Float(math.Inf(1)) }},
		{"infinite weight", func(p *Params) { p.WeightCenter = math.Inf(1) }},
		{"infinite center", func(p *Params) { p.Center.X = math.Inf(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
		})
	}
}

func TestParams_ValidEdges(t *testing.T) {
	p := DefaultParams()
	p.ZoneSeparation, p.ZoneAlignment, p.ZoneCohesion, p.ZoneAdversary = 0, 0, 0, 0
	p.Alpha = 0
	p.MinZ, p.MaxZ = nil, Float(10)
	p.Interval = time.Nanosecond
	p.Noise.Variance = 0
	assert.NoError(t, p.Validate())

	p.Alpha = 1
	p.MinZ = Float(10)
	assert.NoError(t, p.Validate())
}

func TestParams_ReportsEveryProblem(t *testing.T) {
	p := DefaultParams()
	p.Alpha = 2
	p.Interval = -time.Second

	err := p.Validate()

	assert.ErrorContains(t, err, "alpha")
	assert.ErrorContains(t, err, "interval")
}

func TestNormalNoise(t *testing.T) {
	spec := NoiseSpec{Mean: 0, Variance: 0.1}
	a := NewNormalNoise(spec, 11, 3)
	b := NewNormalNoise(spec, 11, 3)
	c := NewNormalNoise(spec, 11, 4)

	const n = 10000
	var sum, sumSq float64
	same, differ := true, false
	for i := 0; i < n; i++ {
		x, y, z := a.Sample(), b.Sample(), c.Sample()
		same = same && x == y
		differ = differ || x != z
		sum += x
		sumSq += x * x
	}
	mean := sum / n
	variance := sumSq/n - mean*mean

	assert.True(t, same, "same seed and stream")
	assert.True(t, differ, "different streams")
	assert.InDelta(t, 0, mean, 0.02)
	assert.InDelta(t, 0.1, variance, 0.01)
}

func TestNormalNoise_Degenerate(t *testing.T) {
	n := NewNormalNoise(NoiseSpec{Mean: 0.25}, 1, 1)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.25, n.Sample())
	}
}

func TestSubstream(t *testing.T) {
	draw := func(seed, n uint64) []float64 {
		rng := Substream(seed, n)
		out := make([]float64, 5)
		for i := range out {
			out[i] = rng.RandU01()
		}
		return out
	}

	assert.Equal(t, draw(0, 2), draw(0, 2))
	assert.NotEqual(t, draw(0, 2), draw(0, 3))
	assert.NotEqual(t, draw(0, 2), draw(1, 2))
	for _, u := range draw(0, 0) {
		assert.Greater(t, u, 0.0)
		assert.Less(t, u, 1.0)
	}
}
