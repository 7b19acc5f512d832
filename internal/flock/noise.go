package flock

import (
	"math"

	"github.com/iti/rngstream"
)

// mrgModulus2 bounds the last three MRG32k3a seed components; it is the smaller modulus.
const mrgModulus2 = 4294944443

// Noise produces one scalar perturbation per call.
type Noise interface {
	Sample() float64
}

// NormalNoise draws from N(mean, variance) on one substream of an MRG32k3a generator.
// Two NormalNoise built with the same seed and stream produce the same sequence.
type NormalNoise struct {
	mean   float64
	stddev float64
	rng    *rngstream.RngStream
	spare  float64
	cached bool
}

// Substream returns substream n of the MRG32k3a generator seeded with seed. Reaching
// substream n costs n jumps, so n is meant to be small (an entity id).
func Substream(seed, n uint64) *rngstream.RngStream {
	rng := new(rngstream.RngStream)
	v := 1 + seed%(mrgModulus2-1)
	rng.SetSeed([]uint64{v, v, v, v, v, v})
	for range n {
		rng.ResetNextSubstream()
	}
	return rng
}

// NewNormalNoise returns the noise source of stream number stream of the run seeded with seed.
func NewNormalNoise(spec NoiseSpec, seed, stream uint64) *NormalNoise {
	return &NormalNoise{
		mean:   spec.Mean,
		stddev: math.Sqrt(spec.Variance),
		rng:    Substream(seed, stream),
	}
}

func (n *NormalNoise) Sample() float64 {
	if n.stddev == 0 {
		return n.mean
	}
	return n.mean + n.stddev*n.standard()
}

// standard is the polar method; each accepted pair yields two samples.
func (n *NormalNoise) standard() float64 {
	if n.cached {
		n.cached = false
		return n.spare
	}
	for {
		u := 2*n.rng.RandU01() - 1
		v := 2*n.rng.RandU01() - 1
		w := u*u + v*v
		if w > 0 && w < 1 {
			k := math.Sqrt(-2 * math.Log(w) / w)
			n.spare, n.cached = v*k, true
			return u * k
		}
	}
}
