package trace

import (
	"time"

	"github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/flock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/simclock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// DefaultPeriod is the sampling period of position and distance traces.
const DefaultPeriod = time.Second

// Pair names two entities whose distance is traced.
type Pair struct {
	A int `json:"a" yaml:"a"`
	B int `json:"b" yaml:"b"`
}

// Sampler periodically writes the position of every registered entity and the distance of every
// tracked pair. It runs on the same scheduler as the engine.
type Sampler struct {
	clock    flock.Scheduler
	registry *flock.Registry
	sink     Sink
	period   time.Duration
	pairs    []Pair
	logger   log.Logger

	handle  simclock.Handle
	samples int
	err     error
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithPeriod overrides DefaultPeriod.
func WithPeriod(d time.Duration) SamplerOption {
	return func(s *Sampler) { s.period = d }
}

// WithPairs adds distance pairs.
func WithPairs(pairs ...Pair) SamplerOption {
	return func(s *Sampler) { s.pairs = append(s.pairs, pairs...) }
}

// WithSamplerLogger sets the logger used to report write failures.
func WithSamplerLogger(l log.Logger) SamplerOption {
	return func(s *Sampler) { s.logger = l }
}

// NewSampler returns a stopped sampler.
func NewSampler(clock flock.Scheduler, registry *flock.Registry, sink Sink, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		clock:    clock,
		registry: registry,
		sink:     sink,
		period:   DefaultPeriod,
		logger:   log.DiscardLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start takes a first sample at the current instant, after everything already scheduled for it.
func (s *Sampler) Start() {
	s.clock.Cancel(s.handle)
	s.handle = s.clock.ScheduleNow(s.sample)
}

// Stop cancels the next sample.
func (s *Sampler) Stop() {
	s.clock.Cancel(s.handle)
	s.handle = 0
}

// Samples returns the number of sampling rounds taken.
func (s *Sampler) Samples() int { return s.samples }

// Err returns the first write error. Sampling stops at the first error.
func (s *Sampler) Err() error { return s.err }

func (s *Sampler) sample() {
	now := s.clock.Now()
	for e := range s.registry.All() {
		if err := s.sink.Position(now, e.ID(), e.PositionAt(now)); err != nil {
			s.fail(err)
			return
		}
	}
	for _, p := range s.pairs {
		a, errA := s.registry.PositionOf(p.A)
		b, errB := s.registry.PositionOf(p.B)
		if errA != nil || errB != nil {
			s.logger.Debugf("distance %d-%d skipped at %s: entity missing", p.A, p.B, now)
			continue
		}
		if err := s.sink.Distance(now, p.A, p.B, geometry.Distance(a, b)); err != nil {
			s.fail(err)
			return
		}
	}
	s.samples++
	s.handle = s.clock.Schedule(s.period, s.sample)
}

func (s *Sampler) fail(err error) {
	s.err = err
	s.handle = 0
	s.logger.Errorf("trace sampling stopped at %s: %v", s.clock.Now(), err)
}
