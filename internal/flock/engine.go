// Package flock implements a boids mobility engine: agents steered by separation, alignment,
// cohesion, adversary avoidance and centering, updated on a discrete-event timeline.
//
// An agent recomputes its steering every Params.Interval and integrates its velocity every
// IntegrationStep. Between integration ticks it moves in a straight line, so positions can be
// read at any simulated instant.
package flock

import (
	"fmt"
	"time"

	"github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/simclock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// Scheduler is the simulated-time facility the engine runs on. *simclock.Clock implements it.
type Scheduler interface {
	Now() time.Duration
	Schedule(delay time.Duration, fn func()) simclock.Handle
	ScheduleNow(fn func()) simclock.Handle
	Cancel(h simclock.Handle) bool
}

// TaskKind names one of the two periodic tasks of an agent.
type TaskKind int

const (
	TaskRecompute TaskKind = iota
	TaskIntegrate
)

func (k TaskKind) String() string {
	switch k {
	case TaskRecompute:
		return "recompute"
	case TaskIntegrate:
		return "integrate"
	}
	return fmt.Sprintf("TaskKind(%d)", int(k))
}

type taskKey struct {
	id   int
	kind TaskKind
}

// AgentConfig holds everything needed to create a flocking agent.
type AgentConfig struct {
	ID       int
	Role     Role
	Position geometry.Vector3D
	Params   Params
	// Neighbors restricts flock neighbour search to these ids. Nil means global zone search;
	// an empty non-nil slice means the agent has no flock neighbours.
	Neighbors []int
	// Stream selects the noise stream of the engine seed.
	Stream uint64
	// Noise overrides the generator built from Params.Noise, Stream and the engine seed.
	Noise Noise
}

// State is a read-only copy of an entity's kinematics.
type State struct {
	ID       int
	Role     Role
	Position geometry.Vector3D
	Velocity geometry.Vector3D
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger, log.DiscardLogger by default.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSeed sets the seed all noise streams derive from.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithSpatialIndex replaces the linear global zone search with a uniform grid of the given cell size.
func WithSpatialIndex(cellSize float64) Option {
	return func(e *Engine) { e.grid = NewGrid(cellSize) }
}

// WithObserver registers a course observer at construction.
func WithObserver(o CourseObserver) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// Engine owns the registry, the rules and the per-agent periodic tasks.
type Engine struct {
	clock      Scheduler
	classifier *Classifier
	registry   *Registry
	grid       *Grid
	rules      *Rules
	integrator *Integrator
	observers  []CourseObserver

	agents []*Agent
	tasks  map[taskKey]simclock.Handle

	logger log.Logger
	seed   uint64
}

// NewEngine returns an empty engine scheduling on clock.
func NewEngine(clock Scheduler, opts ...Option) *Engine {
	e := &Engine{
		clock:      clock,
		classifier: NewClassifier(),
		tasks:      make(map[taskKey]simclock.Handle),
		logger:     log.DiscardLogger,
		seed:       1,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registry = NewRegistry(clock.Now, e.classifier)
	e.rules = NewRules(e.registry, e.classifier, e.grid)
	e.integrator = NewIntegrator(e.registry, e.rules)
	for _, o := range e.observers {
		e.integrator.Observe(o)
	}
	return e
}

// AddAgent validates cfg, registers the agent at rest and starts its two periodic tasks:
// a recompute right now and the first integration one IntegrationStep later.
func (e *Engine) AddAgent(cfg AgentConfig) (*Agent, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("agent %d: %w", cfg.ID, err)
	}
	if e.registry.Contains(cfg.ID) {
		return nil, fmt.Errorf("agent %d: %w", cfg.ID, ErrDuplicateID)
	}
	if cfg.Neighbors != nil {
		for _, id := range cfg.Neighbors {
			if id == cfg.ID || !e.registry.Contains(id) {
				return nil, fmt.Errorf("agent %d lists neighbor %d: %w", cfg.ID, id, ErrUnknownNeighbor)
			}
		}
	}
	noise := cfg.Noise
	if noise == nil {
		noise = NewNormalNoise(cfg.Params.Noise, e.seed, cfg.Stream)
	}
	a := &Agent{
		id:     cfg.ID,
		role:   cfg.Role,
		params: cfg.Params,
		noise:  noise,
		pos:    cfg.Position,
		at:     e.clock.Now(),
	}
	if err := e.registry.Register(a); err != nil {
		return nil, err
	}
	if cfg.Neighbors != nil {
		e.classifier.assignNeighbors(a.id, cfg.Neighbors)
	}
	e.agents = append(e.agents, a)
	e.integrator.notify(CourseChange{At: a.at, ID: a.id, Position: a.pos})

	e.arm(a, TaskRecompute, 0, func() { e.recompute(a) })
	e.arm(a, TaskIntegrate, IntegrationStep, func() { e.integrate(a) })
	e.logger.Debugf("agent %d (%s) added at %s, position %s", a.id, a.role, a.at, a.pos)
	return a, nil
}

// AddScripted registers an entity following waypoints.
func (e *Engine) AddScripted(id int, role Role, waypoints []Waypoint) (*Scripted, error) {
	s, err := NewScripted(id, role, waypoints)
	if err != nil {
		return nil, err
	}
	if err := e.registry.Register(s); err != nil {
		return nil, err
	}
	e.logger.Debugf("scripted %d (%s) added with %d waypoints", id, role, len(waypoints))
	return s, nil
}

// AddStatic registers an entity that never moves.
func (e *Engine) AddStatic(id int, role Role, pos geometry.Vector3D) (*Static, error) {
	s := NewStatic(id, role, pos)
	if err := e.registry.Register(s); err != nil {
		return nil, err
	}
	e.logger.Debugf("static %d (%s) added at %s", id, role, pos)
	return s, nil
}

// Retarget moves the centering anchor of agent id. It takes effect at the agent's next
// recompute tick.
func (e *Engine) Retarget(id int, center geometry.Vector3D) error {
	ent, err := e.registry.Lookup(id)
	if err != nil {
		return err
	}
	a, ok := ent.(*Agent)
	if !ok {
		return fmt.Errorf("retarget %d: %w", id, ErrImmutable)
	}
	if !center.IsFinite() {
		return fmt.Errorf("retarget %d to %s: %w", id, center, ErrInvalidParams)
	}
	a.retarget = &center
	return nil
}

// SetNeighbors replaces the explicit adjacency of agent id. Nil restores the global zone search.
// Every listed id must already be registered and differ from id.
func (e *Engine) SetNeighbors(id int, neighbors []int) error {
	ent, err := e.registry.Lookup(id)
	if err != nil {
		return err
	}
	if _, ok := ent.(*Agent); !ok {
		return fmt.Errorf("neighbors of %d: %w", id, ErrImmutable)
	}
	for _, n := range neighbors {
		if n == id || !e.registry.Contains(n) {
			return fmt.Errorf("agent %d lists neighbor %d: %w", id, n, ErrUnknownNeighbor)
		}
	}
	e.classifier.assignNeighbors(id, neighbors)
	return nil
}

func (e *Engine) arm(a *Agent, kind TaskKind, delay time.Duration, fn func()) {
	key := taskKey{id: a.id, kind: kind}
	if h, ok := e.tasks[key]; ok {
		e.clock.Cancel(h)
	}
	if delay == 0 {
		e.tasks[key] = e.clock.ScheduleNow(fn)
		return
	}
	e.tasks[key] = e.clock.Schedule(delay, fn)
}

func (e *Engine) recompute(a *Agent) {
	a.pending = true
	if a.retarget != nil {
		a.params.Center = *a.retarget
		a.retarget = nil
	}
	e.arm(a, TaskRecompute, a.params.Interval, func() { e.recompute(a) })
}

func (e *Engine) integrate(a *Agent) {
	if _, err := e.integrator.Step(a); err != nil {
		e.logger.Errorf("integrate agent %d: %v", a.id, err)
	}
	e.arm(a, TaskIntegrate, IntegrationStep, func() { e.integrate(a) })
}

// Scheduled reports whether the given task of agent id is armed.
func (e *Engine) Scheduled(id int, kind TaskKind) bool {
	_, ok := e.tasks[taskKey{id: id, kind: kind}]
	return ok
}

// Observe registers o for every subsequent course change.
func (e *Engine) Observe(o CourseObserver) {
	e.observers = append(e.observers, o)
	e.integrator.Observe(o)
}

// PositionOf returns the position of id at the current simulated time.
func (e *Engine) PositionOf(id int) (geometry.Vector3D, error) { return e.registry.PositionOf(id) }

// VelocityOf returns the velocity of id at the current simulated time.
func (e *Engine) VelocityOf(id int) (geometry.Vector3D, error) { return e.registry.VelocityOf(id) }

// Registry exposes the read side of the engine state.
func (e *Engine) Registry() *Registry { return e.registry }

// Classifier exposes roles and explicit adjacency.
func (e *Engine) Classifier() *Classifier { return e.classifier }

// Now returns the current simulated time.
func (e *Engine) Now() time.Duration { return e.clock.Now() }

// Seed returns the seed noise streams derive from.
func (e *Engine) Seed() uint64 { return e.seed }

// Agents returns the flocking agents in creation order.
func (e *Engine) Agents() []*Agent {
	out := make([]*Agent, len(e.agents))
	copy(out, e.agents)
	return out
}

// Snapshot returns the state of every entity at the current simulated time.
func (e *Engine) Snapshot() []State {
	now := e.clock.Now()
	out := make([]State, 0, e.registry.Len())
	for ent := range e.registry.All() {
		out = append(out, State{
			ID:       ent.ID(),
			Role:     ent.Role(),
			Position: ent.PositionAt(now),
			Velocity: ent.VelocityAt(now),
		})
	}
	return out
}
