// Package service hosts a flock engine inside a goakt actor. The actor owns the virtual clock and
// every entity; callers drive it with messages and receive snapshots on a channel.
//
// Messages:
//
//	*durationpb.Duration   advance the simulated time, replies with the new time
//	*wrapperspb.Int64Value state of one entity, replies with a *structpb.Struct
//	*emptypb.Empty         snapshot of every entity, replies with a *structpb.Struct
//	*structpb.Struct       command: {"op": "retarget", "id": n, "x": .., "y": .., "z": ..}
package service

import (
	"fmt"
	"time"

	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/flock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/scenario"
	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/simclock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/trace"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// Snapshot is the state of the simulation after an advance.
type Snapshot struct {
	At     time.Duration
	States []flock.State
	Done   bool
}

// EngineActor runs one scenario.
type EngineActor struct {
	cfg        *scenario.Config
	sink       trace.Sink
	snapshotCh chan<- *Snapshot
	observers  []flock.CourseObserver

	clock    *simclock.Clock
	engine   *flock.Engine
	sampler  *trace.Sampler
	recorder *trace.CourseRecorder
	pop      *scenario.Population
	done     bool
}

var _ actor.Actor = (*EngineActor)(nil)

// Option configures an EngineActor.
type Option func(*EngineActor)

// WithSink records position, distance and optionally course traces to sink.
func WithSink(sink trace.Sink) Option {
	return func(a *EngineActor) { a.sink = sink }
}

// WithSnapshots pushes a snapshot after every advance. Sends never block: a full channel drops
// the snapshot.
func WithSnapshots(ch chan<- *Snapshot) Option {
	return func(a *EngineActor) { a.snapshotCh = ch }
}

// WithCourseObserver forwards every course change to o, from the actor goroutine.
func WithCourseObserver(o flock.CourseObserver) Option {
	return func(a *EngineActor) { a.observers = append(a.observers, o) }
}

// NewEngineActor returns an actor for cfg. The population is built when the actor starts.
func NewEngineActor(cfg *scenario.Config, opts ...Option) *EngineActor {
	a := &EngineActor{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *EngineActor) PreStart(ctx *actor.Context) error {
	logger := ctx.ActorSystem().Logger()
	a.clock = simclock.New()
	engineOpts := []flock.Option{flock.WithLogger(logger), flock.WithSeed(a.cfg.Seed)}
	if a.cfg.SpatialCellSize > 0 {
		engineOpts = append(engineOpts, flock.WithSpatialIndex(a.cfg.SpatialCellSize))
	}
	for _, o := range a.observers {
		engineOpts = append(engineOpts, flock.WithObserver(o))
	}
	if a.sink != nil && a.cfg.Trace.Course {
		a.recorder = trace.NewCourseRecorder(a.sink)
		engineOpts = append(engineOpts, flock.WithObserver(a.recorder))
	}
	a.engine = flock.NewEngine(a.clock, engineOpts...)

	pop, err := a.cfg.Build(a.engine)
	if err != nil {
		return fmt.Errorf("build scenario %q: %w", a.cfg.Name, err)
	}
	a.pop = pop
	if a.sink != nil {
		a.sampler = trace.NewSampler(a.clock, a.engine.Registry(), a.sink,
			trace.WithPeriod(a.cfg.TracePeriod()),
			trace.WithPairs(a.cfg.Trace.Distances...),
			trace.WithSamplerLogger(logger))
	}
	logger.Infof("scenario %q ready: %d agents, %d static, %d scripted",
		a.cfg.Name, len(pop.Agents), len(pop.Statics), len(pop.Scripted))
	return nil
}

func (a *EngineActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		if a.sampler != nil {
			a.sampler.Start()
		}
		ctx.Logger().Debugf("engine %s started, stop at %s", ctx.Self().Name(), a.cfg.StopDuration())

	case *durationpb.Duration:
		a.advance(ctx, msg.AsDuration())
		ctx.Response(durationpb.New(a.clock.Now()))

	case *wrapperspb.Int64Value:
		ctx.Response(a.state(int(msg.GetValue())))

	case *emptypb.Empty:
		ctx.Response(a.snapshotStruct())

	case *structpb.Struct:
		ctx.Response(a.command(msg))

	default:
		ctx.Unhandled()
	}
}

func (a *EngineActor) PostStop(ctx *actor.Context) error {
	if a.sampler != nil {
		a.sampler.Stop()
	}
	ctx.ActorSystem().Logger().Infof("scenario %q stopped at %s", a.cfg.Name, a.clock.Now())
	return nil
}

// advance runs the clock forward by d, never past the stop time.
func (a *EngineActor) advance(ctx *actor.ReceiveContext, d time.Duration) {
	if d < 0 {
		ctx.Logger().Errorf("refusing to advance by negative duration %s", d)
		return
	}
	stop := a.cfg.StopDuration()
	target := min(a.clock.Now()+d, stop)
	if !a.done {
		a.clock.RunUntil(target)
	}
	if a.clock.Now() >= stop && !a.done {
		a.done = true
		if a.sampler != nil {
			a.sampler.Stop()
		}
		ctx.Logger().Infof("scenario %q reached stop time %s after %d events",
			a.cfg.Name, stop, a.clock.Fired())
	}
	if a.sampler != nil && a.sampler.Err() != nil {
		ctx.Logger().Errorf("trace sampler: %v", a.sampler.Err())
	}
	if a.recorder != nil && a.recorder.Err() != nil {
		ctx.Logger().Errorf("course trace: %v", a.recorder.Err())
	}
	a.pushSnapshot()
}

func (a *EngineActor) pushSnapshot() {
	if a.snapshotCh == nil {
		return
	}
	select {
	case a.snapshotCh <- &Snapshot{At: a.clock.Now(), States: a.engine.Snapshot(), Done: a.done}:
	default:
		// viewer busy, skip frame
	}
}

func (a *EngineActor) state(id int) *structpb.Struct {
	now := a.clock.Now()
	ent, err := a.engine.Registry().Lookup(id)
	if err != nil {
		return errorStruct(err)
	}
	s, err := structpb.NewStruct(stateMap(flock.State{
		ID:       ent.ID(),
		Role:     ent.Role(),
		Position: ent.PositionAt(now),
		Velocity: ent.VelocityAt(now),
	}))
	if err != nil {
		return errorStruct(err)
	}
	s.Fields["time"] = structpb.NewNumberValue(now.Seconds())
	return s
}

func (a *EngineActor) snapshotStruct() *structpb.Struct {
	states := a.engine.Snapshot()
	entities := make([]any, 0, len(states))
	for _, st := range states {
		entities = append(entities, stateMap(st))
	}
	s, err := structpb.NewStruct(map[string]any{
		"time":     a.clock.Now().Seconds(),
		"done":     a.done,
		"entities": entities,
	})
	if err != nil {
		return errorStruct(err)
	}
	return s
}

func (a *EngineActor) command(msg *structpb.Struct) *structpb.Struct {
	fields := msg.GetFields()
	switch op := fields["op"].GetStringValue(); op {
	case "retarget":
		id := int(fields["id"].GetNumberValue())
		center := geometry.NewVector(
			fields["x"].GetNumberValue(),
			fields["y"].GetNumberValue(),
			fields["z"].GetNumberValue(),
		)
		if err := a.engine.Retarget(id, center); err != nil {
			return errorStruct(err)
		}
		return okStruct()
	default:
		return errorStruct(fmt.Errorf("unknown command %q", op))
	}
}

func stateMap(s flock.State) map[string]any {
	return map[string]any{
		"id":   s.ID,
		"role": s.Role.String(),
		"x":    s.Position.X,
		"y":    s.Position.Y,
		"z":    s.Position.Z,
		"vx":   s.Velocity.X,
		"vy":   s.Velocity.Y,
		"vz":   s.Velocity.Z,
	}
}

func okStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"ok": structpb.NewBoolValue(true)}}
}

func errorStruct(err error) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"error": structpb.NewStringValue(err.Error())}}
}
