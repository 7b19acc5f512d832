package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tochemey/goakt/v3/actor"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/flock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// DefaultTimeout bounds a single request to the engine actor.
const DefaultTimeout = 5 * time.Second

// ErrStalled is returned by Drive when an advance does not move the clock.
var ErrStalled = errors.New("engine stalled")

// Advance moves the simulation forward by d and returns the new simulated time.
func Advance(ctx context.Context, pid *actor.PID, d time.Duration) (time.Duration, error) {
	reply, err := actor.Ask(ctx, pid, durationpb.New(d), DefaultTimeout)
	if err != nil {
		return 0, fmt.Errorf("advance by %s: %w", d, err)
	}
	now, ok := reply.(*durationpb.Duration)
	if !ok {
		return 0, fmt.Errorf("advance: unexpected reply %T", reply)
	}
	return now.AsDuration(), nil
}

// Drive advances the simulation in steps until stop and returns the final simulated time.
// progress, when not nil, is called after every step.
func Drive(ctx context.Context, pid *actor.PID, stop, step time.Duration, progress func(time.Duration)) (time.Duration, error) {
	if step <= 0 {
		return 0, fmt.Errorf("drive step %s must be > 0", step)
	}
	var now time.Duration
	for now < stop {
		if err := ctx.Err(); err != nil {
			return now, err
		}
		next, err := Advance(ctx, pid, step)
		if err != nil {
			return now, err
		}
		if next <= now {
			return now, fmt.Errorf("at %s: %w", now, ErrStalled)
		}
		now = next
		if progress != nil {
			progress(now)
		}
	}
	return now, nil
}

// State returns the state of entity id at the current simulated time.
func State(ctx context.Context, pid *actor.PID, id int) (flock.State, error) {
	reply, err := ask(ctx, pid, wrapperspb.Int64(int64(id)))
	if err != nil {
		return flock.State{}, err
	}
	return decodeState(reply)
}

// SnapshotOf returns the simulated time and the state of every entity.
func SnapshotOf(ctx context.Context, pid *actor.PID) (time.Duration, []flock.State, error) {
	reply, err := ask(ctx, pid, &emptypb.Empty{})
	if err != nil {
		return 0, nil, err
	}
	fields := reply.GetFields()
	at := time.Duration(fields["time"].GetNumberValue() * float64(time.Second))
	list := fields["entities"].GetListValue().GetValues()
	states := make([]flock.State, 0, len(list))
	for _, v := range list {
		st, err := decodeState(v.GetStructValue())
		if err != nil {
			return 0, nil, err
		}
		states = append(states, st)
	}
	return at, states, nil
}

// Retarget moves the centering anchor of agent id.
func Retarget(ctx context.Context, pid *actor.PID, id int, center geometry.Vector3D) error {
	_, err := ask(ctx, pid, RetargetCommand(id, center))
	return err
}

// RetargetCommand is the message moving the anchor of agent id, for callers using actor.Tell.
func RetargetCommand(id int, center geometry.Vector3D) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"op": structpb.NewStringValue("retarget"),
		"id": structpb.NewNumberValue(float64(id)),
		"x":  structpb.NewNumberValue(center.X),
		"y":  structpb.NewNumberValue(center.Y),
		"z":  structpb.NewNumberValue(center.Z),
	}}
}

// ask sends msg and unwraps a *structpb.Struct reply, turning an "error" field into an error.
func ask(ctx context.Context, pid *actor.PID, msg proto.Message) (*structpb.Struct, error) {
	reply, err := actor.Ask(ctx, pid, msg, DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("request %T: %w", msg, err)
	}
	s, ok := reply.(*structpb.Struct)
	if !ok {
		return nil, fmt.Errorf("request %T: unexpected reply %T", msg, reply)
	}
	if e, ok := s.GetFields()["error"]; ok {
		return nil, errors.New(e.GetStringValue())
	}
	return s, nil
}

func decodeState(s *structpb.Struct) (flock.State, error) {
	if s == nil {
		return flock.State{}, errors.New("missing state")
	}
	f := s.GetFields()
	role, err := flock.ParseRole(f["role"].GetStringValue())
	if err != nil {
		return flock.State{}, err
	}
	return flock.State{
		ID:   int(f["id"].GetNumberValue()),
		Role: role,
		Position: geometry.NewVector(
			f["x"].GetNumberValue(), f["y"].GetNumberValue(), f["z"].GetNumberValue()),
		Velocity: geometry.NewVector(
			f["vx"].GetNumberValue(), f["vy"].GetNumberValue(), f["vz"].GetNumberValue()),
	}, nil
}
