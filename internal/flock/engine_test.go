package flock

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

func TestEngine_TwoMembersSteerTowardEachOther(t *testing.T) {
	e, clock := newTestEngine(t)
	p := quietParams()
	p.WeightSeparation, p.WeightAlignment, p.WeightCohesion = 0.1, 0.2, 0.3
	p.WeightCenter = 0
	p.Alpha = 0.5
	p.MaxSpeed = 15
	mustAgent(t, e, 1, geometry.NewVector(0, 0, 30), p)
	mustAgent(t, e, 2, geometry.NewVector(40, 0, 30), p)

	clock.RunUntil(IntegrationStep)

	v1, err := e.VelocityOf(1)
	require.NoError(t, err)
	v2, err := e.VelocityOf(2)
	require.NoError(t, err)

	// 0.5 * (0.3*40 - 0.1*40)
	assert.InDelta(t, 4, v1.X, 1e-9)
	assert.Positive(t, v1.X, "first member heads toward the second")
	assert.Negative(t, v2.X, "second member heads toward the first")
	assert.LessOrEqual(t, v1.Len(), 15.0)
	assert.LessOrEqual(t, v2.Len(), 15.0)

	clock.RunUntil(30 * time.Second)
	for _, id := range []int{1, 2} {
		v, err := e.VelocityOf(id)
		require.NoError(t, err)
		assert.True(t, v.IsFinite())
		assert.LessOrEqual(t, v.Len(), 15.0+1e-9)
	}
}

func TestEngine_SpeedClampKeepsDirection(t *testing.T) {
	e, clock := newTestEngine(t)
	p := quietParams()
	p.Alpha = 1
	p.WeightCenter = 1
	p.Center = geometry.NewVector(3000, 4000, 30)
	p.MaxSpeed = 15
	mustAgent(t, e, 1, geometry.NewVector(0, 0, 30), p)

	clock.RunUntil(IntegrationStep)

	v, err := e.VelocityOf(1)
	require.NoError(t, err)
	assert.InDelta(t, 15, v.Len(), 1e-9)
	assert.True(t, v.Normalize().Eq(geometry.NewVector(0.6, 0.8, 0)), "direction %v", v.Normalize())
}

func TestEngine_NoSpeedLimit(t *testing.T) {
	e, clock := newTestEngine(t)
	p := quietParams()
	p.Alpha = 1
	p.WeightCenter = 1
	p.Center = geometry.NewVector(300, 400, 30)
	mustAgent(t, e, 1, geometry.NewVector(0, 0, 30), p)

	clock.RunUntil(IntegrationStep)

	v, err := e.VelocityOf(1)
	require.NoError(t, err)
	assert.InDelta(t, 500, v.Len(), 1e-9)
}

func TestEngine_AltitudeBounds(t *testing.T) {
	tests := []struct {
		name   string
		z      float64
		center float64
	}{
		{"descending at floor", 30, 0},
		{"climbing at ceiling", 40, 100},
		{"below floor", 20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, clock := newTestEngine(t)
			p := quietParams()
			p.Enable3D = true
			p.Alpha = 1
			p.WeightCenter = 1
			p.Center = geometry.NewVector(10, 0, tt.center)
			mustAgent(t, e, 1, geometry.NewVector(0, 0, tt.z), p)

			clock.RunUntil(IntegrationStep)

			v, err := e.VelocityOf(1)
			require.NoError(t, err)
			assert.Equal(t, 0.0, v.Z)
			assert.InDelta(t, 10, v.X, 1e-12)
		})
	}
}

func TestEngine_AltitudeFreeInsideBand(t *testing.T) {
	e, clock := newTestEngine(t)
	p := quietParams()
	p.Enable3D = true
	p.Alpha = 1
	p.WeightCenter = 1
	p.Center = geometry.NewVector(0, 0, 0)
	mustAgent(t, e, 1, geometry.NewVector(0, 0, 35), p)

	clock.RunUntil(IntegrationStep)

	v, err := e.VelocityOf(1)
	require.NoError(t, err)
	assert.Equal(t, -35.0, v.Z)
}

func TestEngine_NoiseScaledByIntegrationStep(t *testing.T) {
	tests := []struct {
		name    string
		enable  bool
		wantZ   float64
		samples int
	}{
		{"flat", false, 0, 4},
		{"3d inside band", true, 0.2, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, clock := newTestEngine(t)
			p := quietParams()
			p.Alpha = 0
			p.Enable3D = tt.enable
			noise := &constantNoise{v: 0.01}
			_, err := e.AddAgent(AgentConfig{ID: 1, Position: geometry.NewVector(0, 0, 35), Params: p, Noise: noise})
			require.NoError(t, err)

			clock.RunUntil(IntegrationStep)
			v, err := e.VelocityOf(1)
			require.NoError(t, err)
			assert.InDelta(t, 0.1, v.X, 1e-12)
			assert.InDelta(t, 0.1, v.Y, 1e-12)

			clock.RunUntil(2 * IntegrationStep)
			v, err = e.VelocityOf(1)
			require.NoError(t, err)
			assert.InDelta(t, 0.2, v.X, 1e-12)
			assert.InDelta(t, 0.2, v.Y, 1e-12)
			assert.InDelta(t, tt.wantZ, v.Z, 1e-12)
			assert.Equal(t, tt.samples, noise.calls)
		})
	}
}

func TestEngine_FlatModeIgnoresAltitude(t *testing.T) {
	e, clock := newTestEngine(t)
	p := quietParams()
	p.Alpha = 1
	p.WeightCenter = 1
	p.Center = geometry.NewVector(0, 0, 100)
	mustAgent(t, e, 1, geometry.NewVector(0, 0, 30), p)

	clock.RunUntil(time.Second)

	v, _ := e.VelocityOf(1)
	pos, _ := e.PositionOf(1)
	assert.Equal(t, 0.0, v.Z)
	assert.Equal(t, 30.0, pos.Z)
}

func TestEngine_CommitReadRoundTrip(t *testing.T) {
	rec := &recorder{}
	e, clock := newTestEngine(t, WithObserver(rec), WithSeed(99))
	p := DefaultParams()
	mustAgent(t, e, 1, geometry.NewVector(0, 0, 30), p)
	mustAgent(t, e, 2, geometry.NewVector(30, 10, 30), p)

	for _, at := range []time.Duration{100 * time.Millisecond, 700 * time.Millisecond, 2 * time.Second} {
		clock.RunUntil(at)
		for _, id := range []int{1, 2} {
			c, ok := rec.last(id)
			require.True(t, ok)
			require.Equal(t, at, c.At)
			pos, err := e.PositionOf(id)
			require.NoError(t, err)
			vel, err := e.VelocityOf(id)
			require.NoError(t, err)
			assert.Equal(t, c.Position, pos)
			assert.Equal(t, c.Velocity, vel)
		}
	}
}

func TestEngine_LinearMotionBetweenTicks(t *testing.T) {
	e, clock := newTestEngine(t)
	p := quietParams()
	p.Alpha = 1
	p.WeightCenter = 1
	p.Center = geometry.NewVector(100, 0, 30)
	mustAgent(t, e, 1, geometry.NewVector(0, 0, 30), p)

	clock.RunUntil(IntegrationStep)
	clock.RunUntil(IntegrationStep + 50*time.Millisecond)

	pos, err := e.PositionOf(1)
	require.NoError(t, err)
	assert.InDelta(t, 5, pos.X, 1e-9, "100 m/s during 50 ms")
}

func TestEngine_Reproducible(t *testing.T) {
	run := func(seed uint64) []State {
		e, clock := newTestEngine(t, WithSeed(seed))
		p := DefaultParams()
		p.MaxSpeed = 20
		for i := 0; i < 5; i++ {
			mustAgent(t, e, i, geometry.NewVector(float64(i)*20, float64(i%2)*15, 30), p)
		}
		_, err := e.AddScripted(10, Adversary, []Waypoint{
			{At: 0, Position: geometry.NewVector(-200, 0, 30)},
			{At: 10 * time.Second, Position: geometry.NewVector(200, 0, 30)},
		})
		require.NoError(t, err)
		clock.RunUntil(10 * time.Second)
		return e.Snapshot()
	}

	first := run(5)
	second := run(5)
	other := run(6)

	assert.Equal(t, first, second, "same seed and streams must give bit identical trajectories")
	assert.NotEqual(t, first, other)
}

func TestEngine_Tasks(t *testing.T) {
	e, clock := newTestEngine(t)
	p := quietParams()
	p.Interval = time.Second
	a := mustAgent(t, e, 1, geometry.Zero, p)

	assert.True(t, e.Scheduled(1, TaskRecompute))
	assert.True(t, e.Scheduled(1, TaskIntegrate))
	assert.False(t, a.Pending())

	clock.RunUntil(0)
	assert.True(t, a.Pending(), "recompute runs at creation")

	clock.RunUntil(IntegrationStep)
	assert.False(t, a.Pending(), "first integration consumes the flag")

	clock.RunUntil(950 * time.Millisecond)
	assert.False(t, a.Pending())

	// recompute at 1s was armed before the integration at 1s, so it runs first
	clock.RunUntil(time.Second)
	assert.False(t, a.Pending())
	assert.Equal(t, 2, clock.Pending(), "exactly one pending task of each kind")
}

func TestEngine_Retarget(t *testing.T) {
	e, clock := newTestEngine(t)
	a := mustAgent(t, e, 1, geometry.Zero, quietParams())
	target := geometry.NewVector(100, 0, 30)

	require.NoError(t, e.Retarget(1, target))
	assert.NotEqual(t, target, a.Params().Center, "applied on the next recompute tick")

	clock.RunUntil(0)
	assert.Equal(t, target, a.Params().Center)

	_, err := e.AddStatic(2, Ignored, geometry.Zero)
	require.NoError(t, err)
	assert.ErrorIs(t, e.Retarget(2, target), ErrImmutable)
	assert.ErrorIs(t, e.Retarget(3, target), ErrNotFound)
}

func TestEngine_AddAgentErrors(t *testing.T) {
	e, _ := newTestEngine(t)
	mustAgent(t, e, 1, geometry.Zero, quietParams())

	bad := quietParams()
	bad.Alpha = 1.5
	_, err := e.AddAgent(AgentConfig{ID: 2, Params: bad})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = e.AddAgent(AgentConfig{ID: 1, Params: quietParams()})
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = e.AddAgent(AgentConfig{ID: 3, Params: quietParams(), Neighbors: []int{1, 42}})
	assert.ErrorIs(t, err, ErrUnknownNeighbor)

	_, err = e.AddAgent(AgentConfig{ID: 4, Params: quietParams(), Neighbors: []int{4}})
	assert.ErrorIs(t, err, ErrUnknownNeighbor)

	_, err = e.AddStatic(1, Ignored, geometry.Zero)
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = e.PositionOf(99)
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, 1, e.Registry().Len(), "rejected agents leave no trace")
}

func TestEngine_SetNeighbors(t *testing.T) {
	e, _ := newTestEngine(t)
	mustAgent(t, e, 1, geometry.Zero, quietParams())
	mustAgent(t, e, 2, geometry.NewVector(10, 0, 0), quietParams())
	_, err := e.AddStatic(3, FlockMember, geometry.Zero)
	require.NoError(t, err)

	require.NoError(t, e.SetNeighbors(1, []int{2, 3}))
	got, ok := e.Classifier().NeighborsOf(1)
	require.True(t, ok)
	assert.Equal(t, []int{2, 3}, got)

	require.NoError(t, e.SetNeighbors(1, []int{}))
	got, ok = e.Classifier().NeighborsOf(1)
	assert.True(t, ok)
	assert.Empty(t, got)

	require.NoError(t, e.SetNeighbors(1, nil))
	_, ok = e.Classifier().NeighborsOf(1)
	assert.False(t, ok, "nil restores the zone search")

	assert.ErrorIs(t, e.SetNeighbors(1, []int{1}), ErrUnknownNeighbor)
	assert.ErrorIs(t, e.SetNeighbors(1, []int{7}), ErrUnknownNeighbor)
	assert.ErrorIs(t, e.SetNeighbors(3, []int{1}), ErrImmutable)
	assert.ErrorIs(t, e.SetNeighbors(9, nil), ErrNotFound)
}

func TestEngine_ObserverSeesCreation(t *testing.T) {
	e, _ := newTestEngine(t)
	rec := &recorder{}
	e.Observe(rec)
	mustAgent(t, e, 7, geometry.NewVector(1, 2, 3), quietParams())

	require.Len(t, rec.changes, 1)
	assert.Equal(t, CourseChange{At: 0, ID: 7, Position: geometry.NewVector(1, 2, 3)}, rec.changes[0])
}

func TestEngine_SnapshotIncludesEveryEntity(t *testing.T) {
	e, clock := newTestEngine(t)
	mustAgent(t, e, 1, geometry.Zero, quietParams())
	_, err := e.AddStatic(2, Ignored, geometry.NewVector(5, 5, 0))
	require.NoError(t, err)
	_, err = e.AddScripted(3, Adversary, []Waypoint{
		{At: 0, Position: geometry.Zero},
		{At: 2 * time.Second, Position: geometry.NewVector(20, 0, 0)},
	})
	require.NoError(t, err)

	clock.RunUntil(time.Second)
	snap := e.Snapshot()

	require.Len(t, snap, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{snap[0].ID, snap[1].ID, snap[2].ID})
	assert.Equal(t, Adversary, snap[2].Role)
	assert.True(t, snap[2].Position.Eq(geometry.NewVector(10, 0, 0)))
	assert.True(t, snap[2].Velocity.Eq(geometry.NewVector(10, 0, 0)))
	assert.Len(t, e.Agents(), 1)
}

func BenchmarkEngine_Run(b *testing.B) {
	for i := 0; i < b.N; i++ {
		e, clock := newTestEngine(b, WithSpatialIndex(100))
		for id := 0; id < 100; id++ {
			mustAgent(b, e, id, geometry.NewVector(float64(id%10)*30, float64(id/10)*30, 30), DefaultParams())
		}
		clock.RunUntil(10 * time.Second)
	}
}
