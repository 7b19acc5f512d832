package flock

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

func newTestRegistry() (*Registry, *time.Duration) {
	now := new(time.Duration)
	return NewRegistry(func() time.Duration { return *now }, NewClassifier()), now
}

func TestRegistry_AllOfRole(t *testing.T) {
	r, _ := newTestRegistry()
	require.NoError(t, r.Register(NewStatic(3, FlockMember, geometry.Zero)))
	require.NoError(t, r.Register(NewStatic(1, Adversary, geometry.Zero)))
	require.NoError(t, r.Register(NewStatic(2, FlockMember, geometry.Zero)))
	require.NoError(t, r.Register(NewStatic(4, Ignored, geometry.Zero)))

	ids := func(role Role) []int {
		var out []int
		for e := range r.AllOfRole(role) {
			out = append(out, e.ID())
		}
		return out
	}

	assert.Equal(t, []int{3, 2}, ids(FlockMember), "registration order")
	assert.Equal(t, []int{3, 2}, ids(FlockMember), "sequence is restartable")
	assert.Equal(t, []int{1}, ids(Adversary))
	assert.Nil(t, ids(Prey))
	assert.Equal(t, []int{3, 1, 2, 4}, r.IDs())
	assert.Equal(t, 4, r.Len())

	// early break
	for e := range r.AllOfRole(FlockMember) {
		assert.Equal(t, 3, e.ID())
		break
	}
	assert.Equal(t, 4, len(slices.Collect(r.All())))
}

func TestRegistry_SetStateRoundTrip(t *testing.T) {
	r, now := newTestRegistry()
	a := &Agent{id: 1, role: FlockMember}
	require.NoError(t, r.Register(a))

	*now = 3 * time.Second
	pos := geometry.NewVector(1.0/3, 2.0/7, 30)
	vel := geometry.NewVector(0.1, -0.7, 0)
	require.NoError(t, r.SetState(1, pos, vel))

	gotPos, err := r.PositionOf(1)
	require.NoError(t, err)
	gotVel, err := r.VelocityOf(1)
	require.NoError(t, err)
	assert.Equal(t, pos, gotPos)
	assert.Equal(t, vel, gotVel)

	*now = 5 * time.Second
	gotPos, _ = r.PositionOf(1)
	assert.True(t, gotPos.Eq(pos.Add(vel.Mul(2))))
}

func TestRegistry_Errors(t *testing.T) {
	r, _ := newTestRegistry()
	require.NoError(t, r.Register(NewStatic(1, Ignored, geometry.Zero)))

	assert.ErrorIs(t, r.Register(NewStatic(1, Prey, geometry.Zero)), ErrDuplicateID)
	role, ok := r.classifier.RoleOf(1)
	assert.True(t, ok)
	assert.Equal(t, Ignored, role, "a rejected duplicate does not reclassify")

	_, err := r.PositionOf(2)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.VelocityOf(2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.SetState(2, geometry.Zero, geometry.Zero), ErrNotFound)
	assert.ErrorIs(t, r.SetState(1, geometry.Zero, geometry.Zero), ErrImmutable)
}

func TestRole_Parse(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"boid", FlockMember},
		{"flock", FlockMember},
		{"prey", Prey},
		{"Adversary", Adversary},
		{"enemy", Adversary},
		{" ignore ", Ignored},
		{"ignored", Ignored},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseRole("wolf")
	assert.Error(t, err)
}

func TestRole_Text(t *testing.T) {
	var v struct {
		Roles []Role `json:"roles"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"roles":["boid","enemy","ignore"]}`), &v))
	assert.Equal(t, []Role{FlockMember, Adversary, Ignored}, v.Roles)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"roles":["boid","adversary","ignore"]}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"roles":["wolf"]}`), &v))
	assert.Equal(t, "Role(12)", Role(12).String())
}

func TestClassifier_NeighborsOf(t *testing.T) {
	c := NewClassifier()
	c.assign(1, FlockMember)
	c.assignNeighbors(1, []int{2, 3})

	ids, ok := c.NeighborsOf(1)
	require.True(t, ok)
	ids[0] = 99
	again, _ := c.NeighborsOf(1)
	assert.Equal(t, []int{2, 3}, again, "callers get a copy")

	_, ok = c.NeighborsOf(2)
	assert.False(t, ok)
	assert.True(t, c.IsRole(1, FlockMember))
	assert.False(t, c.IsRole(1, Adversary))
	assert.False(t, c.IsRole(5, FlockMember))
}
