package flock

import (
	"fmt"
	"slices"
	"strings"
)

// Role tells the rule engine how an entity takes part in the flock.
type Role int

const (
	// FlockMember entities are candidates for separation, alignment and cohesion.
	FlockMember Role = iota
	// Prey entities are tracked but never steer anyone.
	Prey
	// Adversary entities are candidates for adversary avoidance only.
	Adversary
	// Ignored entities are invisible to every rule (base stations, towers...).
	Ignored
)

var roleNames = [...]string{
	FlockMember: "boid",
	Prey:        "prey",
	Adversary:   "adversary",
	Ignored:     "ignore",
}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

// ParseRole converts a role name to a Role. "enemy", "flock" and "ignored" are accepted as aliases.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "boid", "flock", "member":
		return FlockMember, nil
	case "prey":
		return Prey, nil
	case "adversary", "enemy":
		return Adversary, nil
	case "ignore", "ignored":
		return Ignored, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if r < 0 || int(r) >= len(roleNames) {
		return nil, fmt.Errorf("unknown role %d", int(r))
	}
	return []byte(roleNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, used by the JSON and YAML scenario decoders.
func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Classifier records the role of every entity and the optional explicit adjacency of flocking
// agents. Entries are written once, when an entity is registered.
type Classifier struct {
	roles     map[int]Role
	neighbors map[int][]int
}

// NewClassifier returns an empty classifier.
func NewClassifier() *Classifier {
	return &Classifier{
		roles:     make(map[int]Role),
		neighbors: make(map[int][]int),
	}
}

func (c *Classifier) assign(id int, role Role) {
	c.roles[id] = role
}

func (c *Classifier) assignNeighbors(id int, ids []int) {
	if ids == nil {
		delete(c.neighbors, id)
		return
	}
	c.neighbors[id] = slices.Clone(ids)
}

// IsRole reports whether id is registered with the given role.
func (c *Classifier) IsRole(id int, role Role) bool {
	r, ok := c.roles[id]
	return ok && r == role
}

// RoleOf returns the role of id.
func (c *Classifier) RoleOf(id int) (Role, bool) {
	r, ok := c.roles[id]
	return r, ok
}

// NeighborsOf returns a copy of the explicit neighbour list of id. The boolean is false when the
// agent uses the global zone search; an empty list with true means "no flock neighbours".
func (c *Classifier) NeighborsOf(id int) ([]int, bool) {
	ids, ok := c.neighbors[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(ids), true
}

func (c *Classifier) explicit(id int) ([]int, bool) {
	ids, ok := c.neighbors[id]
	return ids, ok
}
