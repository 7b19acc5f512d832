package flock

import "errors"

var (
	// ErrNotFound is returned when an id is not present in the registry.
	ErrNotFound = errors.New("entity not found")
	// ErrDuplicateID is returned when an id is registered twice.
	ErrDuplicateID = errors.New("duplicate entity id")
	// ErrInvalidParams wraps every Params validation failure.
	ErrInvalidParams = errors.New("invalid flocking parameters")
	// ErrUnknownNeighbor is returned when an explicit neighbour list names an id that is not registered.
	ErrUnknownNeighbor = errors.New("unknown explicit neighbor")
	// ErrInvalidWaypoints is returned for an empty or unordered waypoint list.
	ErrInvalidWaypoints = errors.New("invalid waypoints")
	// ErrImmutable is returned when trying to commit state to an entity the engine does not drive.
	ErrImmutable = errors.New("entity state is not mutable")
)
