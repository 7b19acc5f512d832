// Package trace records trajectories produced by the flock engine: periodic position samples,
// pairwise distances and course changes, written to CSV files (optionally zstd compressed) or to
// a SQLite database.
package trace

import (
	"errors"
	"time"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/flock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// Sink receives trace rows.
type Sink interface {
	Position(at time.Duration, id int, p geometry.Vector3D) error
	Distance(at time.Duration, a, b int, d float64) error
	Course(c flock.CourseChange) error
	Close() error
}

type tee []Sink

// Tee returns a sink writing every row to all sinks.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) Position(at time.Duration, id int, p geometry.Vector3D) error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Position(at, id, p))
	}
	return errors.Join(errs...)
}

func (t tee) Distance(at time.Duration, a, b int, d float64) error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Distance(at, a, b, d))
	}
	return errors.Join(errs...)
}

func (t tee) Course(c flock.CourseChange) error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Course(c))
	}
	return errors.Join(errs...)
}

func (t tee) Close() error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// CourseRecorder forwards every course change of the engine to a sink.
// The first write error is kept and further rows are dropped.
type CourseRecorder struct {
	sink Sink
	err  error
}

// NewCourseRecorder returns an observer writing to sink.
func NewCourseRecorder(sink Sink) *CourseRecorder {
	return &CourseRecorder{sink: sink}
}

func (r *CourseRecorder) CourseChanged(c flock.CourseChange) {
	if r.err != nil {
		return
	}
	r.err = r.sink.Course(c)
}

// Err returns the first write error.
func (r *CourseRecorder) Err() error { return r.err }
