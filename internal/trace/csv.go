package trace

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/flock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

const (
	positionHeader = "time,x,y,z"
	distanceHeader = "time,distance"
	courseHeader   = "time,id,x,y,z,vx,vy,vz"
)

// CSVSink writes one CSV file per traced entity, per distance pair and one for course changes:
//
//	<prefix>_position_<id>.csv
//	<prefix>_distance_<a>_<b>.csv
//	<prefix>_course.csv
//
// Numbers use 4 fixed decimals. With compression every file gets a .zst suffix.
type CSVSink struct {
	dir      string
	prefix   string
	compress bool

	mu    sync.Mutex
	files map[string]*csvFile
}

type csvFile struct {
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewCSVSink creates dir if needed.
func NewCSVSink(dir, prefix string, compress bool) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	return &CSVSink{
		dir:      dir,
		prefix:   prefix,
		compress: compress,
		files:    make(map[string]*csvFile),
	}, nil
}

func (s *CSVSink) Position(at time.Duration, id int, p geometry.Vector3D) error {
	name := fmt.Sprintf("%s_position_%d.csv", s.prefix, id)
	return s.write(name, positionHeader, seconds(at), fixed(p.X), fixed(p.Y), fixed(p.Z))
}

func (s *CSVSink) Distance(at time.Duration, a, b int, d float64) error {
	name := fmt.Sprintf("%s_distance_%d_%d.csv", s.prefix, a, b)
	return s.write(name, distanceHeader, seconds(at), fixed(d))
}

func (s *CSVSink) Course(c flock.CourseChange) error {
	name := s.prefix + "_course.csv"
	return s.write(name, courseHeader, seconds(c.At), strconv.Itoa(c.ID),
		fixed(c.Position.X), fixed(c.Position.Y), fixed(c.Position.Z),
		fixed(c.Velocity.X), fixed(c.Velocity.Y), fixed(c.Velocity.Z))
}

// Files returns the paths written so far, sorted.
func (s *CSVSink) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for name := range s.files {
		out = append(out, s.path(name))
	}
	slices.Sort(out)
	return out
}

// Close flushes and closes every file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, cf := range s.files {
		errs = append(errs, cf.close())
		delete(s.files, name)
	}
	return errors.Join(errs...)
}

func (s *CSVSink) path(name string) string {
	if s.compress {
		name += ".zst"
	}
	return filepath.Join(s.dir, name)
}

func (s *CSVSink) write(name, header string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cf, ok := s.files[name]
	if !ok {
		var err error
		if cf, err = s.open(name); err != nil {
			return err
		}
		s.files[name] = cf
		if _, err := cf.w.WriteString(header + "\n"); err != nil {
			return err
		}
	}
	_, err := cf.w.WriteString(strings.Join(fields, ",") + "\n")
	return err
}

func (s *CSVSink) open(name string) (*csvFile, error) {
	f, err := os.Create(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	if !s.compress {
		return &csvFile{f: f, w: bufio.NewWriter(f)}, nil
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &csvFile{f: f, enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

func (cf *csvFile) close() error {
	err := cf.w.Flush()
	if cf.enc != nil {
		err = errors.Join(err, cf.enc.Close())
	}
	return errors.Join(err, cf.f.Close())
}

func fixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func seconds(at time.Duration) string {
	return fixed(at.Seconds())
}
