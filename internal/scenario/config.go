// Package scenario describes a simulation setup (populations, layouts, rule parameters, traces)
// in a JSON or YAML file and builds the corresponding flock engine population.
package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/flock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/trace"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

//go:embed scenario.schema.json
var schemaJSON string

// Group kinds.
const (
	KindFlock    = "flock"
	KindStatic   = "static"
	KindScripted = "scripted"
)

// Trace formats.
const (
	FormatNone    = "none"
	FormatCSV     = "csv"
	FormatCSVZstd = "csv.zst"
	FormatSQLite  = "sqlite"
)

// Config is a complete scenario. Entity ids are assigned in group order starting at 0.
type Config struct {
	Name   string `json:"name,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Seed   uint64 `json:"seed,omitempty"`
	// StopTime in seconds.
	StopTime float64 `json:"stopTime,omitempty"`

	// DisableFlocking zeroes separation, alignment and cohesion weights of every flock group.
	DisableFlocking bool `json:"disableFlocking,omitempty"`
	// SpatialCellSize enables the grid index when > 0.
	SpatialCellSize float64 `json:"spatialCellSize,omitempty"`

	Defaults ParamsConfig `json:"defaults"`
	Groups   []Group      `json:"groups"`
	Trace    TraceConfig  `json:"trace"`
}

// ParamsConfig overrides flock parameters; nil fields keep the inherited value.
// Durations are in seconds.
type ParamsConfig struct {
	ZoneSeparation       *float64           `json:"zoneSeparation,omitempty"`
	ZoneAlignment        *float64           `json:"zoneAlignment,omitempty"`
	ZoneCohesion         *float64           `json:"zoneCohesion,omitempty"`
	ZoneAdversary        *float64           `json:"zoneAdversary,omitempty"`
	WeightSeparation     *float64           `json:"weightSeparation,omitempty"`
	WeightAlignment      *float64           `json:"weightAlignment,omitempty"`
	WeightCohesion       *float64           `json:"weightCohesion,omitempty"`
	WeightAdversary      *float64           `json:"weightAdversary,omitempty"`
	WeightCenter         *float64           `json:"weightCenter,omitempty"`
	Alpha                *float64           `json:"alpha,omitempty"`
	RefDistance          *float64           `json:"refDistance,omitempty"`
	RefAdversaryDistance *float64           `json:"refAdversaryDistance,omitempty"`
	Center               *geometry.Vector3D `json:"center,omitempty"`
	Enable3D             *bool              `json:"enable3D,omitempty"`
	MinZ                 *float64           `json:"minZ,omitempty"`
	MaxZ                 *float64           `json:"maxZ,omitempty"`
	MaxSpeed             *float64           `json:"maxSpeed,omitempty"`
	Interval             *float64           `json:"interval,omitempty"`
	Noise                *flock.NoiseSpec   `json:"noise,omitempty"`
}

// Group is a set of entities of the same kind sharing a layout and parameters.
type Group struct {
	Name  string      `json:"name,omitempty"`
	Kind  string      `json:"kind"`
	Role  *flock.Role `json:"role,omitempty"`
	Count int         `json:"count,omitempty"`

	// Layout places Count entities; Positions lists them explicitly instead.
	Layout    *Layout             `json:"layout,omitempty"`
	Positions []geometry.Vector3D `json:"positions,omitempty"`

	Params ParamsConfig `json:"params"`
	// CenterAtStart anchors the centering rule of each member at its initial position.
	CenterAtStart bool `json:"centerAtStart,omitempty"`
	// Neighbors[i] is the explicit adjacency of the i-th member, as absolute ids.
	Neighbors [][]int `json:"neighbors,omitempty"`

	Waypoints []WaypointConfig `json:"waypoints,omitempty"`
	// Hold keeps a scripted entity at its first waypoint.
	Hold bool `json:"hold,omitempty"`
}

// WaypointConfig is a waypoint with its time in seconds.
type WaypointConfig struct {
	T        float64           `json:"t"`
	Position geometry.Vector3D `json:"position"`
}

// TraceConfig selects what is recorded and where.
type TraceConfig struct {
	Dir      string `json:"dir,omitempty"`
	Format   string `json:"format,omitempty"`
	Database string `json:"database,omitempty"`
	// Period in seconds between position samples.
	Period    float64      `json:"period,omitempty"`
	Course    bool         `json:"course,omitempty"`
	Distances []trace.Pair `json:"distances,omitempty"`
}

// Seconds converts a duration in seconds to a time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// StopDuration returns StopTime as a duration.
func (c *Config) StopDuration() time.Duration { return Seconds(c.StopTime) }

// TracePeriod returns the sampling period, trace.DefaultPeriod when unset.
func (c *Config) TracePeriod() time.Duration {
	if c.Trace.Period <= 0 {
		return trace.DefaultPeriod
	}
	return Seconds(c.Trace.Period)
}

// Apply returns p with every non-nil override applied.
func (pc ParamsConfig) Apply(p flock.Params) flock.Params {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.ZoneSeparation, pc.ZoneSeparation)
	set(&p.ZoneAlignment, pc.ZoneAlignment)
	set(&p.ZoneCohesion, pc.ZoneCohesion)
	set(&p.ZoneAdversary, pc.ZoneAdversary)
	set(&p.WeightSeparation, pc.WeightSeparation)
	set(&p.WeightAlignment, pc.WeightAlignment)
	set(&p.WeightCohesion, pc.WeightCohesion)
	set(&p.WeightAdversary, pc.WeightAdversary)
	set(&p.WeightCenter, pc.WeightCenter)
	set(&p.Alpha, pc.Alpha)
	set(&p.RefDistance, pc.RefDistance)
	set(&p.RefAdversaryDistance, pc.RefAdversaryDistance)
	set(&p.MaxSpeed, pc.MaxSpeed)
	if pc.Center != nil {
		p.Center = *pc.Center
	}
	if pc.Enable3D != nil {
		p.Enable3D = *pc.Enable3D
	}
	if pc.MinZ != nil {
		p.MinZ = flock.Float(*pc.MinZ)
	}
	if pc.MaxZ != nil {
		p.MaxZ = flock.Float(*pc.MaxZ)
	}
	if pc.Interval != nil {
		p.Interval = Seconds(*pc.Interval)
	}
	if pc.Noise != nil {
		p.Noise = *pc.Noise
	}
	return p
}

// Load reads a scenario file, JSON or YAML depending on its extension, validates it against the
// embedded schema and fills unset fields with their defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(raw)
	default:
		return ParseJSON(raw)
	}
}

// ParseYAML converts a YAML document to JSON and parses it with ParseJSON.
func ParseYAML(raw []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario yaml: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("scenario yaml is not representable as json: %w", err)
	}
	return ParseJSON(b)
}

// ParseJSON validates raw against the scenario schema and decodes it.
func ParseJSON(raw []byte) (*Config, error) {
	sch, err := jsonschema.CompileString("scenario.schema.json", schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode scenario json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("scenario validation failed: %w", err)
	}

	cfg := &Config{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario: %w", err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	if c.Prefix == "" {
		c.Prefix = "boids"
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	if c.StopTime == 0 {
		c.StopTime = 100
	}
	if c.Trace.Format == "" {
		c.Trace.Format = FormatCSV
	}
	if c.Trace.Dir == "" {
		c.Trace.Dir = "output"
	}
	for i := range c.Groups {
		if c.Groups[i].Count == 0 {
			c.Groups[i].Count = max(1, len(c.Groups[i].Positions))
		}
	}
}

// Validate checks the cross-field rules the schema cannot express.
func (c *Config) Validate() error {
	if len(c.Groups) == 0 {
		return fmt.Errorf("scenario %q has no groups", c.Name)
	}
	for i, g := range c.Groups {
		where := fmt.Sprintf("group %d (%s)", i, g.Name)
		switch g.Kind {
		case KindFlock, KindStatic:
			if g.Layout == nil && len(g.Positions) != g.Count {
				return fmt.Errorf("%s: %d positions for %d members", where, len(g.Positions), g.Count)
			}
		case KindScripted:
			if len(g.Waypoints) == 0 {
				return fmt.Errorf("%s: scripted group without waypoints", where)
			}
		default:
			return fmt.Errorf("%s: unknown kind %q", where, g.Kind)
		}
		if g.Neighbors != nil && len(g.Neighbors) != g.Count {
			return fmt.Errorf("%s: %d neighbor lists for %d members", where, len(g.Neighbors), g.Count)
		}
		if g.Layout != nil && g.Layout.Type == LayoutGrid && g.Layout.GridWidth < 1 {
			return fmt.Errorf("%s: grid layout needs gridWidth >= 1", where)
		}
	}
	switch c.Trace.Format {
	case FormatNone, FormatCSV, FormatCSVZstd:
	case FormatSQLite:
		if c.Trace.Database == "" {
			return fmt.Errorf("sqlite trace needs a database path")
		}
	default:
		return fmt.Errorf("unknown trace format %q", c.Trace.Format)
	}
	return nil
}

// Size returns the number of entities the scenario creates.
func (c *Config) Size() int {
	n := 0
	for _, g := range c.Groups {
		n += g.Count
	}
	return n
}
