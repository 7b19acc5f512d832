package scenario

import (
	"fmt"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/trace"
)

// OpenSink opens the trace sink selected by the scenario. It returns nil for FormatNone.
func (c *Config) OpenSink() (trace.Sink, error) {
	switch c.Trace.Format {
	case FormatNone:
		return nil, nil
	case FormatCSV, FormatCSVZstd:
		s, err := trace.NewCSVSink(c.Trace.Dir, c.Prefix, c.Trace.Format == FormatCSVZstd)
		if err != nil {
			return nil, err
		}
		return s, nil
	case FormatSQLite:
		s, err := trace.OpenSQLite(c.Trace.Database, trace.Run{
			Prefix:   c.Prefix,
			Seed:     int64(c.Seed),
			Scenario: c.Name,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown trace format %q", c.Trace.Format)
	}
}
