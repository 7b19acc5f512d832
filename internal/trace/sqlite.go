package trace

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/flock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
)

// batchSize is the number of rows written per transaction.
const batchSize = 2000

// Run describes one simulation run stored in a SQLite trace database.
type Run struct {
	ID        string `db:"id"`
	Prefix    string `db:"prefix"`
	Seed      int64  `db:"seed"`
	Scenario  string `db:"scenario"`
	StartedAt string `db:"started_at"`
}

// PositionRow is one stored position sample.
type PositionRow struct {
	T      float64 `db:"t"`
	Entity int     `db:"entity"`
	X      float64 `db:"x"`
	Y      float64 `db:"y"`
	Z      float64 `db:"z"`
}

// DistanceRow is one stored distance sample.
type DistanceRow struct {
	T        float64 `db:"t"`
	A        int     `db:"a"`
	B        int     `db:"b"`
	Distance float64 `db:"distance"`
}

// SQLiteSink stores traces of a run in a SQLite database. Several runs can share a file.
type SQLiteSink struct {
	conn  *sqlx.DB
	runID string

	mu      sync.Mutex
	tx      *sqlx.Tx
	pending int
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// OpenSQLite opens or creates the database at path and registers run. An empty run.ID gets a
// fresh identifier.
func OpenSQLite(path string, run Run) (*SQLiteSink, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open trace db: %w", err)
	}
	// one writer, and an in-memory database must not be split across connections
	conn.SetMaxOpenConns(1)

	s := &SQLiteSink{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate trace db: %w", err)
	}
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.StartedAt == "" {
		run.StartedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if _, err := conn.NamedExec(`INSERT INTO runs (id, prefix, seed, scenario, started_at)
		VALUES (:id, :prefix, :seed, :scenario, :started_at)`, run); err != nil {
		conn.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}
	s.runID = run.ID
	return s, nil
}

func (s *SQLiteSink) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		prefix TEXT NOT NULL,
		seed INTEGER NOT NULL,
		scenario TEXT NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS positions (
		run_id TEXT NOT NULL,
		t REAL NOT NULL,
		entity INTEGER NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		z REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS distances (
		run_id TEXT NOT NULL,
		t REAL NOT NULL,
		a INTEGER NOT NULL,
		b INTEGER NOT NULL,
		distance REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS course_changes (
		run_id TEXT NOT NULL,
		t REAL NOT NULL,
		entity INTEGER NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		z REAL NOT NULL,
		vx REAL NOT NULL,
		vy REAL NOT NULL,
		vz REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_positions_run ON positions(run_id, entity, t);
	CREATE INDEX IF NOT EXISTS idx_distances_run ON distances(run_id, a, b, t);
	CREATE INDEX IF NOT EXISTS idx_course_run ON course_changes(run_id, entity, t);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// RunID returns the identifier rows are stored under.
func (s *SQLiteSink) RunID() string { return s.runID }

func (s *SQLiteSink) Position(at time.Duration, id int, p geometry.Vector3D) error {
	return s.exec("INSERT INTO positions (run_id, t, entity, x, y, z) VALUES (?, ?, ?, ?, ?, ?)",
		s.runID, at.Seconds(), id, p.X, p.Y, p.Z)
}

func (s *SQLiteSink) Distance(at time.Duration, a, b int, d float64) error {
	return s.exec("INSERT INTO distances (run_id, t, a, b, distance) VALUES (?, ?, ?, ?, ?)",
		s.runID, at.Seconds(), a, b, d)
}

func (s *SQLiteSink) Course(c flock.CourseChange) error {
	return s.exec(`INSERT INTO course_changes (run_id, t, entity, x, y, z, vx, vy, vz)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, c.At.Seconds(), c.ID,
		c.Position.X, c.Position.Y, c.Position.Z,
		c.Velocity.X, c.Velocity.Y, c.Velocity.Z)
}

func (s *SQLiteSink) exec(query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		tx, err := s.conn.Beginx()
		if err != nil {
			return err
		}
		s.tx = tx
	}
	if _, err := s.tx.Exec(query, args...); err != nil {
		return err
	}
	s.pending++
	if s.pending >= batchSize {
		return s.commitLocked()
	}
	return nil
}

// Flush commits buffered rows.
func (s *SQLiteSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked()
}

func (s *SQLiteSink) commitLocked() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	s.pending = 0
	return err
}

// Close commits buffered rows and closes the database.
func (s *SQLiteSink) Close() error {
	if err := s.Flush(); err != nil {
		s.conn.Close()
		return err
	}
	return s.conn.Close()
}

// Runs lists every run stored in the database, oldest first.
func (s *SQLiteSink) Runs() ([]Run, error) {
	var runs []Run
	err := s.conn.Select(&runs, "SELECT id, prefix, seed, scenario, started_at FROM runs ORDER BY started_at, id")
	return runs, err
}

// Positions returns the committed samples of entity id for the current run.
func (s *SQLiteSink) Positions(id int) ([]PositionRow, error) {
	var rows []PositionRow
	err := s.conn.Select(&rows,
		"SELECT t, entity, x, y, z FROM positions WHERE run_id = ? AND entity = ? ORDER BY t",
		s.runID, id)
	return rows, err
}

// Distances returns the committed distance samples between a and b for the current run.
func (s *SQLiteSink) Distances(a, b int) ([]DistanceRow, error) {
	var rows []DistanceRow
	err := s.conn.Select(&rows,
		"SELECT t, a, b, distance FROM distances WHERE run_id = ? AND a = ? AND b = ? ORDER BY t",
		s.runID, a, b)
	return rows, err
}

// CourseChanges counts the committed course changes of the current run.
func (s *SQLiteSink) CourseChanges() (int, error) {
	var n int
	err := s.conn.Get(&n, "SELECT COUNT(*) FROM course_changes WHERE run_id = ?", s.runID)
	return n, err
}
