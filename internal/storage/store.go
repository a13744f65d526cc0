package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/san-kum/dynmap/internal/dynamo"
	"github.com/san-kum/dynmap/internal/orbit"

	_ "modernc.org/sqlite" // SQLite driver
)

var ErrRunNotFound = errors.New("storage: run not found")

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store keeps generated orbits as .dat files under baseDir, indexed by a
// SQLite catalogue in baseDir/runs.db.
type Store struct {
	mu      sync.Mutex
	db      *sql.DB
	baseDir string
	lastID  int64
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	Params    map[string]float64 `json:"params"`
	Order     int                `json:"order"`
	Steps     int                `json:"steps"`
	Direction string             `json:"direction"`
	Seed      int64              `json:"seed"`
	Orbits    int                `json:"orbits"`
	Dim       int                `json:"dim"`
	Timestamp time.Time          `json:"timestamp"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`

	dataFile string
}

func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", baseDir, err)
	}

	dbPath := filepath.Join(baseDir, "runs.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, baseDir: baseDir}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) nextID(model string) string {
	n := time.Now().UnixNano()
	if n <= s.lastID {
		n = s.lastID + 1
	}
	s.lastID = n
	return fmt.Sprintf("%s_%d", model, n)
}

// Save writes orbits to a new data file and records the run. A single orbit
// is written with [orbit.Orbit.Save], several with [orbit.Orbit.Append].
// The ID, orbit count and dimension of meta are filled in.
func (s *Store) Save(ctx context.Context, meta RunMetadata, orbits []*orbit.Orbit) (string, error) {
	if len(orbits) == 0 {
		return "", errors.New("storage: no orbits to save")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta.ID = s.nextID(meta.Model)
	meta.Orbits = len(orbits)
	meta.Dim = orbits[0].Dim()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.dataFile = meta.ID + ".dat"

	path := filepath.Join(s.baseDir, meta.dataFile)
	var err error
	if len(orbits) == 1 {
		err = orbit.SaveFile(path, orbits[0])
	} else {
		err = orbit.AppendFile(path, orbits)
	}
	if err != nil {
		return "", fmt.Errorf("failed to write orbit data: %w", err)
	}

	if err := s.insert(ctx, &meta); err != nil {
		os.Remove(path)
		return "", err
	}
	return meta.ID, nil
}

func (s *Store) insert(ctx context.Context, meta *RunMetadata) error {
	params, err := json.Marshal(meta.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, model, params, ord, steps, direction, seed, orbits, dim, data_file, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Model, string(params), meta.Order, meta.Steps, meta.Direction,
		meta.Seed, meta.Orbits, meta.Dim, meta.dataFile, meta.Timestamp.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for name, value := range meta.Metrics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_metrics (run_id, name, value) VALUES (?, ?, ?)`,
			meta.ID, name, value); err != nil {
			return fmt.Errorf("failed to insert metric %s: %w", name, err)
		}
	}

	return tx.Commit()
}

const selectRun = `
	SELECT id, model, params, ord, steps, direction, seed, orbits, dim, data_file, created_at
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunMetadata, error) {
	var (
		meta      RunMetadata
		params    string
		createdAt string
	)
	if err := row.Scan(&meta.ID, &meta.Model, &params, &meta.Order, &meta.Steps, &meta.Direction,
		&meta.Seed, &meta.Orbits, &meta.Dim, &meta.dataFile, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &meta.Params); err != nil {
		return nil, fmt.Errorf("run %s: failed to decode params: %w", meta.ID, err)
	}
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("run %s: failed to parse timestamp: %w", meta.ID, err)
	}
	meta.Timestamp = ts
	return &meta, nil
}

// List returns all runs, newest first. Metrics are not loaded.
func (s *Store) List(ctx context.Context) ([]RunMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, selectRun+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		meta, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *meta)
	}
	return runs, rows.Err()
}

func (s *Store) Load(ctx context.Context, runID string) (*RunMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUnlocked(ctx, runID)
}

func (s *Store) loadUnlocked(ctx context.Context, runID string) (*RunMetadata, error) {
	meta, err := scanRun(s.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM run_metrics WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		if meta.Metrics == nil {
			meta.Metrics = make(map[string]float64)
		}
		meta.Metrics[name] = value
	}
	return meta, rows.Err()
}

// LoadOrbits parses the data file of a run.
func (s *Store) LoadOrbits(ctx context.Context, runID string) ([][]dynamo.State, error) {
	meta, err := s.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	return orbit.ReadFile(filepath.Join(s.baseDir, meta.dataFile))
}

// DataPath returns the path of the .dat file of a run.
func (s *Store) DataPath(ctx context.Context, runID string) (string, error) {
	meta, err := s.Load(ctx, runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, meta.dataFile), nil
}

// Delete removes a run and its data file.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.loadUnlocked(ctx, runID)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if err := os.Remove(filepath.Join(s.baseDir, meta.dataFile)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
