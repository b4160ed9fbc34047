// Package registry records submitted experiments and simulation states in a
// local SQLite database so runs can be monitored and analyzed later.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/malcamp/internal/model"
)

// ErrNotFound is returned when no matching experiment exists.
var ErrNotFound = errors.New("registry: not found")

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
  id         TEXT PRIMARY KEY,
  name       TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS simulations (
  id            TEXT PRIMARY KEY,
  experiment_id TEXT NOT NULL REFERENCES experiments(id) ON DELETE CASCADE,
  seq           INTEGER NOT NULL,
  tags          TEXT NOT NULL,
  state         TEXT NOT NULL,
  updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS simulations_experiment ON simulations(experiment_id, seq);
`

// Store persists experiments in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the registry at path, creating it and its directory if needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("registry path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveExperiment inserts or renames an experiment.
func (s *Store) SaveExperiment(ctx context.Context, exp model.Experiment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(exp.ID) == "" {
		return fmt.Errorf("experiment id is required")
	}
	createdAt := exp.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO experiments (id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		exp.ID, exp.Name, toMillis(createdAt))
	if err != nil {
		return fmt.Errorf("save experiment: %w", err)
	}
	return nil
}

// SaveSimulations inserts or replaces simulations in order.
func (s *Store) SaveSimulations(ctx context.Context, sims []model.Simulation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, sim := range sims {
		tags, err := json.Marshal(sim.Tags)
		if err != nil {
			return fmt.Errorf("encode tags of %s: %w", sim.ID, err)
		}
		updatedAt := sim.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = s.now()
		}
		state := sim.State
		if state == "" {
			state = model.StateCreated
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO simulations (id, experiment_id, seq, tags, state, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET tags = excluded.tags, state = excluded.state, updated_at = excluded.updated_at`,
			sim.ID, sim.ExperimentID, i, string(tags), string(state), toMillis(updatedAt))
		if err != nil {
			return fmt.Errorf("save simulation %s: %w", sim.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpdateState records a simulation's latest state.
func (s *Store) UpdateState(ctx context.Context, simulationID string, state model.SimulationState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE simulations SET state = ?, updated_at = ? WHERE id = ?`,
		string(state), toMillis(s.now()), simulationID)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("simulation %s: %w", simulationID, ErrNotFound)
	}
	return nil
}

// Experiment returns one experiment by ID.
func (s *Store) Experiment(ctx context.Context, id string) (model.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return model.Experiment{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT id, name, created_at FROM experiments WHERE id = ?`, id)
	return scanExperiment(row)
}

// LatestExperiment returns the most recently created experiment.
func (s *Store) LatestExperiment(ctx context.Context) (model.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return model.Experiment{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM experiments ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	return scanExperiment(row)
}

func scanExperiment(row *sql.Row) (model.Experiment, error) {
	var (
		exp       model.Experiment
		createdAt int64
	)
	if err := row.Scan(&exp.ID, &exp.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Experiment{}, ErrNotFound
		}
		return model.Experiment{}, fmt.Errorf("scan experiment: %w", err)
	}
	exp.CreatedAt = fromMillis(createdAt)
	return exp, nil
}

// Simulations returns an experiment's simulations in submission order.
func (s *Store) Simulations(ctx context.Context, experimentID string) ([]model.Simulation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, experiment_id, tags, state, updated_at FROM simulations
		 WHERE experiment_id = ? ORDER BY seq`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("query simulations: %w", err)
	}
	defer rows.Close()

	var sims []model.Simulation
	for rows.Next() {
		var (
			sim       model.Simulation
			tags      string
			state     string
			updatedAt int64
		)
		if err := rows.Scan(&sim.ID, &sim.ExperimentID, &tags, &state, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan simulation: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &sim.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of %s: %w", sim.ID, err)
		}
		sim.State = model.SimulationState(state)
		sim.UpdatedAt = fromMillis(updatedAt)
		sims = append(sims, sim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulations: %w", err)
	}
	return sims, nil
}
