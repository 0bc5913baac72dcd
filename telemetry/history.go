package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pthm-cable/forage/config"

	_ "modernc.org/sqlite"
)

// ErrHistoryClosed is returned when the store is used before Init or after Close.
var ErrHistoryClosed = errors.New("history store is not initialized")

// HistoryStore persists run metadata and per-generation statistics to SQLite.
// Each store instance records under a fresh run id. A nil store discards writes.
type HistoryStore struct {
	path  string
	runID string

	mu sync.RWMutex
	db *sql.DB
}

// NewHistoryStore returns a store for the database at path.
func NewHistoryStore(path string) *HistoryStore {
	return &HistoryStore{path: path, runID: uuid.NewString()}
}

// RunID identifies the rows written by this store.
func (h *HistoryStore) RunID() string {
	if h == nil {
		return ""
	}
	return h.runID
}

// Init opens the database and creates the schema if needed.
func (h *HistoryStore) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.path == "" {
		return errors.New("history path is required")
	}
	if h.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", h.path)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("opening history: %w", err)
	}
	if err := createHistoryTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("creating history tables: %w", err)
	}

	h.db = db
	return nil
}

// RecordRun stores the seed and effective configuration of this run.
func (h *HistoryStore) RecordRun(ctx context.Context, seed int64, cfg *config.Config) error {
	if h == nil {
		return nil
	}
	db, err := h.getDB()
	if err != nil {
		return err
	}
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO runs (id, seed, started_at, config) VALUES (?, ?, ?, ?)`,
		h.runID, seed, time.Now().UTC().Format(time.RFC3339), string(data))
	if err != nil {
		return fmt.Errorf("recording run %s: %w", h.runID, err)
	}
	return nil
}

// RecordGeneration stores the statistics of one concluded generation.
func (h *HistoryStore) RecordGeneration(ctx context.Context, s GenerationStats) error {
	if h == nil {
		return nil
	}
	db, err := h.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO generations (run_id, generation, animals, min_fitness, max_fitness, avg_fitness, std_fitness, meals)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.runID, s.Generation, s.Animals, s.Min, s.Max, s.Avg, s.Std, s.Meals)
	if err != nil {
		return fmt.Errorf("recording generation %d: %w", s.Generation, err)
	}
	return nil
}

// Generations returns the stored statistics for runID in generation order.
func (h *HistoryStore) Generations(ctx context.Context, runID string) ([]GenerationStats, error) {
	db, err := h.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT generation, animals, min_fitness, max_fitness, avg_fitness, std_fitness, meals
		FROM generations WHERE run_id = ? ORDER BY generation`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying generations: %w", err)
	}
	defer rows.Close()

	var out []GenerationStats
	for rows.Next() {
		var s GenerationStats
		if err := rows.Scan(&s.Generation, &s.Animals, &s.Min, &s.Max, &s.Avg, &s.Std, &s.Meals); err != nil {
			return nil, fmt.Errorf("scanning generation: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RunInfo describes one recorded run.
type RunInfo struct {
	ID        string
	Seed      int64
	StartedAt string // RFC 3339, UTC
}

// Runs lists every recorded run, oldest first.
func (h *HistoryStore) Runs(ctx context.Context) ([]RunInfo, error) {
	db, err := h.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT id, seed, started_at FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.ID, &r.Seed, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database. It is safe to call more than once.
func (h *HistoryStore) Close() error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

func (h *HistoryStore) getDB() (*sql.DB, error) {
	if h == nil {
		return nil, ErrHistoryClosed
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.db == nil {
		return nil, ErrHistoryClosed
	}
	return h.db, nil
}

func createHistoryTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			config TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			animals INTEGER NOT NULL,
			min_fitness REAL NOT NULL,
			max_fitness REAL NOT NULL,
			avg_fitness REAL NOT NULL,
			std_fitness REAL NOT NULL,
			meals INTEGER NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
	`)
	return err
}
