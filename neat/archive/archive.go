// Package archive persists evolution run history to SQLite so runs can be
// inspected and compared after the fact.
package archive

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tetraspore/neatgo/neat"

	_ "modernc.org/sqlite"
)

// RunInfo describes one evolution run.
type RunInfo struct {
	ID         string
	StartedAt  time.Time
	PopSize    int
	NumInputs  int
	NumOutputs int
}

// GenerationRecord is one generation's summary within a run.
type GenerationRecord struct {
	RunID         string
	Generation    int
	NumSpecies    int
	BestFitness   float64
	MeanFitness   float64
	BestGenomeKey int
	RecordedAt    time.Time
}

// Store archives evolution runs.
type Store interface {
	Init(ctx context.Context) error
	BeginRun(ctx context.Context, run RunInfo) error
	RecordGeneration(ctx context.Context, record GenerationRecord) error
	SaveBestGenome(ctx context.Context, runID string, generation int, genome *neat.Genome) error
	GetBestGenome(ctx context.Context, runID string, generation int) (*neat.Genome, bool, error)
	GenerationHistory(ctx context.Context, runID string) ([]GenerationRecord, error)
	Close() error
}

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) BeginRun(ctx context.Context, run RunInfo) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, pop_size, num_inputs, num_outputs)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			pop_size = excluded.pop_size,
			num_inputs = excluded.num_inputs,
			num_outputs = excluded.num_outputs
	`, run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.PopSize, run.NumInputs, run.NumOutputs)
	return err
}

func (s *SQLiteStore) RecordGeneration(ctx context.Context, record GenerationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO generations (run_id, generation, num_species, best_fitness, mean_fitness, best_genome_key, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			num_species = excluded.num_species,
			best_fitness = excluded.best_fitness,
			mean_fitness = excluded.mean_fitness,
			best_genome_key = excluded.best_genome_key,
			recorded_at = excluded.recorded_at
	`, record.RunID, record.Generation, record.NumSpecies, record.BestFitness,
		record.MeanFitness, record.BestGenomeKey, record.RecordedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *SQLiteStore) SaveBestGenome(ctx context.Context, runID string, generation int, genome *neat.Genome) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := encodeGenome(genome)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO best_genomes (run_id, generation, genome_key, fitness, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			genome_key = excluded.genome_key,
			fitness = excluded.fitness,
			payload = excluded.payload
	`, runID, generation, genome.Key, genome.Fitness, payload)
	return err
}

func (s *SQLiteStore) GetBestGenome(ctx context.Context, runID string, generation int) (*neat.Genome, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx,
		`SELECT payload FROM best_genomes WHERE run_id = ? AND generation = ?`,
		runID, generation).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	genome, err := decodeGenome(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode best genome for run %s generation %d: %w", runID, generation, err)
	}
	return genome, true, nil
}

func (s *SQLiteStore) GenerationHistory(ctx context.Context, runID string) ([]GenerationRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, generation, num_species, best_fitness, mean_fitness, best_genome_key, recorded_at
		FROM generations
		WHERE run_id = ?
		ORDER BY generation
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []GenerationRecord
	for rows.Next() {
		var (
			record     GenerationRecord
			recordedAt string
		)
		if err := rows.Scan(&record.RunID, &record.Generation, &record.NumSpecies,
			&record.BestFitness, &record.MeanFitness, &record.BestGenomeKey, &recordedAt); err != nil {
			return nil, err
		}
		record.RecordedAt, err = time.Parse(time.RFC3339, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at for run %s generation %d: %w", runID, record.Generation, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			pop_size INTEGER NOT NULL,
			num_inputs INTEGER NOT NULL,
			num_outputs INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			num_species INTEGER NOT NULL,
			best_fitness REAL NOT NULL,
			mean_fitness REAL NOT NULL,
			best_genome_key INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
		CREATE TABLE IF NOT EXISTS best_genomes (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			genome_key INTEGER NOT NULL,
			fitness REAL NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
	`)
	return err
}

func encodeGenome(genome *neat.Genome) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(genome); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGenome(payload []byte) (*neat.Genome, error) {
	var genome neat.Genome
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&genome); err != nil {
		return nil, err
	}
	return &genome, nil
}
