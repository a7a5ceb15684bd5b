// Package history keeps a SQLite ledger of fit runs and their loss
// sequences.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run is one call to the fitter.
type Run struct {
	ID int64

	DataFile     string
	Samples      int
	Seed         int64
	LearningRate float32
	Iterations   int

	W1        float32
	W2        float32
	Bias      float32
	FinalLoss float32
	RSquared  float64

	TrainedAt time.Time

	// Losses is only filled by RecordRun's caller; Runs leaves it empty.
	Losses []float32
}

// Store is an open ledger.
type Store struct {
	db *sql.DB
}

// Fitted values of a diverged run may be NaN, which SQLite cannot store as a
// REAL; NaN is written as NULL and read back as NaN.
const schema = `
CREATE TABLE IF NOT EXISTS fit_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    data_file TEXT NOT NULL,
    samples INTEGER NOT NULL,
    seed INTEGER NOT NULL,
    learning_rate REAL NOT NULL,
    iterations INTEGER NOT NULL,
    w1 REAL,
    w2 REAL,
    bias REAL,
    final_loss REAL,
    r_squared REAL,
    trained_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS fit_losses (
    run_id INTEGER NOT NULL REFERENCES fit_runs(id) ON DELETE CASCADE,
    step INTEGER NOT NULL,
    loss REAL,
    PRIMARY KEY (run_id, step)
);
`

// Open opens or creates the ledger at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("while opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("while creating history tables: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores run and its losses in one transaction and returns the new
// run ID.
func (s *Store) RecordRun(ctx context.Context, run Run) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("while starting transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
        INSERT INTO fit_runs (data_file, samples, seed, learning_rate, iterations, w1, w2, bias, final_loss, r_squared, trained_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.DataFile, run.Samples, run.Seed, run.LearningRate, run.Iterations,
		nullable(float64(run.W1)), nullable(float64(run.W2)), nullable(float64(run.Bias)),
		nullable(float64(run.FinalLoss)), nullable(run.RSquared), run.TrainedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("while inserting run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("while reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fit_losses (run_id, step, loss) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("while preparing loss insert: %w", err)
	}
	defer stmt.Close()

	for step, loss := range run.Losses {
		if _, err := stmt.ExecContext(ctx, id, step, nullable(float64(loss))); err != nil {
			return 0, fmt.Errorf("while inserting loss for step %d: %w", step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("while committing run: %w", err)
	}
	return id, nil
}

// Runs lists up to limit runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, data_file, samples, seed, learning_rate, iterations, w1, w2, bias, final_loss, r_squared, trained_at
        FROM fit_runs
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("while querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var w1, w2, bias, finalLoss, rSquared sql.NullFloat64
		if err := rows.Scan(
			&run.ID, &run.DataFile, &run.Samples, &run.Seed, &run.LearningRate, &run.Iterations,
			&w1, &w2, &bias, &finalLoss, &rSquared, &run.TrainedAt,
		); err != nil {
			return nil, fmt.Errorf("while scanning run: %w", err)
		}
		run.W1 = float32(orNaN(w1))
		run.W2 = float32(orNaN(w2))
		run.Bias = float32(orNaN(bias))
		run.FinalLoss = float32(orNaN(finalLoss))
		run.RSquared = orNaN(rSquared)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("while iterating runs: %w", err)
	}
	return runs, nil
}

// Losses returns the loss sequence of run id in step order.
func (s *Store) Losses(ctx context.Context, id int64) ([]float32, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT loss FROM fit_losses WHERE run_id = ? ORDER BY step`, id)
	if err != nil {
		return nil, fmt.Errorf("while querying losses: %w", err)
	}
	defer rows.Close()

	var losses []float32
	for rows.Next() {
		var loss sql.NullFloat64
		if err := rows.Scan(&loss); err != nil {
			return nil, fmt.Errorf("while scanning loss: %w", err)
		}
		losses = append(losses, float32(orNaN(loss)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("while iterating losses: %w", err)
	}
	return losses, nil
}

func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
