package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/lib/pq"

	"github.com/locvowork/sheet_aggregator/internal/domain"
)

// RunRepository stores aggregation runs in Postgres.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new instance of RunRepository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// EnsureSchema creates the run table when missing.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS aggregation_run (
			id          BIGSERIAL PRIMARY KEY,
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			status      TEXT NOT NULL,
			sources     INTEGER NOT NULL,
			skipped     INTEGER NOT NULL,
			sheets      INTEGER NOT NULL,
			styles      INTEGER NOT NULL,
			labels      TEXT[] NOT NULL DEFAULT '{}',
			sheet_names TEXT[] NOT NULL DEFAULT '{}',
			error       TEXT NOT NULL DEFAULT ''
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create aggregation_run table: %w", err)
	}
	return nil
}

// Record inserts run and sets its ID.
func (r *RunRepository) Record(ctx context.Context, run *domain.AggregationRun) error {
	query := `
		INSERT INTO aggregation_run
			(started_at, finished_at, status, sources, skipped, sheets, styles, labels, sheet_names, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		run.StartedAt, run.FinishedAt, run.Status,
		run.Sources, run.Skipped, run.Sheets, run.Styles,
		pq.Array(run.Labels), pq.Array(run.SheetNames), run.Error,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]domain.AggregationRun, error) {
	query := `
		SELECT id, started_at, finished_at, status, sources, skipped, sheets, styles, labels, sheet_names, error
		FROM aggregation_run
		ORDER BY started_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.AggregationRun
	for rows.Next() {
		var run domain.AggregationRun
		if err := rows.Scan(
			&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status,
			&run.Sources, &run.Skipped, &run.Sheets, &run.Styles,
			pq.Array(&run.Labels), pq.Array(&run.SheetNames), &run.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// MemoryRunRepository keeps runs in process. It backs the audit trail
// when no database is configured.
type MemoryRunRepository struct {
	mu       sync.Mutex
	nextID   int64
	runs     []domain.AggregationRun
	capacity int
}

// NewMemoryRunRepository keeps at most capacity runs; zero means 100.
func NewMemoryRunRepository(capacity int) *MemoryRunRepository {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryRunRepository{capacity: capacity}
}

func (m *MemoryRunRepository) Record(_ context.Context, run *domain.AggregationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	run.ID = m.nextID
	m.runs = append(m.runs, *run)
	if len(m.runs) > m.capacity {
		m.runs = m.runs[len(m.runs)-m.capacity:]
	}
	return nil
}

func (m *MemoryRunRepository) Recent(_ context.Context, limit int) ([]domain.AggregationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}
	out := make([]domain.AggregationRun, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}
