package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
)

const resultPreviewLength = 180

type EstimateRepository struct {
	db *sql.DB
}

func NewEstimateRepository(db *sql.DB) *EstimateRepository {
	return &EstimateRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *EstimateRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS estimates (
	id BIGSERIAL PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	agent_label TEXT,
	job_type TEXT NOT NULL,
	dumpster_size DOUBLE PRECISION,
	notes TEXT,
	photo_count INTEGER NOT NULL,
	model_name TEXT NOT NULL,
	result_text TEXT NOT NULL,
	confidence TEXT
);

CREATE INDEX IF NOT EXISTS idx_estimates_created_at ON estimates(created_at DESC, id DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Append inserts the record and fills in the store-assigned id and creation
// timestamp. Records are append-only; there is no update path.
func (r *EstimateRepository) Append(ctx context.Context, record *domain.EstimateRecord) error {
	var confidence *string
	if record.Confidence != nil {
		s := string(*record.Confidence)
		confidence = &s
	}

	row := r.db.QueryRowContext(ctx, `
INSERT INTO estimates (agent_label, job_type, dumpster_size, notes, photo_count, model_name, result_text, confidence)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id, created_at
`,
		record.AgentLabel, string(record.JobType), record.DumpsterSize, record.Notes,
		record.PhotoCount, record.ModelName, record.ResultText, confidence,
	)
	if err := row.Scan(&record.ID, &record.CreatedAt); err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "insert estimate", err)
	}
	return nil
}

// List returns summaries newest first. Creation timestamps can collide at
// store resolution, so the id breaks ties to keep the order stable.
func (r *EstimateRepository) List(ctx context.Context, limit int) ([]domain.EstimateSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, created_at, agent_label, job_type, dumpster_size, photo_count, confidence,
       left(result_text, $2) AS result_preview
FROM estimates
ORDER BY created_at DESC, id DESC
LIMIT $1
`, limit, resultPreviewLength)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "list estimates", err)
	}
	defer rows.Close()

	summaries := make([]domain.EstimateSummary, 0, limit)
	for rows.Next() {
		var s domain.EstimateSummary
		var jobType string
		var confidence *string
		if err := rows.Scan(
			&s.ID, &s.CreatedAt, &s.AgentLabel, &jobType, &s.DumpsterSize,
			&s.PhotoCount, &confidence, &s.ResultPreview,
		); err != nil {
			return nil, domain.WrapError(domain.ErrStorageUnavailable, "scan estimate summary", err)
		}
		s.JobType = domain.JobType(jobType)
		s.Confidence = confidenceFromColumn(confidence)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "iterate estimate summaries", err)
	}
	return summaries, nil
}

func (r *EstimateRepository) GetByID(ctx context.Context, id int64) (*domain.EstimateRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, created_at, agent_label, job_type, dumpster_size, notes, photo_count, model_name, result_text, confidence
FROM estimates
WHERE id = $1
`, id)

	var record domain.EstimateRecord
	var jobType string
	var confidence *string
	err := row.Scan(
		&record.ID, &record.CreatedAt, &record.AgentLabel, &jobType, &record.DumpsterSize,
		&record.Notes, &record.PhotoCount, &record.ModelName, &record.ResultText, &confidence,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrEstimateNotFound, "fetch estimate", fmt.Errorf("id %d", id))
		}
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "scan estimate", err)
	}
	record.JobType = domain.JobType(jobType)
	record.Confidence = confidenceFromColumn(confidence)
	return &record, nil
}

func confidenceFromColumn(value *string) *domain.Confidence {
	if value == nil {
		return nil
	}
	c := domain.Confidence(*value)
	return &c
}
