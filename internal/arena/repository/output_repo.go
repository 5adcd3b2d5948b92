package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const outputColumns = `id, demo_id, model_id, status, html, css, error_message, created_at, updated_at`

// OutputRepository handles PostgreSQL operations for model outputs. Every output row is one
// immutable version once it reaches complete or error.
type OutputRepository struct {
	db DBTX
}

// NewOutputRepository creates a new OutputRepository
func NewOutputRepository(db DBTX) *OutputRepository {
	return &OutputRepository{db: db}
}

// CreatePending inserts a new pending version for demoID and modelID
func (r *OutputRepository) CreatePending(ctx context.Context, demoID, modelID string) (*domain.Output, error) {
	out := &domain.Output{
		ID:      uuid.New().String(),
		DemoID:  demoID,
		ModelID: modelID,
		Status:  domain.StatusPending,
	}

	const q = `
INSERT INTO model_outputs (id, demo_id, model_id, status)
VALUES ($1, $2, $3, $4)
RETURNING created_at, updated_at;
`
	if err := r.db.QueryRow(ctx, q, out.ID, demoID, modelID, out.Status).Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	return out, nil
}

// SetGenerating moves a pending output to generating. It reports whether a row changed.
func (r *OutputRepository) SetGenerating(ctx context.Context, id string) (bool, error) {
	const q = `
UPDATE model_outputs
SET status = 'generating', updated_at = now()
WHERE id = $1 AND status = 'pending';
`
	return r.exec(ctx, "set generating", q, id)
}

// SetComplete stores the artifact on a non-terminal output. Terminal or missing ids are left alone.
func (r *OutputRepository) SetComplete(ctx context.Context, id, html, css string) (bool, error) {
	const q = `
UPDATE model_outputs
SET status = 'complete', html = $2, css = $3, error_message = '', updated_at = now()
WHERE id = $1 AND status IN ('pending', 'generating');
`
	return r.exec(ctx, "set complete", q, id, html, css)
}

// SetError records a failure on a non-terminal output. Terminal or missing ids are left alone.
func (r *OutputRepository) SetError(ctx context.Context, id, message string) (bool, error) {
	const q = `
UPDATE model_outputs
SET status = 'error', error_message = $2, updated_at = now()
WHERE id = $1 AND status IN ('pending', 'generating');
`
	return r.exec(ctx, "set error", q, id, message)
}

// Get returns one output or domain.ErrOutputNotFound
func (r *OutputRepository) Get(ctx context.Context, id string) (*domain.Output, error) {
	q := `SELECT ` + outputColumns + ` FROM model_outputs WHERE id = $1`
	out, err := scanOutput(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOutputNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get output: %w", err)
	}
	return out, nil
}

// ListByDemo returns every version of every model for a demo. Callers must not rely on order.
func (r *OutputRepository) ListByDemo(ctx context.Context, demoID string) ([]domain.Output, error) {
	q := `SELECT ` + outputColumns + ` FROM model_outputs WHERE demo_id = $1 ORDER BY created_at, id`
	return r.list(ctx, q, demoID)
}

// ListStale returns non-terminal outputs untouched for at least staleAfter, measured on the
// database clock
func (r *OutputRepository) ListStale(ctx context.Context, staleAfter time.Duration, limit int) ([]domain.Output, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + outputColumns + ` FROM model_outputs
WHERE status IN ('pending', 'generating') AND updated_at < now() - make_interval(secs => $1)
ORDER BY updated_at LIMIT $2`
	return r.list(ctx, q, staleAfter.Seconds(), limit)
}

func (r *OutputRepository) exec(ctx context.Context, op, q string, args ...any) (bool, error) {
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *OutputRepository) list(ctx context.Context, q string, args ...any) ([]domain.Output, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list outputs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Output, 0, 16)
	for rows.Next() {
		o, err := scanOutput(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan output: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list outputs: %w", err)
	}
	return out, nil
}

func scanOutput(row pgx.Row) (*domain.Output, error) {
	var o domain.Output
	err := row.Scan(
		&o.ID,
		&o.DemoID,
		&o.ModelID,
		&o.Status,
		&o.HTML,
		&o.CSS,
		&o.ErrorMessage,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
