package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultPageSize is the listing page size when the caller gives none
const DefaultPageSize = 12

const maxPageSize = 100

const demoColumns = `id, owner_id, prompt, archived, selected_models, selected_outputs, created_at, updated_at`

// ErrInvalidCursor is returned for a listing cursor that cannot be decoded
var ErrInvalidCursor = errors.New("invalid cursor")

// DemoRepository handles PostgreSQL operations for demos
type DemoRepository struct {
	db DBTX
}

// NewDemoRepository creates a new DemoRepository
func NewDemoRepository(db DBTX) *DemoRepository {
	return &DemoRepository{db: db}
}

// Create inserts a demo. ID is generated when empty.
func (r *DemoRepository) Create(ctx context.Context, demo *domain.Demo) error {
	if demo.ID == "" {
		demo.ID = uuid.New().String()
	}

	models, pins, err := encodeSelection(demo)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO demos (id, owner_id, prompt, archived, selected_models, selected_outputs)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at;
`
	err = r.db.QueryRow(ctx, q, demo.ID, demo.OwnerID, demo.Prompt, demo.Archived, models, pins).
		Scan(&demo.CreatedAt, &demo.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create demo: %w", err)
	}
	return nil
}

// Get returns one demo or domain.ErrDemoNotFound
func (r *DemoRepository) Get(ctx context.Context, id string) (*domain.Demo, error) {
	q := `SELECT ` + demoColumns + ` FROM demos WHERE id = $1`
	demo, err := scanDemo(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDemoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get demo: %w", err)
	}
	return demo, nil
}

// List returns the owner's demos newest first using keyset pagination on (created_at, id)
func (r *DemoRepository) List(ctx context.Context, req domain.ListDemosRequest) (domain.DemoPage, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + demoColumns + ` FROM demos WHERE owner_id = $1`)
	args := []any{req.OwnerID}
	if !req.IncludeArchived {
		b.WriteString(` AND archived = false`)
	}
	if req.Cursor != "" {
		at, id, err := DecodeCursor(req.Cursor)
		if err != nil {
			return domain.DemoPage{}, err
		}
		args = append(args, at, id)
		fmt.Fprintf(&b, ` AND (created_at, id) < ($%d, $%d)`, len(args)-1, len(args))
	}
	args = append(args, limit+1)
	fmt.Fprintf(&b, ` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, b.String(), args...)
	if err != nil {
		return domain.DemoPage{}, fmt.Errorf("failed to list demos: %w", err)
	}
	defer rows.Close()

	page := domain.DemoPage{Demos: make([]domain.Demo, 0, limit)}
	for rows.Next() {
		d, err := scanDemo(rows)
		if err != nil {
			return domain.DemoPage{}, fmt.Errorf("failed to scan demo: %w", err)
		}
		page.Demos = append(page.Demos, *d)
	}
	if err := rows.Err(); err != nil {
		return domain.DemoPage{}, fmt.Errorf("failed to list demos: %w", err)
	}

	if len(page.Demos) > limit {
		page.Demos = page.Demos[:limit]
		last := page.Demos[limit-1]
		page.NextCursor = EncodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// Mutate loads the demo under a row lock, applies fn and writes the mutable columns back when
// fn reports a change. All selection writes go through here so they serialize per demo.
func (r *DemoRepository) Mutate(ctx context.Context, id string, fn func(*domain.Demo) (bool, error)) (*domain.Demo, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q := `SELECT ` + demoColumns + ` FROM demos WHERE id = $1 FOR UPDATE`
	demo, err := scanDemo(tx.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDemoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock demo: %w", err)
	}

	changed, err := fn(demo)
	if err != nil {
		return nil, err
	}
	if !changed {
		return demo, nil
	}

	models, pins, err := encodeSelection(demo)
	if err != nil {
		return nil, err
	}

	const upd = `
UPDATE demos
SET prompt = $2, archived = $3, selected_models = $4, selected_outputs = $5, updated_at = now()
WHERE id = $1
RETURNING updated_at;
`
	if err := tx.QueryRow(ctx, upd, demo.ID, demo.Prompt, demo.Archived, models, pins).Scan(&demo.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to update demo: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit demo update: %w", err)
	}
	return demo, nil
}

// EncodeCursor builds an opaque listing cursor
func EncodeCursor(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor reverses EncodeCursor
func DecodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", ErrInvalidCursor
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return time.Time{}, "", ErrInvalidCursor
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, "", ErrInvalidCursor
	}
	return at, id, nil
}

func scanDemo(row pgx.Row) (*domain.Demo, error) {
	var d domain.Demo
	var modelsJSON, pinsJSON []byte
	err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.Prompt,
		&d.Archived,
		&modelsJSON,
		&pinsJSON,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// NULL selected_models marks a row written before per-demo selection existed
	if len(modelsJSON) > 0 && string(modelsJSON) != "null" {
		if err := json.Unmarshal(modelsJSON, &d.SelectedModels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal selected models: %w", err)
		}
		if d.SelectedModels == nil {
			d.SelectedModels = []string{}
		}
	}
	d.SelectedOutputs = make(map[string]string)
	if len(pinsJSON) > 0 {
		if err := json.Unmarshal(pinsJSON, &d.SelectedOutputs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal selected outputs: %w", err)
		}
		if d.SelectedOutputs == nil {
			d.SelectedOutputs = make(map[string]string)
		}
	}
	return &d, nil
}

func encodeSelection(d *domain.Demo) (models, pins []byte, err error) {
	if d.SelectedModels != nil {
		if models, err = json.Marshal(d.SelectedModels); err != nil {
			return nil, nil, fmt.Errorf("failed to marshal selected models: %w", err)
		}
	}
	sel := d.SelectedOutputs
	if sel == nil {
		sel = map[string]string{}
	}
	if pins, err = json.Marshal(sel); err != nil {
		return nil, nil, fmt.Errorf("failed to marshal selected outputs: %w", err)
	}
	return models, pins, nil
}
