package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examind/proctor/internal/model"
)

// TestRepository handles test data access. Questions live in a JSONB
// column; the repository is the only place that encodes/decodes them.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetByID retrieves a test by its UUID, questions included.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	var questions []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, category, instructions, duration_minutes,
		        passing_score, is_active, questions, created_at, updated_at
		 FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.Category, &t.Instructions, &t.DurationMinutes,
		&t.PassingScore, &t.IsActive, &questions, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &t.Questions); err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new test.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	questions, err := json.Marshal(t.Questions)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (title, category, instructions, duration_minutes,
		                    passing_score, is_active, questions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		t.Title, t.Category, t.Instructions, t.DurationMinutes,
		t.PassingScore, t.IsActive, questions,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}
