package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examind/proctor/internal/model"
)

// ErrDuplicateResult is returned when a student already has a recorded
// attempt for the test.
var ErrDuplicateResult = errors.New("result already exists for this student and test")

// ResultRepository handles graded-attempt data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create inserts a graded attempt. The (test_id, student_id) unique
// constraint enforces one attempt per student per test; a conflict
// surfaces as an error the service maps to ALREADY_ATTEMPTED.
func (r *ResultRepository) Create(ctx context.Context, res *model.TestResult, answers []*model.AnswerEntry) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO test_results (test_id, student_id, score, total_score,
		                           percentage, passed, time_taken_minutes,
		                           forced, reason, answers)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, completed_at`,
		res.TestID, res.StudentID, res.Score, res.TotalScore, res.Percentage,
		res.Passed, res.TimeTakenMinutes, res.Forced, nullableReason(res.Reason), raw,
	).Scan(&res.ID, &res.CompletedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateResult
		}
		return err
	}
	return nil
}

// ListByStudent retrieves all graded attempts for a student, newest
// first.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID int) ([]model.ResultSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.test_id, t.title, r.score, r.total_score, r.percentage,
		        r.passed, r.completed_at
		 FROM test_results r
		 JOIN tests t ON t.id = r.test_id
		 WHERE r.student_id = $1
		 ORDER BY r.completed_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ResultSummary
	for rows.Next() {
		var s model.ResultSummary
		if err := rows.Scan(&s.TestID, &s.TestTitle, &s.Score, &s.TotalScore,
			&s.Percentage, &s.Passed, &s.CompletedAt); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

// Exists reports whether a student already has a result for a test.
func (r *ResultRepository) Exists(ctx context.Context, testID string, studentID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM test_results WHERE test_id = $1 AND student_id = $2
		 )`, testID, studentID,
	).Scan(&exists)
	return exists, err
}

func nullableReason(reason model.SubmitReason) interface{} {
	if reason == "" {
		return nil
	}
	return string(reason)
}
