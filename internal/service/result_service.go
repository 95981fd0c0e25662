package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examind/proctor/internal/config"
	"github.com/examind/proctor/internal/model"
	"github.com/examind/proctor/internal/repository"
)

// Domain errors for submission.
var (
	ErrAlreadyAttempted = errors.New("test already attempted")
	ErrAnswerCount      = errors.New("answer count does not match question count")
)

// ResultService grades submissions and records attempts. Grading always
// happens server-side against the answer key; clients only ever send
// selected options.
type ResultService struct {
	testSvc    *TestService
	resultRepo *repository.ResultRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(
	testSvc *TestService,
	resultRepo *repository.ResultRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ResultService {
	return &ResultService{
		testSvc:    testSvc,
		resultRepo: resultRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "result_service").Logger(),
	}
}

// Submit grades a student's submission and stores the attempt. Exactly
// one attempt is accepted per student per test; repeat submissions get
// ErrAlreadyAttempted no matter what the client claims.
func (s *ResultService) Submit(ctx context.Context, studentID int, testID uuid.UUID, sub *model.Submission) (*model.TestResult, error) {
	attempted, err := s.HasAttempted(ctx, testID, studentID)
	if err != nil {
		return nil, err
	}
	if attempted {
		return nil, ErrAlreadyAttempted
	}

	test, err := s.testSvc.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if !test.IsActive {
		return nil, ErrTestNotActive
	}
	if len(sub.Answers) != len(test.Questions) {
		return nil, ErrAnswerCount
	}

	score, total := grade(test.Questions, sub.Answers)

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(score) / float64(total) * 100))
	}

	result := &model.TestResult{
		TestID:           test.ID,
		StudentID:        studentID,
		Score:            score,
		TotalScore:       total,
		Percentage:       percentage,
		Passed:           percentage >= test.PassingScore,
		TimeTakenMinutes: sub.TimeTakenMinutes,
		Forced:           sub.Forced,
		Reason:           sub.Reason,
	}

	if err := s.resultRepo.Create(ctx, result, sub.Answers); err != nil {
		if errors.Is(err, repository.ErrDuplicateResult) {
			return nil, ErrAlreadyAttempted
		}
		return nil, fmt.Errorf("store result: %w", err)
	}

	// Mark the attempt in Redis so repeat checks skip PostgreSQL.
	attemptKey := config.CacheKey.StudentAttemptKey(testID.String(), studentID)
	if err := s.rdb.Set(ctx, attemptKey, 1, 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Failed to cache attempt marker")
	}

	s.log.Info().
		Str("test_id", testID.String()).
		Int("student_id", studentID).
		Int("score", score).
		Int("total", total).
		Bool("forced", sub.Forced).
		Str("reason", string(sub.Reason)).
		Msg("Submission graded")

	return result, nil
}

// ListByStudent returns a student's graded attempts, newest first.
func (s *ResultService) ListByStudent(ctx context.Context, studentID int) ([]model.ResultSummary, error) {
	results, err := s.resultRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	if results == nil {
		results = []model.ResultSummary{}
	}
	return results, nil
}

// HasAttempted reports whether a student already submitted a test,
// checking the Redis marker before falling back to PostgreSQL.
func (s *ResultService) HasAttempted(ctx context.Context, testID uuid.UUID, studentID int) (bool, error) {
	attemptKey := config.CacheKey.StudentAttemptKey(testID.String(), studentID)
	_, err := s.rdb.Get(ctx, attemptKey).Result()
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("check attempt marker: %w", err)
	}

	exists, err := s.resultRepo.Exists(ctx, testID.String(), studentID)
	if err != nil {
		return false, fmt.Errorf("check attempt: %w", err)
	}
	return exists, nil
}

// grade scores answers against the key. A multi-select question earns
// its points only on an exact set match; partial selections score zero.
func grade(questions []model.Question, answers []*model.AnswerEntry) (score, total int) {
	for i, q := range questions {
		total += q.Points
		entry := answers[i]
		if entry == nil || len(entry.Selected) == 0 {
			continue
		}
		if sameSelection(entry.Selected, q.CorrectOptions) {
			score += q.Points
		}
	}
	return score, total
}

// sameSelection compares two option sets ignoring order. Each correct
// option is consumed as it matches, so a padded selection like
// ["A","A"] never passes for ["A","C"].
func sameSelection(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	remaining := make(map[string]struct{}, len(want))
	for _, w := range want {
		remaining[w] = struct{}{}
	}
	for _, g := range got {
		if _, ok := remaining[g]; !ok {
			return false
		}
		delete(remaining, g)
	}
	return true
}
