package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examind/proctor/internal/config"
	"github.com/examind/proctor/internal/model"
	"github.com/examind/proctor/internal/repository"
)

// Domain errors for test delivery.
var (
	ErrTestNotFound  = errors.New("test not found")
	ErrTestNotActive = errors.New("test is not active")
	ErrNoQuestions   = errors.New("test has no questions")
)

// TestCacheTTL bounds how long a cached payload can outlive a change
// made directly in the database, such as deactivating a test. Edits
// that go through the service still invalidate immediately.
const TestCacheTTL = 5 * time.Minute

// TestService serves test payloads to students, keeping the answer-free
// payload cached in Redis so delivery never touches PostgreSQL on the
// hot path.
type TestService struct {
	testRepo *repository.TestRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(testRepo *repository.TestRepository, rdb *redis.Client, log zerolog.Logger) *TestService {
	return &TestService{
		testRepo: testRepo,
		rdb:      rdb,
		log:      log.With().Str("component", "test_service").Logger(),
	}
}

// GetForStudent retrieves the student-facing payload for a test,
// preferring the Redis cache and falling back to PostgreSQL on a miss.
func (s *TestService) GetForStudent(ctx context.Context, testID uuid.UUID) (*model.TestForStudent, error) {
	key := config.CacheKey.TestPayloadKey(testID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var payload model.TestForStudent
		if err := json.Unmarshal(data, &payload); err == nil {
			return &payload, nil
		}
		// Undecodable cache entry; fall through and rebuild.
		s.log.Warn().Str("test_id", testID.String()).Msg("Discarding corrupt cached payload")
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get cached payload: %w", err)
	}

	test, err := s.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if !test.IsActive {
		return nil, ErrTestNotActive
	}

	if err := s.WarmTestCache(ctx, test); err != nil {
		// Cache population is an optimization; delivery still succeeds.
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Failed to warm test cache")
	}

	return test.ForStudent(), nil
}

// GetByID retrieves the full test, correct answers included. Callers
// must never hand the result to a client without ForStudent.
func (s *TestService) GetByID(ctx context.Context, testID uuid.UUID) (*model.Test, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	return test, nil
}

// WarmTestCache stores a test's student payload in Redis.
func (s *TestService) WarmTestCache(ctx context.Context, test *model.Test) error {
	if len(test.Questions) == 0 {
		return ErrNoQuestions
	}

	payloadJSON, err := json.Marshal(test.ForStudent())
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	key := config.CacheKey.TestPayloadKey(test.ID.String())
	if err := s.rdb.Set(ctx, key, payloadJSON, TestCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache payload: %w", err)
	}

	s.log.Debug().
		Str("test_id", test.ID.String()).
		Int("questions", len(test.Questions)).
		Msg("Test cache warmed")
	return nil
}

// InvalidateCache drops a test's cached payload, forcing a rebuild on
// the next fetch. Called after question edits.
func (s *TestService) InvalidateCache(ctx context.Context, testID uuid.UUID) error {
	key := config.CacheKey.TestPayloadKey(testID.String())
	return s.rdb.Del(ctx, key).Err()
}
