package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examind/proctor/internal/model"
)

type stubService struct {
	submitErr error
	calls     int
}

func (s *stubService) FetchTest(ctx context.Context, id uuid.UUID) (*model.TestForStudent, error) {
	return nil, errors.New("not implemented")
}

func (s *stubService) FetchAttempts(ctx context.Context) ([]model.ResultSummary, error) {
	return nil, nil
}

func (s *stubService) Submit(ctx context.Context, id uuid.UUID, sub model.Submission) error {
	s.calls++
	return s.submitErr
}

func TestCoordinatorAtMostOnce(t *testing.T) {
	svc := &stubService{}
	c := NewCoordinator(svc)

	require.True(t, c.TryBegin())
	// Guard is held: concurrent triggers are refused.
	assert.False(t, c.TryBegin())

	require.NoError(t, c.Send(context.Background(), uuid.New(), model.Submission{}))
	assert.Equal(t, 1, svc.calls)

	// Success is terminal.
	assert.False(t, c.TryBegin())
}

func TestCoordinatorReleaseAllowsRetry(t *testing.T) {
	svc := &stubService{submitErr: errors.New("network down")}
	c := NewCoordinator(svc)

	require.True(t, c.TryBegin())
	require.Error(t, c.Send(context.Background(), uuid.New(), model.Submission{}))
	c.Release()

	svc.submitErr = nil
	require.True(t, c.TryBegin())
	require.NoError(t, c.Send(context.Background(), uuid.New(), model.Submission{}))
	assert.Equal(t, 2, svc.calls)
}

func TestBuildAnswersOrderedWithNilGaps(t *testing.T) {
	questions := []model.Question{
		{ID: "a", Arity: model.AritySingle},
		{ID: "b", Arity: model.ArityMulti},
		{ID: "c", Arity: model.AritySingle},
	}
	store := NewStore()
	store.SetAnswer("a", []string{"X"})
	store.SetAnswer("c", []string{"Z"})

	answers := BuildAnswers(questions, store)
	require.Len(t, answers, 3)
	assert.Equal(t, []string{"X"}, answers[0].Selected)
	assert.Nil(t, answers[1])
	assert.Equal(t, []string{"Z"}, answers[2].Selected)
}

func TestElapsedMinutes(t *testing.T) {
	// 10 minute test with 9:30 left: 30 seconds used rounds up to 1.
	assert.Equal(t, 1, ElapsedMinutes(10, 570))
	// Exactly 2 minutes used.
	assert.Equal(t, 2, ElapsedMinutes(10, 480))
	// Timer at zero: full duration.
	assert.Equal(t, 10, ElapsedMinutes(10, 0))
	// Nothing used yet.
	assert.Equal(t, 0, ElapsedMinutes(10, 600))
	// Remaining above duration clamps to zero used.
	assert.Equal(t, 0, ElapsedMinutes(10, 700))
}
