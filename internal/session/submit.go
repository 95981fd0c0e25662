package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/examind/proctor/internal/model"
)

// TestService is the external collaborator the session consumes: fetch
// the test definition, check prior attempts, submit the final result.
// The server is the authority for scoring; the session never computes
// a score.
type TestService interface {
	FetchTest(ctx context.Context, testID uuid.UUID) (*model.TestForStudent, error)
	FetchAttempts(ctx context.Context) ([]model.ResultSummary, error)
	Submit(ctx context.Context, testID uuid.UUID, sub model.Submission) error
}

// Coordinator guarantees at-most-once submission: the guard is taken
// synchronously before any network activity begins, so no matter how
// many triggers race (manual click, timer expiry, violation limit),
// only the first one proceeds.
type Coordinator struct {
	svc TestService

	mu       sync.Mutex
	inFlight bool
	done     bool
}

// NewCoordinator wraps a TestService with the at-most-once guard.
func NewCoordinator(svc TestService) *Coordinator {
	return &Coordinator{svc: svc}
}

// TryBegin attempts to take the submission guard. It returns false when
// a submission is already in flight or has already succeeded.
func (c *Coordinator) TryBegin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight || c.done {
		return false
	}
	c.inFlight = true
	return true
}

// Release frees the guard after a failed attempt so a retry can take it.
func (c *Coordinator) Release() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

// Send performs the submission. The caller must hold the guard via
// TryBegin. On success the coordinator is terminal: no further
// submission can ever begin.
func (c *Coordinator) Send(ctx context.Context, testID uuid.UUID, sub model.Submission) error {
	if err := c.svc.Submit(ctx, testID, sub); err != nil {
		return err
	}
	c.mu.Lock()
	c.done = true
	c.inFlight = false
	c.mu.Unlock()
	return nil
}

// BuildAnswers assembles the ordered answer payload: one entry per
// question in question order, nil for unanswered.
func BuildAnswers(questions []model.Question, store *Store) []*model.AnswerEntry {
	answers := make([]*model.AnswerEntry, len(questions))
	for i, q := range questions {
		selected := store.Answer(QuestionKey(q, i))
		if len(selected) == 0 {
			continue
		}
		answers[i] = &model.AnswerEntry{Selected: append([]string(nil), selected...)}
	}
	return answers
}

// ElapsedMinutes computes the time spent, in whole minutes rounded up,
// from the test duration and the remaining seconds. Deriving elapsed
// time from the countdown rather than wall clock keeps resumed sessions
// honest: time while the tab was closed never counts.
func ElapsedMinutes(durationMinutes, remainingSeconds int) int {
	total := durationMinutes * 60
	used := total - remainingSeconds
	if used < 0 {
		used = 0
	}
	if used > total {
		used = total
	}
	return (used + 59) / 60
}
