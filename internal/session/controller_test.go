package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examind/proctor/internal/model"
	"github.com/examind/proctor/internal/session"
	"github.com/examind/proctor/internal/snapshot"
)

type fakeService struct {
	mu          sync.Mutex
	test        *model.TestForStudent
	testErr     error
	attempts    []model.ResultSummary
	attemptsErr error
	submitErrs  []error       // consumed per call; nil once exhausted
	blocker     chan struct{} // when set, Submit waits for it to close
	submissions []model.Submission
}

func (f *fakeService) FetchTest(ctx context.Context, id uuid.UUID) (*model.TestForStudent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.test, f.testErr
}

func (f *fakeService) FetchAttempts(ctx context.Context) ([]model.ResultSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts, f.attemptsErr
}

func (f *fakeService) Submit(ctx context.Context, id uuid.UUID, sub model.Submission) error {
	f.mu.Lock()
	blocker := f.blocker
	f.mu.Unlock()
	if blocker != nil {
		<-blocker
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, sub)
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		return err
	}
	return nil
}

func (f *fakeService) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submissions)
}

func (f *fakeService) lastSubmission() model.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissions[len(f.submissions)-1]
}

type recordingSink struct {
	mu      sync.Mutex
	notices []session.Notice
}

func (r *recordingSink) Notify(n session.Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *recordingSink) byKind(kind session.NoticeKind) []session.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []session.Notice
	for _, n := range r.notices {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type grantingScreen struct{ requests int }

func (s *grantingScreen) RequestFullscreen() error {
	s.requests++
	return nil
}

type denyingScreen struct{}

func (denyingScreen) RequestFullscreen() error { return errors.New("denied") }

func twoMinuteTest(testID uuid.UUID) *model.TestForStudent {
	return &model.TestForStudent{
		ID:              testID,
		Title:           "Sample",
		DurationMinutes: 2,
		Questions: []model.Question{
			{ID: "q1", Prompt: "first", Options: []string{"A", "B"}, Arity: model.AritySingle},
			{ID: "q2", Prompt: "second", Options: []string{"A", "B", "C"}, Arity: model.ArityMulti},
			{ID: "q3", Prompt: "third", Options: []string{"A", "B"}, Arity: model.AritySingle},
		},
	}
}

type fixture struct {
	testID uuid.UUID
	svc    *fakeService
	snaps  *snapshot.MemoryStore
	screen *grantingScreen
	sink   *recordingSink
	ctrl   *session.Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	testID := uuid.New()
	f := &fixture{
		testID: testID,
		svc:    &fakeService{test: twoMinuteTest(testID)},
		snaps:  snapshot.NewMemoryStore(),
		screen: &grantingScreen{},
		sink:   &recordingSink{},
	}
	f.ctrl = session.New(
		session.Config{TestID: testID, ViolationLimit: 3},
		f.svc, f.snaps, f.screen, f.sink, zerolog.Nop(),
	)
	return f
}

func (f *fixture) startSession(t *testing.T) {
	t.Helper()
	require.Equal(t, session.PhaseInstructions, f.ctrl.Load(context.Background()))
	f.ctrl.Acknowledge(true)
	require.NoError(t, f.ctrl.Start())
}

func (f *fixture) answerAll(t *testing.T) {
	t.Helper()
	require.NoError(t, f.ctrl.SelectOption(0, "A"))
	require.NoError(t, f.ctrl.SelectOption(1, "B"))
	require.NoError(t, f.ctrl.SelectOption(2, "B"))
}

func TestLoadAttemptsErrorIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.svc.attemptsErr = errors.New("results unavailable")

	phase := f.ctrl.Load(context.Background())
	assert.Equal(t, session.PhaseError, phase)
	assert.Error(t, f.ctrl.LastError())
}

func TestLoadPriorAttemptWins(t *testing.T) {
	f := newFixture(t)
	f.svc.attempts = []model.ResultSummary{{TestID: f.testID}}
	// Even though the test itself would load fine.
	phase := f.ctrl.Load(context.Background())
	assert.Equal(t, session.PhaseAlreadyAttempted, phase)
}

func TestLoadTestErrorIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.svc.test = nil
	f.svc.testErr = errors.New("boom")

	assert.Equal(t, session.PhaseError, f.ctrl.Load(context.Background()))
}

func TestLoadEmptyTestIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.svc.test = &model.TestForStudent{ID: f.testID, DurationMinutes: 5}

	assert.Equal(t, session.PhaseError, f.ctrl.Load(context.Background()))
}

func TestStartRequiresAcknowledgement(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, session.PhaseInstructions, f.ctrl.Load(context.Background()))

	assert.ErrorIs(t, f.ctrl.Start(), session.ErrNotAcknowledged)

	f.ctrl.Acknowledge(true)
	require.NoError(t, f.ctrl.Start())
	assert.Equal(t, session.PhaseInProgress, f.ctrl.Phase())
	assert.Equal(t, 120, f.ctrl.Remaining())
	assert.Equal(t, 1, f.screen.requests)
	assert.True(t, f.ctrl.VisitedFor(0))
}

func TestAnswerNavigationAndMarks(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)

	require.NoError(t, f.ctrl.SelectOption(0, "A"))
	require.NoError(t, f.ctrl.SelectOption(0, "B")) // single: replaces
	assert.Equal(t, []string{"B"}, f.ctrl.AnswerFor(0))

	require.NoError(t, f.ctrl.SelectOption(1, "A"))
	require.NoError(t, f.ctrl.SelectOption(1, "C")) // multi: accumulates
	assert.Equal(t, []string{"A", "C"}, f.ctrl.AnswerFor(1))

	require.NoError(t, f.ctrl.Navigate(2))
	assert.Equal(t, 2, f.ctrl.CurrentIndex())
	assert.True(t, f.ctrl.VisitedFor(2))

	require.NoError(t, f.ctrl.ToggleMark(2))
	assert.True(t, f.ctrl.MarkedFor(2))

	require.NoError(t, f.ctrl.ClearAnswer(0))
	assert.Nil(t, f.ctrl.AnswerFor(0))
	assert.Equal(t, 2, f.ctrl.Unanswered())

	assert.ErrorIs(t, f.ctrl.Navigate(99), session.ErrInvalidQuestion)
}

func TestCompletenessGateBlocksWithoutNetworkCall(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	require.NoError(t, f.ctrl.SelectOption(0, "A"))

	err := f.ctrl.BeginManualSubmit()
	var unanswered *session.UnansweredError
	require.ErrorAs(t, err, &unanswered)
	assert.Equal(t, 2, unanswered.Count)

	assert.Equal(t, session.PhaseInProgress, f.ctrl.Phase())
	assert.False(t, f.ctrl.ConfirmPending())
	assert.Equal(t, 0, f.svc.submitCount(), "gate must fire before any network activity")
}

func TestManualSubmitFlow(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	f.answerAll(t)

	require.NoError(t, f.ctrl.BeginManualSubmit())
	assert.True(t, f.ctrl.ConfirmPending())

	// Withdrawing leaves the session untouched.
	f.ctrl.CancelSubmit()
	assert.False(t, f.ctrl.ConfirmPending())
	assert.ErrorIs(t, f.ctrl.ConfirmSubmit(context.Background()), session.ErrNoConfirmPending)

	require.NoError(t, f.ctrl.BeginManualSubmit())
	require.NoError(t, f.ctrl.ConfirmSubmit(context.Background()))

	assert.Equal(t, session.PhaseSubmitted, f.ctrl.Phase())
	require.Equal(t, 1, f.svc.submitCount())

	sub := f.svc.lastSubmission()
	assert.False(t, sub.Forced)
	assert.Equal(t, model.ReasonManual, sub.Reason)
	require.Len(t, sub.Answers, 3)
	assert.Equal(t, []string{"A"}, sub.Answers[0].Selected)

	// Snapshot is cleared on success.
	snap, err := f.snaps.Load(f.testID.String())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestTimeoutForcesExactlyOneSubmission(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	require.NoError(t, f.ctrl.SelectOption(0, "A"))

	ctx := context.Background()
	for i := 0; i < 120; i++ {
		f.ctrl.HandleTick(ctx)
	}

	assert.Equal(t, session.PhaseSubmitted, f.ctrl.Phase())
	require.Equal(t, 1, f.svc.submitCount())

	sub := f.svc.lastSubmission()
	assert.True(t, sub.Forced)
	assert.Equal(t, model.ReasonTimeout, sub.Reason)
	assert.Equal(t, 2, sub.TimeTakenMinutes)
	// Unanswered questions submit as nil entries; the gate does not
	// apply to forced submission.
	assert.Nil(t, sub.Answers[1])

	// Ticks after submission change nothing.
	f.ctrl.HandleTick(ctx)
	assert.Equal(t, 1, f.svc.submitCount())
}

func TestLowTimeNoticeFiresOnce(t *testing.T) {
	f := newFixture(t)
	f.svc.test.DurationMinutes = 3
	f.startSession(t)

	ctx := context.Background()
	for i := 0; i < 65; i++ { // crossing happens at 180-60 ticks
		f.ctrl.HandleTick(ctx)
	}

	assert.Len(t, f.sink.byKind(session.NoticeLowTime), 1)
}

func TestViolationLimitForcesSubmission(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)

	ctx := context.Background()
	f.ctrl.ReportHidden(ctx)
	f.ctrl.ReportHidden(ctx)
	assert.Equal(t, 0, f.svc.submitCount(), "below the limit nothing submits")
	count, limit := f.ctrl.Violations()
	assert.Equal(t, 2, count)
	assert.Equal(t, 3, limit)

	f.ctrl.ReportHidden(ctx)
	assert.Equal(t, session.PhaseSubmitted, f.ctrl.Phase())
	require.Equal(t, 1, f.svc.submitCount())

	sub := f.svc.lastSubmission()
	assert.True(t, sub.Forced)
	assert.Equal(t, model.ReasonViolation, sub.Reason)

	assert.Len(t, f.sink.byKind(session.NoticeViolation), 3)
}

func TestServerViolationLimitOverridesLocal(t *testing.T) {
	f := newFixture(t) // local limit 3
	f.svc.test.ViolationLimit = 2
	f.startSession(t)

	ctx := context.Background()
	f.ctrl.ReportHidden(ctx)
	assert.Equal(t, 0, f.svc.submitCount())
	count, limit := f.ctrl.Violations()
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, limit, "limit comes from the test payload")

	f.ctrl.ReportHidden(ctx)
	assert.Equal(t, session.PhaseSubmitted, f.ctrl.Phase())
	require.Equal(t, 1, f.svc.submitCount())
	assert.Equal(t, model.ReasonViolation, f.svc.lastSubmission().Reason)
}

func TestFullscreenExitIsEdgeTriggered(t *testing.T) {
	f := newFixture(t)
	f.startSession(t) // granted screen: fullscreen level is armed

	ctx := context.Background()
	f.ctrl.ReportFullscreen(ctx, false)
	count, _ := f.ctrl.Violations()
	assert.Equal(t, 1, count)

	// Still windowed: no new edge.
	f.ctrl.ReportFullscreen(ctx, false)
	count, _ = f.ctrl.Violations()
	assert.Equal(t, 1, count)

	f.ctrl.ReportFullscreen(ctx, true)
	f.ctrl.ReportFullscreen(ctx, false)
	count, _ = f.ctrl.Violations()
	assert.Equal(t, 2, count)
}

func TestDeniedFullscreenNeverCountsExit(t *testing.T) {
	testID := uuid.New()
	svc := &fakeService{test: twoMinuteTest(testID)}
	ctrl := session.New(
		session.Config{TestID: testID},
		svc, snapshot.NewMemoryStore(), denyingScreen{}, nil, zerolog.Nop(),
	)
	require.Equal(t, session.PhaseInstructions, ctrl.Load(context.Background()))
	ctrl.Acknowledge(true)
	require.NoError(t, ctrl.Start())

	// Fullscreen was never entered, so a windowed report is no exit.
	ctrl.ReportFullscreen(context.Background(), false)
	count, _ := ctrl.Violations()
	assert.Equal(t, 0, count)
}

func TestResumeRestoresProgressAndRezeroesViolations(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)

	ctx := context.Background()
	require.NoError(t, f.ctrl.SelectOption(0, "A"))
	require.NoError(t, f.ctrl.ToggleMark(1))
	require.NoError(t, f.ctrl.Navigate(1))
	f.ctrl.ReportHidden(ctx)
	f.ctrl.HandleTick(ctx)
	f.ctrl.HandleTick(ctx)
	f.ctrl.Flush()

	// A new controller over the same snapshot store plays the part of
	// a reloaded client.
	ctrl2 := session.New(
		session.Config{TestID: f.testID, ViolationLimit: 3},
		f.svc, f.snaps, f.screen, f.sink, zerolog.Nop(),
	)
	require.Equal(t, session.PhaseInstructions, ctrl2.Load(ctx))
	assert.True(t, ctrl2.Resumable())

	require.NoError(t, ctrl2.Resume())
	assert.Equal(t, session.PhaseInProgress, ctrl2.Phase())
	assert.Equal(t, []string{"A"}, ctrl2.AnswerFor(0))
	assert.True(t, ctrl2.MarkedFor(1))
	assert.Equal(t, 1, ctrl2.CurrentIndex())
	assert.Equal(t, 118, ctrl2.Remaining())

	// The violation counter does not survive a reload.
	count, _ := ctrl2.Violations()
	assert.Equal(t, 0, count)
}

func TestResumeRequiresSavedSession(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, session.PhaseInstructions, f.ctrl.Load(context.Background()))
	assert.False(t, f.ctrl.Resumable())
	assert.ErrorIs(t, f.ctrl.Resume(), session.ErrNotResumable)
}

func TestManualFailureReleasesGuard(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	f.answerAll(t)
	f.svc.submitErrs = []error{errors.New("network down")}

	require.NoError(t, f.ctrl.BeginManualSubmit())
	err := f.ctrl.ConfirmSubmit(context.Background())
	require.Error(t, err)

	// Back in progress, answers intact, retry possible.
	assert.Equal(t, session.PhaseInProgress, f.ctrl.Phase())
	assert.Equal(t, []string{"A"}, f.ctrl.AnswerFor(0))

	require.NoError(t, f.ctrl.BeginManualSubmit())
	require.NoError(t, f.ctrl.ConfirmSubmit(context.Background()))
	assert.Equal(t, session.PhaseSubmitted, f.ctrl.Phase())
	assert.Equal(t, 2, f.svc.submitCount())
}

func TestForcedFailureRetriesOnceAutomatically(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	f.svc.submitErrs = []error{errors.New("network down")}

	ctx := context.Background()
	for i := 0; i < 120; i++ {
		f.ctrl.HandleTick(ctx)
	}
	require.Equal(t, 1, f.svc.submitCount())
	assert.Equal(t, session.PhaseSubmitting, f.ctrl.Phase())

	// The next tick re-attempts automatically and succeeds.
	f.ctrl.HandleTick(ctx)
	assert.Equal(t, 2, f.svc.submitCount())
	assert.Equal(t, session.PhaseSubmitted, f.ctrl.Phase())
	assert.Equal(t, model.ReasonTimeout, f.svc.lastSubmission().Reason)
}

func TestForcedFailureFallsBackToManualRetry(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	f.svc.submitErrs = []error{errors.New("down"), errors.New("still down")}

	ctx := context.Background()
	for i := 0; i < 120; i++ {
		f.ctrl.HandleTick(ctx)
	}
	f.ctrl.HandleTick(ctx) // automatic retry, fails too
	require.Equal(t, 2, f.svc.submitCount())

	// Further ticks never auto-retry again.
	f.ctrl.HandleTick(ctx)
	f.ctrl.HandleTick(ctx)
	assert.Equal(t, 2, f.svc.submitCount())

	// Manual retry keeps the original trigger.
	require.NoError(t, f.ctrl.Retry(ctx))
	assert.Equal(t, 3, f.svc.submitCount())
	assert.Equal(t, session.PhaseSubmitted, f.ctrl.Phase())
	sub := f.svc.lastSubmission()
	assert.True(t, sub.Forced)
	assert.Equal(t, model.ReasonTimeout, sub.Reason)
}

func TestRejectedSubmissionIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	f.answerAll(t)
	f.svc.submitErrs = []error{&session.RejectedError{Message: "already attempted"}}

	require.NoError(t, f.ctrl.BeginManualSubmit())
	err := f.ctrl.ConfirmSubmit(context.Background())
	require.Error(t, err)

	assert.Equal(t, session.PhaseAlreadyAttempted, f.ctrl.Phase())

	snap, loadErr := f.snaps.Load(f.testID.String())
	require.NoError(t, loadErr)
	assert.Nil(t, snap, "snapshot must be cleared on rejection")
}

func TestRacingTriggersSubmitOnce(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	f.answerAll(t)

	blocker := make(chan struct{})
	f.svc.mu.Lock()
	f.svc.blocker = blocker
	f.svc.mu.Unlock()

	ctx := context.Background()
	require.NoError(t, f.ctrl.BeginManualSubmit())

	done := make(chan error, 1)
	go func() { done <- f.ctrl.ConfirmSubmit(ctx) }()

	// While the manual submission is in flight, fire the other two
	// triggers: violations up to the limit and timer expiry.
	f.ctrl.ReportHidden(ctx)
	f.ctrl.ReportHidden(ctx)
	f.ctrl.ReportHidden(ctx)
	for i := 0; i < 120; i++ {
		f.ctrl.HandleTick(ctx)
	}

	close(blocker)
	require.NoError(t, <-done)

	assert.Equal(t, 1, f.svc.submitCount())
	assert.Equal(t, session.PhaseSubmitted, f.ctrl.Phase())
	assert.Equal(t, model.ReasonManual, f.svc.lastSubmission().Reason)
}

func TestShouldConfirmLeave(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.ctrl.ShouldConfirmLeave())

	f.startSession(t)
	assert.True(t, f.ctrl.ShouldConfirmLeave())

	f.answerAll(t)
	require.NoError(t, f.ctrl.BeginManualSubmit())
	require.NoError(t, f.ctrl.ConfirmSubmit(context.Background()))
	assert.False(t, f.ctrl.ShouldConfirmLeave())
}

func TestActionsRejectedOutsideInProgress(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, session.PhaseInstructions, f.ctrl.Load(context.Background()))

	assert.ErrorIs(t, f.ctrl.SelectOption(0, "A"), session.ErrNotInProgress)
	assert.ErrorIs(t, f.ctrl.ToggleMark(0), session.ErrNotInProgress)
	assert.ErrorIs(t, f.ctrl.Navigate(0), session.ErrNotInProgress)
	assert.ErrorIs(t, f.ctrl.BeginManualSubmit(), session.ErrNotInProgress)
}
