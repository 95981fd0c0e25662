package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examind/proctor/internal/model"
)

// Phase enumerates the states of a test-taking session.
type Phase string

const (
	PhaseLoading          Phase = "LOADING"
	PhaseError            Phase = "ERROR"
	PhaseAlreadyAttempted Phase = "ALREADY_ATTEMPTED"
	PhaseInstructions     Phase = "INSTRUCTIONS"
	PhaseInProgress       Phase = "IN_PROGRESS"
	PhaseSubmitting       Phase = "SUBMITTING"
	PhaseSubmitted        Phase = "SUBMITTED"
)

// NoticeKind classifies user-visible session notices.
type NoticeKind string

const (
	NoticeInfo      NoticeKind = "info"
	NoticeLowTime   NoticeKind = "low_time"
	NoticeViolation NoticeKind = "violation"
	NoticeSubmitted NoticeKind = "submitted"
	NoticeError     NoticeKind = "error"
)

// Notice is a user-visible message emitted by the controller.
type Notice struct {
	Kind      NoticeKind
	Message   string
	Violation *Violation
}

// Notifier receives user-visible notices. Implementations must not call
// back into the controller from Notify.
type Notifier interface {
	Notify(Notice)
}

// Screen is the fullscreen capability. Requesting fullscreen is
// best-effort everywhere it is used; denial never blocks a session.
type Screen interface {
	RequestFullscreen() error
}

// RejectedError is a non-recoverable rejection from the test service
// (e.g. the attempt was already recorded elsewhere). Retrying cannot
// succeed; the session surfaces the message and closes.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return e.Message }

// UnansweredError reports a manual submission blocked by the
// completeness gate. It never reaches the network.
type UnansweredError struct {
	Count int
}

func (e *UnansweredError) Error() string {
	return fmt.Sprintf("%d question(s) unanswered", e.Count)
}

// Controller sentinel errors.
var (
	ErrNotInProgress    = errors.New("session is not in progress")
	ErrNotAcknowledged  = errors.New("instructions must be acknowledged before starting")
	ErrNotResumable     = errors.New("no resumable session")
	ErrNoConfirmPending = errors.New("no submission awaiting confirmation")
	ErrInvalidQuestion  = errors.New("question index out of range")
	ErrNoQuestions      = errors.New("test has no questions")
)

// Config carries the per-session knobs.
type Config struct {
	TestID         uuid.UUID
	ViolationLimit int // 0 means DefaultViolationLimit
}

// Controller owns the session state machine. Timer ticks, integrity
// signals and user actions are all delivered as method calls and
// serialized through one mutex; the controller is the only component
// that mutates session state. Event producers never do.
type Controller struct {
	mu sync.Mutex

	cfg    Config
	svc    TestService
	snaps  SnapshotStore
	coord  *Coordinator
	screen Screen
	sink   Notifier
	log    zerolog.Logger

	phase     Phase
	resumable bool
	saved     *Snapshot
	acked     bool

	test    *model.TestForStudent
	store   *Store
	timer   *Timer
	monitor *Monitor

	confirmPending bool
	retryReason    model.SubmitReason
	retryPending   bool
	retryUsed      bool
	lastErr        error
}

// New creates a Controller for one test session. screen may be nil when
// no fullscreen capability exists; sink may be nil to drop notices.
func New(cfg Config, svc TestService, snaps SnapshotStore, screen Screen, sink Notifier, log zerolog.Logger) *Controller {
	return &Controller{
		cfg:     cfg,
		svc:     svc,
		snaps:   snaps,
		coord:   NewCoordinator(svc),
		screen:  screen,
		sink:    sink,
		log:     log.With().Str("component", "session").Str("test_id", cfg.TestID.String()).Logger(),
		phase:   PhaseLoading,
		store:   NewStore(),
		timer:   NewTimer(),
		monitor: NewMonitor(cfg.ViolationLimit),
	}
}

// Load performs the loading transition: fetch prior attempts and the
// test definition concurrently, then pick the landing state. Any fetch
// failure is terminal; a prior attempt for this test wins over
// everything else.
func (c *Controller) Load(ctx context.Context) Phase {
	var (
		wg          sync.WaitGroup
		attempts    []model.ResultSummary
		attemptsErr error
		test        *model.TestForStudent
		testErr     error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		attempts, attemptsErr = c.svc.FetchAttempts(ctx)
	}()
	go func() {
		defer wg.Done()
		test, testErr = c.svc.FetchTest(ctx, c.cfg.TestID)
	}()
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if attemptsErr != nil {
		c.log.Error().Err(attemptsErr).Msg("Fetching prior attempts failed")
		return c.fail(attemptsErr)
	}
	for _, a := range attempts {
		if a.TestID == c.cfg.TestID {
			c.phase = PhaseAlreadyAttempted
			return c.phase
		}
	}
	if testErr != nil {
		c.log.Error().Err(testErr).Msg("Fetching test failed")
		return c.fail(testErr)
	}
	if test == nil || len(test.Questions) == 0 {
		return c.fail(ErrNoQuestions)
	}
	c.test = test
	// The server's per-test policy wins over the local configuration.
	c.monitor.SetLimit(test.ViolationLimit)

	// Snapshot errors degrade to "no resume available", never block.
	snap, err := c.snaps.Load(c.cfg.TestID.String())
	if err != nil {
		c.log.Warn().Err(err).Msg("Snapshot load failed; starting fresh")
	} else if snap != nil && snap.Started && snap.TimeLeft > 0 {
		c.saved = snap
		c.resumable = true
	}

	c.phase = PhaseInstructions
	return c.phase
}

// Acknowledge records the instruction-acknowledgement checkbox.
func (c *Controller) Acknowledge(ok bool) {
	c.mu.Lock()
	c.acked = ok
	c.mu.Unlock()
}

// Start begins a fresh session: empty progress, full time budget, zero
// violations. Requires prior acknowledgement.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInstructions {
		return fmt.Errorf("cannot start from phase %s", c.phase)
	}
	if !c.acked {
		return ErrNotAcknowledged
	}

	c.store.Reset()
	c.store.SetStarted(true)
	c.timer.Start(c.test.DurationMinutes * 60)
	c.monitor.Reset()
	c.requestFullscreen()

	c.phase = PhaseInProgress
	if len(c.test.Questions) > 0 {
		c.store.Visit(QuestionKey(c.test.Questions[0], 0), 0)
	}
	c.persist()
	c.log.Info().Int("questions", len(c.test.Questions)).Msg("Session started")
	return nil
}

// Resume continues a previously saved session. Progress, marks and
// remaining time carry over unchanged; the violation counter is not
// reset.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInstructions || !c.resumable || c.saved == nil {
		return ErrNotResumable
	}

	c.store.Restore(*c.saved)
	if c.store.Current() < 0 || c.store.Current() >= len(c.test.Questions) {
		c.store.Visit(QuestionKey(c.test.Questions[0], 0), 0)
	}
	c.timer.Resume(c.saved.TimeLeft)
	c.requestFullscreen()

	c.phase = PhaseInProgress
	c.log.Info().Int("time_left", c.timer.Remaining()).Msg("Session resumed")
	return nil
}

// SelectOption applies an option pick to a question: replace for
// single-arity, toggle for multi-arity. The change is persisted before
// returning.
func (c *Controller) SelectOption(index int, option string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInProgress {
		return ErrNotInProgress
	}
	if index < 0 || index >= len(c.test.Questions) {
		return ErrInvalidQuestion
	}

	q := c.test.Questions[index]
	key := QuestionKey(q, index)
	c.store.SetAnswer(key, selectOption(c.store.Answer(key), option, q.Arity))
	c.persist()
	return nil
}

// ClearAnswer removes the selection for a question.
func (c *Controller) ClearAnswer(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInProgress {
		return ErrNotInProgress
	}
	if index < 0 || index >= len(c.test.Questions) {
		return ErrInvalidQuestion
	}
	c.store.ClearAnswer(QuestionKey(c.test.Questions[index], index))
	c.persist()
	return nil
}

// ToggleMark flips the mark-for-review flag on a question.
func (c *Controller) ToggleMark(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInProgress {
		return ErrNotInProgress
	}
	if index < 0 || index >= len(c.test.Questions) {
		return ErrInvalidQuestion
	}
	c.store.ToggleMark(QuestionKey(c.test.Questions[index], index))
	c.persist()
	return nil
}

// Navigate moves the cursor to a question and records it as visited.
// The store is persisted before the navigation is considered complete.
func (c *Controller) Navigate(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInProgress {
		return ErrNotInProgress
	}
	if index < 0 || index >= len(c.test.Questions) {
		return ErrInvalidQuestion
	}
	c.store.Visit(QuestionKey(c.test.Questions[index], index), index)
	c.persist()
	return nil
}

// HandleTick advances the countdown by one second. Expiry forces
// submission with reason "timeout". While a forced submission has
// failed and a retry is armed, the next tick re-attempts it once.
func (c *Controller) HandleTick(ctx context.Context) {
	c.mu.Lock()

	if c.phase != PhaseInProgress && c.phase != PhaseSubmitting {
		c.mu.Unlock()
		return
	}

	res := c.timer.Tick()
	if c.phase == PhaseInProgress {
		c.persist()
	}

	if res.LowTime {
		c.emit(Notice{Kind: NoticeLowTime, Message: "Less than 2 minutes remaining"})
	}

	if c.retryPending {
		c.retryPending = false
		reason := c.retryReason
		c.mu.Unlock()
		c.submit(ctx, true, reason)
		return
	}

	if res.Expired && c.phase == PhaseInProgress {
		c.mu.Unlock()
		c.submit(ctx, true, model.ReasonTimeout)
		return
	}
	c.mu.Unlock()
}

// ReportHidden records a visibility-loss signal. Violations keep being
// counted while a submission is in flight, but only a session that is
// still in progress can be force-submitted by the limit.
func (c *Controller) ReportHidden(ctx context.Context) {
	c.mu.Lock()
	if c.phase != PhaseInProgress && c.phase != PhaseSubmitting {
		c.mu.Unlock()
		return
	}
	v := c.monitor.Hidden()
	c.handleViolation(ctx, v)
}

// ReportFullscreen records the current fullscreen level. Only the exit
// edge counts as a violation.
func (c *Controller) ReportFullscreen(ctx context.Context, active bool) {
	c.mu.Lock()
	if c.phase != PhaseInProgress && c.phase != PhaseSubmitting {
		c.mu.Unlock()
		return
	}
	v, counted := c.monitor.FullscreenChange(active)
	if !counted {
		c.mu.Unlock()
		return
	}
	c.handleViolation(ctx, v)
}

// handleViolation is called with c.mu held and releases it.
func (c *Controller) handleViolation(ctx context.Context, v Violation) {
	c.emit(Notice{
		Kind:      NoticeViolation,
		Message:   fmt.Sprintf("Integrity violation %d of %d", v.Count, v.Limit),
		Violation: &v,
	})
	c.log.Warn().Str("kind", string(v.Kind)).Int("count", v.Count).Msg("Violation recorded")

	if v.LimitReached && c.phase == PhaseInProgress {
		c.mu.Unlock()
		c.submit(ctx, true, model.ReasonViolation)
		return
	}
	c.mu.Unlock()
}

// BeginManualSubmit runs the completeness gate. With unanswered
// questions it returns UnansweredError and nothing else happens: no
// network call, no state change. Otherwise the controller waits for an
// explicit ConfirmSubmit.
func (c *Controller) BeginManualSubmit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInProgress {
		return ErrNotInProgress
	}
	if n := c.unanswered(); n > 0 {
		return &UnansweredError{Count: n}
	}
	c.confirmPending = true
	return nil
}

// CancelSubmit withdraws a pending manual submission.
func (c *Controller) CancelSubmit() {
	c.mu.Lock()
	c.confirmPending = false
	c.mu.Unlock()
}

// ConfirmSubmit executes a manual submission previously opened by
// BeginManualSubmit.
func (c *Controller) ConfirmSubmit(ctx context.Context) error {
	c.mu.Lock()
	if !c.confirmPending {
		c.mu.Unlock()
		return ErrNoConfirmPending
	}
	c.confirmPending = false
	c.mu.Unlock()
	return c.submit(ctx, false, model.ReasonManual)
}

// Retry re-attempts a failed submission using its original trigger.
// It is the manual fallback once the single automatic retry of a forced
// submission has been spent.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.lastErr == nil || c.test == nil {
		c.mu.Unlock()
		return errors.New("nothing to retry")
	}
	forced := c.retryReason != "" && c.retryReason != model.ReasonManual
	reason := c.retryReason
	if reason == "" {
		reason = model.ReasonManual
	}
	c.mu.Unlock()
	return c.submit(ctx, forced, reason)
}

// submit is the single funnel for all three triggers. The guard is
// taken synchronously before the phase flips to SUBMITTING; later
// triggers see the guard and become no-ops. The controller mutex is
// NOT held across the network call.
func (c *Controller) submit(ctx context.Context, forced bool, reason model.SubmitReason) error {
	if !c.coord.TryBegin() {
		return nil
	}

	c.mu.Lock()
	c.phase = PhaseSubmitting
	c.lastErr = nil
	c.retryReason = reason
	sub := model.Submission{
		Answers:          BuildAnswers(c.test.Questions, c.store),
		TimeTakenMinutes: ElapsedMinutes(c.test.DurationMinutes, c.timer.Remaining()),
		Forced:           forced,
		Reason:           reason,
	}
	c.mu.Unlock()

	err := c.coord.Send(ctx, c.cfg.TestID, sub)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		if cerr := c.snaps.Clear(c.cfg.TestID.String()); cerr != nil {
			c.log.Warn().Err(cerr).Msg("Snapshot clear failed")
		}
		c.timer.Stop()
		c.phase = PhaseSubmitted
		c.emit(Notice{Kind: NoticeSubmitted, Message: submittedMessage(forced, reason)})
		c.log.Info().Str("reason", string(reason)).Bool("forced", forced).Msg("Submitted")
		return nil
	}

	var rejected *RejectedError
	if errors.As(err, &rejected) {
		// The service will never accept this session. Surface the
		// message and close out; the snapshot is worthless now.
		if cerr := c.snaps.Clear(c.cfg.TestID.String()); cerr != nil {
			c.log.Warn().Err(cerr).Msg("Snapshot clear failed")
		}
		c.phase = PhaseAlreadyAttempted
		c.emit(Notice{Kind: NoticeError, Message: rejected.Message})
		return err
	}

	c.coord.Release()
	c.lastErr = err
	c.log.Error().Err(err).Str("reason", string(reason)).Msg("Submission failed")

	if !forced {
		c.phase = PhaseInProgress
		c.emit(Notice{Kind: NoticeError, Message: "Submission failed, please try again"})
		return err
	}

	if !c.retryUsed {
		c.retryUsed = true
		c.retryPending = true
		c.emit(Notice{Kind: NoticeError, Message: "Auto-submit failed, retrying"})
	} else {
		c.emit(Notice{Kind: NoticeError, Message: "Auto-submit failed, press enter to retry"})
	}
	return err
}

// Flush persists the current snapshot. Intended for unload hooks; a
// session that is not in progress has nothing to flush.
func (c *Controller) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseInProgress {
		c.persist()
	}
}

// ShouldConfirmLeave reports whether leaving now would abandon a live
// session.
func (c *Controller) ShouldConfirmLeave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == PhaseInProgress
}

// ─── Read-side accessors ────────────────────────────────────────────

// Phase returns the current state machine phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Resumable reports whether a usable snapshot was found during loading.
func (c *Controller) Resumable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumable
}

// Test returns the loaded test definition, nil before loading finishes.
func (c *Controller) Test() *model.TestForStudent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.test
}

// Remaining returns the remaining whole seconds.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer.Remaining()
}

// Violations returns the current violation count and limit.
func (c *Controller) Violations() (count, limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitor.Count(), c.monitor.Limit()
}

// CurrentIndex returns the cursor position.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Current()
}

// AnswerFor returns the selection for a question index, nil if
// unanswered or out of range.
func (c *Controller) AnswerFor(index int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.test == nil || index < 0 || index >= len(c.test.Questions) {
		return nil
	}
	return c.store.Answer(QuestionKey(c.test.Questions[index], index))
}

// MarkedFor reports the mark-for-review flag for a question index.
func (c *Controller) MarkedFor(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.test == nil || index < 0 || index >= len(c.test.Questions) {
		return false
	}
	return c.store.Marked(QuestionKey(c.test.Questions[index], index))
}

// VisitedFor reports whether a question index has been visited.
func (c *Controller) VisitedFor(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.test == nil || index < 0 || index >= len(c.test.Questions) {
		return false
	}
	return c.store.Visited(QuestionKey(c.test.Questions[index], index))
}

// Unanswered returns how many questions have no selection.
func (c *Controller) Unanswered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unanswered()
}

// ConfirmPending reports whether a manual submission awaits
// confirmation.
func (c *Controller) ConfirmPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmPending
}

// LastError returns the most recent submission error, nil after a
// success or before any attempt.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ─── Internal helpers (c.mu held) ───────────────────────────────────

func (c *Controller) fail(err error) Phase {
	c.phase = PhaseError
	c.lastErr = err
	return c.phase
}

func (c *Controller) unanswered() int {
	if c.test == nil {
		return 0
	}
	n := 0
	for i, q := range c.test.Questions {
		if !c.store.Answered(QuestionKey(q, i)) {
			n++
		}
	}
	return n
}

func (c *Controller) persist() {
	if err := c.snaps.Save(c.cfg.TestID.String(), c.store.Snapshot(c.timer.Remaining())); err != nil {
		c.log.Warn().Err(err).Msg("Snapshot save failed")
	}
}

func (c *Controller) requestFullscreen() {
	if c.screen == nil {
		return
	}
	if err := c.screen.RequestFullscreen(); err != nil {
		c.log.Debug().Err(err).Msg("Fullscreen request denied")
		return
	}
	// Track the level so only genuine exits count as violations.
	c.monitor.FullscreenChange(true)
}

func (c *Controller) emit(n Notice) {
	if c.sink != nil {
		c.sink.Notify(n)
	}
}

func submittedMessage(forced bool, reason model.SubmitReason) string {
	switch {
	case forced && reason == model.ReasonTimeout:
		return "Time is up, the test was submitted automatically"
	case forced && reason == model.ReasonViolation:
		return "Test ended due to repeated violations"
	default:
		return "Test submitted successfully"
	}
}
