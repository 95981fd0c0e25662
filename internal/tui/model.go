package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/examind/proctor/internal/client"
	"github.com/examind/proctor/internal/session"
)

// Model drives the test-taking terminal UI. All session state lives in
// the controller; the model only holds presentation state.
type Model struct {
	ctrl *session.Controller
	feed *client.ProctorFeed
	sink *NoticeSink
	log  zerolog.Logger

	width  int
	height int

	acked       bool
	confirmQuit bool
	lastNotice  *session.Notice

	spin  spinner.Model
	timeBar progress.Model

	// total test duration in seconds, fixed once loaded
	durationSec int
}

// New constructs the UI model around a session controller.
func New(ctrl *session.Controller, feed *client.ProctorFeed, sink *NoticeSink, log zerolog.Logger) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	bar := progress.New(progress.WithDefaultGradient())
	return Model{
		ctrl:    ctrl,
		feed:    feed,
		sink:    sink,
		log:     log.With().Str("component", "tui").Logger(),
		spin:    sp,
		timeBar: bar,
	}
}

type (
	tickMsg    time.Time
	noticeMsg  session.Notice
	loadedMsg  session.Phase
	actionMsg  struct{} // a controller call finished; re-render
)

// Init kicks off loading, the clock, and notice delivery.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.tickCmd(), m.waitNotice(), m.spin.Tick)
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		phase := m.ctrl.Load(context.Background())
		if m.feed != nil && (phase == session.PhaseInstructions) {
			m.feed.Connect(context.Background())
		}
		return loadedMsg(phase)
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) waitNotice() tea.Cmd {
	return func() tea.Msg {
		n, ok := <-m.sink.Notices()
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

// Update handles key presses, clock ticks, and focus changes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.timeBar.Width = min(msg.Width-4, 60)
		return m, nil

	case loadedMsg:
		if t := m.ctrl.Test(); t != nil {
			m.durationSec = t.DurationMinutes * 60
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.handleTickCmd(), m.tickCmd())

	case noticeMsg:
		n := session.Notice(msg)
		m.lastNotice = &n
		return m, m.waitNotice()

	case actionMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.FocusMsg:
		m.ctrl.ReportFullscreen(context.Background(), true)
		return m, nil

	case tea.BlurMsg:
		m.ctrl.ReportHidden(context.Background())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleTickCmd advances the session clock off the UI goroutine; the
// controller serializes it against user actions.
func (m Model) handleTickCmd() tea.Cmd {
	return func() tea.Msg {
		m.ctrl.HandleTick(context.Background())
		if m.feed != nil && m.ctrl.Phase() == session.PhaseInProgress {
			if t := m.ctrl.Test(); t != nil {
				answered := len(t.Questions) - m.ctrl.Unanswered()
				m.feed.ReportProgress(answered, m.ctrl.Remaining(), m.ctrl.CurrentIndex())
			}
		}
		return actionMsg{}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Quit confirmation outranks everything else.
	if m.confirmQuit {
		switch key {
		case "y":
			m.ctrl.Flush()
			if m.feed != nil {
				m.feed.Close()
			}
			return m, tea.Quit
		case "n", "esc":
			m.confirmQuit = false
		}
		return m, nil
	}

	if key == "ctrl+c" || key == "q" {
		if m.ctrl.ShouldConfirmLeave() {
			m.confirmQuit = true
			return m, nil
		}
		m.ctrl.Flush()
		if m.feed != nil {
			m.feed.Close()
		}
		return m, tea.Quit
	}

	switch m.ctrl.Phase() {
	case session.PhaseInstructions:
		return m.handleInstructionsKey(key)
	case session.PhaseInProgress:
		return m.handleInProgressKey(key)
	case session.PhaseSubmitting:
		// Manual fallback once the automatic retry is spent.
		if key == "enter" {
			return m, m.retryCmd()
		}
	case session.PhaseError:
		if key == "t" {
			return m, m.loadCmd()
		}
	}
	return m, nil
}

func (m Model) handleInstructionsKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "a":
		m.acked = !m.acked
		m.ctrl.Acknowledge(m.acked)
	case "enter":
		if err := m.ctrl.Start(); err != nil {
			m.noteError(err)
		}
	case "r":
		if err := m.ctrl.Resume(); err != nil {
			m.noteError(err)
		}
	}
	return m, nil
}

func (m Model) handleInProgressKey(key string) (tea.Model, tea.Cmd) {
	// Submit confirmation dialog.
	if m.ctrl.ConfirmPending() {
		switch key {
		case "y":
			return m, m.confirmSubmitCmd()
		case "n", "esc":
			m.ctrl.CancelSubmit()
		}
		return m, nil
	}

	cur := m.ctrl.CurrentIndex()
	switch key {
	case "left", "h":
		m.nav(cur - 1)
	case "right", "l":
		m.nav(cur + 1)
	case "c":
		if err := m.ctrl.ClearAnswer(cur); err != nil {
			m.noteError(err)
		}
	case "m":
		if err := m.ctrl.ToggleMark(cur); err != nil {
			m.noteError(err)
		}
	case "s":
		if err := m.ctrl.BeginManualSubmit(); err != nil {
			var unanswered *session.UnansweredError
			if errors.As(err, &unanswered) {
				m.noteError(err)
			}
		}
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			m.selectByNumber(cur, int(key[0]-'1'))
		}
	}
	return m, nil
}

func (m *Model) nav(index int) {
	t := m.ctrl.Test()
	if t == nil || index < 0 || index >= len(t.Questions) {
		return
	}
	if err := m.ctrl.Navigate(index); err != nil {
		m.noteError(err)
	}
}

func (m *Model) selectByNumber(cur, optIdx int) {
	t := m.ctrl.Test()
	if t == nil || cur >= len(t.Questions) {
		return
	}
	opts := t.Questions[cur].Options
	if optIdx >= len(opts) {
		return
	}
	if err := m.ctrl.SelectOption(cur, opts[optIdx]); err != nil {
		m.noteError(err)
	}
}

func (m Model) confirmSubmitCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.ctrl.ConfirmSubmit(context.Background()); err != nil {
			m.log.Debug().Err(err).Msg("Submit attempt failed")
		}
		return actionMsg{}
	}
}

func (m Model) retryCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.ctrl.Retry(context.Background()); err != nil {
			m.log.Debug().Err(err).Msg("Retry failed")
		}
		return actionMsg{}
	}
}

func (m *Model) noteError(err error) {
	n := session.Notice{Kind: session.NoticeError, Message: err.Error()}
	m.lastNotice = &n
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
