package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/examind/proctor/internal/session"
)

// View renders the screen for the current phase.
func (m Model) View() string {
	var body string
	switch m.ctrl.Phase() {
	case session.PhaseLoading:
		body = m.spin.View() + " Loading test..."
	case session.PhaseError:
		body = m.viewError()
	case session.PhaseAlreadyAttempted:
		body = m.viewAlreadyAttempted()
	case session.PhaseInstructions:
		body = m.viewInstructions()
	case session.PhaseInProgress:
		body = m.viewInProgress()
	case session.PhaseSubmitting:
		body = m.spin.View() + " Submitting answers..."
	case session.PhaseSubmitted:
		body = m.viewSubmitted()
	}

	sections := []string{body}
	if m.lastNotice != nil {
		sections = append(sections, m.renderNotice(*m.lastNotice))
	}
	if m.confirmQuit {
		sections = append(sections, dialogStyle.Render("Leave the test? Your progress is saved. (y/n)"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) viewError() string {
	msg := "Something went wrong."
	if err := m.ctrl.LastError(); err != nil {
		msg = err.Error()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		errorStyle.Render("Error"),
		msg,
		helpStyle.Render("t retry • q quit"),
	)
}

func (m Model) viewAlreadyAttempted() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Test already attempted"),
		"Only one attempt is allowed. Check your results instead.",
		helpStyle.Render("q quit"),
	)
}

func (m Model) viewInstructions() string {
	t := m.ctrl.Test()
	if t == nil {
		return ""
	}

	ack := "[ ]"
	if m.acked {
		ack = "[x]"
	}

	lines := []string{
		titleStyle.Render(t.Title),
		"",
		fmt.Sprintf("Duration: %d minutes  •  Questions: %d", t.DurationMinutes, len(t.Questions)),
		"",
		t.Instructions,
		"",
		fmt.Sprintf("%s I have read the instructions (press a)", ack),
	}

	if m.ctrl.Resumable() {
		lines = append(lines, "",
			noticeStyle.Render("A saved session was found."),
			helpStyle.Render("r resume saved session • a acknowledge, then enter to start over • q quit"))
	} else {
		lines = append(lines, "", helpStyle.Render("a acknowledge, then enter to start • q quit"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) viewInProgress() string {
	t := m.ctrl.Test()
	if t == nil {
		return ""
	}

	cur := m.ctrl.CurrentIndex()
	q := t.Questions[cur]
	selected := m.ctrl.AnswerFor(cur)

	header := m.renderHeader(t.Title)
	question := m.renderQuestion(cur, q.Prompt, q.Options, selected, string(q.Arity))
	grid := m.renderGrid(len(t.Questions), cur)
	footer := helpStyle.Render("←/→ navigate • 1-9 select • c clear • m mark • s submit • q quit")

	sections := []string{header, "", question, "", grid, footer}

	if m.ctrl.ConfirmPending() {
		sections = append(sections,
			dialogStyle.Render("Submit now and end the test? (y/n)"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(title string) string {
	remaining := m.ctrl.Remaining()
	clock := fmt.Sprintf("%02d:%02d", remaining/60, remaining%60)
	style := timerStyle
	if remaining <= session.LowTimeThreshold {
		style = timerLowStyle
	}

	count, limit := m.ctrl.Violations()
	parts := []string{
		titleStyle.Render(title),
		style.Render("⏱ " + clock),
	}
	if count > 0 {
		parts = append(parts, violationStyle.Render(fmt.Sprintf("⚠ %d/%d", count, limit)))
	}
	line := strings.Join(parts, "  ")

	if m.durationSec > 0 {
		frac := float64(remaining) / float64(m.durationSec)
		return lipgloss.JoinVertical(lipgloss.Left, line, m.timeBar.ViewAs(frac))
	}
	return line
}

func (m Model) renderQuestion(index int, prompt string, options, selected []string, arity string) string {
	mark := ""
	if m.ctrl.MarkedFor(index) {
		mark = markedStyle.Render("  ⚑ marked")
	}
	hint := "choose one"
	if arity == "multi" {
		hint = "choose all that apply"
	}

	lines := []string{
		promptStyle.Render(fmt.Sprintf("Q%d. %s", index+1, prompt)) + mark,
		helpStyle.Render("(" + hint + ")"),
		"",
	}
	for i, opt := range options {
		box := "( )"
		style := lipgloss.NewStyle()
		if contains(selected, opt) {
			box = "(●)"
			style = selectedOptStyle
		}
		lines = append(lines, style.Render(fmt.Sprintf("  %d %s %s", i+1, box, opt)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderGrid draws one cell per question so the taker can see answered,
// marked, and visited state at a glance.
func (m Model) renderGrid(total, cur int) string {
	cells := make([]string, 0, total)
	for i := 0; i < total; i++ {
		label := fmt.Sprintf("%d", i+1)
		switch {
		case i == cur:
			label = gridCurrentStyle.Render("[" + label + "]")
		case m.ctrl.MarkedFor(i):
			label = gridMarkedStyle.Render(" " + label + "!")
		case len(m.ctrl.AnswerFor(i)) > 0:
			label = gridAnsweredStyle.Render(" " + label + "●")
		case m.ctrl.VisitedFor(i):
			label = gridVisitedStyle.Render(" " + label + "○")
		default:
			label = helpStyle.Render(" " + label + " ")
		}
		cells = append(cells, label)
	}
	return strings.Join(cells, " ")
}

func (m Model) viewSubmitted() string {
	msg := "Your answers were submitted."
	if m.lastNotice != nil && m.lastNotice.Kind == session.NoticeSubmitted {
		msg = m.lastNotice.Message
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Test submitted"),
		msg,
		helpStyle.Render("q quit"),
	)
}

func (m Model) renderNotice(n session.Notice) string {
	switch n.Kind {
	case session.NoticeError:
		return errorStyle.Render(n.Message)
	case session.NoticeViolation:
		return violationStyle.Render(n.Message)
	case session.NoticeLowTime:
		return timerLowStyle.Render(n.Message)
	default:
		return noticeStyle.Render(n.Message)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
