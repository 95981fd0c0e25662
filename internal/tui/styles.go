package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))

	timerStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	timerLowStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	violationStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	noticeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	promptStyle       = lipgloss.NewStyle().Bold(true)
	selectedOptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	markedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	dialogStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
	gridCurrentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	gridAnsweredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	gridMarkedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	gridVisitedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)
