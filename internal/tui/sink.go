package tui

import (
	"github.com/examind/proctor/internal/client"
	"github.com/examind/proctor/internal/session"
)

// NoticeSink buffers controller notices for the UI loop and forwards
// violations to the proctor feed. Notify never blocks: when the buffer
// is full the oldest notice is dropped.
type NoticeSink struct {
	ch   chan session.Notice
	feed *client.ProctorFeed
}

// NewNoticeSink creates a sink with room for a burst of notices.
func NewNoticeSink(feed *client.ProctorFeed) *NoticeSink {
	return &NoticeSink{
		ch:   make(chan session.Notice, 32),
		feed: feed,
	}
}

// Notify implements session.Notifier.
func (s *NoticeSink) Notify(n session.Notice) {
	if n.Violation != nil && s.feed != nil {
		s.feed.ReportViolation(string(n.Violation.Kind), n.Violation.Count)
	}
	select {
	case s.ch <- n:
	default:
		select {
		case <-s.ch:
		default:
		}
		s.ch <- n
	}
}

// Notices exposes the buffered channel for the UI loop.
func (s *NoticeSink) Notices() <-chan session.Notice {
	return s.ch
}

// AltScreen is the session.Screen capability for a terminal client.
// The program already runs in the alternate screen, so there is no
// separate fullscreen mode to request.
type AltScreen struct{}

func (AltScreen) RequestFullscreen() error { return nil }
