package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonitorHiddenIncrements(t *testing.T) {
	m := NewMonitor(3)

	v := m.Hidden()
	assert.Equal(t, ViolationHidden, v.Kind)
	assert.Equal(t, 1, v.Count)
	assert.False(t, v.LimitReached)

	m.Hidden()
	v = m.Hidden()
	assert.Equal(t, 3, v.Count)
	assert.True(t, v.LimitReached)
}

func TestMonitorFullscreenEdgeTriggered(t *testing.T) {
	m := NewMonitor(3)

	// Entering fullscreen never counts.
	_, counted := m.FullscreenChange(true)
	assert.False(t, counted)

	// Exit edge counts.
	v, counted := m.FullscreenChange(false)
	assert.True(t, counted)
	assert.Equal(t, ViolationFullscreenExit, v.Kind)
	assert.Equal(t, 1, v.Count)

	// Repeated reports of the same level do not count.
	_, counted = m.FullscreenChange(false)
	assert.False(t, counted)

	// Re-enter and exit again: second violation.
	m.FullscreenChange(true)
	v, counted = m.FullscreenChange(false)
	assert.True(t, counted)
	assert.Equal(t, 2, v.Count)
}

func TestMonitorExitWithoutEnterDoesNotCount(t *testing.T) {
	m := NewMonitor(3)

	// Fullscreen was never entered; a "windowed" report is not an exit.
	_, counted := m.FullscreenChange(false)
	assert.False(t, counted)
	assert.Equal(t, 0, m.Count())
}

func TestMonitorMixedKindsShareCounter(t *testing.T) {
	m := NewMonitor(3)

	m.Hidden()
	m.FullscreenChange(true)
	v, _ := m.FullscreenChange(false)
	assert.Equal(t, 2, v.Count)

	v = m.Hidden()
	assert.True(t, v.LimitReached)
}

func TestMonitorReset(t *testing.T) {
	m := NewMonitor(3)
	m.FullscreenChange(true)
	m.Hidden()
	m.Reset()

	assert.Equal(t, 0, m.Count())
	// Reset also clears the fullscreen level.
	_, counted := m.FullscreenChange(false)
	assert.False(t, counted)
}

func TestMonitorDefaultLimit(t *testing.T) {
	m := NewMonitor(0)
	assert.Equal(t, DefaultViolationLimit, m.Limit())
}
