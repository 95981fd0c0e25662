package session

// DefaultViolationLimit is the number of violations that forces
// submission when no limit is configured.
const DefaultViolationLimit = 3

// ViolationKind identifies the class of integrity signal that produced
// a violation.
type ViolationKind string

const (
	ViolationHidden         ViolationKind = "visibility_hidden"
	ViolationFullscreenExit ViolationKind = "fullscreen_exit"
)

// Violation is one counted integrity violation.
type Violation struct {
	Kind         ViolationKind
	Count        int
	Limit        int
	LimitReached bool
}

// Monitor tracks integrity violations. Visibility loss and fullscreen
// exit increment the same counter; the counter never decreases within a
// session and resets only on fresh session start. Fullscreen exits are
// edge-triggered: only an actual fullscreen→windowed transition counts,
// and only once fullscreen was actually entered.
type Monitor struct {
	limit      int
	count      int
	fullscreen bool
}

// NewMonitor returns a monitor with the given violation limit. A
// non-positive limit falls back to DefaultViolationLimit.
func NewMonitor(limit int) *Monitor {
	if limit <= 0 {
		limit = DefaultViolationLimit
	}
	return &Monitor{limit: limit}
}

// Reset zeroes the counter for a fresh session start.
func (m *Monitor) Reset() {
	m.count = 0
	m.fullscreen = false
}

// Count returns the current violation count.
func (m *Monitor) Count() int {
	return m.count
}

// Limit returns the configured violation limit.
func (m *Monitor) Limit() int {
	return m.limit
}

// SetLimit replaces the limit, typically with the server's per-test
// policy once the test payload arrives. Non-positive values are
// ignored.
func (m *Monitor) SetLimit(limit int) {
	if limit > 0 {
		m.limit = limit
	}
}

// Hidden records a visibility-loss event (tab switch, app switch,
// minimize, window blur) and returns the resulting violation.
func (m *Monitor) Hidden() Violation {
	return m.increment(ViolationHidden)
}

// FullscreenChange records the current fullscreen level. It returns a
// violation only on the exit edge; entering fullscreen, or repeated
// reports of the same level, never count.
func (m *Monitor) FullscreenChange(active bool) (Violation, bool) {
	was := m.fullscreen
	m.fullscreen = active
	if was && !active {
		return m.increment(ViolationFullscreenExit), true
	}
	return Violation{}, false
}

func (m *Monitor) increment(kind ViolationKind) Violation {
	m.count++
	return Violation{
		Kind:         kind,
		Count:        m.count,
		Limit:        m.limit,
		LimitReached: m.count >= m.limit,
	}
}
