package session

// LowTimeThreshold is the remaining-seconds mark at which the one-time
// low-time warning fires.
const LowTimeThreshold = 120

// TickResult describes what a single timer tick produced.
type TickResult struct {
	Remaining int
	// LowTime is true exactly once per session, when remaining time
	// first crosses the low-time threshold.
	LowTime bool
	// Expired is true exactly once, when remaining time reaches zero.
	Expired bool
}

// Timer is the countdown engine: whole seconds, never negative, one
// expiry. It never ticks on its own; the owner delivers wall-clock
// ticks via Tick, keeping the countdown independent of render cycles.
type Timer struct {
	remaining int
	running   bool
	warned    bool
	expired   bool
}

// NewTimer returns a stopped timer with no time on it.
func NewTimer() *Timer {
	return &Timer{}
}

// Start arms the timer with a fresh budget and re-arms the low-time
// warning. Used on fresh session start only.
func (t *Timer) Start(seconds int) {
	t.remaining = seconds
	if t.remaining < 0 {
		t.remaining = 0
	}
	t.running = t.remaining > 0
	t.warned = false
	t.expired = t.remaining == 0
}

// Resume arms the timer with carried-over time. The low-time warning is
// considered already delivered when the carried time is at or below the
// threshold: there is no crossing to warn about.
func (t *Timer) Resume(seconds int) {
	t.Start(seconds)
	if t.remaining <= LowTimeThreshold {
		t.warned = true
	}
}

// Stop freezes the countdown.
func (t *Timer) Stop() {
	t.running = false
}

// Remaining returns the remaining whole seconds.
func (t *Timer) Remaining() int {
	return t.remaining
}

// Expired reports whether the timer has hit zero.
func (t *Timer) Expired() bool {
	return t.expired
}

// Tick advances the countdown by one second. Ticks while stopped or
// after expiry are no-ops; the expiry signal fires on exactly one tick.
func (t *Timer) Tick() TickResult {
	if !t.running || t.expired {
		return TickResult{Remaining: t.remaining}
	}

	prev := t.remaining
	t.remaining--
	if t.remaining < 0 {
		t.remaining = 0
	}

	res := TickResult{Remaining: t.remaining}

	if !t.warned && prev > LowTimeThreshold && t.remaining <= LowTimeThreshold {
		t.warned = true
		res.LowTime = true
	}

	if t.remaining == 0 {
		t.expired = true
		t.running = false
		res.Expired = true
	}

	return res
}
