package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerCountsDown(t *testing.T) {
	tm := NewTimer()
	tm.Start(3)

	res := tm.Tick()
	assert.Equal(t, 2, res.Remaining)
	assert.False(t, res.Expired)

	tm.Tick()
	res = tm.Tick()
	assert.Equal(t, 0, res.Remaining)
	assert.True(t, res.Expired)
	assert.True(t, tm.Expired())
}

func TestTimerExpiryFiresOnce(t *testing.T) {
	tm := NewTimer()
	tm.Start(1)

	res := tm.Tick()
	require.True(t, res.Expired)

	// Further ticks are no-ops.
	res = tm.Tick()
	assert.False(t, res.Expired)
	assert.Equal(t, 0, res.Remaining)
}

func TestTimerNeverGoesNegative(t *testing.T) {
	tm := NewTimer()
	tm.Start(1)
	for i := 0; i < 5; i++ {
		tm.Tick()
	}
	assert.Equal(t, 0, tm.Remaining())
}

func TestTimerLowTimeWarningOnCrossing(t *testing.T) {
	tm := NewTimer()
	tm.Start(LowTimeThreshold + 2)

	res := tm.Tick() // 121
	assert.False(t, res.LowTime)

	res = tm.Tick() // 120: crossing
	assert.True(t, res.LowTime)

	res = tm.Tick() // 119: already warned
	assert.False(t, res.LowTime)
}

func TestTimerStartReArmsWarning(t *testing.T) {
	tm := NewTimer()
	tm.Start(LowTimeThreshold + 1)
	res := tm.Tick()
	require.True(t, res.LowTime)

	tm.Start(LowTimeThreshold + 1)
	res = tm.Tick()
	assert.True(t, res.LowTime, "fresh start must re-arm the warning")
}

func TestTimerResumeBelowThresholdDoesNotWarn(t *testing.T) {
	tm := NewTimer()
	tm.Resume(90)

	// No crossing happens below the threshold; no warning fires.
	for i := 0; i < 30; i++ {
		res := tm.Tick()
		assert.False(t, res.LowTime)
	}
	assert.Equal(t, 60, tm.Remaining())
}

func TestTimerResumeAboveThresholdWarnsOnCrossing(t *testing.T) {
	tm := NewTimer()
	tm.Resume(LowTimeThreshold + 1)

	res := tm.Tick()
	assert.True(t, res.LowTime)
}

func TestTimerStopFreezes(t *testing.T) {
	tm := NewTimer()
	tm.Start(10)
	tm.Stop()

	res := tm.Tick()
	assert.Equal(t, 10, res.Remaining)
}

func TestTimerStartWithZeroIsExpired(t *testing.T) {
	tm := NewTimer()
	tm.Start(0)
	assert.True(t, tm.Expired())

	res := tm.Tick()
	assert.False(t, res.Expired, "expiry signal only fires from a live tick")
}
