package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examind/proctor/internal/model"
)

func TestQuestionKey(t *testing.T) {
	assert.Equal(t, "abc", QuestionKey(model.Question{ID: "abc"}, 4))
	assert.Equal(t, "q-4", QuestionKey(model.Question{}, 4))
}

func TestSelectOptionSingleReplaces(t *testing.T) {
	sel := selectOption(nil, "A", model.AritySingle)
	assert.Equal(t, []string{"A"}, sel)

	sel = selectOption(sel, "B", model.AritySingle)
	assert.Equal(t, []string{"B"}, sel)
}

func TestSelectOptionMultiToggles(t *testing.T) {
	sel := selectOption(nil, "A", model.ArityMulti)
	sel = selectOption(sel, "B", model.ArityMulti)
	assert.Equal(t, []string{"A", "B"}, sel)

	// Toggling an existing option removes it.
	sel = selectOption(sel, "A", model.ArityMulti)
	assert.Equal(t, []string{"B"}, sel)

	sel = selectOption(sel, "B", model.ArityMulti)
	assert.Empty(t, sel)
}

func TestStoreAnswers(t *testing.T) {
	s := NewStore()

	s.SetAnswer("q1", []string{"A"})
	assert.True(t, s.Answered("q1"))
	assert.Equal(t, []string{"A"}, s.Answer("q1"))

	// Setting an empty selection removes the answer.
	s.SetAnswer("q1", nil)
	assert.False(t, s.Answered("q1"))

	s.SetAnswer("q2", []string{"B", "C"})
	s.ClearAnswer("q2")
	assert.False(t, s.Answered("q2"))
}

func TestStoreVisitAndMark(t *testing.T) {
	s := NewStore()

	s.Visit("q1", 0)
	s.Visit("q3", 2)
	assert.True(t, s.Visited("q1"))
	assert.True(t, s.Visited("q3"))
	assert.False(t, s.Visited("q2"))
	assert.Equal(t, 2, s.Current())

	s.ToggleMark("q1")
	assert.True(t, s.Marked("q1"))
	s.ToggleMark("q1")
	assert.False(t, s.Marked("q1"))
}

func TestStoreSnapshotRoundTrip(t *testing.T) {
	s := NewStore()
	s.SetStarted(true)
	s.SetAnswer("q1", []string{"A"})
	s.SetAnswer("q3", []string{"B", "C"})
	s.Visit("q1", 0)
	s.Visit("q3", 2)
	s.ToggleMark("q3")

	snap := s.Snapshot(540)

	restored := NewStore()
	restored.Restore(snap)

	assert.True(t, restored.Started())
	assert.Equal(t, 2, restored.Current())
	assert.Equal(t, []string{"A"}, restored.Answer("q1"))
	assert.Equal(t, []string{"B", "C"}, restored.Answer("q3"))
	assert.True(t, restored.Visited("q1"))
	assert.True(t, restored.Visited("q3"))
	assert.True(t, restored.Marked("q3"))
	assert.False(t, restored.Marked("q1"))
}

func TestStoreSnapshotIsStable(t *testing.T) {
	s := NewStore()
	s.SetStarted(true)
	s.Visit("q2", 1)
	s.Visit("q1", 0)
	s.Visit("q3", 2)

	a, err := json.Marshal(s.Snapshot(100))
	require.NoError(t, err)
	b, err := json.Marshal(s.Snapshot(100))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSnapshotJSONShape(t *testing.T) {
	s := NewStore()
	s.SetStarted(true)
	s.SetAnswer("q1", []string{"A"})
	s.Visit("q1", 0)

	raw, err := json.Marshal(s.Snapshot(300))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"answers", "currentQuestionIndex", "visited", "markForReview", "timeLeft", "started"} {
		assert.Contains(t, decoded, key)
	}
}

func TestStoreSnapshotIsDeepCopy(t *testing.T) {
	s := NewStore()
	s.SetAnswer("q1", []string{"A"})
	snap := s.Snapshot(10)

	s.SetAnswer("q1", []string{"B"})
	assert.Equal(t, []string{"A"}, snap.Answers["q1"])
}
