package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/examind/proctor/internal/model"
)

func gradedQuestions() []model.Question {
	return []model.Question{
		{ID: "q1", Points: 2, Arity: model.AritySingle, CorrectOptions: []string{"B"}},
		{ID: "q2", Points: 3, Arity: model.ArityMulti, CorrectOptions: []string{"A", "C"}},
		{ID: "q3", Points: 1, Arity: model.AritySingle, CorrectOptions: []string{"A"}},
	}
}

func TestGradeFullMarks(t *testing.T) {
	score, total := grade(gradedQuestions(), []*model.AnswerEntry{
		{Selected: []string{"B"}},
		{Selected: []string{"A", "C"}},
		{Selected: []string{"A"}},
	})
	assert.Equal(t, 6, score)
	assert.Equal(t, 6, total)
}

func TestGradeMultiSelectionIgnoresOrder(t *testing.T) {
	score, _ := grade(gradedQuestions(), []*model.AnswerEntry{
		nil,
		{Selected: []string{"C", "A"}},
		nil,
	})
	assert.Equal(t, 3, score)
}

func TestGradePartialSelectionEarnsNothing(t *testing.T) {
	score, _ := grade(gradedQuestions(), []*model.AnswerEntry{
		nil,
		{Selected: []string{"A"}}, // half of the correct set
		nil,
	})
	assert.Equal(t, 0, score)
}

func TestGradeExtraSelectionEarnsNothing(t *testing.T) {
	score, _ := grade(gradedQuestions(), []*model.AnswerEntry{
		nil,
		{Selected: []string{"A", "B", "C"}},
		nil,
	})
	assert.Equal(t, 0, score)
}

func TestGradeSkipsUnanswered(t *testing.T) {
	score, total := grade(gradedQuestions(), []*model.AnswerEntry{
		nil,
		{Selected: []string{}},
		{Selected: []string{"A"}},
	})
	assert.Equal(t, 1, score)
	assert.Equal(t, 6, total, "unanswered questions still count toward the total")
}

func TestSameSelection(t *testing.T) {
	assert.True(t, sameSelection([]string{"A"}, []string{"A"}))
	assert.True(t, sameSelection([]string{"C", "A"}, []string{"A", "C"}))
	assert.False(t, sameSelection([]string{"A"}, []string{"B"}))
	assert.False(t, sameSelection([]string{"A"}, []string{"A", "B"}))
	assert.False(t, sameSelection([]string{"A", "B"}, []string{"A"}))
	assert.False(t, sameSelection([]string{"A", "A"}, []string{"A", "C"}), "a repeated option must not stand in for a missing one")
	assert.True(t, sameSelection(nil, nil))
}

func TestGradeRepeatedSelectionEarnsNothing(t *testing.T) {
	score, _ := grade(gradedQuestions(), []*model.AnswerEntry{
		nil,
		{Selected: []string{"A", "A"}},
		nil,
	})
	assert.Equal(t, 0, score)
}
