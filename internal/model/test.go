package model

import (
	"time"

	"github.com/google/uuid"
)

// SelectionArity declares how many options a question accepts. It is an
// explicit per-question field; clients must never infer it from option
// shapes.
type SelectionArity string

const (
	AritySingle SelectionArity = "single"
	ArityMulti  SelectionArity = "multi"
)

// Test represents a test entity as stored server-side, correct answers
// included.
type Test struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Category        string     `json:"category"`
	Instructions    string     `json:"instructions"`
	DurationMinutes int        `json:"duration_minutes"`
	PassingScore    int        `json:"passing_score"`
	IsActive        bool       `json:"is_active"`
	Questions       []Question `json:"questions"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Question is a single test question. CorrectOptions is stripped before
// anything leaves the server.
type Question struct {
	ID             string         `json:"id"`
	Prompt         string         `json:"prompt"`
	Options        []string       `json:"options"`
	Points         int            `json:"points"`
	Arity          SelectionArity `json:"arity"`
	CorrectOptions []string       `json:"correct_options,omitempty"`
}

// TestForStudent is the payload sent to a test taker: the full test
// definition minus correct answers.
type TestForStudent struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Instructions    string     `json:"instructions"`
	DurationMinutes int        `json:"duration_minutes"`
	Questions       []Question `json:"questions"`

	// ViolationLimit is the server's proctoring policy for this test.
	// Zero means the client falls back to its own configured limit.
	ViolationLimit int `json:"violation_limit,omitempty"`
}

// ForStudent strips correct answers from a test.
func (t *Test) ForStudent() *TestForStudent {
	questions := make([]Question, len(t.Questions))
	for i, q := range t.Questions {
		q.CorrectOptions = nil
		questions[i] = q
	}
	return &TestForStudent{
		ID:              t.ID,
		Title:           t.Title,
		Instructions:    t.Instructions,
		DurationMinutes: t.DurationMinutes,
		Questions:       questions,
	}
}
