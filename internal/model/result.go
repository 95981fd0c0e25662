package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmitReason distinguishes why a submission was sent.
type SubmitReason string

const (
	ReasonManual    SubmitReason = "manual"
	ReasonTimeout   SubmitReason = "timeout"
	ReasonViolation SubmitReason = "violation"
)

// AnswerEntry is one position of the ordered answer payload. A nil entry
// in Submission.Answers means the question was left unanswered.
type AnswerEntry struct {
	Selected []string `json:"selected"`
}

// Submission is the outbound payload for submitting a finished test.
// Answers carries exactly one entry per question, in question order.
type Submission struct {
	Answers          []*AnswerEntry `json:"answers" binding:"required"`
	TimeTakenMinutes int            `json:"time_taken_minutes" binding:"min=0"`
	Forced           bool           `json:"forced"`
	Reason           SubmitReason   `json:"reason,omitempty" binding:"omitempty,oneof=manual timeout violation"`
}

// TestResult is a graded attempt as stored server-side.
type TestResult struct {
	ID               uuid.UUID    `json:"id"`
	TestID           uuid.UUID    `json:"test_id"`
	StudentID        int          `json:"student_id"`
	Score            int          `json:"score"`
	TotalScore       int          `json:"total_score"`
	Percentage       int          `json:"percentage"`
	Passed           bool         `json:"passed"`
	TimeTakenMinutes int          `json:"time_taken_minutes"`
	Forced           bool         `json:"forced"`
	Reason           SubmitReason `json:"reason,omitempty"`
	CompletedAt      time.Time    `json:"completed_at"`
}

// ResultSummary is the per-attempt view returned to a student when
// checking for prior attempts.
type ResultSummary struct {
	TestID      uuid.UUID `json:"test_id"`
	TestTitle   string    `json:"test_title"`
	Score       int       `json:"score"`
	TotalScore  int       `json:"total_score"`
	Percentage  int       `json:"percentage"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completed_at"`
}
