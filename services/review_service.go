package services

import (
	"context"
	"errors"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
)

var (
	ErrNotCompleted = errors.New("submission is not completed")
	ErrForbidden    = errors.New("submission belongs to another student")
)

type QuestionReview struct {
	QuestionID       int                 `json:"questionId"`
	Type             models.QuestionType `json:"type"`
	QuestionText     string              `json:"questionText"`
	Points           int                 `json:"points"`
	Options          []models.MCQOption  `json:"mcqOptions,omitempty"`
	SelectedOptionID *int                `json:"selectedOptionId,omitempty"`
	CorrectOptionID  *int                `json:"correctOptionId,omitempty"`
	AnswerText       *string             `json:"answerText,omitempty"`
	Correct          *bool               `json:"correct,omitempty"`
	Awarded          int                 `json:"awarded"`
	Pending          bool                `json:"pending"`
	Feedback         string              `json:"feedback,omitempty"`
}

type Review struct {
	SubmissionID     int64            `json:"submissionId"`
	TestID           int              `json:"testId"`
	Title            string           `json:"title"`
	Paper            string           `json:"paper"`
	StudentID        int              `json:"studentId"`
	SubmittedAt      *time.Time       `json:"submittedAt,omitempty"`
	CompletionReason string           `json:"completionReason,omitempty"`
	Questions        []QuestionReview `json:"questions"`
	Awarded          int              `json:"awarded"`
	Possible         int              `json:"possible"`
	Pending          int              `json:"pending"`
}

// BuildReview scores a completed submission. MCQ answers are marked against
// the option flagged correct; theoretical answers use faculty marks when
// present and are otherwise pending.
func BuildReview(test models.TestDefinition, sub models.SubmissionRecord) (Review, error) {
	if sub.Status != models.SubmissionCompleted {
		return Review{}, ErrNotCompleted
	}
	rev := Review{
		SubmissionID:     sub.ID,
		TestID:           test.ID,
		Title:            test.Title,
		Paper:            test.Paper,
		StudentID:        sub.StudentID,
		SubmittedAt:      sub.SubmittedAt,
		CompletionReason: sub.CompletionReason,
		Questions:        make([]QuestionReview, 0, len(test.Questions)),
	}

	for _, q := range test.Questions {
		qr := QuestionReview{
			QuestionID:   q.ID,
			Type:         q.Type,
			QuestionText: q.QuestionText,
			Points:       q.Points,
		}
		ans, answered := sub.Answer(q.ID)
		if answered {
			qr.SelectedOptionID = ans.SelectedOptionID
			qr.AnswerText = ans.AnswerText
		}

		switch q.Type {
		case models.QuestionMCQ:
			qr.Options = q.MCQOptions
			correct := false
			if opt, ok := q.CorrectOption(); ok {
				id := opt.ID
				qr.CorrectOptionID = &id
				correct = answered && ans.SelectedOptionID != nil && *ans.SelectedOptionID == opt.ID
			}
			qr.Correct = &correct
			if correct {
				qr.Awarded = q.Points
			}
		default:
			if m, ok := sub.Mark(q.ID); ok {
				qr.Awarded = m.Score
				qr.Feedback = m.Feedback
			} else {
				qr.Pending = true
				rev.Pending++
			}
		}

		rev.Awarded += qr.Awarded
		rev.Possible += q.Points
		rev.Questions = append(rev.Questions, qr)
	}
	return rev, nil
}

// ReviewSubmission loads and scores a submission for p. Students may only
// review their own.
func ReviewSubmission(ctx context.Context, st *store.Store, p models.Principal, submissionID int64) (Review, error) {
	sub, ok := store.FindSubmission(ctx, st, submissionID)
	if !ok {
		return Review{}, store.ErrNotFound
	}
	if p.Role == models.RoleStudent && sub.StudentID != p.ID {
		return Review{}, ErrForbidden
	}
	test, ok := store.FindTest(ctx, st, sub.TestID)
	if !ok {
		return Review{}, store.ErrNotFound
	}
	return BuildReview(test, sub)
}
