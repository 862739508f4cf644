package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
	"github.com/rs/zerolog/log"
)

var ErrInvalidMark = errors.New("invalid mark")

// GradeSubmission upserts faculty marks for theoretical answers on a completed
// submission.
func GradeSubmission(ctx context.Context, st *store.Store, submissionID int64, grader models.Principal, marks []models.TheoryMark, now time.Time) (models.SubmissionRecord, error) {
	sub, ok := store.FindSubmission(ctx, st, submissionID)
	if !ok {
		return models.SubmissionRecord{}, store.ErrNotFound
	}
	test, ok := store.FindTest(ctx, st, sub.TestID)
	if !ok {
		return models.SubmissionRecord{}, store.ErrNotFound
	}
	for _, m := range marks {
		q, ok := test.Question(m.QuestionID)
		switch {
		case !ok:
			return models.SubmissionRecord{}, fmt.Errorf("%w: question %d is not in test %d", ErrInvalidMark, m.QuestionID, test.ID)
		case q.Type != models.QuestionTheoretical:
			return models.SubmissionRecord{}, fmt.Errorf("%w: question %d is scored automatically", ErrInvalidMark, m.QuestionID)
		case m.Score < 0 || m.Score > q.Points:
			return models.SubmissionRecord{}, fmt.Errorf("%w: score %d outside 0..%d", ErrInvalidMark, m.Score, q.Points)
		}
	}

	graded, err := store.ModifySubmission(ctx, st, submissionID, func(rec *models.SubmissionRecord) error {
		if rec.Status != models.SubmissionCompleted {
			return ErrNotCompleted
		}
		for _, m := range marks {
			replaced := false
			for i := range rec.TheoryMarks {
				if rec.TheoryMarks[i].QuestionID == m.QuestionID {
					rec.TheoryMarks[i] = m
					replaced = true
					break
				}
			}
			if !replaced {
				rec.TheoryMarks = append(rec.TheoryMarks, m)
			}
		}
		gradedBy := grader.ID
		rec.GradedBy = &gradedBy
		rec.GradedAt = &now
		return nil
	})
	if err != nil {
		return models.SubmissionRecord{}, err
	}

	log.Info().Int64("submissionID", submissionID).Int("graderID", grader.ID).Int("marks", len(marks)).Msg("submission graded")
	return graded, nil
}
