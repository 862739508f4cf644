package services

import (
	"context"
	"errors"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
	"github.com/rs/zerolog/log"
)

var ErrTestUnavailable = errors.New("test is not available to this student")

// EligibleTests keeps the published, unlocked tests whose schedule has opened
// and whose paper the student is enrolled in.
func EligibleTests(tests []models.TestDefinition, papers []string, now time.Time) []models.TestDefinition {
	p := models.Principal{Papers: papers}
	out := []models.TestDefinition{}
	for _, t := range tests {
		if eligible(t, p, now) {
			out = append(out, t)
		}
	}
	return out
}

func eligible(t models.TestDefinition, p models.Principal, now time.Time) bool {
	if t.Status != models.TestPublished || t.IsLocked {
		return false
	}
	if t.ScheduledStartTime != nil && t.ScheduledStartTime.After(now) {
		return false
	}
	return p.Enrolled(t.Paper)
}

func ListAvailableTests(ctx context.Context, st *store.Store, p models.Principal, now time.Time) []models.TestDefinition {
	return EligibleTests(store.ListTests(ctx, st), p.Papers, now)
}

// StartAttempt returns the student's In Progress submission for testID, or
// their latest Completed one, or a new submission started at now. Only the
// last case requires the test to be eligible.
func StartAttempt(ctx context.Context, st *store.Store, p models.Principal, testID int, now time.Time) (models.SubmissionRecord, store.Resolution, error) {
	test, found := store.FindTest(ctx, st, testID)
	rec, res, err := store.AcquireSubmission(ctx, st, p.ID, testID, now, func() error {
		if !found || !eligible(test, p, now) {
			return ErrTestUnavailable
		}
		return nil
	})
	if err != nil {
		return models.SubmissionRecord{}, 0, err
	}
	if res == store.ResolvedCreated {
		log.Info().Int64("submissionID", rec.ID).Int("studentID", p.ID).Int("testID", testID).Msg("test attempt created")
	}
	return rec, res, nil
}
