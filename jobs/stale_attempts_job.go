package jobs

import (
	"context"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/session"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// FindStaleAttempts returns In Progress submissions whose time budget has run
// out and that no live session is driving.
func FindStaleAttempts(ctx context.Context, st *store.Store, live func(int64) bool, now time.Time) []models.SubmissionRecord {
	durations := map[int]int{}
	for _, t := range store.ListTests(ctx, st) {
		durations[t.ID] = t.DurationMinutes
	}

	var stale []models.SubmissionRecord
	for _, rec := range store.ListSubmissions(ctx, st) {
		if rec.Status != models.SubmissionInProgress || live(rec.ID) {
			continue
		}
		minutes, ok := durations[rec.TestID]
		if ok && session.RemainingSeconds(minutes, rec.StartTime, now) > 0 {
			continue
		}
		stale = append(stale, rec)
	}
	return stale
}

// ReportStaleAttempts logs stale attempts. Records are left untouched so the
// student's next visit completes them through the normal timeout path.
func ReportStaleAttempts(st *store.Store, mgr *session.Manager) func() {
	return func() {
		log.Debug().Msg("Running job: ReportStaleAttempts...")
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		stale := FindStaleAttempts(ctx, st, mgr.Live, time.Now())
		if len(stale) == 0 {
			log.Debug().Msg("No stale attempts found.")
			return
		}
		for _, rec := range stale {
			log.Info().Int64("submissionID", rec.ID).Int("studentID", rec.StudentID).Int("testID", rec.TestID).
				Time("startTime", rec.StartTime).Msg("attempt out of time with no live session")
		}
		log.Info().Int("count", len(stale)).Msg("Stale attempts found.")
	}
}

func Register(c *cron.Cron, spec string, st *store.Store, mgr *session.Manager) error {
	if _, err := c.AddFunc(spec, ReportStaleAttempts(st, mgr)); err != nil {
		return err
	}
	log.Info().Str("spec", spec).Msg("✅ Cron job for stale attempts scheduled successfully.")
	return nil
}
