package store

import (
	"context"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/utils"
)

func ListSubmissions(ctx context.Context, s *Store) []models.SubmissionRecord {
	return Get(ctx, s, CollectionSubmissions, []models.SubmissionRecord{})
}

func FindSubmission(ctx context.Context, s *Store, id int64) (models.SubmissionRecord, bool) {
	for _, rec := range ListSubmissions(ctx, s) {
		if rec.ID == id {
			return rec, true
		}
	}
	return models.SubmissionRecord{}, false
}

// FindActiveSubmission scans for the In Progress record of (studentID, testID).
func FindActiveSubmission(ctx context.Context, s *Store, studentID, testID int) (models.SubmissionRecord, bool) {
	return findActive(ListSubmissions(ctx, s), studentID, testID)
}

func SubmissionsForTest(ctx context.Context, s *Store, testID int) []models.SubmissionRecord {
	out := []models.SubmissionRecord{}
	for _, rec := range ListSubmissions(ctx, s) {
		if rec.TestID == testID {
			out = append(out, rec)
		}
	}
	return out
}

// ReplaceSubmission overwrites the stored record with the same id.
func ReplaceSubmission(ctx context.Context, s *Store, rec models.SubmissionRecord) error {
	return Update(ctx, s, CollectionSubmissions, []models.SubmissionRecord{}, func(all []models.SubmissionRecord) ([]models.SubmissionRecord, error) {
		for i := range all {
			if all[i].ID == rec.ID {
				all[i] = rec
				return all, nil
			}
		}
		return nil, ErrNotFound
	})
}

// ModifySubmission applies fn to the stored record with the given id.
func ModifySubmission(ctx context.Context, s *Store, id int64, fn func(*models.SubmissionRecord) error) (models.SubmissionRecord, error) {
	var out models.SubmissionRecord
	err := Update(ctx, s, CollectionSubmissions, []models.SubmissionRecord{}, func(all []models.SubmissionRecord) ([]models.SubmissionRecord, error) {
		for i := range all {
			if all[i].ID == id {
				if err := fn(&all[i]); err != nil {
					return nil, err
				}
				out = all[i]
				return all, nil
			}
		}
		return nil, ErrNotFound
	})
	return out, err
}

// Resolution describes how AcquireSubmission satisfied a start request.
type Resolution int

const (
	ResolvedActive Resolution = iota
	ResolvedCompleted
	ResolvedCreated
)

// AcquireSubmission looks up the student's In Progress record for testID,
// then their latest Completed one, and otherwise calls allow and creates a
// fresh record. The lookup and the append happen inside one store update, so
// concurrent callers in this process cannot both create.
func AcquireSubmission(ctx context.Context, s *Store, studentID, testID int, now time.Time, allow func() error) (models.SubmissionRecord, Resolution, error) {
	var (
		out models.SubmissionRecord
		res Resolution
	)
	err := Update(ctx, s, CollectionSubmissions, []models.SubmissionRecord{}, func(all []models.SubmissionRecord) ([]models.SubmissionRecord, error) {
		if rec, ok := findActive(all, studentID, testID); ok {
			out, res = rec, ResolvedActive
			return all, nil
		}
		if rec, ok := findLatestCompleted(all, studentID, testID); ok {
			out, res = rec, ResolvedCompleted
			return all, nil
		}
		if err := allow(); err != nil {
			return nil, err
		}
		taken := make(map[int64]bool, len(all))
		for _, rec := range all {
			taken[rec.ID] = true
		}
		out = models.SubmissionRecord{
			ID:        utils.NewSubmissionID(now, func(id int64) bool { return taken[id] }),
			StudentID: studentID,
			TestID:    testID,
			Answers:   []models.StudentAnswer{},
			StartTime: now,
			Status:    models.SubmissionInProgress,
		}
		res = ResolvedCreated
		return append(all, out), nil
	})
	if err != nil {
		return models.SubmissionRecord{}, 0, err
	}
	return out, res, nil
}

func findActive(all []models.SubmissionRecord, studentID, testID int) (models.SubmissionRecord, bool) {
	for _, rec := range all {
		if rec.StudentID == studentID && rec.TestID == testID && rec.Status == models.SubmissionInProgress {
			return rec, true
		}
	}
	return models.SubmissionRecord{}, false
}

func findLatestCompleted(all []models.SubmissionRecord, studentID, testID int) (models.SubmissionRecord, bool) {
	var (
		latest models.SubmissionRecord
		found  bool
	)
	for _, rec := range all {
		if rec.StudentID != studentID || rec.TestID != testID || rec.Status != models.SubmissionCompleted {
			continue
		}
		if !found || rec.StartTime.After(latest.StartTime) {
			latest, found = rec, true
		}
	}
	return latest, found
}

// LatestSubmission returns the most recently started Completed record of
// (studentID, testID).
func LatestSubmission(ctx context.Context, s *Store, studentID, testID int) (models.SubmissionRecord, bool) {
	return findLatestCompleted(ListSubmissions(ctx, s), studentID, testID)
}
