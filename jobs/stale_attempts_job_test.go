package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
	"github.com/UnExplainableFish52/reliant-learners-academy/store/storetest"
)

func TestFindStaleAttempts(t *testing.T) {
	ctx := context.Background()
	st := storetest.New(t)
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	if err := st.Set(ctx, store.CollectionMockTests, []models.TestDefinition{{ID: 7, DurationMinutes: 30}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	subs := []models.SubmissionRecord{
		{ID: 1, TestID: 7, StartTime: now.Add(-10 * time.Minute), Status: models.SubmissionInProgress},
		{ID: 2, TestID: 7, StartTime: now.Add(-time.Hour), Status: models.SubmissionInProgress},
		{ID: 3, TestID: 7, StartTime: now.Add(-time.Hour), Status: models.SubmissionInProgress},
		{ID: 4, TestID: 7, StartTime: now.Add(-time.Hour), Status: models.SubmissionCompleted},
		{ID: 5, TestID: 99, StartTime: now.Add(-time.Minute), Status: models.SubmissionInProgress},
	}
	if err := st.Set(ctx, store.CollectionSubmissions, subs); err != nil {
		t.Fatalf("seed: %v", err)
	}

	live := func(id int64) bool { return id == 3 }
	stale := FindStaleAttempts(ctx, st, live, now)

	var ids []int64
	for _, rec := range stale {
		ids = append(ids, rec.ID)
	}
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 5 {
		t.Fatalf("stale ids = %v, want [2 5]", ids)
	}

	after := store.ListSubmissions(ctx, st)
	for _, rec := range after {
		if rec.ID == 2 && rec.Status != models.SubmissionInProgress {
			t.Fatal("job must not mutate records")
		}
	}
}
