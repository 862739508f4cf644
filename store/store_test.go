package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
	"github.com/UnExplainableFish52/reliant-learners-academy/store/storetest"
)

func TestGetReturnsDefault(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	got := store.Get(ctx, s, "missing", []int{9})
	if len(got) != 1 || got[0] != 9 {
		t.Fatalf("absent key: got %v, want default", got)
	}

	if err := s.Set(ctx, "nums", "not a list"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got = store.Get(ctx, s, "nums", []int{9})
	if len(got) != 1 || got[0] != 9 {
		t.Fatalf("corrupt key: got %v, want default", got)
	}
}

func TestSetNotifiesObservers(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	var calls []string
	cancel := s.Subscribe("a", func(key string) { calls = append(calls, key) })
	s.Subscribe("b", func(string) { t.Fatal("observer of b must not fire") })

	if err := s.Set(ctx, "a", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	cancel()
	if err := s.Set(ctx, "a", 2); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(calls) != 1 || calls[0] != "a" {
		t.Fatalf("calls = %v, want [a]", calls)
	}
	if got := store.Get(ctx, s, "a", 0); got != 2 {
		t.Fatalf("Get = %d, want 2", got)
	}
}

func TestObserverMayWrite(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	s.Subscribe("a", func(string) {
		if err := s.Set(ctx, "b", "seen"); err != nil {
			t.Errorf("nested Set: %v", err)
		}
	})
	if err := s.Set(ctx, "a", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := store.Get(ctx, s, "b", ""); got != "seen" {
		t.Fatalf("b = %q", got)
	}
}

func TestUpdateAbortsOnError(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	notified := false
	s.Subscribe("n", func(string) { notified = true })

	boom := errors.New("boom")
	err := store.Update(ctx, s, "n", 0, func(int) (int, error) { return 5, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if notified {
		t.Fatal("observer fired for aborted update")
	}
	if got := store.Get(ctx, s, "n", -1); got != -1 {
		t.Fatalf("value written despite abort: %d", got)
	}
}

func TestUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Update(ctx, s, "counter", 0, func(n int) (int, error) { return n + 1, nil }); err != nil {
				t.Errorf("Update: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := store.Get(ctx, s, "counter", 0); got != 20 {
		t.Fatalf("counter = %d, want 20", got)
	}
}

func TestSaveTestAssignsIDs(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	a, err := store.SaveTest(ctx, s, models.TestDefinition{Title: "A", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("SaveTest: %v", err)
	}
	b, err := store.SaveTest(ctx, s, models.TestDefinition{Title: "B", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("SaveTest: %v", err)
	}
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("ids = %d, %d", a.ID, b.ID)
	}

	if _, err := store.SaveTest(ctx, s, models.TestDefinition{ID: 99}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown id: err = %v", err)
	}

	locked, err := store.SetTestLock(ctx, s, b.ID, true)
	if err != nil || !locked.IsLocked {
		t.Fatalf("SetTestLock = %+v, %v", locked, err)
	}
	if err := store.DeleteTest(ctx, s, a.ID); err != nil {
		t.Fatalf("DeleteTest: %v", err)
	}
	tests := store.ListTests(ctx, s)
	if len(tests) != 1 || tests[0].ID != b.ID || !tests[0].IsLocked {
		t.Fatalf("tests = %+v", tests)
	}
}

func TestAcquireSubmission(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	allow := func() error { return nil }

	created, res, err := store.AcquireSubmission(ctx, s, 42, 7, t0, allow)
	if err != nil || res != store.ResolvedCreated {
		t.Fatalf("first acquire: res=%v err=%v", res, err)
	}
	if created.Status != models.SubmissionInProgress || !created.StartTime.Equal(t0) {
		t.Fatalf("created = %+v", created)
	}

	again, res, err := store.AcquireSubmission(ctx, s, 42, 7, t0.Add(time.Minute), allow)
	if err != nil || res != store.ResolvedActive || again.ID != created.ID {
		t.Fatalf("second acquire: id=%d res=%v err=%v", again.ID, res, err)
	}

	_, err = store.ModifySubmission(ctx, s, created.ID, func(rec *models.SubmissionRecord) error {
		rec.Status = models.SubmissionCompleted
		return nil
	})
	if err != nil {
		t.Fatalf("ModifySubmission: %v", err)
	}

	denied := errors.New("denied")
	done, res, err := store.AcquireSubmission(ctx, s, 42, 7, t0.Add(time.Hour), func() error { return denied })
	if err != nil || res != store.ResolvedCompleted || done.ID != created.ID {
		t.Fatalf("after completion: id=%d res=%v err=%v", done.ID, res, err)
	}

	if _, _, err := store.AcquireSubmission(ctx, s, 43, 7, t0, func() error { return denied }); !errors.Is(err, denied) {
		t.Fatalf("other student: err = %v", err)
	}
	if n := len(store.ListSubmissions(ctx, s)); n != 1 {
		t.Fatalf("submissions = %d, want 1", n)
	}
}

func TestAcquireSubmissionConcurrent(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	now := time.Now()

	var wg sync.WaitGroup
	ids := make([]int64, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, _, err := store.AcquireSubmission(ctx, s, 42, 7, now, func() error { return nil })
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			ids[i] = rec.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("ids differ: %v", ids)
		}
	}
	if n := len(store.SubmissionsForTest(ctx, s, 7)); n != 1 {
		t.Fatalf("submissions = %d, want 1", n)
	}
}
