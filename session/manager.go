package session

import (
	"context"
	"sync"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTickInterval     = time.Second
	DefaultAutosaveInterval = 15 * time.Second
)

// CompletionHook runs after a submission has been completed and persisted.
type CompletionHook func(rec models.SubmissionRecord, test models.TestDefinition, reason Reason)

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.clock = now }
}

func WithIntervals(tick, autosave time.Duration) Option {
	return func(m *Manager) {
		if tick > 0 {
			m.tickEvery = tick
		}
		if autosave > 0 {
			m.saveEvery = autosave
		}
	}
}

func WithCompletionHook(h CompletionHook) Option {
	return func(m *Manager) { m.hooks = append(m.hooks, h) }
}

// Manager owns the live sessions of this process, keyed by submission id.
type Manager struct {
	store     *store.Store
	sched     Scheduler
	events    Events
	clock     func() time.Time
	tickEvery time.Duration
	saveEvery time.Duration
	hooks     []CompletionHook

	mu          sync.Mutex
	live        map[int64]*Session
	unsubscribe func()
}

func NewManager(st *store.Store, sched Scheduler, events Events, opts ...Option) *Manager {
	if events == nil {
		events = discardEvents{}
	}
	m := &Manager{
		store:     st,
		sched:     sched,
		events:    events,
		clock:     time.Now,
		tickEvery: DefaultTickInterval,
		saveEvery: DefaultAutosaveInterval,
		live:      map[int64]*Session{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.unsubscribe = st.Subscribe(store.CollectionMockTests, m.onTestsChanged)
	return m
}

// Bootstrap attaches the principal to their attempt at testID. A staged
// record is adopted when it matches, and the caller must discard it after
// this call. Failures that need navigation come back as *RedirectError.
func (m *Manager) Bootstrap(ctx context.Context, p models.Principal, testID int, staged *models.SubmissionRecord) (*Session, error) {
	var (
		rec   models.SubmissionRecord
		found bool
	)
	if staged != nil && staged.TestID == testID && staged.StudentID == p.ID {
		rec, found = staged.Clone(), true
	}
	if !found {
		if s, ok := m.Lookup(p.ID, testID); ok {
			return s, nil
		}
		rec, found = store.FindActiveSubmission(ctx, m.store, p.ID, testID)
	}
	if !found {
		return nil, &RedirectError{
			Route: RouteTestList,
			Alert: "No active session was found for this test. Please start it from the test list.",
			Err:   ErrNoActiveSubmission,
		}
	}
	if rec.Status == models.SubmissionCompleted {
		return nil, &RedirectError{Route: ReviewRoute(rec.ID), Err: ErrAlreadyCompleted}
	}

	test, ok := store.FindTest(ctx, m.store, testID)
	if !ok {
		return nil, &RedirectError{
			Route: RouteTestList,
			Alert: "This test is no longer available.",
			Err:   ErrTestNotFound,
		}
	}

	m.mu.Lock()
	if s, ok := m.live[rec.ID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	if rec.Answers == nil {
		rec.Answers = []models.StudentAnswer{}
	}
	s := &Session{
		m:         m,
		test:      test,
		rec:       rec,
		remaining: RemainingSeconds(test.DurationMinutes, rec.StartTime, m.clock()),
	}
	m.live[rec.ID] = s
	m.mu.Unlock()

	log.Info().Int64("submissionID", rec.ID).Int("studentID", p.ID).Int("testID", testID).
		Int("remaining", s.remaining).Msg("test session started")
	s.start()
	return s, nil
}

// Lookup finds the live session of studentID for testID.
func (m *Manager) Lookup(studentID, testID int) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.live {
		if s.rec.StudentID == studentID && s.test.ID == testID {
			return s, true
		}
	}
	return nil, false
}

func (m *Manager) Live(submissionID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[submissionID]
	return ok
}

// Detach stops the student's live session for testID, if any.
func (m *Manager) Detach(studentID, testID int) {
	if s, ok := m.Lookup(studentID, testID); ok {
		s.Stop()
	}
}

// Close stops every live session and the lock observer.
func (m *Manager) Close() {
	m.unsubscribe()
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.live))
	for _, s := range m.live {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Stop()
	}
}

// tickSeconds is how many seconds one tick covers. cron.Every truncates to
// whole seconds with a floor of one, so this does the same.
func (m *Manager) tickSeconds() int {
	if n := int(m.tickEvery / time.Second); n > 1 {
		return n
	}
	return 1
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live[s.rec.ID] == s {
		delete(m.live, s.rec.ID)
	}
}

func (m *Manager) completed(rec models.SubmissionRecord, test models.TestDefinition, reason Reason) {
	for _, h := range m.hooks {
		h(rec, test, reason)
	}
}

func (m *Manager) onTestsChanged(string) {
	tests := store.ListTests(context.Background(), m.store)
	locked := map[int]bool{}
	for _, t := range tests {
		if t.IsLocked {
			locked[t.ID] = true
		}
	}

	m.mu.Lock()
	var hit []*Session
	for _, s := range m.live {
		if locked[s.test.ID] {
			hit = append(hit, s)
		}
	}
	m.mu.Unlock()

	for _, s := range hit {
		s.Lock()
	}
}
