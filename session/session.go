package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
	"github.com/rs/zerolog/log"
)

type Reason string

const (
	ReasonTimeout  Reason = "timeout"
	ReasonManual   Reason = "manual"
	ReasonCheating Reason = "cheating"
	ReasonLocked   Reason = "locked"
)

const (
	alertLocked   = "This test has been locked by your instructor. Your answers have been submitted."
	alertCheating = "Leaving the test window is not allowed. Your test has been submitted automatically."
)

const persistTimeout = 5 * time.Second

// AnswerPatch carries the fields to merge into a StudentAnswer. Nil fields
// leave the stored value untouched.
type AnswerPatch struct {
	AnswerText       *string `json:"answerText"`
	SelectedOptionID *int    `json:"selectedOptionId"`
}

// State is a point-in-time copy of a running session.
type State struct {
	Submission models.SubmissionRecord
	Remaining  int
	Index      int
}

// RemainingSeconds is the time budget left at now, clamped at zero.
func RemainingSeconds(durationMinutes int, start, now time.Time) int {
	left := durationMinutes*60 - int(now.Sub(start)/time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// Session runs one student's attempt at one test. It owns the in-memory
// submission until it completes or is stopped.
type Session struct {
	m    *Manager
	test models.TestDefinition

	// persistMu orders autosave writes before the completion write.
	persistMu sync.Mutex

	mu         sync.Mutex
	rec        models.SubmissionRecord
	remaining  int
	index      int
	closed     bool
	cancelTick func()
	cancelSave func()
}

func (s *Session) ID() int64                    { return s.rec.ID }
func (s *Session) StudentID() int               { return s.rec.StudentID }
func (s *Session) TestID() int                  { return s.test.ID }
func (s *Session) Test() models.TestDefinition { return s.test }

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Submission: s.rec.Clone(), Remaining: s.remaining, Index: s.index}
}

func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Active reports whether the session still accepts answers.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.rec.Status == models.SubmissionInProgress
}

// SetAnswer upserts the answer for questionID in memory.
func (s *Session) SetAnswer(questionID int, patch AnswerPatch) error {
	q, ok := s.test.Question(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if patch.SelectedOptionID != nil && !q.HasOption(*patch.SelectedOptionID) {
		return ErrUnknownOption
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.rec.Status != models.SubmissionInProgress {
		return ErrClosed
	}
	for i := range s.rec.Answers {
		if s.rec.Answers[i].QuestionID == questionID {
			mergeAnswer(&s.rec.Answers[i], patch)
			return nil
		}
	}
	a := models.StudentAnswer{QuestionID: questionID}
	mergeAnswer(&a, patch)
	s.rec.Answers = append(s.rec.Answers, a)
	return nil
}

func mergeAnswer(a *models.StudentAnswer, patch AnswerPatch) {
	if patch.AnswerText != nil {
		v := *patch.AnswerText
		a.AnswerText = &v
	}
	if patch.SelectedOptionID != nil {
		v := *patch.SelectedOptionID
		a.SelectedOptionID = &v
	}
}

func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < len(s.test.Questions)-1 {
		s.index++
	}
	return s.index
}

func (s *Session) Previous() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index > 0 {
		s.index--
	}
	return s.index
}

func (s *Session) Goto(i int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.test.Questions) {
		return s.index, ErrIndexOutOfRange
	}
	s.index = i
	return s.index, nil
}

// Submit completes the attempt on the student's confirmed request.
func (s *Session) Submit(confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if !s.Finish(ReasonManual) {
		return ErrClosed
	}
	return nil
}

func (s *Session) Lock() bool {
	return s.Finish(ReasonLocked)
}

func (s *Session) ReportCheating(kind string) bool {
	log.Warn().Int64("submissionID", s.rec.ID).Int("studentID", s.rec.StudentID).
		Str("violation", kind).Msg("cheating signal received")
	return s.Finish(ReasonCheating)
}

// Finish moves the submission from In Progress to Completed. Only the first
// call takes effect; it reports whether this call did the transition.
func (s *Session) Finish(reason Reason) bool {
	s.persistMu.Lock()
	s.mu.Lock()
	if s.closed || s.rec.Status != models.SubmissionInProgress {
		s.mu.Unlock()
		s.persistMu.Unlock()
		return false
	}
	now := s.m.clock()
	s.rec.Status = models.SubmissionCompleted
	s.rec.SubmittedAt = &now
	s.rec.CompletionReason = string(reason)
	s.closed = true
	s.cancelTasksLocked()
	rec := s.rec.Clone()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	err := store.ReplaceSubmission(ctx, s.m.store, rec)
	cancel()
	s.persistMu.Unlock()
	if err != nil {
		log.Error().Err(err).Int64("submissionID", rec.ID).Msg("failed to persist completed submission")
	}

	log.Info().Int64("submissionID", rec.ID).Int("studentID", rec.StudentID).Int("testID", rec.TestID).
		Str("reason", string(reason)).Msg("test submitted")

	switch reason {
	case ReasonLocked:
		s.publish(EventAlert, alertLocked, "")
	case ReasonCheating:
		s.publish(EventAlert, alertCheating, "")
	}
	s.publish(EventNavigate, "", ReviewRoute(rec.ID))

	s.m.remove(s)
	s.m.completed(rec, s.test, reason)
	return true
}

// Stop cancels both tasks without writing anything. The stored record stays
// In Progress and resumable.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancelTasksLocked()
	s.mu.Unlock()
	s.m.remove(s)
	log.Debug().Int64("submissionID", s.rec.ID).Msg("test session stopped")
}

func (s *Session) start() {
	s.mu.Lock()
	locked := s.test.IsLocked
	expired := s.remaining <= 0
	if !s.closed && !locked && !expired {
		s.cancelTick = s.m.sched.Every(s.m.tickEvery, s.tick)
		s.cancelSave = s.m.sched.Every(s.m.saveEvery, s.autosave)
	}
	s.mu.Unlock()

	switch {
	case locked:
		s.Finish(ReasonLocked)
	case expired:
		s.Finish(ReasonTimeout)
	}
}

func (s *Session) tick() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.remaining -= s.m.tickSeconds()
	if s.remaining < 0 {
		s.remaining = 0
	}
	left := s.remaining
	s.mu.Unlock()

	s.m.events.Publish(s.rec.StudentID, Event{
		Type: EventTick, SubmissionID: s.rec.ID, TestID: s.test.ID, Remaining: left,
	})
	if left == 0 {
		s.Finish(ReasonTimeout)
	}
}

func (s *Session) autosave() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	if s.closed || s.rec.Status != models.SubmissionInProgress {
		s.mu.Unlock()
		return
	}
	rec := s.rec.Clone()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	_, err := store.ModifySubmission(ctx, s.m.store, rec.ID, func(cur *models.SubmissionRecord) error {
		if cur.Status == models.SubmissionCompleted {
			return ErrAlreadyCompleted
		}
		*cur = rec
		return nil
	})
	if err != nil {
		log.Debug().Err(err).Int64("submissionID", rec.ID).Msg("autosave skipped")
		if errors.Is(err, ErrAlreadyCompleted) {
			// completed elsewhere; this copy must not resurrect it
			s.Stop()
		}
	}
}

func (s *Session) publish(t EventType, msg, route string) {
	s.m.events.Publish(s.rec.StudentID, Event{
		Type: t, SubmissionID: s.rec.ID, TestID: s.test.ID, Message: msg, Route: route,
	})
}

func (s *Session) cancelTasksLocked() {
	if s.cancelTick != nil {
		s.cancelTick()
		s.cancelTick = nil
	}
	if s.cancelSave != nil {
		s.cancelSave()
		s.cancelSave = nil
	}
}
