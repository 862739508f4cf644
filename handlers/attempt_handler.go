package handlers

import (
	"errors"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/services"
	"github.com/UnExplainableFish52/reliant-learners-academy/session"
	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/copier"
)

// Student-facing copies of a test. isCorrect never leaves the server while an
// attempt is running.
type StudentOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type StudentQuestion struct {
	ID           int                 `json:"id"`
	Type         models.QuestionType `json:"type"`
	QuestionText string              `json:"questionText"`
	Points       int                 `json:"points"`
	MCQOptions   []StudentOption     `json:"mcqOptions,omitempty"`
}

type StudentTestView struct {
	ID                 int               `json:"id"`
	Title              string            `json:"title"`
	Paper              string            `json:"paper"`
	DurationMinutes    int               `json:"durationMinutes"`
	ScheduledStartTime *time.Time        `json:"scheduledStartTime,omitempty"`
	Questions          []StudentQuestion `json:"questions"`
}

type SessionResponse struct {
	SubmissionID int64                  `json:"submissionId"`
	Status       models.SubmissionStatus `json:"status"`
	StartTime    time.Time              `json:"startTime"`
	Remaining    int                    `json:"remaining"`
	Index        int                    `json:"index"`
	Answers      []models.StudentAnswer `json:"answers"`
	Test         StudentTestView        `json:"test"`
}

type NavigateRequest struct {
	Action string `json:"action" validate:"required,oneof=next previous goto"`
	Index  int    `json:"index" validate:"gte=0"`
}

type FinishRequest struct {
	Confirmed bool `json:"confirmed"`
}

type ViolationRequest struct {
	Kind string `json:"kind" validate:"required,max=64"`
}

func studentView(test models.TestDefinition) (StudentTestView, error) {
	var view StudentTestView
	if err := copier.Copy(&view, &test); err != nil {
		return StudentTestView{}, err
	}
	if view.Questions == nil {
		view.Questions = []StudentQuestion{}
	}
	return view, nil
}

func sessionResponse(s *session.Session) (SessionResponse, error) {
	view, err := studentView(s.Test())
	if err != nil {
		return SessionResponse{}, err
	}
	st := s.Snapshot()
	return SessionResponse{
		SubmissionID: st.Submission.ID,
		Status:       st.Submission.Status,
		StartTime:    st.Submission.StartTime,
		Remaining:    st.Remaining,
		Index:        st.Index,
		Answers:      st.Submission.Answers,
		Test:         view,
	}, nil
}

func (h *Handler) ListAvailableTests(c *fiber.Ctx) error {
	p, err := h.enrolled(c)
	if err != nil {
		return err
	}
	tests := services.ListAvailableTests(c.UserContext(), h.Store, p, h.Now())
	out := make([]StudentTestView, 0, len(tests))
	for _, t := range tests {
		view, err := studentView(t)
		if err != nil {
			return err
		}
		view.Questions = nil
		out = append(out, view)
	}
	return c.JSON(out)
}

// StartTest looks up or creates the attempt and hands it straight to the
// session manager.
func (h *Handler) StartTest(c *fiber.Ctx) error {
	p, err := h.enrolled(c)
	if err != nil {
		return err
	}
	testID, err := intParam(c, "testId")
	if err != nil {
		return err
	}

	rec, _, err := services.StartAttempt(c.UserContext(), h.Store, p, testID, h.Now())
	if errors.Is(err, services.ErrTestUnavailable) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This test is not available to you", "redirect": session.RouteTestList})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to start test"})
	}

	s, err := h.Sessions.Bootstrap(c.UserContext(), p, testID, &rec)
	if err != nil {
		return sessionError(c, err)
	}
	return h.respondSession(c, s)
}

func (h *Handler) GetTestSession(c *fiber.Ctx) error {
	s, err := h.attach(c)
	if err != nil {
		return sessionError(c, err)
	}
	return h.respondSession(c, s)
}

func (h *Handler) SaveAnswer(c *fiber.Ctx) error {
	questionID, err := intParam(c, "questionId")
	if err != nil {
		return err
	}
	var patch session.AnswerPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if patch.AnswerText == nil && patch.SelectedOptionID == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "answerText or selectedOptionId is required"})
	}

	s, err := h.attach(c)
	if err != nil {
		return sessionError(c, err)
	}
	if err := s.SetAnswer(questionID, patch); err != nil {
		return sessionError(c, err)
	}
	a, _ := s.Snapshot().Submission.Answer(questionID)
	return c.JSON(a)
}

func (h *Handler) Navigate(c *fiber.Ctx) error {
	var req NavigateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s, err := h.attach(c)
	if err != nil {
		return sessionError(c, err)
	}
	var index int
	switch req.Action {
	case "next":
		index = s.Next()
	case "previous":
		index = s.Previous()
	default:
		if index, err = s.Goto(req.Index); err != nil {
			return sessionError(c, err)
		}
	}
	return c.JSON(fiber.Map{"index": index})
}

func (h *Handler) FinishTest(c *fiber.Ctx) error {
	var req FinishRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	s, err := h.attach(c)
	if err != nil {
		return sessionError(c, err)
	}
	if err := s.Submit(req.Confirmed); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(fiber.Map{"redirect": session.ReviewRoute(s.ID())})
}

func (h *Handler) ReportViolation(c *fiber.Ctx) error {
	var req ViolationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s, err := h.attach(c)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(violationResponse(s.ReportCheating(req.Kind), s.ID()))
}

// violationResponse only blames the violation when it was what completed
// the attempt.
func violationResponse(submitted bool, submissionID int64) fiber.Map {
	if !submitted {
		return fiber.Map{"redirect": session.ReviewRoute(submissionID)}
	}
	return fiber.Map{
		"error":    "Leaving the test window is not allowed. Your test has been submitted automatically.",
		"redirect": session.ReviewRoute(submissionID),
	}
}

func (h *Handler) LeaveTest(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	testID, err := intParam(c, "testId")
	if err != nil {
		return err
	}
	h.Sessions.Detach(p.ID, testID)
	return c.SendStatus(fiber.StatusNoContent)
}

// attach resumes or joins the caller's session for :testId.
func (h *Handler) attach(c *fiber.Ctx) (*session.Session, error) {
	p, err := principal(c)
	if err != nil {
		return nil, err
	}
	testID, err := intParam(c, "testId")
	if err != nil {
		return nil, err
	}
	return h.Sessions.Bootstrap(c.UserContext(), p, testID, nil)
}

func (h *Handler) respondSession(c *fiber.Ctx, s *session.Session) error {
	if !s.Active() {
		// completed during bootstrap (locked or out of time)
		return redirect(c, &session.RedirectError{Route: session.ReviewRoute(s.ID())})
	}
	resp, err := sessionResponse(s)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
