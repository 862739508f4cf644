package handlers

import (
	"errors"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/services"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type LockRequest struct {
	IsLocked *bool `json:"isLocked" validate:"required"`
}

type GradeRequest struct {
	Marks []models.TheoryMark `json:"marks" validate:"required,min=1,dive"`
}

type submissionSummary struct {
	models.SubmissionRecord
	Live bool `json:"live"`
}

func (h *Handler) ListMockTests(c *fiber.Ctx) error {
	return c.JSON(store.ListTests(c.UserContext(), h.Store))
}

func (h *Handler) GetMockTest(c *fiber.Ctx) error {
	testID, err := intParam(c, "testId")
	if err != nil {
		return err
	}
	test, ok := store.FindTest(c.UserContext(), h.Store, testID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mock test not found"})
	}
	return c.JSON(test)
}

func (h *Handler) CreateMockTest(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var test models.TestDefinition
	if err := c.BodyParser(&test); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(test); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	test.ID = 0
	test.CreatedBy = p.ID
	saved, err := store.SaveTest(c.UserContext(), h.Store, test)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create mock test"})
	}

	log.Info().Int("testID", saved.ID).Int("facultyID", p.ID).Msg("mock test created")
	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *Handler) UpdateMockTest(c *fiber.Ctx) error {
	testID, err := intParam(c, "testId")
	if err != nil {
		return err
	}
	existing, ok := store.FindTest(c.UserContext(), h.Store, testID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mock test not found"})
	}

	var test models.TestDefinition
	if err := c.BodyParser(&test); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(test); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	test.ID = testID
	test.CreatedBy = existing.CreatedBy
	saved, err := store.SaveTest(c.UserContext(), h.Store, test)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mock test not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update mock test"})
	}
	return c.JSON(saved)
}

func (h *Handler) DeleteMockTest(c *fiber.Ctx) error {
	testID, err := intParam(c, "testId")
	if err != nil {
		return err
	}
	err = store.DeleteTest(c.UserContext(), h.Store, testID)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mock test not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete mock test"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetMockTestLock flips isLocked. Live sessions on a locked test are
// completed by the session manager's store observer.
func (h *Handler) SetMockTestLock(c *fiber.Ctx) error {
	testID, err := intParam(c, "testId")
	if err != nil {
		return err
	}
	var req LockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	test, err := store.SetTestLock(c.UserContext(), h.Store, testID, *req.IsLocked)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mock test not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update lock"})
	}

	log.Info().Int("testID", testID).Bool("locked", test.IsLocked).Msg("mock test lock changed")
	return c.JSON(test)
}

func (h *Handler) ListTestSubmissions(c *fiber.Ctx) error {
	testID, err := intParam(c, "testId")
	if err != nil {
		return err
	}
	subs := store.SubmissionsForTest(c.UserContext(), h.Store, testID)
	out := make([]submissionSummary, 0, len(subs))
	for _, rec := range subs {
		out = append(out, submissionSummary{SubmissionRecord: rec, Live: h.Sessions.Live(rec.ID)})
	}
	return c.JSON(out)
}

func (h *Handler) GradeSubmission(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	submissionID, err := int64Param(c, "submissionId")
	if err != nil {
		return err
	}
	var req GradeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	graded, err := services.GradeSubmission(c.UserContext(), h.Store, submissionID, p, req.Marks, h.Now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Submission not found"})
	case errors.Is(err, services.ErrNotCompleted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Submission is still in progress"})
	case errors.Is(err, services.ErrInvalidMark):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to grade submission"})
	}
	return c.JSON(graded)
}
