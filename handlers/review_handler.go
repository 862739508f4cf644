package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/services"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

func (h *Handler) review(c *fiber.Ctx) (services.Review, error) {
	p, err := principal(c)
	if err != nil {
		return services.Review{}, err
	}
	submissionID, err := int64Param(c, "submissionId")
	if err != nil {
		return services.Review{}, err
	}

	rev, err := services.ReviewSubmission(c.UserContext(), h.Store, p, submissionID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return rev, fiber.NewError(fiber.StatusNotFound, "Submission not found")
	case errors.Is(err, services.ErrForbidden):
		return rev, fiber.NewError(fiber.StatusForbidden, "You cannot review this submission")
	case errors.Is(err, services.ErrNotCompleted):
		return rev, fiber.NewError(fiber.StatusConflict, "This test is still in progress")
	}
	return rev, err
}

func (h *Handler) GetReview(c *fiber.Ctx) error {
	rev, err := h.review(c)
	if err != nil {
		return err
	}
	return c.JSON(rev)
}

// GetResultSheet prints the review to PDF. With Cloudinary configured the
// sheet is uploaded and its URL returned; otherwise the PDF is streamed.
func (h *Handler) GetResultSheet(c *fiber.Ctx) error {
	rev, err := h.review(c)
	if err != nil {
		return err
	}

	var student models.User
	name := fmt.Sprintf("Student #%d", rev.StudentID)
	if err := h.DB.WithContext(c.UserContext()).First(&student, rev.StudentID).Error; err == nil {
		name = student.FullName
	}

	htmlData, err := h.Sheets.RenderHTML(rev, name)
	if err != nil {
		log.Error().Err(err).Int64("submissionID", rev.SubmissionID).Msg("🔥 Failed to render result sheet")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to render result sheet"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 30*time.Second)
	defer cancel()
	pdf, err := h.Sheets.PDF(ctx, htmlData)
	if err != nil {
		log.Error().Err(err).Int64("submissionID", rev.SubmissionID).Msg("🔥 Failed to generate PDF")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate PDF"})
	}

	if h.Sheets.UploadEnabled() {
		url, err := h.Sheets.Upload(ctx, pdf, rev.SubmissionID)
		if err != nil {
			log.Error().Err(err).Int64("submissionID", rev.SubmissionID).Msg("🔥 Failed to upload result sheet")
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to upload result sheet"})
		}
		return c.JSON(fiber.Map{"url": url})
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="result-%d.pdf"`, rev.SubmissionID))
	return c.Send(pdf)
}
