package handlers

import (
	"errors"
	"strconv"
	"time"

	config "github.com/UnExplainableFish52/reliant-learners-academy/configs"
	"github.com/UnExplainableFish52/reliant-learners-academy/middleware"
	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/services"
	"github.com/UnExplainableFish52/reliant-learners-academy/session"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
	"github.com/UnExplainableFish52/reliant-learners-academy/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var validate = newValidator()

// Handler carries the dependencies every route needs.
type Handler struct {
	DB       *gorm.DB
	Store    *store.Store
	Sessions *session.Manager
	Hub      *websocket.Hub
	Sheets   *services.ResultSheets
	Config   config.Settings
	Now      func() time.Time
}

func New(db *gorm.DB, st *store.Store, mgr *session.Manager, hub *websocket.Hub, sheets *services.ResultSheets, cfg config.Settings) *Handler {
	return &Handler{DB: db, Store: st, Sessions: mgr, Hub: hub, Sheets: sheets, Config: cfg, Now: time.Now}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(questionRules, models.Question{})
	v.RegisterStructValidation(testRules, models.TestDefinition{})
	return v
}

// questionRules: MCQ needs two or more options with exactly one correct;
// theoretical questions carry no options.
func questionRules(sl validator.StructLevel) {
	q := sl.Current().Interface().(models.Question)
	switch q.Type {
	case models.QuestionMCQ:
		if len(q.MCQOptions) < 2 {
			sl.ReportError(q.MCQOptions, "MCQOptions", "mcqOptions", "min_options", "2")
		}
		correct := 0
		seen := map[int]bool{}
		for _, o := range q.MCQOptions {
			if o.IsCorrect {
				correct++
			}
			if seen[o.ID] {
				sl.ReportError(q.MCQOptions, "MCQOptions", "mcqOptions", "unique_option_ids", "")
			}
			seen[o.ID] = true
		}
		if correct != 1 {
			sl.ReportError(q.MCQOptions, "MCQOptions", "mcqOptions", "one_correct", "")
		}
	case models.QuestionTheoretical:
		if len(q.MCQOptions) > 0 {
			sl.ReportError(q.MCQOptions, "MCQOptions", "mcqOptions", "no_options", "")
		}
	}
}

func testRules(sl validator.StructLevel) {
	t := sl.Current().Interface().(models.TestDefinition)
	seen := map[int]bool{}
	for _, q := range t.Questions {
		if seen[q.ID] {
			sl.ReportError(t.Questions, "Questions", "questions", "unique_question_ids", "")
			return
		}
		seen[q.ID] = true
	}
}

func principal(c *fiber.Ctx) (models.Principal, error) {
	p, err := middleware.CurrentPrincipal(c)
	if err != nil {
		return p, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}
	return p, nil
}

// enrolled is principal with papers read from the users table, since
// enrollment can change while a token is still valid.
func (h *Handler) enrolled(c *fiber.Ctx) (models.Principal, error) {
	p, err := principal(c)
	if err != nil {
		return p, err
	}
	var user models.User
	if err := h.DB.WithContext(c.UserContext()).First(&user, p.ID).Error; err != nil {
		return p, fiber.NewError(fiber.StatusUnauthorized, "Account not found")
	}
	if !user.IsActive {
		return p, fiber.NewError(fiber.StatusForbidden, "Account is inactive")
	}
	p.Papers = user.Papers
	return p, nil
}

func intParam(c *fiber.Ctx, name string) (int, error) {
	v, err := strconv.Atoi(c.Params(name))
	if err != nil || v <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return v, nil
}

func int64Param(c *fiber.Ctx, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return v, nil
}

// ErrorHandler renders errors that escape a handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("request failed")
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  "error",
		"code":    code,
		"message": err.Error(),
	})
}

// redirect renders a session redirect as {"error", "redirect"}.
func redirect(c *fiber.Ctx, re *session.RedirectError) error {
	msg := re.Alert
	if msg == "" {
		msg = "This test has already been submitted."
	}
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": msg, "redirect": re.Route})
}

func sessionError(c *fiber.Ctx, err error) error {
	var (
		re *session.RedirectError
		fe *fiber.Error
	)
	switch {
	case errors.As(err, &fe):
		return err
	case errors.As(err, &re):
		return redirect(c, re)
	case errors.Is(err, session.ErrClosed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "This test is no longer in progress"})
	case errors.Is(err, session.ErrUnknownQuestion), errors.Is(err, session.ErrUnknownOption),
		errors.Is(err, session.ErrIndexOutOfRange), errors.Is(err, session.ErrConfirmationRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Unexpected session error"})
}
