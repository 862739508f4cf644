package routes

import (
	"github.com/UnExplainableFish52/reliant-learners-academy/handlers"
	"github.com/UnExplainableFish52/reliant-learners-academy/middleware"
	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/gofiber/fiber/v2"
)

func ExamRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")
	protected := middleware.Protected(h.Config.JWTSecret)

	faculty := api.Group("/faculty", protected, middleware.RoleRequired(models.RoleFaculty, models.RoleAdmin))

	tests := faculty.Group("/tests")
	tests.Get("", h.ListMockTests)
	tests.Post("", h.CreateMockTest)
	tests.Get("/:testId", h.GetMockTest)
	tests.Put("/:testId", h.UpdateMockTest)
	tests.Delete("/:testId", h.DeleteMockTest)
	tests.Patch("/:testId/lock", h.SetMockTestLock)
	tests.Get("/:testId/submissions", h.ListTestSubmissions)

	faculty.Post("/submissions/:submissionId/grades", h.GradeSubmission)

	student := api.Group("/student/tests", protected, middleware.RoleRequired(models.RoleStudent))
	student.Get("", h.ListAvailableTests)
	student.Post("/:testId/start", h.StartTest)
	student.Get("/:testId/session", h.GetTestSession)
	student.Put("/:testId/answers/:questionId", h.SaveAnswer)
	student.Post("/:testId/navigate", h.Navigate)
	student.Post("/:testId/finish", h.FinishTest)
	student.Post("/:testId/violations", h.ReportViolation)
	student.Post("/:testId/leave", h.LeaveTest)

	review := api.Group("/review-test", protected)
	review.Get("/:submissionId", h.GetReview)
	review.Get("/:submissionId/result-sheet", h.GetResultSheet)
}
