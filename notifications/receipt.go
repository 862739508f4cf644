package notifications

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/session"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var reasonText = map[session.Reason]string{
	session.ReasonManual:   "you submitted it",
	session.ReasonTimeout:  "the time limit was reached",
	session.ReasonLocked:   "your instructor locked the test",
	session.ReasonCheating: "the test window was left during the attempt",
}

func receiptBody(name string, test models.TestDefinition, rec models.SubmissionRecord, reason session.Reason) string {
	submitted := "-"
	if rec.SubmittedAt != nil {
		submitted = rec.SubmittedAt.Format("January 2, 2006 15:04 MST")
	}
	return fmt.Sprintf(
		"<h1>Submission received</h1><p>Hi %s,</p><p>Your attempt at <b>%s</b> (%s) was submitted on %s because %s.</p><p>Reference: #%d</p>",
		html.EscapeString(name), html.EscapeString(test.Title), html.EscapeString(test.Paper),
		submitted, reasonText[reason], rec.ID,
	)
}

// ReceiptHook emails the student a receipt after each completed attempt.
// Sending happens off the completing goroutine.
func ReceiptHook(db *gorm.DB, mail *BrevoService) session.CompletionHook {
	return func(rec models.SubmissionRecord, test models.TestDefinition, reason session.Reason) {
		if mail == nil {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			var student models.User
			if err := db.WithContext(ctx).First(&student, rec.StudentID).Error; err != nil {
				log.Warn().Err(err).Int("studentID", rec.StudentID).Msg("receipt skipped, student not found")
				return
			}
			subject := fmt.Sprintf("Submission received: %s", test.Title)
			if err := mail.Send(ctx, student.FullName, student.Email, subject, receiptBody(student.FullName, test, rec, reason)); err != nil {
				log.Error().Err(err).Int64("submissionID", rec.ID).Msg("🔥 Failed to send submission receipt")
			}
		}()
	}
}
