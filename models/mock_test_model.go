package models

import "time"

type TestStatus string

const (
	TestDraft     TestStatus = "Draft"
	TestPublished TestStatus = "Published"
)

type QuestionType string

const (
	QuestionMCQ         QuestionType = "MCQ"
	QuestionTheoretical QuestionType = "Theoretical"
)

type MCQOption struct {
	ID        int    `json:"id" yaml:"id" validate:"required"`
	Text      string `json:"text" yaml:"text" validate:"required"`
	IsCorrect bool   `json:"isCorrect" yaml:"isCorrect"`
}

type Question struct {
	ID           int          `json:"id" yaml:"id" validate:"required"`
	Type         QuestionType `json:"type" yaml:"type" validate:"required,oneof=MCQ Theoretical"`
	QuestionText string       `json:"questionText" yaml:"questionText" validate:"required"`
	Points       int          `json:"points" yaml:"points" validate:"gte=0"`
	MCQOptions   []MCQOption  `json:"mcqOptions,omitempty" yaml:"mcqOptions,omitempty" validate:"dive"`
}

// TestDefinition is an authored assessment stored in the mockTests collection.
type TestDefinition struct {
	ID                 int        `json:"id" yaml:"id"`
	Title              string     `json:"title" yaml:"title" validate:"required"`
	Paper              string     `json:"paper" yaml:"paper" validate:"required"`
	Status             TestStatus `json:"status" yaml:"status" validate:"required,oneof=Draft Published"`
	DurationMinutes    int        `json:"durationMinutes" yaml:"durationMinutes" validate:"required,gt=0"`
	Questions          []Question `json:"questions" yaml:"questions" validate:"dive"`
	IsLocked           bool       `json:"isLocked" yaml:"isLocked"`
	ScheduledStartTime *time.Time `json:"scheduledStartTime,omitempty" yaml:"scheduledStartTime,omitempty"`
	CreatedBy          int        `json:"createdBy,omitempty" yaml:"createdBy,omitempty"`
}

func (t TestDefinition) Question(id int) (Question, bool) {
	for _, q := range t.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// CorrectOption returns the first option flagged correct.
func (q Question) CorrectOption() (MCQOption, bool) {
	for _, o := range q.MCQOptions {
		if o.IsCorrect {
			return o, true
		}
	}
	return MCQOption{}, false
}

func (q Question) HasOption(id int) bool {
	for _, o := range q.MCQOptions {
		if o.ID == id {
			return true
		}
	}
	return false
}

func (t TestDefinition) TotalPoints() int {
	total := 0
	for _, q := range t.Questions {
		total += q.Points
	}
	return total
}
