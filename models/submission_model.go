package models

import "time"

type SubmissionStatus string

const (
	SubmissionInProgress SubmissionStatus = "In Progress"
	SubmissionCompleted  SubmissionStatus = "Completed"
)

type StudentAnswer struct {
	QuestionID       int     `json:"questionId"`
	AnswerText       *string `json:"answerText,omitempty"`
	SelectedOptionID *int    `json:"selectedOptionId,omitempty"`
}

// TheoryMark is a faculty-assigned score for a Theoretical answer.
type TheoryMark struct {
	QuestionID int    `json:"questionId" validate:"required"`
	Score      int    `json:"score" validate:"gte=0"`
	Feedback   string `json:"feedback,omitempty"`
}

// SubmissionRecord is one student's attempt at one test, stored in the
// studentSubmissions collection.
type SubmissionRecord struct {
	ID               int64            `json:"id"`
	StudentID        int              `json:"studentId"`
	TestID           int              `json:"testId"`
	Answers          []StudentAnswer  `json:"answers"`
	StartTime        time.Time        `json:"startTime"`
	SubmittedAt      *time.Time       `json:"submittedAt,omitempty"`
	Status           SubmissionStatus `json:"status"`
	CompletionReason string           `json:"completionReason,omitempty"`

	TheoryMarks []TheoryMark `json:"theoryMarks,omitempty"`
	GradedBy    *int         `json:"gradedBy,omitempty"`
	GradedAt    *time.Time   `json:"gradedAt,omitempty"`
}

func (s SubmissionRecord) Answer(questionID int) (StudentAnswer, bool) {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return StudentAnswer{}, false
}

func (s SubmissionRecord) Mark(questionID int) (TheoryMark, bool) {
	for _, m := range s.TheoryMarks {
		if m.QuestionID == questionID {
			return m, true
		}
	}
	return TheoryMark{}, false
}

// Clone returns a copy that shares no slices or pointers with s.
func (s SubmissionRecord) Clone() SubmissionRecord {
	out := s
	out.Answers = make([]StudentAnswer, len(s.Answers))
	for i, a := range s.Answers {
		out.Answers[i] = StudentAnswer{QuestionID: a.QuestionID}
		if a.AnswerText != nil {
			v := *a.AnswerText
			out.Answers[i].AnswerText = &v
		}
		if a.SelectedOptionID != nil {
			v := *a.SelectedOptionID
			out.Answers[i].SelectedOptionID = &v
		}
	}
	if s.SubmittedAt != nil {
		v := *s.SubmittedAt
		out.SubmittedAt = &v
	}
	if s.TheoryMarks != nil {
		out.TheoryMarks = append([]TheoryMark(nil), s.TheoryMarks...)
	}
	if s.GradedBy != nil {
		v := *s.GradedBy
		out.GradedBy = &v
	}
	if s.GradedAt != nil {
		v := *s.GradedAt
		out.GradedAt = &v
	}
	return out
}
