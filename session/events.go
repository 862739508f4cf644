package session

type EventType string

const (
	EventTick     EventType = "tick"
	EventAlert    EventType = "alert"
	EventNavigate EventType = "navigate"
)

// Event is pushed to every connection the student has open.
type Event struct {
	Type         EventType `json:"type"`
	SubmissionID int64     `json:"submissionId"`
	TestID       int       `json:"testId"`
	Remaining    int       `json:"remaining"`
	Message      string    `json:"message,omitempty"`
	Route        string    `json:"route,omitempty"`
}

type Events interface {
	Publish(studentID int, ev Event)
}

type discardEvents struct{}

func (discardEvents) Publish(int, Event) {}
