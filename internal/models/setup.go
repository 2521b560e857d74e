package models

import (
	"time"

	"github.com/google/uuid"
)

// Subject is one of the independent decision domains of a team's setup.
type Subject string

const (
	SubjectTool    Subject = "tool"
	SubjectRule    Subject = "rule"
	SubjectMeeting Subject = "meeting"
)

// Subjects lists every subject in the order the sweeper attempts them.
var Subjects = []Subject{SubjectTool, SubjectRule, SubjectMeeting}

func ParseSubject(s string) (Subject, bool) {
	for _, subject := range Subjects {
		if string(subject) == s {
			return subject, true
		}
	}
	return "", false
}

// Setup is the onboarding record of one team room: a fixed deadline and one
// completion flag per subject. Flags only ever move false -> true.
type Setup struct {
	TeamRoomID       uuid.UUID `json:"team_room_id"`
	Deadline         time.Time `json:"deadline"`
	ToolCompleted    bool      `json:"tool_completed"`
	RuleCompleted    bool      `json:"rule_completed"`
	MeetingCompleted bool      `json:"meeting_completed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (s *Setup) Completed(subject Subject) bool {
	switch subject {
	case SubjectTool:
		return s.ToolCompleted
	case SubjectRule:
		return s.RuleCompleted
	case SubjectMeeting:
		return s.MeetingCompleted
	}
	return false
}

// MarkCompleted sets the subject's flag. Calling it again is a no-op.
func (s *Setup) MarkCompleted(subject Subject) {
	switch subject {
	case SubjectTool:
		s.ToolCompleted = true
	case SubjectRule:
		s.RuleCompleted = true
	case SubjectMeeting:
		s.MeetingCompleted = true
	}
}

func (s *Setup) IsAllCompleted() bool {
	return s.ToolCompleted && s.RuleCompleted && s.MeetingCompleted
}

func (s *Setup) IsExpired(now time.Time) bool {
	return now.After(s.Deadline)
}

// Incomplete returns the subjects still open, in sweep order.
func (s *Setup) Incomplete() []Subject {
	var open []Subject
	for _, subject := range Subjects {
		if !s.Completed(subject) {
			open = append(open, subject)
		}
	}
	return open
}
