package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ConfirmedOutcome is the finalized result of one subject. There is at most one per
// (team room, subject).
type ConfirmedOutcome struct {
	TeamRoomID  uuid.UUID       `json:"team_room_id"`
	Subject     Subject         `json:"subject"`
	Payload     json.RawMessage `json:"payload"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

// ToolCategory is a slot the team has to pick exactly one tool for.
type ToolCategory struct {
	Name       string
	Candidates []string
}

// ToolCatalogue is the default candidate list per category, in tie-break order.
var ToolCatalogue = []ToolCategory{
	{Name: "messenger", Candidates: []string{"Slack", "Discord", "KakaoTalk"}},
	{Name: "docs", Candidates: []string{"Notion", "Google Docs", "Confluence"}},
	{Name: "issue_tracker", Candidates: []string{"Jira", "GitHub Issues", "Linear"}},
}

func LookupToolCategory(name string) (ToolCategory, bool) {
	for _, c := range ToolCatalogue {
		if c.Name == name {
			return c, true
		}
	}
	return ToolCategory{}, false
}

type ConfirmedTool struct {
	Category string `json:"category"`
	Tool     string `json:"tool"`
	Votes    int    `json:"votes"`
}

type ToolOutcome struct {
	Tools []ConfirmedTool `json:"tools"`
}

type ConfirmedRule struct {
	RuleID    uuid.UUID `json:"rule_id"`
	Content   string    `json:"content"`
	Agrees    int       `json:"agrees"`
	Disagrees int       `json:"disagrees"`
}

type RuleOutcome struct {
	Rules []ConfirmedRule `json:"rules"`
}

// TimeSlot is an hour-long weekly slot; Day follows time.Weekday (0 = Sunday).
type TimeSlot struct {
	Day  int `json:"day"`
	Hour int `json:"hour"`
}

func (s TimeSlot) Valid() bool {
	return s.Day >= 0 && s.Day <= 6 && s.Hour >= 0 && s.Hour <= 23
}

// Before orders slots by day, then hour.
func (s TimeSlot) Before(o TimeSlot) bool {
	if s.Day != o.Day {
		return s.Day < o.Day
	}
	return s.Hour < o.Hour
}

// MeetingOutcome describes a confirmed weekly meeting series.
type MeetingOutcome struct {
	Slot            TimeSlot  `json:"slot"`
	DurationMinutes int       `json:"duration_minutes"`
	FirstMeetingAt  time.Time `json:"first_meeting_at"`
	Attendees       int       `json:"attendees"`
}
