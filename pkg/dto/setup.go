package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SetupResponse struct {
	TeamRoomID       uuid.UUID `json:"team_room_id"`
	Deadline         time.Time `json:"deadline"`
	ToolCompleted    bool      `json:"tool_completed"`
	RuleCompleted    bool      `json:"rule_completed"`
	MeetingCompleted bool      `json:"meeting_completed"`
	WorkflowState    string    `json:"workflow_state"`
	Expired          bool      `json:"expired"`
}

// OutcomeResponse carries Outcome only once the subject is confirmed.
type OutcomeResponse struct {
	Confirmed   bool            `json:"confirmed"`
	Outcome     json.RawMessage `json:"outcome,omitempty"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
}

// ErrorResponse is used where a client has to tell conflicts apart by code.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateToolProposalRequest struct {
	Category  string `json:"category"`
	Candidate string `json:"candidate"`
}

type DecideToolProposalRequest struct {
	Approve *bool `json:"approve"`
}

type ToolProposalResponse struct {
	ID         uuid.UUID  `json:"id"`
	Category   string     `json:"category"`
	Candidate  string     `json:"candidate"`
	ProposerID uuid.UUID  `json:"proposer_id"`
	Decision   string     `json:"decision"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type CreateRuleRequest struct {
	Content string `json:"content"`
}

type RuleResponse struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
