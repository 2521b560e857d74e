package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Vote is one ledger row. Bulk subjects keep a single row per member with an
// empty ItemKey; per-item subjects keep one row per (member, item).
type Vote struct {
	ID         uuid.UUID       `json:"id"`
	Subject    Subject         `json:"subject"`
	TeamRoomID uuid.UUID       `json:"team_room_id"`
	MemberID   uuid.UUID       `json:"member_id"`
	ItemKey    string          `json:"item_key,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type ProposalDecision string

const (
	ProposalPending  ProposalDecision = "PENDING"
	ProposalApproved ProposalDecision = "APPROVED"
	ProposalRejected ProposalDecision = "REJECTED"
)

type ToolProposal struct {
	ID         uuid.UUID        `json:"id"`
	TeamRoomID uuid.UUID        `json:"team_room_id"`
	Category   string           `json:"category"`
	Candidate  string           `json:"candidate"`
	ProposerID uuid.UUID        `json:"proposer_id"`
	Decision   ProposalDecision `json:"decision"`
	DecidedAt  *time.Time       `json:"decided_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

type RuleCandidate struct {
	ID         uuid.UUID `json:"id"`
	TeamRoomID uuid.UUID `json:"team_room_id"`
	Content    string    `json:"content"`
	CreatedBy  uuid.UUID `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type Participant struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
}

// Participation partitions a room's members by whether they have voted on a subject.
type Participation struct {
	Total      int           `json:"total"`
	VotedCount int           `json:"voted_count"`
	Voted      []Participant `json:"voted_members"`
	NotVoted   []Participant `json:"not_voted_members"`
}

// Everyone reports whether every member has voted. An empty room never qualifies.
func (p *Participation) Everyone() bool {
	return p.Total > 0 && p.VotedCount == p.Total
}
