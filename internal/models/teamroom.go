package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowState tracks a team room through its onboarding.
type WorkflowState string

const (
	WorkflowPending   WorkflowState = "PENDING"
	WorkflowSetup     WorkflowState = "SETUP"
	WorkflowCompleted WorkflowState = "COMPLETED"
)

// Lifecycle is independent of the workflow state.
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "ACTIVE"
	LifecycleArchived Lifecycle = "ARCHIVED"
)

const (
	RoleLeader = "leader"
	RoleMember = "member"
)

// PreviousState returns the only state a room may enter `to` from.
// ok is false for states that cannot be entered by a transition.
func PreviousState(to WorkflowState) (from WorkflowState, ok bool) {
	switch to {
	case WorkflowSetup:
		return WorkflowPending, true
	case WorkflowCompleted:
		return WorkflowSetup, true
	}
	return "", false
}

// CanTransition reports whether from -> to is a legal workflow step.
func CanTransition(from, to WorkflowState) bool {
	prev, ok := PreviousState(to)
	return ok && prev == from
}

type TeamRoom struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	LeaderID      uuid.UUID     `json:"leader_id"`
	WorkflowState WorkflowState `json:"workflow_state"`
	Lifecycle     Lifecycle     `json:"lifecycle"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type TeamRoomMember struct {
	ID         uuid.UUID `json:"id"`
	TeamRoomID uuid.UUID `json:"team_room_id"`
	UserID     uuid.UUID `json:"user_id"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	User       *User     `json:"user,omitempty"`
}
