package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateTeamRoomRequest struct {
	Name string `json:"name"`
}

type AddMemberRequest struct {
	Email string `json:"email"`
}

type TeamRoomResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	LeaderID      uuid.UUID `json:"leader_id"`
	WorkflowState string    `json:"workflow_state"`
	Lifecycle     string    `json:"lifecycle"`
	Role          string    `json:"role,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type TeamRoomMemberResponse struct {
	ID     uuid.UUID     `json:"id"`
	UserID uuid.UUID     `json:"user_id"`
	Role   string        `json:"role"`
	User   *UserResponse `json:"user,omitempty"`
}
