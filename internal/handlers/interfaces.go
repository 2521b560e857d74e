package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/dimitrije/teamroom-api/internal/oauth"
	"github.com/dimitrije/teamroom-api/internal/services"
	"github.com/dimitrije/teamroom-api/internal/sse"
	"github.com/google/uuid"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error)
}

// TeamRoomServiceInterface defines the methods used by handlers from TeamRoomService
type TeamRoomServiceInterface interface {
	Create(ctx context.Context, name string, leaderID uuid.UUID) (*models.TeamRoom, error)
	GetByID(ctx context.Context, roomID uuid.UUID) (*models.TeamRoom, error)
	GetUserTeamRooms(ctx context.Context, userID uuid.UUID) ([]models.TeamRoom, []string, error)
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	IsLeader(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	GetMembers(ctx context.Context, roomID uuid.UUID) ([]models.TeamRoomMember, error)
	AddMember(ctx context.Context, roomID, userID uuid.UUID) error
}

// SetupStarterInterface opens the setup window of a team room
type SetupStarterInterface interface {
	Start(ctx context.Context, roomID uuid.UUID) (*models.Setup, error)
}

// CoordinatorInterface defines the methods used by handlers from Coordinator
type CoordinatorInterface interface {
	Submit(ctx context.Context, roomID, memberID uuid.UUID, subject models.Subject, payload json.RawMessage) error
	Advance(ctx context.Context, roomID uuid.UUID, subject models.Subject)
	Setup(ctx context.Context, roomID uuid.UUID) (*models.Setup, error)
	Participation(ctx context.Context, roomID uuid.UUID, subject models.Subject) (*models.Participation, error)
	Outcome(ctx context.Context, roomID uuid.UUID, subject models.Subject) (*models.ConfirmedOutcome, error)
}

// ToolProposalServiceInterface defines the proposal methods of ToolTrack
type ToolProposalServiceInterface interface {
	Propose(ctx context.Context, roomID, memberID uuid.UUID, category, candidate string) (*models.ToolProposal, error)
	DecideProposal(ctx context.Context, roomID, leaderID, proposalID uuid.UUID, approve bool) (*models.ToolProposal, error)
	ListProposals(ctx context.Context, roomID uuid.UUID) ([]models.ToolProposal, error)
}

// RuleServiceInterface defines the candidate methods of RuleTrack
type RuleServiceInterface interface {
	AddRule(ctx context.Context, roomID, leaderID uuid.UUID, content string) (*models.RuleCandidate, error)
	ListRules(ctx context.Context, roomID uuid.UUID) ([]models.RuleCandidate, error)
}

// TokenServiceInterface defines the methods used by handlers from TokenService
type TokenServiceInterface interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

// JWTServiceInterface defines the methods used by handlers from JWTService
type JWTServiceInterface interface {
	GenerateTokenPair(userID uuid.UUID, email string) (*services.TokenPair, error)
	ValidateRefreshToken(token string) (uuid.UUID, error)
	RefreshExpiry() time.Duration
}

// EmailServiceInterface defines the methods used by handlers from EmailService
type EmailServiceInterface interface {
	IsConfigured() bool
	SendAddedToTeamRoom(to, roomName, leaderName string) error
}

// EventHubInterface defines the methods used by handlers from sse.Hub
type EventHubInterface interface {
	Register(client *sse.Client)
	Unregister(client *sse.Client)
}
