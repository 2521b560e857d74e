package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dimitrije/teamroom-api/internal/database"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/dimitrije/teamroom-api/internal/oauth"
	"github.com/google/uuid"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateUser creates a test user with default values
func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	user := &models.User{
		Email:      fmt.Sprintf("user%d@example.com", f.counter),
		Name:       fmt.Sprintf("Test User %d", f.counter),
		Provider:   "github",
		ProviderID: fmt.Sprintf("provider-%d", f.counter),
	}

	for _, opt := range opts {
		opt(user)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, avatar_url, provider, provider_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, email, name, avatar_url, provider, provider_id, created_at, updated_at
	`, user.Email, user.Name, user.AvatarURL, user.Provider, user.ProviderID).Scan(
		&user.ID, &user.Email, &user.Name, &user.AvatarURL,
		&user.Provider, &user.ProviderID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

// UserOption configures a test user
type UserOption func(*models.User)

// WithEmail sets the user's email
func WithEmail(email string) UserOption {
	return func(u *models.User) {
		u.Email = email
	}
}

// WithName sets the user's name
func WithName(name string) UserOption {
	return func(u *models.User) {
		u.Name = name
	}
}

// WithProvider sets the user's OAuth provider
func WithProvider(provider, providerID string) UserOption {
	return func(u *models.User) {
		u.Provider = provider
		u.ProviderID = providerID
	}
}

// WithAvatar sets the user's avatar URL
func WithAvatar(url string) UserOption {
	return func(u *models.User) {
		u.AvatarURL = &url
	}
}

// CreateTeamRoom creates a PENDING team room led by leader, who is also its
// first member.
func (f *Fixtures) CreateTeamRoom(t *testing.T, leader *models.User, opts ...TeamRoomOption) *models.TeamRoom {
	t.Helper()
	f.counter++

	room := &models.TeamRoom{
		Name:          fmt.Sprintf("Team Room %d", f.counter),
		LeaderID:      leader.ID,
		WorkflowState: models.WorkflowPending,
		Lifecycle:     models.LifecycleActive,
	}

	for _, opt := range opts {
		opt(room)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO team_rooms (name, leader_id, workflow_state, lifecycle)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, room.Name, room.LeaderID, room.WorkflowState, room.Lifecycle).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create team room: %v", err)
	}

	f.addMember(t, room, leader, models.RoleLeader)
	return room
}

// TeamRoomOption configures a test team room
type TeamRoomOption func(*models.TeamRoom)

// WithTeamRoomName sets the room name
func WithTeamRoomName(name string) TeamRoomOption {
	return func(r *models.TeamRoom) {
		r.Name = name
	}
}

// WithWorkflowState starts the room in the given state
func WithWorkflowState(state models.WorkflowState) TeamRoomOption {
	return func(r *models.TeamRoom) {
		r.WorkflowState = state
	}
}

// AddMember adds user to room as a regular member
func (f *Fixtures) AddMember(t *testing.T, room *models.TeamRoom, user *models.User) {
	t.Helper()
	f.addMember(t, room, user, models.RoleMember)
}

func (f *Fixtures) addMember(t *testing.T, room *models.TeamRoom, user *models.User, role string) {
	t.Helper()
	_, err := f.db.Pool.Exec(context.Background(), `
		INSERT INTO team_room_members (team_room_id, user_id, role)
		VALUES ($1, $2, $3)
	`, room.ID, user.ID, role)
	if err != nil {
		t.Fatalf("failed to add team room member: %v", err)
	}
}

// CreateRuleCandidate adds a rule for members to vote on
func (f *Fixtures) CreateRuleCandidate(t *testing.T, room *models.TeamRoom, content string) *models.RuleCandidate {
	t.Helper()
	rule := &models.RuleCandidate{TeamRoomID: room.ID, Content: content, CreatedBy: room.LeaderID}
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO rule_candidates (team_room_id, content, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, rule.TeamRoomID, rule.Content, rule.CreatedBy).Scan(&rule.ID, &rule.CreatedAt)
	if err != nil {
		t.Fatalf("failed to create rule candidate: %v", err)
	}
	return rule
}

// CreateRefreshToken creates a test refresh token
func (f *Fixtures) CreateRefreshToken(t *testing.T, userID uuid.UUID, tokenHash string, expiresAt time.Time) {
	t.Helper()
	ctx := context.Background()

	_, err := f.db.Pool.Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, tokenHash, expiresAt)
	if err != nil {
		t.Fatalf("failed to create refresh token: %v", err)
	}
}

// OAuthUserInfo creates test OAuth user info
func OAuthUserInfo(email, name, provider, id string) *oauth.UserInfo {
	return &oauth.UserInfo{
		Email:     email,
		Name:      name,
		AvatarURL: "https://example.com/avatar.png",
		ID:        id,
		Provider:  provider,
	}
}
