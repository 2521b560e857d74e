package testutil

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/dimitrije/teamroom-api/internal/oauth"
	"github.com/dimitrije/teamroom-api/internal/services"
	"github.com/dimitrije/teamroom-api/internal/sse"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserService mocks the UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.User, error) {
	args := m.Called(ctx, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockTeamRoomService mocks the TeamRoomService
type MockTeamRoomService struct {
	mock.Mock
}

func (m *MockTeamRoomService) Create(ctx context.Context, name string, leaderID uuid.UUID) (*models.TeamRoom, error) {
	args := m.Called(ctx, name, leaderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TeamRoom), args.Error(1)
}

func (m *MockTeamRoomService) GetByID(ctx context.Context, roomID uuid.UUID) (*models.TeamRoom, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TeamRoom), args.Error(1)
}

func (m *MockTeamRoomService) GetUserTeamRooms(ctx context.Context, userID uuid.UUID) ([]models.TeamRoom, []string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.TeamRoom), args.Get(1).([]string), args.Error(2)
}

func (m *MockTeamRoomService) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTeamRoomService) IsLeader(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTeamRoomService) GetMembers(ctx context.Context, roomID uuid.UUID) ([]models.TeamRoomMember, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]models.TeamRoomMember), args.Error(1)
}

func (m *MockTeamRoomService) AddMember(ctx context.Context, roomID, userID uuid.UUID) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

// MockSetupStarter mocks SetupService.Start
type MockSetupStarter struct {
	mock.Mock
}

func (m *MockSetupStarter) Start(ctx context.Context, roomID uuid.UUID) (*models.Setup, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Setup), args.Error(1)
}

// MockCoordinator mocks the Coordinator
type MockCoordinator struct {
	mock.Mock
}

func (m *MockCoordinator) Submit(ctx context.Context, roomID, memberID uuid.UUID, subject models.Subject, payload json.RawMessage) error {
	args := m.Called(ctx, roomID, memberID, subject, payload)
	return args.Error(0)
}

func (m *MockCoordinator) Advance(ctx context.Context, roomID uuid.UUID, subject models.Subject) {
	m.Called(ctx, roomID, subject)
}

func (m *MockCoordinator) Setup(ctx context.Context, roomID uuid.UUID) (*models.Setup, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Setup), args.Error(1)
}

func (m *MockCoordinator) Participation(ctx context.Context, roomID uuid.UUID, subject models.Subject) (*models.Participation, error) {
	args := m.Called(ctx, roomID, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Participation), args.Error(1)
}

func (m *MockCoordinator) Outcome(ctx context.Context, roomID uuid.UUID, subject models.Subject) (*models.ConfirmedOutcome, error) {
	args := m.Called(ctx, roomID, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConfirmedOutcome), args.Error(1)
}

// MockToolProposalService mocks the proposal side of ToolTrack
type MockToolProposalService struct {
	mock.Mock
}

func (m *MockToolProposalService) Propose(ctx context.Context, roomID, memberID uuid.UUID, category, candidate string) (*models.ToolProposal, error) {
	args := m.Called(ctx, roomID, memberID, category, candidate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ToolProposal), args.Error(1)
}

func (m *MockToolProposalService) DecideProposal(ctx context.Context, roomID, leaderID, proposalID uuid.UUID, approve bool) (*models.ToolProposal, error) {
	args := m.Called(ctx, roomID, leaderID, proposalID, approve)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ToolProposal), args.Error(1)
}

func (m *MockToolProposalService) ListProposals(ctx context.Context, roomID uuid.UUID) ([]models.ToolProposal, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]models.ToolProposal), args.Error(1)
}

// MockRuleService mocks the candidate side of RuleTrack
type MockRuleService struct {
	mock.Mock
}

func (m *MockRuleService) AddRule(ctx context.Context, roomID, leaderID uuid.UUID, content string) (*models.RuleCandidate, error) {
	args := m.Called(ctx, roomID, leaderID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RuleCandidate), args.Error(1)
}

func (m *MockRuleService) ListRules(ctx context.Context, roomID uuid.UUID) ([]models.RuleCandidate, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]models.RuleCandidate), args.Error(1)
}

// MockTokenService mocks the TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockTokenService) ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTokenService) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

// MockJWTService mocks the JWTService
type MockJWTService struct {
	mock.Mock
}

func (m *MockJWTService) GenerateTokenPair(userID uuid.UUID, email string) (*services.TokenPair, error) {
	args := m.Called(userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenPair), args.Error(1)
}

func (m *MockJWTService) ValidateRefreshToken(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockJWTService) RefreshExpiry() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

// MockEmailService mocks the EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockEmailService) SendAddedToTeamRoom(to, roomName, leaderName string) error {
	args := m.Called(to, roomName, leaderName)
	return args.Error(0)
}

// MockOAuthProvider mocks an OAuth provider
type MockOAuthProvider struct {
	mock.Mock
}

func (m *MockOAuthProvider) GetConsentURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*oauth.UserInfo, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth.UserInfo), args.Error(1)
}

func (m *MockOAuthProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

// MockEventHub mocks the sse.Hub
type MockEventHub struct {
	mock.Mock
}

func (m *MockEventHub) Register(client *sse.Client) {
	m.Called(client)
}

func (m *MockEventHub) Unregister(client *sse.Client) {
	m.Called(client)
}
