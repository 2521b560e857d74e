package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockTrack struct {
	mock.Mock
	subject models.Subject
}

func (m *mockTrack) Subject() models.Subject { return m.subject }

func (m *mockTrack) Submit(ctx context.Context, roomID, memberID uuid.UUID, payload json.RawMessage) error {
	return m.Called(ctx, roomID, memberID, payload).Error(0)
}

func (m *mockTrack) Ready(ctx context.Context, roomID uuid.UUID) (bool, error) {
	args := m.Called(ctx, roomID)
	return args.Bool(0), args.Error(1)
}

func (m *mockTrack) Confirm(ctx context.Context, roomID uuid.UUID) error {
	return m.Called(ctx, roomID).Error(0)
}

func (m *mockTrack) Participation(ctx context.Context, roomID uuid.UUID) (*models.Participation, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Participation), args.Error(1)
}

type mockSetupStore struct {
	mock.Mock
}

func (m *mockSetupStore) Get(ctx context.Context, roomID uuid.UUID) (*models.Setup, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Setup), args.Error(1)
}

func (m *mockSetupStore) MarkCompleted(ctx context.Context, roomID uuid.UUID, subject models.Subject) error {
	return m.Called(ctx, roomID, subject).Error(0)
}

func (m *mockSetupStore) ListExpiredIncomplete(ctx context.Context, now time.Time) ([]models.Setup, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]models.Setup), args.Error(1)
}

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) CompleteSetup(ctx context.Context, roomID uuid.UUID) error {
	return m.Called(ctx, roomID).Error(0)
}

type mockOutcomeReader struct {
	mock.Mock
}

func (m *mockOutcomeReader) Get(ctx context.Context, roomID uuid.UUID, subject models.Subject) (*models.ConfirmedOutcome, error) {
	args := m.Called(ctx, roomID, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConfirmedOutcome), args.Error(1)
}

type coordinatorFixture struct {
	tools    *mockTrack
	rules    *mockTrack
	meetings *mockTrack
	setups   *mockSetupStore
	gate     *mockCompleter
	outcomes *mockOutcomeReader
	c        *Coordinator
}

func newCoordinatorFixture() *coordinatorFixture {
	f := &coordinatorFixture{
		tools:    &mockTrack{subject: models.SubjectTool},
		rules:    &mockTrack{subject: models.SubjectRule},
		meetings: &mockTrack{subject: models.SubjectMeeting},
		setups:   &mockSetupStore{},
		gate:     &mockCompleter{},
		outcomes: &mockOutcomeReader{},
	}
	f.c = NewCoordinator(f.setups, f.gate, f.outcomes, zap.NewNop(), f.tools, f.rules, f.meetings)
	return f
}

func TestCoordinator_Submit_NotReady(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	roomID, memberID := uuid.New(), uuid.New()
	payload := json.RawMessage(`{}`)

	f.setups.On("Get", ctx, roomID).Return(&models.Setup{TeamRoomID: roomID}, nil).Once()
	f.meetings.On("Submit", ctx, roomID, memberID, payload).Return(nil).Once()
	f.meetings.On("Ready", ctx, roomID).Return(false, nil).Once()

	err := f.c.Submit(ctx, roomID, memberID, models.SubjectMeeting, payload)

	assert.NoError(t, err)
	f.meetings.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
	f.meetings.AssertExpectations(t)
}

func TestCoordinator_Submit_LastVoteCompletesSetup(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	roomID, memberID := uuid.New(), uuid.New()
	payload := json.RawMessage(`{}`)
	open := &models.Setup{TeamRoomID: roomID, ToolCompleted: true, RuleCompleted: true}
	done := &models.Setup{TeamRoomID: roomID, ToolCompleted: true, RuleCompleted: true, MeetingCompleted: true}

	f.setups.On("Get", ctx, roomID).Return(open, nil).Once()
	f.meetings.On("Submit", ctx, roomID, memberID, payload).Return(nil).Once()
	f.meetings.On("Ready", ctx, roomID).Return(true, nil).Once()
	f.meetings.On("Confirm", ctx, roomID).Return(nil).Once()
	f.setups.On("MarkCompleted", ctx, roomID, models.SubjectMeeting).Return(nil).Once()
	f.setups.On("Get", ctx, roomID).Return(done, nil).Once()
	f.gate.On("CompleteSetup", ctx, roomID).Return(nil).Once()

	err := f.c.Submit(ctx, roomID, memberID, models.SubjectMeeting, payload)

	assert.NoError(t, err)
	f.meetings.AssertExpectations(t)
	f.setups.AssertExpectations(t)
	f.gate.AssertExpectations(t)
}

func TestCoordinator_Submit_ConfirmFailureIsNotSurfaced(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	roomID, memberID := uuid.New(), uuid.New()
	payload := json.RawMessage(`{}`)

	f.setups.On("Get", ctx, roomID).Return(&models.Setup{TeamRoomID: roomID}, nil).Once()
	f.tools.On("Submit", ctx, roomID, memberID, payload).Return(nil).Once()
	f.tools.On("Ready", ctx, roomID).Return(true, nil).Once()
	f.tools.On("Confirm", ctx, roomID).Return(ErrUnresolvedProposals).Once()

	err := f.c.Submit(ctx, roomID, memberID, models.SubjectTool, payload)

	assert.NoError(t, err)
	f.setups.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
	f.tools.AssertExpectations(t)
}

func TestCoordinator_Submit_Rejections(t *testing.T) {
	ctx := context.Background()
	roomID, memberID := uuid.New(), uuid.New()

	t.Run("unknown subject", func(t *testing.T) {
		f := newCoordinatorFixture()
		err := f.c.Submit(ctx, roomID, memberID, models.Subject("budget"), nil)
		assert.ErrorIs(t, err, ErrUnknownSubject)
	})

	t.Run("setup not started", func(t *testing.T) {
		f := newCoordinatorFixture()
		f.setups.On("Get", ctx, roomID).Return(nil, ErrSetupNotFound).Once()

		err := f.c.Submit(ctx, roomID, memberID, models.SubjectRule, nil)
		assert.ErrorIs(t, err, ErrSetupNotFound)
	})

	t.Run("track rejects", func(t *testing.T) {
		f := newCoordinatorFixture()
		f.setups.On("Get", ctx, roomID).Return(&models.Setup{}, nil).Once()
		f.rules.On("Submit", ctx, roomID, memberID, json.RawMessage(nil)).Return(ErrAlreadyConfirmed).Once()

		err := f.c.Submit(ctx, roomID, memberID, models.SubjectRule, nil)
		assert.ErrorIs(t, err, ErrAlreadyConfirmed)
		f.rules.AssertNotCalled(t, "Ready", mock.Anything, mock.Anything)
	})
}

func TestCoordinator_ConfirmSubject(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	roomID := uuid.New()

	f.rules.On("Confirm", ctx, roomID).Return(nil).Once()
	f.setups.On("MarkCompleted", ctx, roomID, models.SubjectRule).Return(nil).Once()

	require.NoError(t, f.c.ConfirmSubject(ctx, roomID, models.SubjectRule))
	f.setups.AssertExpectations(t)
}

func TestCoordinator_ConfirmSubject_FailureLeavesFlag(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	roomID := uuid.New()

	f.meetings.On("Confirm", ctx, roomID).Return(ErrNoEligibleCandidates).Once()

	err := f.c.ConfirmSubject(ctx, roomID, models.SubjectMeeting)

	assert.ErrorIs(t, err, ErrNoEligibleCandidates)
	f.setups.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
}

func TestCoordinator_CompleteIfReady(t *testing.T) {
	ctx := context.Background()
	roomID := uuid.New()

	t.Run("open subject", func(t *testing.T) {
		f := newCoordinatorFixture()
		f.setups.On("Get", ctx, roomID).Return(&models.Setup{ToolCompleted: true}, nil).Once()

		done, err := f.c.CompleteIfReady(ctx, roomID)
		require.NoError(t, err)
		assert.False(t, done)
		f.gate.AssertNotCalled(t, "CompleteSetup", mock.Anything, mock.Anything)
	})

	t.Run("gate fails", func(t *testing.T) {
		f := newCoordinatorFixture()
		f.setups.On("Get", ctx, roomID).
			Return(&models.Setup{ToolCompleted: true, RuleCompleted: true, MeetingCompleted: true}, nil).Once()
		f.gate.On("CompleteSetup", ctx, roomID).Return(errors.New("timeout")).Once()

		done, err := f.c.CompleteIfReady(ctx, roomID)
		assert.Error(t, err)
		assert.False(t, done)
	})
}

func TestCoordinator_Outcome(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()
	roomID := uuid.New()

	f.outcomes.On("Get", ctx, roomID, models.SubjectTool).Return(nil, ErrOutcomeNotFound).Once()

	_, err := f.c.Outcome(ctx, roomID, models.SubjectTool)
	assert.ErrorIs(t, err, ErrOutcomeNotFound)

	_, err = f.c.Outcome(ctx, roomID, models.Subject("budget"))
	assert.ErrorIs(t, err, ErrUnknownSubject)
}

type mockProgress struct {
	mock.Mock
}

func (m *mockProgress) SubjectConfirmed(roomID uuid.UUID, subject models.Subject) {
	m.Called(roomID, subject)
}

func (m *mockProgress) SetupCompleted(roomID uuid.UUID) {
	m.Called(roomID)
}

func TestCoordinator_PublishesProgress(t *testing.T) {
	f := newCoordinatorFixture()
	progress := &mockProgress{}
	f.c.PublishProgress(progress)
	ctx := context.Background()
	roomID := uuid.New()

	f.rules.On("Confirm", ctx, roomID).Return(nil).Once()
	f.setups.On("MarkCompleted", ctx, roomID, models.SubjectRule).Return(nil).Once()
	f.gate.On("CompleteSetup", ctx, roomID).Return(nil).Once()
	progress.On("SubjectConfirmed", roomID, models.SubjectRule).Once()
	progress.On("SetupCompleted", roomID).Once()

	require.NoError(t, f.c.ConfirmSubject(ctx, roomID, models.SubjectRule))
	require.NoError(t, f.c.CompleteSetup(ctx, roomID))

	progress.AssertExpectations(t)
}

func TestCoordinator_NoProgressOnFailure(t *testing.T) {
	f := newCoordinatorFixture()
	progress := &mockProgress{}
	f.c.PublishProgress(progress)
	ctx := context.Background()
	roomID := uuid.New()

	f.tools.On("Confirm", ctx, roomID).Return(ErrUnresolvedProposals).Once()
	f.gate.On("CompleteSetup", ctx, roomID).Return(errors.New("connection reset")).Once()

	assert.Error(t, f.c.ConfirmSubject(ctx, roomID, models.SubjectTool))
	assert.Error(t, f.c.CompleteSetup(ctx, roomID))

	progress.AssertNotCalled(t, "SubjectConfirmed", mock.Anything, mock.Anything)
	progress.AssertNotCalled(t, "SetupCompleted", mock.Anything)
}
