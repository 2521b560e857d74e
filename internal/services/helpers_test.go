package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/teamroom-api/internal/clock"
	"github.com/dimitrije/teamroom-api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC) // a Wednesday

func setupMockDB(t *testing.T) (*database.DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &database.DB{Pool: mock}, mock
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
}

type mockRooms struct {
	mock.Mock
}

func (m *mockRooms) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRooms) IsLeader(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

// trackFixture wires a ledger and outcome store onto one mocked pool.
type trackFixture struct {
	db       *database.DB
	mock     pgxmock.PgxPoolIface
	rooms    *mockRooms
	ledger   *VoteLedger
	outcomes *OutcomeStore
	clock    *clock.Fake
}

func newTrackFixture(t *testing.T) *trackFixture {
	db, mock := setupMockDB(t)
	clk := clock.NewFake(testNow)
	return &trackFixture{
		db:       db,
		mock:     mock,
		rooms:    &mockRooms{},
		ledger:   NewVoteLedger(db),
		outcomes: NewOutcomeStore(db, clk),
		clock:    clk,
	}
}

func (f *trackFixture) expectOutcomeExists(roomID uuid.UUID, exists bool) {
	f.mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM confirmed_outcomes`).
		WithArgs(roomID, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(exists))
}

func (f *trackFixture) expectSaveOutcome(roomID uuid.UUID) {
	f.mock.ExpectExec(`INSERT INTO confirmed_outcomes`).
		WithArgs(roomID, pgxmock.AnyArg(), pgxmock.AnyArg(), testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func (f *trackFixture) expectHasVoted(exists bool) {
	f.mock.ExpectQuery(`SELECT EXISTS\(\s*SELECT 1 FROM votes`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(exists))
}

func (f *trackFixture) expectVoteInsert() {
	f.mock.ExpectExec(`INSERT INTO votes`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

var participationColumns = []string{"id", "name", "count"}

var voteColumns = []string{"id", "subject", "team_room_id", "member_id", "item_key", "payload", "created_at", "updated_at"}
