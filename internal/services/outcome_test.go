package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dimitrije/teamroom-api/internal/clock"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeStore_Save(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewOutcomeStore(db, clock.NewFake(testNow))
	roomID := uuid.New()
	outcome := models.RuleOutcome{Rules: []models.ConfirmedRule{}}

	mock.ExpectExec(`INSERT INTO confirmed_outcomes .+ ON CONFLICT \(team_room_id, subject\) DO NOTHING`).
		WithArgs(roomID, models.SubjectRule, []byte(`{"rules":[]}`), testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := store.Save(context.Background(), roomID, models.SubjectRule, outcome)

	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutcomeStore_Save_LostRace(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewOutcomeStore(db, clock.NewFake(testNow))

	mock.ExpectExec(`INSERT INTO confirmed_outcomes`).
		WithArgs(pgxmock.AnyArg(), models.SubjectTool, pgxmock.AnyArg(), testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := store.Save(context.Background(), uuid.New(), models.SubjectTool, models.ToolOutcome{})

	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestOutcomeStore_Get(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewOutcomeStore(db, clock.NewFake(testNow))
	roomID := uuid.New()
	payload := json.RawMessage(`{"rules":[]}`)

	mock.ExpectQuery(`SELECT team_room_id, subject, payload, confirmed_at`).
		WithArgs(roomID, models.SubjectRule).
		WillReturnRows(pgxmock.NewRows([]string{"team_room_id", "subject", "payload", "confirmed_at"}).
			AddRow(roomID, models.SubjectRule, payload, testNow))
	mock.ExpectQuery(`SELECT team_room_id, subject, payload, confirmed_at`).
		WithArgs(roomID, models.SubjectMeeting).
		WillReturnError(pgx.ErrNoRows)

	o, err := store.Get(context.Background(), roomID, models.SubjectRule)
	require.NoError(t, err)
	assert.Equal(t, models.SubjectRule, o.Subject)
	assert.JSONEq(t, `{"rules":[]}`, string(o.Payload))

	_, err = store.Get(context.Background(), roomID, models.SubjectMeeting)
	assert.ErrorIs(t, err, ErrOutcomeNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
