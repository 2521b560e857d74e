package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMeetingTrack(f *trackFixture) *MeetingTrack {
	return NewMeetingTrack(f.ledger, f.outcomes, f.rooms, f.clock, time.Hour)
}

func meetingVote(slots ...models.TimeSlot) models.Vote {
	payload, _ := json.Marshal(meetingBallot{Slots: slots})
	return models.Vote{Subject: models.SubjectMeeting, Payload: payload}
}

func TestPickSlot(t *testing.T) {
	mon9 := models.TimeSlot{Day: 1, Hour: 9}
	mon14 := models.TimeSlot{Day: 1, Hour: 14}
	tue9 := models.TimeSlot{Day: 2, Hour: 9}

	slot, attendees, ok := pickSlot([]models.Vote{
		meetingVote(tue9, mon14),
		meetingVote(mon14, tue9, mon9),
	})

	require.True(t, ok)
	assert.Equal(t, mon14, slot, "ties resolve to the earliest day, then hour")
	assert.Equal(t, 2, attendees)
}

func TestPickSlot_Majority(t *testing.T) {
	wed18 := models.TimeSlot{Day: 3, Hour: 18}

	slot, attendees, ok := pickSlot([]models.Vote{
		meetingVote(models.TimeSlot{Day: 0, Hour: 8}, wed18),
		meetingVote(wed18),
	})

	require.True(t, ok)
	assert.Equal(t, wed18, slot)
	assert.Equal(t, 2, attendees)
}

func TestPickSlot_NoVotes(t *testing.T) {
	_, _, ok := pickSlot(nil)

	assert.False(t, ok)
}

func TestNextOccurrence(t *testing.T) {
	// testNow is Wednesday 10:30 UTC.
	testCases := []struct {
		name string
		slot models.TimeSlot
		want time.Time
	}{
		{"later today", models.TimeSlot{Day: 3, Hour: 14}, time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)},
		{"earlier today rolls a week", models.TimeSlot{Day: 3, Hour: 9}, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)},
		{"later this week", models.TimeSlot{Day: 5, Hour: 0}, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)},
		{"next sunday", models.TimeSlot{Day: 0, Hour: 23}, time.Date(2026, 3, 8, 23, 0, 0, 0, time.UTC)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nextOccurrence(testNow, tc.slot))
		})
	}
}

func TestValidateSlots(t *testing.T) {
	assert.NoError(t, validateSlots([]models.TimeSlot{{Day: 0, Hour: 0}, {Day: 6, Hour: 23}}))
	assert.ErrorIs(t, validateSlots(nil), ErrInvalidPayload)
	assert.ErrorIs(t, validateSlots([]models.TimeSlot{{Day: 7, Hour: 1}}), ErrInvalidPayload)
	assert.ErrorIs(t, validateSlots([]models.TimeSlot{{Day: 1, Hour: 24}}), ErrInvalidPayload)
	assert.ErrorIs(t, validateSlots([]models.TimeSlot{{Day: 1, Hour: 9}, {Day: 1, Hour: 9}}), ErrInvalidPayload)
}

func TestMeetingTrack_Submit(t *testing.T) {
	f := newTrackFixture(t)
	ctx := context.Background()
	roomID, memberID := uuid.New(), uuid.New()

	f.rooms.On("IsMember", ctx, roomID, memberID).Return(true, nil)
	f.expectOutcomeExists(roomID, false)
	f.expectHasVoted(false)
	f.mock.ExpectExec(`INSERT INTO votes`).
		WithArgs(models.SubjectMeeting, roomID, memberID, "", json.RawMessage(`{"slots":[{"day":1,"hour":9}]}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := newMeetingTrack(f).Submit(ctx, roomID, memberID, json.RawMessage(`{ "slots": [ {"hour": 9, "day": 1} ] }`))

	assert.NoError(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestMeetingTrack_Confirm(t *testing.T) {
	f := newTrackFixture(t)
	roomID := uuid.New()
	thu := models.TimeSlot{Day: 4, Hour: 16}

	f.expectOutcomeExists(roomID, false)
	f.mock.ExpectQuery(`SELECT id, subject, team_room_id`).
		WithArgs(models.SubjectMeeting, roomID).
		WillReturnRows(pgxmock.NewRows(voteColumns).
			AddRow(uuid.New(), models.SubjectMeeting, roomID, uuid.New(), "", meetingVote(thu).Payload, testNow, testNow))

	want, err := json.Marshal(models.MeetingOutcome{
		Slot:            thu,
		DurationMinutes: 60,
		FirstMeetingAt:  time.Date(2026, 3, 5, 16, 0, 0, 0, time.UTC),
		Attendees:       1,
	})
	require.NoError(t, err)
	f.mock.ExpectExec(`INSERT INTO confirmed_outcomes`).
		WithArgs(roomID, models.SubjectMeeting, want, testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = newMeetingTrack(f).Confirm(context.Background(), roomID)

	assert.NoError(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestMeetingTrack_Confirm_NoBallots(t *testing.T) {
	f := newTrackFixture(t)
	roomID := uuid.New()

	f.expectOutcomeExists(roomID, false)
	f.mock.ExpectQuery(`SELECT id, subject, team_room_id`).
		WithArgs(models.SubjectMeeting, roomID).
		WillReturnRows(pgxmock.NewRows(voteColumns))

	err := newMeetingTrack(f).Confirm(context.Background(), roomID)

	assert.ErrorIs(t, err, ErrNoEligibleCandidates)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
