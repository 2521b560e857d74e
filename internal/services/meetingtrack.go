package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dimitrije/teamroom-api/internal/clock"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
)

type meetingBallot struct {
	Slots []models.TimeSlot `json:"slots"`
}

// MeetingTrack schedules a weekly meeting in the slot most members are available for.
type MeetingTrack struct {
	trackBase
	duration time.Duration
}

func NewMeetingTrack(ledger *VoteLedger, outcomes *OutcomeStore, rooms RoomAuthorizer, clk clock.Clock, duration time.Duration) *MeetingTrack {
	return &MeetingTrack{
		trackBase: trackBase{subject: models.SubjectMeeting, ledger: ledger, outcomes: outcomes, rooms: rooms, clock: clk},
		duration:  duration,
	}
}

func (t *MeetingTrack) Submit(ctx context.Context, roomID, memberID uuid.UUID, payload json.RawMessage) error {
	if err := t.guardOpen(ctx, roomID, memberID); err != nil {
		return err
	}

	var ballot meetingBallot
	if err := decodePayload(payload, &ballot); err != nil {
		return err
	}
	if err := validateSlots(ballot.Slots); err != nil {
		return err
	}

	canonical, err := json.Marshal(ballot)
	if err != nil {
		return fmt.Errorf("failed to encode ballot: %w", err)
	}
	return t.ledger.RecordOnce(ctx, t.subject, roomID, memberID, canonical)
}

func (t *MeetingTrack) Ready(ctx context.Context, roomID uuid.UUID) (bool, error) {
	return t.everyoneVoted(ctx, roomID, 1)
}

func (t *MeetingTrack) Participation(ctx context.Context, roomID uuid.UUID) (*models.Participation, error) {
	return t.ledger.Participation(ctx, t.subject, roomID, 1)
}

func (t *MeetingTrack) Confirm(ctx context.Context, roomID uuid.UUID) error {
	return t.confirmOnce(ctx, roomID, func(ctx context.Context) (any, error) {
		votes, err := t.ledger.Tally(ctx, t.subject, roomID)
		if err != nil {
			return nil, err
		}
		slot, attendees, ok := pickSlot(votes)
		if !ok {
			return nil, ErrNoEligibleCandidates
		}
		return models.MeetingOutcome{
			Slot:            slot,
			DurationMinutes: int(t.duration / time.Minute),
			FirstMeetingAt:  nextOccurrence(t.clock.Now(), slot),
			Attendees:       attendees,
		}, nil
	})
}

func validateSlots(slots []models.TimeSlot) error {
	if len(slots) == 0 {
		return fmt.Errorf("%w: at least one slot is required", ErrInvalidPayload)
	}
	seen := make(map[models.TimeSlot]bool, len(slots))
	for _, s := range slots {
		if !s.Valid() {
			return fmt.Errorf("%w: slot day %d hour %d out of range", ErrInvalidPayload, s.Day, s.Hour)
		}
		if seen[s] {
			return fmt.Errorf("%w: duplicate slot day %d hour %d", ErrInvalidPayload, s.Day, s.Hour)
		}
		seen[s] = true
	}
	return nil
}

// pickSlot returns the slot with the most available members, earliest in the week on a tie.
func pickSlot(votes []models.Vote) (models.TimeSlot, int, bool) {
	counts := map[models.TimeSlot]int{}
	for _, v := range votes {
		var ballot meetingBallot
		if err := json.Unmarshal(v.Payload, &ballot); err != nil {
			continue
		}
		for _, s := range ballot.Slots {
			if s.Valid() {
				counts[s]++
			}
		}
	}

	var best models.TimeSlot
	bestCount := 0
	for s, n := range counts {
		if n > bestCount || (n == bestCount && s.Before(best)) {
			best, bestCount = s, n
		}
	}
	return best, bestCount, bestCount > 0
}

// nextOccurrence is the first start of slot strictly after now, in UTC.
func nextOccurrence(now time.Time, slot models.TimeSlot) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	daysAhead := (slot.Day - int(now.Weekday()) + 7) % 7
	next := midnight.AddDate(0, 0, daysAhead).Add(time.Duration(slot.Hour) * time.Hour)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
