package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dimitrije/teamroom-api/internal/clock"
	"github.com/dimitrije/teamroom-api/internal/database"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
)

var ErrOutcomeNotFound = errors.New("outcome not confirmed yet")

// OutcomeStore holds at most one confirmed outcome per team room and subject.
type OutcomeStore struct {
	db    *database.DB
	clock clock.Clock
}

func NewOutcomeStore(db *database.DB, clk clock.Clock) *OutcomeStore {
	return &OutcomeStore{db: db, clock: clk}
}

func (s *OutcomeStore) Exists(ctx context.Context, roomID uuid.UUID, subject models.Subject) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM confirmed_outcomes WHERE team_room_id = $1 AND subject = $2)
	`, roomID, subject).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check outcome: %w", err)
	}
	return exists, nil
}

func (s *OutcomeStore) Get(ctx context.Context, roomID uuid.UUID, subject models.Subject) (*models.ConfirmedOutcome, error) {
	var o models.ConfirmedOutcome
	err := s.db.Pool.QueryRow(ctx, `
		SELECT team_room_id, subject, payload, confirmed_at
		FROM confirmed_outcomes
		WHERE team_room_id = $1 AND subject = $2
	`, roomID, subject).Scan(&o.TeamRoomID, &o.Subject, &o.Payload, &o.ConfirmedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrOutcomeNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Save writes the outcome in a single statement. It reports false when another
// writer confirmed the subject first, in which case the stored outcome is kept.
func (s *OutcomeStore) Save(ctx context.Context, roomID uuid.UUID, subject models.Subject, outcome any) (bool, error) {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s outcome: %w", subject, err)
	}

	tag, err := s.db.Pool.Exec(ctx, `
		INSERT INTO confirmed_outcomes (team_room_id, subject, payload, confirmed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_room_id, subject) DO NOTHING
	`, roomID, subject, payload, s.clock.Now())
	if err != nil {
		return false, fmt.Errorf("failed to save %s outcome: %w", subject, err)
	}
	return tag.RowsAffected() == 1, nil
}
