package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dimitrije/teamroom-api/internal/clock"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
)

var (
	ErrUnknownSubject       = errors.New("unknown setup subject")
	ErrInvalidPayload       = errors.New("invalid vote payload")
	ErrDuplicateVote        = errors.New("vote already submitted")
	ErrAlreadyConfirmed     = errors.New("subject already confirmed")
	ErrNoEligibleCandidates = errors.New("no eligible candidates to confirm")
)

// Track is one setup subject: it accepts member votes, knows when every vote is in,
// and derives the confirmed outcome from the ledger.
type Track interface {
	Subject() models.Subject
	Submit(ctx context.Context, roomID, memberID uuid.UUID, payload json.RawMessage) error
	// Ready reports whether the subject may be confirmed before the deadline.
	Ready(ctx context.Context, roomID uuid.UUID) (bool, error)
	// Confirm is idempotent and never touches setup flags.
	Confirm(ctx context.Context, roomID uuid.UUID) error
	Participation(ctx context.Context, roomID uuid.UUID) (*models.Participation, error)
}

// RoomAuthorizer answers membership questions for a team room.
type RoomAuthorizer interface {
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	IsLeader(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
}

// trackBase carries what every track shares.
type trackBase struct {
	subject  models.Subject
	ledger   *VoteLedger
	outcomes *OutcomeStore
	rooms    RoomAuthorizer
	clock    clock.Clock
}

func (b *trackBase) Subject() models.Subject {
	return b.subject
}

// guardOpen rejects callers outside the room and changes after confirmation.
func (b *trackBase) guardOpen(ctx context.Context, roomID, memberID uuid.UUID) error {
	member, err := b.rooms.IsMember(ctx, roomID, memberID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return ErrNotTeamMember
	}
	return b.guardUnconfirmed(ctx, roomID)
}

func (b *trackBase) guardUnconfirmed(ctx context.Context, roomID uuid.UUID) error {
	confirmed, err := b.outcomes.Exists(ctx, roomID, b.subject)
	if err != nil {
		return err
	}
	if confirmed {
		return ErrAlreadyConfirmed
	}
	return nil
}

func (b *trackBase) guardLeader(ctx context.Context, roomID, userID uuid.UUID) error {
	leader, err := b.rooms.IsLeader(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !leader {
		return ErrNotLeader
	}
	return nil
}

// confirmOnce derives and stores the outcome unless one already exists. A derive
// failure leaves nothing behind.
func (b *trackBase) confirmOnce(ctx context.Context, roomID uuid.UUID, derive func(ctx context.Context) (any, error)) error {
	exists, err := b.outcomes.Exists(ctx, roomID, b.subject)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	outcome, err := derive(ctx)
	if err != nil {
		return err
	}
	_, err = b.outcomes.Save(ctx, roomID, b.subject, outcome)
	return err
}

// everyoneVoted is the early completion rule of the bulk subjects.
func (b *trackBase) everyoneVoted(ctx context.Context, roomID uuid.UUID, required int) (bool, error) {
	p, err := b.ledger.Participation(ctx, b.subject, roomID, required)
	if err != nil {
		return false, err
	}
	return p.Everyone(), nil
}

func decodePayload(payload json.RawMessage, dst any) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
