package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SetupStore is the persistence the coordinator needs for setup aggregates.
type SetupStore interface {
	Get(ctx context.Context, roomID uuid.UUID) (*models.Setup, error)
	MarkCompleted(ctx context.Context, roomID uuid.UUID, subject models.Subject) error
	ListExpiredIncomplete(ctx context.Context, now time.Time) ([]models.Setup, error)
}

type SetupCompleter interface {
	CompleteSetup(ctx context.Context, roomID uuid.UUID) error
}

type OutcomeReader interface {
	Get(ctx context.Context, roomID uuid.UUID, subject models.Subject) (*models.ConfirmedOutcome, error)
}

// ProgressPublisher announces setup progress to live clients. Delivery is best-effort.
type ProgressPublisher interface {
	SubjectConfirmed(roomID uuid.UUID, subject models.Subject)
	SetupCompleted(roomID uuid.UUID)
}

// Coordinator ties tracks, setup flags and the workflow gate together. Both the
// submit path and the deadline sweeper finalize subjects through it.
type Coordinator struct {
	tracks   map[models.Subject]Track
	setups   SetupStore
	gate     SetupCompleter
	outcomes OutcomeReader
	progress ProgressPublisher
	log      *zap.Logger
}

func NewCoordinator(setups SetupStore, gate SetupCompleter, outcomes OutcomeReader, logger *zap.Logger, tracks ...Track) *Coordinator {
	c := &Coordinator{
		tracks:   make(map[models.Subject]Track, len(tracks)),
		setups:   setups,
		gate:     gate,
		outcomes: outcomes,
		log:      logger,
	}
	for _, t := range tracks {
		c.tracks[t.Subject()] = t
	}
	return c
}

// PublishProgress makes the coordinator announce confirmations and completions.
func (c *Coordinator) PublishProgress(p ProgressPublisher) {
	c.progress = p
}

func (c *Coordinator) Track(subject models.Subject) (Track, error) {
	t, ok := c.tracks[subject]
	if !ok {
		return nil, ErrUnknownSubject
	}
	return t, nil
}

// Submit records a vote and, if that vote completes the subject, confirms it right
// away. Failures after the vote is stored are logged and left to the sweeper.
func (c *Coordinator) Submit(ctx context.Context, roomID, memberID uuid.UUID, subject models.Subject, payload json.RawMessage) error {
	track, err := c.Track(subject)
	if err != nil {
		return err
	}
	if _, err := c.setups.Get(ctx, roomID); err != nil {
		return err
	}
	if err := track.Submit(ctx, roomID, memberID, payload); err != nil {
		return err
	}

	c.Advance(ctx, roomID, subject)
	return nil
}

// Advance confirms the subject when its early completion rule holds. It never fails
// the caller.
func (c *Coordinator) Advance(ctx context.Context, roomID uuid.UUID, subject models.Subject) {
	fields := []zap.Field{zap.String("team_room_id", roomID.String()), zap.String("subject", string(subject))}

	track, err := c.Track(subject)
	if err != nil {
		c.log.Warn("cannot advance unknown subject", fields...)
		return
	}
	ready, err := track.Ready(ctx, roomID)
	if err != nil {
		c.log.Warn("failed to evaluate early completion", append(fields, zap.Error(err))...)
		return
	}
	if !ready {
		return
	}

	if err := c.ConfirmSubject(ctx, roomID, subject); err != nil {
		c.log.Warn("early confirmation failed, sweeper will retry after the deadline", append(fields, zap.Error(err))...)
		return
	}
	if _, err := c.CompleteIfReady(ctx, roomID); err != nil {
		c.log.Error("failed to complete setup workflow", append(fields, zap.Error(err))...)
	}
}

// ConfirmSubject confirms a subject and then sets its flag. The flag is only set once
// the outcome exists.
func (c *Coordinator) ConfirmSubject(ctx context.Context, roomID uuid.UUID, subject models.Subject) error {
	track, err := c.Track(subject)
	if err != nil {
		return err
	}
	if err := track.Confirm(ctx, roomID); err != nil {
		return fmt.Errorf("failed to confirm %s: %w", subject, err)
	}
	if err := c.setups.MarkCompleted(ctx, roomID, subject); err != nil {
		return err
	}
	c.log.Info("subject confirmed", zap.String("team_room_id", roomID.String()), zap.String("subject", string(subject)))
	if c.progress != nil {
		c.progress.SubjectConfirmed(roomID, subject)
	}
	return nil
}

// CompleteIfReady runs the workflow gate once every subject flag is set.
func (c *Coordinator) CompleteIfReady(ctx context.Context, roomID uuid.UUID) (bool, error) {
	setup, err := c.setups.Get(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !setup.IsAllCompleted() {
		return false, nil
	}
	if err := c.CompleteSetup(ctx, roomID); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Coordinator) CompleteSetup(ctx context.Context, roomID uuid.UUID) error {
	if err := c.gate.CompleteSetup(ctx, roomID); err != nil {
		return err
	}
	if c.progress != nil {
		c.progress.SetupCompleted(roomID)
	}
	return nil
}

func (c *Coordinator) ListExpiredIncomplete(ctx context.Context, now time.Time) ([]models.Setup, error) {
	return c.setups.ListExpiredIncomplete(ctx, now)
}

func (c *Coordinator) Setup(ctx context.Context, roomID uuid.UUID) (*models.Setup, error) {
	return c.setups.Get(ctx, roomID)
}

func (c *Coordinator) Participation(ctx context.Context, roomID uuid.UUID, subject models.Subject) (*models.Participation, error) {
	track, err := c.Track(subject)
	if err != nil {
		return nil, err
	}
	return track.Participation(ctx, roomID)
}

// Outcome returns the confirmed outcome, or ErrOutcomeNotFound while voting is open.
func (c *Coordinator) Outcome(ctx context.Context, roomID uuid.UUID, subject models.Subject) (*models.ConfirmedOutcome, error) {
	if _, err := c.Track(subject); err != nil {
		return nil, err
	}
	return c.outcomes.Get(ctx, roomID, subject)
}
