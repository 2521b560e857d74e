package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/teamroom-api/internal/database"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidTransition = errors.New("invalid workflow transition")

// InvalidTransitionError reports a rejected workflow step and the state the room was in.
type InvalidTransitionError struct {
	TeamRoomID uuid.UUID
	From       models.WorkflowState
	To         models.WorkflowState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid workflow transition %s -> %s for team room %s", e.From, e.To, e.TeamRoomID)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// CompletionNotifier is told about every member once a setup completes.
type CompletionNotifier interface {
	SendSetupCompleted(to, roomName string, confirmed []string) error
}

// WorkflowGate owns the team room workflow state. The state only moves forward:
// PENDING -> SETUP -> COMPLETED.
type WorkflowGate struct {
	db       *database.DB
	notifier CompletionNotifier
	log      *zap.Logger
}

func NewWorkflowGate(db *database.DB, notifier CompletionNotifier, logger *zap.Logger) *WorkflowGate {
	return &WorkflowGate{db: db, notifier: notifier, log: logger}
}

func (g *WorkflowGate) Transition(ctx context.Context, roomID uuid.UUID, to models.WorkflowState) error {
	return g.transition(ctx, g.db.Pool, roomID, to)
}

// transition applies a conditional update, so concurrent callers race on the row and
// exactly one of them wins.
func (g *WorkflowGate) transition(ctx context.Context, q database.Querier, roomID uuid.UUID, to models.WorkflowState) error {
	from, ok := models.PreviousState(to)
	if !ok {
		return &InvalidTransitionError{TeamRoomID: roomID, To: to}
	}

	tag, err := q.Exec(ctx, `
		UPDATE team_rooms SET workflow_state = $1, updated_at = NOW()
		WHERE id = $2 AND workflow_state = $3
	`, to, roomID, from)
	if err != nil {
		return fmt.Errorf("failed to update workflow state: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current models.WorkflowState
	err = q.QueryRow(ctx, `SELECT workflow_state FROM team_rooms WHERE id = $1`, roomID).Scan(&current)
	if err != nil {
		if database.IsNoRows(err) {
			return ErrTeamRoomNotFound
		}
		return fmt.Errorf("failed to read workflow state: %w", err)
	}
	return &InvalidTransitionError{TeamRoomID: roomID, From: current, To: to}
}

// CompleteSetup moves the room to COMPLETED. A room that is already COMPLETED is
// treated as success and is not notified again.
func (g *WorkflowGate) CompleteSetup(ctx context.Context, roomID uuid.UUID) error {
	err := g.Transition(ctx, roomID, models.WorkflowCompleted)
	var invalid *InvalidTransitionError
	if errors.As(err, &invalid) && invalid.From == models.WorkflowCompleted {
		return nil
	}
	if err != nil {
		return err
	}

	g.log.Info("team room setup completed", zap.String("team_room_id", roomID.String()))
	g.notifyMembers(ctx, roomID)
	return nil
}

func (g *WorkflowGate) notifyMembers(ctx context.Context, roomID uuid.UUID) {
	if g.notifier == nil {
		return
	}

	rows, err := g.db.Pool.Query(ctx, `
		SELECT t.name, u.email
		FROM team_rooms t
		JOIN team_room_members m ON m.team_room_id = t.id
		JOIN users u ON u.id = m.user_id
		WHERE t.id = $1
	`, roomID)
	if err != nil {
		g.log.Warn("failed to load members for completion notice",
			zap.String("team_room_id", roomID.String()), zap.Error(err))
		return
	}
	defer rows.Close()

	subjects := make([]string, len(models.Subjects))
	for i, s := range models.Subjects {
		subjects[i] = string(s)
	}

	for rows.Next() {
		var roomName, email string
		if err := rows.Scan(&roomName, &email); err != nil {
			g.log.Warn("failed to scan member for completion notice", zap.Error(err))
			return
		}
		if err := g.notifier.SendSetupCompleted(email, roomName, subjects); err != nil {
			g.log.Warn("failed to send completion notice",
				zap.String("team_room_id", roomID.String()), zap.String("email", email), zap.Error(err))
		}
	}
}
