package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimitrije/teamroom-api/internal/clock"
	"github.com/dimitrije/teamroom-api/internal/database"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrSetupNotFound = errors.New("setup not found")

const setupColumns = `team_room_id, deadline, tool_completed, rule_completed, meeting_completed, created_at, updated_at`

// markCompletedSQL keeps one static statement per subject; each sets a single column
// so concurrent marks of different subjects never overwrite each other.
var markCompletedSQL = map[models.Subject]string{
	models.SubjectTool:    `UPDATE setups SET tool_completed = TRUE, updated_at = NOW() WHERE team_room_id = $1`,
	models.SubjectRule:    `UPDATE setups SET rule_completed = TRUE, updated_at = NOW() WHERE team_room_id = $1`,
	models.SubjectMeeting: `UPDATE setups SET meeting_completed = TRUE, updated_at = NOW() WHERE team_room_id = $1`,
}

type SetupService struct {
	db       *database.DB
	gate     *WorkflowGate
	clock    clock.Clock
	duration time.Duration
}

func NewSetupService(db *database.DB, gate *WorkflowGate, clk clock.Clock, duration time.Duration) *SetupService {
	return &SetupService{db: db, gate: gate, clock: clk, duration: duration}
}

func scanSetup(row pgx.Row) (*models.Setup, error) {
	var s models.Setup
	err := row.Scan(&s.TeamRoomID, &s.Deadline, &s.ToolCompleted, &s.RuleCompleted, &s.MeetingCompleted,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrSetupNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Start moves a PENDING room into SETUP and opens its setup window. Both happen in
// one transaction; a room can only be started once.
func (s *SetupService) Start(ctx context.Context, roomID uuid.UUID) (*models.Setup, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.gate.transition(ctx, tx, roomID, models.WorkflowSetup); err != nil {
		return nil, err
	}

	deadline := s.clock.Now().Add(s.duration)
	setup, err := scanSetup(tx.QueryRow(ctx, `
		INSERT INTO setups (team_room_id, deadline)
		VALUES ($1, $2)
		RETURNING `+setupColumns, roomID, deadline))
	if err != nil {
		return nil, fmt.Errorf("failed to create setup: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return setup, nil
}

func (s *SetupService) Get(ctx context.Context, roomID uuid.UUID) (*models.Setup, error) {
	return scanSetup(s.db.Pool.QueryRow(ctx, `SELECT `+setupColumns+` FROM setups WHERE team_room_id = $1`, roomID))
}

// MarkCompleted sets one subject flag. Marking an already completed subject succeeds.
func (s *SetupService) MarkCompleted(ctx context.Context, roomID uuid.UUID, subject models.Subject) error {
	query, ok := markCompletedSQL[subject]
	if !ok {
		return ErrUnknownSubject
	}
	tag, err := s.db.Pool.Exec(ctx, query, roomID)
	if err != nil {
		return fmt.Errorf("failed to mark %s completed: %w", subject, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSetupNotFound
	}
	return nil
}

// ListExpiredIncomplete returns setups whose deadline passed while a subject is still
// open, or whose room never left SETUP after every subject completed. Oldest first.
func (s *SetupService) ListExpiredIncomplete(ctx context.Context, now time.Time) ([]models.Setup, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT s.team_room_id, s.deadline, s.tool_completed, s.rule_completed, s.meeting_completed,
		       s.created_at, s.updated_at
		FROM setups s
		JOIN team_rooms t ON t.id = s.team_room_id
		WHERE s.deadline < $1
		  AND (NOT (s.tool_completed AND s.rule_completed AND s.meeting_completed)
		       OR t.workflow_state = $2)
		ORDER BY s.deadline
	`, now, models.WorkflowSetup)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired setups: %w", err)
	}
	defer rows.Close()

	var setups []models.Setup
	for rows.Next() {
		setup, err := scanSetup(rows)
		if err != nil {
			return nil, err
		}
		setups = append(setups, *setup)
	}
	return setups, rows.Err()
}
