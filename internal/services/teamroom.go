package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/teamroom-api/internal/database"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrTeamRoomNotFound  = errors.New("team room not found")
	ErrNotTeamMember     = errors.New("user is not a member of this team room")
	ErrNotLeader         = errors.New("only the team leader can do this")
	ErrAlreadyTeamMember = errors.New("user is already a team room member")
)

const teamRoomColumns = `id, name, leader_id, workflow_state, lifecycle, created_at, updated_at`

type TeamRoomService struct {
	db *database.DB
}

func NewTeamRoomService(db *database.DB) *TeamRoomService {
	return &TeamRoomService{db: db}
}

func scanTeamRoom(row pgx.Row, extra ...any) (*models.TeamRoom, error) {
	var room models.TeamRoom
	dest := append([]any{
		&room.ID, &room.Name, &room.LeaderID, &room.WorkflowState, &room.Lifecycle, &room.CreatedAt, &room.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		if database.IsNoRows(err) {
			return nil, ErrTeamRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// Create opens a PENDING team room with the creator as its leader.
func (s *TeamRoomService) Create(ctx context.Context, name string, leaderID uuid.UUID) (*models.TeamRoom, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	room, err := scanTeamRoom(tx.QueryRow(ctx, `
		INSERT INTO team_rooms (name, leader_id)
		VALUES ($1, $2)
		RETURNING `+teamRoomColumns, name, leaderID))
	if err != nil {
		return nil, fmt.Errorf("failed to create team room: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_room_members (team_room_id, user_id, role)
		VALUES ($1, $2, $3)
	`, room.ID, leaderID, models.RoleLeader)
	if err != nil {
		return nil, fmt.Errorf("failed to add leader as member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return room, nil
}

func (s *TeamRoomService) GetByID(ctx context.Context, roomID uuid.UUID) (*models.TeamRoom, error) {
	return scanTeamRoom(s.db.Pool.QueryRow(ctx, `SELECT `+teamRoomColumns+` FROM team_rooms WHERE id = $1`, roomID))
}

// GetUserTeamRooms returns the rooms a user belongs to with the user's role in each.
func (s *TeamRoomService) GetUserTeamRooms(ctx context.Context, userID uuid.UUID) ([]models.TeamRoom, []string, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT t.id, t.name, t.leader_id, t.workflow_state, t.lifecycle, t.created_at, t.updated_at, m.role
		FROM team_rooms t
		JOIN team_room_members m ON t.id = m.team_room_id
		WHERE m.user_id = $1
		ORDER BY t.created_at DESC
	`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var rooms []models.TeamRoom
	var roles []string
	for rows.Next() {
		var role string
		room, err := scanTeamRoom(rows, &role)
		if err != nil {
			return nil, nil, err
		}
		rooms = append(rooms, *room)
		roles = append(roles, role)
	}
	return rooms, roles, rows.Err()
}

func (s *TeamRoomService) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM team_room_members WHERE team_room_id = $1 AND user_id = $2)
	`, roomID, userID).Scan(&exists)
	return exists, err
}

func (s *TeamRoomService) IsLeader(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var leaderID uuid.UUID
	err := s.db.Pool.QueryRow(ctx, `SELECT leader_id FROM team_rooms WHERE id = $1`, roomID).Scan(&leaderID)
	if err != nil {
		if database.IsNoRows(err) {
			return false, ErrTeamRoomNotFound
		}
		return false, err
	}
	return leaderID == userID, nil
}

func (s *TeamRoomService) GetMembers(ctx context.Context, roomID uuid.UUID) ([]models.TeamRoomMember, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT m.id, m.team_room_id, m.user_id, m.role, m.created_at,
		       u.id, u.email, u.name, u.avatar_url, u.provider, u.created_at, u.updated_at
		FROM team_room_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.team_room_id = $1
		ORDER BY m.created_at
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.TeamRoomMember
	for rows.Next() {
		var member models.TeamRoomMember
		var user models.User
		if err := rows.Scan(
			&member.ID, &member.TeamRoomID, &member.UserID, &member.Role, &member.CreatedAt,
			&user.ID, &user.Email, &user.Name, &user.AvatarURL, &user.Provider, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		member.User = &user
		members = append(members, member)
	}
	return members, rows.Err()
}

func (s *TeamRoomService) AddMember(ctx context.Context, roomID, userID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `
		INSERT INTO team_room_members (team_room_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_room_id, user_id) DO NOTHING
	`, roomID, userID, models.RoleMember)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyTeamMember
	}
	return nil
}
