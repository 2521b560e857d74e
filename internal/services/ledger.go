package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dimitrije/teamroom-api/internal/database"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
)

// bulkItem is the item key of subjects where a member casts one ballot in total.
const bulkItem = ""

// VoteLedger stores member decisions. The votes table's UNIQUE constraint is what
// guarantees one decision per member, subject and item.
type VoteLedger struct {
	db *database.DB
}

func NewVoteLedger(db *database.DB) *VoteLedger {
	return &VoteLedger{db: db}
}

func (l *VoteLedger) HasVoted(ctx context.Context, subject models.Subject, roomID, memberID uuid.UUID) (bool, error) {
	var exists bool
	err := l.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM votes
			WHERE subject = $1 AND team_room_id = $2 AND member_id = $3 AND item_key = $4
		)
	`, subject, roomID, memberID, bulkItem).Scan(&exists)
	return exists, err
}

// RecordOnce stores a member's single ballot for a subject. The existence check only
// short-circuits the common case; a concurrent duplicate still loses on the constraint.
func (l *VoteLedger) RecordOnce(ctx context.Context, subject models.Subject, roomID, memberID uuid.UUID, payload json.RawMessage) error {
	voted, err := l.HasVoted(ctx, subject, roomID, memberID)
	if err != nil {
		return fmt.Errorf("failed to check existing vote: %w", err)
	}
	if voted {
		return ErrDuplicateVote
	}

	_, err = l.db.Pool.Exec(ctx, `
		INSERT INTO votes (subject, team_room_id, member_id, item_key, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, subject, roomID, memberID, bulkItem, payload)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateVote
		}
		return fmt.Errorf("failed to record vote: %w", err)
	}
	return nil
}

// Upsert stores or replaces a member's decision on one item of a subject.
func (l *VoteLedger) Upsert(ctx context.Context, subject models.Subject, roomID, memberID uuid.UUID, itemKey string, payload json.RawMessage) error {
	_, err := l.db.Pool.Exec(ctx, `
		INSERT INTO votes (subject, team_room_id, member_id, item_key, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject, team_room_id, member_id, item_key)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`, subject, roomID, memberID, itemKey, payload)
	if err != nil {
		return fmt.Errorf("failed to upsert vote: %w", err)
	}
	return nil
}

// Tally returns every committed vote of a subject in submission order.
func (l *VoteLedger) Tally(ctx context.Context, subject models.Subject, roomID uuid.UUID) ([]models.Vote, error) {
	rows, err := l.db.Pool.Query(ctx, `
		SELECT id, subject, team_room_id, member_id, item_key, payload, created_at, updated_at
		FROM votes
		WHERE subject = $1 AND team_room_id = $2
		ORDER BY created_at, id
	`, subject, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load votes: %w", err)
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.Subject, &v.TeamRoomID, &v.MemberID, &v.ItemKey, &v.Payload,
			&v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// Participation splits the room's members by whether they hold at least `required`
// votes on the subject.
func (l *VoteLedger) Participation(ctx context.Context, subject models.Subject, roomID uuid.UUID, required int) (*models.Participation, error) {
	rows, err := l.db.Pool.Query(ctx, `
		SELECT u.id, u.name, COUNT(v.id)
		FROM team_room_members m
		JOIN users u ON u.id = m.user_id
		LEFT JOIN votes v
		       ON v.team_room_id = m.team_room_id AND v.member_id = m.user_id AND v.subject = $2
		WHERE m.team_room_id = $1
		GROUP BY u.id, u.name, m.created_at
		ORDER BY m.created_at
	`, roomID, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load participation: %w", err)
	}
	defer rows.Close()

	p := &models.Participation{Voted: []models.Participant{}, NotVoted: []models.Participant{}}
	for rows.Next() {
		var member models.Participant
		var count int64
		if err := rows.Scan(&member.UserID, &member.Name, &count); err != nil {
			return nil, err
		}
		p.Total++
		if count >= int64(required) {
			p.VotedCount++
			p.Voted = append(p.Voted, member)
		} else {
			p.NotVoted = append(p.NotVoted, member)
		}
	}
	return p, rows.Err()
}
