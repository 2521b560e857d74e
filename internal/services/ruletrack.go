package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dimitrije/teamroom-api/internal/clock"
	"github.com/dimitrije/teamroom-api/internal/database"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
)

type ruleBallot struct {
	RuleID uuid.UUID `json:"rule_id"`
	Agree  *bool     `json:"agree"`
}

// RuleTrack lets members agree or disagree with each rule the leader proposed. A
// member may change their mind until the subject is confirmed.
type RuleTrack struct {
	trackBase
	db *database.DB
}

func NewRuleTrack(db *database.DB, ledger *VoteLedger, outcomes *OutcomeStore, rooms RoomAuthorizer, clk clock.Clock) *RuleTrack {
	return &RuleTrack{
		trackBase: trackBase{subject: models.SubjectRule, ledger: ledger, outcomes: outcomes, rooms: rooms, clock: clk},
		db:        db,
	}
}

func (t *RuleTrack) AddRule(ctx context.Context, roomID, leaderID uuid.UUID, content string) (*models.RuleCandidate, error) {
	if err := t.guardLeader(ctx, roomID, leaderID); err != nil {
		return nil, err
	}
	if err := t.guardUnconfirmed(ctx, roomID); err != nil {
		return nil, err
	}
	content = plainText(content)
	if content == "" {
		return nil, fmt.Errorf("%w: rule content is required", ErrInvalidPayload)
	}

	var rule models.RuleCandidate
	err := t.db.Pool.QueryRow(ctx, `
		INSERT INTO rule_candidates (team_room_id, content, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, team_room_id, content, created_by, created_at
	`, roomID, content, leaderID).Scan(&rule.ID, &rule.TeamRoomID, &rule.Content, &rule.CreatedBy, &rule.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add rule: %w", err)
	}
	return &rule, nil
}

func (t *RuleTrack) ListRules(ctx context.Context, roomID uuid.UUID) ([]models.RuleCandidate, error) {
	rows, err := t.db.Pool.Query(ctx, `
		SELECT id, team_room_id, content, created_by, created_at
		FROM rule_candidates
		WHERE team_room_id = $1
		ORDER BY created_at, id
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	defer rows.Close()

	rules := []models.RuleCandidate{}
	for rows.Next() {
		var r models.RuleCandidate
		if err := rows.Scan(&r.ID, &r.TeamRoomID, &r.Content, &r.CreatedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (t *RuleTrack) Submit(ctx context.Context, roomID, memberID uuid.UUID, payload json.RawMessage) error {
	if err := t.guardOpen(ctx, roomID, memberID); err != nil {
		return err
	}

	var ballot ruleBallot
	if err := decodePayload(payload, &ballot); err != nil {
		return err
	}
	if ballot.RuleID == uuid.Nil || ballot.Agree == nil {
		return fmt.Errorf("%w: rule_id and agree are required", ErrInvalidPayload)
	}

	var exists bool
	err := t.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM rule_candidates WHERE id = $1 AND team_room_id = $2)
	`, ballot.RuleID, roomID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up rule: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: unknown rule %s", ErrInvalidPayload, ballot.RuleID)
	}

	canonical, err := json.Marshal(ballot)
	if err != nil {
		return fmt.Errorf("failed to encode ballot: %w", err)
	}
	return t.ledger.Upsert(ctx, t.subject, roomID, memberID, ballot.RuleID.String(), canonical)
}

// Ready requires at least one rule and a vote from every member on every rule.
func (t *RuleTrack) Ready(ctx context.Context, roomID uuid.UUID) (bool, error) {
	n, err := t.countRules(ctx, roomID)
	if err != nil || n == 0 {
		return false, err
	}
	return t.everyoneVoted(ctx, roomID, n)
}

func (t *RuleTrack) Participation(ctx context.Context, roomID uuid.UUID) (*models.Participation, error) {
	n, err := t.countRules(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return t.ledger.Participation(ctx, t.subject, roomID, max(1, n))
}

func (t *RuleTrack) Confirm(ctx context.Context, roomID uuid.UUID) error {
	return t.confirmOnce(ctx, roomID, func(ctx context.Context) (any, error) {
		rules, err := t.ListRules(ctx, roomID)
		if err != nil {
			return nil, err
		}
		votes, err := t.ledger.Tally(ctx, t.subject, roomID)
		if err != nil {
			return nil, err
		}
		return pickRules(rules, votes), nil
	})
}

func (t *RuleTrack) countRules(ctx context.Context, roomID uuid.UUID) (int, error) {
	var n int
	err := t.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM rule_candidates WHERE team_room_id = $1`, roomID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count rules: %w", err)
	}
	return n, nil
}

// pickRules keeps the rules a strict majority of voters agreed with.
func pickRules(rules []models.RuleCandidate, votes []models.Vote) models.RuleOutcome {
	type tally struct{ agrees, disagrees int }
	counts := make(map[string]*tally, len(rules))
	for _, r := range rules {
		counts[r.ID.String()] = &tally{}
	}
	for _, v := range votes {
		c, ok := counts[v.ItemKey]
		if !ok {
			continue
		}
		var ballot ruleBallot
		if err := json.Unmarshal(v.Payload, &ballot); err != nil || ballot.Agree == nil {
			continue
		}
		if *ballot.Agree {
			c.agrees++
		} else {
			c.disagrees++
		}
	}

	outcome := models.RuleOutcome{Rules: []models.ConfirmedRule{}}
	for _, r := range rules {
		c := counts[r.ID.String()]
		if c.agrees > c.disagrees {
			outcome.Rules = append(outcome.Rules, models.ConfirmedRule{
				RuleID: r.ID, Content: r.Content, Agrees: c.agrees, Disagrees: c.disagrees,
			})
		}
	}
	return outcome
}
