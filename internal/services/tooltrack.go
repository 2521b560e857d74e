package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dimitrije/teamroom-api/internal/clock"
	"github.com/dimitrije/teamroom-api/internal/database"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrLeaderCannotPropose    = errors.New("the team leader cannot propose tools")
	ErrDuplicateProposal      = errors.New("tool already proposed for this category")
	ErrProposalNotFound       = errors.New("tool proposal not found")
	ErrProposalAlreadyDecided = errors.New("tool proposal already decided")
	ErrUnresolvedProposals    = errors.New("tool proposals are still pending")
)

// maxCandidateLength matches the tool_proposals.candidate column.
const maxCandidateLength = 100

const proposalColumns = `id, team_room_id, category, candidate, proposer_id, decision, decided_at, created_at`

type toolBallot struct {
	Choices map[string]string `json:"choices"`
}

// ToolTrack picks one tool per category. Members may propose extra candidates, which
// only become votable once the leader approves them.
type ToolTrack struct {
	trackBase
	db *database.DB
}

func NewToolTrack(db *database.DB, ledger *VoteLedger, outcomes *OutcomeStore, rooms RoomAuthorizer, clk clock.Clock) *ToolTrack {
	return &ToolTrack{
		trackBase: trackBase{subject: models.SubjectTool, ledger: ledger, outcomes: outcomes, rooms: rooms, clock: clk},
		db:        db,
	}
}

func (t *ToolTrack) Submit(ctx context.Context, roomID, memberID uuid.UUID, payload json.RawMessage) error {
	if err := t.guardOpen(ctx, roomID, memberID); err != nil {
		return err
	}

	var ballot toolBallot
	if err := decodePayload(payload, &ballot); err != nil {
		return err
	}
	categories, err := t.eligible(ctx, roomID)
	if err != nil {
		return err
	}
	if err := validateToolBallot(categories, ballot); err != nil {
		return err
	}

	canonical, err := json.Marshal(ballot)
	if err != nil {
		return fmt.Errorf("failed to encode ballot: %w", err)
	}
	return t.ledger.RecordOnce(ctx, t.subject, roomID, memberID, canonical)
}

func (t *ToolTrack) Ready(ctx context.Context, roomID uuid.UUID) (bool, error) {
	return t.everyoneVoted(ctx, roomID, 1)
}

func (t *ToolTrack) Participation(ctx context.Context, roomID uuid.UUID) (*models.Participation, error) {
	return t.ledger.Participation(ctx, t.subject, roomID, 1)
}

func (t *ToolTrack) Confirm(ctx context.Context, roomID uuid.UUID) error {
	return t.confirmOnce(ctx, roomID, func(ctx context.Context) (any, error) {
		var pending int
		err := t.db.Pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM tool_proposals WHERE team_room_id = $1 AND decision = $2
		`, roomID, models.ProposalPending).Scan(&pending)
		if err != nil {
			return nil, fmt.Errorf("failed to count pending proposals: %w", err)
		}
		if pending > 0 {
			return nil, fmt.Errorf("%w: %d pending", ErrUnresolvedProposals, pending)
		}

		categories, err := t.eligible(ctx, roomID)
		if err != nil {
			return nil, err
		}
		votes, err := t.ledger.Tally(ctx, t.subject, roomID)
		if err != nil {
			return nil, err
		}
		return pickTools(categories, votes), nil
	})
}

// eligible returns the catalogue extended with approved proposals, in tie-break order.
func (t *ToolTrack) eligible(ctx context.Context, roomID uuid.UUID) ([]models.ToolCategory, error) {
	categories := make([]models.ToolCategory, len(models.ToolCatalogue))
	index := make(map[string]int, len(models.ToolCatalogue))
	for i, c := range models.ToolCatalogue {
		categories[i] = models.ToolCategory{Name: c.Name, Candidates: append([]string(nil), c.Candidates...)}
		index[c.Name] = i
	}

	rows, err := t.db.Pool.Query(ctx, `
		SELECT category, candidate FROM tool_proposals
		WHERE team_room_id = $1 AND decision = $2
		ORDER BY decided_at, id
	`, roomID, models.ProposalApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to load approved proposals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category, candidate string
		if err := rows.Scan(&category, &candidate); err != nil {
			return nil, err
		}
		if i, ok := index[category]; ok {
			categories[i].Candidates = append(categories[i].Candidates, candidate)
		}
	}
	return categories, rows.Err()
}

func validateToolBallot(categories []models.ToolCategory, ballot toolBallot) error {
	if len(ballot.Choices) != len(categories) {
		return fmt.Errorf("%w: expected a choice for each of %d categories", ErrInvalidPayload, len(categories))
	}
	for _, c := range categories {
		choice, ok := ballot.Choices[c.Name]
		if !ok {
			return fmt.Errorf("%w: missing choice for %s", ErrInvalidPayload, c.Name)
		}
		if !containsFold(c.Candidates, choice) {
			return fmt.Errorf("%w: %q is not a candidate for %s", ErrInvalidPayload, choice, c.Name)
		}
	}
	return nil
}

// pickTools chooses the most voted candidate per category. Ties go to the earlier
// candidate, and a category nobody voted on falls back to its first candidate.
func pickTools(categories []models.ToolCategory, votes []models.Vote) models.ToolOutcome {
	counts := make(map[string]map[string]int, len(categories))
	for _, c := range categories {
		counts[c.Name] = map[string]int{}
	}
	for _, v := range votes {
		var ballot toolBallot
		if err := json.Unmarshal(v.Payload, &ballot); err != nil {
			continue
		}
		for category, choice := range ballot.Choices {
			if perCandidate, ok := counts[category]; ok {
				perCandidate[strings.ToLower(choice)]++
			}
		}
	}

	outcome := models.ToolOutcome{Tools: make([]models.ConfirmedTool, 0, len(categories))}
	for _, c := range categories {
		best := models.ConfirmedTool{Category: c.Name, Tool: c.Candidates[0], Votes: -1}
		for _, candidate := range c.Candidates {
			if n := counts[c.Name][strings.ToLower(candidate)]; n > best.Votes {
				best.Tool, best.Votes = candidate, n
			}
		}
		outcome.Tools = append(outcome.Tools, best)
	}
	return outcome
}

// Propose adds a candidate tool to a category. Only non-leader members propose.
func (t *ToolTrack) Propose(ctx context.Context, roomID, memberID uuid.UUID, category, candidate string) (*models.ToolProposal, error) {
	if err := t.guardOpen(ctx, roomID, memberID); err != nil {
		return nil, err
	}
	leader, err := t.rooms.IsLeader(ctx, roomID, memberID)
	if err != nil {
		return nil, err
	}
	if leader {
		return nil, ErrLeaderCannotPropose
	}

	candidate = plainText(candidate)
	cat, ok := models.LookupToolCategory(category)
	if !ok || candidate == "" {
		return nil, fmt.Errorf("%w: unknown category or empty candidate", ErrInvalidPayload)
	}
	if utf8.RuneCountInString(candidate) > maxCandidateLength {
		return nil, fmt.Errorf("%w: candidate longer than %d characters", ErrInvalidPayload, maxCandidateLength)
	}
	if containsFold(cat.Candidates, candidate) {
		return nil, ErrDuplicateProposal
	}

	proposal, err := scanProposal(t.db.Pool.QueryRow(ctx, `
		INSERT INTO tool_proposals (team_room_id, category, candidate, proposer_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+proposalColumns, roomID, cat.Name, candidate, memberID))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateProposal
		}
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}
	return proposal, nil
}

// DecideProposal records the leader's one-time verdict on a pending proposal.
func (t *ToolTrack) DecideProposal(ctx context.Context, roomID, leaderID, proposalID uuid.UUID, approve bool) (*models.ToolProposal, error) {
	if err := t.guardLeader(ctx, roomID, leaderID); err != nil {
		return nil, err
	}
	if err := t.guardUnconfirmed(ctx, roomID); err != nil {
		return nil, err
	}

	decision := models.ProposalRejected
	if approve {
		decision = models.ProposalApproved
	}

	proposal, err := scanProposal(t.db.Pool.QueryRow(ctx, `
		UPDATE tool_proposals SET decision = $1, decided_at = $2
		WHERE id = $3 AND team_room_id = $4 AND decision = $5
		RETURNING `+proposalColumns, decision, t.clock.Now(), proposalID, roomID, models.ProposalPending))
	if err == nil {
		return proposal, nil
	}
	if !errors.Is(err, ErrProposalNotFound) {
		return nil, fmt.Errorf("failed to decide proposal: %w", err)
	}

	var exists bool
	err = t.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM tool_proposals WHERE id = $1 AND team_room_id = $2)
	`, proposalID, roomID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up proposal: %w", err)
	}
	if exists {
		return nil, ErrProposalAlreadyDecided
	}
	return nil, ErrProposalNotFound
}

func (t *ToolTrack) ListProposals(ctx context.Context, roomID uuid.UUID) ([]models.ToolProposal, error) {
	rows, err := t.db.Pool.Query(ctx, `
		SELECT `+proposalColumns+` FROM tool_proposals
		WHERE team_room_id = $1
		ORDER BY created_at
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	proposals := []models.ToolProposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, *p)
	}
	return proposals, rows.Err()
}

func scanProposal(row pgx.Row) (*models.ToolProposal, error) {
	var p models.ToolProposal
	err := row.Scan(&p.ID, &p.TeamRoomID, &p.Category, &p.Candidate, &p.ProposerID, &p.Decision, &p.DecidedAt, &p.CreatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrProposalNotFound
		}
		return nil, err
	}
	return &p, nil
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
