package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dimitrije/teamroom-api/internal/clock"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/dimitrije/teamroom-api/internal/services"
	"github.com/dimitrije/teamroom-api/internal/workers"
	"github.com/dimitrije/teamroom-api/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const setupWindow = 6 * time.Hour

// scenarioStart is a Wednesday morning.
var scenarioStart = time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

func setupTest(t *testing.T) *testutil.TestDB {
	t.Helper()
	return testutil.SetupTestDB(t)
}

// engine is the full confirmation stack on a real database and a fake clock.
type engine struct {
	tdb         *testutil.TestDB
	fixtures    *testutil.Fixtures
	clock       *clock.Fake
	rooms       *services.TeamRoomService
	setups      *services.SetupService
	gate        *services.WorkflowGate
	outcomes    *services.OutcomeStore
	tools       *services.ToolTrack
	rules       *services.RuleTrack
	coordinator *services.Coordinator
	sweeper     *workers.Sweeper
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	tdb := setupTest(t)
	logger := zap.NewNop()
	clk := clock.NewFake(scenarioStart)

	rooms := services.NewTeamRoomService(tdb.DB)
	gate := services.NewWorkflowGate(tdb.DB, nil, logger)
	setups := services.NewSetupService(tdb.DB, gate, clk, setupWindow)
	ledger := services.NewVoteLedger(tdb.DB)
	outcomes := services.NewOutcomeStore(tdb.DB, clk)
	tools := services.NewToolTrack(tdb.DB, ledger, outcomes, rooms, clk)
	rules := services.NewRuleTrack(tdb.DB, ledger, outcomes, rooms, clk)
	meeting := services.NewMeetingTrack(ledger, outcomes, rooms, clk, time.Hour)
	coordinator := services.NewCoordinator(setups, gate, outcomes, logger, tools, rules, meeting)
	lease := services.NewLease(tdb.DB, "confirmation-sweeper", "test-"+uuid.NewString(), time.Minute)

	return &engine{
		tdb:         tdb,
		fixtures:    testutil.NewFixtures(tdb.DB),
		clock:       clk,
		rooms:       rooms,
		setups:      setups,
		gate:        gate,
		outcomes:    outcomes,
		tools:       tools,
		rules:       rules,
		coordinator: coordinator,
		sweeper:     workers.NewSweeper(coordinator, lease, clk, logger, nil, time.Minute, 30*time.Second),
	}
}

// startedRoom creates a room with a leader and n further members and starts its setup.
func (e *engine) startedRoom(t *testing.T, n int) (*models.TeamRoom, *models.User, []*models.User) {
	t.Helper()
	leader := e.fixtures.CreateUser(t)
	room := e.fixtures.CreateTeamRoom(t, leader)
	members := make([]*models.User, n)
	for i := range members {
		members[i] = e.fixtures.CreateUser(t)
		e.fixtures.AddMember(t, room, members[i])
	}
	_, err := e.setups.Start(context.Background(), room.ID)
	require.NoError(t, err)
	return room, leader, members
}

func (e *engine) workflowState(t *testing.T, roomID uuid.UUID) models.WorkflowState {
	t.Helper()
	room, err := e.rooms.GetByID(context.Background(), roomID)
	require.NoError(t, err)
	return room.WorkflowState
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func toolBallot(t *testing.T, messenger, docs, tracker string) json.RawMessage {
	return mustJSON(t, map[string]any{"choices": map[string]string{
		"messenger":     messenger,
		"docs":          docs,
		"issue_tracker": tracker,
	}})
}

func meetingBallot(t *testing.T, slots ...models.TimeSlot) json.RawMessage {
	return mustJSON(t, map[string]any{"slots": slots})
}

func ruleBallot(t *testing.T, ruleID uuid.UUID, agree bool) json.RawMessage {
	return mustJSON(t, map[string]any{"rule_id": ruleID, "agree": agree})
}
