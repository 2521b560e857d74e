package integration

import (
	"context"
	"testing"

	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/dimitrije/teamroom-api/internal/services"
	"github.com/dimitrije/teamroom-api/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamRoomService_Integration_CreateAndMembers(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	svc := services.NewTeamRoomService(tdb.DB)
	ctx := context.Background()

	leader := fixtures.CreateUser(t, testutil.WithName("Mina"))
	member := fixtures.CreateUser(t)

	room, err := svc.Create(ctx, "Capstone", leader.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowPending, room.WorkflowState)
	assert.Equal(t, models.LifecycleActive, room.Lifecycle)

	isLeader, err := svc.IsLeader(ctx, room.ID, leader.ID)
	require.NoError(t, err)
	assert.True(t, isLeader)

	require.NoError(t, svc.AddMember(ctx, room.ID, member.ID))
	assert.ErrorIs(t, svc.AddMember(ctx, room.ID, member.ID), services.ErrAlreadyTeamMember)

	isMember, err := svc.IsMember(ctx, room.ID, member.ID)
	require.NoError(t, err)
	assert.True(t, isMember)

	isLeader, err = svc.IsLeader(ctx, room.ID, member.ID)
	require.NoError(t, err)
	assert.False(t, isLeader)

	members, err := svc.GetMembers(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, models.RoleLeader, members[0].Role)
	assert.Equal(t, "Mina", members[0].User.Name)

	rooms, roles, err := svc.GetUserTeamRooms(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, room.ID, rooms[0].ID)
	assert.Equal(t, []string{models.RoleMember}, roles)
}

func TestTeamRoomService_Integration_UnknownRoom(t *testing.T) {
	tdb := setupTest(t)
	svc := services.NewTeamRoomService(tdb.DB)
	ctx := context.Background()

	_, err := svc.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, services.ErrTeamRoomNotFound)

	_, err = svc.IsLeader(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, services.ErrTeamRoomNotFound)
}
