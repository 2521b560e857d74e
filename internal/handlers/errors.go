package handlers

import (
	"errors"

	"github.com/dimitrije/teamroom-api/internal/services"
	"github.com/dimitrije/teamroom-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

// conflictCodes lets clients tell 409s apart without parsing messages.
var conflictCodes = []struct {
	err  error
	code string
}{
	{services.ErrDuplicateVote, "ALREADY_SUBMITTED"},
	{services.ErrAlreadyConfirmed, "ALREADY_CONFIRMED"},
	{services.ErrDuplicateProposal, "DUPLICATE_PROPOSAL"},
	{services.ErrProposalAlreadyDecided, "ALREADY_DECIDED"},
	{services.ErrInvalidTransition, "INVALID_TRANSITION"},
	{services.ErrAlreadyTeamMember, "ALREADY_MEMBER"},
}

// respondError maps service errors onto HTTP statuses. Anything unrecognised is a
// 500 with the fallback message so storage details never leak.
func respondError(c *drift.Context, err error, fallback string) {
	for _, cc := range conflictCodes {
		if errors.Is(err, cc.err) {
			_ = c.JSON(409, dto.ErrorResponse{Code: cc.code, Message: cc.err.Error()})
			return
		}
	}

	switch {
	case errors.Is(err, services.ErrInvalidPayload):
		c.BadRequest(err.Error())
	case errors.Is(err, services.ErrNotTeamMember),
		errors.Is(err, services.ErrNotLeader),
		errors.Is(err, services.ErrLeaderCannotPropose):
		c.Forbidden(err.Error())
	case errors.Is(err, services.ErrTeamRoomNotFound),
		errors.Is(err, services.ErrSetupNotFound),
		errors.Is(err, services.ErrProposalNotFound),
		errors.Is(err, services.ErrUnknownSubject),
		errors.Is(err, services.ErrUserNotFound):
		c.NotFound(err.Error())
	default:
		c.InternalServerError(fallback)
	}
}

// roomParam parses the :id path parameter, answering 400 when it is malformed.
func roomParam(c *drift.Context) (uuid.UUID, bool) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team room id")
		return uuid.Nil, false
	}
	return roomID, true
}
