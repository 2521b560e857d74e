package handlers

import (
	"encoding/json"
	"errors"

	"github.com/dimitrije/teamroom-api/internal/clock"
	"github.com/dimitrije/teamroom-api/internal/middleware"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/dimitrije/teamroom-api/internal/services"
	"github.com/dimitrije/teamroom-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type SetupHandler struct {
	roomService     TeamRoomServiceInterface
	coordinator     CoordinatorInterface
	proposalService ToolProposalServiceInterface
	ruleService     RuleServiceInterface
	clock           clock.Clock
}

func NewSetupHandler(
	roomService TeamRoomServiceInterface,
	coordinator CoordinatorInterface,
	proposalService ToolProposalServiceInterface,
	ruleService RuleServiceInterface,
	clk clock.Clock,
) *SetupHandler {
	return &SetupHandler{
		roomService:     roomService,
		coordinator:     coordinator,
		proposalService: proposalService,
		ruleService:     ruleService,
		clock:           clk,
	}
}

// memberRoom runs the checks shared by every setup route and returns the caller and room.
func (h *SetupHandler) memberRoom(c *drift.Context) (uuid.UUID, uuid.UUID, bool) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return uuid.Nil, uuid.Nil, false
	}

	roomID, ok := roomParam(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	if !requireMember(c, h.roomService, roomID, userID) {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, roomID, true
}

func subjectParam(c *drift.Context) (models.Subject, bool) {
	subject, ok := models.ParseSubject(c.Param("subject"))
	if !ok {
		c.NotFound("unknown setup subject")
		return "", false
	}
	return subject, true
}

func (h *SetupHandler) Get(c *drift.Context) {
	_, roomID, ok := h.memberRoom(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	setup, err := h.coordinator.Setup(ctx, roomID)
	if err != nil {
		respondError(c, err, "failed to get setup")
		return
	}

	room, err := h.roomService.GetByID(ctx, roomID)
	if err != nil {
		respondError(c, err, "failed to get team room")
		return
	}

	_ = c.JSON(200, dto.SetupResponse{
		TeamRoomID:       setup.TeamRoomID,
		Deadline:         setup.Deadline,
		ToolCompleted:    setup.ToolCompleted,
		RuleCompleted:    setup.RuleCompleted,
		MeetingCompleted: setup.MeetingCompleted,
		WorkflowState:    string(room.WorkflowState),
		Expired:          setup.IsExpired(h.clock.Now()),
	})
}

// SubmitVote records the caller's ballot for one subject. Confirmation that the
// ballot may trigger happens behind the coordinator and never changes the status.
func (h *SetupHandler) SubmitVote(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	subject, ok := subjectParam(c)
	if !ok {
		return
	}

	var payload json.RawMessage
	if err := c.BindJSON(&payload); err != nil || len(payload) == 0 {
		c.BadRequest("invalid request body")
		return
	}

	if err := h.coordinator.Submit(c.Request.Context(), roomID, userID, subject, payload); err != nil {
		respondError(c, err, "failed to submit vote")
		return
	}

	_ = c.JSON(201, map[string]string{"subject": string(subject), "message": "vote recorded"})
}

func (h *SetupHandler) Participation(c *drift.Context) {
	_, roomID, ok := h.memberRoom(c)
	if !ok {
		return
	}

	subject, ok := subjectParam(c)
	if !ok {
		return
	}

	p, err := h.coordinator.Participation(c.Request.Context(), roomID, subject)
	if err != nil {
		respondError(c, err, "failed to get participation")
		return
	}

	if p.Voted == nil {
		p.Voted = []models.Participant{}
	}
	if p.NotVoted == nil {
		p.NotVoted = []models.Participant{}
	}

	_ = c.JSON(200, p)
}

// Outcome reports "not yet confirmed" as a regular 200 response.
func (h *SetupHandler) Outcome(c *drift.Context) {
	_, roomID, ok := h.memberRoom(c)
	if !ok {
		return
	}

	subject, ok := subjectParam(c)
	if !ok {
		return
	}

	outcome, err := h.coordinator.Outcome(c.Request.Context(), roomID, subject)
	if errors.Is(err, services.ErrOutcomeNotFound) {
		_ = c.JSON(200, dto.OutcomeResponse{Confirmed: false})
		return
	}
	if err != nil {
		respondError(c, err, "failed to get outcome")
		return
	}

	confirmedAt := outcome.ConfirmedAt
	_ = c.JSON(200, dto.OutcomeResponse{
		Confirmed:   true,
		Outcome:     outcome.Payload,
		ConfirmedAt: &confirmedAt,
	})
}

func toProposalResponse(p *models.ToolProposal) dto.ToolProposalResponse {
	return dto.ToolProposalResponse{
		ID:         p.ID,
		Category:   p.Category,
		Candidate:  p.Candidate,
		ProposerID: p.ProposerID,
		Decision:   string(p.Decision),
		DecidedAt:  p.DecidedAt,
		CreatedAt:  p.CreatedAt,
	}
}

func (h *SetupHandler) CreateProposal(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	var req dto.CreateToolProposalRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Category == "" || req.Candidate == "" {
		c.BadRequest("category and candidate are required")
		return
	}

	proposal, err := h.proposalService.Propose(c.Request.Context(), roomID, userID, req.Category, req.Candidate)
	if err != nil {
		respondError(c, err, "failed to create proposal")
		return
	}

	_ = c.JSON(201, toProposalResponse(proposal))
}

func (h *SetupHandler) ListProposals(c *drift.Context) {
	_, roomID, ok := h.memberRoom(c)
	if !ok {
		return
	}

	proposals, err := h.proposalService.ListProposals(c.Request.Context(), roomID)
	if err != nil {
		c.InternalServerError("failed to list proposals")
		return
	}

	response := make([]dto.ToolProposalResponse, len(proposals))
	for i := range proposals {
		response[i] = toProposalResponse(&proposals[i])
	}

	_ = c.JSON(200, response)
}

// DecideProposal approves or rejects a pending proposal. Resolving the last one may
// make the tool subject confirmable, so the coordinator gets a chance to advance.
func (h *SetupHandler) DecideProposal(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	proposalID, err := uuid.Parse(c.Param("proposalId"))
	if err != nil {
		c.BadRequest("invalid proposal id")
		return
	}

	var req dto.DecideToolProposalRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Approve == nil {
		c.BadRequest("approve is required")
		return
	}

	ctx := c.Request.Context()

	proposal, err := h.proposalService.DecideProposal(ctx, roomID, userID, proposalID, *req.Approve)
	if err != nil {
		respondError(c, err, "failed to decide proposal")
		return
	}

	h.coordinator.Advance(ctx, roomID, models.SubjectTool)

	_ = c.JSON(200, toProposalResponse(proposal))
}

func toRuleResponse(r *models.RuleCandidate) dto.RuleResponse {
	return dto.RuleResponse{
		ID:        r.ID,
		Content:   r.Content,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}

func (h *SetupHandler) CreateRule(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	var req dto.CreateRuleRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	rule, err := h.ruleService.AddRule(c.Request.Context(), roomID, userID, req.Content)
	if err != nil {
		respondError(c, err, "failed to add rule")
		return
	}

	_ = c.JSON(201, toRuleResponse(rule))
}

func (h *SetupHandler) ListRules(c *drift.Context) {
	_, roomID, ok := h.memberRoom(c)
	if !ok {
		return
	}

	rules, err := h.ruleService.ListRules(c.Request.Context(), roomID)
	if err != nil {
		c.InternalServerError("failed to list rules")
		return
	}

	response := make([]dto.RuleResponse, len(rules))
	for i := range rules {
		response[i] = toRuleResponse(&rules[i])
	}

	_ = c.JSON(200, response)
}
