package handlers

import (
	"errors"

	"github.com/dimitrije/teamroom-api/internal/middleware"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/dimitrije/teamroom-api/internal/services"
	"github.com/dimitrije/teamroom-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type TeamRoomHandler struct {
	roomService  TeamRoomServiceInterface
	userService  UserServiceInterface
	setupService SetupStarterInterface
	emailService EmailServiceInterface
}

func NewTeamRoomHandler(
	roomService TeamRoomServiceInterface,
	userService UserServiceInterface,
	setupService SetupStarterInterface,
	emailService EmailServiceInterface,
) *TeamRoomHandler {
	return &TeamRoomHandler{
		roomService:  roomService,
		userService:  userService,
		setupService: setupService,
		emailService: emailService,
	}
}

func toTeamRoomResponse(room *models.TeamRoom, role string) dto.TeamRoomResponse {
	return dto.TeamRoomResponse{
		ID:            room.ID,
		Name:          room.Name,
		LeaderID:      room.LeaderID,
		WorkflowState: string(room.WorkflowState),
		Lifecycle:     string(room.Lifecycle),
		Role:          role,
		CreatedAt:     room.CreatedAt,
	}
}

func toUserResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Provider:  user.Provider,
	}
}

// requireMember answers 403/500 itself and reports whether the caller may continue.
func requireMember(c *drift.Context, rooms TeamRoomServiceInterface, roomID, userID uuid.UUID) bool {
	ok, err := rooms.IsMember(c.Request.Context(), roomID, userID)
	if err != nil {
		c.InternalServerError("failed to check membership")
		return false
	}
	if !ok {
		c.Forbidden("not a member of this team room")
		return false
	}
	return true
}

func requireLeader(c *drift.Context, rooms TeamRoomServiceInterface, roomID, userID uuid.UUID) bool {
	ok, err := rooms.IsLeader(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err, "failed to check leadership")
		return false
	}
	if !ok {
		c.Forbidden("only the team leader can do this")
		return false
	}
	return true
}

func (h *TeamRoomHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateTeamRoomRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), req.Name, userID)
	if err != nil {
		c.InternalServerError("failed to create team room")
		return
	}

	_ = c.JSON(201, toTeamRoomResponse(room, models.RoleLeader))
}

func (h *TeamRoomHandler) List(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	rooms, roles, err := h.roomService.GetUserTeamRooms(c.Request.Context(), userID)
	if err != nil {
		c.InternalServerError("failed to get team rooms")
		return
	}

	response := make([]dto.TeamRoomResponse, len(rooms))
	for i := range rooms {
		response[i] = toTeamRoomResponse(&rooms[i], roles[i])
	}

	_ = c.JSON(200, response)
}

func (h *TeamRoomHandler) Get(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	if !requireMember(c, h.roomService, roomID, userID) {
		return
	}

	room, err := h.roomService.GetByID(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err, "failed to get team room")
		return
	}

	role := models.RoleMember
	if room.LeaderID == userID {
		role = models.RoleLeader
	}

	_ = c.JSON(200, toTeamRoomResponse(room, role))
}

func (h *TeamRoomHandler) GetMembers(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	if !requireMember(c, h.roomService, roomID, userID) {
		return
	}

	members, err := h.roomService.GetMembers(c.Request.Context(), roomID)
	if err != nil {
		c.InternalServerError("failed to get members")
		return
	}

	response := make([]dto.TeamRoomMemberResponse, len(members))
	for i, m := range members {
		response[i] = dto.TeamRoomMemberResponse{
			ID:     m.ID,
			UserID: m.UserID,
			Role:   m.Role,
		}
		if m.User != nil {
			user := toUserResponse(m.User)
			response[i].User = &user
		}
	}

	_ = c.JSON(200, response)
}

// AddMember lets the leader add a registered user by email.
func (h *TeamRoomHandler) AddMember(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	var req dto.AddMemberRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Email == "" {
		c.BadRequest("email is required")
		return
	}

	if !requireLeader(c, h.roomService, roomID, userID) {
		return
	}

	ctx := c.Request.Context()

	user, err := h.userService.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.NotFound("user not found")
			return
		}
		c.InternalServerError("failed to look up user")
		return
	}

	if err := h.roomService.AddMember(ctx, roomID, user.ID); err != nil {
		respondError(c, err, "failed to add member")
		return
	}

	h.notifyAdded(c, roomID, userID, user.Email)

	added := toUserResponse(user)
	_ = c.JSON(201, dto.TeamRoomMemberResponse{
		UserID: user.ID,
		Role:   models.RoleMember,
		User:   &added,
	})
}

// notifyAdded is best-effort; the membership already exists.
func (h *TeamRoomHandler) notifyAdded(c *drift.Context, roomID, leaderID uuid.UUID, to string) {
	if h.emailService == nil || !h.emailService.IsConfigured() {
		return
	}

	ctx := c.Request.Context()
	room, err := h.roomService.GetByID(ctx, roomID)
	if err != nil {
		return
	}
	leaderName := ""
	if leader, err := h.userService.GetByID(ctx, leaderID); err == nil {
		leaderName = leader.Name
	}

	_ = h.emailService.SendAddedToTeamRoom(to, room.Name, leaderName)
}

// StartSetup moves the room from PENDING to SETUP and opens its voting window.
func (h *TeamRoomHandler) StartSetup(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	if !requireLeader(c, h.roomService, roomID, userID) {
		return
	}

	setup, err := h.setupService.Start(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err, "failed to start setup")
		return
	}

	_ = c.JSON(201, dto.SetupResponse{
		TeamRoomID:    setup.TeamRoomID,
		Deadline:      setup.Deadline,
		WorkflowState: string(models.WorkflowSetup),
	})
}
