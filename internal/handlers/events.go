package handlers

import (
	"github.com/dimitrije/teamroom-api/internal/middleware"
	"github.com/dimitrije/teamroom-api/internal/sse"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type EventsHandler struct {
	hub         EventHubInterface
	roomService TeamRoomServiceInterface
}

func NewEventsHandler(hub EventHubInterface, roomService TeamRoomServiceInterface) *EventsHandler {
	return &EventsHandler{hub: hub, roomService: roomService}
}

// Stream keeps a server-sent event stream open for one team room and relays its
// setup progress until the client goes away.
func (h *EventsHandler) Stream(c *drift.Context) {
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

	stream := c.SSE()

	client := &sse.Client{
		ID:         uuid.New().String(),
		UserID:     userID,
		TeamRoomID: roomID,
		Send:       make(chan []byte, 64),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	if err := stream.SendJSON(map[string]string{
		"type":         "connected",
		"client_id":    client.ID,
		"team_room_id": roomID.String(),
	}, "system", ""); err != nil {
		return
	}

	done := c.Request.Context().Done()
	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			if err := stream.Send(string(msg), "message", ""); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
