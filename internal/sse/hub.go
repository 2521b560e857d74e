package sse

import (
	"encoding/json"
	"sync"

	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
)

const (
	EventSubjectConfirmed = "subject_confirmed"
	EventSetupCompleted   = "setup_completed"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type SubjectConfirmedEvent struct {
	TeamRoomID uuid.UUID      `json:"team_room_id"`
	Subject    models.Subject `json:"subject"`
}

type SetupCompletedEvent struct {
	TeamRoomID uuid.UUID `json:"team_room_id"`
}

// Client is one open event stream. It follows a single team room.
type Client struct {
	ID         string
	UserID     uuid.UUID
	TeamRoomID uuid.UUID
	Send       chan []byte
}

type roomMessage struct {
	teamRoomID uuid.UUID
	event      Event
}

// Hub fans setup progress out to the streams of this process. Events are dropped for
// clients whose buffer is full, and a confirmation may be announced more than once.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomMessage
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomMessage, 256),
		stop:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.event)
			if err != nil {
				continue
			}
			h.mu.RLock()
			for _, client := range h.clients {
				if client.TeamRoomID != msg.teamRoomID {
					continue
				}
				select {
				case client.Send <- data:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stop:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

// publish never blocks the caller; a full queue drops the event.
func (h *Hub) publish(roomID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &roomMessage{teamRoomID: roomID, event: event}:
	default:
	}
}

func (h *Hub) SubjectConfirmed(roomID uuid.UUID, subject models.Subject) {
	h.publish(roomID, Event{
		Type: EventSubjectConfirmed,
		Data: SubjectConfirmedEvent{TeamRoomID: roomID, Subject: subject},
	})
}

func (h *Hub) SetupCompleted(roomID uuid.UUID) {
	h.publish(roomID, Event{
		Type: EventSetupCompleted,
		Data: SetupCompletedEvent{TeamRoomID: roomID},
	})
}
