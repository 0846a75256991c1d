package signal

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/polymeet/gateway/internal/session"
)

// client wraps a websocket connection with a write mutex; gorilla conns do
// not allow concurrent writers.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *client) writeBinary(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Hub tracks which websocket belongs to which participant in which room and
// fans signaling and subtitle traffic out. Clients whose writes fail are
// pruned on the spot.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*client
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[string]*client)}
}

// Add registers a participant's connection.
func (h *Hub) Add(roomID, participantID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]*client)
	}
	h.rooms[roomID][participantID] = &client{conn: conn}
	slog.Info("signal client joined", "room_id", roomID, "participant_id", participantID, "room_size", len(h.rooms[roomID]))
}

// Remove drops a participant's connection, deleting the room when empty.
// Returns true when the room is now empty.
func (h *Hub) Remove(roomID, participantID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.rooms[roomID]
	if clients == nil {
		return false
	}
	delete(clients, participantID)
	if len(clients) == 0 {
		delete(h.rooms, roomID)
		slog.Info("signal room emptied", "room_id", roomID)
		return true
	}
	return false
}

// RoomSize reports how many clients a room holds.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) clientsExcept(roomID, exceptID string) map[string]*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]*client, len(h.rooms[roomID]))
	for id, c := range h.rooms[roomID] {
		if id == exceptID {
			continue
		}
		out[id] = c
	}
	return out
}

func (h *Hub) prune(roomID string, ids []string) {
	for _, id := range ids {
		h.Remove(roomID, id)
	}
}

// Relay sends env to every room client except the sender.
func (h *Hub) Relay(roomID, senderID string, env Envelope) {
	var failed []string
	for id, c := range h.clientsExcept(roomID, senderID) {
		if err := c.writeJSON(env); err != nil {
			slog.Warn("signal relay failed", "room_id", roomID, "participant_id", id, "error", err)
			failed = append(failed, id)
		}
	}
	h.prune(roomID, failed)
}

// SendTo delivers env to a single participant. Unknown targets are dropped.
func (h *Hub) SendTo(roomID, participantID string, env Envelope) {
	h.mu.RLock()
	c := h.rooms[roomID][participantID]
	h.mu.RUnlock()
	if c == nil {
		slog.Warn("signal target not in room", "room_id", roomID, "participant_id", participantID)
		return
	}
	if err := c.writeJSON(env); err != nil {
		slog.Warn("signal send failed", "room_id", roomID, "participant_id", participantID, "error", err)
		h.Remove(roomID, participantID)
	}
}

// BroadcastSubtitle pushes a finished subtitle to every client in the room,
// sender included; the speaker's own UI shows it too.
func (h *Hub) BroadcastSubtitle(roomID string, sub session.Subtitle) {
	env, err := NewEnvelope(TypeSubtitle, roomID, sub.ParticipantID, sub)
	if err != nil {
		slog.Warn("subtitle envelope failed", "error", err)
		return
	}
	var failed []string
	for id, c := range h.clientsExcept(roomID, "") {
		if werr := c.writeJSON(env); werr != nil {
			failed = append(failed, id)
		}
	}
	h.prune(roomID, failed)
}

// BroadcastRoster pushes the full participant list to the room.
func (h *Hub) BroadcastRoster(roomID string, participants []session.Participant) {
	env, err := NewEnvelope(TypeRoster, roomID, "", participants)
	if err != nil {
		slog.Warn("roster envelope failed", "error", err)
		return
	}
	var failed []string
	for id, c := range h.clientsExcept(roomID, "") {
		if werr := c.writeJSON(env); werr != nil {
			failed = append(failed, id)
		}
	}
	h.prune(roomID, failed)
}

// BroadcastSpeaker announces the active speaker ("" clears it).
func (h *Hub) BroadcastSpeaker(roomID, participantID string) {
	env := Envelope{Type: TypeSpeaker, RoomID: roomID, ParticipantID: participantID}
	var failed []string
	for id, c := range h.clientsExcept(roomID, "") {
		if werr := c.writeJSON(env); werr != nil {
			failed = append(failed, id)
		}
	}
	h.prune(roomID, failed)
}

// BroadcastBinary ships synthesized audio frames to every room client.
func (h *Hub) BroadcastBinary(roomID string, data []byte) {
	var failed []string
	for id, c := range h.clientsExcept(roomID, "") {
		if err := c.writeBinary(data); err != nil {
			failed = append(failed, id)
		}
	}
	h.prune(roomID, failed)
}
