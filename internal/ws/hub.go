package ws

import (
	"errors"
	"sync"
)

var ErrUnknownConn = errors.New("unknown connection")

// Hub keeps broadcast groups per roomID plus a flat registry of every live
// connection so signal relays can target a connection before it has joined
// any room.
type Hub struct {
	groups sync.Map // roomID -> *group
	conns  sync.Map // connID -> sender
}

func NewHub() *Hub { return &Hub{} }

// Register makes a connection addressable by EmitTo. Idempotent.
func (h *Hub) Register(c sender) {
	h.conns.Store(c.ID(), c)
}

func (h *Hub) Unregister(connID string) {
	h.conns.Delete(connID)
}

// Join adds a connection to a room's broadcast group, creating the group on
// first use. Idempotent.
func (h *Hub) Join(roomID string, c sender) {
	g, _ := h.groups.LoadOrStore(roomID, newGroup())
	g.(*group).add(c)
}

// Leave is idempotent; leaving a room the connection never joined is a no-op.
func (h *Hub) Leave(roomID, connID string) {
	if v, ok := h.groups.Load(roomID); ok {
		v.(*group).remove(connID)
	}
}

// Emit delivers an event to every member of the room.
func (h *Hub) Emit(roomID, event string, body any) {
	if v, ok := h.groups.Load(roomID); ok {
		v.(*group).broadcast(event, body, "")
	}
}

// EmitExcept delivers an event to every member of the room except senderID.
func (h *Hub) EmitExcept(roomID, senderID, event string, body any) {
	if v, ok := h.groups.Load(roomID); ok {
		v.(*group).broadcast(event, body, senderID)
	}
}

// EmitTo delivers an event to one connection anywhere on the hub.
func (h *Hub) EmitTo(connID, event string, body any) error {
	v, ok := h.conns.Load(connID)
	if !ok {
		return ErrUnknownConn
	}
	return v.(sender).Emit(event, body)
}

func (h *Hub) ConnCount() int {
	n := 0
	h.conns.Range(func(_, _ any) bool { n++; return true })
	return n
}

// CloseAll closes every registered connection; used on shutdown so clients
// see a going-away close instead of a dropped socket.
func (h *Hub) CloseAll(reason string) {
	h.conns.Range(func(_, v any) bool {
		_ = v.(sender).Close(reason)
		return true
	})
}
