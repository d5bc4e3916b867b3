package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// sender is what the hub and session layer need from a connection. The
// concrete type is clientConn; tests substitute a recorder.
type sender interface {
	ID() string
	Emit(event string, body any) error
	Close(reason string) error
}

type clientConn struct {
	id      string
	rawConn *websocket.Conn
	mu      sync.Mutex
}

func newClientConn(id string, rawConn *websocket.Conn) *clientConn {
	return &clientConn{id: id, rawConn: rawConn}
}

func (c *clientConn) ID() string { return c.id }

// Emit writes one envelope; the mutex keeps frames from interleaving when
// broadcasts and direct emits race.
func (c *clientConn) Emit(event string, body any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return wsjson.Write(ctx, c.rawConn, outEnvelope{Event: event, Body: body})
}

func (c *clientConn) Close(reason string) error {
	return c.rawConn.Close(websocket.StatusGoingAway, reason)
}

var _ sender = (*clientConn)(nil)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 15 * time.Second
)
