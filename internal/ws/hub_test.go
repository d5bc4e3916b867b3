package ws

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a test double for the sender interface; it records every
// emitted envelope.
type fakeConn struct {
	id       string
	mu       sync.Mutex
	events   []recordedEvent
	failEmit bool
	closed   bool
}

type recordedEvent struct {
	event string
	body  any
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Emit(event string, body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEmit {
		return errors.New("emit failed")
	}
	f.events = append(f.events, recordedEvent{event: event, body: body})
	return nil
}

func (f *fakeConn) Close(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) recorded() []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeConn) named(event string) []recordedEvent {
	var out []recordedEvent
	for _, e := range f.recorded() {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func TestHubJoinIsIdempotent(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{id: "a"}
	hub.Join("room", a)
	hub.Join("room", a)

	hub.Emit("room", "ping", nil)
	assert.Len(t, a.recorded(), 1)
}

func TestHubEmitExceptSkipsSender(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{id: "a"}
	b := &fakeConn{id: "b"}
	hub.Join("room", a)
	hub.Join("room", b)

	hub.EmitExcept("room", "a", "ping", "hello")

	assert.Empty(t, a.recorded())
	require.Len(t, b.recorded(), 1)
	assert.Equal(t, recordedEvent{event: "ping", body: "hello"}, b.recorded()[0])
}

func TestHubLeave(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{id: "a"}
	hub.Join("room", a)
	hub.Leave("room", "a")
	hub.Leave("room", "a")      // idempotent
	hub.Leave("other-room", "a") // never joined: no-op

	hub.Emit("room", "ping", nil)
	assert.Empty(t, a.recorded())
}

func TestHubEmitToTargetsOneConn(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{id: "a"}
	b := &fakeConn{id: "b"}
	hub.Register(a)
	hub.Register(b)

	require.NoError(t, hub.EmitTo("b", "signal", "payload"))
	assert.Empty(t, a.recorded())
	assert.Len(t, b.recorded(), 1)

	assert.ErrorIs(t, hub.EmitTo("nope", "signal", nil), ErrUnknownConn)

	hub.Unregister("b")
	assert.ErrorIs(t, hub.EmitTo("b", "signal", nil), ErrUnknownConn)
}

func TestHubBroadcastDropsFailingConns(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{id: "a", failEmit: true}
	b := &fakeConn{id: "b"}
	hub.Join("room", a)
	hub.Join("room", b)

	hub.Emit("room", "ping", nil)
	assert.Len(t, b.recorded(), 1)

	// The failing conn is out of the group; the healthy one still hears.
	a.failEmit = false
	hub.Emit("room", "ping", nil)
	assert.Empty(t, a.recorded())
	assert.Len(t, b.recorded(), 2)
}

func TestHubCloseAll(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{id: "a"}
	b := &fakeConn{id: "b"}
	hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 2, hub.ConnCount())

	hub.CloseAll("bye")
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestHubGroupIsolation(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{id: "a"}
	b := &fakeConn{id: "b"}
	hub.Join("room-a", a)
	hub.Join("room-b", b)

	hub.Emit("room-a", "ping", nil)
	assert.Len(t, a.recorded(), 1)
	assert.Empty(t, b.recorded())
}
