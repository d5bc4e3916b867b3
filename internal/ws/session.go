package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"vttrelay/internal/auth"
	"vttrelay/internal/monitor"
	"vttrelay/internal/services/gameroom"
)

// ErrNotJoined marks events that are only valid while joined to a room; the
// failure boundary logs it and the sender hears nothing.
var ErrNotJoined = errors.New("connection has not joined a room")

type joinState int

const (
	stateUnjoined joinState = iota
	stateJoined
	stateDisconnected
)

// Session mediates one connection's room membership. Events from a single
// connection arrive in order through the reader loop, so handlers never run
// concurrently with each other; the mutex guards the state fields against
// the disconnect path.
type Session struct {
	conn    sender
	hub     *Hub
	store   *gameroom.Store
	hasher  auth.Hasher
	metrics *monitor.Metrics

	mu     sync.Mutex
	state  joinState
	roomID string
}

func newSession(conn sender, hub *Hub, store *gameroom.Store, hasher auth.Hasher, metrics *monitor.Metrics) *Session {
	return &Session{
		conn:    conn,
		hub:     hub,
		store:   store,
		hasher:  hasher,
		metrics: metrics,
	}
}

func (s *Session) ID() string { return s.conn.ID() }

func (s *Session) joinedRoom() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID, s.state == stateJoined
}

func (s *Session) setJoined(roomID string) {
	s.mu.Lock()
	s.state = stateJoined
	s.roomID = roomID
	s.mu.Unlock()
}

// ─────────────────────────────── join ────────────────────────────────────

// handleJoinGame creates the room on first use, verifies the password
// otherwise, and on success runs the join side effects. auth_error is the
// only failure the client ever sees.
func (s *Session) handleJoinGame(req JoinGameBody) error {
	roomID, okRoom := req.RoomID.(string)
	password, okPass := req.Password.(string)
	if !okRoom || !okPass {
		s.metrics.AuthFailures.Inc()
		return s.conn.Emit(EventAuthError, nil)
	}

	created := false
	if !s.store.RoomExists(roomID) {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		switch err := s.store.CreateRoom(roomID, hash); {
		case err == nil:
			created = true
			s.metrics.RoomsCreated.Inc()
		case errors.Is(err, gameroom.ErrRoomExists):
			// Lost a create race; verify against the winner's hash.
		default:
			return err
		}
	}

	if !created {
		storedHash, err := s.store.PasswordHash(roomID)
		if err != nil {
			return err
		}
		ok, err := s.hasher.Verify(password, storedHash)
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}
		if !ok {
			s.metrics.AuthFailures.Inc()
			return s.conn.Emit(EventAuthError, nil)
		}
	}

	return s.completeJoin(roomID)
}

// completeJoin adds the connection to the broadcast group and emits the
// snapshot sequence: party_state, map_state, map, manifest (any of which may
// be unset), then player_joined to the others and joined_game to everyone.
func (s *Session) completeJoin(roomID string) error {
	s.hub.Join(roomID, s.conn)
	s.setJoined(roomID)

	party, err := s.store.Party(roomID)
	if err != nil {
		return err
	}
	if err := s.conn.Emit(EventPartyState, party); err != nil {
		return err
	}
	snapshots := []struct {
		field gameroom.SharedField
		event string
	}{
		{gameroom.SharedMapState, EventMapState},
		{gameroom.SharedMap, EventMap},
		{gameroom.SharedManifest, EventManifest},
	}
	for _, snap := range snapshots {
		doc, err := s.store.Shared(roomID, snap.field)
		if err != nil {
			return err
		}
		if err := s.conn.Emit(snap.event, doc); err != nil {
			return err
		}
	}

	if err := s.store.SetPlayerState(roomID, s.ID(), gameroom.PlayerState{}); err != nil {
		return err
	}
	s.hub.EmitExcept(roomID, s.ID(), EventPlayerJoined, s.ID())
	s.hub.Emit(roomID, EventJoinedGame, s.ID())
	return nil
}

// ─────────────────────────── shared state ────────────────────────────────

// handleSetShared replaces a shared document wholesale and broadcasts the
// stored value (read-after-write) to the other members.
func (s *Session) handleSetShared(field gameroom.SharedField, event string, body json.RawMessage) error {
	roomID, ok := s.joinedRoom()
	if !ok {
		return ErrNotJoined
	}

	var value any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &value); err != nil {
			return err
		}
	}
	if err := s.store.SetShared(roomID, field, value); err != nil {
		return err
	}
	stored, err := s.store.Shared(roomID, field)
	if err != nil {
		return err
	}
	s.hub.EmitExcept(roomID, s.ID(), event, stored)
	return nil
}

// handleSharedUpdate applies a diff envelope through the store's identity
// guard. Skips are expected under concurrent editing: nothing is broadcast
// and the sender is not told.
func (s *Session) handleSharedUpdate(field gameroom.SharedField, event string, raw json.RawMessage) error {
	roomID, ok := s.joinedRoom()
	if !ok {
		return ErrNotJoined
	}

	var upd gameroom.Update
	if err := json.Unmarshal(raw, &upd); err != nil {
		return err
	}
	res, err := s.store.UpdateShared(roomID, field, upd)
	if err != nil {
		return err
	}
	if res != gameroom.UpdateApplied {
		s.metrics.StaleUpdatesDropped.Inc()
		zap.L().Debug("session.update_skipped",
			zap.String("event", event),
			zap.String("room", roomID),
			zap.String("update_id", upd.ID),
		)
		return nil
	}
	s.hub.EmitExcept(roomID, s.ID(), event, raw)
	return nil
}

// ──────────────────────────────── party ──────────────────────────────────

func (s *Session) handlePlayerState(state gameroom.PlayerState) error {
	roomID, ok := s.joinedRoom()
	if !ok {
		return ErrNotJoined
	}

	if err := s.store.SetPlayerState(roomID, s.ID(), state); err != nil {
		return err
	}
	party, err := s.store.Party(roomID)
	if err != nil {
		return err
	}
	s.hub.EmitExcept(roomID, s.ID(), EventPartyState, party)
	return nil
}

// handlePlayerPointer relays the pointer verbatim; nothing is stored.
func (s *Session) handlePlayerPointer(raw json.RawMessage) error {
	roomID, ok := s.joinedRoom()
	if !ok {
		return ErrNotJoined
	}
	s.hub.EmitExcept(roomID, s.ID(), EventPlayerPointer, raw)
	return nil
}

// handleSignal relays a signaling payload to one connection; valid whether
// or not the sender has joined a room.
func (s *Session) handleSignal(req SignalBody) error {
	if req.To == "" {
		return errors.New("signal: missing target connection id")
	}
	if err := s.hub.EmitTo(req.To, EventSignal, SignalRelay{From: s.ID(), Signal: req.Signal}); err != nil {
		return fmt.Errorf("signal to %s: %w", req.To, err)
	}
	return nil
}

// ────────────────────────────── disconnect ───────────────────────────────

// handleDisconnect fires once per connection. Remaining members hear
// player_left followed by the shrunken party_state.
func (s *Session) handleDisconnect() {
	s.mu.Lock()
	if s.state == stateDisconnected {
		s.mu.Unlock()
		return
	}
	roomID := s.roomID
	joined := s.state == stateJoined
	s.state = stateDisconnected
	s.roomID = ""
	s.mu.Unlock()

	s.hub.Unregister(s.ID())
	if !joined {
		return
	}

	s.hub.Leave(roomID, s.ID())
	s.hub.Emit(roomID, EventPlayerLeft, s.ID())
	if err := s.store.RemovePlayer(roomID, s.ID()); err != nil {
		zap.L().Warn("session.disconnect", zap.String("room", roomID), zap.Error(err))
		return
	}
	party, err := s.store.Party(roomID)
	if err != nil {
		zap.L().Warn("session.disconnect", zap.String("room", roomID), zap.Error(err))
		return
	}
	s.hub.Emit(roomID, EventPartyState, party)
}
