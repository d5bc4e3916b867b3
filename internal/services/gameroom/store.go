// Package gameroom holds the in-memory table of active rooms: password
// hashes, party membership and the shared map/mapState/manifest documents.
// Rooms live until the process exits; nothing is persisted.
package gameroom

import (
	"errors"
	"sync"

	"vttrelay/internal/changeset"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
)

// ApplyResult reports what UpdateShared did with an update. Skips are
// expected under concurrent editing and are not errors.
type ApplyResult int

const (
	// UpdateApplied means the changes were applied to the stored document.
	UpdateApplied ApplyResult = iota
	// UpdateSkippedMissing means the room holds no document for the field.
	UpdateSkippedMissing
	// UpdateSkippedStale means the document's identity did not match the
	// update's id; the update was computed against an older document.
	UpdateSkippedStale
)

type room struct {
	mu           sync.RWMutex
	passwordHash string
	party        Party
	shared       map[SharedField]any
}

func newRoom(passwordHash string) *room {
	return &room{
		passwordHash: passwordHash,
		party:        make(Party),
		shared:       make(map[SharedField]any),
	}
}

// Store is the only shared mutable resource in the server. Locking is
// per-room so unrelated rooms never serialize behind each other; the table
// mutex only guards the room map itself.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func NewStore() *Store {
	return &Store{rooms: make(map[string]*room)}
}

func (s *Store) get(roomID string) (*room, error) {
	s.mu.RLock()
	r, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// CreateRoom inserts a new room with an empty party and no shared state.
func (s *Store) CreateRoom(roomID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; ok {
		return ErrRoomExists
	}
	s.rooms[roomID] = newRoom(passwordHash)
	return nil
}

func (s *Store) RoomExists(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[roomID]
	return ok
}

func (s *Store) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func (s *Store) PasswordHash(roomID string) (string, error) {
	r, err := s.get(roomID)
	if err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.passwordHash, nil
}

func (s *Store) SetPasswordHash(roomID, hash string) error {
	r, err := s.get(roomID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passwordHash = hash
	return nil
}

// Party returns a copy of the room's party map; mutating it does not touch
// the store.
func (s *Store) Party(roomID string) (Party, error) {
	r, err := s.get(roomID)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(Party, len(r.party))
	for id, ps := range r.party {
		out[id] = ps
	}
	return out, nil
}

func (s *Store) SetPlayerState(roomID, connID string, state PlayerState) error {
	r, err := s.get(roomID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.party[connID] = state
	return nil
}

// RemovePlayer deletes the connection's party entry; absent entries are a
// no-op.
func (s *Store) RemovePlayer(roomID, connID string) error {
	r, err := s.get(roomID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.party, connID)
	return nil
}

// ClearRoom empties the party and shared state but keeps the room and its
// password hash.
func (s *Store) ClearRoom(roomID string) error {
	r, err := s.get(roomID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.party = make(Party)
	r.shared = make(map[SharedField]any)
	return nil
}

// SetShared stores a full replacement for a shared field. A nil value
// deletes the field instead.
func (s *Store) SetShared(roomID string, field SharedField, value any) error {
	r, err := s.get(roomID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if value == nil {
		delete(r.shared, field)
		return nil
	}
	r.shared[field] = value
	return nil
}

// Shared returns a deep copy of the stored document (nil if the field is
// unset) so callers can marshal it without holding the room lock.
func (s *Store) Shared(roomID string, field SharedField) (any, error) {
	r, err := s.get(roomID)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.shared[field]
	if !ok {
		return nil, nil
	}
	return changeset.Clone(doc), nil
}

// UpdateShared applies a diff to a shared document under the room lock. The
// update lands only if the field is set and the document's identity field
// matches the update's id; otherwise it is skipped and the caller decides
// whether that is worth a log line.
func (s *Store) UpdateShared(roomID string, field SharedField, upd Update) (ApplyResult, error) {
	r, err := s.get(roomID)
	if err != nil {
		return UpdateSkippedMissing, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.shared[field]
	if !ok {
		return UpdateSkippedMissing, nil
	}
	if identityOf(field, doc) != upd.ID {
		return UpdateSkippedStale, nil
	}
	r.shared[field] = changeset.Apply(doc, upd.Changes)
	return UpdateApplied, nil
}

func identityOf(field SharedField, doc any) string {
	key, ok := sharedIdentityKey[field]
	if !ok {
		return ""
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return ""
	}
	id, _ := m[key].(string)
	return id
}
