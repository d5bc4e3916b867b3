package ws

import "encoding/json"

// Envelope wraps every WS frame in both directions.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "map_state_update"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON value
}

// outEnvelope is the write-side shape; an absent body marshals away so
// receivers see the field as undefined.
type outEnvelope struct {
	Event string `json:"event"`
	Body  any    `json:"body,omitempty"`
}

// Client → server events.
const (
	EventJoinGame       = "join_game"
	EventMap            = "map"
	EventMapState       = "map_state"
	EventMapStateUpdate = "map_state_update"
	EventManifest       = "manifest"
	EventManifestUpdate = "manifest_update"
	EventPlayerState    = "player_state"
	EventPlayerPointer  = "player_pointer"
	EventSignal         = "signal"
	EventDisconnecting  = "disconnecting"
)

// Server → client events.
const (
	EventAuthError    = "auth_error"
	EventPartyState   = "party_state"
	EventPlayerJoined = "player_joined"
	EventPlayerLeft   = "player_left"
	EventJoinedGame   = "joined_game"
)

// ──────────────────────────── Request DTOs ───────────────────────────────

// JoinGameBody keeps both fields loosely typed: a non-string room id or
// password is a credential failure, not a decode failure.
type JoinGameBody struct {
	RoomID   any `json:"roomId"`
	Password any `json:"password"`
}

// SignalBody is a point-to-point relay request.
type SignalBody struct {
	To     string          `json:"to"`
	Signal json.RawMessage `json:"signal"`
}

// SignalRelay is what the target receives; From lets it reply.
type SignalRelay struct {
	From   string          `json:"from"`
	Signal json.RawMessage `json:"signal"`
}
