package gameroom

import "vttrelay/internal/changeset"

// SharedField names the room-wide documents members can replace or patch.
type SharedField string

const (
	SharedMap      SharedField = "map"
	SharedMapState SharedField = "mapState"
	SharedManifest SharedField = "manifest"
)

// sharedIdentityKey names the field inside each shared document that an
// Update's id is matched against. The map descriptor has no update event.
var sharedIdentityKey = map[SharedField]string{
	SharedMapState: "mapId",
	SharedManifest: "mapId",
}

// Timer is a countdown owned by a single connection.
type Timer struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// DiceRoll is one roll; Roll is a number once revealed, "unknown" until then.
type DiceRoll struct {
	Type string `json:"type"`
	Roll any    `json:"roll"`
}

type Dice struct {
	Share bool       `json:"share"`
	Rolls []DiceRoll `json:"rolls"`
}

// PlayerState is replaced wholesale on every player_state event and removed
// on disconnect.
type PlayerState struct {
	Nickname  string `json:"nickname"`
	Timer     *Timer `json:"timer,omitempty"`
	Dice      *Dice  `json:"dice,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

// Party maps connection id to the player's last published state.
type Party map[string]PlayerState

// Update is the diff envelope carried by map_state_update and
// manifest_update. ID must match the target document's identity field or the
// update is treated as stale.
type Update struct {
	ID      string                `json:"id"`
	Changes []changeset.Operation `json:"changes"`
}
