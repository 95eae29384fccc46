package backend

const (
	RoomPropQueue   = "queue"
	RoomPropVersion = "version"
)

// Properties is a custom property bag. Values are strings, nested string tables
// (map[string]string) or, after a trip through a JSON transport, map[string]any.
type Properties map[string]any

// Clone returns a shallow copy with nested string tables copied too.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		if m, ok := v.(map[string]string); ok {
			cp := make(map[string]string, len(m))
			for mk, mv := range m {
				cp[mk] = mv
			}
			v = cp
		}
		out[k] = v
	}
	return out
}

// Matches reports whether every key in filter is present in p with an equal string value.
func (p Properties) Matches(filter Properties) bool {
	for k, want := range filter {
		got, ok := p[k]
		if !ok {
			return false
		}
		ws, wok := want.(string)
		gs, gok := got.(string)
		if !wok || !gok || ws != gs {
			return false
		}
	}
	return true
}

// RoomOptions configures a room at creation time.
type RoomOptions struct {
	MaxPlayers uint8      `json:"max_players"`
	Visible    bool       `json:"visible"`
	Open       bool       `json:"open"`
	Properties Properties `json:"properties,omitempty"`

	// LobbyKeys lists the Properties keys exposed to matchmaking.
	LobbyKeys []string `json:"lobby_keys,omitempty"`
}

// Clone returns a deep enough copy that mutating the result leaves o untouched.
func (o RoomOptions) Clone() RoomOptions {
	o.Properties = o.Properties.Clone()
	if o.LobbyKeys != nil {
		o.LobbyKeys = append([]string(nil), o.LobbyKeys...)
	}
	return o
}
