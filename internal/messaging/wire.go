package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pixil98/go-vrlobby/internal/backend"
)

// Request subjects served by the lobby.
const (
	SubjectConnect      = "lobby.connect"
	SubjectDisconnect   = "lobby.disconnect"
	SubjectJoinRandom   = "lobby.join_random"
	SubjectCreate       = "lobby.create"
	SubjectJoinOrCreate = "lobby.join_or_create"
	SubjectLeave        = "lobby.leave"
	SubjectProperties   = "lobby.props"

	// SubjectAll matches every request subject.
	SubjectAll = "lobby.>"

	playerSubjectPrefix = "player."
)

var ErrUnknownEvent = errors.New("unknown event type")

// PlayerSubject carries the events for one connected player.
func PlayerSubject(playerID string) string {
	return playerSubjectPrefix + playerID
}

// Request is the body of every lobby request. Fields unused by a subject are left empty.
type Request struct {
	PlayerID   string               `json:"player_id"`
	AppID      string               `json:"app_id,omitempty"`
	VoiceAppID string               `json:"voice_app_id,omitempty"`
	Region     string               `json:"region,omitempty"`
	Auth       *backend.AuthValues  `json:"auth,omitempty"`
	NickName   string               `json:"nick_name,omitempty"`
	Room       string               `json:"room,omitempty"`
	Filter     backend.Properties   `json:"filter,omitempty"`
	MaxPlayers uint8                `json:"max_players,omitempty"`
	Options    *backend.RoomOptions `json:"options,omitempty"`
	Properties backend.Properties   `json:"properties,omitempty"`
}

// Reply answers a Request. A non-zero Code is a failure.
type Reply struct {
	Code    int16  `json:"code"`
	Message string `json:"message,omitempty"`
	Room    string `json:"room,omitempty"`
}

func (r Reply) Err() error {
	if r.Code == backend.CodeOK {
		return nil
	}
	return &backend.RemoteError{Code: r.Code, Message: r.Message}
}

const (
	eventConnectedToMaster = "connected_to_master"
	eventJoinedRoom        = "joined_room"
	eventLeftRoom          = "left_room"
	eventDisconnected      = "disconnected"
	eventJoinRandomFailed  = "join_random_failed"
	eventJoinRoomFailed    = "join_room_failed"
	eventCreateRoomFailed  = "create_room_failed"
	eventPlayerProperties  = "player_properties"
)

// EventMessage is the wire form of a backend.Event published on a player subject.
type EventMessage struct {
	Type       string             `json:"type"`
	Room       string             `json:"room,omitempty"`
	Cause      string             `json:"cause,omitempty"`
	Code       int16              `json:"code,omitempty"`
	Message    string             `json:"message,omitempty"`
	PlayerID   string             `json:"player_id,omitempty"`
	Properties backend.Properties `json:"properties,omitempty"`
}

func EncodeEvent(ev backend.Event) ([]byte, error) {
	var m EventMessage
	switch e := ev.(type) {
	case backend.ConnectedToMaster:
		m.Type = eventConnectedToMaster
	case backend.JoinedRoom:
		m = EventMessage{Type: eventJoinedRoom, Room: e.Room}
	case backend.LeftRoom:
		m.Type = eventLeftRoom
	case backend.Disconnected:
		m = EventMessage{Type: eventDisconnected, Cause: e.Cause}
	case backend.JoinRandomFailed:
		m = EventMessage{Type: eventJoinRandomFailed, Code: e.Code, Message: e.Message}
	case backend.JoinRoomFailed:
		m = EventMessage{Type: eventJoinRoomFailed, Code: e.Code, Message: e.Message}
	case backend.CreateRoomFailed:
		m = EventMessage{Type: eventCreateRoomFailed, Code: e.Code, Message: e.Message}
	case backend.PlayerPropertiesChanged:
		m = EventMessage{Type: eventPlayerProperties, PlayerID: e.PlayerID, Properties: e.Properties}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
	return json.Marshal(m)
}

func DecodeEvent(data []byte) (backend.Event, error) {
	var m EventMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}

	switch m.Type {
	case eventConnectedToMaster:
		return backend.ConnectedToMaster{}, nil
	case eventJoinedRoom:
		return backend.JoinedRoom{Room: m.Room}, nil
	case eventLeftRoom:
		return backend.LeftRoom{}, nil
	case eventDisconnected:
		return backend.Disconnected{Cause: m.Cause}, nil
	case eventJoinRandomFailed:
		return backend.JoinRandomFailed{Code: m.Code, Message: m.Message}, nil
	case eventJoinRoomFailed:
		return backend.JoinRoomFailed{Code: m.Code, Message: m.Message}, nil
	case eventCreateRoomFailed:
		return backend.CreateRoomFailed{Code: m.Code, Message: m.Message}, nil
	case eventPlayerProperties:
		return backend.PlayerPropertiesChanged{PlayerID: m.PlayerID, Properties: m.Properties}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, m.Type)
	}
}

// Connect dials the broker, retrying in the background until it comes up.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(250*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", url, err)
	}
	return conn, nil
}

// Call sends req on subject and decodes the reply.
func Call(ctx context.Context, conn *nats.Conn, subject string, req Request) (Reply, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Reply{}, fmt.Errorf("encoding %s request: %w", subject, err)
	}

	msg, err := conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return Reply{}, fmt.Errorf("%s request: %w", subject, err)
	}

	var reply Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return Reply{}, fmt.Errorf("decoding %s reply: %w", subject, err)
	}
	return reply, nil
}
