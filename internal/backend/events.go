package backend

import "fmt"

// Event is a callback delivered by the backend. The concrete types below are the
// complete set; consumers switch on them.
type Event interface {
	fmt.Stringer
	event()
}

type ConnectedToMaster struct{}

type JoinedRoom struct {
	Room string
}

type LeftRoom struct{}

type Disconnected struct {
	Cause string
}

type JoinRandomFailed struct {
	Code    int16
	Message string
}

type JoinRoomFailed struct {
	Code    int16
	Message string
}

type CreateRoomFailed struct {
	Code    int16
	Message string
}

// PlayerPropertiesChanged reports a property update by any player in the current room.
type PlayerPropertiesChanged struct {
	PlayerID   string
	Properties Properties
}

func (ConnectedToMaster) event()       {}
func (JoinedRoom) event()              {}
func (LeftRoom) event()                {}
func (Disconnected) event()            {}
func (JoinRandomFailed) event()        {}
func (JoinRoomFailed) event()          {}
func (CreateRoomFailed) event()        {}
func (PlayerPropertiesChanged) event() {}

func (ConnectedToMaster) String() string { return "connected-to-master" }
func (e JoinedRoom) String() string      { return fmt.Sprintf("joined-room(%s)", e.Room) }
func (LeftRoom) String() string          { return "left-room" }
func (e Disconnected) String() string    { return fmt.Sprintf("disconnected(%s)", e.Cause) }
func (e JoinRandomFailed) String() string {
	return fmt.Sprintf("join-random-failed(%d): %s", e.Code, e.Message)
}
func (e JoinRoomFailed) String() string {
	return fmt.Sprintf("join-room-failed(%d): %s", e.Code, e.Message)
}
func (e CreateRoomFailed) String() string {
	return fmt.Sprintf("create-room-failed(%d): %s", e.Code, e.Message)
}
func (e PlayerPropertiesChanged) String() string {
	return fmt.Sprintf("player-properties-changed(%s)", e.PlayerID)
}
