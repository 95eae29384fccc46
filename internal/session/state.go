package session

import "fmt"

// ConnectionState is the session's connection phase. Only the Manager writes it.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	JoiningRoom
	InRoom
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case JoiningRoom:
		return "joining-room"
	case InRoom:
		return "in-room"
	default:
		return "unknown"
	}
}

// trigger is anything that may move the connection state.
type trigger int

const (
	trigConnect trigger = iota
	trigConnectedToMaster
	trigMatchmaking
	trigPrivateJoin
	trigJoined
	trigJoinRandomFailed
	trigFallbackCreate
	trigJoinFailed
	trigLeftRoom
	trigDisconnected
)

func (t trigger) String() string {
	switch t {
	case trigConnect:
		return "connect"
	case trigConnectedToMaster:
		return "connected-to-master"
	case trigMatchmaking:
		return "matchmaking"
	case trigPrivateJoin:
		return "private-join"
	case trigJoined:
		return "joined-room"
	case trigJoinRandomFailed:
		return "join-random-failed"
	case trigFallbackCreate:
		return "fallback-create"
	case trigJoinFailed:
		return "join-failed"
	case trigLeftRoom:
		return "left-room"
	case trigDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// transition is the complete state table. Pairs not listed are illegal.
func transition(from ConnectionState, t trigger) (ConnectionState, error) {
	if t == trigDisconnected {
		return Disconnected, nil
	}

	switch from {
	case Disconnected:
		if t == trigConnect {
			return Connecting, nil
		}
	case Connecting:
		if t == trigConnectedToMaster {
			return Connected, nil
		}
	case Connected:
		switch t {
		case trigMatchmaking, trigPrivateJoin, trigFallbackCreate:
			return JoiningRoom, nil
		}
	case JoiningRoom:
		switch t {
		case trigJoined:
			return InRoom, nil
		case trigJoinRandomFailed, trigJoinFailed:
			return Connected, nil
		case trigFallbackCreate:
			return JoiningRoom, nil
		}
	case InRoom:
		if t == trigLeftRoom {
			return Connecting, nil
		}
	}

	return from, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, t, from)
}
