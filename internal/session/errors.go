package session

import "errors"

var (
	ErrMissingAppID      = errors.New("app id and voice app id are required")
	ErrIllegalTransition = errors.New("illegal connection state transition")
	ErrSessionActive     = errors.New("a session manager is already active")
	ErrDisconnected      = errors.New("disconnected while switching rooms")
)
