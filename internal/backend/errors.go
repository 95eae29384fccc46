package backend

import (
	"errors"
	"fmt"
)

// Operation return codes shared by clients and the lobby service.
const (
	CodeOK                  int16 = 0
	CodeInternalError       int16 = -1
	CodeNotAllowed          int16 = -3
	CodeNotAuthorized       int16 = 32767
	CodeGameIdAlreadyExists int16 = 32766
	CodeGameFull            int16 = 32765
	CodeGameClosed          int16 = 32764
	CodeNoRandomMatchFound  int16 = 32760
	CodeGameDoesNotExist    int16 = 32758
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrNotOnMaster      = errors.New("not connected to master")
	ErrNotInRoom        = errors.New("not in a room")
	ErrAlreadyConnected = errors.New("already connected")
)

// RemoteError is a failure reported by the backend with its return code.
type RemoteError struct {
	Code    int16
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.Code, e.Message)
}
