package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pixil98/go-vrlobby/internal/backend"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type PendingKind int

const (
	PendingNone PendingKind = iota
	PendingJoinRandomPublic
	PendingJoinPrivate
)

func (k PendingKind) String() string {
	switch k {
	case PendingNone:
		return "none"
	case PendingJoinRandomPublic:
		return "random-public"
	case PendingJoinPrivate:
		return "private"
	default:
		return "unknown"
	}
}

// PendingSwitch is the single outstanding room-switch request.
type PendingSwitch struct {
	Kind       PendingKind
	Code       string
	MaxPlayers uint8
}

func (p PendingSwitch) String() string {
	if p.Kind == PendingJoinPrivate {
		return fmt.Sprintf("%s(%s)", p.Kind, p.Code)
	}
	return p.Kind.String()
}

// Outcome reports how a room switch ended.
type Outcome struct {
	Request PendingSwitch
	Room    string
	Err     error
}

type switchPhase int

const (
	phaseIdle switchPhase = iota
	phaseAwaitingMaster
	phaseAwaitingLeave
	phaseAwaitingJoin
)

// Switcher moves the client between rooms without callers needing to know the current
// connection phase. At most one request is pending; a new request replaces it.
//
// Switcher is the session's event handler: HandleEvent forwards every event to the
// Manager before reacting to it.
type Switcher struct {
	mgr    *Manager
	client backend.Client

	queue              string
	maxPlayersOverride uint8
	upper              cases.Caser

	pending   PendingSwitch
	executing PendingSwitch
	switching bool
	phase     switchPhase
	observers []func(Outcome)
}

func NewSwitcher(mgr *Manager, client backend.Client, opts ...SwitcherOpt) *Switcher {
	s := &Switcher{
		mgr:    mgr,
		client: client,
		queue:  mgr.PublicQueue(),
		upper:  cases.Upper(language.Und),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// IsSwitching is true from a request until its room is joined or the switch fails.
func (s *Switcher) IsSwitching() bool {
	return s.switching
}

func (s *Switcher) Pending() PendingSwitch {
	return s.pending
}

// OnOutcome registers fn to be called when a switch completes or fails.
func (s *Switcher) OnOutcome(fn func(Outcome)) {
	s.observers = append(s.observers, fn)
}

func (s *Switcher) RequestJoinRandomPublic() error {
	return s.queueJoin(PendingSwitch{Kind: PendingJoinRandomPublic, MaxPlayers: s.maxPlayers()})
}

// RequestJoinPrivate switches to the room named by code, creating it if needed. Blank
// codes are ignored.
func (s *Switcher) RequestJoinPrivate(code string) error {
	code = s.RoomCode(code)
	if code == "" {
		return nil
	}
	return s.queueJoin(PendingSwitch{Kind: PendingJoinPrivate, Code: code, MaxPlayers: s.maxPlayers()})
}

// RoomCode is the room name a private request for code is joined under.
func (s *Switcher) RoomCode(code string) string {
	return s.upper.String(strings.TrimSpace(code))
}

func (s *Switcher) maxPlayers() uint8 {
	if s.maxPlayersOverride > 0 {
		return s.maxPlayersOverride
	}
	return s.mgr.DefaultRoomLimit()
}

func (s *Switcher) queueJoin(req PendingSwitch) error {
	if s.pending.Kind != PendingNone {
		slog.Info("superseding pending room switch", "previous", s.pending, "next", req)
	}
	s.pending = req
	s.switching = true

	switch st := s.mgr.State(); st {
	case Disconnected:
		slog.Info("not connected, connecting before switch", "pending", req)
		if err := s.mgr.Reconnect(); err != nil {
			s.pending = PendingSwitch{}
			s.finish(Outcome{Request: req, Err: err})
			return err
		}
		s.mgr.SuppressAutoLobbyJoinOnce()
		s.phase = phaseAwaitingMaster

	case Connecting:
		s.mgr.SuppressAutoLobbyJoinOnce()
		s.phase = phaseAwaitingMaster

	case InRoom:
		if s.phase == phaseAwaitingLeave {
			return nil
		}
		return s.leaveForPending(req)

	case JoiningRoom:
		// Continued from HandleEvent once the in-flight join resolves.
		s.phase = phaseAwaitingJoin

	case Connected:
		s.TryExecutePending()
	}

	return nil
}

func (s *Switcher) leaveForPending(req PendingSwitch) error {
	slog.Info("leaving room to switch", "room", s.client.RoomName(), "pending", req)
	if err := s.mgr.LeaveRoom(); err != nil {
		s.pending = PendingSwitch{}
		s.finish(Outcome{Request: req, Err: err})
		return err
	}
	s.mgr.SuppressAutoLobbyJoinOnce()
	s.phase = phaseAwaitingLeave
	return nil
}

// TryExecutePending issues the pending request if the backend is on the master server
// and ready. Otherwise it does nothing and a later event retries. The request is cleared
// before the backend call so a failure is never resubmitted.
func (s *Switcher) TryExecutePending() {
	if s.pending.Kind == PendingNone {
		return
	}

	if !s.client.IsConnectedAndReady() || s.client.State() != backend.ClientConnectedToMaster || s.mgr.State() != Connected {
		slog.Debug("waiting for master before switching", "backend", s.client.State(), "session", s.mgr.State())
		return
	}

	req := s.pending
	s.pending = PendingSwitch{}
	s.executing = req
	s.phase = phaseAwaitingJoin

	var err error
	switch req.Kind {
	case PendingJoinRandomPublic:
		slog.Info("joining random public lobby")
		err = s.mgr.JoinRandomRoom(s.queue, req.MaxPlayers)
	case PendingJoinPrivate:
		slog.Info("joining private room", "code", req.Code)
		err = s.mgr.JoinPrivateRoom(req.Code, req.MaxPlayers)
	}

	if err != nil {
		s.finish(Outcome{Request: req, Err: err})
	}
}

// HandleEvent forwards ev to the Manager, then advances any switch in progress.
func (s *Switcher) HandleEvent(ctx context.Context, ev backend.Event) error {
	mgrErr := s.mgr.HandleEvent(ctx, ev)

	switch e := ev.(type) {
	case backend.ConnectedToMaster:
		if s.phase == phaseAwaitingMaster || s.phase == phaseAwaitingLeave {
			s.phase = phaseIdle
		}
		s.TryExecutePending()

	case backend.LeftRoom:
		slog.DebugContext(ctx, "left room, waiting for master")

	case backend.JoinedRoom:
		if s.pending.Kind != PendingNone {
			// A newer request arrived while this join was in flight.
			if err := s.leaveForPending(s.pending); err != nil {
				slog.WarnContext(ctx, "continuing room switch", "error", err)
			}
			s.switching = s.pending.Kind != PendingNone
			return mgrErr
		}
		if s.switching {
			s.finish(Outcome{Request: s.executing, Room: e.Room})
		}

	case backend.JoinRoomFailed:
		s.failExecuting(ctx, &backend.RemoteError{Code: e.Code, Message: e.Message})

	case backend.JoinRandomFailed:
		// The Manager recovers by creating a room; only report when that could not start.
		if s.mgr.State() != JoiningRoom {
			s.failExecuting(ctx, &backend.RemoteError{Code: e.Code, Message: e.Message})
		}

	case backend.CreateRoomFailed:
		if s.mgr.State() != JoiningRoom {
			s.failExecuting(ctx, &backend.RemoteError{Code: e.Code, Message: e.Message})
		}

	case backend.Disconnected:
		// The pending request survives and runs on the next connection.
		if s.switching {
			s.phase = phaseIdle
			s.finish(Outcome{Request: s.executing, Err: ErrDisconnected})
		}
	}

	return mgrErr
}

func (s *Switcher) failExecuting(ctx context.Context, err error) {
	if !s.switching {
		return
	}
	slog.ErrorContext(ctx, "room switch failed", "request", s.executing, "error", err)
	s.notify(Outcome{Request: s.executing, Err: err})
	s.executing = PendingSwitch{}

	if s.pending.Kind != PendingNone {
		s.TryExecutePending()
		return
	}
	s.switching = false
	s.phase = phaseIdle
}

func (s *Switcher) finish(o Outcome) {
	s.switching = false
	s.phase = phaseIdle
	s.executing = PendingSwitch{}
	s.notify(o)
}

func (s *Switcher) notify(o Outcome) {
	for _, fn := range s.observers {
		fn(o)
	}
}
