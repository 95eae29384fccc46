package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"

	"github.com/pixil98/go-vrlobby/internal/backend"
	"github.com/pixil98/go-vrlobby/internal/identity"
)

const (
	DefaultPublicQueue         = "lobby"
	DefaultRoomLimit           = 16
	DefaultMaxFallbackAttempts = 3

	fallbackRoomPrefix = "LOBBY_"
)

// activeManager guards the one-session-per-process rule.
var activeManager atomic.Bool

// Identity is the local identity the Manager broadcasts on every connection.
type Identity interface {
	Reload()
	DisplayName() string
	BaselineProperties() backend.Properties
}

type Config struct {
	AppID      string
	VoiceAppID string
	Region     string

	// PublicQueue and Version tag every public room and filter random matchmaking.
	PublicQueue      string
	Version          string
	DefaultRoomLimit uint8

	// AutoJoin starts public matchmaking every time the client reaches the master server.
	AutoJoin bool

	// MaxFallbackAttempts bounds room-name collisions while creating a fallback lobby.
	MaxFallbackAttempts int
}

// Manager owns the connection state machine and public matchmaking. It is not safe for
// concurrent use; events and calls are expected on the driver goroutine.
type Manager struct {
	client   backend.Client
	identity Identity
	cfg      Config
	roomCode func() int

	state     ConnectionState
	suppress  oneShot
	lastOpts  *backend.RoomOptions
	lastAuth  *backend.AuthValues
	attempts  int
	ready     bool
	lastCause string
	closed    bool
}

// NewManager claims the process-wide session slot. Close releases it.
func NewManager(client backend.Client, id Identity, cfg Config, opts ...ManagerOpt) (*Manager, error) {
	if !activeManager.CompareAndSwap(false, true) {
		return nil, ErrSessionActive
	}

	if cfg.PublicQueue == "" {
		cfg.PublicQueue = DefaultPublicQueue
	}
	if cfg.DefaultRoomLimit == 0 {
		cfg.DefaultRoomLimit = DefaultRoomLimit
	}
	if cfg.MaxFallbackAttempts <= 0 {
		cfg.MaxFallbackAttempts = DefaultMaxFallbackAttempts
	}

	m := &Manager{
		client:   client,
		identity: id,
		cfg:      cfg,
		roomCode: func() int { return 10000 + rand.IntN(90000) },
		state:    Disconnected,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Close releases the session slot so another Manager may be created.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	activeManager.Store(false)
}

func (m *Manager) State() ConnectionState {
	return m.state
}

// Ready reports whether the local player is in a room.
func (m *Manager) Ready() bool {
	return m.ready
}

func (m *Manager) LastDisconnectCause() string {
	return m.lastCause
}

func (m *Manager) DefaultRoomLimit() uint8 {
	return m.cfg.DefaultRoomLimit
}

func (m *Manager) PublicQueue() string {
	return m.cfg.PublicQueue
}

// LastMatchmakingOptions returns a copy of the options cached by the latest matchmaking
// attempt, or nil when there has been none.
func (m *Manager) LastMatchmakingOptions() *backend.RoomOptions {
	if m.lastOpts == nil {
		return nil
	}
	o := m.lastOpts.Clone()
	return &o
}

// SuppressAutoLobbyJoinOnce skips the automatic public join on the next arrival at the
// master server.
func (m *Manager) SuppressAutoLobbyJoinOnce() {
	m.suppress.Arm()
}

func (m *Manager) AutoJoinSuppressed() bool {
	return m.suppress.Armed()
}

// Connect opens an anonymous session.
func (m *Manager) Connect() error {
	return m.connect(nil)
}

// ConnectAuthenticated opens a session through the backend's custom authentication.
func (m *Manager) ConnectAuthenticated(username, token string) error {
	return m.connect(&backend.AuthValues{Username: username, Token: token})
}

// Reconnect connects again the same way the last connection was made.
func (m *Manager) Reconnect() error {
	return m.connect(m.lastAuth)
}

func (m *Manager) connect(auth *backend.AuthValues) error {
	if m.cfg.AppID == "" || m.cfg.VoiceAppID == "" {
		return ErrMissingAppID
	}

	next, err := transition(m.state, trigConnect)
	if err != nil {
		return err
	}

	err = m.client.Connect(backend.ConnectSettings{
		AppID:      m.cfg.AppID,
		VoiceAppID: m.cfg.VoiceAppID,
		Region:     m.cfg.Region,
		Auth:       auth,
	})
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}

	m.lastAuth = auth
	m.state = next
	slog.Info("connecting", "region", m.cfg.Region, "authenticated", auth != nil)
	return nil
}

func (m *Manager) Disconnect() error {
	return m.client.Disconnect()
}

// JoinRandomRoom starts public matchmaking on queue.
func (m *Manager) JoinRandomRoom(queue string, maxPlayers uint8) error {
	opts := backend.RoomOptions{
		MaxPlayers: maxPlayers,
		Visible:    true,
		Open:       true,
		Properties: backend.Properties{
			backend.RoomPropQueue:   queue,
			backend.RoomPropVersion: m.cfg.Version,
		},
		LobbyKeys: []string{backend.RoomPropQueue, backend.RoomPropVersion},
	}

	next, err := transition(m.state, trigMatchmaking)
	if err != nil {
		return err
	}

	cached := opts.Clone()
	m.lastOpts = &cached
	m.attempts = 0

	if err := m.client.JoinRandomRoom(opts.Properties.Clone(), maxPlayers); err != nil {
		return fmt.Errorf("joining random room: %w", err)
	}

	m.state = next
	slog.Info("joining random room", "queue", queue, "version", m.cfg.Version)
	return nil
}

// JoinPrivateRoom joins the named room, creating it hidden if it does not exist.
func (m *Manager) JoinPrivateRoom(name string, maxPlayers uint8) error {
	next, err := transition(m.state, trigPrivateJoin)
	if err != nil {
		return err
	}

	err = m.client.JoinOrCreateRoom(name, backend.RoomOptions{
		MaxPlayers: maxPlayers,
		Visible:    false,
		Open:       true,
	})
	if err != nil {
		return fmt.Errorf("joining private room %s: %w", name, err)
	}

	m.state = next
	slog.Info("joining private room", "room", name)
	return nil
}

// LeaveRoom asks the backend to leave the current room. The state moves on left-room.
func (m *Manager) LeaveRoom() error {
	if m.state != InRoom {
		return fmt.Errorf("%w: leave on %s", ErrIllegalTransition, m.state)
	}
	if err := m.client.LeaveRoom(); err != nil {
		return fmt.Errorf("leaving room: %w", err)
	}
	return nil
}

// HandleEvent applies a backend event to the state machine.
func (m *Manager) HandleEvent(ctx context.Context, ev backend.Event) error {
	switch e := ev.(type) {
	case backend.ConnectedToMaster:
		return m.onConnectedToMaster(ctx)

	case backend.JoinedRoom:
		if err := m.apply(trigJoined); err != nil {
			return err
		}
		m.ready = true
		m.attempts = 0
		slog.InfoContext(ctx, "joined room", "room", e.Room)

	case backend.LeftRoom:
		if err := m.apply(trigLeftRoom); err != nil {
			return err
		}
		m.ready = false

	case backend.Disconnected:
		if err := m.apply(trigDisconnected); err != nil {
			return err
		}
		m.ready = false
		m.lastCause = e.Cause
		slog.InfoContext(ctx, "disconnected from server", "cause", e.Cause)

	case backend.JoinRandomFailed:
		slog.WarnContext(ctx, "join random failed", "code", e.Code, "message", e.Message)
		if err := m.apply(trigJoinRandomFailed); err != nil {
			return err
		}
		m.attempts = 0
		return m.createFallbackRoom(ctx)

	case backend.CreateRoomFailed:
		if m.state == JoiningRoom && e.Code == backend.CodeGameIdAlreadyExists && m.attempts < m.cfg.MaxFallbackAttempts {
			slog.WarnContext(ctx, "fallback room name taken, retrying", "attempt", m.attempts)
			return m.createFallbackRoom(ctx)
		}
		slog.ErrorContext(ctx, "create room failed", "code", e.Code, "message", e.Message)
		return m.apply(trigJoinFailed)

	case backend.JoinRoomFailed:
		slog.ErrorContext(ctx, "join room failed", "code", e.Code, "message", e.Message)
		return m.apply(trigJoinFailed)

	case backend.PlayerPropertiesChanged:
		p, err := identity.DecodePlayerProperties(e.Properties)
		if err != nil {
			slog.DebugContext(ctx, "undecodable player properties", "player", e.PlayerID, "error", err)
			return nil
		}
		slog.DebugContext(ctx, "player properties changed", "player", e.PlayerID, "name", p.DisplayName)
	}

	return nil
}

func (m *Manager) onConnectedToMaster(ctx context.Context) error {
	if err := m.apply(trigConnectedToMaster); err != nil {
		return err
	}
	slog.InfoContext(ctx, "connected to master")

	m.identity.Reload()
	name := m.identity.DisplayName()
	m.client.SetNickName(name)

	// Baseline broadcast so late observers see current values even if earlier pushes were missed.
	if err := m.client.SetLocalPlayerProperties(m.identity.BaselineProperties()); err != nil {
		slog.DebugContext(ctx, "pushing baseline properties", "error", err)
	}

	suppressed := m.suppress.Consume()
	if !m.cfg.AutoJoin {
		return nil
	}
	if suppressed {
		slog.InfoContext(ctx, "suppressing auto lobby join (one time)")
		return nil
	}

	return m.JoinRandomRoom(m.cfg.PublicQueue, m.cfg.DefaultRoomLimit)
}

// createFallbackRoom creates a uniquely named public room with the criteria of the last
// matchmaking attempt.
func (m *Manager) createFallbackRoom(ctx context.Context) error {
	if m.lastOpts == nil {
		m.lastOpts = &backend.RoomOptions{
			MaxPlayers: m.cfg.DefaultRoomLimit,
			Visible:    true,
			Open:       true,
			Properties: backend.Properties{
				backend.RoomPropQueue:   m.cfg.PublicQueue,
				backend.RoomPropVersion: m.cfg.Version,
			},
			LobbyKeys: []string{backend.RoomPropQueue, backend.RoomPropVersion},
		}
	}

	next, err := transition(m.state, trigFallbackCreate)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s%d", fallbackRoomPrefix, m.roomCode())
	m.attempts++
	slog.InfoContext(ctx, "failed to join a public room, creating a new one", "room", name)

	if err := m.client.CreateRoom(name, m.lastOpts.Clone()); err != nil {
		slog.ErrorContext(ctx, "creating fallback room", "room", name, "error", err)
		if m.state == JoiningRoom {
			return m.apply(trigJoinFailed)
		}
		return nil
	}

	m.state = next
	return nil
}

func (m *Manager) apply(t trigger) error {
	next, err := transition(m.state, t)
	if err != nil {
		return err
	}
	m.state = next
	return nil
}
