package natsbackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/pixil98/go-vrlobby/internal/backend"
	"github.com/pixil98/go-vrlobby/internal/messaging"
)

const (
	DefaultRequestTimeout = 5 * time.Second
	DefaultEventBuffer    = 64

	causeClientDisconnect = "client disconnect"
)

// Client is a backend.Client talking to the lobby over NATS request/reply. Requests run in
// the background and their results arrive on Events, in the order the lobby answered.
type Client struct {
	conn        *nats.Conn
	playerID    string
	timeout     time.Duration
	eventBuffer int
	events      chan backend.Event

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state backend.ClientState
	room  string
	nick  string
	props backend.Properties
	sub   *nats.Subscription
}

func NewClient(conn *nats.Conn, opts ...ClientOpt) *Client {
	c := &Client{
		conn:        conn,
		playerID:    strings.ReplaceAll(uuid.NewString(), "-", ""),
		timeout:     DefaultRequestTimeout,
		eventBuffer: DefaultEventBuffer,
		state:       backend.ClientDisconnected,
		props:       backend.Properties{},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.events = make(chan backend.Event, c.eventBuffer)
	c.ctx, c.cancel = context.WithCancel(context.Background())

	conn.SetDisconnectErrHandler(func(_ *nats.Conn, err error) {
		if err == nil {
			err = nats.ErrConnectionClosed
		}
		c.transportLost(err)
	})
	conn.SetClosedHandler(func(_ *nats.Conn) {
		c.transportLost(nats.ErrConnectionClosed)
	})

	return c
}

// transportLost ends the session when the broker link drops. The lobby forgets players
// it can no longer reach, so a reconnected transport still needs a fresh Connect.
func (c *Client) transportLost(err error) {
	c.mu.Lock()
	if c.state == backend.ClientDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = backend.ClientDisconnected
	c.room = ""
	c.unsubscribe()
	c.mu.Unlock()

	slog.Warn("lost connection to broker", "player", c.playerID, "error", err)
	c.emit(backend.Disconnected{Cause: err.Error()})
}

// PlayerID identifies this client to the lobby.
func (c *Client) PlayerID() string {
	return c.playerID
}

func (c *Client) Events() <-chan backend.Event {
	return c.events
}

// Close abandons in-flight requests. The events channel stays open.
func (c *Client) Close() {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribe()
}

func (c *Client) State() backend.ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) IsConnectedAndReady() bool {
	s := c.State()
	return s == backend.ClientConnectedToMaster || s == backend.ClientJoined
}

func (c *Client) InRoom() bool {
	return c.State() == backend.ClientJoined
}

func (c *Client) RoomName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) SetNickName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nick = name
}

func (c *Client) Connect(settings backend.ConnectSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != backend.ClientDisconnected {
		return backend.ErrAlreadyConnected
	}

	sub, err := c.conn.Subscribe(messaging.PlayerSubject(c.playerID), c.onPlayerMessage)
	if err != nil {
		return fmt.Errorf("subscribing to player events: %w", err)
	}
	c.sub = sub
	c.state = backend.ClientConnectingToMaster

	req := messaging.Request{
		PlayerID:   c.playerID,
		AppID:      settings.AppID,
		VoiceAppID: settings.VoiceAppID,
		Region:     settings.Region,
		Auth:       settings.Auth,
		NickName:   c.nick,
	}

	go func() {
		err := c.call(messaging.SubjectConnect, req)

		c.mu.Lock()
		if c.state != backend.ClientConnectingToMaster {
			// Disconnect won the race and reports it.
			c.mu.Unlock()
			return
		}
		if err != nil {
			c.state = backend.ClientDisconnected
			c.unsubscribe()
			c.mu.Unlock()
			c.emit(backend.Disconnected{Cause: err.Error()})
			return
		}
		c.state = backend.ClientConnectedToMaster
		c.mu.Unlock()
		c.emit(backend.ConnectedToMaster{})
	}()

	return nil
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == backend.ClientDisconnected || c.state == backend.ClientDisconnecting {
		return nil
	}
	c.state = backend.ClientDisconnecting

	go func() {
		if err := c.call(messaging.SubjectDisconnect, messaging.Request{PlayerID: c.playerID}); err != nil {
			slog.Debug("notifying lobby of disconnect", "error", err)
		}

		c.mu.Lock()
		if c.state == backend.ClientDisconnected {
			// The transport dropped first and already reported it.
			c.mu.Unlock()
			return
		}
		c.state = backend.ClientDisconnected
		c.room = ""
		c.unsubscribe()
		c.mu.Unlock()
		c.emit(backend.Disconnected{Cause: causeClientDisconnect})
	}()

	return nil
}

func (c *Client) JoinRandomRoom(filter backend.Properties, maxPlayers uint8) error {
	return c.join(messaging.SubjectJoinRandom, messaging.Request{Filter: filter.Clone(), MaxPlayers: maxPlayers},
		func(code int16, msg string) backend.Event { return backend.JoinRandomFailed{Code: code, Message: msg} })
}

func (c *Client) CreateRoom(name string, opts backend.RoomOptions) error {
	o := opts.Clone()
	return c.join(messaging.SubjectCreate, messaging.Request{Room: name, Options: &o},
		func(code int16, msg string) backend.Event { return backend.CreateRoomFailed{Code: code, Message: msg} })
}

func (c *Client) JoinOrCreateRoom(name string, opts backend.RoomOptions) error {
	o := opts.Clone()
	return c.join(messaging.SubjectJoinOrCreate, messaging.Request{Room: name, Options: &o},
		func(code int16, msg string) backend.Event { return backend.JoinRoomFailed{Code: code, Message: msg} })
}

// join issues a room-entering request from the master server. failed builds the event
// reported when the lobby refuses.
func (c *Client) join(subject string, req messaging.Request, failed func(int16, string) backend.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != backend.ClientConnectedToMaster {
		return fmt.Errorf("%w: %s", backend.ErrNotOnMaster, c.state)
	}
	c.state = backend.ClientJoining

	req.PlayerID = c.playerID
	req.NickName = c.nick
	req.Properties = c.props.Clone()

	go func() {
		reply, err := c.request(subject, req)
		if err == nil {
			err = reply.Err()
		}

		c.mu.Lock()
		if c.state != backend.ClientJoining {
			c.mu.Unlock()
			return
		}
		if err != nil {
			c.state = backend.ClientConnectedToMaster
			c.mu.Unlock()
			code, msg := failure(err)
			c.emit(failed(code, msg))
			return
		}
		c.state = backend.ClientJoined
		c.room = reply.Room
		c.mu.Unlock()
		c.emit(backend.JoinedRoom{Room: reply.Room})
	}()

	return nil
}

func (c *Client) LeaveRoom() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != backend.ClientJoined {
		return backend.ErrNotInRoom
	}
	c.state = backend.ClientLeaving
	room := c.room

	go func() {
		// The room is gone from our side whether or not the lobby acknowledged it.
		if err := c.call(messaging.SubjectLeave, messaging.Request{PlayerID: c.playerID, Room: room}); err != nil {
			slog.Warn("leaving room", "room", room, "error", err)
		}

		c.mu.Lock()
		if c.state != backend.ClientLeaving {
			c.mu.Unlock()
			return
		}
		c.room = ""
		c.state = backend.ClientConnectingToMaster
		c.mu.Unlock()
		c.emit(backend.LeftRoom{})

		c.mu.Lock()
		if c.state == backend.ClientConnectingToMaster {
			c.state = backend.ClientConnectedToMaster
		}
		c.mu.Unlock()
		c.emit(backend.ConnectedToMaster{})
	}()

	return nil
}

// SetLocalPlayerProperties merges props into the local player's properties. They are sent
// with every join, and published to the room right away when in one.
func (c *Client) SetLocalPlayerProperties(props backend.Properties) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case backend.ClientDisconnected, backend.ClientDisconnecting:
		return backend.ErrNotConnected
	}

	for k, v := range props.Clone() {
		c.props[k] = v
	}

	if c.state != backend.ClientJoined {
		return nil
	}

	req := messaging.Request{PlayerID: c.playerID, Room: c.room, Properties: props.Clone()}
	go func() {
		if err := c.call(messaging.SubjectProperties, req); err != nil {
			slog.Debug("publishing player properties", "error", err)
		}
	}()
	return nil
}

func (c *Client) onPlayerMessage(msg *nats.Msg) {
	ev, err := messaging.DecodeEvent(msg.Data)
	if err != nil {
		slog.Warn("dropping player message", "error", err)
		return
	}

	if _, ok := ev.(backend.PlayerPropertiesChanged); !ok {
		slog.Debug("ignoring unexpected player event", "event", ev)
		return
	}
	c.emit(ev)
}

func (c *Client) request(subject string, req messaging.Request) (messaging.Reply, error) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()
	return messaging.Call(ctx, c.conn, subject, req)
}

func (c *Client) call(subject string, req messaging.Request) error {
	reply, err := c.request(subject, req)
	if err != nil {
		return err
	}
	return reply.Err()
}

func (c *Client) emit(ev backend.Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

// unsubscribe expects c.mu to be held.
func (c *Client) unsubscribe() {
	if c.sub == nil {
		return
	}
	if err := c.sub.Unsubscribe(); err != nil {
		slog.Debug("unsubscribing player events", "error", err)
	}
	c.sub = nil
}

func failure(err error) (int16, string) {
	var remote *backend.RemoteError
	if errors.As(err, &remote) {
		return remote.Code, remote.Message
	}
	return backend.CodeInternalError, err.Error()
}
