package session

import (
	"context"
	"reflect"
	"testing"

	"github.com/pixil98/go-vrlobby/internal/backend"
)

type call struct {
	name     string
	room     string
	filter   backend.Properties
	max      uint8
	opts     backend.RoomOptions
	settings backend.ConnectSettings
	props    backend.Properties
}

// fakeClient records every call and moves its own state the way a real client does
// when a request is accepted.
type fakeClient struct {
	calls  []call
	state  backend.ClientState
	room   string
	nick   string
	failOn map[string]error
	events chan backend.Event
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		state:  backend.ClientDisconnected,
		failOn: map[string]error{},
		events: make(chan backend.Event),
	}
}

func (c *fakeClient) record(cl call) error {
	c.calls = append(c.calls, cl)
	return c.failOn[cl.name]
}

func (c *fakeClient) Connect(s backend.ConnectSettings) error {
	if err := c.record(call{name: "Connect", settings: s}); err != nil {
		return err
	}
	c.state = backend.ClientConnectingToMaster
	return nil
}

func (c *fakeClient) Disconnect() error {
	return c.record(call{name: "Disconnect"})
}

func (c *fakeClient) JoinRandomRoom(filter backend.Properties, max uint8) error {
	if err := c.record(call{name: "JoinRandomRoom", filter: filter, max: max}); err != nil {
		return err
	}
	c.state = backend.ClientJoining
	return nil
}

func (c *fakeClient) CreateRoom(name string, opts backend.RoomOptions) error {
	if err := c.record(call{name: "CreateRoom", room: name, opts: opts}); err != nil {
		return err
	}
	c.state = backend.ClientJoining
	return nil
}

func (c *fakeClient) JoinOrCreateRoom(name string, opts backend.RoomOptions) error {
	if err := c.record(call{name: "JoinOrCreateRoom", room: name, opts: opts}); err != nil {
		return err
	}
	c.state = backend.ClientJoining
	return nil
}

func (c *fakeClient) LeaveRoom() error {
	if err := c.record(call{name: "LeaveRoom"}); err != nil {
		return err
	}
	c.state = backend.ClientLeaving
	return nil
}

func (c *fakeClient) SetLocalPlayerProperties(p backend.Properties) error {
	return c.record(call{name: "SetLocalPlayerProperties", props: p})
}

func (c *fakeClient) SetNickName(n string)         { c.nick = n }
func (c *fakeClient) State() backend.ClientState   { return c.state }
func (c *fakeClient) InRoom() bool                 { return c.state == backend.ClientJoined }
func (c *fakeClient) RoomName() string             { return c.room }
func (c *fakeClient) Events() <-chan backend.Event { return c.events }
func (c *fakeClient) IsConnectedAndReady() bool {
	return c.state == backend.ClientConnectedToMaster || c.state == backend.ClientJoined
}

// observe moves the fake to the state implied by ev, as if the backend had sent it.
func (c *fakeClient) observe(ev backend.Event) {
	switch e := ev.(type) {
	case backend.ConnectedToMaster:
		c.state = backend.ClientConnectedToMaster
	case backend.JoinedRoom:
		c.state = backend.ClientJoined
		c.room = e.Room
	case backend.LeftRoom:
		c.state = backend.ClientConnectingToMaster
		c.room = ""
	case backend.Disconnected:
		c.state = backend.ClientDisconnected
		c.room = ""
	case backend.JoinRandomFailed, backend.JoinRoomFailed, backend.CreateRoomFailed:
		c.state = backend.ClientConnectedToMaster
	}
}

func (c *fakeClient) count(name string) int {
	n := 0
	for _, cl := range c.calls {
		if cl.name == name {
			n++
		}
	}
	return n
}

func (c *fakeClient) last(name string) (call, bool) {
	for i := len(c.calls) - 1; i >= 0; i-- {
		if c.calls[i].name == name {
			return c.calls[i], true
		}
	}
	return call{}, false
}

func (c *fakeClient) reset() {
	c.calls = nil
}

type fakeIdentity struct {
	name    string
	reloads int
}

func (f *fakeIdentity) Reload()             { f.reloads++ }
func (f *fakeIdentity) DisplayName() string { return f.name }
func (f *fakeIdentity) BaselineProperties() backend.Properties {
	return backend.Properties{"DisplayName": f.name}
}

func testConfig() Config {
	return Config{
		AppID:      "app",
		VoiceAppID: "voice",
		Region:     "eu",
		Version:    "1.0",
		AutoJoin:   true,
	}
}

type harness struct {
	client   *fakeClient
	identity *fakeIdentity
	mgr      *Manager
	sw       *Switcher
	outcomes []Outcome
}

func newHarness(t *testing.T, cfg Config, opts ...ManagerOpt) *harness {
	t.Helper()

	h := &harness{
		client:   newFakeClient(),
		identity: &fakeIdentity{name: "Tester"},
	}

	mgr, err := NewManager(h.client, h.identity, cfg, append([]ManagerOpt{WithRoomCodeSource(func() int { return 12345 })}, opts...)...)
	if err != nil {
		t.Fatalf("creating manager: %v", err)
	}
	t.Cleanup(mgr.Close)

	h.mgr = mgr
	h.sw = NewSwitcher(mgr, h.client)
	h.sw.OnOutcome(func(o Outcome) { h.outcomes = append(h.outcomes, o) })
	return h
}

// deliver feeds ev through the switcher, which forwards it to the manager.
func (h *harness) deliver(t *testing.T, ev backend.Event) error {
	t.Helper()
	h.client.observe(ev)
	return h.sw.HandleEvent(context.Background(), ev)
}

// inRoom brings the session into room via auto-join and clears the recorded calls.
func (h *harness) inRoom(t *testing.T, room string) {
	t.Helper()
	if err := h.mgr.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := h.deliver(t, backend.ConnectedToMaster{}); err != nil {
		t.Fatalf("connected-to-master: %v", err)
	}
	if err := h.deliver(t, backend.JoinedRoom{Room: room}); err != nil {
		t.Fatalf("joined-room: %v", err)
	}
	if h.mgr.State() != InRoom {
		t.Fatalf("expected in-room, got %s", h.mgr.State())
	}
	h.client.reset()
}

func assertDeepEqual(t *testing.T, name string, got, exp any) {
	t.Helper()
	if !reflect.DeepEqual(got, exp) {
		t.Errorf("%s: got %#v, expected %#v", name, got, exp)
	}
}
