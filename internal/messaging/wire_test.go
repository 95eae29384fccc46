package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/pixil98/go-testutil"
	"github.com/pixil98/go-vrlobby/internal/backend"
)

func TestDecodeEvent(t *testing.T) {
	tests := map[string]struct {
		data   string
		exp    string
		expErr string
	}{
		"joined room":   {data: `{"type":"joined_room","room":"AB12"}`, exp: "joined-room(AB12)"},
		"disconnected":  {data: `{"type":"disconnected","cause":"timeout"}`, exp: "disconnected(timeout)"},
		"create failed": {data: `{"type":"create_room_failed","code":32766,"message":"taken"}`, exp: "create-room-failed(32766): taken"},
		"unknown type":  {data: `{"type":"teleported"}`, expErr: "unknown event type"},
		"malformed":     {data: `{"type":`, expErr: "decoding event"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.data))
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "event", ev.String(), tt.exp)
		})
	}
}

func TestEncodeEvent_PropertiesSurviveTransport(t *testing.T) {
	data, err := EncodeEvent(backend.PlayerPropertiesChanged{
		PlayerID: "p1",
		Properties: backend.Properties{
			"DisplayName": "Tester",
			"Cosmetics":   map[string]string{"hat": "crown"},
		},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	ev, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	e, ok := ev.(backend.PlayerPropertiesChanged)
	testutil.AssertEqual(t, "type", ok, true)
	testutil.AssertEqual(t, "player", e.PlayerID, "p1")

	cosmetics, ok := e.Properties["Cosmetics"].(map[string]any)
	testutil.AssertEqual(t, "cosmetics table", ok, true)
	testutil.AssertEqual(t, "hat", cosmetics["hat"].(string), "crown")
}

func TestReply_Err(t *testing.T) {
	testutil.AssertEqual(t, "ok", Reply{Code: backend.CodeOK}.Err() == nil, true)

	err := Reply{Code: backend.CodeGameFull, Message: "full"}.Err()
	var remote *backend.RemoteError
	testutil.AssertEqual(t, "remote", errors.As(err, &remote), true)
	testutil.AssertEqual(t, "code", remote.Code, backend.CodeGameFull)
}

func startServer(t *testing.T, opts ...NatsServerOpt) *NatsServer {
	t.Helper()

	opts = append([]NatsServerOpt{WithPort(server.RANDOM_PORT), WithStartTimeout(5 * time.Second)}, opts...)
	srv, err := NewNatsServer(opts...)
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("server stopped: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server not ready")
	}
	return srv
}

func TestCall(t *testing.T) {
	srv := startServer(t)

	conn, err := Connect(srv.ClientURL(), "test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	_, err = conn.Subscribe(SubjectCreate, func(msg *nats.Msg) {
		var req Request
		_ = json.Unmarshal(msg.Data, &req)
		reply, _ := json.Marshal(Reply{Room: req.Room})
		_ = msg.Respond(reply)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := Call(ctx, conn, SubjectCreate, Request{PlayerID: "p1", Room: "LOBBY_12345"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	testutil.AssertEqual(t, "room", reply.Room, "LOBBY_12345")
	testutil.AssertEqual(t, "ok", reply.Err() == nil, true)
}

func TestCall_NoResponder(t *testing.T) {
	srv := startServer(t)

	conn, err := Connect(srv.ClientURL(), "test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = Call(ctx, conn, SubjectLeave, Request{PlayerID: "p1"})
	testutil.AssertErrorContains(t, err, SubjectLeave+" request")
}

func TestPlayerSubject(t *testing.T) {
	testutil.AssertEqual(t, "subject", PlayerSubject("abc"), "player.abc")
}
