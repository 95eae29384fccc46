package messaging

import (
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func TestNewNatsServer_Options(t *testing.T) {
	tests := map[string]struct {
		opts       []NatsServerOpt
		expHost    string
		expTimeout time.Duration
		expPayload int32
	}{
		"defaults": {
			expHost:    "127.0.0.1",
			expTimeout: 10 * time.Second,
		},
		"overrides": {
			opts:       []NatsServerOpt{WithHost("0.0.0.0"), WithStartTimeout(time.Second), WithMaxPayload(4096)},
			expHost:    "0.0.0.0",
			expTimeout: time.Second,
			expPayload: 4096,
		},
		"blank and non-positive keep defaults": {
			opts:       []NatsServerOpt{WithHost(""), WithStartTimeout(0), WithMaxPayload(-1)},
			expHost:    "127.0.0.1",
			expTimeout: 10 * time.Second,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv, err := NewNatsServer(tt.opts...)
			if err != nil {
				t.Fatalf("creating server: %v", err)
			}
			testutil.AssertEqual(t, "host", srv.host, tt.expHost)
			testutil.AssertEqual(t, "timeout", srv.startupTimeout, tt.expTimeout)
			testutil.AssertEqual(t, "max payload", srv.maxPayload, tt.expPayload)
		})
	}
}

func TestNatsServer_MaxPayload(t *testing.T) {
	srv := startServer(t, WithMaxPayload(2048))

	conn, err := Connect(srv.ClientURL(), "payload")
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(conn.Close)

	deadline := time.Now().Add(2 * time.Second)
	for !conn.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	testutil.AssertEqual(t, "max payload", conn.MaxPayload(), int64(2048))
}
