package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	"github.com/pixil98/go-vrlobby/internal/backend"
)

// recordingHandler is only touched from the driver goroutine; tests read it after a
// synchronising Do call.
type recordingHandler struct {
	events []backend.Event
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, ev backend.Event) error {
	h.events = append(h.events, ev)
	return h.err
}

func startDriver(t *testing.T, d *SessionDriver) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.Start(ctx) }()
	t.Cleanup(cancel)
	return cancel, errc
}

func TestSessionDriver_DispatchesInOrder(t *testing.T) {
	events := make(chan backend.Event, 4)
	h := &recordingHandler{err: errors.New("handler errors are logged, not fatal")}
	d := NewSessionDriver(events, h)
	startDriver(t, d)

	events <- backend.ConnectedToMaster{}
	events <- backend.JoinedRoom{Room: "LOBBY_12345"}
	events <- backend.LeftRoom{}

	deadline := time.Now().Add(2 * time.Second)
	var count int
	for time.Now().Before(deadline) {
		err := d.Do(context.Background(), func() error {
			count = len(h.events)
			return nil
		})
		if err != nil {
			t.Fatalf("Do: %v", err)
		}
		if count == 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	testutil.AssertEqual(t, "events handled", count, 3)
	testutil.AssertEqual(t, "first", h.events[0].String(), "connected-to-master")
	testutil.AssertEqual(t, "second", h.events[1].String(), "joined-room(LOBBY_12345)")
	testutil.AssertEqual(t, "third", h.events[2].String(), "left-room")
}

func TestSessionDriver_DoReturnsTaskError(t *testing.T) {
	d := NewSessionDriver(make(chan backend.Event), &recordingHandler{})
	startDriver(t, d)

	err := d.Do(context.Background(), func() error { return errors.New("rejected") })
	testutil.AssertErrorContains(t, err, "rejected")
}

func TestSessionDriver_DoHonoursContext(t *testing.T) {
	// Not started: nothing drains the task queue.
	d := NewSessionDriver(make(chan backend.Event), &recordingHandler{}, WithTaskBuffer(1))
	d.tasks <- task{fn: func() error { return nil }, done: make(chan error, 1)}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Do(ctx, func() error { return nil })
	testutil.AssertEqual(t, "deadline", errors.Is(err, context.DeadlineExceeded), true)
}

func TestSessionDriver_ClosedStream(t *testing.T) {
	events := make(chan backend.Event)
	d := NewSessionDriver(events, &recordingHandler{})
	_, errc := startDriver(t, d)

	close(events)

	select {
	case err := <-errc:
		testutil.AssertEqual(t, "closed", errors.Is(err, ErrEventStreamClosed), true)
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop")
	}
}

func TestSessionDriver_OnStart(t *testing.T) {
	tests := map[string]struct {
		startErr error
		expErr   string
	}{
		"start hook succeeds": {},
		"start hook fails":    {startErr: errors.New("app id missing"), expErr: "starting session: app id missing"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ran := make(chan struct{}, 1)
			d := NewSessionDriver(make(chan backend.Event), &recordingHandler{}, WithOnStart(func() error {
				ran <- struct{}{}
				return tt.startErr
			}))
			cancel, errc := startDriver(t, d)

			<-ran
			if tt.expErr == "" {
				cancel()
			}
			err := <-errc
			if tt.expErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestSessionDriver_WaitFor(t *testing.T) {
	ready := make(chan struct{})
	ran := make(chan struct{}, 1)
	d := NewSessionDriver(make(chan backend.Event), &recordingHandler{},
		WithWaitFor(ready),
		WithOnStart(func() error {
			ran <- struct{}{}
			return nil
		}),
	)
	cancel, errc := startDriver(t, d)

	select {
	case <-ran:
		t.Fatal("start hook ran before ready")
	case <-time.After(50 * time.Millisecond):
	}

	close(ready)
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("start hook did not run")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
