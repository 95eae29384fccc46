package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-vrlobby/internal/backend"
)

const DefaultTaskBuffer = 16

var ErrEventStreamClosed = errors.New("backend event stream closed")

// Handler consumes backend events on the driver goroutine.
type Handler interface {
	HandleEvent(context.Context, backend.Event) error
}

type task struct {
	fn   func() error
	done chan error
}

// SessionDriver is the cooperative loop of a client session. Backend events and caller
// tasks are executed one at a time on the goroutine running Start, so the handler never
// needs locking.
type SessionDriver struct {
	events  <-chan backend.Event
	handler Handler
	tasks   chan task

	taskBuffer int
	onStart    func() error
	waitFor    <-chan struct{}
}

func NewSessionDriver(events <-chan backend.Event, handler Handler, opts ...SessionDriverOpt) *SessionDriver {
	d := &SessionDriver{
		events:     events,
		handler:    handler,
		taskBuffer: DefaultTaskBuffer,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.tasks = make(chan task, d.taskBuffer)

	return d
}

func (d *SessionDriver) Start(ctx context.Context) error {
	if d.waitFor != nil {
		select {
		case <-d.waitFor:
		case <-ctx.Done():
			return nil
		}
	}

	if d.onStart != nil {
		if err := d.onStart(); err != nil {
			return fmt.Errorf("starting session: %w", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-d.events:
			if !ok {
				return ErrEventStreamClosed
			}
			d.dispatch(ctx, ev)

		case t := <-d.tasks:
			t.done <- t.fn()
		}
	}
}

func (d *SessionDriver) dispatch(ctx context.Context, ev backend.Event) {
	slog.DebugContext(ctx, "backend event", "event", ev)
	if err := d.handler.HandleEvent(ctx, ev); err != nil {
		slog.WarnContext(ctx, "handling backend event", "event", ev, "error", err)
	}
}

// Do runs fn on the driver goroutine and returns its error. It blocks until fn has run
// or ctx is done.
func (d *SessionDriver) Do(ctx context.Context, fn func() error) error {
	t := task{fn: fn, done: make(chan error, 1)}

	select {
	case d.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
