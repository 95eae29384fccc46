package driver

type SessionDriverOpt func(*SessionDriver)

// WithTaskBuffer sets how many caller tasks may queue before Do blocks.
func WithTaskBuffer(n int) SessionDriverOpt {
	return func(d *SessionDriver) {
		if n > 0 {
			d.taskBuffer = n
		}
	}
}

// WithOnStart runs fn on the driver goroutine before the first event is handled.
func WithOnStart(fn func() error) SessionDriverOpt {
	return func(d *SessionDriver) {
		d.onStart = fn
	}
}

// WithWaitFor delays the session until ch is closed, typically a broker or lobby
// readiness channel.
func WithWaitFor(ch <-chan struct{}) SessionDriverOpt {
	return func(d *SessionDriver) {
		d.waitFor = ch
	}
}
