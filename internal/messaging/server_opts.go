package messaging

import "time"

type NatsServerOpt func(*NatsServer)

// WithStartTimeout bounds how long Start waits for the broker before the lobby and the
// session give up on it. Non-positive durations keep the default.
func WithStartTimeout(d time.Duration) NatsServerOpt {
	return func(n *NatsServer) {
		if d > 0 {
			n.startupTimeout = d
		}
	}
}

// WithHost sets the interface the lobby broker listens on. It defaults to loopback so an
// in-process lobby is not reachable from other machines; blank keeps that default.
func WithHost(host string) NatsServerOpt {
	return func(n *NatsServer) {
		if host != "" {
			n.host = host
		}
	}
}

// WithPort sets the broker port. server.RANDOM_PORT picks a free one.
func WithPort(port int) NatsServerOpt {
	return func(n *NatsServer) {
		n.port = port
	}
}

// WithMaxPayload caps a single lobby request or player event, which bounds how large a
// player's property bag may grow.
func WithMaxPayload(bytes int32) NatsServerOpt {
	return func(n *NatsServer) {
		if bytes > 0 {
			n.maxPayload = bytes
		}
	}
}
