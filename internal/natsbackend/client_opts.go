package natsbackend

import "time"

type ClientOpt func(*Client)

// WithPlayerID replaces the random player id.
func WithPlayerID(id string) ClientOpt {
	return func(c *Client) {
		if id != "" {
			c.playerID = id
		}
	}
}

// WithRequestTimeout bounds how long a request waits for the lobby.
func WithRequestTimeout(d time.Duration) ClientOpt {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithEventBuffer sets the capacity of the events channel.
func WithEventBuffer(n int) ClientOpt {
	return func(c *Client) {
		if n > 0 {
			c.eventBuffer = n
		}
	}
}
