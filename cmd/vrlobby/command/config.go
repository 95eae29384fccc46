package command

import (
	"fmt"
	"log/slog"

	"github.com/pixil98/go-errors"
)

type Config struct {
	LogLevel  slog.Level       `json:"log_level"`
	Session   SessionConfig    `json:"session"`
	Storage   StorageConfig    `json:"storage"`
	Nats      NatsConfig       `json:"nats"`
	Lobby     LobbyConfig      `json:"lobby"`
	Listeners []ListenerConfig `json:"listeners"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	el.Add(c.Session.validate())
	el.Add(c.Storage.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Lobby.validate())

	if c.Lobby.Enabled && c.Nats.URL != "" {
		el.Add(fmt.Errorf("lobby cannot be served from an external nats url"))
	}

	for i, l := range c.Listeners {
		err := l.validate()
		if err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
	}

	return el.Err()
}
