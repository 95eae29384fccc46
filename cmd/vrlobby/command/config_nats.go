package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-vrlobby/internal/messaging"
)

const (
	defaultNatsHost = "127.0.0.1"
	defaultNatsPort = 4222
)

type NatsConfig struct {
	// URL connects to an external broker instead of embedding one.
	URL          string `json:"url"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	StartTimeout string `json:"start_timeout"`
	MaxPayload   int32  `json:"max_payload"`
}

func (n *NatsConfig) validate() error {
	el := errors.NewErrorList()

	if n.StartTimeout != "" {
		_, err := time.ParseDuration(n.StartTimeout)
		if err != nil {
			el.Add(fmt.Errorf("nats: parsing start_timeout: %w", err))
		}
	}
	if n.Port < 0 || n.Port > 65535 {
		el.Add(fmt.Errorf("nats: port %d out of range", n.Port))
	}
	if n.MaxPayload < 0 {
		el.Add(fmt.Errorf("nats: max_payload must not be negative"))
	}

	return el.Err()
}

func (n *NatsConfig) embedded() bool {
	return n.URL == ""
}

func (n *NatsConfig) clientURL() string {
	if !n.embedded() {
		return n.URL
	}
	host, port := n.Host, n.Port
	if host == "" {
		host = defaultNatsHost
	}
	if port == 0 {
		port = defaultNatsPort
	}
	return fmt.Sprintf("nats://%s:%d", host, port)
}

func (n *NatsConfig) buildNatsServer() (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt
	if n.StartTimeout != "" {
		d, err := time.ParseDuration(n.StartTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing start_timeout: %w", err)
		}
		opts = append(opts, messaging.WithStartTimeout(d))
	}
	if n.Host != "" {
		opts = append(opts, messaging.WithHost(n.Host))
	}
	if n.Port != 0 {
		opts = append(opts, messaging.WithPort(n.Port))
	}
	if n.MaxPayload != 0 {
		opts = append(opts, messaging.WithMaxPayload(n.MaxPayload))
	}

	return messaging.NewNatsServer(opts...)
}
