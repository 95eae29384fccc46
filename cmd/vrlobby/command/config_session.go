package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-vrlobby/internal/identity"
	"github.com/pixil98/go-vrlobby/internal/natsbackend"
	"github.com/pixil98/go-vrlobby/internal/session"
)

type SessionConfig struct {
	AppID               string `json:"app_id"`
	VoiceAppID          string `json:"voice_app_id"`
	Region              string `json:"region"`
	Version             string `json:"version"`
	PublicQueue         string `json:"public_queue"`
	RoomLimit           uint8  `json:"room_limit"`
	AutoJoin            bool   `json:"auto_join"`
	MaxFallbackAttempts int    `json:"max_fallback_attempts"`
	RequestTimeout      string `json:"request_timeout"`

	// Authenticated logs in with the locally persisted anonymous id as the auth token.
	Authenticated bool `json:"authenticated"`
}

func (c *SessionConfig) validate() error {
	el := errors.NewErrorList()

	if c.AppID == "" {
		el.Add(fmt.Errorf("session: app_id is required"))
	}
	if c.VoiceAppID == "" {
		el.Add(fmt.Errorf("session: voice_app_id is required"))
	}
	if c.MaxFallbackAttempts < 0 {
		el.Add(fmt.Errorf("session: max_fallback_attempts must not be negative"))
	}
	if c.RequestTimeout != "" {
		_, err := time.ParseDuration(c.RequestTimeout)
		if err != nil {
			el.Add(fmt.Errorf("session: parsing request_timeout: %w", err))
		}
	}

	return el.Err()
}

func (c *SessionConfig) managerConfig() session.Config {
	return session.Config{
		AppID:               c.AppID,
		VoiceAppID:          c.VoiceAppID,
		Region:              c.Region,
		PublicQueue:         c.PublicQueue,
		Version:             c.Version,
		DefaultRoomLimit:    c.RoomLimit,
		AutoJoin:            c.AutoJoin,
		MaxFallbackAttempts: c.MaxFallbackAttempts,
	}
}

func (c *SessionConfig) clientOpts() ([]natsbackend.ClientOpt, error) {
	var opts []natsbackend.ClientOpt
	if c.RequestTimeout != "" {
		d, err := time.ParseDuration(c.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing request_timeout: %w", err)
		}
		opts = append(opts, natsbackend.WithRequestTimeout(d))
	}
	return opts, nil
}

// connectFunc opens the session once the driver is running.
func (c *SessionConfig) connectFunc(mgr *session.Manager, store *identity.Store) func() error {
	return func() error {
		if !c.Authenticated {
			return mgr.Connect()
		}
		token, err := store.AnonymousID()
		if err != nil {
			return fmt.Errorf("loading anonymous id: %w", err)
		}
		return mgr.ConnectAuthenticated(store.DisplayName(), token)
	}
}
