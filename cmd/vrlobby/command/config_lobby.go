package command

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-vrlobby/internal/lobby"
)

// LobbyConfig runs the reference lobby in process, on the embedded broker.
type LobbyConfig struct {
	Enabled bool     `json:"enabled"`
	AppIDs  []string `json:"app_ids"`
}

func (c *LobbyConfig) validate() error {
	for i, id := range c.AppIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("lobby: app_ids[%d] is blank", i)
		}
	}
	return nil
}

func (c *LobbyConfig) buildService(url string, ready <-chan struct{}) *lobby.Service {
	var opts []lobby.ServiceOpt
	if ready != nil {
		opts = append(opts, lobby.WithReady(ready))
	}
	return lobby.NewService(lobby.NewDirectory(c.AppIDs...), url, opts...)
}
