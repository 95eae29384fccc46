package console

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pixil98/go-vrlobby/internal/display"
	"github.com/pixil98/go-vrlobby/internal/identity"
	"github.com/pixil98/go-vrlobby/internal/session"
)

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, c *Console, args []string) (string, error)
}

func commandTable() map[string]command {
	return map[string]command{
		"name": {
			usage: "name <display name>",
			help:  "Set the display name shown to other players. A blank name resets it.",
			run:   runName,
		},
		"color": {
			usage: "color <#RRGGBB[AA]>",
			help:  "Set the avatar colour.",
			run:   runColor,
		},
		"cosmetic": {
			usage: "cosmetic <slot> [item]",
			help:  "Equip item in slot, or clear the slot when no item is given.",
			run:   runCosmetic,
		},
		"join": {
			usage: "join public | join <code>",
			help:  "Switch to a random public lobby, or to the private room with the given code. Ignored while a switch is in progress.",
			run:   runJoin,
		},
		"status": {
			usage: "status",
			help:  "Show the connection, room and identity of the local player.",
			run:   runStatus,
		},
		"help": {
			usage: "help",
			help:  "List the console commands.",
			run:   runHelp,
		},
		"quit": {
			usage: "quit",
			help:  "Close this console session. The client stays connected.",
			run: func(context.Context, *Console, []string) (string, error) {
				return "", errQuit
			},
		},
	}
}

func runName(ctx context.Context, c *Console, args []string) (string, error) {
	var name string
	err := c.run.Do(ctx, func() error {
		if err := c.identity.SetDisplayName(strings.Join(args, " ")); err != nil {
			return fmt.Errorf("setting display name: %w", err)
		}
		name = c.identity.Profile().DisplayName
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Display name set to %s.", name), nil
}

func runColor(ctx context.Context, c *Console, args []string) (string, error) {
	if len(args) != 1 {
		return "", NewUserError("Usage: color <#RRGGBB[AA]>")
	}
	col, err := identity.ParseHexColor(args[0])
	if err != nil {
		return "", NewUserError(fmt.Sprintf("Invalid colour: %s", err))
	}

	err = c.run.Do(ctx, func() error {
		return c.identity.SetColor(col)
	})
	if err != nil {
		return "", fmt.Errorf("setting colour: %w", err)
	}
	return fmt.Sprintf("Colour set to %s.", col.Hex()), nil
}

func runCosmetic(ctx context.Context, c *Console, args []string) (string, error) {
	if len(args) < 1 || len(args) > 2 {
		return "", NewUserError("Usage: cosmetic <slot> [item]")
	}
	slot, item := args[0], ""
	if len(args) == 2 {
		item = args[1]
	}

	err := c.run.Do(ctx, func() error {
		return c.identity.SetCosmetic(slot, item)
	})
	if err != nil {
		return "", fmt.Errorf("setting cosmetic: %w", err)
	}

	if item == "" {
		return fmt.Sprintf("Cleared %s.", slot), nil
	}
	return fmt.Sprintf("Equipped %s in %s.", item, slot), nil
}

func runJoin(ctx context.Context, c *Console, args []string) (string, error) {
	if len(args) != 1 {
		return "", NewUserError("Usage: join public | join <code>")
	}

	var target string
	err := c.run.Do(ctx, func() error {
		if c.switcher.IsSwitching() {
			return NewUserError("A room switch is already in progress.")
		}
		if strings.EqualFold(args[0], "public") {
			target = "a public lobby"
			return c.switcher.RequestJoinRandomPublic()
		}
		target = "room " + c.switcher.RoomCode(args[0])
		return c.switcher.RequestJoinPrivate(args[0])
	})
	if err != nil {
		var userErr *UserError
		if errors.As(err, &userErr) {
			return "", err
		}
		return "", NewUserError(fmt.Sprintf("Could not switch rooms: %s", err))
	}
	return fmt.Sprintf("Switching to %s...", target), nil
}

// Status is what the status command shows.
type Status struct {
	State       string
	Ready       bool
	Room        string
	Switching   bool
	Pending     string
	LastCause   string
	DisplayName string
	Color       string
	Cosmetics   map[string]string
}

var statusTemplate = display.MustParseTemplate("status", `Session:   {{ .State | upper }}{{ if .Ready }} (ready){{ end }}
Room:      {{ .Room | default "-" }}
Switching: {{ if .Switching }}yes{{ with .Pending }}, next {{ . }}{{ end }}{{ else }}no{{ end }}
Name:      {{ .DisplayName }}
Colour:    {{ .Color }}
Cosmetics: {{ if .Cosmetics }}{{ range $slot, $item := .Cosmetics }}{{ $slot }}={{ $item }} {{ end }}{{ else }}none{{ end }}
{{- with .LastCause }}
Last disconnect: {{ . }}{{ end }}`)

func runStatus(ctx context.Context, c *Console, _ []string) (string, error) {
	var st Status
	err := c.run.Do(ctx, func() error {
		st = c.status()
		return nil
	})
	if err != nil {
		return "", err
	}
	return statusTemplate.Render(st)
}

// status expects to run on the driver goroutine.
func (c *Console) status() Status {
	p := c.identity.Profile()
	st := Status{
		State:       c.session.State().String(),
		Ready:       c.session.Ready(),
		Room:        c.room.RoomName(),
		Switching:   c.switcher.IsSwitching(),
		LastCause:   c.session.LastDisconnectCause(),
		DisplayName: p.DisplayName,
		Color:       p.Color.Hex(),
		Cosmetics:   p.Cosmetics,
	}
	if pending := c.switcher.Pending(); pending.Kind != session.PendingNone {
		st.Pending = pending.String()
	}
	return st
}

func runHelp(_ context.Context, c *Console, _ []string) (string, error) {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := []string{"Available commands:"}
	for _, name := range names {
		cmd := c.commands[name]
		lines = append(lines, "  "+cmd.usage, display.WrapIndented(cmd.help, 6))
	}
	return strings.Join(lines, "\n"), nil
}
