package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pixil98/go-service"
	"github.com/pixil98/go-vrlobby/internal/console"
	"github.com/pixil98/go-vrlobby/internal/driver"
	"github.com/pixil98/go-vrlobby/internal/messaging"
	"github.com/pixil98/go-vrlobby/internal/natsbackend"
	"github.com/pixil98/go-vrlobby/internal/session"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	workers := service.WorkerList{}

	// The session waits for whatever it depends on in process: the broker, then the lobby.
	var ready <-chan struct{}
	url := cfg.Nats.clientURL()
	if cfg.Nats.embedded() {
		ns, err := cfg.Nats.buildNatsServer()
		if err != nil {
			return nil, fmt.Errorf("creating nats server: %w", err)
		}
		workers["nats"] = ns
		ready = ns.Ready()
	}

	if cfg.Lobby.Enabled {
		svc := cfg.Lobby.buildService(url, ready)
		workers["lobby"] = svc
		ready = svc.Serving()
	}

	// Session client
	conn, err := messaging.Connect(url, "vrlobby")
	if err != nil {
		return nil, err
	}
	clientOpts, err := cfg.Session.clientOpts()
	if err != nil {
		return nil, err
	}
	client := natsbackend.NewClient(conn, clientOpts...)

	store, err := cfg.Storage.BuildIdentityStore(client)
	if err != nil {
		return nil, err
	}

	mgr, err := session.NewManager(client, store, cfg.Session.managerConfig())
	if err != nil {
		return nil, fmt.Errorf("creating session manager: %w", err)
	}
	switcher := session.NewSwitcher(mgr, client)

	drv := driver.NewSessionDriver(client.Events(), switcher,
		driver.WithWaitFor(ready),
		driver.WithOnStart(cfg.Session.connectFunc(mgr, store)),
	)
	workers["session"] = drv

	// Console listeners
	con := console.NewConsole(drv, mgr, switcher, store, client)
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		listener, err := l.BuildListener(con)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = listener
	}
	workers["listeners"] = &listeners

	return workers, nil
}
