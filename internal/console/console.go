package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/pixil98/go-vrlobby/internal/identity"
	"github.com/pixil98/go-vrlobby/internal/session"
)

const prompt = "> "

// Runner executes fn on the session's driver goroutine.
type Runner interface {
	Do(ctx context.Context, fn func() error) error
}

type Session interface {
	State() session.ConnectionState
	Ready() bool
	LastDisconnectCause() string
}

type Switcher interface {
	IsSwitching() bool
	Pending() session.PendingSwitch
	RequestJoinRandomPublic() error
	RequestJoinPrivate(code string) error
	RoomCode(code string) string
	OnOutcome(func(session.Outcome))
}

type Identity interface {
	Profile() *identity.Profile
	SetDisplayName(string) error
	SetColor(identity.Color) error
	SetCosmetic(slot, id string) error
}

// RoomNamer reports the room the client is in.
type RoomNamer interface {
	RoomName() string
}

// Console runs operator sessions against the local client. Every command touching
// session state runs through the Runner.
type Console struct {
	run      Runner
	session  Session
	switcher Switcher
	identity Identity
	room     RoomNamer
	commands map[string]command

	mu      sync.Mutex
	nextID  int
	outputs map[int]chan string
}

// NewConsole must be called before the Runner starts, since it registers a switch
// observer.
func NewConsole(run Runner, s Session, sw Switcher, id Identity, room RoomNamer) *Console {
	c := &Console{
		run:      run,
		session:  s,
		switcher: sw,
		identity: id,
		room:     room,
		commands: commandTable(),
		outputs:  map[int]chan string{},
	}
	sw.OnOutcome(c.broadcastOutcome)
	return c
}

// AcceptConnection runs one console session until the user quits or the connection or
// ctx ends.
func (c *Console) AcceptConnection(ctx context.Context, conn io.ReadWriter) {
	if err := c.serve(ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
		slog.WarnContext(ctx, "console session", "error", err)
	}
}

func (c *Console) serve(ctx context.Context, conn io.ReadWriter) error {
	id, msgs := c.attach()
	defer c.detach(id)

	inputChan := make(chan string)
	inputErrChan := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			select {
			case inputChan <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		inputErrChan <- scanner.Err()
		close(inputChan)
	}()

	if err := write(conn, "VR lobby console. Type 'help' for commands.\n"+prompt); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg := <-msgs:
			if err := write(conn, "\n"+msg+"\n"+prompt); err != nil {
				return err
			}

		case line, ok := <-inputChan:
			if !ok {
				select {
				case err := <-inputErrChan:
					return err
				default:
					return nil
				}
			}

			out, err := c.Exec(ctx, line)
			if errors.Is(err, errQuit) {
				return write(conn, "Goodbye!\n")
			}
			if err != nil {
				var userErr *UserError
				if !errors.As(err, &userErr) {
					return fmt.Errorf("running command: %w", err)
				}
				out = userErr.Message
			}

			if out != "" {
				out += "\n"
			}
			if err := write(conn, out+prompt); err != nil {
				return err
			}
		}
	}
}

// Exec runs one command line and returns its output.
func (c *Console) Exec(ctx context.Context, line string) (string, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil
	}

	cmd, ok := c.commands[strings.ToLower(parts[0])]
	if !ok {
		return "", NewUserError(fmt.Sprintf("Unknown command %q. Type 'help' for commands.", parts[0]))
	}
	return cmd.run(ctx, c, parts[1:])
}

func (c *Console) attach() (int, <-chan string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	ch := make(chan string, 8)
	c.outputs[c.nextID] = ch
	return c.nextID, ch
}

func (c *Console) detach(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.outputs, id)
}

// broadcastOutcome runs on the driver goroutine and must not block.
func (c *Console) broadcastOutcome(o session.Outcome) {
	msg := fmt.Sprintf("Room switch to %s finished: joined %s.", o.Request, o.Room)
	if o.Err != nil {
		msg = fmt.Sprintf("Room switch to %s failed: %s.", o.Request, o.Err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.outputs {
		select {
		case ch <- msg:
		default:
			slog.Debug("console output full, dropping message", "session", id)
		}
	}
}

func write(w io.Writer, s string) error {
	_, err := w.Write([]byte(s))
	return err
}
