package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/pixil98/go-vrlobby/internal/backend"
	"github.com/pixil98/go-vrlobby/internal/messaging"
)

// Service answers lobby requests from a Directory.
type Service struct {
	dir     *Directory
	url     string
	ready   <-chan struct{}
	serving chan struct{}

	conn *nats.Conn
}

func NewService(dir *Directory, url string, opts ...ServiceOpt) *Service {
	s := &Service{
		dir:     dir,
		url:     url,
		serving: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) Start(ctx context.Context) error {
	if s.ready != nil {
		select {
		case <-s.ready:
		case <-ctx.Done():
			return nil
		}
	}

	conn, err := messaging.Connect(s.url, "lobby")
	if err != nil {
		return err
	}
	s.conn = conn
	defer conn.Close()

	sub, err := conn.Subscribe(messaging.SubjectAll, func(msg *nats.Msg) {
		s.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribing to lobby requests: %w", err)
	}

	close(s.serving)
	slog.InfoContext(ctx, "lobby service ready", "url", s.url)

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		slog.DebugContext(ctx, "unsubscribing lobby requests", "error", err)
	}
	return nil
}

// Serving is closed once requests are being answered.
func (s *Service) Serving() <-chan struct{} {
	return s.serving
}

func (s *Service) handle(ctx context.Context, msg *nats.Msg) {
	var req messaging.Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.respond(ctx, msg, messaging.Reply{Code: backend.CodeInternalError, Message: "malformed request"})
		return
	}

	var (
		room  string
		notes []Notification
		err   error
	)
	join := JoinRequest{PlayerID: req.PlayerID, NickName: req.NickName, Properties: req.Properties}

	switch msg.Subject {
	case messaging.SubjectConnect:
		err = s.dir.Connect(ConnectRequest{
			PlayerID:   req.PlayerID,
			AppID:      req.AppID,
			VoiceAppID: req.VoiceAppID,
			NickName:   req.NickName,
		})
		if err == nil {
			slog.InfoContext(ctx, "player connected", "player", req.PlayerID, "region", req.Region, "authenticated", req.Auth != nil)
		}

	case messaging.SubjectDisconnect:
		s.dir.Disconnect(req.PlayerID)
		slog.InfoContext(ctx, "player disconnected", "player", req.PlayerID)

	case messaging.SubjectJoinRandom:
		room, notes, err = s.dir.JoinRandom(join, req.Filter, req.MaxPlayers)

	case messaging.SubjectCreate:
		room, notes, err = s.dir.Create(join, req.Room, options(req))

	case messaging.SubjectJoinOrCreate:
		room, notes, err = s.dir.JoinOrCreate(join, req.Room, options(req))

	case messaging.SubjectLeave:
		err = s.dir.Leave(req.PlayerID)

	case messaging.SubjectProperties:
		notes, err = s.dir.SetProperties(req.PlayerID, req.Properties)

	default:
		err = &backend.RemoteError{Code: backend.CodeNotAllowed, Message: "unknown operation " + msg.Subject}
	}

	reply := messaging.Reply{Room: room}
	if err != nil {
		var re *backend.RemoteError
		if !errors.As(err, &re) {
			re = &backend.RemoteError{Code: backend.CodeInternalError, Message: err.Error()}
		}
		reply.Code, reply.Message = re.Code, re.Message
		slog.DebugContext(ctx, "lobby request refused", "subject", msg.Subject, "player", req.PlayerID, "code", re.Code, "message", re.Message)
	} else if room != "" {
		slog.InfoContext(ctx, "player joined room", "player", req.PlayerID, "room", room)
	}

	s.respond(ctx, msg, reply)
	s.publish(ctx, notes)
}

func (s *Service) respond(ctx context.Context, msg *nats.Msg, reply messaging.Reply) {
	data, err := json.Marshal(reply)
	if err != nil {
		slog.ErrorContext(ctx, "encoding lobby reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.WarnContext(ctx, "responding to lobby request", "subject", msg.Subject, "error", err)
	}
}

// publish delivers each notification on its player's subject. Failures are logged and do
// not stop the rest.
func (s *Service) publish(ctx context.Context, notes []Notification) {
	for _, n := range notes {
		data, err := messaging.EncodeEvent(n.Event)
		if err != nil {
			slog.ErrorContext(ctx, "encoding player event", "error", err)
			continue
		}
		if err := s.conn.Publish(messaging.PlayerSubject(n.PlayerID), data); err != nil {
			slog.WarnContext(ctx, "publishing player event", "player", n.PlayerID, "error", err)
		}
	}
}

func options(req messaging.Request) backend.RoomOptions {
	if req.Options == nil {
		return backend.RoomOptions{Visible: true, Open: true}
	}
	return *req.Options
}
