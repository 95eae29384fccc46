package lobby

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pixil98/go-vrlobby/internal/backend"
)

// Notification is an event to publish to one player.
type Notification struct {
	PlayerID string
	Event    backend.Event
}

// RoomInfo is a snapshot of a room.
type RoomInfo struct {
	Name       string
	MaxPlayers uint8
	Visible    bool
	Open       bool
	Properties backend.Properties
	Members    []MemberInfo
}

type MemberInfo struct {
	PlayerID string
	NickName string
}

type player struct {
	id    string
	nick  string
	room  string
	props backend.Properties
}

type room struct {
	name    string
	opts    backend.RoomOptions
	members []string
}

func (r *room) full() bool {
	return r.opts.MaxPlayers > 0 && len(r.members) >= int(r.opts.MaxPlayers)
}

// lobbyProperties are the properties matchmaking may filter on.
func (r *room) lobbyProperties() backend.Properties {
	out := backend.Properties{}
	for _, k := range r.opts.LobbyKeys {
		if v, ok := r.opts.Properties[k]; ok {
			out[k] = v
		}
	}
	return out
}

func (d *Directory) info(r *room) RoomInfo {
	ri := RoomInfo{
		Name:       r.name,
		MaxPlayers: r.opts.MaxPlayers,
		Visible:    r.opts.Visible,
		Open:       r.opts.Open,
		Properties: r.opts.Properties.Clone(),
	}
	for _, id := range r.members {
		ri.Members = append(ri.Members, MemberInfo{PlayerID: id, NickName: d.players[id].nick})
	}
	return ri
}

// Directory is the lobby's view of connected players and their rooms. It is safe for
// concurrent use.
type Directory struct {
	mu      sync.Mutex
	appIDs  map[string]struct{}
	players map[string]*player
	rooms   map[string]*room
	order   []string
}

// NewDirectory accepts connections for the given app ids, or for any app id when none
// are given.
func NewDirectory(appIDs ...string) *Directory {
	d := &Directory{
		appIDs:  map[string]struct{}{},
		players: map[string]*player{},
		rooms:   map[string]*room{},
	}
	for _, id := range appIDs {
		d.appIDs[id] = struct{}{}
	}
	return d
}

// ConnectRequest describes a player arriving on the master server.
type ConnectRequest struct {
	PlayerID   string
	AppID      string
	VoiceAppID string
	NickName   string
}

func (d *Directory) Connect(req ConnectRequest) error {
	if req.PlayerID == "" {
		return remote(backend.CodeNotAllowed, "player id required")
	}
	if req.AppID == "" || req.VoiceAppID == "" {
		return remote(backend.CodeNotAuthorized, "app id and voice app id required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.appIDs) > 0 {
		if _, ok := d.appIDs[req.AppID]; !ok {
			return remote(backend.CodeNotAuthorized, fmt.Sprintf("unknown app id %q", req.AppID))
		}
	}

	if p, ok := d.players[req.PlayerID]; ok && p.room != "" {
		d.leave(p)
	}

	d.players[req.PlayerID] = &player{
		id:    req.PlayerID,
		nick:  req.NickName,
		props: backend.Properties{},
	}
	return nil
}

// Disconnect removes the player, leaving any room first.
func (d *Directory) Disconnect(playerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.players[playerID]
	if !ok {
		return
	}
	d.leave(p)
	delete(d.players, playerID)
}

// JoinRequest carries what a player brings into a room.
type JoinRequest struct {
	PlayerID   string
	NickName   string
	Properties backend.Properties
}

// JoinRandom joins the oldest open, visible room with space whose lobby properties match
// filter. maxPlayers, when set, must equal the room's limit.
func (d *Directory) JoinRandom(req JoinRequest, filter backend.Properties, maxPlayers uint8) (string, []Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.onMaster(req)
	if err != nil {
		return "", nil, err
	}

	for _, name := range d.order {
		r := d.rooms[name]
		if !r.opts.Visible || !r.opts.Open || r.full() {
			continue
		}
		if maxPlayers > 0 && r.opts.MaxPlayers != maxPlayers {
			continue
		}
		if !r.lobbyProperties().Matches(filter) {
			continue
		}
		return r.name, d.enter(p, r), nil
	}

	return "", nil, remote(backend.CodeNoRandomMatchFound, "no match found")
}

// Create makes a room and joins it. An empty name gets a generated one.
func (d *Directory) Create(req JoinRequest, name string, opts backend.RoomOptions) (string, []Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.onMaster(req)
	if err != nil {
		return "", nil, err
	}

	if name == "" {
		name = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if _, ok := d.rooms[name]; ok {
		return "", nil, remote(backend.CodeGameIdAlreadyExists, fmt.Sprintf("room %s already exists", name))
	}

	r := d.create(name, opts)
	return r.name, d.enter(p, r), nil
}

// JoinOrCreate joins the named room, creating it with opts if it does not exist.
func (d *Directory) JoinOrCreate(req JoinRequest, name string, opts backend.RoomOptions) (string, []Notification, error) {
	if name == "" {
		return "", nil, remote(backend.CodeGameDoesNotExist, "room name required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p, err := d.onMaster(req)
	if err != nil {
		return "", nil, err
	}

	r, ok := d.rooms[name]
	if !ok {
		r = d.create(name, opts)
		return r.name, d.enter(p, r), nil
	}

	if !r.opts.Open {
		return "", nil, remote(backend.CodeGameClosed, fmt.Sprintf("room %s is closed", name))
	}
	if r.full() {
		return "", nil, remote(backend.CodeGameFull, fmt.Sprintf("room %s is full", name))
	}
	return r.name, d.enter(p, r), nil
}

// Leave takes the player out of their room. Empty rooms are removed.
func (d *Directory) Leave(playerID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.players[playerID]
	if !ok {
		return remote(backend.CodeNotAllowed, "not connected")
	}
	if p.room == "" {
		return remote(backend.CodeNotAllowed, "not in a room")
	}
	d.leave(p)
	return nil
}

// SetProperties merges props into the player's properties and reports the change to
// everyone in the player's room, the player included.
func (d *Directory) SetProperties(playerID string, props backend.Properties) ([]Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.players[playerID]
	if !ok {
		return nil, remote(backend.CodeNotAllowed, "not connected")
	}
	for k, v := range props.Clone() {
		p.props[k] = v
	}

	r, ok := d.rooms[p.room]
	if !ok {
		return nil, nil
	}

	var notes []Notification
	for _, id := range r.members {
		notes = append(notes, Notification{
			PlayerID: id,
			Event:    backend.PlayerPropertiesChanged{PlayerID: p.id, Properties: props.Clone()},
		})
	}
	return notes, nil
}

// Rooms lists every room in creation order.
func (d *Directory) Rooms() []RoomInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]RoomInfo, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.info(d.rooms[name]))
	}
	return out
}

func (d *Directory) Room(name string) (RoomInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[name]
	if !ok {
		return RoomInfo{}, false
	}
	return d.info(r), true
}

// onMaster returns the player if it may enter a room, refreshing what it brings along.
// d.mu must be held.
func (d *Directory) onMaster(req JoinRequest) (*player, error) {
	p, ok := d.players[req.PlayerID]
	if !ok {
		return nil, remote(backend.CodeNotAllowed, "not connected")
	}
	if p.room != "" {
		return nil, remote(backend.CodeNotAllowed, fmt.Sprintf("already in room %s", p.room))
	}
	if req.NickName != "" {
		p.nick = req.NickName
	}
	for k, v := range req.Properties.Clone() {
		p.props[k] = v
	}
	return p, nil
}

func (d *Directory) create(name string, opts backend.RoomOptions) *room {
	r := &room{name: name, opts: opts.Clone()}
	d.rooms[name] = r
	d.order = append(d.order, name)
	return r
}

// enter adds p to r and introduces it to the members already there.
func (d *Directory) enter(p *player, r *room) []Notification {
	var notes []Notification
	for _, id := range r.members {
		other := d.players[id]
		notes = append(notes,
			Notification{PlayerID: id, Event: backend.PlayerPropertiesChanged{PlayerID: p.id, Properties: p.props.Clone()}},
			Notification{PlayerID: p.id, Event: backend.PlayerPropertiesChanged{PlayerID: other.id, Properties: other.props.Clone()}},
		)
	}

	r.members = append(r.members, p.id)
	p.room = r.name
	return notes
}

func (d *Directory) leave(p *player) {
	r, ok := d.rooms[p.room]
	p.room = ""
	if !ok {
		return
	}

	r.members = slices.DeleteFunc(r.members, func(id string) bool { return id == p.id })
	if len(r.members) == 0 {
		delete(d.rooms, r.name)
		d.order = slices.DeleteFunc(d.order, func(n string) bool { return n == r.name })
	}
}

func remote(code int16, msg string) error {
	return &backend.RemoteError{Code: code, Message: msg}
}
