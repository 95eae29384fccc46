package identity

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pixil98/go-vrlobby/internal/backend"
	"github.com/pixil98/go-vrlobby/internal/storage"
)

const (
	profileKey = "local"
	tokenKey   = "anonymous"
)

// PropertySink is the part of the backend client the store mirrors properties into.
type PropertySink interface {
	SetLocalPlayerProperties(backend.Properties) error
	SetNickName(string)
	State() backend.ClientState
	InRoom() bool
}

// ProfileStorer persists profiles and can re-read them from their backing medium.
type ProfileStorer interface {
	storage.Storer[*Profile]
	Reload() error
}

// Avatar is the local avatar representation, refreshed after every change while in a room.
type Avatar interface {
	RefreshPlayerValues()
}

// Store owns the local player's identity. It is not safe for concurrent use; all calls are
// expected on the session driver's goroutine.
type Store struct {
	profiles ProfileStorer
	tokens   storage.Storer[*AnonymousToken]
	sink     PropertySink
	avatar   Avatar

	profile *Profile
}

// NewStore loads the persisted profile, falling back to DefaultProfile when none exists.
func NewStore(profiles ProfileStorer, tokens storage.Storer[*AnonymousToken], sink PropertySink) *Store {
	s := &Store{
		profiles: profiles,
		tokens:   tokens,
		sink:     sink,
	}
	s.profile = s.loadProfile()
	return s
}

// SetAvatar registers the local avatar. Pass nil when it is destroyed.
func (s *Store) SetAvatar(a Avatar) {
	s.avatar = a
}

// Profile returns a copy of the current profile.
func (s *Store) Profile() *Profile {
	return s.profile.Clone()
}

func (s *Store) DisplayName() string {
	return s.profile.DisplayName
}

// Reload re-reads the persisted profile. On failure the in-memory profile is kept.
func (s *Store) Reload() {
	if err := s.profiles.Reload(); err != nil {
		slog.Warn("reloading identity, keeping in-memory profile", "error", err)
		return
	}
	s.profile = s.loadProfile()
}

// BaselineProperties is the full property set broadcast once per connection.
func (s *Store) BaselineProperties() backend.Properties {
	props, err := EncodeProperties(s.profile)
	if err != nil {
		slog.Warn("encoding baseline properties, colour omitted", "error", err)
	}
	return props
}

func (s *Store) SetDisplayName(name string) error {
	next := s.profile.Clone()
	next.DisplayName = SanitizeDisplayName(name)

	if err := s.commit(next); err != nil {
		return err
	}

	s.sink.SetNickName(next.DisplayName)
	s.push(backend.Properties{PropDisplayName: next.DisplayName})
	return nil
}

func (s *Store) SetColor(c Color) error {
	if err := c.Validate(); err != nil {
		return err
	}
	encoded, err := c.Encode()
	if err != nil {
		return err
	}

	next := s.profile.Clone()
	next.Color = c
	if err := s.commit(next); err != nil {
		return err
	}

	s.push(backend.Properties{PropColour: encoded})
	return nil
}

// SetCosmetic selects id for slot, or clears the slot when id is empty. The full cosmetics
// map is pushed, never a partial patch.
func (s *Store) SetCosmetic(slot, id string) error {
	if strings.TrimSpace(slot) == "" {
		return fmt.Errorf("cosmetic slot name must not be blank")
	}

	next := s.profile.Clone()
	if id == "" {
		delete(next.Cosmetics, slot)
	} else {
		next.Cosmetics[slot] = id
	}

	return s.commitCosmetics(next)
}

// SetCosmetics replaces every slot selection. Slots with an empty id are cleared, the same
// as SetCosmetic. A nil map clears them all.
func (s *Store) SetCosmetics(c map[string]string) error {
	selected := make(map[string]string, len(c))
	for slot, id := range c {
		if strings.TrimSpace(slot) == "" {
			return fmt.Errorf("cosmetic slot name must not be blank")
		}
		if id != "" {
			selected[slot] = id
		}
	}

	next := s.profile.Clone()
	next.Cosmetics = selected

	return s.commitCosmetics(next)
}

func (s *Store) commitCosmetics(next *Profile) error {
	if err := s.commit(next); err != nil {
		return err
	}

	s.push(backend.Properties{PropCosmetics: cosmeticsTable(next.Cosmetics)})
	return nil
}

// AnonymousID returns the locally persisted anonymous token, creating it on first use.
func (s *Store) AnonymousID() (string, error) {
	if t := s.tokens.Get(tokenKey); t != nil && t.ID != "" {
		return t.ID, nil
	}

	t := &AnonymousToken{ID: strings.ReplaceAll(uuid.NewString(), "-", "")}
	if err := s.tokens.Save(tokenKey, t); err != nil {
		return "", fmt.Errorf("saving anonymous token: %w", err)
	}
	return t.ID, nil
}

func (s *Store) loadProfile() *Profile {
	p := s.profiles.Get(profileKey)
	if p == nil {
		return DefaultProfile()
	}
	p = p.Clone()
	p.DisplayName = SanitizeDisplayName(p.DisplayName)
	return p
}

// commit persists next and only then makes it the current profile, so a failed save
// leaves the store as it was.
func (s *Store) commit(next *Profile) error {
	if err := s.profiles.Save(profileKey, next.Clone()); err != nil {
		return fmt.Errorf("persisting identity: %w", err)
	}
	s.profile = next
	return nil
}

// push mirrors props to the backend when a session is up, then refreshes the avatar.
// Changes made while offline go out with the next baseline broadcast.
func (s *Store) push(props backend.Properties) {
	if !sessionActive(s.sink.State()) {
		slog.Debug("no active session, property change deferred to baseline", "keys", len(props))
		return
	}

	if err := s.sink.SetLocalPlayerProperties(props); err != nil {
		slog.Debug("pushing player properties", "error", err)
	}

	if s.sink.InRoom() && s.avatar != nil {
		s.avatar.RefreshPlayerValues()
	}
}

func sessionActive(st backend.ClientState) bool {
	switch st {
	case backend.ClientConnectedToMaster, backend.ClientJoining, backend.ClientJoined, backend.ClientLeaving:
		return true
	default:
		return false
	}
}
