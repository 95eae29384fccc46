package identity

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/pixil98/go-testutil"
	"github.com/pixil98/go-vrlobby/internal/backend"
)

type memStore[T any] struct {
	records   map[string]T
	saveErr   error
	reloadErr error
	saves     int
}

func newMemStore[T any]() *memStore[T] {
	return &memStore[T]{records: map[string]T{}}
}

func (m *memStore[T]) Save(id string, v T) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.records[id] = v
	return nil
}

func (m *memStore[T]) Get(id string) T { return m.records[id] }

func (m *memStore[T]) GetAll() map[string]T { return m.records }

func (m *memStore[T]) Reload() error { return m.reloadErr }

type recordingSink struct {
	state  backend.ClientState
	inRoom bool
	nick   string
	pushes []backend.Properties
}

func (s *recordingSink) SetLocalPlayerProperties(p backend.Properties) error {
	s.pushes = append(s.pushes, p)
	return nil
}

func (s *recordingSink) SetNickName(n string)        { s.nick = n }
func (s *recordingSink) State() backend.ClientState { return s.state }
func (s *recordingSink) InRoom() bool               { return s.inRoom }

type countingAvatar struct{ refreshes int }

func (a *countingAvatar) RefreshPlayerValues() { a.refreshes++ }

func assertDeepEqual(t *testing.T, name string, got, exp any) {
	t.Helper()
	if !reflect.DeepEqual(got, exp) {
		t.Errorf("%s: got %#v, expected %#v", name, got, exp)
	}
}

func newTestStore(sink *recordingSink) (*Store, *memStore[*Profile], *memStore[*AnonymousToken]) {
	profiles := newMemStore[*Profile]()
	tokens := newMemStore[*AnonymousToken]()
	return NewStore(profiles, tokens, sink), profiles, tokens
}

func TestNewStore_Defaults(t *testing.T) {
	s, _, _ := newTestStore(&recordingSink{})

	p := s.Profile()
	testutil.AssertEqual(t, "name", p.DisplayName, DefaultDisplayName)
	testutil.AssertEqual(t, "colour", p.Color, White)
	testutil.AssertEqual(t, "cosmetics", len(p.Cosmetics), 0)
}

func TestNewStore_LoadsPersisted(t *testing.T) {
	profiles := newMemStore[*Profile]()
	profiles.records[profileKey] = &Profile{DisplayName: "  ", Color: Color{R: 1, A: 1}, Cosmetics: map[string]string{"hat": "cap"}}

	s := NewStore(profiles, newMemStore[*AnonymousToken](), &recordingSink{})

	p := s.Profile()
	testutil.AssertEqual(t, "blank name sanitized", p.DisplayName, DefaultDisplayName)
	testutil.AssertEqual(t, "colour", p.Color, Color{R: 1, A: 1})
	testutil.AssertEqual(t, "hat", p.Cosmetics["hat"], "cap")
}

func TestStore_LastWriteWins(t *testing.T) {
	s, profiles, _ := newTestStore(&recordingSink{})

	for _, n := range []string{"alice", "bob", "", "carol"} {
		if err := s.SetDisplayName(n); err != nil {
			t.Fatalf("SetDisplayName(%q): %v", n, err)
		}
	}
	for _, c := range []Color{{R: 1, A: 1}, {G: 1, A: 1}, {B: 0.5, A: 0.25}} {
		if err := s.SetColor(c); err != nil {
			t.Fatalf("SetColor: %v", err)
		}
	}
	for _, id := range []string{"cap", "crown", "halo"} {
		if err := s.SetCosmetic("hat", id); err != nil {
			t.Fatalf("SetCosmetic: %v", err)
		}
	}

	saved := profiles.records[profileKey]
	testutil.AssertEqual(t, "name", saved.DisplayName, "carol")
	testutil.AssertEqual(t, "colour", saved.Color, Color{B: 0.5, A: 0.25})
	testutil.AssertEqual(t, "hat", saved.Cosmetics["hat"], "halo")
}

func TestStore_SetDisplayName(t *testing.T) {
	tests := map[string]struct {
		input   string
		state   backend.ClientState
		inRoom  bool
		expName string
		expPush bool
		expRefr int
	}{
		"offline keeps change local": {
			input:   "alice",
			state:   backend.ClientDisconnected,
			expName: "alice",
		},
		"connecting is not active": {
			input:   "alice",
			state:   backend.ClientConnectingToMaster,
			expName: "alice",
		},
		"on master pushes without refresh": {
			input:   "alice",
			state:   backend.ClientConnectedToMaster,
			expName: "alice",
			expPush: true,
		},
		"in room pushes and refreshes": {
			input:   "alice",
			state:   backend.ClientJoined,
			inRoom:  true,
			expName: "alice",
			expPush: true,
			expRefr: 1,
		},
		"whitespace becomes placeholder": {
			input:   " \t ",
			state:   backend.ClientJoined,
			inRoom:  true,
			expName: DefaultDisplayName,
			expPush: true,
			expRefr: 1,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			sink := &recordingSink{state: tt.state, inRoom: tt.inRoom}
			s, profiles, _ := newTestStore(sink)
			avatar := &countingAvatar{}
			s.SetAvatar(avatar)

			if err := s.SetDisplayName(tt.input); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			testutil.AssertEqual(t, "persisted", profiles.records[profileKey].DisplayName, tt.expName)
			testutil.AssertEqual(t, "nickname", sink.nick, tt.expName)
			testutil.AssertEqual(t, "refreshes", avatar.refreshes, tt.expRefr)
			if !tt.expPush {
				testutil.AssertEqual(t, "pushes", len(sink.pushes), 0)
				return
			}
			testutil.AssertEqual(t, "pushes", len(sink.pushes), 1)
			assertDeepEqual(t, "pushed", sink.pushes[0], backend.Properties{PropDisplayName: tt.expName})
		})
	}
}

func TestStore_CosmeticsPushFullMap(t *testing.T) {
	sink := &recordingSink{state: backend.ClientJoined, inRoom: true}
	s, _, _ := newTestStore(sink)

	if err := s.SetCosmetic("hat", "cap"); err != nil {
		t.Fatalf("SetCosmetic: %v", err)
	}
	if err := s.SetCosmetic("face", "glasses"); err != nil {
		t.Fatalf("SetCosmetic: %v", err)
	}

	testutil.AssertEqual(t, "pushes", len(sink.pushes), 2)
	assertDeepEqual(t, "second push", sink.pushes[1], backend.Properties{
		PropCosmetics: map[string]string{"hat": "cap", "face": "glasses"},
	})

	if err := s.SetCosmetics(map[string]string{"body": "suit"}); err != nil {
		t.Fatalf("SetCosmetics: %v", err)
	}
	assertDeepEqual(t, "overwrite", sink.pushes[2], backend.Properties{
		PropCosmetics: map[string]string{"body": "suit"},
	})

	// Later mutations must not leak into an already pushed table.
	if err := s.SetCosmetic("hat", "crown"); err != nil {
		t.Fatalf("SetCosmetic: %v", err)
	}
	assertDeepEqual(t, "earlier push untouched", sink.pushes[2][PropCosmetics], map[string]string{"body": "suit"})

	if err := s.SetCosmetic("body", ""); err != nil {
		t.Fatalf("SetCosmetic clear: %v", err)
	}
	assertDeepEqual(t, "cleared slot", sink.pushes[4], backend.Properties{
		PropCosmetics: map[string]string{"hat": "crown"},
	})
}

func TestStore_RejectsInvalidInput(t *testing.T) {
	sink := &recordingSink{state: backend.ClientJoined, inRoom: true}
	s, profiles, _ := newTestStore(sink)

	testutil.AssertErrorContains(t, s.SetCosmetic(" ", "cap"), "slot name")
	testutil.AssertErrorContains(t, s.SetCosmetics(map[string]string{"": "cap"}), "slot name")
	testutil.AssertErrorContains(t, s.SetColor(Color{R: 2}), "out of range")
	testutil.AssertErrorContains(t, s.SetColor(Color{R: float32(math.NaN()), A: 1}), "out of range")

	// Rejected input never reaches the profile, so later changes still persist.
	testutil.AssertEqual(t, "colour", s.Profile().Color, White)
	if _, ok := s.BaselineProperties()[PropColour]; !ok {
		t.Error("baseline lost its colour")
	}

	testutil.AssertEqual(t, "saves", profiles.saves, 0)
	testutil.AssertEqual(t, "pushes", len(sink.pushes), 0)
}

func TestStore_PersistFailureSkipsPush(t *testing.T) {
	sink := &recordingSink{state: backend.ClientJoined, inRoom: true}
	s, profiles, _ := newTestStore(sink)
	profiles.saveErr = errors.New("disk full")

	err := s.SetColor(Color{R: 1, A: 0.5})
	testutil.AssertErrorContains(t, err, "disk full")
	testutil.AssertErrorContains(t, s.SetCosmetic("hat", "cap"), "disk full")
	testutil.AssertEqual(t, "pushes", len(sink.pushes), 0)
	testutil.AssertEqual(t, "colour kept", s.Profile().Color, White)
	testutil.AssertEqual(t, "cosmetics kept", len(s.Profile().Cosmetics), 0)

	profiles.saveErr = nil
	if err := s.SetDisplayName("alice"); err != nil {
		t.Fatalf("SetDisplayName after recovery: %v", err)
	}
	assertDeepEqual(t, "persisted", profiles.records[profileKey], &Profile{
		DisplayName: "alice",
		Color:       White,
		Cosmetics:   map[string]string{},
	})
}

func TestStore_OfflineChangesInBaseline(t *testing.T) {
	sink := &recordingSink{state: backend.ClientDisconnected}
	s, _, _ := newTestStore(sink)

	if err := s.SetDisplayName("alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetColor(Color{G: 1, A: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCosmetic("hat", "cap"); err != nil {
		t.Fatal(err)
	}

	colour, err := Color{G: 1, A: 1}.Encode()
	if err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, "pushes", len(sink.pushes), 0)
	assertDeepEqual(t, "baseline", s.BaselineProperties(), backend.Properties{
		PropDisplayName: "alice",
		PropColour:      colour,
		PropCosmetics:   map[string]string{"hat": "cap"},
	})
}

func TestStore_Reload(t *testing.T) {
	s, profiles, _ := newTestStore(&recordingSink{})

	profiles.records[profileKey] = &Profile{DisplayName: "external", Color: White}
	s.Reload()
	testutil.AssertEqual(t, "reloaded", s.DisplayName(), "external")

	profiles.reloadErr = errors.New("corrupt")
	profiles.records[profileKey] = &Profile{DisplayName: "ignored", Color: White}
	s.Reload()
	testutil.AssertEqual(t, "kept on error", s.DisplayName(), "external")
}

func TestStore_AnonymousID(t *testing.T) {
	s, _, tokens := newTestStore(&recordingSink{})

	first, err := s.AnonymousID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.AnonymousID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "stable", second, first)
	testutil.AssertEqual(t, "length", len(first), 32)
	testutil.AssertEqual(t, "saved once", tokens.saves, 1)
}
