package identity

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"
)

const DefaultDisplayName = "Player"

// Profile is the local player's identity and appearance.
type Profile struct {
	DisplayName string            `json:"display_name"`
	Color       Color             `json:"colour"`
	Cosmetics   map[string]string `json:"cosmetics,omitempty"`
}

func DefaultProfile() *Profile {
	return &Profile{
		DisplayName: DefaultDisplayName,
		Color:       White,
		Cosmetics:   map[string]string{},
	}
}

func (p *Profile) Validate() error {
	el := errors.NewErrorList()

	el.Add(p.Color.Validate())
	for slot := range p.Cosmetics {
		if strings.TrimSpace(slot) == "" {
			el.Add(fmt.Errorf("cosmetic slot name must not be blank"))
		}
	}

	return el.Err()
}

func (p *Profile) Clone() *Profile {
	cp := *p
	cp.Cosmetics = make(map[string]string, len(p.Cosmetics))
	for k, v := range p.Cosmetics {
		cp.Cosmetics[k] = v
	}
	return &cp
}

// SanitizeDisplayName maps empty or whitespace-only names to DefaultDisplayName.
func SanitizeDisplayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultDisplayName
	}
	return name
}

// AnonymousToken is the locally generated identity used for unauthenticated logins.
type AnonymousToken struct {
	ID string `json:"id"`
}

func (t *AnonymousToken) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("anonymous token id must be set")
	}
	return nil
}
