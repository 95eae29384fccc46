package identity

import (
	"fmt"

	"github.com/pixil98/go-vrlobby/internal/backend"
)

// Player custom property keys.
const (
	PropDisplayName = "DisplayName"
	PropColour      = "Colour"
	PropCosmetics   = "Cosmetics"
)

// EncodeProperties renders a profile as the full baseline property set. When the colour
// cannot be encoded the remaining properties are still returned alongside the error.
func EncodeProperties(p *Profile) (backend.Properties, error) {
	props := backend.Properties{
		PropDisplayName: p.DisplayName,
		PropCosmetics:   cosmeticsTable(p.Cosmetics),
	}

	colour, err := p.Color.Encode()
	if err != nil {
		return props, err
	}
	props[PropColour] = colour

	return props, nil
}

// cosmeticsTable copies the map so pushed properties never alias the store's state.
func cosmeticsTable(c map[string]string) map[string]string {
	t := make(map[string]string, len(c))
	for k, v := range c {
		t[k] = v
	}
	return t
}

// DecodePlayerProperties reads identity properties back out of a property bag. Keys that
// are absent keep their DefaultProfile value.
func DecodePlayerProperties(props backend.Properties) (*Profile, error) {
	p := DefaultProfile()

	if v, ok := props[PropDisplayName]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected type %T", PropDisplayName, v)
		}
		if s != "" {
			p.DisplayName = s
		}
	}

	if v, ok := props[PropColour]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected type %T", PropColour, v)
		}
		c, err := DecodeColor(s)
		if err != nil {
			return nil, err
		}
		p.Color = c
	}

	if v, ok := props[PropCosmetics]; ok && v != nil {
		switch t := v.(type) {
		case map[string]string:
			for slot, id := range t {
				if slot != "" && id != "" {
					p.Cosmetics[slot] = id
				}
			}
		case map[string]any:
			for slot, raw := range t {
				id, _ := raw.(string)
				if slot != "" && id != "" {
					p.Cosmetics[slot] = id
				}
			}
		default:
			return nil, fmt.Errorf("%s: unexpected type %T", PropCosmetics, v)
		}
	}

	return p, nil
}
