package identity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Color is an RGBA colour with channels in [0,1].
type Color struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
	A float32 `json:"a"`
}

var White = Color{R: 1, G: 1, B: 1, A: 1}

func (c Color) Validate() error {
	for _, ch := range []float32{c.R, c.G, c.B, c.A} {
		f := float64(ch)
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 1 {
			return fmt.Errorf("colour channel %v out of range [0,1]", ch)
		}
	}
	return nil
}

// Encode serializes the colour the way it travels in the Colour player property.
func (c Color) Encode() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding colour: %w", err)
	}
	return string(b), nil
}

func DecodeColor(s string) (Color, error) {
	var c Color
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return Color{}, fmt.Errorf("decoding colour %q: %w", s, err)
	}
	return c, nil
}

// ParseHexColor accepts #RRGGBB or #RRGGBBAA (the leading # is optional).
func ParseHexColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return Color{}, fmt.Errorf("colour %q must be 6 or 8 hex digits", s)
	}
	if len(s) == 6 {
		s += "ff"
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("parsing colour %q: %w", s, err)
	}

	channel := func(shift uint) float32 {
		return float32((v>>shift)&0xff) / 255
	}
	return Color{R: channel(24), G: channel(16), B: channel(8), A: channel(0)}, nil
}

func (c Color) Hex() string {
	to := func(f float32) uint8 { return uint8(f*255 + 0.5) }
	return fmt.Sprintf("#%02x%02x%02x%02x", to(c.R), to(c.G), to(c.B), to(c.A))
}
