package display

import (
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestWrap(t *testing.T) {
	tests := map[string]struct {
		text     string
		expLines int
	}{
		"short":    {text: "join public", expLines: 1},
		"long":     {text: strings.Repeat("word ", 40), expLines: 3},
		"newlines": {text: "a\nb\nc", expLines: 3},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			out := Wrap(tt.text)
			lines := strings.Split(strings.TrimRight(out, " \n"), "\n")
			testutil.AssertEqual(t, "lines", len(lines), tt.expLines)
			for _, l := range lines {
				if len(l) > DefaultWidth {
					t.Errorf("line too long (%d): %q", len(l), l)
				}
			}
		})
	}
}

func TestWrapIndented(t *testing.T) {
	out := WrapIndented(strings.Repeat("cosmetic ", 20), 4)
	for _, l := range strings.Split(out, "\n") {
		if l == "" {
			continue
		}
		testutil.AssertEqual(t, "indented", strings.HasPrefix(l, "    "), true)
		if len(l) > DefaultWidth {
			t.Errorf("line too long (%d): %q", len(l), l)
		}
	}
}

func TestTemplate(t *testing.T) {
	tests := map[string]struct {
		text   string
		data   any
		exp    string
		expErr string
	}{
		"field":         {text: "{{ .Room }}", data: struct{ Room string }{"AB12"}, exp: "AB12"},
		"sprig default": {text: `{{ .Room | default "-" }}`, data: struct{ Room string }{}, exp: "-"},
		"sprig upper":   {text: "{{ .State | upper }}", data: struct{ State string }{"in-room"}, exp: "IN-ROOM"},
		"missing field": {text: "{{ .Nope }}", data: struct{}{}, expErr: "executing template test"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tmpl, err := ParseTemplate("test", tt.text)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			out, err := tmpl.Render(tt.data)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			testutil.AssertEqual(t, "output", out, tt.exp)
		})
	}
}

func TestParseTemplate_Invalid(t *testing.T) {
	_, err := ParseTemplate("broken", "{{ .Room ")
	testutil.AssertErrorContains(t, err, "parsing template broken")
}
