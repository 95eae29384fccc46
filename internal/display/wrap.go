package display

import (
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const DefaultWidth = 80

// Wrap word-wraps text to DefaultWidth, preserving ANSI escape sequences.
func Wrap(text string) string {
	return wordwrap.String(text, DefaultWidth)
}

// WrapIndented wraps text so that, once indented by n spaces, it fits DefaultWidth.
func WrapIndented(text string, n uint) string {
	return indent.String(wordwrap.String(text, DefaultWidth-int(n)), n)
}
