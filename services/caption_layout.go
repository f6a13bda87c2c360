package services

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxLineLength is the caption wrap width in characters
const DefaultMaxLineLength = 40

// CaptionLayout wraps and escapes caption text for the drawtext overlay
type CaptionLayout struct {
	MaxLineLength int
}

// NewCaptionLayout creates a caption layout; non-positive widths use the default
func NewCaptionLayout(maxLineLength int) *CaptionLayout {
	if maxLineLength <= 0 {
		maxLineLength = DefaultMaxLineLength
	}
	return &CaptionLayout{MaxLineLength: maxLineLength}
}

// Wrap greedily packs words into lines of at most MaxLineLength characters.
// A word longer than the limit is never split and gets a line of its own.
func (cl *CaptionLayout) Wrap(text string) string {
	return strings.Join(cl.WrapLines(text), "\n")
}

// WrapLines is Wrap without the final join. Text is NFC-normalized first so a
// letter with a combining accent counts as one character.
func (cl *CaptionLayout) WrapLines(text string) []string {
	lines := []string{}
	current := ""

	for _, word := range strings.Fields(norm.NFC.String(text)) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}

		if runeLen(candidate) <= cl.MaxLineLength || current == "" {
			current = candidate
			continue
		}

		lines = append(lines, current)
		current = word
	}

	if current != "" {
		lines = append(lines, current)
	}

	return lines
}

// drawtextEscaper works in a single pass, so the backslashes it inserts are
// never escaped a second time.
var drawtextEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`:`, `\:`,
	`%`, `\%`,
)

// Escape makes text safe for the drawtext filter. Newlines are kept as-is so
// wrapped lines survive.
func (cl *CaptionLayout) Escape(text string) string {
	return drawtextEscaper.Replace(text)
}

// Unescape reverses Escape the way drawtext expands its text: a backslash
// yields the following character literally.
func (cl *CaptionLayout) Unescape(text string) string {
	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) {
			i++
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

// Layout returns the wrapped text and its escaped form
func (cl *CaptionLayout) Layout(text string) (wrapped, escaped string) {
	wrapped = cl.Wrap(text)
	return wrapped, cl.Escape(wrapped)
}

func runeLen(s string) int {
	return len([]rune(s))
}
