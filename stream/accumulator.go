// Package stream assembles the text of one response turn from the fragments
// an agent emits while streaming. The accumulator keeps the raw
// concatenation of every fragment; the sanitized form shown to the user is
// always recomputed from that raw buffer, so the result is identical no
// matter how the source text was chunked in transit.
package stream

import (
	"strings"
	"unicode"
)

// Accumulator collects response fragments for a single turn.
// It is reset at the start of each turn and is not safe for concurrent use;
// one goroutine owns the turn.
type Accumulator struct {
	raw     strings.Builder
	scanner *PayloadScanner
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{scanner: NewPayloadScanner()}
}

// Reset discards all accumulated text, ready for the next turn.
func (a *Accumulator) Reset() {
	a.raw.Reset()
	a.scanner.Reset()
}

// Append adds one fragment to the raw buffer and advances the embedded
// payload scan.
func (a *Accumulator) Append(fragment string) {
	if fragment == "" {
		return
	}
	a.raw.WriteString(fragment)
	a.scanner.Feed(fragment)
}

// Len returns the raw buffer length in bytes.
func (a *Accumulator) Len() int {
	return a.raw.Len()
}

// Raw returns the unmodified concatenation of all fragments.
func (a *Accumulator) Raw() string {
	return a.raw.String()
}

// LooksStructured reports whether the buffer so far begins a structured
// payload. The display engine uses this to keep raw JSON off the screen
// while it is still arriving.
func (a *Accumulator) LooksStructured() bool {
	return strings.HasPrefix(strings.TrimLeftFunc(a.raw.String(), unicode.IsSpace), "{")
}

// Payload returns the balanced structured span if the scan completed.
func (a *Accumulator) Payload() (string, bool) {
	return a.scanner.Payload()
}

// PayloadState exposes the scan progress (none / incomplete / complete).
func (a *Accumulator) PayloadState() PayloadState {
	return a.scanner.State()
}

// Finalize returns the sanitized text for the completed turn.
func (a *Accumulator) Finalize() string {
	return Sanitize(a.raw.String())
}

// Sanitize normalizes raw accumulated text for display. It is a pure
// function of its input and idempotent, which is what makes the streamed
// result independent of fragment boundaries:
//
//  1. Literal backslash-n sequences are converted to real line breaks.
//     Agents that build their reply through an intermediate JSON encoding
//     often leak these.
//  2. A single space is inserted where sentence-ending punctuation is
//     directly followed by an uppercase letter (and preceded by a lowercase
//     one). Streamed chunks sometimes drop the whitespace between
//     sentences; the lowercase/uppercase guard keeps the rule away from
//     abbreviations ("U.S.") and from words like "ArgoCD" that were merely
//     split mid-word.
func Sanitize(text string) string {
	text = unescapeNewlines(text)
	return joinSentences(text)
}

func unescapeNewlines(text string) string {
	if !strings.Contains(text, `\n`) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '\\' && i+1 < len(text) {
			switch text[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				// Keep escaped backslashes intact so a second pass does
				// not turn "\\n" into a line break.
				b.WriteString(`\\`)
				i++
				continue
			}
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

func joinSentences(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 8)

	var prev, punct rune
	havePunct := false
	for _, r := range text {
		if havePunct {
			if unicode.IsUpper(r) && unicode.IsLower(prev) {
				b.WriteRune(punct)
				b.WriteByte(' ')
			} else {
				b.WriteRune(punct)
			}
			prev = punct
			havePunct = false
		}
		if isSentenceEnd(r) {
			punct = r
			havePunct = true
			continue
		}
		b.WriteRune(r)
		if !havePunct {
			prev = r
		}
	}
	if havePunct {
		b.WriteRune(punct)
	}
	return b.String()
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
