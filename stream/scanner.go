package stream

// PayloadState reports the progress of the embedded-payload scan.
type PayloadState int

const (
	// PayloadNone means no opening brace has been seen yet.
	PayloadNone PayloadState = iota
	// PayloadIncomplete means an opening brace was seen but its matching
	// closing brace has not arrived. Callers must wait for more fragments.
	PayloadIncomplete
	// PayloadComplete means a balanced top-level {...} span is available.
	PayloadComplete
)

// PayloadScanner detects a structured JSON object embedded in a fragmented
// text stream. It is incremental: each fragment is scanned exactly once, and
// the scan state (brace depth, in-string flag, escape flag) carries across
// fragment boundaries, so the payload is found no matter how the stream was
// chunked. Braces inside quoted strings do not affect the depth count.
type PayloadScanner struct {
	buf []byte

	state    PayloadState
	start    int // offset of the opening brace in buf
	end      int // offset one past the matching closing brace
	scanned  int // offset up to which buf has been scanned
	depth    int
	inString bool
	escaped  bool
}

// NewPayloadScanner returns a scanner with no input.
func NewPayloadScanner() *PayloadScanner {
	return &PayloadScanner{start: -1, end: -1}
}

// Reset discards all input and state.
func (s *PayloadScanner) Reset() {
	s.buf = s.buf[:0]
	s.state = PayloadNone
	s.start, s.end = -1, -1
	s.scanned = 0
	s.depth = 0
	s.inString = false
	s.escaped = false
}

// Feed appends a fragment and advances the scan. Input after a completed
// payload is retained (it is part of the surrounding narrative) but no
// second payload is extracted.
func (s *PayloadScanner) Feed(fragment string) {
	s.buf = append(s.buf, fragment...)
	if s.state == PayloadComplete {
		return
	}

	for ; s.scanned < len(s.buf); s.scanned++ {
		c := s.buf[s.scanned]

		if s.state == PayloadNone {
			if c == '{' {
				s.state = PayloadIncomplete
				s.start = s.scanned
				s.depth = 1
			}
			continue
		}

		if s.inString {
			switch {
			case s.escaped:
				s.escaped = false
			case c == '\\':
				s.escaped = true
			case c == '"':
				s.inString = false
			}
			continue
		}

		switch c {
		case '"':
			s.inString = true
		case '{':
			s.depth++
		case '}':
			s.depth--
			if s.depth == 0 {
				s.state = PayloadComplete
				s.end = s.scanned + 1
				s.scanned = len(s.buf)
				return
			}
		}
	}
}

// State returns the current scan state.
func (s *PayloadScanner) State() PayloadState {
	return s.state
}

// Payload returns the balanced {...} span and true once the scan completed.
// Before completion (payload still arriving, or the stream ended with
// unbalanced braces) it returns "" and false, and the caller falls back to
// treating the buffer as narrative text.
func (s *PayloadScanner) Payload() (string, bool) {
	if s.state != PayloadComplete {
		return "", false
	}
	return string(s.buf[s.start:s.end]), true
}

// Surrounding returns the text before and after the extracted payload.
// With no completed payload both halves are empty.
func (s *PayloadScanner) Surrounding() (before, after string) {
	if s.state != PayloadComplete {
		return "", ""
	}
	return string(s.buf[:s.start]), string(s.buf[s.end:])
}
