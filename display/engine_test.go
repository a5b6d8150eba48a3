package display

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func newTestEngine(show, clear bool) (*Engine, *bytes.Buffer) {
	var buf bytes.Buffer
	e := NewEngine(Options{
		ShowStreaming:  show,
		ClearStreaming: clear,
		Writer:         &buf,
		WidthFn:        func() int { return 80 },
	})
	return e, &buf
}

func TestEngineEchoThenClear(t *testing.T) {
	e, buf := newTestEngine(true, true)

	e.BeginTurn("deploy it")
	if e.State() != StateWaiting {
		t.Fatalf("state = %v, want waiting", e.State())
	}

	// One 85-cell line wraps to 2 rows at width 80; with the spinner row
	// above it the clear must cover 3 rows.
	e.Observe(strings.Repeat("x", 85), false)
	if e.State() != StateStreaming {
		t.Fatalf("state = %v, want streaming", e.State())
	}
	e.FinishStream()
	if e.State() != StateFinalizing {
		t.Fatalf("state = %v, want finalizing", e.State())
	}

	out := buf.String()
	if got := strings.Count(out, clearLine); got != 3 {
		t.Errorf("clear-line count = %d, want 3", got)
	}
	if got := strings.Count(out, cursorUp); got != 2 {
		t.Errorf("cursor-up count = %d, want 2", got)
	}
	if !strings.Contains(out, "You: deploy it") {
		t.Error("cleared echo must be replaced by the user's question")
	}

	e.Present("Answer", "done")
	if e.State() != StatePresenting {
		t.Fatalf("state = %v, want presenting", e.State())
	}
	if !strings.Contains(buf.String(), "Answer") {
		t.Error("panel title missing from output")
	}

	e.EndTurn()
	if e.State() != StateIdle {
		t.Fatalf("state = %v, want idle", e.State())
	}
}

func TestEngineSuppressesStructuredEcho(t *testing.T) {
	e, buf := newTestEngine(true, true)

	e.BeginTurn("question")
	e.Observe(`{"content": "secret`, true)
	if e.State() != StateWaiting {
		t.Fatalf("structured fragment must not start streaming, state = %v", e.State())
	}
	e.FinishStream()

	out := buf.String()
	if strings.Contains(out, `{"content"`) {
		t.Error("raw payload leaked to the terminal")
	}
	// Only the spinner row needed clearing.
	if got := strings.Count(out, clearLine); got != 1 {
		t.Errorf("clear-line count = %d, want 1", got)
	}
	if strings.Contains(out, "You: ") {
		t.Error("question reprint only follows a cleared echo")
	}
}

func TestEngineStructuredArrivingMidStream(t *testing.T) {
	e, buf := newTestEngine(true, true)

	e.BeginTurn("q")
	e.Observe("Looking into it. ", false)
	e.Observe(`{"require_user_input": true`, true)
	e.FinishStream()

	if strings.Contains(buf.String(), "require_user_input") {
		t.Error("payload fragment echoed after suppression kicked in")
	}
	if !strings.Contains(buf.String(), "You: q") {
		t.Error("earlier echo should still be cleared and replaced")
	}
}

func TestEngineShowStreamingDisabled(t *testing.T) {
	e, buf := newTestEngine(false, true)

	e.BeginTurn("q")
	e.Observe("live text", false)
	if e.State() != StateWaiting {
		t.Fatalf("state = %v, want waiting", e.State())
	}
	e.FinishStream()

	if strings.Contains(buf.String(), "live text") {
		t.Error("fragment echoed with streaming display off")
	}
}

func TestEngineClearDisabled(t *testing.T) {
	e, buf := newTestEngine(true, false)

	e.BeginTurn("q")
	e.Observe("hello there", false)
	e.FinishStream()

	out := buf.String()
	if !strings.Contains(out, "hello there") {
		t.Error("echo missing")
	}
	if strings.Contains(out, clearLine) {
		t.Error("no rows may be cleared when clearing is off")
	}
	if strings.Contains(out, "You: ") {
		t.Error("question reprint only pairs with clearing")
	}
}

func TestProbeWidthNonTerminalWriter(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	// The probe targets the engine's own writer; a plain file has no size.
	if got := probeWidth(f); got != DefaultWidth {
		t.Errorf("probeWidth = %d, want default %d", got, DefaultWidth)
	}
}

func TestEngineCancel(t *testing.T) {
	e, _ := newTestEngine(true, true)

	e.BeginTurn("q")
	e.Cancel()
	if e.State() != StateIdle {
		t.Fatalf("state after cancel = %v, want idle", e.State())
	}
	// Canceling an idle engine is a no-op.
	e.Cancel()
	if e.State() != StateIdle {
		t.Fatalf("state = %v, want idle", e.State())
	}
}
