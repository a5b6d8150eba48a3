// Package display owns the terminal for the duration of a response turn.
// It drives the visible lifecycle of a turn as an explicit state machine:
// spinner while waiting, optional live echo while streaming, line-accurate
// clearing of the echoed text, and the final formatted panel. All terminal
// writes for a turn go through one Engine, so no locking is needed beyond
// the synchronous spinner handoff.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// State is the display engine's position in the turn lifecycle.
type State int

const (
	StateIdle State = iota
	StateWaiting
	StateStreaming
	StateFinalizing
	StatePresenting
	StateCollecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StatePresenting:
		return "presenting"
	case StateCollecting:
		return "collecting"
	default:
		return "unknown"
	}
}

// Options configures an Engine for one session. The two booleans are
// resolved before the engine runs and never change mid-turn.
type Options struct {
	// ShowStreaming echoes response text live as it arrives.
	ShowStreaming bool
	// ClearStreaming erases the live echo before presenting the panel.
	ClearStreaming bool
	// Writer receives all terminal output. Defaults to os.Stdout.
	Writer io.Writer
	// WidthFn probes the terminal width at finalize time. The default asks
	// the terminal behind Writer and falls back to DefaultWidth.
	WidthFn func() int
}

// Engine is the display state machine. One engine serves one conversation;
// its per-turn state is reset by BeginTurn. Not safe for concurrent turns —
// the design has none.
type Engine struct {
	opts Options
	w    io.Writer
	spin *Spinner

	state    State
	question string
	echoed   strings.Builder
	width    int
}

// NewEngine returns an idle engine.
func NewEngine(opts Options) *Engine {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.WidthFn == nil {
		w := opts.Writer
		opts.WidthFn = func() int { return probeWidth(w) }
	}
	return &Engine{
		opts:  opts,
		w:     opts.Writer,
		spin:  NewSpinner(opts.Writer),
		state: StateIdle,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// BeginTurn starts a new response cycle for the given user question and
// begins the spinner. Idle → Waiting.
func (e *Engine) BeginTurn(question string) {
	e.question = question
	e.echoed.Reset()
	e.width = 0
	e.state = StateWaiting
	e.spin.Start()
}

// Observe reacts to one content fragment. The first fragment moves
// Waiting → Streaming and starts the live echo — unless streaming display
// is disabled, or the accumulated buffer looks like a structured payload,
// in which case the display stays suppressed so raw JSON never reaches the
// screen. Suppression wins over ShowStreaming.
func (e *Engine) Observe(fragment string, structured bool) {
	if fragment == "" {
		return
	}

	switch e.state {
	case StateWaiting:
		if structured || !e.opts.ShowStreaming {
			return
		}
		// Hand the spinner line back and start echoing below it.
		e.spin.Stop()
		fmt.Fprint(e.w, "\n")
		e.state = StateStreaming
	case StateStreaming:
		if structured {
			// The payload opener arrived mid-stream; stop echoing. What is
			// already on screen is cleared at finalize.
			return
		}
	default:
		return
	}

	fmt.Fprint(e.w, fragment)
	e.echoed.WriteString(fragment)
}

// FinishStream ends the streaming phase: the spinner is stopped, the
// terminal width is snapshotted, and the live echo (plus the spinner line
// above it) is erased when clearing is enabled. Waiting/Streaming →
// Finalizing.
func (e *Engine) FinishStream() {
	e.spin.Stop()
	e.width = e.opts.WidthFn()

	switch e.state {
	case StateStreaming:
		if e.opts.ClearStreaming {
			// Echoed rows, plus one row for the spinner line above them.
			rows := CountRows(e.echoed.String(), e.width) + 1
			if err := ClearRows(e.w, rows); err == nil {
				fmt.Fprintf(e.w, "You: %s\n", e.question)
			} else {
				fmt.Fprint(e.w, "\n")
			}
		} else {
			fmt.Fprint(e.w, "\n")
		}
	case StateWaiting:
		// Nothing was echoed; only the spinner line needs to go.
		if e.opts.ClearStreaming {
			_ = ClearRows(e.w, 1)
		} else {
			fmt.Fprint(e.w, "\n")
		}
	}

	e.state = StateFinalizing
}

// Present renders the classified response content as a formatted panel.
// Finalizing → Presenting.
func (e *Engine) Present(title, content string) {
	if e.width <= 0 {
		e.width = e.opts.WidthFn()
	}
	fmt.Fprint(e.w, RenderPanel(title, content, e.width))
	e.state = StatePresenting
}

// BeginCollect marks the hand-off to interactive input collection.
// Presenting → CollectingInput.
func (e *Engine) BeginCollect() {
	e.state = StateCollecting
}

// EndTurn returns the engine to Idle, discarding per-turn state.
func (e *Engine) EndTurn() {
	e.question = ""
	e.echoed.Reset()
	e.state = StateIdle
}

// Cancel aborts the current turn from any state. The spinner is stopped
// synchronously and the cursor is moved to a fresh line so no partial
// control sequences or half-written rows remain.
func (e *Engine) Cancel() {
	if e.state == StateIdle {
		return
	}
	e.spin.Stop()
	fmt.Fprint(e.w, "\n")
	e.EndTurn()
}

// probeWidth asks the terminal behind out for its width, falling back to
// the default when out is not a terminal file.
func probeWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok {
		f = os.Stdout
	}
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		return w
	}
	return DefaultWidth
}
