package display

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

const spinnerMessage = "⏳ Waiting for agent..."

// Spinner animates a single-line waiting indicator. Start launches the
// animation goroutine; Stop blocks until that goroutine has handed the line
// back, so after Stop returns the caller is the only writer again.
type Spinner struct {
	w      io.Writer
	frames []string
	fps    time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewSpinner returns a spinner writing to w using the classic |/-\ frames.
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{
		w:      w,
		frames: spinner.Line.Frames,
		fps:    spinner.Line.FPS,
	}
}

// Start begins the animation. Starting a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
}

func (s *Spinner) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.fps)
	defer ticker.Stop()
	i := 0
	for {
		select {
		case <-stop:
			// Swap the frame for an arrow on the same line; the caller
			// decides whether the line stays or gets cleared.
			fmt.Fprintf(s.w, "\r%s →", spinnerMessage)
			return
		case <-ticker.C:
			fmt.Fprintf(s.w, "\r%s %s", spinnerMessage, s.frames[i%len(s.frames)])
			i++
		}
	}
}

// Stop ends the animation and waits for the final frame to be written.
// Stopping a stopped spinner is a no-op.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stop)
	<-s.done
	s.running = false
}
