// Package chat runs the interactive conversation loop: it reads user
// input, drives one response turn at a time through the display engine,
// and hands structured follow-up requests to the form collector. The loop
// owns the terminal; everything protocol-shaped is behind the transport
// client.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/m4xw311/agentchat/config"
	"github.com/m4xw311/agentchat/display"
	"github.com/m4xw311/agentchat/form"
	"github.com/m4xw311/agentchat/session"
	"github.com/m4xw311/agentchat/transport"
)

var welcomeStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("2")).
	Padding(1, 2)

// Chat wires the conversation loop together.
type Chat struct {
	client transport.Client
	sess   *session.Session
	engine *display.Engine
	forms  *form.Collector

	in    *bufio.Reader
	out   io.Writer
	debug *log.Logger

	skillDescription string
	skillExamples    []string
}

// New builds a chat for the given transport client, agent card and
// session, attached to the process terminal. The session is created by the
// caller because the transport client needs its context ID before the chat
// exists.
func New(cfg *config.Config, client transport.Client, card *transport.Card, sess *session.Session) *Chat {
	return NewWithIO(cfg, client, card, sess, os.Stdin, os.Stdout)
}

// NewWithIO is New with explicit input and output streams.
func NewWithIO(cfg *config.Config, client transport.Client, card *transport.Card, sess *session.Session, in io.Reader, out io.Writer) *Chat {
	debugOut := io.Discard
	if cfg.Debug {
		debugOut = os.Stderr
	}

	desc, examples := card.PrimarySkill()

	return &Chat{
		client: client,
		sess:   sess,
		engine: display.NewEngine(display.Options{
			ShowStreaming:  cfg.ShowStreaming,
			ClearStreaming: cfg.ClearStreaming,
			Writer:         out,
		}),
		forms:            form.NewCollector(in, out),
		in:               bufio.NewReader(in),
		out:              out,
		debug:            log.New(debugOut, "DEBUG: ", log.Ltime),
		skillDescription: desc,
		skillExamples:    examples,
	}
}

// Session exposes the conversation session, mainly for the entry point to
// report the context ID in debug mode.
func (c *Chat) Session() *session.Session {
	return c.sess
}

// Run starts the interactive loop. An initial prompt, when provided, is
// processed before the first read. The loop ends on exit/quit or end of
// input; an interrupt only aborts the turn in flight.
func (c *Chat) Run(ctx context.Context, initialPrompt string) error {
	c.printWelcome()

	if initialPrompt != "" {
		c.runTurn(ctx, initialPrompt)
	}

	for {
		if ctx.Err() != nil {
			break
		}

		fmt.Fprint(c.out, "You: ")
		line, err := c.in.ReadString('\n')
		if err != nil {
			fmt.Fprintln(c.out)
			break
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "exit", "quit":
			fmt.Fprintf(c.out, "Goodbye! Thanks for using %s.\n", c.sess.AgentName)
			return c.sess.SaveHistory()
		case "clear":
			fmt.Fprint(c.out, "\x1b[2J\x1b[H")
			c.printWelcome()
			continue
		case "history":
			c.printHistory()
			continue
		}

		c.sess.RecordInput(input)
		c.runTurn(ctx, input)
	}

	return c.sess.SaveHistory()
}

// runTurn processes one turn with interrupt handling: Ctrl-C cancels the
// turn and returns the loop to the prompt with the terminal in a clean
// state.
func (c *Chat) runTurn(ctx context.Context, input string) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := c.processTurn(turnCtx, input); err != nil {
		c.engine.Cancel()
		if turnCtx.Err() != nil {
			fmt.Fprint(c.out, display.RenderNotice("Turn canceled."))
			return
		}
		fmt.Fprint(c.out, display.RenderNotice(fmt.Sprintf("Error: %v", err)))
	}
}

func (c *Chat) printWelcome() {
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome to %s\n\n", c.sess.AgentName)
	b.WriteString("Type your question and hit enter.\n")
	b.WriteString("Type 'exit' or 'quit' to leave, 'clear' to clear the screen,\n")
	b.WriteString("'history' to view the lines you typed.")

	if c.skillDescription != "" {
		fmt.Fprintf(&b, "\n\nSkills: %s", c.skillDescription)
	}
	if len(c.skillExamples) > 0 {
		b.WriteString("\n\nExamples:")
		for _, ex := range c.skillExamples {
			fmt.Fprintf(&b, "\n  - %s", ex)
		}
	}

	fmt.Fprintf(c.out, "%s\n\n", welcomeStyle.Render(b.String()))
}

func (c *Chat) printHistory() {
	lines := c.sess.Inputs(100)
	if len(lines) == 0 {
		fmt.Fprintln(c.out, "No history yet.")
		return
	}
	fmt.Fprintln(c.out, "Input history:")
	for i, line := range lines {
		fmt.Fprintf(c.out, "%3d: %s\n", i+1, line)
	}
}
