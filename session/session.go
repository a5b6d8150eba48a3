// Package session holds the per-process conversation state: the context ID
// that ties a session's messages together, the in-memory message log backing
// the history command, and the persisted input-line history. Conversation
// content itself is never written to disk; only the lines the user typed
// are, so they can be recalled in the next run.
package session

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const historyFileName = ".agentchat_history"

// maxHistoryLines bounds the persisted input history.
const maxHistoryLines = 1000

// Message is one exchange entry in the in-memory log.
type Message struct {
	Role    string // "user" or "agent"
	Content string
}

// Session is the state of one conversation. It lives for the process and
// is discarded on exit, except for the typed-input history.
type Session struct {
	ContextID string
	AgentName string

	messages []Message
	inputs   []string
	histPath string
}

// New creates a session with a fresh context ID. The input history from
// previous runs is loaded if present; a missing or unreadable history file
// is not an error.
func New(agentName string) *Session {
	s := &Session{
		ContextID: uuid.NewString(),
		AgentName: agentName,
		histPath:  historyPath(),
	}
	s.loadHistory()
	return s
}

// AddMessage appends one exchange entry to the in-memory log.
func (s *Session) AddMessage(role, content string) {
	s.messages = append(s.messages, Message{Role: role, Content: content})
}

// Messages returns the in-memory log in order.
func (s *Session) Messages() []Message {
	return s.messages
}

// RecordInput remembers one typed line for history recall.
func (s *Session) RecordInput(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	s.inputs = append(s.inputs, line)
}

// Inputs returns up to n of the most recent typed lines, oldest first.
func (s *Session) Inputs(n int) []string {
	if n <= 0 || n >= len(s.inputs) {
		return s.inputs
	}
	return s.inputs[len(s.inputs)-n:]
}

// SaveHistory persists the typed-input history, truncated to the most
// recent entries.
func (s *Session) SaveHistory() error {
	if s.histPath == "" {
		return nil
	}
	lines := s.inputs
	if len(lines) > maxHistoryLines {
		lines = lines[len(lines)-maxHistoryLines:]
	}
	data := strings.Join(lines, "\n")
	if data != "" {
		data += "\n"
	}
	return os.WriteFile(s.histPath, []byte(data), 0600)
}

func (s *Session) loadHistory() {
	if s.histPath == "" {
		return
	}
	f, err := os.Open(s.histPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			s.inputs = append(s.inputs, line)
		}
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFileName)
}

// String describes the session for debug output.
func (s *Session) String() string {
	return fmt.Sprintf("session %s with %s (%d messages)", s.ContextID, s.AgentName, len(s.messages))
}
