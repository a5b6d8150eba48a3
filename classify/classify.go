// Package classify decides what a completed response turn actually is:
// plain narrative text to render, or a structured request for further user
// input. Agents signal the latter by embedding a JSON envelope in the
// response text; anything that fails to extract or parse as that envelope
// falls back to narrative, so classification can never abort a turn.
package classify

import (
	"encoding/json"
	"strings"

	"github.com/m4xw311/agentchat/stream"
)

// Envelope is the structured wire shape an agent embeds when it needs more
// information from the user.
type Envelope struct {
	Content          string    `json:"content"`
	RequireUserInput bool      `json:"require_user_input"`
	IsTaskComplete   bool      `json:"is_task_complete"`
	Metadata         *Metadata `json:"metadata,omitempty"`
}

// Metadata carries the ordered input field descriptors.
type Metadata struct {
	UserInput   bool         `json:"user_input,omitempty"`
	InputFields []InputField `json:"input_fields,omitempty"`
}

// InputField describes one value the agent wants collected. A field with no
// allowed values is free text; a non-empty Values list makes it a choice
// field rendered as a numbered selection.
type InputField struct {
	Name        string   `json:"field_name"`
	Description string   `json:"field_description"`
	Values      []string `json:"field_values,omitempty"`
}

// FreeText reports whether the field accepts arbitrary input. Absent, null
// and empty value lists are equivalent here; agents emit all three.
func (f InputField) FreeText() bool {
	return len(f.Values) == 0
}

// Kind tags a classified response.
type Kind int

const (
	// Narrative is plain response text to be rendered as a formatted block.
	Narrative Kind = iota
	// Interactive is a structured request carrying input fields to collect.
	Interactive
)

// Response is the outcome of classifying one finalized turn. It is built
// once per turn and not modified afterwards.
type Response struct {
	Kind Kind
	// Text is the narrative text (Narrative) or the envelope content shown
	// above the form (Interactive).
	Text string
	// Fields is the ordered field list for Interactive responses.
	Fields []InputField
}

// Classify inspects the finalized raw buffer of a turn. It extracts the
// embedded balanced {...} span (tolerating any fragmentation the stream
// had), parses it as an Envelope and, when the envelope asks for user input
// with at least one usable field, returns an Interactive response. Every
// failure path degrades to Narrative with the sanitized buffer text.
func Classify(raw string) Response {
	sc := stream.NewPayloadScanner()
	sc.Feed(raw)

	payload, ok := sc.Payload()
	if !ok {
		return narrative(raw)
	}

	env, ok := parseEnvelope(payload)
	if !ok {
		return narrative(raw)
	}

	content := strings.TrimSpace(env.Content)
	if content == "" {
		// An envelope with no content of its own inherits the narrative
		// text around it.
		before, after := sc.Surrounding()
		content = strings.TrimSpace(stream.Sanitize(before + after))
	}

	if !env.RequireUserInput {
		return Response{Kind: Narrative, Text: stream.Sanitize(content)}
	}

	fields := usableFields(env)
	if len(fields) == 0 {
		return Response{Kind: Narrative, Text: stream.Sanitize(content)}
	}

	return Response{Kind: Interactive, Text: stream.Sanitize(content), Fields: fields}
}

func narrative(raw string) Response {
	return Response{Kind: Narrative, Text: strings.TrimSpace(stream.Sanitize(raw))}
}

// parseEnvelope accepts the span as an Envelope only when it carries the
// envelope's distinguishing fields with the right types. json.Unmarshal
// alone is too permissive: any object would decode into zero values.
func parseEnvelope(payload string) (Envelope, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return Envelope{}, false
	}
	if _, found := probe["content"]; !found {
		return Envelope{}, false
	}
	if _, found := probe["require_user_input"]; !found {
		return Envelope{}, false
	}

	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return Envelope{}, false
	}
	return env, true
}

// usableFields returns the envelope's fields with unusable entries removed:
// fields without a name are dropped, as is any later duplicate of a name
// (names are unique within a response).
func usableFields(env Envelope) []InputField {
	if env.Metadata == nil {
		return nil
	}
	seen := make(map[string]bool, len(env.Metadata.InputFields))
	var out []InputField
	for _, f := range env.Metadata.InputFields {
		name := strings.TrimSpace(f.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		f.Name = name
		out = append(out, f)
	}
	return out
}
