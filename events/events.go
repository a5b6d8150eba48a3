// Package events normalizes the heterogeneous event objects produced by a
// streaming agent into a small closed set of kinds. Agents emit several
// evolving shapes on the same stream (task creation, status updates,
// artifact chunks, vendor extensions); rather than enumerating types, the
// normalizer probes each event for the capabilities it cares about and maps
// everything else to Unknown.
package events

import (
	"encoding/json"
)

// Kind classifies a normalized stream event.
type Kind int

const (
	// Unknown marks events that expose neither status nor content
	// capabilities, including events that fail to parse at all. They carry
	// no text and are skipped by the consumer.
	Unknown Kind = iota
	// StatusUpdate marks progress/state events. Their text, if any, never
	// reaches the display buffer.
	StatusUpdate
	// ContentUpdate marks events that carry user-visible response text.
	ContentUpdate
)

func (k Kind) String() string {
	switch k {
	case StatusUpdate:
		return "status"
	case ContentUpdate:
		return "content"
	default:
		return "unknown"
	}
}

// StreamEvent is the normalized form of one inbound event. Events are
// consumed immediately after normalization and never retained.
type StreamEvent struct {
	Kind Kind
	// Text is the concatenated text carried by the event. Only
	// ContentUpdate text is displayed.
	Text string
	// Seq is the arrival sequence number assigned by the caller.
	Seq uint64
	// Artifact is the name of the artifact the text came from, when the
	// event carried a single named one. Agents use it to label their
	// streaming strategy ("streaming_result" chunks vs a cumulative
	// "partial_result").
	Artifact string
	// Final reports that the producer marked this event as the last one of
	// the turn.
	Final bool
}

// CumulativeArtifact names the artifact agents emit as a full-text recap of
// a turn they also streamed in chunks. Consumers that accumulated the
// chunks must skip it or the answer doubles.
const CumulativeArtifact = "partial_result"

// rawEvent mirrors only the fields the capability probe inspects. Every
// field is optional; presence decides classification.
type rawEvent struct {
	Result json.RawMessage `json:"result"`
	Kind   string          `json:"kind"`
	Final  bool            `json:"final"`
	// Streaming chunks carry a single artifact; completed tasks carry an
	// artifacts list.
	Artifact  *rawArtifact  `json:"artifact"`
	Artifacts []rawArtifact `json:"artifacts"`
	Status    *rawStatus    `json:"status"`
}

type rawArtifact struct {
	Name  string    `json:"name"`
	Parts []rawPart `json:"parts"`
}

type rawStatus struct {
	State   string      `json:"state"`
	Message *rawMessage `json:"message"`
}

type rawMessage struct {
	Text  string    `json:"text"`
	Parts []rawPart `json:"parts"`
}

// rawPart covers the part shapes seen in the wild: a flat text part
// ({"kind":"text","text":...}), a bare {"text":...}, a part with the text
// under "content", and the nested {"root":{...}} wrapper.
type rawPart struct {
	Kind    string   `json:"kind"`
	Type    string   `json:"type"`
	Text    string   `json:"text"`
	Content string   `json:"content"`
	Root    *rawPart `json:"root"`
}

func (p *rawPart) text() string {
	if p == nil {
		return ""
	}
	if p.Root != nil {
		return p.Root.text()
	}
	// A declared non-text kind carries no displayable text.
	kind := p.Kind
	if kind == "" {
		kind = p.Type
	}
	if kind != "" && kind != "text" {
		return ""
	}
	if p.Text != "" {
		return p.Text
	}
	return p.Content
}

func joinParts(parts []rawPart) string {
	var out string
	for i := range parts {
		out += parts[i].text()
	}
	return out
}

// Normalize maps one opaque inbound event to a StreamEvent. Classification
// is capability-based: an artifact with text parts is a ContentUpdate, a
// status is a StatusUpdate, anything else (including malformed JSON) is
// Unknown. Normalize never fails; a bad event degrades to Unknown so a
// single malformed chunk cannot abort the turn.
func Normalize(raw json.RawMessage, seq uint64) StreamEvent {
	ev := StreamEvent{Kind: Unknown, Seq: seq}

	var re rawEvent
	if err := json.Unmarshal(raw, &re); err != nil {
		return ev
	}

	// JSON-RPC responses wrap the event under "result"; unwrap once.
	if re.Result != nil {
		var inner rawEvent
		if err := json.Unmarshal(re.Result, &inner); err != nil {
			return ev
		}
		re = inner
	}

	ev.Final = re.Final

	switch {
	case re.Artifact != nil:
		ev.Kind = ContentUpdate
		ev.Text = joinParts(re.Artifact.Parts)
		ev.Artifact = re.Artifact.Name
	case len(re.Artifacts) > 0:
		ev.Kind = ContentUpdate
		for i := range re.Artifacts {
			ev.Text += joinParts(re.Artifacts[i].Parts)
		}
	case re.Status != nil:
		ev.Kind = StatusUpdate
		if re.Status.Message != nil {
			if re.Status.Message.Text != "" {
				ev.Text = re.Status.Message.Text
			} else {
				ev.Text = joinParts(re.Status.Message.Parts)
			}
		}
	}

	return ev
}
