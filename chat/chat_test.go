package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/m4xw311/agentchat/config"
	"github.com/m4xw311/agentchat/session"
	"github.com/m4xw311/agentchat/transport"
)

// fakeClient scripts the agent side of a conversation: each call to Stream
// consumes the next slice of raw events, and every outbound message text is
// recorded.
type fakeClient struct {
	streams  [][]string
	response string
	noStream bool

	sent  []string
	calls int
}

func (f *fakeClient) Stream(ctx context.Context, text string) (<-chan transport.StreamItem, error) {
	if f.noStream {
		return nil, transport.ErrStreamingUnsupported
	}
	f.sent = append(f.sent, text)
	if f.calls >= len(f.streams) {
		return nil, fmt.Errorf("unexpected message %q", text)
	}
	events := f.streams[f.calls]
	f.calls++

	ch := make(chan transport.StreamItem, len(events))
	for _, ev := range events {
		ch <- transport.StreamItem{Raw: json.RawMessage(ev)}
	}
	close(ch)
	return ch, nil
}

func (f *fakeClient) Send(ctx context.Context, text string) (json.RawMessage, error) {
	f.sent = append(f.sent, text)
	return json.RawMessage(f.response), nil
}

// contentEvent wraps a text fragment in the streaming artifact shape.
func contentEvent(fragment string) string {
	return namedContentEvent("streaming_result", fragment)
}

func namedContentEvent(name, fragment string) string {
	return fmt.Sprintf(`{"artifact":{"name":%s,"parts":[{"kind":"text","text":%s}]}}`,
		strconv.Quote(name), strconv.Quote(fragment))
}

func newTestChat(t *testing.T, client transport.Client, userInput string) (*Chat, *bytes.Buffer) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cfg := &config.Config{ShowStreaming: false, ClearStreaming: false}
	card := &transport.Card{Name: "DevOps Agent"}
	sess := session.New(card.DisplayName())

	var out bytes.Buffer
	c := NewWithIO(cfg, client, card, sess, strings.NewReader(userInput), &out)
	return c, &out
}

func TestTurnWithFormRoundTrip(t *testing.T) {
	envelope := `{"content":"Which environment?","require_user_input":true,` +
		`"metadata":{"input_fields":[{"field_name":"environment","field_description":"Target",` +
		`"field_values":["development","staging","production"]}]}}`

	client := &fakeClient{streams: [][]string{
		// The envelope arrives split mid-token, preceded by a status event.
		{
			`{"status":{"state":"working"}}`,
			contentEvent(envelope[:25]),
			contentEvent(envelope[25:]),
		},
		// The form reply gets a narrative answer, also fragmented.
		{
			contentEvent("Deploying to "),
			contentEvent("staging now."),
		},
	}}

	c, out := newTestChat(t, client, "2\n")
	if err := c.processTurn(context.Background(), "deploy the api"); err != nil {
		t.Fatal(err)
	}

	if len(client.sent) != 2 {
		t.Fatalf("sent = %v, want question plus form reply", client.sent)
	}
	if client.sent[0] != "deploy the api" {
		t.Errorf("first message = %q", client.sent[0])
	}
	// A single-field form collapses to the bare selected value.
	if client.sent[1] != "staging" {
		t.Errorf("form reply = %q, want staging", client.sent[1])
	}

	s := out.String()
	if !strings.Contains(s, "Which environment?") {
		t.Error("envelope content not presented")
	}
	if !strings.Contains(s, "[2] staging") {
		t.Error("choice options not listed")
	}
	if !strings.Contains(s, "Deploying to staging now.") {
		t.Error("final narrative not presented")
	}
	if strings.Contains(s, "require_user_input") {
		t.Error("raw payload leaked to the terminal")
	}

	msgs := c.Session().Messages()
	if len(msgs) != 4 {
		t.Fatalf("session log has %d messages, want 4", len(msgs))
	}
	if msgs[1].Role != "agent" || msgs[1].Content != "Which environment?" {
		t.Errorf("agent message = %+v", msgs[1])
	}
}

func TestTurnNarrative(t *testing.T) {
	client := &fakeClient{streams: [][]string{{
		contentEvent("All services healthy."),
	}}}

	c, out := newTestChat(t, client, "")
	if err := c.processTurn(context.Background(), "status?"); err != nil {
		t.Fatal(err)
	}

	if len(client.sent) != 1 {
		t.Fatalf("sent = %v, narrative turn must not send a reply", client.sent)
	}
	if !strings.Contains(out.String(), "All services healthy.") {
		t.Error("answer not presented")
	}
}

func TestTurnSkipsCumulativeRecap(t *testing.T) {
	// After streaming the answer in chunks the agent repeats it whole in a
	// partial_result artifact; presenting both would double the text.
	client := &fakeClient{streams: [][]string{{
		contentEvent("Hello wor"),
		contentEvent("ld."),
		namedContentEvent("partial_result", "Hello world."),
	}}}

	c, out := newTestChat(t, client, "")
	if err := c.processTurn(context.Background(), "greet"); err != nil {
		t.Fatal(err)
	}

	msgs := c.Session().Messages()
	if got := msgs[1].Content; got != "Hello world." {
		t.Errorf("presented text = %q, want the answer once", got)
	}
	if strings.Count(out.String(), "Hello world.") != 1 {
		t.Error("recap artifact duplicated the answer on screen")
	}
}

func TestTurnAcceptsRecapWithoutPriorChunks(t *testing.T) {
	// With no streamed chunks the recap artifact is the only content there
	// is; it must not be skipped.
	client := &fakeClient{streams: [][]string{{
		`{"status":{"state":"working"}}`,
		namedContentEvent("partial_result", "Only copy."),
	}}}

	c, _ := newTestChat(t, client, "")
	if err := c.processTurn(context.Background(), "greet"); err != nil {
		t.Fatal(err)
	}
	if got := c.Session().Messages()[1].Content; got != "Only copy." {
		t.Errorf("presented text = %q", got)
	}
}

func TestTurnDropsConsecutiveDuplicateEvents(t *testing.T) {
	client := &fakeClient{streams: [][]string{{
		contentEvent("Step one. "),
		contentEvent("Step one. "),
		contentEvent("Step two."),
	}}}

	c, _ := newTestChat(t, client, "")
	if err := c.processTurn(context.Background(), "run"); err != nil {
		t.Fatal(err)
	}
	if got := c.Session().Messages()[1].Content; got != "Step one. Step two." {
		t.Errorf("presented text = %q, duplicate event must be dropped", got)
	}
}

func TestTurnFormCanceled(t *testing.T) {
	envelope := `{"content":"Need a value","require_user_input":true,` +
		`"metadata":{"input_fields":[{"field_name":"value","field_description":"Any"}]}}`

	client := &fakeClient{streams: [][]string{{contentEvent(envelope)}}}

	c, out := newTestChat(t, client, "cancel\n")
	if err := c.processTurn(context.Background(), "start"); err != nil {
		t.Fatal(err)
	}

	if len(client.sent) != 1 {
		t.Fatalf("sent = %v, canceled form must not be submitted", client.sent)
	}
	if !strings.Contains(out.String(), "nothing was sent") {
		t.Error("cancel notice missing")
	}
}

func TestTurnFallsBackToSend(t *testing.T) {
	client := &fakeClient{
		noStream: true,
		response: `{"result":{"artifacts":[{"parts":[{"kind":"text","text":"plain answer"}]}]}}`,
	}

	c, out := newTestChat(t, client, "")
	if err := c.processTurn(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "plain answer") {
		t.Error("fallback answer not presented")
	}
}

func TestTurnEmptyResponse(t *testing.T) {
	client := &fakeClient{streams: [][]string{{
		`{"status":{"state":"working"}}`,
	}}}

	c, out := newTestChat(t, client, "")
	if err := c.processTurn(context.Background(), "anything there?"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "empty response") {
		t.Error("empty-response notice missing")
	}
}

func TestEncodePayload(t *testing.T) {
	if got, err := encodePayload("bare"); err != nil || got != "bare" {
		t.Errorf("string payload = %q, %v", got, err)
	}
	got, err := encodePayload(map[string]string{"env": "dev"})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(got), &decoded); err != nil || decoded["env"] != "dev" {
		t.Errorf("object payload = %q", got)
	}
}
