package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/m4xw311/agentchat/classify"
	"github.com/m4xw311/agentchat/display"
	agerrors "github.com/m4xw311/agentchat/errors"
	"github.com/m4xw311/agentchat/events"
	"github.com/m4xw311/agentchat/form"
	"github.com/m4xw311/agentchat/stream"
	"github.com/m4xw311/agentchat/transport"
)

// processTurn sends one message and runs the response through the
// pipeline: normalize each event, accumulate its text, classify the
// finalized buffer, present it, and collect form input when the agent
// asked for it. A submitted form becomes the next outbound message of the
// same logical exchange.
func (c *Chat) processTurn(ctx context.Context, input string) error {
	c.sess.AddMessage("user", input)
	c.engine.BeginTurn(input)

	raw, err := c.streamTurn(ctx, input)
	if err != nil {
		return err
	}

	c.engine.FinishStream()

	if raw == "" {
		c.engine.EndTurn()
		fmt.Fprint(c.out, display.RenderNotice("The agent returned an empty response."))
		return nil
	}

	resp := classify.Classify(raw)
	c.sess.AddMessage("agent", resp.Text)
	c.engine.Present(c.sess.AgentName, resp.Text)

	if resp.Kind != classify.Interactive {
		c.engine.EndTurn()
		return nil
	}

	c.engine.BeginCollect()
	result, err := c.forms.Collect(ctx, resp.Fields)
	c.engine.EndTurn()
	if err != nil {
		if errors.Is(err, form.ErrCanceled) {
			fmt.Fprint(c.out, display.RenderNotice("Input canceled; nothing was sent."))
			return nil
		}
		return err
	}

	reply, err := encodePayload(result.Payload())
	if err != nil {
		return err
	}
	c.debug.Printf("submitting form reply: %s", reply)
	return c.processTurn(ctx, reply)
}

// streamTurn consumes the event stream for one message and returns the raw
// accumulated response text. Servers without streaming support are retried
// once through the plain request path.
func (c *Chat) streamTurn(ctx context.Context, input string) (string, error) {
	items, err := c.client.Stream(ctx, input)
	if errors.Is(err, transport.ErrStreamingUnsupported) {
		c.debug.Printf("streaming unavailable, falling back to single response")
		return c.sendTurn(ctx, input)
	}
	if err != nil {
		return "", err
	}

	acc := stream.NewAccumulator()
	var seq uint64
	var lastText string
	for item := range items {
		if item.Err != nil {
			return "", item.Err
		}
		seq++
		ev := events.Normalize(item.Raw, seq)
		c.debug.Printf("event #%d kind=%s len=%d", ev.Seq, ev.Kind, len(ev.Text))
		if ev.Kind != events.ContentUpdate || ev.Text == "" {
			continue
		}
		// A cumulative recap artifact repeats text that already streamed in
		// chunks; appending it would double the answer.
		if ev.Artifact == events.CumulativeArtifact && strings.TrimSpace(acc.Raw()) != "" {
			c.debug.Printf("event #%d skipped: cumulative recap of streamed content", ev.Seq)
			continue
		}
		// Agents occasionally emit the same event twice in a row.
		if text := strings.TrimSpace(ev.Text); text != "" {
			if text == lastText {
				c.debug.Printf("event #%d skipped: consecutive duplicate", ev.Seq)
				continue
			}
			lastText = text
		}
		acc.Append(ev.Text)
		c.engine.Observe(ev.Text, acc.LooksStructured())
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return acc.Raw(), nil
}

func (c *Chat) sendTurn(ctx context.Context, input string) (string, error) {
	raw, err := c.client.Send(ctx, input)
	if err != nil {
		return "", err
	}
	ev := events.Normalize(raw, 1)
	if ev.Kind == events.Unknown || ev.Text == "" {
		return "", agerrors.New("agent returned no content")
	}
	// Without streaming there is nothing to hide mid-flight; a completed
	// task's status message is a legitimate final answer.
	return ev.Text, nil
}

// encodePayload turns the form result into the outbound message text: a
// bare string goes as-is, a multi-field object is serialized to JSON.
func encodePayload(payload any) (string, error) {
	if s, ok := payload.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", agerrors.Wrapf(err, "encoding form reply")
	}
	return string(data), nil
}
