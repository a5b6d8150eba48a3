package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m4xw311/agentchat/errors"
)

// turnTimeout bounds one request/response turn, streaming included. Agents
// that fan out to tools can legitimately take minutes.
const turnTimeout = 300 * time.Second

// A2AClient talks to an agent over HTTP: JSON-RPC requests, streamed
// replies as server-sent events. One client serves one conversation; its
// context ID is attached to every message.
type A2AClient struct {
	baseURL   string
	token     string
	contextID string
	http      *http.Client
}

// NewA2AClient returns a client for the agent at baseURL. contextID ties
// the session's messages together; token, when non-empty, is sent as a
// bearer credential.
func NewA2AClient(baseURL, token, contextID string) *A2AClient {
	return &A2AClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		contextID: contextID,
		http:      &http.Client{Timeout: turnTimeout},
	}
}

// Card fetches the agent card from this client's endpoint.
func (c *A2AClient) Card(ctx context.Context) (*Card, error) {
	return FetchCard(ctx, c.http, c.baseURL, c.token)
}

// Stream sends the user text and returns a channel of incremental events.
// The channel closes when the agent finishes the turn; a mid-stream
// transport failure is delivered as the final item's Err. Servers that
// reject streaming produce ErrStreamingUnsupported so the caller can fall
// back to Send.
func (c *A2AClient) Stream(ctx context.Context, text string) (<-chan StreamItem, error) {
	resp, err := c.post(ctx, newRequest(methodStream, text, c.contextID), "text/event-stream")
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusMethodNotAllowed,
		resp.StatusCode == http.StatusNotAcceptable,
		resp.StatusCode == http.StatusNotImplemented:
		resp.Body.Close()
		return nil, ErrStreamingUnsupported
	default:
		resp.Body.Close()
		return nil, errors.New("agent returned %s", resp.Status)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, ErrStreamingUnsupported
	}

	out := make(chan StreamItem)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		if err := readSSE(ctx, resp.Body, out); err != nil {
			select {
			case out <- StreamItem{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

// Send performs a single non-streaming exchange and returns the raw
// response object.
func (c *A2AClient) Send(ctx context.Context, text string) (json.RawMessage, error) {
	resp, err := c.post(ctx, newRequest(methodSend, text, c.contextID), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("agent returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading agent response")
	}
	return json.RawMessage(body), nil
}

func (c *A2AClient) post(ctx context.Context, rpc rpcRequest, accept string) (*http.Response, error) {
	payload, err := json.Marshal(rpc)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrapf(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "contacting agent at %s", c.baseURL)
	}
	return resp, nil
}

// readSSE parses a server-sent event stream, delivering each event's data
// payload in arrival order. Multi-line data fields are joined per the SSE
// format; comment and id/event fields are skipped. A clean EOF ends the
// stream without error.
func readSSE(ctx context.Context, r io.Reader, out chan<- StreamItem) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var data []string
	flush := func() bool {
		if len(data) == 0 {
			return true
		}
		payload := strings.Join(data, "\n")
		data = data[:0]
		select {
		case out <- StreamItem{Raw: json.RawMessage(payload)}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if !flush() {
				return ctx.Err()
			}
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// event:/id:/retry: and comments carry no payload for us.
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("event stream interrupted: %w", err)
	}
	if !flush() {
		return ctx.Err()
	}
	return nil
}
