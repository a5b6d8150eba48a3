package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/m4xw311/agentchat/errors"
)

// WSClient carries the same message protocol over a websocket. Each turn
// opens a connection, writes the request, and reads one event per text
// message until the server closes with a normal status.
type WSClient struct {
	url       string
	token     string
	contextID string
}

// NewWSClient returns a websocket client for the agent at url
// (ws:// or wss://). A plain http(s) URL is rewritten to its websocket
// scheme.
func NewWSClient(url, token, contextID string) *WSClient {
	url = strings.Replace(url, "http://", "ws://", 1)
	url = strings.Replace(url, "https://", "wss://", 1)
	return &WSClient{url: url, token: token, contextID: contextID}
}

func (c *WSClient) dial(ctx context.Context) (*websocket.Conn, error) {
	opts := &websocket.DialOptions{}
	if c.token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + c.token}}
	}
	conn, _, err := websocket.Dial(ctx, c.url, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to agent at %s", c.url)
	}
	// Agent responses can be large; the default 32 KiB cap truncates them.
	conn.SetReadLimit(8 << 20)
	return conn, nil
}

// Stream sends the user text and yields one StreamItem per incoming
// message until the server closes the connection. A normal closure ends
// the turn cleanly; anything else is surfaced as the final item's Err.
func (c *WSClient) Stream(ctx context.Context, text string) (<-chan StreamItem, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	if err := wsjson.Write(ctx, conn, newRequest(methodStream, text, c.contextID)); err != nil {
		conn.Close(websocket.StatusInternalError, "write failed")
		return nil, errors.Wrapf(err, "sending message")
	}

	out := make(chan StreamItem)
	go func() {
		defer close(out)
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			var raw json.RawMessage
			if err := wsjson.Read(ctx, conn, &raw); err != nil {
				if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
					return
				}
				select {
				case out <- StreamItem{Err: errors.Wrapf(err, "event stream interrupted")}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- StreamItem{Raw: raw}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Send performs a single exchange: the request is written, the first
// response message is returned, and the connection is closed.
func (c *WSClient) Send(ctx context.Context, text string) (json.RawMessage, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := wsjson.Write(ctx, conn, newRequest(methodSend, text, c.contextID)); err != nil {
		return nil, errors.Wrapf(err, "sending message")
	}

	var raw json.RawMessage
	if err := wsjson.Read(ctx, conn, &raw); err != nil {
		return nil, errors.Wrapf(err, "reading agent response")
	}
	return raw, nil
}
