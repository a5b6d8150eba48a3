// Package transport carries messages between the terminal client and a
// remote agent. It speaks a JSON-RPC message protocol over two
// interchangeable channels: HTTP with server-sent events for streaming
// (with a plain request/response fallback), and a websocket variant. The
// transport delivers events in arrival order and leaves their
// interpretation entirely to the caller.
package transport

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// ErrStreamingUnsupported reports that the server rejected the streaming
// request; callers should retry with Send.
var ErrStreamingUnsupported = errors.New("streaming not supported by agent")

// StreamItem is one element of a streamed turn: an opaque event payload or
// a terminal transport error. After an item with Err != nil, or after the
// channel closes, no further items arrive.
type StreamItem struct {
	Raw json.RawMessage
	Err error
}

// Client sends user messages to an agent. Stream yields incremental events
// until the turn completes; Send performs a single request/response
// exchange. The reply may be a bare string or a structured object, encoded
// by the caller into the message text.
type Client interface {
	Stream(ctx context.Context, text string) (<-chan StreamItem, error)
	Send(ctx context.Context, text string) (json.RawMessage, error)
}

const (
	methodStream = "message/stream"
	methodSend   = "message/send"
)

type textPart struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type outboundMessage struct {
	Role      string     `json:"role"`
	Parts     []textPart `json:"parts"`
	MessageID string     `json:"messageId"`
	ContextID string     `json:"contextId"`
}

type sendParams struct {
	Message outboundMessage `json:"message"`
}

type rpcRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      string     `json:"id"`
	Method  string     `json:"method"`
	Params  sendParams `json:"params"`
}

// newRequest builds the message request for one turn. Every message gets a
// fresh ID; the context ID ties the turns of one session together.
func newRequest(method, text, contextID string) rpcRequest {
	return rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params: sendParams{
			Message: outboundMessage{
				Role:      "user",
				Parts:     []textPart{{Kind: "text", Text: text}},
				MessageID: uuid.NewString(),
				ContextID: contextID,
			},
		},
	}
}
