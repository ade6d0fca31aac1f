package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iksnae/chatfold/internal"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultReadIdleTimeout  = 2 * time.Minute

	// CodeNotFound is the error code a server sends for an unknown thread
	CodeNotFound = "not_found"
)

// Request frame types
const (
	FrameSend   = "send"
	FrameReplay = "replay"
)

// RequestFrame is the single frame a client writes to open a stream
type RequestFrame struct {
	Type     string                `json:"type"`
	Send     *internal.SendRequest `json:"send,omitempty"`
	ThreadID string                `json:"thread_id,omitempty"`
}

// WSClient talks to the chat server over one websocket per request. Every
// server frame is a JSON-encoded event.
type WSClient struct {
	URL             string
	Header          map[string][]string
	ReadIdleTimeout time.Duration
	dialer          websocket.Dialer
}

// NewWSClient creates a websocket transport for serverURL (ws:// or wss://)
func NewWSClient(serverURL string) *WSClient {
	return &WSClient{
		URL:             serverURL,
		ReadIdleTimeout: defaultReadIdleTimeout,
		dialer: websocket.Dialer{
			HandshakeTimeout: defaultHandshakeTimeout,
			NetDialContext:   (&net.Dialer{Timeout: defaultHandshakeTimeout}).DialContext,
		},
	}
}

// Send streams one generation. It returns once the server sends a final
// finish reason, an error event, or closes the connection normally.
func (c *WSClient) Send(ctx context.Context, req internal.SendRequest, onEvent internal.EventHandler) error {
	return c.stream(ctx, RequestFrame{Type: FrameSend, Send: &req}, func(raw internal.RawEvent) (bool, error) {
		if err := onEvent(raw); err != nil {
			return true, err
		}
		return isTerminalLive(raw), nil
	})
}

// Replay streams a thread's full event log until replay_done
func (c *WSClient) Replay(ctx context.Context, threadID string, onEvent internal.EventHandler) error {
	return c.stream(ctx, RequestFrame{Type: FrameReplay, ThreadID: threadID}, func(raw internal.RawEvent) (bool, error) {
		if raw.Event == internal.EventErrorName && raw.Code == CodeNotFound {
			return true, fmt.Errorf("thread %s: %w", threadID, internal.ErrThreadNotFound)
		}
		if err := onEvent(raw); err != nil {
			return true, err
		}
		return raw.Event == internal.EventReplayDone, nil
	})
}

// isTerminalLive reports whether a live event ends the generation
func isTerminalLive(raw internal.RawEvent) bool {
	if raw.Event == internal.EventErrorName {
		return true
	}
	return raw.FinishReason != "" && raw.FinishReason != internal.FinishToolCalls
}

func (c *WSClient) stream(ctx context.Context, frame RequestFrame, handle func(internal.RawEvent) (bool, error)) error {
	conn, _, err := c.dialer.DialContext(ctx, c.URL, c.Header)
	if err != nil {
		return fmt.Errorf("ws connect %s: %w", c.URL, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("ws write %s request: %w", frame.Type, err)
	}

	for {
		if c.ReadIdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.ReadIdleTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("ws read: %w", err)
		}

		var raw internal.RawEvent
		if err := json.Unmarshal(data, &raw); err != nil {
			internal.LogWarn("ws: %v", &internal.EventError{Source: frame.Type, Kind: "frame", Err: err})
			continue
		}

		stop, err := handle(raw)
		if err != nil {
			return err
		}
		if stop {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		}
	}
}
