package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"nhooyr.io/websocket"
)

// Handler receives one pushed payload.
type Handler func(ctx context.Context, payload []byte) error

// Stream keeps a websocket to the configuration server open and hands every
// text message to a Handler.
type Stream struct {
	url        string
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewStream creates a stream for url (ws:// or wss://).
func NewStream(url string) *Stream {
	return &Stream{url: url, minBackoff: time.Second, maxBackoff: 30 * time.Second}
}

// Run connects and reads messages until ctx is done, reconnecting with
// exponential backoff after failures. Handler errors are logged and do not
// close the connection. Run returns nil when ctx ends.
func (s *Stream) Run(ctx context.Context, handler Handler) error {
	backoff := s.minBackoff
	for {
		err := s.session(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			backoff = s.minBackoff
		} else {
			log.Printf("transport: stream %s: %v (retrying in %s)", s.url, err, backoff)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if err != nil {
			backoff *= 2
			if backoff > s.maxBackoff {
				backoff = s.maxBackoff
			}
		}
	}
}

// session handles one connection. It returns nil when the server closed the
// connection normally.
func (s *Stream) session(ctx context.Context, handler Handler) error {
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(maxPayloadBytes)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if typ != websocket.MessageText {
			continue
		}
		if err := handler(ctx, data); err != nil {
			log.Printf("transport: stream handler: %v", err)
		}
	}
}
