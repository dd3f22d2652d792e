package gotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	logx "gotify2telegram/pkg/logx"

	"nhooyr.io/websocket"
)

// Handler receives stream messages one at a time.
type Handler func(ctx context.Context, m Message)

// Listener follows the notification stream of one server.
type Listener struct {
	url       string
	header    http.Header
	http      *http.Client
	readLimit int64
	log       logx.Logger
}

func NewListener(c *Client, log logx.Logger) *Listener {
	return &Listener{
		url:       c.StreamURL(),
		header:    c.Header(),
		readLimit: 1 << 20,
		log:       log,
	}
}

// Run dials the stream and calls h for every message until the connection
// fails or ctx is done. It returns nil only on cancellation, so a supervisor
// can restart it with backoff on any other exit.
func (l *Listener) Run(ctx context.Context, h Handler) error {
	conn, _, err := websocket.Dial(ctx, l.url, &websocket.DialOptions{
		HTTPClient: l.http,
		HTTPHeader: l.header.Clone(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("gotify stream dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(l.readLimit)

	l.log.Info("listening to gotify stream")

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ce websocket.CloseError
			if errors.As(err, &ce) {
				return fmt.Errorf("gotify stream closed: %d %s", ce.Code, ce.Reason)
			}
			return fmt.Errorf("gotify stream read: %w", err)
		}
		if typ != websocket.MessageText {
			continue
		}

		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			l.log.Warn("undecodable stream message", logx.Err(err))
			continue
		}
		h(ctx, m)
	}
}
