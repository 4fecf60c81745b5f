package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dm-core/contract"
	"dm-core/domain/event"
	"dm-core/errors"
	"dm-core/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// Inbound frames are small control payloads plus message text.
	maxFrameSize = 64 << 10
)

// Client is one live websocket connection. It is the contract.EventSink for
// its bound identity: events are enqueued on a bounded channel drained by
// the write pump, which keeps per-observer delivery ordered and makes
// Consume non-blocking. A full queue is reported as a failure and the
// dispatcher evicts the connection.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	log  *slog.Logger
}

var _ contract.EventSink = (*Client)(nil)

func newClient(id string, conn *websocket.Conn, sendBuffer int, log *slog.Logger) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		log:  log,
	}
}

func (c *Client) ID() string { return c.id }

// Consume encodes the event and offers it to the outbound queue without
// blocking. Enqueue order equals dispatch order, which is what the status
// ordering guarantee rests on.
func (c *Client) Consume(_ context.Context, e event.DomainEvent) error {
	frame, err := EncodeEvent(e)
	if err != nil {
		// Encoding problems are a programming error, not a dead peer.
		c.log.Error("Failed to encode outbound event", "event", e.EventName(), "error", err)
		return nil
	}
	select {
	case <-c.done:
		return errors.ErrQueueFull
	case c.send <- frame:
		metrics.PushOK.Inc()
		return nil
	default:
		metrics.PushBackpressure.Inc()
		return errors.ErrQueueFull
	}
}

// enqueueRaw offers a pre-encoded frame (error responses) to the queue.
// Best effort: a protocol-error reply is not worth evicting a connection.
func (c *Client) enqueueRaw(frame []byte) {
	select {
	case <-c.done:
	case c.send <- frame:
	default:
	}
}

// writePump drains the outbound queue onto the wire and keeps the
// connection alive with pings. One writer per connection; nobody else
// touches conn for writing.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}
