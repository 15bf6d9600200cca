package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/presence"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/config"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
)

// Identity is the authenticated session a connection was opened with.
type Identity struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// Client is one websocket connection. Only writePump writes to conn.
type Client struct {
	id       string
	identity Identity
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	ctx      context.Context

	// rooms is guarded by the hub mutex.
	rooms map[string]struct{}
}

func newClient(ctx context.Context, conn *websocket.Conn, identity Identity, buffer int) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	return &Client{
		id:       uuid.NewString(),
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, buffer),
		done:     make(chan struct{}),
		ctx:      ctx,
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Identity() Identity { return c.identity }

func (c *Client) handle() presence.Handle { return presence.Handle(c.id) }

// enqueue reports false when the send buffer is full.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// readPump feeds inbound frames to dispatch until the peer goes away or the
// client is closed.
func (c *Client) readPump(cfg config.RealtimeConfig, dispatch func(*Client, []byte)) error {
	if cfg.MaxMessageBytes > 0 {
		c.conn.SetReadLimit(cfg.MaxMessageBytes)
	}
	if cfg.PongWait > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		})
	}
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				return err
			}
			return nil
		}
		dispatch(c, raw)
		select {
		case <-c.done:
			return nil
		default:
		}
	}
}

// writePump owns every write on conn: queued frames and keepalive pings.
func (c *Client) writePump(cfg config.RealtimeConfig) {
	var tick <-chan time.Time
	if period := cfg.PingPeriod(); period > 0 {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.conn.Close()

	for {
		select {
		case payload := <-c.send:
			c.setWriteDeadline(cfg.WriteWait)
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close()
				return
			}
		case <-tick:
			c.setWriteDeadline(cfg.WriteWait)
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.setWriteDeadline(cfg.WriteWait)
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) setWriteDeadline(wait time.Duration) {
	if wait > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wait))
	}
}
