package wshandler

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/schoolbus-hub/internal/hub"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
)

type ConnOptions struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// Conn binds one websocket connection to one hub session. The reader
// dispatches inbound frames in arrival order; the writer drains the
// session's outbound queue and keeps the connection alive with pings.
type Conn struct {
	conn    *websocket.Conn
	session *hub.Session
	opts    ConnOptions
	l       logger.Logger

	closeOnce sync.Once
}

func NewConn(conn *websocket.Conn, session *hub.Session, opts ConnOptions, l logger.Logger) *Conn {
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.PingInterval <= 0 || opts.PingInterval >= opts.PongWait {
		opts.PingInterval = opts.PongWait * 9 / 10
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}

	return &Conn{
		conn:    conn,
		session: session,
		opts:    opts,
		l:       l,
	}
}

// Run blocks until the transport fails, the peer goes silent for longer than
// PongWait, ctx is cancelled or the session is unregistered elsewhere.
// The caller unregisters the session once Run returns.
func (c *Conn) Run(ctx context.Context, dispatch func(ctx context.Context, s *hub.Session, raw []byte)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop(ctx)
		// unblock the reader
		c.Close()
	}()

	err := c.readLoop(ctx, dispatch)
	cancel()
	wg.Wait()

	return err
}

func (c *Conn) readLoop(ctx context.Context, dispatch func(ctx context.Context, s *hub.Session, raw []byte)) error {
	if c.opts.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.opts.MaxMessageSize)
	}
	c.extendReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	for {
		msgType, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-c.session.Done():
				return nil
			default:
			}
			return err
		}
		c.extendReadDeadline()

		if msgType != websocket.TextMessage {
			continue
		}
		dispatch(ctx, c.session, raw)
	}
}

func (c *Conn) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.session.Messages():
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.l.Debug(ctx, "write failed", "error", err.Error())
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.l.Debug(ctx, "ping failed", "error", err.Error())
				return
			}
		case <-c.session.Done():
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ctx.Done():
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"))
			return
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *Conn) extendReadDeadline() {
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
}

// Close closes the underlying connection once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}
