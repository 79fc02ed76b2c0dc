package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fazpramim/portal/internal/goroutine"
	"github.com/fazpramim/portal/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ErrClosed подключение уже закрыто.
var ErrClosed = errors.New("ws: подключение закрыто")

// Client одно WebSocket подключение браузера.
type Client struct {
	conn      *websocket.Conn
	hub       *Hub
	sessionID string
	send      chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient создаёт нового клиента.
func NewClient(conn *websocket.Conn, hub *Hub, sessionID string) *Client {
	return &Client{
		conn:      conn,
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, 16),
		done:      make(chan struct{}),
	}
}

// Run запускает запись в отдельной горутине и читает до закрытия соединения.
func (c *Client) Run(ctx context.Context) {
	goroutine.SafeGo(c.writePump)
	c.readPump(ctx)
}

// Emit ставит событие в очередь на отправку.
func (c *Client) Emit(event string, data any) error {
	raw, err := encode(event, data)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	if !c.enqueue(raw) {
		return ErrClosed
	}
	return nil
}

// Done закрывается вместе с подключением.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close закрывает подключение: writePump дописывает очередь и закрывает соединение.
// Повторные вызовы ничего не делают.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.Unregister(c)
	})
}

func (c *Client) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	// браузер только получает события, входящие сообщения короткие
	c.conn.SetReadLimit(4 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithComponent("ws").WithField("session_id", c.sessionID).WithError(err).Debug("соединение закрыто")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.flush()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush дописывает то, что успело попасть в очередь до закрытия.
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}
