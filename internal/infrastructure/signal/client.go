package signal

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Unknownaod/shoreroleplay-radio/internal/core/domain"
)

// client wraps one WebSocket connection with a buffered outbound queue
// drained by a single write pump goroutine. Send never blocks: when the
// buffer is full the frame is dropped, so a slow consumer cannot stall
// relay for the rest of the channel.
type client struct {
	conn *websocket.Conn
	send chan domain.Event

	writeTimeout time.Duration
	pingInterval time.Duration
	logger       *zap.SugaredLogger

	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, bufferSize int, writeTimeout, pingInterval time.Duration, logger *zap.SugaredLogger) *client {
	return &client{
		conn:         conn,
		send:         make(chan domain.Event, bufferSize),
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Send queues an event for delivery. Implements ports.Sender.
func (c *client) Send(event domain.Event) {
	select {
	case c.send <- event:
	default:
		c.logger.Debugw("send buffer full, dropping frame", "event_type", event.Type)
	}
}

// close stops the write pump after the queue drains. Safe to call more than
// once.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// writePump is the only goroutine writing to the connection. It drains the
// send queue, keeps the connection alive with pings, and closes the
// underlying socket when the queue is closed.
func (c *client) writePump() {
	pingTicker := time.NewTicker(c.pingInterval)
	defer func() {
		pingTicker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Debugw("write failed", "error", err)
				return
			}

		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
