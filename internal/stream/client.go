package stream

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Client is one websocket connection attached to the gateway.
type Client struct {
	gateway *Gateway
	conn    *websocket.Conn
	send    chan []byte
}

// NewClient wraps a websocket connection. The caller registers it with the
// gateway and starts the pumps.
func NewClient(gateway *Gateway, conn *websocket.Conn) *Client {
	return &Client{
		gateway: gateway,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}
}

type controlAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// readPump consumes control messages from the peer. Clients send plain text
// frames "subscribe:<topic>" and "unsubscribe:<topic>"; each is answered
// with a JSON ack on the send channel.
func (c *Client) readPump() {
	defer func() {
		c.gateway.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && c.gateway.logger != nil {
				c.gateway.logger.Printf("stream: read: %v", err)
			}
			return
		}
		c.handleControl(strings.TrimSpace(string(message)))
	}
}

func (c *Client) handleControl(message string) {
	switch {
	case strings.HasPrefix(message, "subscribe:"):
		topic := strings.TrimPrefix(message, "subscribe:")
		if c.gateway.Subscribe(c, topic) {
			c.ack(true, "subscribed to "+topic)
		} else {
			c.ack(false, "invalid topic "+topic)
		}
	case strings.HasPrefix(message, "unsubscribe:"):
		topic := strings.TrimPrefix(message, "unsubscribe:")
		c.gateway.Unsubscribe(c, topic)
		c.ack(true, "unsubscribed from "+topic)
	default:
		c.ack(false, "unknown control message")
	}
}

func (c *Client) ack(success bool, message string) {
	raw, err := json.Marshal(controlAck{Success: success, Message: message})
	if err != nil {
		return
	}
	select {
	case c.send <- raw:
	default:
	}
}

// writePump moves queued messages to the peer and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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
