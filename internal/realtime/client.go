package realtime

import (
	"encoding/json"

	"github.com/gofiber/contrib/websocket"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const sendQueueSize = 32

// Client is one authenticated websocket connection.
type Client struct {
	conn  *websocket.Conn
	user  *domain.User
	send  chan []byte
	rooms map[string]struct{}
}

func newClient(conn *websocket.Conn, user *domain.User) *Client {
	return &Client{
		conn:  conn,
		user:  user,
		send:  make(chan []byte, sendQueueSize),
		rooms: make(map[string]struct{}),
	}
}

// writeLoop drains the send queue onto the socket. It exits when the
// hub closes the queue on disconnect.
func (c *Client) writeLoop() {
	for raw := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
	}
}

// push enqueues a frame directly to this client, dropping when full.
func (c *Client) push(event string, data any) {
	raw, err := json.Marshal(outboundFrame{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case c.send <- raw:
	default:
	}
}
