package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/outreach/internal/auth"
)

// Timeouts are the websocket keepalive settings
type Timeouts struct {
	PongWait       time.Duration
	PingPeriod     time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// Client is a middleman between one dashboard viewer's connection and the hub
type Client struct {
	// Unique client ID
	id string

	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	timeouts Timeouts
	logger   zerolog.Logger

	// Authenticated viewer, nil when auth is disabled
	claims *auth.Claims
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, timeouts Timeouts, logger zerolog.Logger, claims *auth.Claims) *Client {
	clientID := uuid.New().String()
	l := logger.With().Str("client_id", clientID)
	if claims != nil && claims.Subject != "" {
		l = l.Str("user", claims.Subject)
	}
	return &Client{
		id:       clientID,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 16),
		timeouts: timeouts,
		logger:   l.Logger(),
		claims:   claims,
	}
}

// readPump keeps the read deadline moving and notices disconnects.
// Viewers never send anything the server acts on.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	if c.timeouts.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.timeouts.MaxMessageSize)
	}
	c.conn.SetReadDeadline(time.Now().Add(c.timeouts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.timeouts.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

// writePump writes every dashboard message as its own frame, since each
// one is a complete snapshot
func (c *Client) writePump() {
	ticker := time.NewTicker(c.timeouts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.timeouts.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.timeouts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start starts the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
