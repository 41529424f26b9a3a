package websocket

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/outreach/internal/auth"
)

// SnapshotFunc returns the encoded current dashboard, or nil before the
// first aggregation
type SnapshotFunc func() []byte

// Handler handles WebSocket upgrade requests
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	timeouts Timeouts
	snapshot SnapshotFunc
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler. Origins are checked against
// allowedOrigins; "*" allows any.
func NewHandler(hub *Hub, timeouts Timeouts, allowedOrigins []string, snapshot SnapshotFunc, logger zerolog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
		timeouts: timeouts,
		snapshot: snapshot,
		logger:   logger.With().Str("component", "ws_handler").Logger(),
	}
}

// ServeHTTP upgrades the connection, registers the client and sends it the
// current dashboard so it does not wait for the next recompute
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	claims, _ := auth.GetUserFromContext(r.Context())
	client := NewClient(h.hub, conn, h.timeouts, h.logger, claims)

	if h.snapshot != nil {
		if data := h.snapshot(); data != nil {
			client.send <- data
		}
	}

	h.hub.register <- client
	client.Start()
}
