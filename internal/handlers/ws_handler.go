package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/blogsphere/backend/internal/realtime"
	"github.com/blogsphere/backend/pkg/middleware"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// WSHandler upgrades /ws connections and hands them to the hub.
type WSHandler struct {
	Hub      *realtime.Hub
	Auth     *middleware.Authenticator
	upgrader websocket.Upgrader
}

// NewWSHandler accepts browser connections only from allowedOrigins. Requests without an
// Origin header (non-browser clients) are accepted.
func NewWSHandler(hub *realtime.Hub, auth *middleware.Authenticator, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimRight(origin, "/")] = true
	}
	return &WSHandler{
		Hub:  hub,
		Auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowed["*"] {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return allowed[u.Scheme+"://"+u.Host]
			},
		},
	}
}

// ServeWS handles GET /ws. A valid session makes the connection eligible to join its own
// room; without one it only receives broadcasts.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	var userID string
	if middleware.TokenFromRequest(r) != "" {
		user, _, err := h.Auth.Authenticate(r)
		if err != nil {
			log.WithError(err).Debug("WebSocket session rejected, continuing anonymously")
		} else {
			userID = user.ID.Hex()
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	log.WithField("userID", userID).Info("WebSocket connected")
	realtime.NewClient(h.Hub, conn, userID).Serve()
	log.WithField("userID", userID).Info("WebSocket disconnected")
}
