package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/meditrack/coordination/internal/gateway"
	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
)

// WebsocketHandler upgrades authenticated requests into hub channels
type WebsocketHandler struct {
	hub       *Hub
	router    *Router
	validator interfaces.TokenValidator
	upgrader  websocket.Upgrader
	cfg       ClientConfig
	logger    *logger.Logger
}

// NewWebsocketHandler creates the /ws endpoint. Browsers must send the
// configured origin; clients without an Origin header are accepted.
func NewWebsocketHandler(hub *Hub, router *Router, validator interfaces.TokenValidator, cfg ClientConfig, allowedOrigin string, log *logger.Logger) *WebsocketHandler {
	return &WebsocketHandler{
		hub:       hub,
		router:    router,
		validator: validator,
		cfg:       cfg,
		logger:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := gateway.TokenFromRequest(r)
	if token == "" {
		gateway.WriteError(w, http.StatusUnauthorized, "Not authorized, no token", "")
		return
	}
	claims, err := h.validator.ValidateJWT(token)
	if err != nil {
		h.logger.WithComponent("realtime").WithError(err).Debug("Websocket token rejected")
		gateway.WriteError(w, http.StatusUnauthorized, "Not authorized, token failed", "")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request
		h.logger.WithComponent("realtime").WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := newClient(h.hub, conn, claims, h.cfg)
	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h.router.Dispatch)
}
