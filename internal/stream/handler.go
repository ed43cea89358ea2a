package stream

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Handler upgrades HTTP requests to websocket sessions on the gateway.
type Handler struct {
	gateway *Gateway
}

// NewHandler constructs a websocket handler.
func NewHandler(gateway *Gateway) *Handler {
	return &Handler{gateway: gateway}
}

// ServeHTTP handles GET /ws.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.gateway.logger != nil {
			h.gateway.logger.Printf("stream: upgrade: %v", err)
		}
		return
	}

	client := NewClient(h.gateway, conn)
	h.gateway.Register(client)

	go client.writePump()
	go client.readPump()
}
