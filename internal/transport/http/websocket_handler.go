package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	mw "adcpview/internal/middleware"
	ws "adcpview/internal/websocket"
)

// WebSocketHandler upgrades browser connections and hands them to the hub.
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler. Only origins allowed
// by cors may connect.
func NewWebSocketHandler(hub *ws.Hub, cors mw.CORSConfig, readBuffer, writeBuffer int, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || cors.OriginAllowed(origin)
			},
		},
		logger: logger.With(slog.String("handler", "websocket")),
	}
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	traceID := mw.GetRequestID(r.Context())

	// The hijacked connection writes its own headers, so the request ID is
	// passed to the handshake response explicitly.
	var responseHeader http.Header
	if traceID != "" {
		responseHeader = http.Header{mw.RequestIDHeader: []string{traceID}}
	}

	conn, err := h.upgrader.Upgrade(w, r, responseHeader)
	if err != nil {
		// The upgrader has already written the error response
		h.logger.WarnContext(r.Context(), "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("origin", r.Header.Get("Origin")),
			slog.String("remote_addr", mw.GetRealIP(r)),
		)
		mw.RecordSystemError(r.Context(), "websocket_upgrade", "websocket")
		return
	}

	client := ws.ServeWS(h.hub, ws.NewConnectionWrapper(conn), traceID, h.logger)
	h.logger.InfoContext(r.Context(), "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("trace_id", traceID),
	)
}
