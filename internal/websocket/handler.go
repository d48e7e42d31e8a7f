package websocket

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"tankevents/internal/config"
	"tankevents/internal/infrastructure"
)

// Handler upgrades requests on the run-updates endpoint and attaches them to hub.
func Handler(hub *Hub, cfg config.WebSocketConfig, logger *slog.Logger) http.HandlerFunc {
	logger = infrastructure.WithComponent(logger, "websocket.handler")
	upgrader := websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(cfg.AllowedOrigins) == 0 {
				return true
			}
			for _, allowed := range cfg.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		ctx := infrastructure.WithTraceID(r.Context(), reqID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WarnContext(ctx, "WebSocket upgrade failed",
				slog.String("error", err.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			return
		}

		client := NewClient(hub, WrapConn(conn), reqID, logger)
		hub.Register(client)

		logger.InfoContext(ctx, "WebSocket client connected",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("client_id", client.ID()))

		go client.WritePump()
		go client.ReadPump()
	}
}
