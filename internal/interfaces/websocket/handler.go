// Package websocket mirrors the SSE stream over a socket: the client
// sends one request message, the gateway streams the same event
// sequence back as JSON text messages.
package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/application/usecase"
	"github.com/framegate/framegate/internal/infrastructure/emitter"
)

// Handler serves GET /v1/ws.
type Handler struct {
	uc       *usecase.StreamUseCase
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates the websocket handler.
func NewHandler(uc *usecase.StreamUseCase, logger *zap.Logger) *Handler {
	return &Handler{
		uc: uc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// streamMessage is the single request the client sends after the
// upgrade.
type streamMessage struct {
	Prompt         string `json:"prompt"`
	Mode           string `json:"mode"`
	TestKey        string `json:"testKey"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// Serve upgrades the connection, reads one request and streams the
// session over it.
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var req streamMessage
	if err := conn.ReadJSON(&req); err != nil || (req.Prompt == "" && req.Mode == "") {
		_ = conn.WriteJSON(map[string]any{
			"event": "error",
			"data":  map[string]any{"code": "invalid_request", "message": "expected {prompt?, mode?, testKey?, idempotencyKey?}"},
		})
		return
	}

	queue := emitter.NewQueue(emitter.NewWebSocketSink(conn), h.logger, h.uc.QueueCapacity())
	metrics, sessionID := h.uc.Run(c.Request.Context(), usecase.StreamInput{
		Prompt:         req.Prompt,
		Mode:           req.Mode,
		TestKey:        req.TestKey,
		IdempotencyKey: req.IdempotencyKey,
	}, queue)

	h.logger.Info("WebSocket stream completed",
		zap.String("session_id", sessionID),
		zap.Int64("total_ms", metrics.TotalMs),
		zap.Bool("degraded", metrics.Degraded),
	)
}
