package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/application/usecase"
	"github.com/framegate/framegate/internal/infrastructure/emitter"
)

// StreamHandler serves POST /v1/stream: one request in, one framed
// SSE event stream out.
type StreamHandler struct {
	uc     *usecase.StreamUseCase
	logger *zap.Logger
}

// NewStreamHandler creates the stream handler.
func NewStreamHandler(uc *usecase.StreamUseCase, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{uc: uc, logger: logger}
}

// StreamRequest is the request body. Prompt and mode are each
// optional but at least one must be present.
type StreamRequest struct {
	Prompt  string `json:"prompt"`
	Mode    string `json:"mode"`
	TestKey string `json:"testKey"`
}

// Stream handles POST /v1/stream.
func (h *StreamHandler) Stream(c *gin.Context) {
	var req StreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_request",
			"message": err.Error(),
		})
		return
	}
	if req.Prompt == "" && req.Mode == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_request",
			"message": "prompt or mode is required",
		})
		return
	}

	sink, err := emitter.NewSSESink(c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "streaming unsupported by this connection",
		})
		return
	}
	c.Writer.WriteHeaderNow()

	queue := emitter.NewQueue(sink, h.logger, h.uc.QueueCapacity())
	metrics, sessionID := h.uc.Run(c.Request.Context(), usecase.StreamInput{
		Prompt:         req.Prompt,
		Mode:           req.Mode,
		TestKey:        req.TestKey,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	}, queue)

	h.logger.Info("Stream completed",
		zap.String("session_id", sessionID),
		zap.String("mode", req.Mode),
		zap.Int64("total_ms", metrics.TotalMs),
		zap.Bool("degraded", metrics.Degraded),
	)
}
