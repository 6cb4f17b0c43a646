package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/domain/entity"
	"github.com/framegate/framegate/internal/domain/repository"
	apperrors "github.com/framegate/framegate/pkg/errors"
)

// SessionHandler serves the read side of the session store.
type SessionHandler struct {
	sessions repository.SessionRepository
	logger   *zap.Logger
}

// NewSessionHandler creates the session handler.
func NewSessionHandler(sessions repository.SessionRepository, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

type sessionView struct {
	ID            string `json:"id"`
	Prompt        string `json:"prompt"`
	Mode          string `json:"mode,omitempty"`
	Model         string `json:"model"`
	TotalMs       int64  `json:"totalMs"`
	ToolLatencyMs *int64 `json:"toolLatencyMs,omitempty"`
	OKJSON        int    `json:"okJson"`
	BadJSON       int    `json:"badJson"`
	OKResult      int    `json:"okResult"`
	BadResult     int    `json:"badResult"`
	Degraded      bool   `json:"degraded"`
	CreatedAt     string `json:"createdAt"`
}

func toView(r *entity.SessionRecord) sessionView {
	return sessionView{
		ID:            r.ID,
		Prompt:        r.Prompt,
		Mode:          r.Mode,
		Model:         r.Model,
		TotalMs:       r.TotalMs,
		ToolLatencyMs: r.ToolLatencyMs,
		OKJSON:        r.OKJSON,
		BadJSON:       r.BadJSON,
		OKResult:      r.OKResult,
		BadResult:     r.BadResult,
		Degraded:      r.Degraded,
		CreatedAt:     r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// List handles GET /v1/sessions.
func (h *SessionHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	records, err := h.sessions.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error"})
		return
	}

	views := make([]sessionView, 0, len(records))
	for _, r := range records {
		views = append(views, toView(r))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views})
}

// Get handles GET /v1/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	record, err := h.sessions.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			c.JSON(http.StatusNotFound, gin.H{"code": "not_found"})
			return
		}
		h.logger.Error("Failed to load session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, toView(record))
}
