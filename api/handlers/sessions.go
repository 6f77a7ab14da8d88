package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/remote-shell-broker/backend/internal/model"
	"github.com/remote-shell-broker/backend/internal/repository"
)

// SessionsHandler serves the session audit trail.
type SessionsHandler struct {
	repo *repository.AuditRepository
}

// NewSessionsHandler creates a SessionsHandler.
func NewSessionsHandler(repo *repository.AuditRepository) *SessionsHandler {
	return &SessionsHandler{repo: repo}
}

// List handles GET /api/sessions?limit= and returns recent audit records,
// newest first. Records are historical only; live session state is owned by
// the broker and reachable over the websocket protocol.
func (h *SessionsHandler) List(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.repo.List(c.Request.Context(), limit)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if records == nil {
		records = []*model.SessionRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"sessions": records})
}

// RegisterRoutes registers session routes on a Gin router group.
func (h *SessionsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sessions", h.List)
}
