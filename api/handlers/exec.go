package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/remote-shell-broker/backend/internal/model"
	"github.com/remote-shell-broker/backend/internal/shell"
)

// ExecHandler runs single executables to completion outside the session
// protocol, for one-shot script execution by upper layers.
type ExecHandler struct{}

// NewExecHandler creates an ExecHandler.
func NewExecHandler() *ExecHandler {
	return &ExecHandler{}
}

// ExecRequest is the request body for POST /api/exec.
type ExecRequest struct {
	Path    string   `json:"path" binding:"required"`
	Args    []string `json:"args"`
	Workdir string   `json:"workdir"`
}

// Exec handles POST /api/exec. The response reports the exit code and the
// fully captured output streams; a nonzero exit code is still a 200.
func (h *ExecHandler) Exec(c *gin.Context) {
	var req ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := shell.Run(c.Request.Context(), req.Path, req.Args, req.Workdir)
	if err != nil {
		if errors.Is(err, model.ErrExecutionFailed) {
			sendError(c, http.StatusUnprocessableEntity, "EXECUTION_FAILED", err.Error())
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers exec routes on a Gin router group.
func (h *ExecHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/exec", h.Exec)
}
