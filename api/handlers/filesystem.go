package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/remote-shell-broker/backend/internal/fsops"
	"github.com/remote-shell-broker/backend/internal/model"
)

// FilesystemHandler exposes the directory browser to upper layers.
type FilesystemHandler struct{}

// NewFilesystemHandler creates a FilesystemHandler.
func NewFilesystemHandler() *FilesystemHandler {
	return &FilesystemHandler{}
}

// Browse handles GET /api/fs/browse?path= and returns the directory's
// immediate children, directories first.
func (h *FilesystemHandler) Browse(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "path query parameter is required")
		return
	}

	listing, err := fsops.Browse(path)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPathNotFound):
			sendError(c, http.StatusNotFound, "PATH_NOT_FOUND", err.Error())
		case errors.Is(err, model.ErrNotADirectory):
			sendError(c, http.StatusBadRequest, "NOT_A_DIRECTORY", err.Error())
		default:
			sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, listing)
}

// RegisterRoutes registers filesystem routes on a Gin router group.
func (h *FilesystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/fs/browse", h.Browse)
}
