package api

import (
	"errors"
	"io"
	"net/http"

	"storybot/config"
	"storybot/selection"
	"storybot/types"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerRunRoutes(r *gin.Engine) {
	g := r.Group("/api")
	g.GET("/status", s.handleStatus)
	g.POST("/run", s.handleRun)
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Status().GetStatus())
}

// handleRun handles POST /api/run. The body is an optional RunRequest.
func (s *Server) handleRun(c *gin.Context) {
	var req types.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.TriggerRun(&req)
	var cfgErr *config.ConfigurationError
	switch {
	case errors.Is(err, selection.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{
			"error": "run already in progress",
			"state": s.ctrl.Status().State(),
		})
		return
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid constraints", "problems": cfgErr.Problems})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":     "started",
		"request_id": req.RequestID,
	})
}
