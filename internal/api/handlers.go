package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/five82/roost/internal/control"
)

type gcodeRequest struct {
	Script string `json:"script" binding:"required"`
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshots.Snapshot())
}

func (s *Server) getPresets(c *gin.Context) {
	c.JSON(http.StatusOK, s.control.Presets())
}

func (s *Server) getQueue(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"capacity": s.queue.Cap(), "pending": s.queue.Pending()})
}

func (s *Server) applyPreset(c *gin.Context) {
	p, err := s.control.ApplyPreset(c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "preset": p})
}

func (s *Server) sendGcode(c *gin.Context) {
	var req gcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	if err := s.control.SendGcode(req.Script); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (s *Server) home(c *gin.Context) {
	s.respondQueued(c, s.control.Home())
}

func (s *Server) quadGantryLevel(c *gin.Context) {
	s.respondQueued(c, s.control.QuadGantryLevel())
}

func (s *Server) respondQueued(c *gin.Context, err error) {
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (s *Server) respondError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("action failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, control.ErrInvalidGcode):
		return http.StatusBadRequest
	case errors.Is(err, control.ErrUnknownPreset):
		return http.StatusNotFound
	case errors.Is(err, control.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, control.ErrOffline), errors.Is(err, control.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
