package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lobbyscope-project/lobbyscope/internal/config"
	"github.com/lobbyscope-project/lobbyscope/internal/events"
)

func (s *Server) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"directory":  s.cfg.GetDirectory(),
		"enrichment": s.cfg.GetEnrichment(),
		"api":        s.cfg.API,
		"storage":    s.cfg.Storage,
		"mqtt":       s.cfg.MQTT,
		"security":   s.cfg.Security,
		"logging":    s.cfg.Logging,
	})
}

type updateFieldRequest struct {
	Section string      `json:"section" binding:"required"`
	Key     string      `json:"key" binding:"required"`
	Value   interface{} `json:"value"`
}

func (s *Server) handleUpdateConfigField(c *gin.Context) {
	var req updateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.cfg.UpdateField(req.Section, req.Key, req.Value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if result := config.Validate(s.cfg); !result.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "updated configuration is invalid",
			"errors": result.Errors,
		})
		return
	}

	if err := s.cfg.Save(); err != nil {
		log.Error().Err(err).Msg("failed to persist config update")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save configuration"})
		return
	}

	s.eventBus.Emit(c.Request.Context(), events.Event{
		Type:    events.EventConfigChanged,
		Source:  "api",
		Payload: req.Section + "." + req.Key,
	})

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
