package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lobbyscope-project/lobbyscope/internal/events"
)

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	snap := s.source.Latest()
	if snap == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":       "waiting",
			"has_snapshot": false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"has_snapshot":      true,
		"timestamp":         snap.Timestamp,
		"route_used":        snap.RouteUsed,
		"sessions":          len(snap.Sessions),
		"players":           len(snap.Players),
		"mods":              len(snap.Mods),
		"maps_enriched":     snap.MapsEnriched,
		"physical_enriched": snap.PhysicalEnriched,
	})
}

func (s *Server) handleGetSessions(c *gin.Context) {
	snap := s.source.Latest()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot available yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"timestamp": snap.Timestamp,
		"sessions":  snap.Sessions,
	})
}

func (s *Server) handleGetSession(c *gin.Context) {
	snap := s.source.Latest()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot available yet"})
		return
	}

	key := c.Param("key")
	for _, sess := range snap.Sessions {
		if sess.Key == key {
			c.JSON(http.StatusOK, sess)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "session not found", "key": key})
}

func (s *Server) handleGetPlayers(c *gin.Context) {
	snap := s.source.Latest()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot available yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"players": snap.Players})
}

func (s *Server) handleGetMods(c *gin.Context) {
	snap := s.source.Latest()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot available yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mods": snap.Mods})
}

func (s *Server) handleGetRoutes(c *gin.Context) {
	names := make([]string, 0, len(s.routes))
	for _, r := range s.routes {
		names = append(names, r.Name)
	}

	preferred := ""
	if s.memory != nil {
		preferred = s.memory.Last()
	}

	c.JSON(http.StatusOK, gin.H{
		"fallback_routes": names,
		"preferred":       preferred,
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.eventBus.Emit(c.Request.Context(), events.Event{
		Type:   events.EventRefreshRequested,
		Source: "api",
	})

	snap, err := s.source.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"timestamp":  snap.Timestamp,
		"route_used": snap.RouteUsed,
		"sessions":   len(snap.Sessions),
	})
}
