package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lobbyscope-project/lobbyscope/internal/util"
)

func (s *Server) handleGetSystemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, util.GetSystemInfo())
}

func (s *Server) handleGetCPUUsage(c *gin.Context) {
	usage, err := util.GetCPUUsage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cpu_percent": usage})
}

func (s *Server) handleGetDiskUsage(c *gin.Context) {
	path := c.DefaultQuery("path", ".")
	usage, err := util.GetDiskUsage(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, usage)
}

func (s *Server) handleGetMemoryUsage(c *gin.Context) {
	usage, err := util.GetMemoryUsage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, usage)
}
