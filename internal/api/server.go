package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lobbyscope-project/lobbyscope/internal/assemble"
	"github.com/lobbyscope-project/lobbyscope/internal/config"
	"github.com/lobbyscope-project/lobbyscope/internal/events"
	"github.com/lobbyscope-project/lobbyscope/internal/fetch"
	"github.com/lobbyscope-project/lobbyscope/internal/network"
	"github.com/lobbyscope-project/lobbyscope/internal/storage"
	"github.com/lobbyscope-project/lobbyscope/internal/util"
)

// SnapshotSource provides the most recent assembled snapshot and a way
// to force a refresh outside the polling schedule.
type SnapshotSource interface {
	Latest() *assemble.Snapshot
	Refresh(ctx context.Context) (*assemble.Snapshot, error)
}

// Server is the REST API server for Lobbyscope.
type Server struct {
	cfg      *config.Config
	eventBus *events.EventBus
	source   SnapshotSource
	version  string

	// Optional collaborators; endpoints depending on them return 404
	// when absent.
	store  *storage.SnapshotStore
	routes []fetch.Route
	memory *fetch.RouteMemory

	httpServer *http.Server
	router     *gin.Engine
}

// NewServer creates a new API server.
func NewServer(cfg *config.Config, eventBus *events.EventBus, source SnapshotSource, version string) *Server {
	// Set Gin mode based on log level
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		cfg:      cfg,
		eventBus: eventBus,
		source:   source,
		version:  version,
	}
}

// SetStore injects the snapshot history store.
func (s *Server) SetStore(store *storage.SnapshotStore) {
	s.store = store
}

// SetRouteInfo injects the configured route chain and its memory for the
// route introspection endpoint.
func (s *Server) SetRouteInfo(routes []fetch.Route, memory *fetch.RouteMemory) {
	s.routes = routes
	s.memory = memory
}

// Start initializes and starts the API server. It blocks until ctx is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.router = s.buildRouter()

	addr := fmt.Sprintf(":%d", s.cfg.API.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if s.cfg.Security.TLSEnabled {
		certFile := s.cfg.Security.TLSCertFile
		keyFile := s.cfg.Security.TLSKeyFile
		if !util.FileExists(certFile) || !util.FileExists(keyFile) {
			log.Info().Str("cert", certFile).Msg("TLS certificate not found, generating self-signed pair")
			if err := util.GenerateSelfSignedCert(certFile, keyFile); err != nil {
				return fmt.Errorf("API server error: %w", err)
			}
		}
		s.httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			},
		}
	}

	// SO_REUSEADDR allows immediate rebinding after a restart
	lc := network.ReuseAddrListenConfig()
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("API server error: %w", err)
	}

	log.Info().Str("addr", addr).Msg("REST API server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if s.cfg.Security.TLSEnabled {
		err = s.httpServer.ServeTLS(ln, s.cfg.Security.TLSCertFile, s.cfg.Security.TLSKeyFile)
	} else {
		err = s.httpServer.Serve(ln)
	}

	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server error: %w", err)
	}

	return nil
}

// buildRouter creates the Gin router with all routes and middleware.
func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(SecurityHeaders())

	allowedOrigins := s.cfg.Security.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Must be false when AllowOrigins is "*"
		MaxAge:           12 * time.Hour,
	}))

	rateLimiter := NewRateLimiter(s.cfg.Security.RateLimitRPS)
	router.Use(rateLimiter.Middleware())

	api := router.Group("/api")
	{
		api.GET("/ping", s.handlePing)
		api.GET("/status", s.handleStatus)
		api.GET("/sessions", s.handleGetSessions)
		api.GET("/sessions/:key", s.handleGetSession)
		api.GET("/players", s.handleGetPlayers)
		api.GET("/mods", s.handleGetMods)
		api.GET("/routes", s.handleGetRoutes)
		api.POST("/refresh", s.handleRefresh)

		api.GET("/history", s.handleGetHistory)
		api.GET("/history/:id", s.handleGetHistorySnapshot)
		api.GET("/sightings", s.handleGetSightings)

		monitor := api.Group("/monitor")
		{
			monitor.GET("/system", s.handleGetSystemInfo)
			monitor.GET("/cpu", s.handleGetCPUUsage)
			monitor.GET("/memory", s.handleGetMemoryUsage)
			monitor.GET("/disk", s.handleGetDiskUsage)
		}

		configure := api.Group("/config")
		{
			configure.GET("", s.handleGetConfig)
			configure.POST("/field", s.handleUpdateConfigField)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
