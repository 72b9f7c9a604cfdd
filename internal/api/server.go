package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"smartcamera-hub/internal/api/handlers"
	"smartcamera-hub/internal/api/middleware"
	"smartcamera-hub/internal/config"
	"smartcamera-hub/internal/logging"
	"smartcamera-hub/internal/services"
	"smartcamera-hub/internal/services/broadcast"
)

type Server struct {
	config   *config.Config
	services *services.ServiceContainer
	router   *gin.Engine
	server   *http.Server

	healthHandler       *handlers.HealthHandler
	systemHandler       *handlers.SystemHandler
	resultsHandler      *handlers.ResultsHandler
	cameraEventsHandler *handlers.CameraEventsHandler
	hubHandler          *handlers.HubHandler
}

func NewServer(cfg *config.Config, sc *services.ServiceContainer) *Server {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	clientCfg := broadcast.ClientConfig{
		OutboxSize:   cfg.HubOutboxSize,
		WriteTimeout: cfg.HubWriteTimeout,
		PingInterval: cfg.HubPingInterval,
		ReadLimit:    cfg.HubReadLimit,
	}

	s := &Server{
		config:              cfg,
		services:            sc,
		router:              gin.New(),
		healthHandler:       handlers.NewHealthHandler(cfg.InstanceID, cfg.Version, sc, sc.Hub),
		systemHandler:       handlers.NewSystemHandler(cfg.InstanceID, sc.Hub, sc),
		resultsHandler:      handlers.NewResultsHandler(sc.Ingest),
		cameraEventsHandler: handlers.NewCameraEventsHandler(sc.Ingest),
		hubHandler:          handlers.NewHubHandler(sc.Hub, clientCfg, middleware.OriginAllowed(cfg.HubAllowOrigins), logging.NewServiceLogger(cfg, "hub")),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}
	return s
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler { return s.router }

// Start blocks until the server stops; a graceful Shutdown is not an error
func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting SmartCamera hub API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then tears down the services
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping SmartCamera hub API")
	httpErr := s.server.Shutdown(ctx)
	svcErr := s.services.Shutdown(ctx)
	return errors.Join(httpErr, svcErr)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS(s.config.HubAllowOrigins))
}
