package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.ServiceInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	results := s.router.Group("/api/results")
	{
		results.POST("/ai-detection", s.resultsHandler.ReceiveDetection)
		results.GET("/camera/:cameraId/latest", s.resultsHandler.LatestResults)
	}

	cameras := s.router.Group("/api/cameras")
	{
		cameras.POST("/events", s.cameraEventsHandler.Publish)
	}

	s.router.GET("/hubs/results", s.hubHandler.Connect)

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}
}
