package http

// registerV1Routes sets up the v1 API structure
// Groups: /api/v1/core, /api/v1/manual-input
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())

	// Core endpoints - performance tests and their tag catalogue
	core := v1.Group("/core")
	{
		core.GET("/performance-records", s.handleV1ListPerformanceRecords)
		core.GET("/performance-records/:id", s.handleV1GetPerformanceRecord)
		core.GET("/input-tags", s.handleV1ListInputTags)
	}

	// Manual input endpoints - per-tab sheets keyed by m_input
	manual := v1.Group("/manual-input")
	{
		manual.GET("/sheet", s.handleV1Sheet)
		manual.POST("/save", s.handleV1Save)
		manual.POST("/validate", s.handleV1Validate)
	}
}
