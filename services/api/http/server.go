package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/02loveslollipop/perftest-dashboard/services/api/config"
	"github.com/02loveslollipop/perftest-dashboard/services/api/db"
	"github.com/02loveslollipop/perftest-dashboard/services/api/logging"
	"github.com/02loveslollipop/perftest-dashboard/services/api/manualinput"
	"github.com/02loveslollipop/perftest-dashboard/services/api/timeslot"
)

// Catalog serves the read-only lookups of the dashboard.
type Catalog interface {
	ListPerformanceRecords(ctx context.Context, limit, offset int, search string) (*db.PerformanceRecordsPage, error)
	GetPerformanceRecord(ctx context.Context, id int64) (*db.PerformanceRecord, error)
	ListInputTags(ctx context.Context, perfID int64, mInput int) ([]timeslot.InputTag, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg     config.Config
	catalog Catalog
	inputs  *manualinput.Service
	logger  *zap.Logger
	engine  *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, catalog Catalog, inputs *manualinput.Service, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logging.GinLogger(logger))
	engine.Use(corsMiddleware())

	if cfg.BearerToken != "" {
		engine.Use(bearerAuthMiddleware(cfg.BearerToken))
	}

	server := &Server{cfg: cfg, catalog: catalog, inputs: inputs, logger: logger, engine: engine}
	server.registerRoutes()
	server.registerV1Routes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// registerRoutes keeps the paths the dashboard front end already calls.
func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	legacy := s.engine.Group("/api")
	{
		legacy.GET("/performance-records", s.handleV1ListPerformanceRecords)
		legacy.GET("/input-tags", s.handleV1ListInputTags)
		legacy.GET("/data-analysis/manual-input", s.handleV1Sheet)
		legacy.POST("/data-analysis/save-manual-input", s.handleV1Save)
	}
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}

// requestContext bounds a handler's work by the configured timeout.
func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.logger.Error(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
