package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"datalake/internal/cache"
	"datalake/internal/catalog"
	"datalake/internal/ingest"
	"datalake/internal/logger"
	"datalake/internal/retrieval"
)

// Server owns the HTTP surface. It is thin plumbing: request validation and
// transport mapping only. All pipeline behavior lives in the injected
// components.
type Server struct {
	orchestrator *ingest.Orchestrator
	engine       *retrieval.Engine
	catalog      *catalog.Store
	cache        *cache.Cache // may be nil; correctness never depends on it
	log          *logger.Logger
}

// New assembles the server with its collaborators.
func New(orchestrator *ingest.Orchestrator, engine *retrieval.Engine, cat *catalog.Store, c *cache.Cache, log *logger.Logger) *Server {
	return &Server{
		orchestrator: orchestrator,
		engine:       engine,
		catalog:      cat,
		cache:        c,
		log:          log,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router(mode string) *gin.Engine {
	if mode == "prod" || mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/datasets/ingest", s.handleIngest)
		api.POST("/datasets/profile", s.handleProfile)
		api.GET("/datasets", s.handleList)
		api.GET("/datasets/search", s.handleSearch)
		api.GET("/datasets/:id", s.handleGet)
		api.PATCH("/datasets/:id", s.handleUpdate)
		api.DELETE("/datasets/:id", s.handleDelete)
		api.GET("/datasets/:id/rows", s.handleRows)
		api.GET("/datasets/:id/stats", s.handleStats)
		api.POST("/datasets/:id/query", s.handleQueryDataset)
		api.POST("/retrieve", s.handleRetrieve)
	}

	return r
}

// requestLog records one line per request with method, path, status, and
// latency.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
