package api

import (
	"errors"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/warren/pkg/catalog"
)

// Server is the API server for the warren catalog
type Server struct {
	config  Config
	catalog *catalog.Service
	logger  *zap.Logger
	app     *fiber.App
}

// NewServer creates a new API server.
// The catalog is injected so it can be shared with the MCP tool server.
func NewServer(config Config, svc *catalog.Service, logger *zap.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("catalog service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.AnalysisTimeout <= 0 {
		config.AnalysisTimeout = DefaultAnalysisTimeout
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		UnescapePath:          true,
		// Params and queries are handed to the catalog, which keeps them.
		Immutable: true,
	})

	s := &Server{
		config:  config,
		catalog: svc,
		logger:  logger,
		app:     app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/stats", s.handleStats)

	app.Post("/categories", s.handleCreateCategory)
	app.Get("/categories", s.handleListCategories)
	app.Get("/categories/:name", s.handleGetCategory)
	app.Put("/categories/:name", s.handleUpdateCategory)
	app.Delete("/categories/:name", s.handleDeleteCategory)
	app.Patch("/categories/:name/move", s.handleMoveCategory)
	app.Get("/categories/:name/tree", s.handleCategoryTree)
	app.Get("/print_category_tree/:name", s.handlePrintCategoryTree)

	app.Post("/similarities", s.handleAddSimilarity)
	app.Delete("/similarities", s.handleRemoveSimilarity)
	app.Get("/similarities/:name", s.handleSimilarCategories)

	app.Get("/rabbit_hole_and_islands", s.handleRabbitHoleAndIslands)
	app.Get("/rabbit_hole", s.handleRabbitHole)
	app.Get("/rabbit_islands", s.handleRabbitIslands)

	if config.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(config.MetricsHandler))
	}
	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
		zap.Duration("analysis_timeout", s.config.AnalysisTimeout),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Handler exposes the routes as a net/http handler, for embedding the API in
// another server or in httptest.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
