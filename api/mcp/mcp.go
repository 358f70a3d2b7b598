// Package mcp provides an MCP (Model Context Protocol) server exposing the
// warren catalog analyses as agent tools.
package mcp

import (
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/warren/pkg/catalog"
	"github.com/papercomputeco/warren/pkg/utils"
)

const defaultAnalysisTimeout = 10 * time.Second

type Config struct {
	// Catalog answers every tool call
	Catalog *catalog.Service

	// AnalysisTimeout bounds the rabbit hole and islands tools
	AnalysisTimeout time.Duration

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the catalog tools.
func NewServer(c Config) (*Server, error) {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "warren",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	s := &Server{
		config:    c,
		mcpServer: mcpServer,
	}

	if !c.Noop {
		if c.Catalog == nil {
			return nil, errors.New("catalog service is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}
		if s.config.AnalysisTimeout <= 0 {
			s.config.AnalysisTimeout = defaultAnalysisTimeout
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        rabbitHoleToolName,
			Description: rabbitHoleDescription,
		}, s.handleRabbitHole)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        rabbitIslandsToolName,
			Description: rabbitIslandsDescription,
		}, s.handleRabbitIslands)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        similarCategoriesToolName,
			Description: similarCategoriesDescription,
		}, s.handleSimilarCategories)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        categoryTreeToolName,
			Description: categoryTreeDescription,
		}, s.handleCategoryTree)
	}

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
