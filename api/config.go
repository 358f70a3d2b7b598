// Package api provides the HTTP API server for managing categories and
// similarities and for running rabbit hole analyses.
package api

import (
	"net/http"
	"time"
)

// DefaultAnalysisTimeout bounds a single analysis request when no timeout is configured.
const DefaultAnalysisTimeout = 10 * time.Second

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// AnalysisTimeout bounds each rabbit hole or islands request, including
	// the time spent queued for a worker
	AnalysisTimeout time.Duration

	// MetricsHandler serves /metrics when set
	MetricsHandler http.Handler

	// MCPHandler serves /mcp when set
	MCPHandler http.Handler
}
