package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"willvault/internal/storage"
)

// Server represents the HTTP API server
// Provides endpoints for Prometheus metrics, health checks, and the will query API
type Server struct {
	httpServer  *http.Server
	mux         *http.ServeMux
	repository  storage.Repository
	port        int
	development bool
}

// NewServer creates a new API server instance
// The repository is made available to all handlers for replica access
func NewServer(port int, repository storage.Repository, development bool) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:         mux,
		repository:  repository,
		port:        port,
		development: development,
	}

	// Register all HTTP routes
	s.registerRoutes()

	return s
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.handleMetrics())

	// Will endpoints
	s.mux.HandleFunc("/wills/", s.handleWillRoutes)
	s.mux.HandleFunc("/will/", s.handleWillDetailRoute)
	s.mux.HandleFunc("/beneficiaries/", s.handleBeneficiaryRoutes)
	s.mux.HandleFunc("/vaults/", s.handleVaultRoutes)
	s.mux.HandleFunc("/documents/", s.handleDocumentRoutes)
	s.mux.HandleFunc("/stats", s.handleStatsRoute)
}

// handleWillRoutes routes will listings (with trailing slash)
func (s *Server) handleWillRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/wills/")
	parts := strings.Split(path, "/")

	// GET /wills/beneficiary/{wallet}
	if len(parts) == 2 && parts[0] == "beneficiary" {
		s.handleWillsByBeneficiary(w, r, parts[1])
		return
	}

	// GET /wills/{testator}
	if len(parts) == 1 && parts[0] != "" {
		s.handleWillsByTestator(w, r, parts[0])
		return
	}

	s.sendError(w, "Endpoint not found", http.StatusNotFound)
}

// handleWillDetailRoute routes the single-will detail view
func (s *Server) handleWillDetailRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/will/")
	parts := strings.Split(path, "/")

	// GET /will/{testator}
	if len(parts) == 1 && parts[0] != "" {
		s.handleWillDetail(w, r, parts[0])
		return
	}

	s.sendError(w, "Endpoint not found", http.StatusNotFound)
}

// handleBeneficiaryRoutes routes beneficiary-scoped share listings
func (s *Server) handleBeneficiaryRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/beneficiaries/")
	parts := strings.Split(path, "/")

	// GET /beneficiaries/{wallet}
	if len(parts) == 1 && parts[0] != "" {
		s.handleWillsByBeneficiary(w, r, parts[0])
		return
	}

	s.sendError(w, "Endpoint not found", http.StatusNotFound)
}

// handleVaultRoutes routes vault balance lookups
func (s *Server) handleVaultRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/vaults/")
	parts := strings.Split(path, "/")

	// GET /vaults/{testator}
	if len(parts) == 1 && parts[0] != "" {
		s.handleVaults(w, r, parts[0])
		return
	}

	s.sendError(w, "Endpoint not found", http.StatusNotFound)
}

// handleDocumentRoutes routes document metadata lookups
func (s *Server) handleDocumentRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/documents/")
	parts := strings.Split(path, "/")

	// GET /documents/{testator}
	if len(parts) == 1 && parts[0] != "" {
		s.handleListDocuments(w, r, parts[0])
		return
	}

	// GET /documents/{testator}/{hash}
	if len(parts) == 2 && parts[1] != "" {
		s.handleGetDocument(w, r, parts[0], parts[1])
		return
	}

	s.sendError(w, "Endpoint not found", http.StatusNotFound)
}

// handleStatsRoute routes the aggregate stats view
func (s *Server) handleStatsRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.handleStats(w, r)
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"port", s.port,
			"endpoints", []string{"/", "/health", "/metrics", "/wills", "/stats"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	// Give the server a moment to start
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
