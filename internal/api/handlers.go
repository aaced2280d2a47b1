package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"willvault/internal/identity"
	"willvault/internal/metrics"
	"willvault/internal/models"
	"willvault/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handleIndex returns basic service information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	info := map[string]interface{}{
		"service":     "WillVault Indexer",
		"version":     "1.0.0",
		"description": "Digital will journal indexer and query API",
		"endpoints": map[string]string{
			"GET /":                            "This page - Service information",
			"GET /health":                      "Health check endpoint",
			"GET /metrics":                     "Prometheus metrics for monitoring",
			"GET /wills/{testator}":            "List wills owned by an identity",
			"GET /wills/beneficiary/{wallet}":  "List wills in which a wallet holds shares",
			"GET /will/{testator}":             "Full will detail with beneficiaries, vaults and documents",
			"GET /beneficiaries/{wallet}":      "Beneficiary-scoped share listing",
			"GET /vaults/{testator}":           "Locked and flexible vault balances",
			"GET /documents/{testator}":        "Document metadata attached to a will",
			"GET /documents/{testator}/{hash}": "Single document metadata by content hash",
			"GET /stats":                       "Aggregate counts and totals",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// handleHealth returns health status including replica connectivity and
// the projection's position in the journal
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   "willvault-indexer",
		Database:  "connected",
	}

	if err := s.repository.Ping(ctx); err != nil {
		slog.Error("Health check failed to reach database", "error", err)
		health.Status = "degraded"
		health.Database = "unreachable"

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(health)
		return
	}

	if cur, ok, err := s.repository.LoadCheckpoint(ctx); err == nil && ok {
		health.LastBlock = cur.Block
		health.LastIndex = cur.Index
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// =============================================================================
// WILL ENDPOINTS
// =============================================================================

// handleWillsByTestator lists the wills owned by one identity
// GET /wills/{testator}
func (s *Server) handleWillsByTestator(w http.ResponseWriter, r *http.Request, raw string) {
	testator, ok := s.parseAddress(w, raw)
	if !ok {
		return
	}

	ctx := r.Context()

	wills, err := s.repository.ListWillsByTestator(ctx, testator)
	if err != nil {
		s.internalError(w, "Failed to list wills", err)
		return
	}
	if wills == nil {
		wills = []models.WillRecord{}
	}

	response := models.WillListResponse{
		Testator: testator,
		Wills:    wills,
		Total:    len(wills),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleWillsByBeneficiary lists every will in which a wallet holds
// shares, together with the wallet's position
// GET /wills/beneficiary/{wallet} and GET /beneficiaries/{wallet}
func (s *Server) handleWillsByBeneficiary(w http.ResponseWriter, r *http.Request, raw string) {
	wallet, ok := s.parseAddress(w, raw)
	if !ok {
		return
	}

	ctx := r.Context()

	entries, err := s.repository.ListWillsByBeneficiary(ctx, wallet)
	if err != nil {
		s.internalError(w, "Failed to list wills by beneficiary", err)
		return
	}
	if entries == nil {
		entries = []models.BeneficiaryWill{}
	}

	response := models.BeneficiaryWillsResponse{
		Wallet: wallet,
		Wills:  entries,
		Total:  len(entries),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleWillDetail returns the full view of one will
// GET /will/{testator}
func (s *Server) handleWillDetail(w http.ResponseWriter, r *http.Request, raw string) {
	testator, ok := s.parseAddress(w, raw)
	if !ok {
		return
	}

	ctx := r.Context()

	will, err := s.repository.GetWill(ctx, testator)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.sendError(w, "Will not found", http.StatusNotFound)
			return
		}
		s.internalError(w, "Failed to get will", err)
		return
	}

	beneficiaries, err := s.repository.ListBeneficiaries(ctx, testator)
	if err != nil {
		slog.Error("Failed to list beneficiaries", "testator", testator, "error", err)
		beneficiaries = []models.BeneficiaryRecord{} // Continue without beneficiaries
	}

	documents, err := s.repository.ListDocuments(ctx, testator)
	if err != nil {
		slog.Error("Failed to list documents", "testator", testator, "error", err)
		documents = []models.DocumentRecord{} // Continue without documents
	}

	var payouts []models.PayoutRecord
	if will.Executed {
		payouts, err = s.repository.ListPayouts(ctx, testator)
		if err != nil {
			slog.Error("Failed to list payouts", "testator", testator, "error", err)
			payouts = nil // Continue without payouts
		}
	}

	response := models.WillDetailResponse{
		Will:          *will,
		Beneficiaries: beneficiaries,
		Vaults: models.VaultBalances{
			Locked:   will.LockedBalance,
			Flexible: will.FlexibleBalance,
		},
		Documents: documents,
		Payouts:   payouts,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleVaults returns both vault balances of a will
// GET /vaults/{testator}
func (s *Server) handleVaults(w http.ResponseWriter, r *http.Request, raw string) {
	testator, ok := s.parseAddress(w, raw)
	if !ok {
		return
	}

	ctx := r.Context()

	vaults, err := s.repository.GetVaults(ctx, testator)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.sendError(w, "Will not found", http.StatusNotFound)
			return
		}
		s.internalError(w, "Failed to get vaults", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vaults)
}

// handleListDocuments lists the documents attached to a will
// GET /documents/{testator}
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request, raw string) {
	testator, ok := s.parseAddress(w, raw)
	if !ok {
		return
	}

	ctx := r.Context()

	documents, err := s.repository.ListDocuments(ctx, testator)
	if err != nil {
		s.internalError(w, "Failed to list documents", err)
		return
	}
	if documents == nil {
		documents = []models.DocumentRecord{}
	}

	response := models.DocumentListResponse{
		WillTestator: testator,
		Documents:    documents,
		Total:        len(documents),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleGetDocument returns one document of a will by content hash
// GET /documents/{testator}/{hash}
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request, raw, hash string) {
	testator, ok := s.parseAddress(w, raw)
	if !ok {
		return
	}

	ctx := r.Context()

	doc, err := s.repository.GetDocument(ctx, testator, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.sendError(w, "Document not found", http.StatusNotFound)
			return
		}
		s.internalError(w, "Failed to get document", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

// handleStats returns replica-wide aggregates
// GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := s.repository.GetStats(ctx)
	if err != nil {
		s.internalError(w, "Failed to get stats", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// parseAddress validates an address path parameter before any lookup,
// writing a 400 when it fails the address shape check
func (s *Server) parseAddress(w http.ResponseWriter, raw string) (string, bool) {
	addr, err := identity.Parse(raw)
	if err != nil {
		s.sendError(w, fmt.Sprintf("Invalid address: %s", raw), http.StatusBadRequest)
		return "", false
	}
	return identity.Hex(addr), true
}

// internalError logs the cause and sends a 500; detail reaches the
// response only in development mode
func (s *Server) internalError(w http.ResponseWriter, message string, err error) {
	slog.Error(message, "error", err)
	metrics.ErrorsTotal.WithLabelValues("api").Inc()

	if s.development {
		s.sendError(w, fmt.Sprintf("%s: %v", message, err), http.StatusInternalServerError)
		return
	}
	s.sendError(w, "Internal server error", http.StatusInternalServerError)
}

// sendError sends a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}
