package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/finbrook/fundview/internal/charts"
	"github.com/finbrook/fundview/internal/common"
	"github.com/finbrook/fundview/internal/models"
)

// writeView renders a resolution result. A retained stale view is still
// a 200: the session keeps its last good state and the payload carries
// the stale flag.
func (s *Server) writeView(w http.ResponseWriter, vm *models.ViewModel, err error) {
	if err != nil && vm == nil {
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Resolution failed: %v", err))
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Serving retained view after failed resolution")
	}
	WriteJSON(w, http.StatusOK, vm)
}

// --- Session handlers ---

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	vm, err := s.app.CurrentView(r.Context())
	s.writeView(w, vm, err)
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	state := s.app.Selection()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"clients":     state.ClientIDs(),
		"funds":       state.FundNames(),
		"accounts":    state.AccountIDs(),
		"filters":     state.Filters,
		"pinned_date": state.Pinned,
		"context":     state.Classify(),
		"description": state.Describe(),
	})
}

func (s *Server) handleSelectionToggle(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Dimension string `json:"dimension"`
		ID        string `json:"id"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		WriteError(w, http.StatusBadRequest, "id is required")
		return
	}
	dim := models.Dimension(req.Dimension)
	switch dim {
	case models.DimensionClient, models.DimensionFund, models.DimensionAccount:
	default:
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Unknown dimension %q", req.Dimension))
		return
	}

	vm, err := s.app.ToggleSelection(r.Context(), dim, req.ID)
	s.writeView(w, vm, err)
}

func (s *Server) handleSelectionClear(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	vm, err := s.app.ClearSelections(r.Context())
	s.writeView(w, vm, err)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}

	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	switch req.Field {
	case "fund_ticker", "client_name", "account_number":
	default:
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Unknown text filter field %q", req.Field))
		return
	}

	vm, err := s.app.SetTextFilter(r.Context(), req.Field, req.Value)
	s.writeView(w, vm, err)
}

func (s *Server) handleDate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut, http.MethodDelete) {
		return
	}

	if r.Method == http.MethodDelete {
		vm, err := s.app.PinDate(r.Context(), nil)
		s.writeView(w, vm, err)
		return
	}

	var req struct {
		Date string `json:"date"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", req.Date))
		return
	}

	vm, rerr := s.app.PinDate(r.Context(), &date)
	s.writeView(w, vm, rerr)
}

// --- Chart handlers ---

func (s *Server) serveChart(w http.ResponseWriter, r *http.Request, render func(*models.ViewModel) ([]byte, error)) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	vm, err := s.app.CurrentView(r.Context())
	if vm == nil {
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Resolution failed: %v", err))
		return
	}

	png, err := render(vm)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Chart render failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (s *Server) handleRecentChart(w http.ResponseWriter, r *http.Request) {
	s.serveChart(w, r, charts.RenderRecentChart)
}

func (s *Server) handleLongTermChart(w http.ResponseWriter, r *http.Request) {
	s.serveChart(w, r, charts.RenderLongTermChart)
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.Cache.GetStats())
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
