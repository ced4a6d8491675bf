package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Abhishek8108/uk-stock-analyzer/internal/app"
	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/services"
)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
}

// NewHandler creates a new Handler
func NewHandler(application *app.App) *Handler {
	return &Handler{app: application}
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":      "ok",
		"run_active":  h.app.IsRunning(),
		"screener":    h.app.HasScreener(),
		"run_store":   "connected",
		"data_source": h.app.Config().MarketData.Provider,
	}

	if err := h.app.StoreHealth(r.Context()); err != nil {
		status["run_store"] = "disconnected"
		status["status"] = "degraded"
	}

	// Add circuit breaker status
	cbStatus := services.GetGlobalRegistry().Status()
	status["circuit_breakers"] = cbStatus

	// Check if any breakers are open (degraded state)
	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, http.StatusOK, status)
}

// HandleStartRun triggers a background screener run
func (h *Handler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	mode, err := ParseModeParam(r)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.app.StartRun(mode); err != nil {
		switch {
		case errors.Is(err, app.ErrRunInProgress):
			h.jsonError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, app.ErrScreenerNotConfigured):
			h.jsonError(w, err.Error(), http.StatusServiceUnavailable)
		default:
			h.jsonError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	h.jsonResponse(w, http.StatusAccepted, StatusResponse{
		Status:  "accepted",
		Message: "screener run started in " + string(mode) + " mode",
	})
}

// HandleGetLatestRun returns the most recent screener run
func (h *Handler) HandleGetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.app.GetLatestRun(r.Context())
	if err != nil {
		h.appError(w, err)
		return
	}

	if run == nil {
		h.jsonResponse(w, http.StatusOK, map[string]interface{}{"run": nil})
		return
	}

	h.jsonResponse(w, http.StatusOK, run)
}

// HandleGetRuns returns screener run history
func (h *Handler) HandleGetRuns(w http.ResponseWriter, r *http.Request) {
	limit := ParseLimitParam(r, 10)

	runs, err := h.app.GetRunHistory(r.Context(), limit)
	if err != nil {
		h.appError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, runs)
}

// HandleGetRun returns a specific screener run by ID
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.jsonError(w, "Missing screener run ID", http.StatusBadRequest)
		return
	}

	if _, err := app.ParseUUID(id); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	run, err := h.app.GetRun(r.Context(), id)
	if err != nil {
		h.appError(w, err)
		return
	}

	if run == nil {
		h.jsonError(w, "Screener run not found", http.StatusNotFound)
		return
	}

	h.jsonResponse(w, http.StatusOK, run)
}

// ParseModeParam reads the run mode from the "mode" query parameter,
// defaulting to the daily universe
func ParseModeParam(r *http.Request) (models.RunMode, error) {
	switch strings.ToLower(r.URL.Query().Get("mode")) {
	case "", string(models.RunModeDaily):
		return models.RunModeDaily, nil
	case string(models.RunModeTest):
		return models.RunModeTest, nil
	default:
		return "", errors.New("mode must be daily or test")
	}
}

// ParseLimitParam parses the limit query parameter
func ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			if l > 100 {
				return 100
			}
			return l
		}
	}
	return defaultLimit
}

func (h *Handler) appError(w http.ResponseWriter, err error) {
	if errors.Is(err, app.ErrScreenerNotConfigured) {
		h.jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	h.jsonError(w, err.Error(), http.StatusInternalServerError)
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// StatusResponse represents a status response
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
