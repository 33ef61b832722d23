package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/crewtally/tally-api/internal/alert"
)

type AlertHandler struct {
	service *alert.Service
	logger  zerolog.Logger
}

func NewAlertHandler(service *alert.Service, logger zerolog.Logger) *AlertHandler {
	return &AlertHandler{service: service, logger: logger}
}

// ListAlerts returns recent overrun alerts for a branch, newest first.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	branchID, err := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64)
	if err != nil {
		http.Error(w, "branch_id query parameter is required", http.StatusBadRequest)
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	alerts, err := h.service.ListRecent(r.Context(), branchID, limit)
	if err != nil {
		http.Error(w, "Failed to list alerts: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}
