package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/crewtally/tally-api/internal/ingest"
	"github.com/crewtally/tally-api/internal/reconcile"
	"github.com/crewtally/tally-api/internal/repository"
)

// maxExportSize caps uploaded workbook size at 20 MB.
const maxExportSize = 20 << 20

type ReconcileHandler struct {
	service *reconcile.Service
	logger  zerolog.Logger
}

func NewReconcileHandler(service *reconcile.Service, logger zerolog.Logger) *ReconcileHandler {
	return &ReconcileHandler{service: service, logger: logger}
}

// UploadExport accepts the time-clock xlsx as a multipart "file" field
// or as the raw request body.
func (h *ReconcileHandler) UploadExport(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchID"]

	r.Body = http.MaxBytesReader(w, r.Body, maxExportSize)
	reader := io.Reader(r.Body)
	if err := r.ParseMultipartForm(maxExportSize); err == nil {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Missing file field", http.StatusBadRequest)
			return
		}
		defer file.Close()
		reader = file
	}

	records, err := h.service.IngestExport(r.Context(), batchID, reader)
	switch {
	case errors.Is(err, repository.ErrBatchNotFound):
		http.Error(w, "Batch not found", http.StatusNotFound)
		return
	case errors.Is(err, ingest.ErrEmptyExport):
		http.Error(w, "Export contains no usable shift rows", http.StatusUnprocessableEntity)
		return
	case err != nil:
		http.Error(w, "Failed to ingest export: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]int{"records": len(records)})
}

func (h *ReconcileHandler) Proposals(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchID"]
	proposals, err := h.service.ProposeMatches(r.Context(), batchID)
	if err != nil {
		http.Error(w, "Failed to compute proposals: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(proposals)
}

func (h *ReconcileHandler) Unmatched(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchID"]
	labels, err := h.service.UnmatchedLabels(r.Context(), batchID)
	if err != nil {
		http.Error(w, "Failed to list unmatched labels: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"unmatched": labels})
}

func (h *ReconcileHandler) ConfirmMatches(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchID"]
	var confirmations []reconcile.Confirmation
	if err := json.NewDecoder(r.Body).Decode(&confirmations); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	updated, err := h.service.ConfirmMatches(r.Context(), batchID, confirmations)
	switch {
	case errors.Is(err, reconcile.ErrLedgerRowTaken), errors.Is(err, reconcile.ErrUnknownLedgerRow):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Failed to confirm matches: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"updated": updated})
}

func (h *ReconcileHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchID"]
	lines, unmatched, err := h.service.Aggregate(r.Context(), batchID)
	if err != nil {
		http.Error(w, "Failed to aggregate: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"lines":     lines,
		"unmatched": unmatched,
	})
}

func (h *ReconcileHandler) Save(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchID"]
	var params reconcile.SaveParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	params.BatchID = batchID

	result, err := h.service.Save(r.Context(), params)
	switch {
	case errors.Is(err, repository.ErrBatchNotFound):
		http.Error(w, "Batch not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, "Save failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

type approveRequest struct {
	JobIDs []int64 `json:"job_ids"`
}

func (h *ReconcileHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if len(req.JobIDs) == 0 {
		http.Error(w, "At least one job id is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Approve(r.Context(), req.JobIDs)
	switch {
	case errors.Is(err, repository.ErrJobNotFound):
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, "Approval failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

type rejectRequest struct {
	Pairs []reconcile.RejectPair `json:"pairs"`
}

func (h *ReconcileHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if len(req.Pairs) == 0 {
		http.Error(w, "At least one shift pair is required", http.StatusBadRequest)
		return
	}

	rejected, failures, err := h.service.Reject(r.Context(), req.Pairs)
	if err != nil {
		http.Error(w, "Rejection failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"rejected": rejected,
		"failures": failures,
	})
}
