package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/crewtally/tally-api/internal/models"
	"github.com/crewtally/tally-api/internal/repository"
)

var validate = validator.New()

type BatchHandler struct {
	store  *repository.Store
	logger zerolog.Logger
}

func NewBatchHandler(store *repository.Store, logger zerolog.Logger) *BatchHandler {
	return &BatchHandler{store: store, logger: logger}
}

type createBatchRequest struct {
	ID          string     `json:"id"`
	BranchID    int64      `json:"branch_id" validate:"required"`
	PeriodStart *time.Time `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end"`
}

func (h *BatchHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "Invalid batch: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	batch, err := h.store.Batches.Create(r.Context(), models.SyncBatch{
		ID:          req.ID,
		BranchID:    req.BranchID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
	})
	if err != nil {
		http.Error(w, "Failed to create batch: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(batch)
}

func (h *BatchHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	batches, err := h.store.Batches.List(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to list batches: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(batches)
}

func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchID"]
	batch, err := h.store.Batches.Get(r.Context(), batchID)
	if errors.Is(err, repository.ErrBatchNotFound) {
		http.Error(w, "Batch not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to get batch: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(batch)
}

type ledgerRowPayload struct {
	RowPosition    int        `json:"row_position"`
	JobName        string     `json:"job_name" validate:"required"`
	BranchID       int64      `json:"branch_id" validate:"required"`
	CrewLeadName   string     `json:"crew_lead_name"`
	ClosingDate    *time.Time `json:"closing_date"`
	EstimatedHours float64    `json:"estimated_hours" validate:"gte=0"`
	SoldPrice      string     `json:"sold_price"`
}

type ingestLedgerRequest struct {
	Rows []ledgerRowPayload `json:"rows" validate:"required,min=1,dive"`
}

// IngestLedger replaces the batch's ledger rows with the posted set.
// Sold prices arrive as strings to avoid float rounding on money.
func (h *BatchHandler) IngestLedger(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchID"]
	if _, err := h.store.Batches.Get(r.Context(), batchID); err != nil {
		http.Error(w, "Batch not found", http.StatusNotFound)
		return
	}

	var req ingestLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "Invalid ledger rows: "+err.Error(), http.StatusBadRequest)
		return
	}

	rows := make([]models.LedgerJobRow, 0, len(req.Rows))
	for i, p := range req.Rows {
		price := decimal.Zero
		if p.SoldPrice != "" {
			parsed, err := decimal.NewFromString(p.SoldPrice)
			if err != nil {
				h.logger.Warn().Str("batch_id", batchID).Int("row", i+1).Str("sold_price", p.SoldPrice).Msg("unparsable sold price, storing zero")
			} else {
				price = parsed
			}
		}
		pos := p.RowPosition
		if pos == 0 {
			pos = i + 1
		}
		rows = append(rows, models.LedgerJobRow{
			BatchID:        batchID,
			RowPosition:    pos,
			JobName:        p.JobName,
			BranchID:       p.BranchID,
			CrewLeadName:   p.CrewLeadName,
			ClosingDate:    p.ClosingDate,
			EstimatedHours: p.EstimatedHours,
			SoldPrice:      price,
		})
	}

	var count int
	err := h.store.WithinTx(r.Context(), func(tx *repository.Store) error {
		var err error
		count, err = tx.LedgerRows.ReplaceForBatch(r.Context(), batchID, rows)
		return err
	})
	if err != nil {
		http.Error(w, "Failed to store ledger rows: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.logger.Info().Str("batch_id", batchID).Int("rows", count).Msg("ingested ledger rows")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]int{"rows": count})
}

func (h *BatchHandler) ListRawShifts(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchID"]
	records, err := h.store.RawShifts.ListByBatch(r.Context(), batchID)
	if err != nil {
		http.Error(w, "Failed to list raw shifts: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (h *BatchHandler) ListLedger(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["batchID"]
	rows, err := h.store.LedgerRows.ListByBatch(r.Context(), batchID)
	if err != nil {
		http.Error(w, "Failed to list ledger rows: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}
