package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/crewtally/tally-api/internal/authz"
	"github.com/crewtally/tally-api/internal/handlers"
	"github.com/crewtally/tally-api/internal/models"
)

// NewRouter sets up the API routes. Everything under /api except the
// auth endpoints requires a valid token; approve and reject
// additionally require the admin role.
func NewRouter(
	auth *handlers.AuthHandler,
	batch *handlers.BatchHandler,
	rec *handlers.ReconcileHandler,
	alerts *handlers.AlertHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/signup", auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", auth.Login).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	// Batch lifecycle and source ingestion
	api.HandleFunc("/batches", batch.CreateBatch).Methods(http.MethodPost)
	api.HandleFunc("/batches", batch.ListBatches).Methods(http.MethodGet)
	api.HandleFunc("/batches/{batchID}", batch.GetBatch).Methods(http.MethodGet)
	api.HandleFunc("/batches/{batchID}/ledger", batch.IngestLedger).Methods(http.MethodPost)
	api.HandleFunc("/batches/{batchID}/ledger", batch.ListLedger).Methods(http.MethodGet)
	api.HandleFunc("/batches/{batchID}/timeclock", rec.UploadExport).Methods(http.MethodPost)
	api.HandleFunc("/batches/{batchID}/timeclock", batch.ListRawShifts).Methods(http.MethodGet)

	// Matching and aggregation
	api.HandleFunc("/batches/{batchID}/matches/proposals", rec.Proposals).Methods(http.MethodGet)
	api.HandleFunc("/batches/{batchID}/matches/unmatched", rec.Unmatched).Methods(http.MethodGet)
	api.HandleFunc("/batches/{batchID}/matches", rec.ConfirmMatches).Methods(http.MethodPost)
	api.HandleFunc("/batches/{batchID}/aggregate", rec.Aggregate).Methods(http.MethodGet)
	api.HandleFunc("/batches/{batchID}/save", rec.Save).Methods(http.MethodPost)

	// Approval workflow is admin-only
	api.Handle("/jobs/approve", authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(rec.Approve))).Methods(http.MethodPost)
	api.Handle("/shifts/reject", authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(rec.Reject))).Methods(http.MethodPost)

	// Alert audit trail
	api.HandleFunc("/alerts", alerts.ListAlerts).Methods(http.MethodGet)

	return router
}
