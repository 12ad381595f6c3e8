package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/run-daily", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunDailyJob)))
	mux.Handle("POST /v1/internal/jobs/extract-live", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ExtractLiveJob)))
	mux.Handle("POST /v1/internal/jobs/backfill", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.BackfillJob)))
	mux.Handle("POST /v1/internal/jobs/validate", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ValidateJob)))
	mux.Handle("POST /v1/internal/jobs/cleanup", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.CleanupJob)))
}
