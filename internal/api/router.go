package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"timeclock.agent/internal/api/handler"
)

// NewRouter sets up the gorilla/mux router for the operational surface.
// The agent has no write endpoints; everything it does is driven by the
// scheduler.
func NewRouter(statusHandler *handler.StatusHandler) *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/status", statusHandler.Status).Methods(http.MethodGet)
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)

	return r
}
