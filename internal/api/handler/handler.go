package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"timeclock.agent/internal/core"
)

// CycleReporter exposes the last reconciliation cycle outcome.
type CycleReporter interface {
	Status() core.CycleStatus
}

// QueueStats exposes the delivery queue depths.
type QueueStats interface {
	PendingCount(ctx context.Context) (int, error)
	ExpiredCount(ctx context.Context) (int, error)
}

type StatusHandler struct {
	Service CycleReporter
	Queue   QueueStats
}

type statusResponse struct {
	core.CycleStatus
	PendingTransmissions int `json:"pending_transmissions"`
	ExpiredTransmissions int `json:"expired_transmissions"`
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Queue.PendingCount(r.Context())
	if err != nil {
		http.Error(w, "Failed to read queue state", http.StatusInternalServerError)
		return
	}
	expired, err := h.Queue.ExpiredCount(r.Context())
	if err != nil {
		http.Error(w, "Failed to read queue state", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusResponse{
		CycleStatus:          h.Service.Status(),
		PendingTransmissions: pending,
		ExpiredTransmissions: expired,
	})
}
