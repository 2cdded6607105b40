// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/noldarim/pipewatch/internal/dashboard"
	"github.com/noldarim/pipewatch/internal/pipeline"
	"github.com/noldarim/pipewatch/internal/refresh"
	"github.com/noldarim/pipewatch/internal/report"
)

// Refresher is the part of the refresh engine the API needs.
type Refresher interface {
	Status() refresh.Status
	Trigger(ctx context.Context) bool
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	state     *dashboard.State
	refresher Refresher
	clients   *ClientRegistry
	baseCtx   context.Context
}

// NewHandlers creates the handler set. Cycles triggered over HTTP run under
// baseCtx, not the request context. clients is only read for health reporting.
func NewHandlers(baseCtx context.Context, state *dashboard.State, refresher Refresher, clients *ClientRegistry) *Handlers {
	return &Handlers{state: state, refresher: refresher, clients: clients, baseCtx: baseCtx}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		getLog().Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// PipelineDetail is the response of GET /api/v1/pipelines/{name}.
type PipelineDetail struct {
	Status string `json:"status"`
	pipeline.Snapshot
}

// HealthResponse is the response of GET /healthz.
type HealthResponse struct {
	Status      string     `json:"status"` // "ok", "starting" or "degraded"
	Fetching    bool       `json:"fetching"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Skipped     int        `json:"skipped_ticks"`
	Clients     int        `json:"ws_clients"`
}

// GetPipelines handles GET /api/v1/pipelines
func (h *Handlers) GetPipelines(w http.ResponseWriter, r *http.Request) {
	c := h.state.Latest()
	if c == nil {
		writeError(w, http.StatusServiceUnavailable, "no cycle published yet")
		return
	}
	writeJSON(w, http.StatusOK, report.NewDocument(c))
}

// GetPipeline handles GET /api/v1/pipelines/{name}
func (h *Handlers) GetPipeline(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	snap, ok := h.state.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "pipeline not in latest cycle")
		return
	}
	writeJSON(w, http.StatusOK, PipelineDetail{Status: pipeline.Aggregate(snap), Snapshot: snap})
}

// Refresh handles POST /api/v1/refresh
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.refresher.Trigger(h.baseCtx) {
		writeError(w, http.StatusConflict, refresh.ErrBusy.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}

// Health handles GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	st := h.refresher.Status()
	resp := HealthResponse{
		Status:   "ok",
		Fetching: st.Fetching,
		Skipped:  st.Skipped,
		Clients:  h.clients.Len(),
	}
	if !st.LastSuccess.IsZero() {
		last := st.LastSuccess
		resp.LastSuccess = &last
	}
	switch {
	case st.LastError != nil:
		resp.Status = "degraded"
		resp.LastError = st.LastError.Error()
	case st.LastSuccess.IsZero():
		resp.Status = "starting"
	}
	writeJSON(w, http.StatusOK, resp)
}
