package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nearhome/stream-gateway/internal/sessions"
	"github.com/nearhome/stream-gateway/internal/stream"
)

type provisionResponse struct {
	stream.Entry
	PlaybackPath  string `json:"playbackPath"`
	Reprovisioned bool   `json:"reprovisioned"`
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		renderError(w, apiErr)
		return
	}

	src, apiErr := validateProvision(req)
	if apiErr != nil {
		renderError(w, apiErr)
		return
	}

	entry, reprovisioned, err := s.streams.Provision(r.Context(), req.TenantID, req.CameraID, req.RTSPURL, src)
	if err != nil {
		renderError(w, internalError())
		return
	}

	writeData(w, provisionResponse{
		Entry:         entry,
		PlaybackPath:  fmt.Sprintf("/playback/%s/%s/index.m3u8", entry.TenantID, entry.CameraID),
		Reprovisioned: reprovisioned,
	})
}

func (s *Server) handleDeprovision(w http.ResponseWriter, r *http.Request) {
	var req deprovisionRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		renderError(w, apiErr)
		return
	}
	if apiErr := validateStreamKey(req.TenantID, req.CameraID); apiErr != nil {
		renderError(w, apiErr)
		return
	}

	removed := s.streams.Deprovision(r.Context(), req.TenantID, req.CameraID)
	writeData(w, map[string]bool{"removed": removed})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]any{
		"status":     "ok",
		"streams":    len(s.registry.List()),
		"sessions":   s.sessions.Len(),
		"storageDir": s.storageDir,
		"uptimeSec":  int(time.Since(s.startedAt).Seconds()),
	})
}

// Per-stream health uses the control-plane sync envelope: ok plus the entry,
// or ok=false with a reason.
func (s *Server) handleStreamHealth(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	cameraID := chi.URLParam(r, "cameraId")

	entry, ok := s.registry.Get(tenantID, cameraID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "reason": "not_provisioned"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": entry})
}

func (s *Server) handleStreamHistory(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	cameraID := chi.URLParam(r, "cameraId")

	if _, ok := s.registry.Get(tenantID, cameraID); !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "reason": "not_provisioned"})
		return
	}

	samples := s.history.Recent(tenantID, cameraID)
	if samples == nil {
		samples = []stream.Health{}
	}
	writeList(w, samples, len(samples))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := sessions.Filter{
		TenantID: q.Get("tenantId"),
		CameraID: q.Get("cameraId"),
		SID:      q.Get("sid"),
	}
	if statusStr := q.Get("status"); statusStr != "" {
		status := sessions.Status(statusStr)
		switch status {
		case sessions.StatusIssued, sessions.StatusActive, sessions.StatusEnded, sessions.StatusExpired:
			filter.Status = status
		default:
			renderError(w, validationError([]FieldError{{Field: "status", Reason: "must be one of issued, active, ended, expired"}}))
			return
		}
	}

	list := s.sessions.List(filter)
	writeList(w, list, len(list))
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	expired, ended := s.sessions.Sweep()
	writeData(w, map[string]int{"expired": expired, "ended": ended})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		renderError(w, apiErr)
		return
	}

	var fields []FieldError
	if req.TenantID == "" {
		fields = append(fields, FieldError{Field: "tenantId", Reason: "required"})
	}
	if req.CameraID == "" {
		fields = append(fields, FieldError{Field: "cameraId", Reason: "required"})
	}
	if req.SID == "" {
		fields = append(fields, FieldError{Field: "sid", Reason: "required"})
	}
	if len(fields) > 0 {
		renderError(w, validationError(fields))
		return
	}

	ended := s.sessions.End(req.TenantID, req.CameraID, req.SID, req.Reason)
	writeData(w, map[string]bool{"ended": ended})
}
