package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nearhome/stream-gateway/internal/assets"
	"github.com/nearhome/stream-gateway/internal/sessions"
	"github.com/nearhome/stream-gateway/internal/stream"
)

const (
	contentTypeManifest = "application/vnd.apple.mpegurl"
	contentTypeSegment  = "video/MP2T"
)

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	s.servePlayback(w, r, assets.AssetManifest)
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	s.servePlayback(w, r, assets.AssetSegment)
}

// servePlayback wraps the playback pipeline so that the request counter and,
// on failure, the error counter are recorded exactly once no matter where
// the pipeline exits.
func (s *Server) servePlayback(w http.ResponseWriter, r *http.Request, asset string) {
	tenantID := chi.URLParam(r, "tenantId")
	cameraID := chi.URLParam(r, "cameraId")

	// Reject junk identifiers before they become metric labels.
	if !idRegex.MatchString(tenantID) || !idRegex.MatchString(cameraID) {
		renderError(w, notFoundError())
		return
	}

	body, contentType, apiErr := s.playback(r, tenantID, cameraID, asset)
	if apiErr != nil {
		s.metrics.RecordPlayback(tenantID, cameraID, asset, "error")
		s.metrics.RecordPlaybackError(tenantID, cameraID, asset, string(apiErr.Code))
		renderError(w, apiErr)
		return
	}

	s.metrics.RecordPlayback(tenantID, cameraID, asset, "ok")
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Write(body)
}

// playback runs the ordered checks of the playback contract. Earlier checks
// take precedence; the first failure is the response.
func (s *Server) playback(r *http.Request, tenantID, cameraID, asset string) ([]byte, string, *Error) {
	token := r.URL.Query().Get("token")

	// 1. Token verification.
	claims, err := s.verifier.Verify(token, time.Now())
	if err != nil {
		return nil, "", tokenError(err)
	}

	// 2. Scope: the token must be bound to exactly this tenant and camera.
	if claims.TenantID != tenantID || claims.CameraID != cameraID {
		return nil, "", newError(http.StatusForbidden, CodeTokenScopeMismatch, "Playback token scope mismatch")
	}

	// 3. Stream presence and status.
	entry, ok := s.registry.Get(tenantID, cameraID)
	if !ok {
		return nil, "", newError(http.StatusNotFound, CodeStreamNotFound, "Stream not provisioned")
	}
	switch entry.Status {
	case stream.StatusProvisioning:
		return nil, "", newError(http.StatusConflict, CodeStreamNotReady, "Stream not ready")
	case stream.StatusStopped:
		return nil, "", newError(http.StatusGone, CodeStreamStopped, "Stream stopped")
	}

	// 4. Session observation.
	if err := s.sessions.Observe(tenantID, cameraID, claims.SessionID, claims.Sub, claims.Iat, claims.Exp); err != nil {
		if errors.Is(err, sessions.ErrSessionClosed) {
			return nil, "", newError(http.StatusUnauthorized, CodeSessionClosed, "Playback session closed")
		}
		return nil, "", internalError()
	}

	// 5. Asset read with retry.
	if asset == assets.AssetManifest {
		manifest, err := s.reader.ReadManifest(r.Context(), tenantID, cameraID)
		if err != nil {
			return nil, "", newError(http.StatusNotFound, CodeManifestNotFound, "Manifest not found")
		}
		segmentURL := fmt.Sprintf("/playback/%s/%s/%s?token=%s",
			tenantID, cameraID, assets.SegmentName, url.QueryEscape(token))
		return assets.RewriteManifest(manifest, segmentURL), contentTypeManifest, nil
	}

	segment, err := s.reader.ReadSegment(r.Context(), tenantID, cameraID)
	if err != nil {
		return nil, "", newError(http.StatusNotFound, CodeSegmentNotFound, "Segment not found")
	}
	return segment, contentTypeSegment, nil
}
