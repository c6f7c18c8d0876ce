package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nearhome/stream-gateway/internal/assets"
	"github.com/nearhome/stream-gateway/internal/metrics"
	"github.com/nearhome/stream-gateway/internal/probe"
	"github.com/nearhome/stream-gateway/internal/sessions"
	"github.com/nearhome/stream-gateway/internal/stream"
	"github.com/nearhome/stream-gateway/internal/tokens"
)

// Server is the HTTP surface of the data plane.
type Server struct {
	storageDir string
	streams    *stream.Service
	registry   *stream.Registry
	sessions   *sessions.Manager
	reader     *assets.Reader
	verifier   *tokens.Verifier
	metrics    *metrics.Metrics
	history    *probe.History
	startedAt  time.Time
}

type Config struct {
	StorageDir string
	Streams    *stream.Service
	Registry   *stream.Registry
	Sessions   *sessions.Manager
	Reader     *assets.Reader
	Verifier   *tokens.Verifier
	Metrics    *metrics.Metrics
	History    *probe.History
}

func NewServer(cfg Config) *Server {
	return &Server{
		storageDir: cfg.StorageDir,
		streams:    cfg.Streams,
		registry:   cfg.Registry,
		sessions:   cfg.Sessions,
		reader:     cfg.Reader,
		verifier:   cfg.Verifier,
		metrics:    cfg.Metrics,
		history:    cfg.History,
		startedAt:  time.Now(),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(recoverer)

	r.Post("/provision", s.handleProvision)
	r.Post("/deprovision", s.handleDeprovision)

	r.Get("/health", s.handleHealth)
	r.Get("/health/{tenantId}/{cameraId}", s.handleStreamHealth)
	r.Get("/health/{tenantId}/{cameraId}/history", s.handleStreamHistory)

	r.Get("/metrics", s.metrics.Handler().ServeHTTP)

	r.Get("/playback/{tenantId}/{cameraId}/index.m3u8", s.handleManifest)
	r.Get("/playback/{tenantId}/{cameraId}/segment0.ts", s.handleSegment)

	r.Get("/sessions", s.handleListSessions)
	r.Post("/sessions/sweep", s.handleSweep)
	r.Post("/sessions/end", s.handleEndSession)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, notFoundError())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, notFoundError())
	})

	return r
}
