package stream

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nearhome/stream-gateway/internal/events"
)

// AssetProducer materializes the playback assets for a stream.
type AssetProducer interface {
	Ensure(ctx context.Context, tenantID, cameraID string) error
}

// SessionCloser ends every live session of a stream on deprovision.
type SessionCloser interface {
	CloseForStream(tenantID, cameraID, reason string) int
}

// Service orchestrates provisioning: registry mutation, asset production and
// lifecycle events. Concurrent provisions on the same (tenant, camera) key
// serialize on a per-key lock so the idempotency compare and the version
// bump see a consistent snapshot.
type Service struct {
	registry *Registry
	producer AssetProducer
	sessions SessionCloser
	events   events.Publisher

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(registry *Registry, producer AssetProducer, sessions SessionCloser, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Service{
		registry: registry,
		producer: producer,
		sessions: sessions,
		events:   pub,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Service) keyLock(tenantID, cameraID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(tenantID, cameraID)
	l, ok := s.locks[k]
	if !ok {
		l = &sync.Mutex{}
		s.locks[k] = l
	}
	return l
}

// Provision creates or reconfigures a stream. When the request matches the
// current config the existing entry is returned with reprovisioned=false and
// nothing is touched. Otherwise assets are (re)written and the entry
// transitions to ready.
func (s *Service) Provision(ctx context.Context, tenantID, cameraID, rtspURL string, src SourceConfig) (Entry, bool, error) {
	l := s.keyLock(tenantID, cameraID)
	l.Lock()
	defer l.Unlock()

	entry, changed := s.registry.Upsert(tenantID, cameraID, rtspURL, src)
	if !changed {
		return entry, false, nil
	}

	if err := s.producer.Ensure(ctx, tenantID, cameraID); err != nil {
		// Entry stays in provisioning until the next probe tick promotes it
		// or a reprovision rewrites the assets.
		return Entry{}, false, fmt.Errorf("ensure assets for %s/%s: %w", tenantID, cameraID, err)
	}

	entry, _ = s.registry.MarkReady(tenantID, cameraID)

	if err := s.events.Publish(events.Event{
		Type:     events.TypeStreamProvisioned,
		TenantID: tenantID,
		CameraID: cameraID,
		Version:  entry.Version,
		At:       time.Now(),
	}); err != nil {
		log.Printf("[STREAM] event publish failed: %v", err)
	}

	return entry, true, nil
}

// Deprovision stops a stream and ends its sessions. Returns whether the
// stream was known.
func (s *Service) Deprovision(ctx context.Context, tenantID, cameraID string) bool {
	l := s.keyLock(tenantID, cameraID)
	l.Lock()
	defer l.Unlock()

	removed := s.registry.MarkStopped(tenantID, cameraID)
	if !removed {
		return false
	}

	closed := s.sessions.CloseForStream(tenantID, cameraID, ReasonDeprovisioned)
	if closed > 0 {
		log.Printf("[STREAM] deprovision %s/%s ended %d session(s)", tenantID, cameraID, closed)
	}

	if err := s.events.Publish(events.Event{
		Type:     events.TypeStreamDeprovisioned,
		TenantID: tenantID,
		CameraID: cameraID,
		At:       time.Now(),
	}); err != nil {
		log.Printf("[STREAM] event publish failed: %v", err)
	}

	return true
}
