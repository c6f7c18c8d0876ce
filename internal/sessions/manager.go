package sessions

import (
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nearhome/stream-gateway/internal/events"
)

// ErrSessionClosed signals that the session already reached a terminal state
// and must not serve playback again.
var ErrSessionClosed = errors.New("session closed")

// Mirror receives write-through copies of session state for out-of-process
// consumers. Mirroring is best-effort and never blocks a transition.
type Mirror interface {
	Upsert(s Session)
}

type noopMirror struct{}

func (noopMirror) Upsert(Session) {}

// Manager owns the session map and its state machine:
// issued -> active -> {ended, expired}.
type Manager struct {
	idleTTL time.Duration
	mirror  Mirror
	events  events.Publisher
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	sweepCount atomic.Uint64
}

func NewManager(idleTTL time.Duration, mirror Mirror, pub events.Publisher) *Manager {
	if mirror == nil {
		mirror = noopMirror{}
	}
	if pub == nil {
		pub = events.Noop{}
	}
	return &Manager{
		idleTTL:  idleTTL,
		mirror:   mirror,
		events:   pub,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func key(tenantID, cameraID, sid string) string {
	return tenantID + "/" + cameraID + "/" + sid
}

// Observe records a playback request for the session. A novel sid is created
// directly in active (it is observed serving traffic); a live one refreshes
// lastSeenAt. A terminal session refuses with ErrSessionClosed. The mirror
// write happens after the lock is released, so a slow mirror only delays its
// own caller, never other transitions.
func (m *Manager) Observe(tenantID, cameraID, sid, sub string, issuedAtEpoch, expiresAtEpoch int64) error {
	m.mu.Lock()

	now := m.now()
	k := key(tenantID, cameraID, sid)

	s, ok := m.sessions[k]
	if ok {
		if s.Status.IsTerminal() {
			m.mu.Unlock()
			return ErrSessionClosed
		}
		if s.Status == StatusIssued {
			s.Status = StatusActive
			s.ActivatedAt = &now
		}
		s.LastSeenAt = now
	} else {
		s = &Session{
			TenantID:    tenantID,
			CameraID:    cameraID,
			SID:         sid,
			Sub:         sub,
			Status:      StatusActive,
			IssuedAt:    time.Unix(issuedAtEpoch, 0),
			ActivatedAt: &now,
			ExpiresAt:   time.Unix(expiresAtEpoch, 0),
			LastSeenAt:  now,
		}
		m.sessions[k] = s
	}
	snap := s.clone()
	m.mu.Unlock()

	m.mirror.Upsert(snap)
	return nil
}

// Sweep makes one pass over the map: expires sessions past their token exp,
// ends active ones idle longer than the TTL. Returns the per-pass counts.
// Mirror and event writes for the terminated sessions happen after the lock
// is released.
func (m *Manager) Sweep() (expired, ended int) {
	m.mu.Lock()

	now := m.now()
	var done []Session
	for _, s := range m.sessions {
		if s.Status.IsTerminal() {
			continue
		}
		switch {
		case !s.ExpiresAt.After(now):
			done = append(done, m.terminate(s, StatusExpired, ReasonTokenExpired, now))
			expired++
		case s.Status == StatusActive && now.Sub(s.LastSeenAt) > m.idleTTL:
			done = append(done, m.terminate(s, StatusEnded, ReasonIdleTimeout, now))
			ended++
		}
	}
	m.sweepCount.Add(1)
	m.mu.Unlock()

	m.flush(done)
	return expired, ended
}

// CloseForStream ends every non-terminal session of the stream. Returns how
// many were ended.
func (m *Manager) CloseForStream(tenantID, cameraID, reason string) int {
	m.mu.Lock()

	now := m.now()
	var done []Session
	for _, s := range m.sessions {
		if s.TenantID != tenantID || s.CameraID != cameraID || s.Status.IsTerminal() {
			continue
		}
		done = append(done, m.terminate(s, StatusEnded, reason, now))
	}
	m.mu.Unlock()

	m.flush(done)
	return len(done)
}

// End terminates a single session on behalf of the caller. Returns false
// when the session is unknown or already terminal.
func (m *Manager) End(tenantID, cameraID, sid, reason string) bool {
	m.mu.Lock()

	s, ok := m.sessions[key(tenantID, cameraID, sid)]
	if !ok || s.Status.IsTerminal() {
		m.mu.Unlock()
		return false
	}
	if reason == "" {
		reason = ReasonEnded
	}
	snap := m.terminate(s, StatusEnded, reason, m.now())
	m.mu.Unlock()

	m.flush([]Session{snap})
	return true
}

// terminate is called with the manager lock held. It applies the transition
// and returns the snapshot to flush once the lock is released.
func (m *Manager) terminate(s *Session, status Status, reason string, now time.Time) Session {
	s.Status = status
	s.EndedAt = &now
	s.EndReason = reason
	return s.clone()
}

// flush mirrors terminal snapshots and publishes their lifecycle events.
// Must be called without the lock held; mirror and broker latency is paid
// here, never inside a transition.
func (m *Manager) flush(done []Session) {
	for _, s := range done {
		m.mirror.Upsert(s)

		evtType := events.TypeSessionEnded
		if s.Status == StatusExpired {
			evtType = events.TypeSessionExpired
		}
		if err := m.events.Publish(events.Event{
			Type:      evtType,
			TenantID:  s.TenantID,
			CameraID:  s.CameraID,
			SessionID: s.SID,
			Reason:    s.EndReason,
			At:        *s.EndedAt,
		}); err != nil {
			log.Printf("[SESSION] event publish failed: %v", err)
		}
	}
}

// Filter narrows List output; empty fields match everything and the fields
// AND-combine.
type Filter struct {
	TenantID string
	CameraID string
	Status   Status
	SID      string
}

func (f Filter) matches(s *Session) bool {
	if f.TenantID != "" && s.TenantID != f.TenantID {
		return false
	}
	if f.CameraID != "" && s.CameraID != f.CameraID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.SID != "" && s.SID != f.SID {
		return false
	}
	return true
}

// List returns matching sessions sorted by lastSeenAt descending.
func (m *Manager) List(f Filter) []Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Session, 0)
	for _, s := range m.sessions {
		if f.matches(s) {
			out = append(out, s.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSeenAt.Equal(out[j].LastSeenAt) {
			return out[i].LastSeenAt.After(out[j].LastSeenAt)
		}
		return out[i].SID < out[j].SID
	})
	return out
}

// CountByStatus returns session counts for every status, including zeroes.
func (m *Manager) CountByStatus() map[Status]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := map[Status]int{
		StatusIssued:  0,
		StatusActive:  0,
		StatusEnded:   0,
		StatusExpired: 0,
	}
	for _, s := range m.sessions {
		out[s.Status]++
	}
	return out
}

// Len returns the total number of retained sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SweepCount returns the number of sweep passes performed.
func (m *Manager) SweepCount() uint64 {
	return m.sweepCount.Load()
}
