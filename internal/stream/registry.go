package stream

import (
	"sort"
	"sync"
	"time"
)

// ReasonDeprovisioned is the health error recorded on stopped streams.
const ReasonDeprovisioned = "deprovisioned"

// Registry is the authoritative in-memory map of provisioned streams.
// Entries are never deleted; stopped entries are retained so playback after
// deprovision can answer with the stopped status.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

func key(tenantID, cameraID string) string {
	return tenantID + "/" + cameraID
}

// Upsert creates or overwrites the entry for (tenantID, cameraID). When the
// requested config is byte-equal to the current one the entry is returned
// unchanged with changed=false. Otherwise the entry is (re)created in
// provisioning with a strictly increased version.
func (r *Registry) Upsert(tenantID, cameraID, rtspURL string, src SourceConfig) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	k := key(tenantID, cameraID)

	if cur, ok := r.entries[k]; ok {
		if cur.RTSPURL == rtspURL && cur.Source.Equal(src) {
			return cur.clone(), false
		}
		next := &Entry{
			TenantID:  tenantID,
			CameraID:  cameraID,
			RTSPURL:   rtspURL,
			Source:    src.clone(),
			Version:   cur.Version + 1,
			Status:    StatusProvisioning,
			Health:    provisioningHealth(now),
			UpdatedAt: now,
		}
		r.entries[k] = next
		return next.clone(), true
	}

	next := &Entry{
		TenantID:  tenantID,
		CameraID:  cameraID,
		RTSPURL:   rtspURL,
		Source:    src.clone(),
		Version:   1,
		Status:    StatusProvisioning,
		Health:    provisioningHealth(now),
		UpdatedAt: now,
	}
	r.entries[k] = next
	return next.clone(), true
}

func provisioningHealth(now time.Time) Health {
	return Health{
		Connectivity: ConnectivityDegraded,
		Error:        "provisioning",
		CheckedAt:    now,
	}
}

// MarkReady transitions the entry out of provisioning once its assets exist.
func (r *Registry) MarkReady(tenantID, cameraID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key(tenantID, cameraID)]
	if !ok {
		return Entry{}, false
	}
	now := r.now()
	e.Status = StatusReady
	e.Health = Health{Connectivity: ConnectivityOnline, CheckedAt: now}
	e.UpdatedAt = now
	return e.clone(), true
}

// MarkStopped records a deprovision. Returns whether an entry existed.
func (r *Registry) MarkStopped(tenantID, cameraID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key(tenantID, cameraID)]
	if !ok {
		return false
	}
	now := r.now()
	e.Status = StatusStopped
	e.Health = Health{
		Connectivity: ConnectivityOffline,
		Error:        ReasonDeprovisioned,
		CheckedAt:    now,
	}
	e.UpdatedAt = now
	return true
}

// Get returns a copy of the entry, if present.
func (r *Registry) Get(tenantID, cameraID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key(tenantID, cameraID)]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// List returns copies of all entries in stable key order.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.entries[k].clone())
	}
	return out
}

// UpdateProbe applies a probe mutation to the entry under the registry lock.
// The mutator sees the live entry; it must not retain it.
func (r *Registry) UpdateProbe(tenantID, cameraID string, fn func(*Entry)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key(tenantID, cameraID)]
	if !ok {
		return false
	}
	fn(e)
	return true
}

// CountByStatus returns entry counts for every stream status, including
// zeroes, for metric exposition.
func (r *Registry) CountByStatus() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := map[Status]int{
		StatusProvisioning: 0,
		StatusReady:        0,
		StatusStopped:      0,
	}
	for _, e := range r.entries {
		out[e.Status]++
	}
	return out
}

// CountByConnectivity returns entry counts for every connectivity value.
func (r *Registry) CountByConnectivity() map[Connectivity]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := map[Connectivity]int{
		ConnectivityOnline:   0,
		ConnectivityDegraded: 0,
		ConnectivityOffline:  0,
	}
	for _, e := range r.entries {
		out[e.Health.Connectivity]++
	}
	return out
}
