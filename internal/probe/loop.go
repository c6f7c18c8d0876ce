package probe

import (
	"log"
	"sync"
	"time"

	"github.com/nearhome/stream-gateway/internal/stream"
)

// Loop periodically refreshes health for every registry entry. An error on
// one entry never interrupts the cycle, and every entry gets a fresh
// checkedAt each tick.
type Loop struct {
	registry *stream.Registry
	prober   Prober
	history  *History
	interval time.Duration
	quit     chan struct{}
	wg       sync.WaitGroup
}

func NewLoop(registry *stream.Registry, prober Prober, history *History, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Loop{
		registry: registry,
		prober:   prober,
		history:  history,
		interval: interval,
		quit:     make(chan struct{}),
	}
}

func (l *Loop) Start() {
	l.wg.Add(1)
	go l.run()
}

func (l *Loop) Stop() {
	close(l.quit)
	l.wg.Wait()
}

func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Tick()
		case <-l.quit:
			return
		}
	}
}

// Tick runs one probe pass over all entries. Exported so tests and the
// manual health path can force a deterministic cycle.
func (l *Loop) Tick() {
	for _, entry := range l.registry.List() {
		l.probeOne(entry)
	}
}

func (l *Loop) probeOne(entry stream.Entry) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PROBE] %s/%s probe panicked: %v", entry.TenantID, entry.CameraID, r)
		}
	}()

	now := time.Now()
	var health stream.Health
	promote := false

	switch entry.Status {
	case stream.StatusStopped:
		health = stream.Health{
			Connectivity: stream.ConnectivityOffline,
			Error:        stream.ReasonDeprovisioned,
			CheckedAt:    now,
		}
	case stream.StatusProvisioning:
		// First probe after provisioning promotes the entry.
		health = stream.Health{Connectivity: stream.ConnectivityOnline, CheckedAt: now}
		promote = true
	default:
		health = l.prober.Probe(entry)
		health.CheckedAt = now
	}

	l.registry.UpdateProbe(entry.TenantID, entry.CameraID, func(e *stream.Entry) {
		if promote && e.Status == stream.StatusProvisioning {
			e.Status = stream.StatusReady
			e.UpdatedAt = now
		}
		// A deprovision that raced this tick wins.
		if e.Status == stream.StatusStopped && entry.Status != stream.StatusStopped {
			e.Health.CheckedAt = now
			return
		}
		e.Health = health
	})

	if l.history != nil {
		l.history.Add(entry.TenantID, entry.CameraID, health)
	}
}
