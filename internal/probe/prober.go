package probe

import (
	"math/rand"
	"sync"
	"time"

	"github.com/nearhome/stream-gateway/internal/stream"
)

// Prober produces a health observation for a ready stream. The loop calls it
// once per entry per tick; a real RTSP prober replaces the synthetic one
// without touching the loop.
type Prober interface {
	Probe(entry stream.Entry) stream.Health
}

// SyntheticProber draws health samples from a fixed distribution:
// 78% online, 15% degraded, 7% offline, with bounded numeric ranges per
// bucket. It stands in until real probing lands.
type SyntheticProber struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSyntheticProber() *SyntheticProber {
	return &SyntheticProber{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededProber returns a prober with a deterministic draw sequence.
func NewSeededProber(seed int64) *SyntheticProber {
	return &SyntheticProber{rng: rand.New(rand.NewSource(seed))}
}

func (p *SyntheticProber) Probe(_ stream.Entry) stream.Health {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	switch draw := p.rng.Float64(); {
	case draw < 0.78:
		return stream.Health{
			Connectivity:  stream.ConnectivityOnline,
			LatencyMs:     p.between(70, 130),
			PacketLossPct: p.between(0, 0.3),
			JitterMs:      p.between(3, 12),
			CheckedAt:     now,
		}
	case draw < 0.93:
		return stream.Health{
			Connectivity:  stream.ConnectivityDegraded,
			LatencyMs:     p.between(160, 320),
			PacketLossPct: p.between(1, 5),
			JitterMs:      p.between(15, 45),
			CheckedAt:     now,
		}
	default:
		return stream.Health{
			Connectivity: stream.ConnectivityOffline,
			Error:        "stream unreachable",
			CheckedAt:    now,
		}
	}
}

// between must be called with the prober lock held.
func (p *SyntheticProber) between(lo, hi float64) *float64 {
	v := lo + p.rng.Float64()*(hi-lo)
	return &v
}
