package probe

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nearhome/stream-gateway/internal/stream"
)

const (
	maxTrackedStreams   = 1024
	maxSamplesPerStream = 32
)

// History retains a bounded ring of recent probe samples per stream. Bounded
// both ways: an LRU over streams and a fixed window per stream.
type History struct {
	mu    sync.Mutex
	cache *lru.Cache[string, []stream.Health]
}

func NewHistory() *History {
	cache, _ := lru.New[string, []stream.Health](maxTrackedStreams)
	return &History{cache: cache}
}

func (h *History) Add(tenantID, cameraID string, sample stream.Health) {
	h.mu.Lock()
	defer h.mu.Unlock()

	k := tenantID + "/" + cameraID
	samples, _ := h.cache.Get(k)
	// Newest first.
	samples = append([]stream.Health{sample}, samples...)
	if len(samples) > maxSamplesPerStream {
		samples = samples[:maxSamplesPerStream]
	}
	h.cache.Add(k, samples)
}

// Recent returns the retained samples for a stream, newest first.
func (h *History) Recent(tenantID, cameraID string) []stream.Health {
	h.mu.Lock()
	defer h.mu.Unlock()

	samples, ok := h.cache.Get(tenantID + "/" + cameraID)
	if !ok {
		return nil
	}
	out := make([]stream.Health, len(samples))
	copy(out, samples)
	return out
}
