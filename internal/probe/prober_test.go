package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearhome/stream-gateway/internal/stream"
)

func TestSyntheticProber_Distribution(t *testing.T) {
	p := NewSeededProber(1)

	counts := map[stream.Connectivity]int{}
	const n = 5000
	for i := 0; i < n; i++ {
		h := p.Probe(stream.Entry{})
		counts[h.Connectivity]++
	}

	// 78/15/7 split with generous slack.
	assert.InDelta(t, 0.78, float64(counts[stream.ConnectivityOnline])/n, 0.05)
	assert.InDelta(t, 0.15, float64(counts[stream.ConnectivityDegraded])/n, 0.05)
	assert.InDelta(t, 0.07, float64(counts[stream.ConnectivityOffline])/n, 0.05)
}

func TestSyntheticProber_SampleBounds(t *testing.T) {
	p := NewSeededProber(42)

	for i := 0; i < 1000; i++ {
		h := p.Probe(stream.Entry{})
		assert.False(t, h.CheckedAt.IsZero())

		switch h.Connectivity {
		case stream.ConnectivityOnline:
			require.NotNil(t, h.LatencyMs)
			assert.GreaterOrEqual(t, *h.LatencyMs, 70.0)
			assert.Less(t, *h.LatencyMs, 130.0)
			require.NotNil(t, h.PacketLossPct)
			assert.GreaterOrEqual(t, *h.PacketLossPct, 0.0)
			assert.Less(t, *h.PacketLossPct, 0.3)
			require.NotNil(t, h.JitterMs)
			assert.GreaterOrEqual(t, *h.JitterMs, 3.0)
			assert.Less(t, *h.JitterMs, 12.0)
			assert.Empty(t, h.Error)
		case stream.ConnectivityDegraded:
			require.NotNil(t, h.LatencyMs)
			assert.GreaterOrEqual(t, *h.LatencyMs, 160.0)
			assert.Less(t, *h.LatencyMs, 320.0)
			require.NotNil(t, h.PacketLossPct)
			assert.GreaterOrEqual(t, *h.PacketLossPct, 1.0)
			assert.Less(t, *h.PacketLossPct, 5.0)
		case stream.ConnectivityOffline:
			assert.Nil(t, h.LatencyMs)
			assert.Nil(t, h.PacketLossPct)
			assert.Nil(t, h.JitterMs)
			assert.Equal(t, "stream unreachable", h.Error)
		}
	}
}

func TestSyntheticProber_Deterministic(t *testing.T) {
	a := NewSeededProber(7)
	b := NewSeededProber(7)

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Probe(stream.Entry{}).Connectivity, b.Probe(stream.Entry{}).Connectivity)
	}
}
