package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nearhome/stream-gateway/internal/sessions"
	"github.com/nearhome/stream-gateway/internal/stream"
)

// StreamStats is the registry edge the gauges scrape.
type StreamStats interface {
	CountByStatus() map[stream.Status]int
	CountByConnectivity() map[stream.Connectivity]int
}

// SessionStats is the session-manager edge the gauges scrape.
type SessionStats interface {
	CountByStatus() map[sessions.Status]int
	SweepCount() uint64
}

// Metrics owns the Prometheus registry for the data plane. Counters are
// incremented on the hot path; gauges are computed at scrape time from the
// authoritative maps so they can never drift.
type Metrics struct {
	registry *prometheus.Registry

	playbackRequests *prometheus.CounterVec
	playbackErrors   *prometheus.CounterVec
	readRetries      *prometheus.CounterVec
}

func New(streams StreamStats, sess SessionStats) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.playbackRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nearhome_playback_requests_total",
		Help: "Playback requests served, by asset and result",
	}, []string{"tenant_id", "camera_id", "asset", "result"})
	reg.MustRegister(m.playbackRequests)

	m.playbackErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nearhome_playback_errors_total",
		Help: "Playback requests rejected, by error code",
	}, []string{"tenant_id", "camera_id", "asset", "code"})
	reg.MustRegister(m.playbackErrors)

	m.readRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nearhome_playback_read_retries_total",
		Help: "Transient asset read retries",
	}, []string{"tenant_id", "camera_id", "asset"})
	reg.MustRegister(m.readRetries)

	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "nearhome_stream_session_sweeps_total",
		Help: "Session sweep passes performed",
	}, func() float64 { return float64(sess.SweepCount()) }))

	reg.MustRegister(&stateCollector{streams: streams, sessions: sess})

	return m
}

func (m *Metrics) RecordPlayback(tenantID, cameraID, asset, result string) {
	m.playbackRequests.WithLabelValues(tenantID, cameraID, asset, result).Inc()
}

func (m *Metrics) RecordPlaybackError(tenantID, cameraID, asset, code string) {
	m.playbackErrors.WithLabelValues(tenantID, cameraID, asset, code).Inc()
}

func (m *Metrics) RecordReadRetry(tenantID, cameraID, asset string) {
	m.readRetries.WithLabelValues(tenantID, cameraID, asset).Inc()
}

// Handler serves the registry in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var (
	descStreams = prometheus.NewDesc(
		"nearhome_streams_total",
		"Provisioned streams by status",
		[]string{"status"}, nil)
	descConnectivity = prometheus.NewDesc(
		"nearhome_stream_connectivity_total",
		"Provisioned streams by probed connectivity",
		[]string{"connectivity"}, nil)
	descSessions = prometheus.NewDesc(
		"nearhome_stream_sessions_total",
		"Playback sessions by status",
		[]string{"status"}, nil)
)

// stateCollector derives gauges from the live maps on every scrape.
type stateCollector struct {
	streams  StreamStats
	sessions SessionStats
}

func (c *stateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descStreams
	ch <- descConnectivity
	ch <- descSessions
}

func (c *stateCollector) Collect(ch chan<- prometheus.Metric) {
	for status, n := range c.streams.CountByStatus() {
		ch <- prometheus.MustNewConstMetric(descStreams, prometheus.GaugeValue, float64(n), string(status))
	}
	for conn, n := range c.streams.CountByConnectivity() {
		ch <- prometheus.MustNewConstMetric(descConnectivity, prometheus.GaugeValue, float64(n), string(conn))
	}
	for status, n := range c.sessions.CountByStatus() {
		ch <- prometheus.MustNewConstMetric(descSessions, prometheus.GaugeValue, float64(n), string(status))
	}
}
