package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nearhome/stream-gateway/internal/assets"
	"github.com/nearhome/stream-gateway/internal/metrics"
	"github.com/nearhome/stream-gateway/internal/probe"
	"github.com/nearhome/stream-gateway/internal/sessions"
	"github.com/nearhome/stream-gateway/internal/stream"
	"github.com/nearhome/stream-gateway/internal/tokens"
)

var testSecret = []byte("test-secret")

// harness wires the full data plane over a temp storage dir, the same way
// main does, so handler tests exercise the real pipeline.
type harness struct {
	root     string
	registry *stream.Registry
	manager  *sessions.Manager
	history  *probe.History
	handler  http.Handler
}

type harnessOpts struct {
	idleTTL time.Duration
	retries int
	base    time.Duration
}

func newHarness(t *testing.T, opts harnessOpts) *harness {
	t.Helper()

	if opts.idleTTL == 0 {
		opts.idleTTL = time.Minute
	}
	if opts.base == 0 {
		opts.base = time.Millisecond
	}

	root := t.TempDir()
	registry := stream.NewRegistry()
	manager := sessions.NewManager(opts.idleTTL, nil, nil)
	m := metrics.New(registry, manager)
	history := probe.NewHistory()

	producer := assets.NewProducer(root)
	svc := stream.NewService(registry, producer, manager, nil)
	reader := assets.NewReader(root, assets.RetryPolicy{
		MaxRetries: opts.retries,
		Base:       opts.base,
		Max:        10 * opts.base,
	}, m.RecordReadRetry)

	srv := NewServer(Config{
		StorageDir: root,
		Streams:    svc,
		Registry:   registry,
		Sessions:   manager,
		Reader:     reader,
		Verifier:   tokens.NewVerifier(tokens.StaticSecret(testSecret)),
		Metrics:    m,
		History:    history,
	})

	return &harness{
		root:     root,
		registry: registry,
		manager:  manager,
		history:  history,
		handler:  srv.Routes(),
	}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) provision(t *testing.T, tenantID, cameraID string) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/provision", map[string]any{
		"tenantId": tenantID,
		"cameraId": cameraID,
		"rtspUrl":  "rtsp://demo/" + cameraID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func signToken(t *testing.T, claims tokens.Claims) string {
	t.Helper()
	token, err := tokens.Sign(claims, testSecret)
	require.NoError(t, err)
	return token
}

func testSourceConfig() stream.SourceConfig {
	return stream.SourceConfig{
		Transport:      stream.TransportAuto,
		CodecHint:      stream.CodecUnknown,
		TargetProfiles: []string{"main"},
	}
}

func playbackClaims(tenantID, cameraID, sid string) tokens.Claims {
	now := time.Now()
	return tokens.Claims{
		Sub:       "viewer-1",
		TenantID:  tenantID,
		CameraID:  cameraID,
		SessionID: sid,
		Exp:       now.Add(time.Minute).Unix(),
		Iat:       now.Unix(),
		Version:   1,
	}
}
