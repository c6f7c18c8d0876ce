package stream

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearhome/stream-gateway/internal/events"
)

type fakeProducer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeProducer) Ensure(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeProducer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCloser struct {
	mu     sync.Mutex
	closed []string
	reason string
	n      int
}

func (f *fakeCloser) CloseForStream(tenantID, cameraID, reason string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, tenantID+"/"+cameraID)
	f.reason = reason
	return f.n
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturePublisher) Publish(evt events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func newTestService(producer *fakeProducer, closer *fakeCloser, pub events.Publisher) *Service {
	return NewService(NewRegistry(), producer, closer, pub)
}

func TestService_ProvisionNew(t *testing.T) {
	producer := &fakeProducer{}
	pub := &capturePublisher{}
	svc := newTestService(producer, &fakeCloser{}, pub)

	entry, reprovisioned, err := svc.Provision(context.Background(), "tenant-a", "camera-a", "rtsp://demo", testSource())
	require.NoError(t, err)
	assert.True(t, reprovisioned)
	assert.Equal(t, int64(1), entry.Version)
	assert.Equal(t, StatusReady, entry.Status)
	assert.Equal(t, 1, producer.count())

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeStreamProvisioned, pub.events[0].Type)
	assert.Equal(t, int64(1), pub.events[0].Version)
}

func TestService_ProvisionIdempotentSkipsAssets(t *testing.T) {
	producer := &fakeProducer{}
	svc := newTestService(producer, &fakeCloser{}, nil)

	_, _, err := svc.Provision(context.Background(), "tenant-a", "camera-a", "rtsp://demo", testSource())
	require.NoError(t, err)

	entry, reprovisioned, err := svc.Provision(context.Background(), "tenant-a", "camera-a", "rtsp://demo", testSource())
	require.NoError(t, err)
	assert.False(t, reprovisioned)
	assert.Equal(t, int64(1), entry.Version)
	assert.Equal(t, 1, producer.count(), "assets must not be rewritten on an idempotent provision")
}

func TestService_ProvisionAssetFailure(t *testing.T) {
	producer := &fakeProducer{err: errors.New("disk full")}
	pub := &capturePublisher{}
	svc := newTestService(producer, &fakeCloser{}, pub)

	_, _, err := svc.Provision(context.Background(), "tenant-a", "camera-a", "rtsp://demo", testSource())
	require.Error(t, err)
	assert.Empty(t, pub.events)

	// Entry stays in provisioning until assets land.
	entry, ok := svc.registry.Get("tenant-a", "camera-a")
	require.True(t, ok)
	assert.Equal(t, StatusProvisioning, entry.Status)

	// Retry after the producer recovers promotes to ready with a new version.
	producer.err = nil
	entry, reprovisioned, err := svc.Provision(context.Background(), "tenant-a", "camera-a", "rtsp://demo2", testSource())
	require.NoError(t, err)
	assert.True(t, reprovisioned)
	assert.Equal(t, StatusReady, entry.Status)
	assert.Equal(t, int64(2), entry.Version)
}

func TestService_Deprovision(t *testing.T) {
	producer := &fakeProducer{}
	closer := &fakeCloser{n: 2}
	pub := &capturePublisher{}
	svc := newTestService(producer, closer, pub)

	assert.False(t, svc.Deprovision(context.Background(), "tenant-a", "camera-a"))

	_, _, err := svc.Provision(context.Background(), "tenant-a", "camera-a", "rtsp://demo", testSource())
	require.NoError(t, err)

	assert.True(t, svc.Deprovision(context.Background(), "tenant-a", "camera-a"))
	assert.Equal(t, []string{"tenant-a/camera-a"}, closer.closed)
	assert.Equal(t, ReasonDeprovisioned, closer.reason)

	require.Len(t, pub.events, 2)
	assert.Equal(t, events.TypeStreamDeprovisioned, pub.events[1].Type)
}

func TestService_ConcurrentProvisionSingleWinner(t *testing.T) {
	producer := &fakeProducer{}
	svc := newTestService(producer, &fakeCloser{}, nil)

	var wg sync.WaitGroup
	changed := make([]bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, re, err := svc.Provision(context.Background(), "tenant-a", "camera-a", "rtsp://demo", testSource())
			assert.NoError(t, err)
			changed[i] = re
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, c := range changed {
		if c {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one concurrent identical provision may report a change")

	entry, ok := svc.registry.Get("tenant-a", "camera-a")
	require.True(t, ok)
	assert.Equal(t, int64(1), entry.Version)
}
