package assets

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/nearhome/stream-gateway/internal/platform/paths"
)

// Asset labels used in retry callbacks and metrics.
const (
	AssetManifest = "manifest"
	AssetSegment  = "segment"
)

// RetryPolicy bounds the transient-miss retry loop. Delay grows
// exponentially from Base and is capped at Max per step.
type RetryPolicy struct {
	MaxRetries int
	Base       time.Duration
	Max        time.Duration
}

// Delay returns the backoff before retry attempt n (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.Base << (attempt - 1)
	if d > p.Max || d <= 0 {
		return p.Max
	}
	return d
}

// Reader reads playback assets with retry on transient filesystem misses.
// onRetry, if set, is invoked once per retry for metric accounting.
type Reader struct {
	root    string
	policy  RetryPolicy
	onRetry func(tenantID, cameraID, asset string)
}

func NewReader(root string, policy RetryPolicy, onRetry func(tenantID, cameraID, asset string)) *Reader {
	return &Reader{root: root, policy: policy, onRetry: onRetry}
}

func (r *Reader) ReadManifest(ctx context.Context, tenantID, cameraID string) ([]byte, error) {
	return r.read(ctx, tenantID, cameraID, ManifestName, AssetManifest)
}

func (r *Reader) ReadSegment(ctx context.Context, tenantID, cameraID string) ([]byte, error) {
	return r.read(ctx, tenantID, cameraID, SegmentName, AssetSegment)
}

func (r *Reader) read(ctx context.Context, tenantID, cameraID, name, asset string) ([]byte, error) {
	path, err := paths.SafeJoin(r.root, tenantID, cameraID, name)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !isTransient(err) || attempt >= r.policy.MaxRetries {
			return nil, lastErr
		}

		if r.onRetry != nil {
			r.onRetry(tenantID, cameraID, asset)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.policy.Delay(attempt + 1)):
		}
	}
}

// isTransient reports whether the read failure can resolve on its own while
// a concurrent writer replaces the asset.
func isTransient(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EINTR)
}

// RewriteManifest substitutes the relative segment reference with the
// absolute playback URL carrying the caller's token. Plain string
// substitution; the manifest is not parsed.
func RewriteManifest(manifest []byte, segmentURL string) []byte {
	return []byte(strings.ReplaceAll(string(manifest), SegmentName, segmentURL))
}
