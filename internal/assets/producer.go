package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/nearhome/stream-gateway/internal/platform/paths"
)

const (
	ManifestName = "index.m3u8"
	SegmentName  = "segment0.ts"

	// SegmentMarker is the opaque payload of the placeholder segment.
	SegmentMarker = "NEARHOME_STREAM_SEGMENT"
)

// manifest is a single-segment HLS playlist referencing SegmentName.
const manifest = "#EXTM3U\n" +
	"#EXT-X-VERSION:3\n" +
	"#EXT-X-TARGETDURATION:5\n" +
	"#EXT-X-MEDIA-SEQUENCE:0\n" +
	"#EXTINF:5.0,\n" +
	SegmentName + "\n"

// Producer writes placeholder playback assets under
// <root>/<tenantId>/<cameraId>/. It is the seam where a real packager plugs
// in; the reader contract does not change.
type Producer struct {
	root string
}

func NewProducer(root string) *Producer {
	return &Producer{root: root}
}

// Ensure writes the segment and manifest, overwriting pre-existing files.
// The manifest goes through write-then-rename so a concurrent reader sees
// either the previous or the next version, never a torn file.
func (p *Producer) Ensure(ctx context.Context, tenantID, cameraID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := paths.SafeJoin(p.root, tenantID, cameraID)
	if err != nil {
		return err
	}
	if err := paths.EnsureDir(dir); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, SegmentName), []byte(SegmentMarker), 0640); err != nil {
		return fmt.Errorf("write segment: %w", err)
	}

	if err := renameio.WriteFile(filepath.Join(dir, ManifestName), []byte(manifest), 0640); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}
