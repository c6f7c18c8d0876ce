package sessions

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// mirrorGrace keeps terminal sessions readable for a while after their token
// expiry so the control plane can observe the final state.
const mirrorGrace = 10 * time.Minute

// RedisMirror writes session state into Redis hashes keyed
// session:<tenantId>:<cameraId>:<sid>, with a TTL derived from the token
// expiry. The in-process map stays authoritative; the mirror only serves
// control-plane telemetry reads.
type RedisMirror struct {
	client *redis.Client
}

func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client}
}

func (m *RedisMirror) Upsert(s Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sessionKey := "session:" + s.TenantID + ":" + s.CameraID + ":" + s.SID

	fields := []any{
		"sub", s.Sub,
		"status", string(s.Status),
		"issued_at", s.IssuedAt.Unix(),
		"expires_at", s.ExpiresAt.Unix(),
		"last_seen_at", s.LastSeenAt.Unix(),
	}
	if s.EndReason != "" {
		fields = append(fields, "end_reason", s.EndReason)
	}

	ttl := time.Until(s.ExpiresAt) + mirrorGrace
	if ttl < mirrorGrace {
		ttl = mirrorGrace
	}

	pipe := m.client.Pipeline()
	pipe.HSet(ctx, sessionKey, fields...)
	pipe.Expire(ctx, sessionKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[SESSION] mirror write failed for %s: %v", sessionKey, err)
	}
}
