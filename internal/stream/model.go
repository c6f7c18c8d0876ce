package stream

import (
	"errors"
	"time"
)

var (
	ErrInvalidTransport = errors.New("invalid transport")
	ErrInvalidCodecHint = errors.New("invalid codec hint")
)

// Transport is the requested RTSP transport mode.
type Transport string

const (
	TransportAuto Transport = "auto"
	TransportTCP  Transport = "tcp"
	TransportUDP  Transport = "udp"
)

// ParseTransport parses a transport label; empty means auto.
func ParseTransport(s string) (Transport, error) {
	switch Transport(s) {
	case "":
		return TransportAuto, nil
	case TransportAuto, TransportTCP, TransportUDP:
		return Transport(s), nil
	}
	return "", ErrInvalidTransport
}

// CodecHint is the expected source codec.
type CodecHint string

const (
	CodecH264    CodecHint = "h264"
	CodecH265    CodecHint = "h265"
	CodecMPEG4   CodecHint = "mpeg4"
	CodecUnknown CodecHint = "unknown"
)

// ParseCodecHint parses a codec label; empty means unknown.
func ParseCodecHint(s string) (CodecHint, error) {
	switch CodecHint(s) {
	case "":
		return CodecUnknown, nil
	case CodecH264, CodecH265, CodecMPEG4, CodecUnknown:
		return CodecHint(s), nil
	}
	return "", ErrInvalidCodecHint
}

// Status is the lifecycle state of a provisioned stream.
type Status string

const (
	StatusProvisioning Status = "provisioning"
	StatusReady        Status = "ready"
	StatusStopped      Status = "stopped"
)

// Connectivity is the probed reachability of a stream source.
type Connectivity string

const (
	ConnectivityOnline   Connectivity = "online"
	ConnectivityDegraded Connectivity = "degraded"
	ConnectivityOffline  Connectivity = "offline"
)

// SourceConfig describes how the source should be consumed. TargetProfiles
// is an ordered sequence; reordering counts as a config change.
type SourceConfig struct {
	Transport      Transport `json:"transport"`
	CodecHint      CodecHint `json:"codecHint"`
	TargetProfiles []string  `json:"targetProfiles"`
}

// Equal reports byte-equality of the config, profiles compared in order.
func (c SourceConfig) Equal(o SourceConfig) bool {
	if c.Transport != o.Transport || c.CodecHint != o.CodecHint {
		return false
	}
	if len(c.TargetProfiles) != len(o.TargetProfiles) {
		return false
	}
	for i, p := range c.TargetProfiles {
		if o.TargetProfiles[i] != p {
			return false
		}
	}
	return true
}

func (c SourceConfig) clone() SourceConfig {
	out := c
	if c.TargetProfiles != nil {
		out.TargetProfiles = append([]string(nil), c.TargetProfiles...)
	}
	return out
}

// Health is the most recent probe observation for a stream. Numeric fields
// are nil when the source is unreachable.
type Health struct {
	Connectivity  Connectivity `json:"connectivity"`
	LatencyMs     *float64     `json:"latencyMs,omitempty"`
	PacketLossPct *float64     `json:"packetLossPct,omitempty"`
	JitterMs      *float64     `json:"jitterMs,omitempty"`
	Error         string       `json:"error,omitempty"`
	CheckedAt     time.Time    `json:"checkedAt"`
}

func (h Health) clone() Health {
	out := h
	out.LatencyMs = cloneFloat(h.LatencyMs)
	out.PacketLossPct = cloneFloat(h.PacketLossPct)
	out.JitterMs = cloneFloat(h.JitterMs)
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Entry is one provisioned stream, identified by (tenantId, cameraId).
type Entry struct {
	TenantID  string       `json:"tenantId"`
	CameraID  string       `json:"cameraId"`
	RTSPURL   string       `json:"rtspUrl"`
	Source    SourceConfig `json:"source"`
	Version   int64        `json:"version"`
	Status    Status       `json:"status"`
	Health    Health       `json:"health"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (e Entry) clone() Entry {
	out := e
	out.Source = e.Source.clone()
	out.Health = e.Health.clone()
	return out
}
