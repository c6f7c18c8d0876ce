package sessions

import "time"

// Status is the lifecycle state of a playback session.
type Status string

const (
	StatusIssued  Status = "issued"
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
	StatusExpired Status = "expired"
)

// IsTerminal returns true if the state is final. Terminal sessions can never
// serve playback again, even with an unexpired token.
func (s Status) IsTerminal() bool {
	return s == StatusEnded || s == StatusExpired
}

// End reasons recorded on terminal transitions.
const (
	ReasonTokenExpired  = "token_expired"
	ReasonIdleTimeout   = "idle_timeout"
	ReasonDeprovisioned = "deprovisioned"
	ReasonEnded         = "ended"
)

// Session is one playback session, identified by (tenantId, cameraId, sid).
type Session struct {
	TenantID    string     `json:"tenantId"`
	CameraID    string     `json:"cameraId"`
	SID         string     `json:"sid"`
	Sub         string     `json:"sub"`
	Status      Status     `json:"status"`
	IssuedAt    time.Time  `json:"issuedAt"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	LastSeenAt  time.Time  `json:"lastSeenAt"`
	EndReason   string     `json:"endReason,omitempty"`
}

func (s Session) clone() Session {
	out := s
	out.ActivatedAt = cloneTime(s.ActivatedAt)
	out.EndedAt = cloneTime(s.EndedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
