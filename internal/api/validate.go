package api

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/nearhome/stream-gateway/internal/stream"
)

// idRegex bounds tenant and camera identifiers: they become path segments on
// disk and in URLs.
var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// FieldError is one machine-readable validation failure.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type provisionRequest struct {
	TenantID       string   `json:"tenantId"`
	CameraID       string   `json:"cameraId"`
	RTSPURL        string   `json:"rtspUrl"`
	Transport      string   `json:"transport"`
	CodecHint      string   `json:"codecHint"`
	TargetProfiles []string `json:"targetProfiles"`
}

type deprovisionRequest struct {
	TenantID string `json:"tenantId"`
	CameraID string `json:"cameraId"`
}

type endSessionRequest struct {
	TenantID string `json:"tenantId"`
	CameraID string `json:"cameraId"`
	SID      string `json:"sid"`
	Reason   string `json:"reason"`
}

func decodeBody(r *http.Request, v any) *Error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return validationError([]FieldError{{Field: "body", Reason: "invalid JSON"}})
	}
	return nil
}

// validateProvision parses enums at the boundary and collects every field
// failure instead of stopping at the first.
func validateProvision(req provisionRequest) (stream.SourceConfig, *Error) {
	var fields []FieldError

	if !idRegex.MatchString(req.TenantID) {
		fields = append(fields, FieldError{Field: "tenantId", Reason: "must match ^[a-zA-Z0-9_-]{1,64}$"})
	}
	if !idRegex.MatchString(req.CameraID) {
		fields = append(fields, FieldError{Field: "cameraId", Reason: "must match ^[a-zA-Z0-9_-]{1,64}$"})
	}
	if len(req.RTSPURL) < 4 {
		fields = append(fields, FieldError{Field: "rtspUrl", Reason: "must be at least 4 characters"})
	}

	transport, err := stream.ParseTransport(req.Transport)
	if err != nil {
		fields = append(fields, FieldError{Field: "transport", Reason: "must be one of auto, tcp, udp"})
	}
	codec, err := stream.ParseCodecHint(req.CodecHint)
	if err != nil {
		fields = append(fields, FieldError{Field: "codecHint", Reason: "must be one of h264, h265, mpeg4, unknown"})
	}

	profiles := req.TargetProfiles
	if len(profiles) == 0 {
		profiles = []string{"main"}
	}
	for _, p := range profiles {
		if p == "" {
			fields = append(fields, FieldError{Field: "targetProfiles", Reason: "profiles must be non-empty"})
			break
		}
	}

	if len(fields) > 0 {
		return stream.SourceConfig{}, validationError(fields)
	}

	return stream.SourceConfig{
		Transport:      transport,
		CodecHint:      codec,
		TargetProfiles: profiles,
	}, nil
}

func validateStreamKey(tenantID, cameraID string) *Error {
	var fields []FieldError
	if !idRegex.MatchString(tenantID) {
		fields = append(fields, FieldError{Field: "tenantId", Reason: "must match ^[a-zA-Z0-9_-]{1,64}$"})
	}
	if !idRegex.MatchString(cameraID) {
		fields = append(fields, FieldError{Field: "cameraId", Reason: "must match ^[a-zA-Z0-9_-]{1,64}$"})
	}
	if len(fields) > 0 {
		return validationError(fields)
	}
	return nil
}
