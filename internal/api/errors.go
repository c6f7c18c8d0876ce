package api

import (
	"errors"
	"net/http"

	"github.com/nearhome/stream-gateway/internal/tokens"
)

// Code is the machine-readable API error code.
type Code string

const (
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeTokenMissing          Code = "PLAYBACK_TOKEN_MISSING"
	CodeTokenFormatInvalid    Code = "PLAYBACK_TOKEN_FORMAT_INVALID"
	CodeTokenSignatureInvalid Code = "PLAYBACK_TOKEN_SIGNATURE_INVALID"
	CodeTokenPayloadInvalid   Code = "PLAYBACK_TOKEN_PAYLOAD_INVALID"
	CodeTokenExpired          Code = "PLAYBACK_TOKEN_EXPIRED"
	CodeTokenScopeMismatch    Code = "PLAYBACK_TOKEN_SCOPE_MISMATCH"
	CodeSessionClosed         Code = "PLAYBACK_SESSION_CLOSED"
	CodeStreamNotFound        Code = "PLAYBACK_STREAM_NOT_FOUND"
	CodeStreamNotReady        Code = "PLAYBACK_STREAM_NOT_READY"
	CodeStreamStopped         Code = "PLAYBACK_STREAM_STOPPED"
	CodeManifestNotFound      Code = "PLAYBACK_MANIFEST_NOT_FOUND"
	CodeSegmentNotFound       Code = "PLAYBACK_SEGMENT_NOT_FOUND"
	CodeNotFound              Code = "NOT_FOUND"
	CodeInternal              Code = "INTERNAL_SERVER_ERROR"
)

// Error is the typed handler result translated to HTTP at the edge. It
// replaces exception-style flow: handlers return it, renderError serializes
// it exactly once.
type Error struct {
	Status  int
	Code    Code
	Message string
	Details any
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newError(status int, code Code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func validationError(details []FieldError) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: "Validation failed",
		Details: details,
	}
}

func notFoundError() *Error {
	return newError(http.StatusNotFound, CodeNotFound, "Route not found")
}

func internalError() *Error {
	return newError(http.StatusInternalServerError, CodeInternal, "Internal server error")
}

// tokenError maps verifier sentinels onto the playback error taxonomy.
func tokenError(err error) *Error {
	switch {
	case errors.Is(err, tokens.ErrTokenMissing):
		return newError(http.StatusUnauthorized, CodeTokenMissing, "Playback token missing")
	case errors.Is(err, tokens.ErrTokenFormat):
		return newError(http.StatusUnauthorized, CodeTokenFormatInvalid, "Playback token malformed")
	case errors.Is(err, tokens.ErrTokenSignature):
		return newError(http.StatusUnauthorized, CodeTokenSignatureInvalid, "Playback token signature invalid")
	case errors.Is(err, tokens.ErrTokenPayload):
		return newError(http.StatusUnauthorized, CodeTokenPayloadInvalid, "Playback token payload invalid")
	case errors.Is(err, tokens.ErrTokenExpired):
		return newError(http.StatusUnauthorized, CodeTokenExpired, "Playback token expired")
	}
	return internalError()
}
