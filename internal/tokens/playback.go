package tokens

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Playback tokens are `base64url(payload) "." base64url(signature)` where the
// signature is HMAC-SHA256 over the encoded payload text. The control plane
// signs with the same shared secret.

var (
	ErrTokenMissing   = errors.New("playback token missing")
	ErrTokenFormat    = errors.New("playback token format invalid")
	ErrTokenSignature = errors.New("playback token signature invalid")
	ErrTokenPayload   = errors.New("playback token payload invalid")
	ErrTokenExpired   = errors.New("playback token expired")
)

// Claims is the playback token payload. All string fields are required and
// non-empty; Version is the literal 1.
type Claims struct {
	Sub       string `json:"sub"`
	TenantID  string `json:"tid"`
	CameraID  string `json:"cid"`
	SessionID string `json:"sid"`
	Exp       int64  `json:"exp"`
	Iat       int64  `json:"iat"`
	Version   int    `json:"v"`
}

// SecretSource supplies the current HMAC key. Implementations must be safe
// for concurrent use.
type SecretSource interface {
	Secret() []byte
}

// StaticSecret is a fixed key.
type StaticSecret []byte

func (s StaticSecret) Secret() []byte { return []byte(s) }

type Verifier struct {
	source SecretSource
}

func NewVerifier(source SecretSource) *Verifier {
	return &Verifier{source: source}
}

// Verify checks the token in a fixed order; the first failing check
// determines the returned error. Signature comparison is constant-time and a
// length mismatch is indistinguishable from a content mismatch.
func (v *Verifier) Verify(token string, now time.Time) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	if strings.Count(token, ".") != 1 {
		return nil, ErrTokenFormat
	}
	dot := strings.IndexByte(token, '.')
	encPayload, encSig := token[:dot], token[dot+1:]
	if encPayload == "" || encSig == "" {
		return nil, ErrTokenFormat
	}

	mac := hmac.New(sha256.New, v.source.Secret())
	mac.Write([]byte(encPayload))
	want := mac.Sum(nil)

	got, err := base64.RawURLEncoding.DecodeString(encSig)
	if err != nil || !hmac.Equal(got, want) {
		return nil, ErrTokenSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(encPayload)
	if err != nil {
		return nil, ErrTokenPayload
	}
	var claims Claims
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&claims); err != nil {
		return nil, ErrTokenPayload
	}
	// The payload must be exactly one JSON object; trailing bytes are a
	// payload error.
	if dec.More() {
		return nil, ErrTokenPayload
	}
	if claims.Sub == "" || claims.TenantID == "" || claims.CameraID == "" || claims.SessionID == "" {
		return nil, ErrTokenPayload
	}
	if claims.Exp <= 0 || claims.Iat <= 0 || claims.Version != 1 {
		return nil, ErrTokenPayload
	}

	if claims.Exp <= now.Unix() {
		return nil, ErrTokenExpired
	}

	return &claims, nil
}

// Sign produces a playback token for the given claims. Used by the token_gen
// CLI and by tests; in production the control plane is the issuer.
func Sign(claims Claims, secret []byte) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	encPayload := base64.RawURLEncoding.EncodeToString(payload)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(encPayload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return encPayload + "." + sig, nil
}
