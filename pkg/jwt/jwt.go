// Package jwt issues and verifies the stateless session tokens used as
// bearer credentials. Tokens are HMAC-SHA256 signed JWTs carrying the user id
// and an absolute expiry; verification needs only the token and the signing
// secret, no store lookup.
package jwt

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

const (
	headerType      = "JWT"
	headerAlgorithm = "HS256"

	// DefaultTTL is the session lifetime. There is no refresh mechanism;
	// after expiry the client must authenticate again.
	DefaultTTL = 30 * 24 * time.Hour

	// minSecretLen guards against weak HMAC keys.
	minSecretLen = 32
)

type header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

// SessionClaims is the payload of a session token. The user id is carried
// under "id" to match the token shape existing clients already decode.
type SessionClaims struct {
	UserID    int64 `json:"id"`
	IssuedAt  int64 `json:"iat"`
	ExpiresAt int64 `json:"exp"`
}

// Service mints and validates session tokens with a single process-wide
// signing secret. The secret lives only in memory.
type Service struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

type Option func(*Service)

// WithTTL overrides the default session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session token service. The secret must be at least 32 bytes
// for adequate security with HMAC-SHA256.
func New(secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if len(secret) < minSecretLen {
		return nil, ErrWeakSecret
	}

	s := &Service{
		signingKey: []byte(secret),
		ttl:        DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Issue mints a signed token for the given user, expiring ttl from now.
func (s *Service) Issue(userID int64) (string, error) {
	now := s.now()
	claims := SessionClaims{
		UserID:    userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}

	headerJSON, err := json.Marshal(header{Type: headerType, Algorithm: headerAlgorithm})
	if err != nil {
		return "", err
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	payload := base64URLEncode(headerJSON) + "." + base64URLEncode(claimsJSON)
	return payload + "." + s.sign(payload), nil
}

// Verify checks signature integrity and expiry, returning the embedded user
// id. Malformed tokens, bad signatures, and expired tokens all fail; the
// caller surfaces any of these as an authentication failure.
func (s *Service) Verify(tokenString string) (int64, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

func (s *Service) parse(tokenString string) (SessionClaims, error) {
	var claims SessionClaims

	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return claims, ErrInvalidToken
	}

	// Constant-time signature comparison to prevent timing attacks.
	payload := parts[0] + "." + parts[1]
	expected := s.sign(payload)
	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(expected)) != 1 {
		return claims, ErrInvalidSignature
	}

	headerJSON, err := base64URLDecode(parts[0])
	if err != nil {
		return claims, ErrInvalidToken
	}
	var h header
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return claims, ErrInvalidToken
	}
	// Pin the algorithm to prevent confusion attacks.
	if h.Algorithm != headerAlgorithm {
		return claims, ErrUnexpectedSigningMethod
	}

	claimsJSON, err := base64URLDecode(parts[1])
	if err != nil {
		return claims, ErrInvalidToken
	}
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return claims, ErrInvalidToken
	}

	// A token without a positive exp claim would never expire; reject it.
	if claims.ExpiresAt <= 0 {
		return claims, ErrInvalidToken
	}
	if s.now().Unix() > claims.ExpiresAt {
		return claims, ErrExpiredToken
	}

	return claims, nil
}

func (s *Service) sign(payload string) string {
	h := hmac.New(sha256.New, s.signingKey)
	h.Write([]byte(payload))
	return base64URLEncode(h.Sum(nil))
}

// JWTs use unpadded base64url per RFC 7515; Go's decoder wants padding back.
func base64URLEncode(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}

func base64URLDecode(s string) ([]byte, error) {
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}
