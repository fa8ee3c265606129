package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Compatibility headers carried verbatim for header-only clients that keep
// the identifier in localStorage instead of a cookie.
const (
	HeaderUserID    = "X-OneDrive-User-ID"
	HeaderAuthToken = "X-Auth-Token"
)

// minIdentifierLen is the minimal length a raw header identifier must
// exceed to be accepted.
const minIdentifierLen = 10

// ErrInvalidSession is returned for tokens that fail signature or expiry
// checks.
var ErrInvalidSession = errors.New("httpapi: invalid session token")

// Sessions issues and verifies signed, expiring session tokens. The raw
// header identifiers remain accepted as a compatibility shim; the signed
// token is what new clients should hold.
type Sessions struct {
	secret []byte
	ttl    time.Duration

	// now is time.Now outside of tests.
	now func() time.Time
}

// NewSessions creates a session signer with the given HMAC secret and TTL.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a session token for the user.
func (s *Sessions) Issue(userID string) (string, error) {
	now := s.now()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("httpapi: signing session token: %w", err)
	}

	return token, nil
}

// Verify checks signature and expiry and returns the user identifier.
func (s *Sessions) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidSession
	}

	return claims.Subject, nil
}

// UserID resolves the caller's identity from request headers.
//
// Precedence: a bearer Authorization value first (verified as a signed
// session token when possible, otherwise accepted raw past a minimal length
// check), then the custom identity header, then the fallback header. An
// empty return means unauthenticated.
func (s *Sessions) UserID(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		value := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

		if userID, err := s.Verify(value); err == nil {
			return userID
		}

		if len(value) > minIdentifierLen {
			return value
		}
	}

	if v := r.Header.Get(HeaderUserID); len(v) > minIdentifierLen {
		return v
	}

	if v := r.Header.Get(HeaderAuthToken); len(v) > minIdentifierLen {
		return v
	}

	return ""
}

// setSessionHeaders mirrors the identifier back on both compatibility
// headers, exactly as header-only clients expect.
func setSessionHeaders(w http.ResponseWriter, userID string) {
	w.Header().Set(HeaderUserID, userID)
	w.Header().Set(HeaderAuthToken, userID)
}

// clearSessionHeaders blanks both compatibility headers on logout.
func clearSessionHeaders(w http.ResponseWriter) {
	w.Header().Set(HeaderUserID, "")
	w.Header().Set(HeaderAuthToken, "")
}
