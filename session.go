// session.go
// ----------
// Session value type. The credentials themselves are owned by a
// SessionStore implementation (see adapters/); the client only reads the
// store to build the Authorization header, once per physical attempt.
package apibridge

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
)

// Session holds the credentials for one authenticated principal. It is
// created on login, replaced wholesale on token refresh, and cleared on
// logout or on any 401 response.
type Session struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	IssuedAt     time.Time     `json:"issued_at,omitempty"`
	ExpiresIn    time.Duration `json:"expires_in,omitempty"`
}

// NewSession builds a session from a raw access/refresh token pair. When
// the access token is a JWT, issued-at and expiry are inferred from its
// registered claims; the claims are read unverified since signature checks
// are the server's concern, and a malformed token simply leaves both zero.
func NewSession(accessToken, refreshToken string) *Session {
	s := &Session{AccessToken: accessToken, RefreshToken: refreshToken}
	s.inferClaims()
	return s
}

// NewSessionFromToken converts an oauth2 token into a session, so standard
// token sources and flows plug straight into a SessionStore.
func NewSessionFromToken(t *oauth2.Token) *Session {
	if t == nil {
		return nil
	}
	s := &Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
	if !t.Expiry.IsZero() {
		s.IssuedAt = time.Now()
		s.ExpiresIn = time.Until(t.Expiry)
	}
	s.inferClaims()
	return s
}

// Token converts the session back into an oauth2 token.
func (s *Session) Token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
	}
	if exp := s.ExpiresAt(); !exp.IsZero() {
		t.Expiry = exp
	}
	return t
}

// AuthorizationHeader returns the value for the Authorization header, or ""
// when the session holds no access token.
func (s *Session) AuthorizationHeader() string {
	if s == nil || s.AccessToken == "" {
		return ""
	}
	return "Bearer " + s.AccessToken
}

// ExpiresAt returns the absolute expiry time, or the zero time when the
// session carries no expiry information.
func (s *Session) ExpiresAt() time.Time {
	if s.ExpiresIn <= 0 {
		return time.Time{}
	}
	issued := s.IssuedAt
	if issued.IsZero() {
		return time.Time{}
	}
	return issued.Add(s.ExpiresIn)
}

// Expired reports whether the session is known to have expired. Sessions
// without expiry information are never considered expired client-side.
func (s *Session) Expired() bool {
	exp := s.ExpiresAt()
	return !exp.IsZero() && time.Now().After(exp)
}

// inferClaims fills IssuedAt/ExpiresIn from the access token's registered
// JWT claims when they are missing. Best-effort only.
func (s *Session) inferClaims() {
	if s.AccessToken == "" || strings.Count(s.AccessToken, ".") != 2 {
		return
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, &claims); err != nil {
		return
	}
	if s.IssuedAt.IsZero() && claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	if s.ExpiresIn == 0 && claims.ExpiresAt != nil && claims.IssuedAt != nil {
		s.ExpiresIn = claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	}
}
