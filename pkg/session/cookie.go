package session

import (
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName names the credential cookie consumed by server-side
	// route checks.
	CookieName = "firebase-token"

	// CookieMaxAge is the fixed validity window matching the provider's
	// credential lifetime.
	CookieMaxAge = time.Hour
)

// AuthCookie builds the credential cookie written on entering the
// authenticated phase: whole-application path, bounded max-age, and a
// same-site restriction that blocks cross-site submission.
func AuthCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(credentialMaxAge(token).Seconds()),
		SameSite: http.SameSiteStrictMode,
	}
}

// ExpiredAuthCookie builds the already-expired overwrite that makes the
// client purge the credential cookie.
func ExpiredAuthCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(1, 0),
		SameSite: http.SameSiteStrictMode,
	}
}

// credentialMaxAge derives the cookie lifetime from the credential's exp
// claim, clamped to the fixed window. A credential whose expiry cannot be
// read keeps the full window.
func credentialMaxAge(token string) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return CookieMaxAge
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return CookieMaxAge
	}
	remaining := time.Until(exp.Time)
	if remaining <= 0 || remaining > CookieMaxAge {
		return CookieMaxAge
	}
	return remaining
}

// CookieSink receives the credential cookie on every session transition.
type CookieSink interface {
	SetCookie(c *http.Cookie) error
}

// JarSink mirrors the credential cookie into an http.CookieJar scoped to
// the API server, so subsequent store requests carry the credential.
type JarSink struct {
	jar  http.CookieJar
	base *url.URL
}

// NewJarSink creates a sink that writes cookies into jar under baseURL.
func NewJarSink(jar http.CookieJar, baseURL string) (*JarSink, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &JarSink{jar: jar, base: u}, nil
}

// SetCookie implements CookieSink.
func (s *JarSink) SetCookie(c *http.Cookie) error {
	s.jar.SetCookies(s.base, []*http.Cookie{c})
	return nil
}
