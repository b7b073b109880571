package routeguard

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiforge/console-core/pkg/session"
)

func credentialCookie(t *testing.T, exp time.Time) *http.Cookie {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "uid-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return &http.Cookie{Name: session.CookieName, Value: token}
}

func TestPhaseFromRequest(t *testing.T) {
	newRequest := func(cookie *http.Cookie) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		if cookie != nil {
			r.AddCookie(cookie)
		}
		return r
	}

	t.Run("no cookie", func(t *testing.T) {
		assert.Equal(t, session.PhaseUnauthenticated, PhaseFromRequest(newRequest(nil)))
	})

	t.Run("valid credential", func(t *testing.T) {
		r := newRequest(credentialCookie(t, time.Now().Add(30*time.Minute)))
		assert.Equal(t, session.PhaseAuthenticated, PhaseFromRequest(r))
	})

	t.Run("expired credential", func(t *testing.T) {
		r := newRequest(credentialCookie(t, time.Now().Add(-time.Minute)))
		assert.Equal(t, session.PhaseUnauthenticated, PhaseFromRequest(r))
	})

	t.Run("garbage credential", func(t *testing.T) {
		r := newRequest(&http.Cookie{Name: session.CookieName, Value: "not-a-jwt"})
		assert.Equal(t, session.PhaseUnauthenticated, PhaseFromRequest(r))
	})
}

func TestMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(next)

	do := func(t *testing.T, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
		t.Helper()
		r := httptest.NewRequest(http.MethodGet, path, nil)
		if cookie != nil {
			r.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	t.Run("protected path without credential redirects to login", func(t *testing.T) {
		w := do(t, "/dashboard", nil)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?redirect=%2Fdashboard", w.Header().Get("Location"))
	})

	t.Run("protected path with credential passes through", func(t *testing.T) {
		w := do(t, "/tunnels/t-1", credentialCookie(t, time.Now().Add(time.Hour)))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("login with credential redirects home", func(t *testing.T) {
		w := do(t, "/login", credentialCookie(t, time.Now().Add(time.Hour)))
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	})

	t.Run("unmatched path bypasses the guard", func(t *testing.T) {
		w := do(t, "/pricing", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
