package routeguard

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/apiforge/console-core/pkg/session"
)

// timeNow is swapped in tests to pin credential expiry checks.
var timeNow = time.Now

// PhaseFromRequest derives the session phase from the credential cookie.
// Server-side the initialization phase does not exist: the cookie is either
// present and unexpired (authenticated) or it is not. A cookie whose
// credential cannot be parsed or has expired counts as unauthenticated,
// even when the client has not purged the stale cookie yet.
func PhaseFromRequest(r *http.Request) session.Phase {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return session.PhaseUnauthenticated
	}

	claims := jwt.MapClaims{}
	if _, _, perr := jwt.NewParser().ParseUnverified(cookie.Value, claims); perr != nil {
		return session.PhaseUnauthenticated
	}
	exp, eerr := claims.GetExpirationTime()
	if eerr != nil || exp == nil || exp.Time.Before(timeNow()) {
		return session.PhaseUnauthenticated
	}
	return session.PhaseAuthenticated
}

// Middleware gates the protected sections and the auth-only pages. Paths
// outside both sets pass through untouched; gated paths are allowed or
// redirected per Decide.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if !Matches(path) {
			next.ServeHTTP(w, r)
			return
		}

		switch d := Decide(path, PhaseFromRequest(r)); d.Action {
		case ActionRedirectLogin, ActionRedirectHome:
			http.Redirect(w, r, d.Location, http.StatusFound)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
