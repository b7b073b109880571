// Package routeguard decides whether the current visitor may see a path,
// given the session phase. Decide is pure and side-effect free; the HTTP
// middleware in this package applies its decisions with real redirects
// based on the credential cookie.
package routeguard

import (
	"net/url"
	"strings"

	"github.com/apiforge/console-core/pkg/session"
)

// Action is the guard's decision for a path/phase pair.
type Action int

// Guard decisions.
const (
	// ActionWait means the session is still initializing: render a
	// neutral placeholder, make no redirect decision yet.
	ActionWait Action = iota

	// ActionAllow lets navigation proceed.
	ActionAllow

	// ActionRedirectLogin sends the visitor to the login page, carrying
	// the original path as the return destination.
	ActionRedirectLogin

	// ActionRedirectHome sends an authenticated visitor away from the
	// auth pages to the dashboard.
	ActionRedirectHome
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionRedirectLogin:
		return "redirect-login"
	case ActionRedirectHome:
		return "redirect-home"
	default:
		return "wait"
	}
}

// Decision is the guard's output. Location is set for redirect actions.
type Decision struct {
	Action   Action
	Location string
}

const (
	// LoginPath is the sign-in page.
	LoginPath = "/login"

	// HomePath is where authenticated visitors land.
	HomePath = "/dashboard"

	// redirectParam carries the return destination on a login redirect.
	redirectParam = "redirect"
)

// publicPaths are the only exact paths visible without a session.
var publicPaths = map[string]bool{
	"/":         true,
	"/login":    true,
	"/register": true,
}

// authOnlyPaths are public pages that authenticated visitors are bounced
// away from.
var authOnlyPaths = map[string]bool{
	"/login":    true,
	"/register": true,
}

// ProtectedPrefixes are the gated sections the HTTP middleware matches.
// Decide itself treats every non-public path as protected.
var ProtectedPrefixes = []string{
	"/dashboard",
	"/generate",
	"/execute",
	"/documentation",
	"/tunnels",
	"/cli",
}

// Decide maps a path and session phase to a guard decision. It must be
// re-evaluated on every path change and every phase change.
func Decide(path string, phase session.Phase) Decision {
	if phase == session.PhaseInitializing {
		return Decision{Action: ActionWait}
	}

	if !publicPaths[path] && phase != session.PhaseAuthenticated {
		q := url.Values{}
		q.Set(redirectParam, path)
		return Decision{
			Action:   ActionRedirectLogin,
			Location: LoginPath + "?" + q.Encode(),
		}
	}

	if authOnlyPaths[path] && phase == session.PhaseAuthenticated {
		return Decision{Action: ActionRedirectHome, Location: HomePath}
	}

	return Decision{Action: ActionAllow}
}

// Matches reports whether the path falls inside a gated section or on an
// auth-only page, i.e. whether the HTTP middleware applies the guard at
// all.
func Matches(path string) bool {
	if authOnlyPaths[path] {
		return true
	}
	for _, prefix := range ProtectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
