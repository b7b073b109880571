// Package session wraps an external identity provider's change
// notifications into an explicit three-phase session lifecycle. The
// controller mirrors the current credential into a cookie for server-side
// route checks and fans each transition out to registered listeners,
// sequentially and with per-listener error isolation.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// Phase is the discrete state of the session state machine.
type Phase int

// Session phases. The controller starts Initializing, transitions exactly
// once into Unauthenticated or Authenticated on the provider's first
// notification, and oscillates between those two afterward.
const (
	PhaseInitializing Phase = iota
	PhaseUnauthenticated
	PhaseAuthenticated
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "initializing"
	}
}

// Listener is invoked on every session transition with the new identity
// (nil on sign-out). Listeners run sequentially; a failure is logged and
// never blocks subsequent listeners or the transition.
type Listener func(ctx context.Context, id *Identity) error

// Subscription is the handle returned from listener registration.
type Subscription struct {
	c  *Controller
	id int
}

// Unsubscribe removes the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	for i, entry := range s.c.listeners {
		if entry.id == s.id {
			s.c.listeners = append(s.c.listeners[:i], s.c.listeners[i+1:]...)
			return
		}
	}
}

type listenerEntry struct {
	id int
	fn Listener
}

// Controller drives the session lifecycle. Construct one per process with
// NewController and call Start to attach it to the provider.
type Controller struct {
	provider    Provider
	cookies     CookieSink
	provisioner Provisioner

	// transitionMu serializes transitions so cookie write, state update
	// and listener fan-out from one notification complete before the
	// next begins.
	transitionMu sync.Mutex

	mu          sync.Mutex
	phase       Phase
	identity    *Identity
	listeners   []listenerEntry
	nextID      int
	unsubscribe func()

	signingIn       bool
	signingOut      bool
	creatingAccount bool
	errMsg          string
	okMsg           string
}

// Option configures a Controller.
type Option func(*Controller)

// WithCookieSink sets where credential cookies are written.
func WithCookieSink(sink CookieSink) Option {
	return func(c *Controller) {
		c.cookies = sink
	}
}

// WithProvisioner sets the backend profile provisioner run on Google
// sign-in.
func WithProvisioner(p Provisioner) Option {
	return func(c *Controller) {
		c.provisioner = p
	}
}

// NewController creates a Controller in the Initializing phase. It holds
// no provider registration until Start.
func NewController(provider Provider, opts ...Option) *Controller {
	c := &Controller{
		provider: provider,
		phase:    PhaseInitializing,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start attaches the controller to the provider. A prior registration is
// released first so the process never holds two live subscriptions.
func (c *Controller) Start() error {
	c.mu.Lock()
	prior := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if prior != nil {
		prior()
	}

	cancel, err := c.provider.OnIdentityChanged(c.handleChange)
	if err != nil {
		return fmt.Errorf("subscribing to identity provider: %w", err)
	}

	c.mu.Lock()
	c.unsubscribe = cancel
	c.mu.Unlock()
	return nil
}

// Close releases the provider registration. Identity state is not torn
// down; only the subscription ends.
func (c *Controller) Close() {
	c.mu.Lock()
	cancel := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Subscribe registers a session-changed listener and returns its handle.
func (c *Controller) Subscribe(fn Listener) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.listeners = append(c.listeners, listenerEntry{id: c.nextID, fn: fn})
	return &Subscription{c: c, id: c.nextID}
}

// Phase returns the current session phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Identity returns the current identity, or nil outside the authenticated
// phase.
func (c *Controller) Identity() *Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return nil
	}
	id := *c.identity
	return &id
}

// State is a point-in-time copy of the controller's observable state.
type State struct {
	Phase           Phase
	Identity        *Identity
	SigningIn       bool
	SigningOut      bool
	CreatingAccount bool
	ErrorMessage    string
	SuccessMessage  string
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		Phase:           c.phase,
		SigningIn:       c.signingIn,
		SigningOut:      c.signingOut,
		CreatingAccount: c.creatingAccount,
		ErrorMessage:    c.errMsg,
		SuccessMessage:  c.okMsg,
	}
	if c.identity != nil {
		id := *c.identity
		st.Identity = &id
	}
	return st
}

// ClearMessages drops the error and success messages.
func (c *Controller) ClearMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = ""
	c.okMsg = ""
}

// CurrentToken returns the bearer credential for the signed-in user, or an
// empty string when no user is signed in. A provider failure is logged,
// not returned; callers treat an empty token as signed-out.
func (c *Controller) CurrentToken(ctx context.Context) string {
	if c.Phase() != PhaseAuthenticated {
		return ""
	}
	token, err := c.provider.Token(ctx)
	if err != nil {
		slog.Error("session: fetching token", "error", err)
		return ""
	}
	return token
}

// handleChange is the provider notification callback, the sole driver of
// phase transitions.
func (c *Controller) handleChange(id *Identity) {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	ctx := context.Background()
	if id != nil {
		c.enterAuthenticated(ctx, id)
		return
	}
	c.enterUnauthenticated(ctx)
}

// enterAuthenticated fetches the credential, mirrors it into the cookie,
// and fans the transition out. A token failure is logged and leaves the
// cookie unset; the transition itself still happens.
func (c *Controller) enterAuthenticated(ctx context.Context, id *Identity) {
	token, err := c.provider.Token(ctx)
	if err != nil {
		slog.Error("session: fetching credential on sign-in", "error", err)
		c.mu.Lock()
		c.errMsg = "error setting up authentication"
		c.mu.Unlock()
	} else {
		c.setCookie(AuthCookie(token))
	}

	c.mu.Lock()
	c.phase = PhaseAuthenticated
	c.identity = id
	c.mu.Unlock()

	c.notify(ctx, id)
}

// enterUnauthenticated clears the cookie and fans the transition out with
// an absent identity.
func (c *Controller) enterUnauthenticated(ctx context.Context) {
	c.setCookie(ExpiredAuthCookie())

	c.mu.Lock()
	c.phase = PhaseUnauthenticated
	c.identity = nil
	c.mu.Unlock()

	c.notify(ctx, nil)
}

// notify invokes every registered listener sequentially, awaiting each. A
// listener error is logged and does not stop the fan-out.
func (c *Controller) notify(ctx context.Context, id *Identity) {
	c.mu.Lock()
	entries := append([]listenerEntry(nil), c.listeners...)
	c.mu.Unlock()

	for _, entry := range entries {
		c.invoke(ctx, entry.fn, id)
	}
}

// invoke runs one listener, containing panics so a broken listener cannot
// abort the transition or starve the listeners after it.
func (c *Controller) invoke(ctx context.Context, fn Listener, id *Identity) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("session: listener panicked", "panic", r)
		}
	}()
	if err := fn(ctx, id); err != nil {
		slog.Error("session: listener failed", "error", err)
	}
}

// setCookie writes through the sink; a sink failure is logged, never
// escalated.
func (c *Controller) setCookie(cookie *http.Cookie) {
	if c.cookies == nil {
		return
	}
	if err := c.cookies.SetCookie(cookie); err != nil {
		slog.Error("session: writing credential cookie", "error", err)
	}
}

// SignInWithEmail authenticates with an email/password credential.
func (c *Controller) SignInWithEmail(ctx context.Context, email, password string) (*Identity, error) {
	c.beginOp(&c.signingIn)
	defer c.endOp(&c.signingIn)

	id, err := c.provider.SignInWithEmail(ctx, email, password)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	c.succeed("Successfully signed in")
	return id, nil
}

// SignInWithGoogle authenticates with a Google ID token and provisions the
// backend profile before returning. The backend upserts by email, so
// repeat sign-ins are safe.
func (c *Controller) SignInWithGoogle(ctx context.Context, idToken string) (*Identity, error) {
	c.beginOp(&c.signingIn)
	defer c.endOp(&c.signingIn)

	id, err := c.provider.SignInWithGoogle(ctx, idToken)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	if c.provisioner != nil {
		if err := c.provisioner.Provision(ctx, id); err != nil {
			c.fail(err)
			return nil, err
		}
	}
	c.succeed("Successfully signed in with Google")
	return id, nil
}

// CreateAccount registers a new email/password account.
func (c *Controller) CreateAccount(ctx context.Context, email, password string) (*Identity, error) {
	c.beginOp(&c.creatingAccount)
	defer c.endOp(&c.creatingAccount)

	id, err := c.provider.CreateAccount(ctx, email, password)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	c.succeed("Account created successfully")
	return id, nil
}

// SignOut drops the provider identity. The cookie is cleared immediately;
// the provider notification then drives the phase transition.
func (c *Controller) SignOut(ctx context.Context) error {
	c.beginOp(&c.signingOut)
	defer c.endOp(&c.signingOut)

	if err := c.provider.SignOut(ctx); err != nil {
		c.fail(err)
		return err
	}
	c.setCookie(ExpiredAuthCookie())
	c.succeed("Successfully signed out")
	return nil
}

// beginOp sets an in-flight flag and clears any previous messages.
func (c *Controller) beginOp(flag *bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*flag = true
	c.errMsg = ""
	c.okMsg = ""
}

// endOp clears the in-flight flag. Deferred on every operation path.
func (c *Controller) endOp(flag *bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*flag = false
}

// fail records the operation error message.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = err.Error()
}

// succeed records the success message.
func (c *Controller) succeed(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.okMsg = msg
}
