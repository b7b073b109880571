// Package firebase implements session.Provider against the Google Identity
// Toolkit REST API. Sign-in, sign-up and federated sign-in go through the
// identitytoolkit endpoints; expired credentials are refreshed through the
// secure-token endpoint. All calls use the bounded request client, so every
// provider operation inherits the one-attempt timeout discipline.
package firebase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/apiforge/console-core/pkg/apierr"
	"github.com/apiforge/console-core/pkg/httpclient"
	"github.com/apiforge/console-core/pkg/session"
)

const (
	defaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	defaultTokenURL    = "https://securetoken.googleapis.com/v1"

	// refreshSkew refreshes credentials slightly before their expiry so a
	// token returned to a caller is never already stale.
	refreshSkew = 30 * time.Second
)

// Config configures a Provider.
type Config struct {
	// APIKey is the web API key of the Firebase project.
	APIKey string

	// IdentityURL overrides the identitytoolkit endpoint (tests).
	IdentityURL string

	// TokenURL overrides the secure-token endpoint (tests).
	TokenURL string

	// Client issues the REST calls; a default bounded client is created
	// when nil.
	Client *httpclient.Client
}

// Provider is a REST identity provider. It is safe for concurrent use.
type Provider struct {
	apiKey      string
	identityURL string
	tokenURL    string
	client      *httpclient.Client

	mu           sync.Mutex
	identity     *session.Identity
	idToken      string
	refreshToken string
	expiresAt    time.Time
	callbacks    []callbackEntry
	nextID       int
}

type callbackEntry struct {
	id int
	fn func(*session.Identity)
}

// New creates a Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, &apierr.ValidationError{Field: "api_key", Reason: "required"}
	}
	p := &Provider{
		apiKey:      cfg.APIKey,
		identityURL: cfg.IdentityURL,
		tokenURL:    cfg.TokenURL,
		client:      cfg.Client,
	}
	if p.identityURL == "" {
		p.identityURL = defaultIdentityURL
	}
	if p.tokenURL == "" {
		p.tokenURL = defaultTokenURL
	}
	if p.client == nil {
		p.client = httpclient.New()
	}
	return p, nil
}

// OnIdentityChanged implements session.Provider. The callback is invoked
// immediately with the current identity, then on every later change.
func (p *Provider) OnIdentityChanged(fn func(*session.Identity)) (func(), error) {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.callbacks = append(p.callbacks, callbackEntry{id: id, fn: fn})
	current := p.identity
	p.mu.Unlock()

	fn(copyIdentity(current))

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, entry := range p.callbacks {
			if entry.id == id {
				p.callbacks = append(p.callbacks[:i], p.callbacks[i+1:]...)
				return
			}
		}
	}
	return cancel, nil
}

// authResponse is the identitytoolkit success shape shared by sign-in,
// sign-up and federated sign-in.
type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	PhoneNumber  string `json:"phoneNumber"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// errorResponse is the Google API error envelope.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SignInWithEmail implements session.Provider.
func (p *Provider) SignInWithEmail(ctx context.Context, email, password string) (*session.Identity, error) {
	if email == "" {
		return nil, &apierr.ValidationError{Field: "email", Reason: "required"}
	}
	return p.authenticate(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// CreateAccount implements session.Provider.
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (*session.Identity, error) {
	if email == "" {
		return nil, &apierr.ValidationError{Field: "email", Reason: "required"}
	}
	return p.authenticate(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// SignInWithGoogle implements session.Provider. The caller supplies a
// Google-issued ID token obtained out of band.
func (p *Provider) SignInWithGoogle(ctx context.Context, idToken string) (*session.Identity, error) {
	if idToken == "" {
		return nil, &apierr.ValidationError{Field: "id_token", Reason: "required"}
	}
	return p.authenticate(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            "id_token=" + url.QueryEscape(idToken) + "&providerId=google.com",
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	})
}

// authenticate posts to the given identitytoolkit method, stores the
// resulting credential, and notifies callbacks.
func (p *Provider) authenticate(ctx context.Context, method string, payload map[string]any) (*session.Identity, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &apierr.ValidationError{Field: "payload", Reason: err.Error()}
	}

	target := fmt.Sprintf("%s/%s?key=%s", p.identityURL, method, url.QueryEscape(p.apiKey))
	resp, err := p.client.Do(ctx, target, httpclient.Options{
		Method: http.MethodPost,
		Body:   body,
	})
	if err != nil {
		return nil, &apierr.ProviderError{Op: method, Err: err}
	}
	auth, err := decodeAuth(resp, method)
	if err != nil {
		return nil, err
	}

	identity := &session.Identity{
		UID:         auth.LocalID,
		Email:       auth.Email,
		DisplayName: auth.DisplayName,
		Phone:       auth.PhoneNumber,
		PhotoURL:    auth.PhotoURL,
	}

	p.mu.Lock()
	p.identity = identity
	p.idToken = auth.IDToken
	p.refreshToken = auth.RefreshToken
	p.expiresAt = expiryFrom(auth.ExpiresIn)
	p.mu.Unlock()

	p.emit(identity)
	return copyIdentity(identity), nil
}

// SignOut implements session.Provider. It is local: the credential is
// dropped and callbacks are notified with an absent identity.
func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	p.identity = nil
	p.idToken = ""
	p.refreshToken = ""
	p.expiresAt = time.Time{}
	p.mu.Unlock()

	p.emit(nil)
	return nil
}

// Token implements session.Provider. A credential within refreshSkew of
// expiry is refreshed through the secure-token endpoint first.
func (p *Provider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	token := p.idToken
	refresh := p.refreshToken
	fresh := token != "" && time.Now().Add(refreshSkew).Before(p.expiresAt)
	p.mu.Unlock()

	if fresh {
		return token, nil
	}
	if refresh == "" {
		return "", &apierr.ProviderError{Op: "token", Err: fmt.Errorf("no user is signed in")}
	}
	return p.refreshCredential(ctx, refresh)
}

// refreshCredential exchanges the refresh token for a new ID token. The
// secure-token endpoint takes form-encoded input, so the JSON default
// content type is overridden per call.
func (p *Provider) refreshCredential(ctx context.Context, refreshToken string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")

	target := fmt.Sprintf("%s/token?key=%s", p.tokenURL, url.QueryEscape(p.apiKey))
	resp, err := p.client.Do(ctx, target, httpclient.Options{
		Method: http.MethodPost,
		Header: header,
		Body:   []byte(form.Encode()),
	})
	if err != nil {
		return "", &apierr.ProviderError{Op: "token", Err: err}
	}
	if !resp.OK() {
		return "", &apierr.ProviderError{Op: "token", Err: apiError(resp)}
	}

	var out struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}
	if uerr := json.Unmarshal(resp.Body, &out); uerr != nil {
		return "", &apierr.ProviderError{
			Op:  "token",
			Err: &apierr.ParseError{Detail: "decoding refresh response", Err: uerr},
		}
	}

	p.mu.Lock()
	p.idToken = out.IDToken
	if out.RefreshToken != "" {
		p.refreshToken = out.RefreshToken
	}
	p.expiresAt = expiryFrom(out.ExpiresIn)
	p.mu.Unlock()

	return out.IDToken, nil
}

// emit notifies every callback with the new identity.
func (p *Provider) emit(id *session.Identity) {
	p.mu.Lock()
	entries := append([]callbackEntry(nil), p.callbacks...)
	p.mu.Unlock()

	for _, entry := range entries {
		entry.fn(copyIdentity(id))
	}
}

// decodeAuth extracts the auth payload or the API error message.
func decodeAuth(resp *httpclient.Response, op string) (*authResponse, error) {
	if !resp.OK() {
		return nil, &apierr.ProviderError{Op: op, Err: apiError(resp)}
	}
	var auth authResponse
	if err := json.Unmarshal(resp.Body, &auth); err != nil {
		return nil, &apierr.ProviderError{
			Op:  op,
			Err: &apierr.ParseError{Detail: "decoding auth response", Err: err},
		}
	}
	if auth.IDToken == "" {
		return nil, &apierr.ProviderError{
			Op:  op,
			Err: &apierr.ParseError{Detail: "auth response has no idToken"},
		}
	}
	return &auth, nil
}

// apiError turns a non-2xx Google response into an error carrying the
// envelope message when present.
func apiError(resp *httpclient.Response) error {
	var envelope errorResponse
	if err := json.Unmarshal(resp.Body, &envelope); err == nil && envelope.Error.Message != "" {
		return &apierr.HTTPError{Status: resp.Status, Message: envelope.Error.Message}
	}
	return &apierr.HTTPError{Status: resp.Status, Message: "identity provider request failed"}
}

// expiryFrom converts the API's decimal-seconds string to a deadline.
func expiryFrom(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = int(session.CookieMaxAge.Seconds())
	}
	return time.Now().Add(time.Duration(secs) * time.Second)
}

// copyIdentity returns a defensive copy, or nil.
func copyIdentity(id *session.Identity) *session.Identity {
	if id == nil {
		return nil
	}
	out := *id
	return &out
}
