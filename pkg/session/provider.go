package session

import "context"

// Identity is the signed-in user as reported by the identity provider.
type Identity struct {
	// UID is the provider-assigned user identifier.
	UID string

	// Email is the account email, when the provider exposes one.
	Email string

	// DisplayName is the human-readable name.
	DisplayName string

	// Phone is the account phone number, when present.
	Phone string

	// PhotoURL points at the account avatar, when present.
	PhotoURL string
}

// Provider is the external identity provider the controller wraps. Its
// change notifications are the sole driver of session transitions; the
// controller holds exactly one active registration at a time.
type Provider interface {
	// OnIdentityChanged registers fn to be invoked on every identity
	// change, including once with the current identity at registration
	// time (nil when signed out). The returned cancel releases the
	// registration.
	OnIdentityChanged(fn func(*Identity)) (cancel func(), err error)

	// Token returns the current bearer credential. It fails when no user
	// is signed in or the credential cannot be (re)obtained.
	Token(ctx context.Context) (string, error)

	// SignInWithEmail authenticates with an email/password credential.
	SignInWithEmail(ctx context.Context, email, password string) (*Identity, error)

	// SignInWithGoogle authenticates with a Google-issued ID token.
	SignInWithGoogle(ctx context.Context, idToken string) (*Identity, error)

	// CreateAccount registers a new email/password account and signs it in.
	CreateAccount(ctx context.Context, email, password string) (*Identity, error)

	// SignOut drops the current identity.
	SignOut(ctx context.Context) error
}

// Provisioner creates the backend-side profile record for an identity on
// first sign-in. The backend upserts by email, so provisioning the same
// identity repeatedly is safe.
type Provisioner interface {
	Provision(ctx context.Context, id *Identity) error
}

// ProvisionerFunc adapts a function to the Provisioner interface.
type ProvisionerFunc func(ctx context.Context, id *Identity) error

// Provision implements Provisioner.
func (f ProvisionerFunc) Provision(ctx context.Context, id *Identity) error {
	return f(ctx, id)
}
