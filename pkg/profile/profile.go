// Package profile tracks user profile records exposed by the console
// backend under /users/v1/. Creating a profile is an idempotent upsert by
// email on the backend side, which is what makes first-sign-in provisioning
// safe to repeat.
package profile

import (
	"time"

	"github.com/apiforge/console-core/pkg/httpclient"
	"github.com/apiforge/console-core/pkg/store"
)

// Profile is one user profile record.
type Profile struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`

	// Role and Status are managed by administrators, not by sign-up.
	Role   string `json:"role,omitempty"`
	Status string `json:"status,omitempty"`

	ProjectID  string `json:"project_id,omitempty"`
	ProfilePic string `json:"profile_pic,omitempty"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// RecordID implements store.Record.
func (p Profile) RecordID() string {
	return p.ID
}

// Store mirrors the remote profile collection.
type Store = store.Store[Profile]

// NewStore creates an empty profile store against the given API server.
func NewStore(client *httpclient.Client, baseURL string) (*Store, error) {
	return store.New[Profile](store.Config{
		Client:   client,
		BaseURL:  baseURL,
		Resource: "users",
	})
}
