// Package generate tracks synthetic-data generation jobs exposed by the
// console backend under /generate/v1/. Executing a job produces its output
// data server-side; the store reconciles the returned job record in place.
package generate

import (
	"net/url"
	"strconv"
	"time"

	"github.com/apiforge/console-core/pkg/httpclient"
	"github.com/apiforge/console-core/pkg/store"
)

// Generation is one data-generation job. OutputData is populated by the
// backend after an execute call.
type Generation struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// DataType is the generated payload type: json, csv, xml, sql.
	DataType string `json:"data_type"`

	// Count is the number of records to generate.
	Count int `json:"count"`

	// Schema describes the generated record structure; see Schema for the
	// accepted wire shapes.
	Schema *Schema `json:"schema,omitempty"`

	// Format carries output format specifications.
	Format string `json:"format,omitempty"`

	// Status is one of active, completed, failed, pending.
	Status  string `json:"status,omitempty"`
	Enabled bool   `json:"enabled"`

	// UserID scopes the job to its owner; the backend requires it on list,
	// get, delete and execute calls.
	UserID string `json:"user_id"`

	OutputData any `json:"output_data,omitempty"`

	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// RecordID implements store.Record.
func (g Generation) RecordID() string {
	return g.ID
}

// Filter narrows a generation list call. UserID is mandatory; the backend
// scopes jobs per user.
type Filter struct {
	UserID   string
	Status   string
	DataType string
	Enabled  *bool
	Page     int
	Limit    int
	Offset   int
}

// Values serializes the filter as query parameters.
func (f Filter) Values() url.Values {
	v := url.Values{}
	v.Set("user_id", f.UserID)
	if f.Status != "" {
		v.Set("status", f.Status)
	}
	if f.DataType != "" {
		v.Set("data_type", f.DataType)
	}
	if f.Enabled != nil {
		v.Set("enabled", strconv.FormatBool(*f.Enabled))
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		v.Set("offset", strconv.Itoa(f.Offset))
	}
	return v
}

// UserValues builds the user-scope query sent on get and delete calls.
func UserValues(userID string) url.Values {
	v := url.Values{}
	v.Set("user_id", userID)
	return v
}

// Store mirrors the remote generation-job collection.
type Store = store.Store[Generation]

// NewStore creates an empty generation store against the given API server.
// The backend historically returned the list under a "generates" key before
// the shared "data" envelope; both shapes are accepted.
func NewStore(client *httpclient.Client, baseURL string) (*Store, error) {
	return store.New[Generation](store.Config{
		Client:   client,
		BaseURL:  baseURL,
		Resource: "generate",
		ListKeys: []string{"generates"},
	})
}
