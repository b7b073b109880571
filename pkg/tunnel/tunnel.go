// Package tunnel tracks the reverse-tunnel collection exposed by the
// console backend under /tunnels/v1/.
package tunnel

import (
	"net/url"
	"strconv"
	"time"

	"github.com/apiforge/console-core/pkg/httpclient"
	"github.com/apiforge/console-core/pkg/store"
)

// Tunnel is one reverse-tunnel record. ID and the audit fields are assigned
// by the backend and never set by this client.
type Tunnel struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Endpoint    string `json:"endpoint"`
	Port        int    `json:"port"`

	// Protocol is one of http, https, tcp, udp.
	Protocol string `json:"protocol"`

	// Status is one of active, inactive, pending.
	Status  string `json:"status,omitempty"`
	Enabled bool   `json:"enabled"`

	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// RecordID implements store.Record.
func (t Tunnel) RecordID() string {
	return t.ID
}

// Filter narrows a tunnel list call. Zero-valued fields are omitted from
// the query string.
type Filter struct {
	Status   string
	Protocol string
	Enabled  *bool
	Page     int
	Limit    int
	Offset   int
}

// Values serializes the filter as query parameters.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", f.Status)
	}
	if f.Protocol != "" {
		v.Set("protocol", f.Protocol)
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

// Store mirrors the remote tunnel collection.
type Store = store.Store[Tunnel]

// NewStore creates an empty tunnel store against the given API server. The
// backend historically returned the list under a "tunnels" key before the
// shared "data" envelope; both shapes are accepted.
func NewStore(client *httpclient.Client, baseURL string) (*Store, error) {
	return store.New[Tunnel](store.Config{
		Client:   client,
		BaseURL:  baseURL,
		Resource: "tunnels",
		ListKeys: []string{"tunnels"},
	})
}
