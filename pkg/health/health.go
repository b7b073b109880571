// Package health probes the remote API server's liveness endpoint so the
// CLI can fail fast before issuing resource operations.
package health

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/apiforge/console-core/pkg/apierr"
	"github.com/apiforge/console-core/pkg/httpclient"
)

// Probe checks the API server's /healthz endpoint.
type Probe struct {
	client *httpclient.Client
	url    string
}

// NewProbe creates a Probe against the given API server root.
func NewProbe(client *httpclient.Client, baseURL string) *Probe {
	return &Probe{
		client: client,
		url:    strings.TrimSuffix(baseURL, "/") + "/healthz",
	}
}

// healthResponse is the JSON body the server returns.
type healthResponse struct {
	Status string `json:"status"`
}

// Check issues one probe. It returns the reported status string on
// success; a non-2xx response or transport failure is surfaced through the
// shared taxonomy.
func (p *Probe) Check(ctx context.Context) (string, error) {
	resp, err := p.client.Do(ctx, p.url, httpclient.Options{})
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", &apierr.HTTPError{Status: resp.Status, Message: "api server is not healthy"}
	}

	var body healthResponse
	if resp.IsJSON() {
		if uerr := json.Unmarshal(resp.Body, &body); uerr != nil {
			return "", &apierr.ParseError{Detail: "decoding health response", Err: uerr}
		}
	}
	if body.Status == "" {
		body.Status = "ok"
	}
	return body.Status, nil
}
